package models

import (
	"fmt"
	"time"
)

type BackupKind string

const (
	BackupKindExport BackupKind = "export"
	BackupKindImport BackupKind = "import"
)

type BackupState string

const (
	BackupStateNotStarted BackupState = "NOT_STARTED"
	BackupStateRunning    BackupState = "RUNNING"
	BackupStateSucceeded  BackupState = "SUCCEEDED"
	BackupStateFailed     BackupState = "FAILED"
)

var backupTransitions = map[BackupState][]BackupState{
	BackupStateNotStarted: {BackupStateRunning, BackupStateFailed},
	BackupStateRunning:    {BackupStateSucceeded, BackupStateFailed},
}

// BackupOperation tracks one asynchronous export or import.
type BackupOperation struct {
	Name       string      `gorm:"primarykey;type:varchar(64)" json:"name"`
	Kind       BackupKind  `gorm:"type:varchar(16);not null" json:"kind"`
	SourceURI  string      `gorm:"type:varchar(512)" json:"sourceUri"`
	State      BackupState `gorm:"type:varchar(16);not null;index" json:"state"`
	Progress   int         `json:"progress"`
	Error      string      `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}

// Done reports whether the operation reached a terminal state.
func (o BackupOperation) Done() bool {
	return o.State == BackupStateSucceeded || o.State == BackupStateFailed
}

// Transition moves the operation to the next state. Terminal states never change.
func (o *BackupOperation) Transition(to BackupState, at time.Time) error {
	for _, allowed := range backupTransitions[o.State] {
		if allowed != to {
			continue
		}
		o.State = to
		switch to {
		case BackupStateSucceeded:
			o.Progress = 100
			o.FinishedAt = &at
		case BackupStateFailed:
			o.FinishedAt = &at
		}
		return nil
	}
	return fmt.Errorf("invalid backup state transition %s -> %s", o.State, to)
}
