package dto

import (
	"time"

	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/services"
	"github.com/medadvisor/advisor-api/internal/snapshot"
)

// ConfirmRestoreResponse answers confirmRestore
type ConfirmRestoreResponse struct {
	Success           bool      `json:"success"`
	ConfirmationToken string    `json:"confirmation_token"`
	SourceURI         string    `json:"source_uri"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// OperationStartedResponse answers restoreBackup and manualBackup
type OperationStartedResponse struct {
	Success       bool      `json:"success"`
	OperationName string    `json:"operation_name"`
	SourceURI     string    `json:"source_uri,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OperationStatusResponse answers restoreStatus and backupStatus
type OperationStatusResponse struct {
	Success       bool               `json:"success"`
	OperationName string             `json:"operation_name"`
	Done          bool               `json:"done"`
	Progress      int                `json:"progress"`
	State         models.BackupState `json:"state"`
	Error         string             `json:"error,omitempty"`
}

// ListBackupsResponse answers listBackups
type ListBackupsResponse struct {
	Success bool            `json:"success"`
	Backups []snapshot.Info `json:"backups"`
}

func ToConfirmRestoreResponse(c *services.Confirmation) ConfirmRestoreResponse {
	return ConfirmRestoreResponse{
		Success:           true,
		ConfirmationToken: c.Token,
		SourceURI:         c.SourceURI,
		ExpiresAt:         c.ExpiresAt,
	}
}

func ToOperationStartedResponse(op *models.BackupOperation) OperationStartedResponse {
	return OperationStartedResponse{
		Success:       true,
		OperationName: op.Name,
		SourceURI:     op.SourceURI,
		Timestamp:     op.CreatedAt,
	}
}

func ToOperationStatusResponse(s *services.OperationStatus) OperationStatusResponse {
	return OperationStatusResponse{
		Success:       true,
		OperationName: s.Name,
		Done:          s.Done,
		Progress:      s.Progress,
		State:         s.State,
		Error:         s.Error,
	}
}

func ToListBackupsResponse(infos []snapshot.Info) ListBackupsResponse {
	if infos == nil {
		infos = []snapshot.Info{}
	}
	return ListBackupsResponse{Success: true, Backups: infos}
}
