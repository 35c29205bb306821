package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medadvisor/advisor-api/internal/kv"
	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/repository"
	"github.com/medadvisor/advisor-api/internal/snapshot"
	"github.com/medadvisor/advisor-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrSourceRequired        = errors.New("source_uri is required")
	ErrOperationNameRequired = errors.New("operation_name is required")
	ErrOperationNotFound     = errors.New("backup operation not found")
	ErrConfirmationRequired  = errors.New("restore requires a confirmation token from confirmRestore")
	ErrInvalidConfirmation   = errors.New("restore confirmation is invalid, expired or for another source")
)

// BackupOperator starts the asynchronous export and import work
type BackupOperator interface {
	StartExport(ctx context.Context) (*models.BackupOperation, error)
	StartImport(ctx context.Context, source string) (*models.BackupOperation, error)
	CheckSource(ctx context.Context, source string) error
	List(ctx context.Context) ([]snapshot.Info, error)
}

// Confirmation is the first half of a restore
type Confirmation struct {
	Token     string
	SourceURI string
	ExpiresAt time.Time
}

// OperationStatus is the pollable view of an operation
type OperationStatus struct {
	Name     string
	Kind     models.BackupKind
	Done     bool
	Progress int
	State    models.BackupState
	Error    string
}

type confirmationRecord struct {
	SourceURI  string `json:"source_uri"`
	SecretHash string `json:"secret_hash"`
}

// BackupService starts, tracks and confirms backup and restore operations
type BackupService struct {
	operator      BackupOperator
	opsRepo       repository.BackupOperationRepository
	confirmations kv.Store
	tokenTTL      time.Duration
	now           func() time.Time
}

// NewBackupService creates a new BackupService
func NewBackupService(operator BackupOperator, opsRepo repository.BackupOperationRepository, confirmations kv.Store, tokenTTL time.Duration) *BackupService {
	return &BackupService{
		operator:      operator,
		opsRepo:       opsRepo,
		confirmations: confirmations,
		tokenTTL:      tokenTTL,
		now:           time.Now,
	}
}

// StartBackup begins an export and returns its handle immediately
func (s *BackupService) StartBackup(ctx context.Context) (*models.BackupOperation, error) {
	op, err := s.operator.StartExport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start backup: %w", err)
	}
	return op, nil
}

// ConfirmRestore issues a one-time token bound to sourceURI. The token has the
// form "<id>.<secret>"; only a bcrypt hash of the secret is stored.
func (s *BackupService) ConfirmRestore(ctx context.Context, sourceURI string) (*Confirmation, error) {
	if strings.TrimSpace(sourceURI) == "" {
		return nil, ErrSourceRequired
	}
	if err := s.operator.CheckSource(ctx, sourceURI); err != nil {
		return nil, err
	}

	secret, err := utils.GenerateConfirmationSecret()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash confirmation: %w", err)
	}
	record, err := json.Marshal(confirmationRecord{SourceURI: sourceURI, SecretHash: string(hash)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode confirmation: %w", err)
	}

	id := uuid.NewString()
	if err := s.confirmations.Put(ctx, id, string(record), s.tokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store confirmation: %w", err)
	}

	return &Confirmation{
		Token:     id + "." + secret,
		SourceURI: sourceURI,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}, nil
}

// StartRestore consumes the confirmation token and begins the import.
// A token is spent by the first attempt, even a failing one.
func (s *BackupService) StartRestore(ctx context.Context, token, sourceURI string) (*models.BackupOperation, error) {
	if strings.TrimSpace(sourceURI) == "" {
		return nil, ErrSourceRequired
	}
	if token == "" {
		return nil, ErrConfirmationRequired
	}

	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return nil, ErrInvalidConfirmation
	}

	raw, err := s.confirmations.Take(ctx, id)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrInvalidConfirmation
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmation: %w", err)
	}

	var record confirmationRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, ErrInvalidConfirmation
	}
	if record.SourceURI != sourceURI {
		return nil, ErrInvalidConfirmation
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidConfirmation
	}

	op, err := s.operator.StartImport(ctx, sourceURI)
	if err != nil {
		return nil, fmt.Errorf("failed to start restore: %w", err)
	}
	return op, nil
}

// PollStatus reads the current state of an operation. It never changes it.
func (s *BackupService) PollStatus(ctx context.Context, name string) (*OperationStatus, error) {
	if name == "" {
		return nil, ErrOperationNameRequired
	}

	op, err := s.opsRepo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperationNotFound
		}
		return nil, fmt.Errorf("failed to find operation: %w", err)
	}

	return statusOf(op), nil
}

// LatestStatus reports the most recent operation of the given kind
func (s *BackupService) LatestStatus(ctx context.Context, kind models.BackupKind) (*OperationStatus, error) {
	ops, err := s.opsRepo.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	if len(ops) == 0 {
		return nil, ErrOperationNotFound
	}
	return statusOf(&ops[0]), nil
}

func statusOf(op *models.BackupOperation) *OperationStatus {
	return &OperationStatus{
		Name:     op.Name,
		Kind:     op.Kind,
		Done:     op.Done(),
		Progress: op.Progress,
		State:    op.State,
		Error:    op.Error,
	}
}

// ListBackups returns stored snapshots, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]snapshot.Info, error) {
	infos, err := s.operator.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return infos, nil
}
