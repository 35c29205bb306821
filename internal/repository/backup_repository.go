package repository

import (
	"context"

	"github.com/medadvisor/advisor-api/internal/models"
	"gorm.io/gorm"
)

// GormBackupOperationRepository is a GORM implementation of BackupOperationRepository
type GormBackupOperationRepository struct {
	db *gorm.DB
}

// NewBackupOperationRepository creates a new BackupOperationRepository
func NewBackupOperationRepository(db *gorm.DB) BackupOperationRepository {
	return &GormBackupOperationRepository{db: db}
}

func (r *GormBackupOperationRepository) Create(ctx context.Context, op *models.BackupOperation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *GormBackupOperationRepository) FindByName(ctx context.Context, name string) (*models.BackupOperation, error) {
	var op models.BackupOperation
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *GormBackupOperationRepository) Update(ctx context.Context, op *models.BackupOperation) error {
	return r.db.WithContext(ctx).Save(op).Error
}

func (r *GormBackupOperationRepository) List(ctx context.Context, kind models.BackupKind) ([]models.BackupOperation, error) {
	var ops []models.BackupOperation
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at DESC").
		Find(&ops).Error
	if err != nil {
		return nil, err
	}
	return ops, nil
}
