package repository

import (
	"context"

	"github.com/medadvisor/advisor-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// CreateIfAbsent relies on the primary key: a conflicting insert affects zero rows.
func (r *GormTaskRepository) CreateIfAbsent(ctx context.Context, task *models.Task) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(task)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByAssignee returns the user's tasks oldest first
func (r *GormTaskRepository) ListByAssignee(ctx context.Context, assigneeID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("assigned_to_id = ?", assigneeID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListTargetDates plucks target_date for every task where it is set
func (r *GormTaskRepository) ListTargetDates(ctx context.Context) ([]models.RawValue, error) {
	var values []models.RawValue
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("target_date IS NOT NULL").
		Pluck("target_date", &values).Error
	if err != nil {
		return nil, err
	}
	return values, nil
}
