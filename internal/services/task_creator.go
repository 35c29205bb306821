package services

import (
	"context"
	"fmt"
	"time"

	"github.com/medadvisor/advisor-api/internal/matching"
	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/repository"
)

// CreateResult summarizes one task-creation run
type CreateResult struct {
	Created int
	Skipped int
	Errors  []string
	// failedClients holds clients with at least one item that could not be written
	failedClients map[string]bool
}

// ClientFailed reports whether any item for the client failed
func (r CreateResult) ClientFailed(clientID string) bool {
	return r.failedClients[clientID]
}

// TaskCreator writes matched items as tasks, one at a time
type TaskCreator struct {
	taskRepo    repository.TaskRepository
	itemTimeout time.Duration
}

// NewTaskCreator creates a new TaskCreator
func NewTaskCreator(taskRepo repository.TaskRepository, itemTimeout time.Duration) *TaskCreator {
	return &TaskCreator{
		taskRepo:    taskRepo,
		itemTimeout: itemTimeout,
	}
}

// CreateTasks inserts a task per item unless one with the same composite ID exists.
// A failing item is recorded and the remaining items are still processed.
func (c *TaskCreator) CreateTasks(ctx context.Context, items []matching.Item) CreateResult {
	result := CreateResult{failedClients: make(map[string]bool)}

	for _, item := range items {
		created, err := c.createOne(ctx, item)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("client %s product %s task %s: %v",
				item.ClientID, item.ProductID, item.MarketingTask.ID, err))
			result.failedClients[item.ClientID] = true
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	return result
}

func (c *TaskCreator) createOne(ctx context.Context, item matching.Item) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	itemCtx := ctx
	if c.itemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, c.itemTimeout)
		defer cancel()
	}

	created, err := c.taskRepo.CreateIfAbsent(itemCtx, NewTaskFromItem(item))
	if err != nil {
		return false, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

// NewTaskFromItem builds the task record for a matched item. The target date is left
// empty until a representative schedules the visit.
func NewTaskFromItem(item matching.Item) *models.Task {
	return &models.Task{
		ID:                item.Key(),
		PlanID:            item.PlanID,
		ClientID:          item.ClientID,
		ProductID:         item.ProductID,
		DoctorName:        item.Doctor.Name,
		DoctorPhone:       item.Doctor.Phone,
		MarketingTaskID:   item.MarketingTask.ID,
		MarketingTaskName: item.MarketingTask.Name,
		Title:             item.Title(),
		AssignedToID:      item.AssignedToID,
		Status:            models.TaskStatusInProgress,
		State:             models.TaskStatePendingReview,
		Priority:          item.Priority,
		TargetSales:       item.TargetSales,
	}
}
