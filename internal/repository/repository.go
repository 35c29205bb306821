package repository

import (
	"context"

	"github.com/medadvisor/advisor-api/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// CreateIfAbsent inserts the task unless a task with the same ID exists.
	// It reports whether a row was written.
	CreateIfAbsent(ctx context.Context, task *models.Task) (bool, error)

	// FindByID finds a task by its composite ID
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// ListByAssignee returns every task assigned to the user
	ListByAssignee(ctx context.Context, assigneeID string) ([]models.Task, error)

	// ListTargetDates returns the raw stored target date of every task that has one
	ListTargetDates(ctx context.Context) ([]models.RawValue, error)
}

// CatalogRepository gives access to plans, clients and products.
// Matching works on the slices returned here, never on live queries.
type CatalogRepository interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	ListProducts(ctx context.Context) ([]models.Product, error)

	// SavePlan upserts the plan. The stored clientsIds of an existing plan are kept.
	SavePlan(ctx context.Context, plan *models.Plan) error

	// AppendPlanClients adds client IDs to the plan's covered clients, ignoring ones already present
	AppendPlanClients(ctx context.Context, planID string, clientIDs []string) error

	SaveClient(ctx context.Context, client *models.Client) error
	SaveProduct(ctx context.Context, product *models.Product) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// List returns all users ordered by ID
	List(ctx context.Context) ([]models.User, error)

	// Save creates or replaces a user
	Save(ctx context.Context, user *models.User) error
}

// BackupOperationRepository stores the progress of export/import operations
type BackupOperationRepository interface {
	Create(ctx context.Context, op *models.BackupOperation) error
	FindByName(ctx context.Context, name string) (*models.BackupOperation, error)
	Update(ctx context.Context, op *models.BackupOperation) error
	// List returns operations of the given kind, newest first
	List(ctx context.Context, kind models.BackupKind) ([]models.BackupOperation, error)
}
