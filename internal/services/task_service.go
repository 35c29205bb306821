package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/medadvisor/advisor-api/internal/dates"
	"github.com/medadvisor/advisor-api/internal/matching"
	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/repository"
)

var (
	ErrPlanRequired   = errors.New("plan is required")
	ErrClientRequired = errors.New("client is required")
)

// ValidationError reports a missing or empty required field
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// TaskService turns approved plans and clients into tasks
type TaskService struct {
	catalogRepo repository.CatalogRepository
	taskRepo    repository.TaskRepository
	creator     *TaskCreator
	normalizer  *dates.Normalizer
}

// NewTaskService creates a new TaskService
func NewTaskService(catalogRepo repository.CatalogRepository, taskRepo repository.TaskRepository, creator *TaskCreator, normalizer *dates.Normalizer) *TaskService {
	return &TaskService{
		catalogRepo: catalogRepo,
		taskRepo:    taskRepo,
		creator:     creator,
		normalizer:  normalizer,
	}
}

// PlanTasksResult is the outcome of CreatePlanTasks
type PlanTasksResult struct {
	PlanID       string
	TasksCreated int
	TasksSkipped int
	Errors       []string
}

// PlanProcessed is the per-plan outcome of CreateTasksForNewClient
type PlanProcessed struct {
	PlanID            string `json:"planId"`
	TasksCreated      int    `json:"tasksCreated"`
	TasksSkipped      int    `json:"tasksSkipped"`
	ProductsProcessed int    `json:"productsProcessed"`
}

// ClientTasksResult is the outcome of CreateTasksForNewClient
type ClientTasksResult struct {
	ClientID               string
	TasksCreated           int
	TasksSkipped           int
	MatchingPlans          int
	PlansProcessed         []PlanProcessed
	InfluencerDoctorsCount int
	Reason                 matching.Reason
	Message                string
	Errors                 []string
}

// DateCount is the number of tasks due on one date
type DateCount struct {
	Date  dates.Date `json:"date"`
	Count int        `json:"count"`
}

// ValidatePlan checks the fields matching depends on
func ValidatePlan(plan *models.Plan) error {
	switch {
	case plan == nil:
		return ErrPlanRequired
	case plan.ID == "":
		return &ValidationError{Field: "id"}
	case len(plan.TargetProductsSales) == 0:
		return &ValidationError{Field: "targetProductsSales"}
	case len(plan.DepartmentsIDs) == 0:
		return &ValidationError{Field: "departmentsIds"}
	case len(plan.Cities) == 0:
		return &ValidationError{Field: "cities"}
	}
	return nil
}

// CreatePlanTasks stores the approved plan and creates tasks for every eligible client.
// Clients whose work was fully written are added to the plan's covered clients.
func (s *TaskService) CreatePlanTasks(ctx context.Context, plan *models.Plan) (*PlanTasksResult, error) {
	if err := ValidatePlan(plan); err != nil {
		return nil, err
	}

	if err := s.catalogRepo.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	clients, err := s.catalogRepo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	products, err := s.catalogRepo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	match := matching.MatchPlan(*plan, clients, products)
	created := s.creator.CreateTasks(ctx, match.Items)

	result := &PlanTasksResult{
		PlanID:       plan.ID,
		TasksCreated: created.Created,
		TasksSkipped: created.Skipped,
		Errors:       missingProductErrors(match.MissingProducts),
	}
	result.Errors = append(result.Errors, created.Errors...)

	covered := coveredClients(match, created)
	if err := s.catalogRepo.AppendPlanClients(ctx, plan.ID, covered); err != nil {
		log.Printf("Failed to record covered clients for plan %s: %v", plan.ID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("failed to record covered clients: %v", err))
	}

	return result, nil
}

// CreateTasksForNewClient stores the client and creates its tasks under every plan that covers it
func (s *TaskService) CreateTasksForNewClient(ctx context.Context, client *models.Client) (*ClientTasksResult, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	if client.ID == "" {
		return nil, &ValidationError{Field: "id"}
	}

	if err := s.catalogRepo.SaveClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}

	plans, err := s.catalogRepo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	products, err := s.catalogRepo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	match := matching.MatchClient(*client, plans, products)
	result := &ClientTasksResult{
		ClientID:               client.ID,
		MatchingPlans:          len(match.Plans),
		PlansProcessed:         []PlanProcessed{},
		InfluencerDoctorsCount: match.InfluencerDoctors,
		Reason:                 match.Reason,
	}
	if match.Reason != matching.ReasonNone {
		result.Message = match.Reason.Message()
		return result, nil
	}

	for _, planMatch := range match.Plans {
		created := s.creator.CreateTasks(ctx, planMatch.Items)
		result.TasksCreated += created.Created
		result.TasksSkipped += created.Skipped
		result.Errors = append(result.Errors, missingProductErrors(planMatch.MissingProducts)...)
		result.Errors = append(result.Errors, created.Errors...)
		result.PlansProcessed = append(result.PlansProcessed, PlanProcessed{
			PlanID:            planMatch.Plan.ID,
			TasksCreated:      created.Created,
			TasksSkipped:      created.Skipped,
			ProductsProcessed: planMatch.ProductsProcessed,
		})

		covered := coveredClients(planMatch, created)
		if err := s.catalogRepo.AppendPlanClients(ctx, planMatch.Plan.ID, covered); err != nil {
			log.Printf("Failed to record client %s on plan %s: %v", client.ID, planMatch.Plan.ID, err)
			result.Errors = append(result.Errors, fmt.Sprintf("plan %s: failed to record covered client: %v", planMatch.Plan.ID, err))
		}
	}

	result.Message = fmt.Sprintf("processed %d matching plans", result.MatchingPlans)
	return result, nil
}

// TaskStats counts tasks per target date, ascending by date.
// Tasks whose target date cannot be read are left out.
func (s *TaskService) TaskStats(ctx context.Context) ([]DateCount, error) {
	values, err := s.taskRepo.ListTargetDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list task dates: %w", err)
	}

	counts := make(map[dates.Date]int)
	invalid := 0
	for _, raw := range values {
		if raw.IsNull() {
			continue
		}
		d, err := s.normalizer.Normalize(json.RawMessage(raw))
		if err != nil {
			invalid++
			continue
		}
		counts[d]++
	}
	if invalid > 0 {
		log.Printf("Task stats skipped %d tasks with unreadable target dates", invalid)
	}

	stats := make([]DateCount, 0, len(counts))
	for d, n := range counts {
		stats = append(stats, DateCount{Date: d, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Date.Before(stats[j].Date)
	})
	return stats, nil
}

// coveredClients returns the matched clients that produced work and had every item written
func coveredClients(match matching.PlanMatch, created CreateResult) []string {
	withItems := make(map[string]bool)
	for _, item := range match.Items {
		withItems[item.ClientID] = true
	}

	var covered []string
	for _, clientID := range match.Clients {
		if withItems[clientID] && !created.ClientFailed(clientID) {
			covered = append(covered, clientID)
		}
	}
	return covered
}

func missingProductErrors(ids []string) []string {
	errs := make([]string, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Sprintf("product %s not found", id))
	}
	return errs
}
