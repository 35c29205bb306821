package dto

import (
	"encoding/json"

	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/services"
)

// ActionRequest is the envelope of every POST /api call.
// Action-specific fields are decoded from the same body.
type ActionRequest struct {
	Action            string          `json:"action"`
	Plan              json.RawMessage `json:"plan,omitempty"`
	Client            json.RawMessage `json:"client,omitempty"`
	User              json.RawMessage `json:"user,omitempty"`
	Product           json.RawMessage `json:"product,omitempty"`
	SourceURI         string          `json:"source_uri,omitempty"`
	ConfirmationToken string          `json:"confirmation_token,omitempty"`
	OperationName     string          `json:"operation_name,omitempty"`
}

// DecodePlan returns nil when the request carries no plan
func (r ActionRequest) DecodePlan() (*models.Plan, error) {
	if isEmptyJSON(r.Plan) {
		return nil, nil
	}
	var plan models.Plan
	if err := json.Unmarshal(r.Plan, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// DecodeClient returns nil when the request carries no client
func (r ActionRequest) DecodeClient() (*models.Client, error) {
	if isEmptyJSON(r.Client) {
		return nil, nil
	}
	var client models.Client
	if err := json.Unmarshal(r.Client, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// DecodeUser returns nil when the request carries no user
func (r ActionRequest) DecodeUser() (*models.User, error) {
	if isEmptyJSON(r.User) {
		return nil, nil
	}
	var user models.User
	if err := json.Unmarshal(r.User, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DecodeProduct returns nil when the request carries no product
func (r ActionRequest) DecodeProduct() (*models.Product, error) {
	if isEmptyJSON(r.Product) {
		return nil, nil
	}
	var product models.Product
	if err := json.Unmarshal(r.Product, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := string(raw)
	return s == "" || s == "null" || s == "{}"
}

// PlanTasksResponse answers createPlanTasks
type PlanTasksResponse struct {
	Success      bool     `json:"success"`
	PlanID       string   `json:"planId"`
	TasksCreated int      `json:"tasksCreated"`
	TasksSkipped int      `json:"tasksSkipped"`
	Errors       []string `json:"errors"`
}

// ClientTasksResponse answers createTasksForNewClient
type ClientTasksResponse struct {
	Success                bool                     `json:"success"`
	ClientID               string                   `json:"clientId"`
	TasksCreated           int                      `json:"tasksCreated"`
	TasksSkipped           int                      `json:"tasksSkipped"`
	MatchingPlans          int                      `json:"matchingPlans"`
	PlansProcessed         []services.PlanProcessed `json:"plansProcessed"`
	InfluencerDoctorsCount int                      `json:"influencerDoctorsCount"`
	Reason                 string                   `json:"reason,omitempty"`
	Message                string                   `json:"message"`
	Errors                 []string                 `json:"errors"`
}

// NotificationResponse answers the notification triggers
type NotificationResponse struct {
	Success      bool     `json:"success"`
	Count        int      `json:"count"`
	Batches      int      `json:"batches"`
	InvalidDates int      `json:"invalidDates"`
	Date         string   `json:"date"`
	Skipped      bool     `json:"skipped,omitempty"`
	Errors       []string `json:"errors"`
}

// TaskStatsResponse answers getAllTasksStats
type TaskStatsResponse struct {
	Success bool                 `json:"success"`
	Data    []services.DateCount `json:"data"`
}

// SavedResponse answers upsertUser and upsertProduct
type SavedResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// ToPlanTasksResponse converts a service result into its response
func ToPlanTasksResponse(result *services.PlanTasksResult) PlanTasksResponse {
	return PlanTasksResponse{
		Success:      true,
		PlanID:       result.PlanID,
		TasksCreated: result.TasksCreated,
		TasksSkipped: result.TasksSkipped,
		Errors:       nonNil(result.Errors),
	}
}

// ToClientTasksResponse converts a service result into its response
func ToClientTasksResponse(result *services.ClientTasksResult) ClientTasksResponse {
	plans := result.PlansProcessed
	if plans == nil {
		plans = []services.PlanProcessed{}
	}
	return ClientTasksResponse{
		Success:                true,
		ClientID:               result.ClientID,
		TasksCreated:           result.TasksCreated,
		TasksSkipped:           result.TasksSkipped,
		MatchingPlans:          result.MatchingPlans,
		PlansProcessed:         plans,
		InfluencerDoctorsCount: result.InfluencerDoctorsCount,
		Reason:                 string(result.Reason),
		Message:                result.Message,
		Errors:                 nonNil(result.Errors),
	}
}

// ToNotificationResponse converts a pass result into its response.
// Count is the number of reminders delivered.
func ToNotificationResponse(result *services.PassResult) NotificationResponse {
	return NotificationResponse{
		Success:      true,
		Count:        result.Sent,
		Batches:      result.Batches,
		InvalidDates: result.InvalidDates,
		Date:         result.Date.String(),
		Errors:       nonNil(result.Errors),
	}
}

// ToTaskStatsResponse wraps the per-date counts
func ToTaskStatsResponse(stats []services.DateCount) TaskStatsResponse {
	if stats == nil {
		stats = []services.DateCount{}
	}
	return TaskStatsResponse{Success: true, Data: stats}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
