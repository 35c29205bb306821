package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medadvisor/advisor-api/internal/dates"
	"github.com/medadvisor/advisor-api/internal/matching"
	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	catalog repository.CatalogRepository
	tasks   repository.TaskRepository
	service *TaskService
}

func (suite *TaskServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.ctx = context.Background()
	suite.catalog = repository.NewCatalogRepository(suite.db)
	suite.tasks = repository.NewTaskRepository(suite.db)
	suite.service = NewTaskService(suite.catalog, suite.tasks, NewTaskCreator(suite.tasks, time.Second), dates.NewNormalizer(dates.DayFirst))
}

func (suite *TaskServiceTestSuite) baghdadPlan() *models.Plan {
	return &models.Plan{
		ID:                  "plan-1",
		TargetProductsSales: datatypes.JSONSlice[models.ProductTarget]{{ProductID: "prod-1", TargetSales: 25}},
		DepartmentsIDs:      datatypes.JSONSlice[string]{"d1"},
		Cities:              datatypes.JSONSlice[string]{"Baghdad"},
		SalesRepIDs:         datatypes.JSONSlice[string]{"rep-1"},
		DeliveryID:          "delivery-1",
	}
}

func (suite *TaskServiceTestSuite) seedCatalog() {
	suite.Require().NoError(suite.catalog.SaveClient(suite.ctx, &models.Client{
		ID:         "c1",
		City:       "Baghdad",
		Department: "d1",
		State:      models.ClientStateApproved,
		Priority:   "high",
		AdditionalInfo: datatypes.NewJSONType(models.ClientInfo{Doctors: []models.Doctor{
			{Name: "Dr. A", Phone: "0770", IsInfluencer: true},
			{Name: "Dr. B", Phone: "0771", IsInfluencer: true},
		}}),
	}))
	suite.Require().NoError(suite.catalog.SaveProduct(suite.ctx, &models.Product{
		ID:             "prod-1",
		DepartmentsIDs: datatypes.JSONSlice[string]{"d1"},
		MarketingTasks: datatypes.JSONSlice[models.MarketingTask]{{ID: "visit", Name: "Visit"}},
	}))
}

func (suite *TaskServiceTestSuite) countTasks() int64 {
	var count int64
	suite.db.Model(&models.Task{}).Count(&count)
	return count
}

func (suite *TaskServiceTestSuite) TestCreatePlanTasks_BaghdadScenario() {
	suite.seedCatalog()

	first, err := suite.service.CreatePlanTasks(suite.ctx, suite.baghdadPlan())
	suite.Require().NoError(err)
	suite.Equal("plan-1", first.PlanID)
	suite.Equal(2, first.TasksCreated)
	suite.Equal(0, first.TasksSkipped)
	suite.Empty(first.Errors)

	second, err := suite.service.CreatePlanTasks(suite.ctx, suite.baghdadPlan())
	suite.Require().NoError(err)
	suite.Equal(0, second.TasksCreated)
	suite.Equal(2, second.TasksSkipped)

	suite.Equal(int64(2), suite.countTasks())

	tasks, err := suite.tasks.ListByAssignee(suite.ctx, "rep-1")
	suite.Require().NoError(err)
	suite.Require().Len(tasks, 2)
	for _, task := range tasks {
		suite.Equal(models.TaskStatusInProgress, task.Status)
		suite.Equal(models.TaskStatePendingReview, task.State)
		suite.Equal("high", task.Priority)
		suite.Equal(float64(25), task.TargetSales)
		suite.True(task.TargetDate.IsNull())
	}
}

func (suite *TaskServiceTestSuite) TestCreatePlanTasks_RecordsCoveredClients() {
	suite.seedCatalog()

	_, err := suite.service.CreatePlanTasks(suite.ctx, suite.baghdadPlan())
	suite.Require().NoError(err)

	plans, err := suite.catalog.ListPlans(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(plans, 1)
	suite.Equal(datatypes.JSONSlice[string]{"c1"}, plans[0].ClientsIDs)
}

func (suite *TaskServiceTestSuite) TestCreatePlanTasks_UniqueTuples() {
	suite.seedCatalog()
	plan := suite.baghdadPlan()

	for i := 0; i < 3; i++ {
		_, err := suite.service.CreatePlanTasks(suite.ctx, plan)
		suite.Require().NoError(err)
	}

	type tuple struct {
		PlanID, ClientID, ProductID, DoctorName, MarketingTaskID string
		N                                                        int64
	}
	var duplicates []tuple
	suite.Require().NoError(suite.db.Model(&models.Task{}).
		Select("plan_id, client_id, product_id, doctor_name, marketing_task_id, COUNT(*) AS n").
		Group("plan_id, client_id, product_id, doctor_name, marketing_task_id").
		Having("COUNT(*) > 1").
		Scan(&duplicates).Error)
	suite.Empty(duplicates)
}

func (suite *TaskServiceTestSuite) TestCreatePlanTasks_MissingProductIsNotFatal() {
	suite.seedCatalog()
	plan := suite.baghdadPlan()
	plan.TargetProductsSales = append(plan.TargetProductsSales, models.ProductTarget{ProductID: "ghost"})

	result, err := suite.service.CreatePlanTasks(suite.ctx, plan)

	suite.Require().NoError(err)
	suite.Equal(2, result.TasksCreated)
	suite.Equal([]string{"product ghost not found"}, result.Errors)
}

func (suite *TaskServiceTestSuite) TestCreatePlanTasks_Validation() {
	tests := []struct {
		field  string
		mutate func(*models.Plan)
	}{
		{"id", func(p *models.Plan) { p.ID = "" }},
		{"targetProductsSales", func(p *models.Plan) { p.TargetProductsSales = nil }},
		{"departmentsIds", func(p *models.Plan) { p.DepartmentsIDs = nil }},
		{"cities", func(p *models.Plan) { p.Cities = datatypes.JSONSlice[string]{} }},
	}

	for _, tt := range tests {
		plan := suite.baghdadPlan()
		tt.mutate(plan)

		_, err := suite.service.CreatePlanTasks(suite.ctx, plan)

		var validationErr *ValidationError
		suite.Require().True(errors.As(err, &validationErr), tt.field)
		suite.Equal(tt.field, validationErr.Field)
	}

	_, err := suite.service.CreatePlanTasks(suite.ctx, nil)
	suite.ErrorIs(err, ErrPlanRequired)

	plans, err := suite.catalog.ListPlans(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(plans)
}

func (suite *TaskServiceTestSuite) TestCreateTasksForNewClient_PendingClient() {
	suite.seedCatalog()
	_, err := suite.service.CreatePlanTasks(suite.ctx, suite.baghdadPlan())
	suite.Require().NoError(err)

	result, err := suite.service.CreateTasksForNewClient(suite.ctx, &models.Client{
		ID:         "c2",
		City:       "Baghdad",
		Department: "d1",
		State:      models.ClientStatePending,
		AdditionalInfo: datatypes.NewJSONType(models.ClientInfo{Doctors: []models.Doctor{
			{Name: "Dr. C", IsInfluencer: true},
		}}),
	})

	suite.Require().NoError(err)
	suite.Equal(0, result.TasksCreated)
	suite.Equal(matching.ReasonNotApproved, result.Reason)
	suite.Equal("client is not approved", result.Message)
	suite.Equal(1, result.InfluencerDoctorsCount)
}

func (suite *TaskServiceTestSuite) TestCreateTasksForNewClient_NoDoctorsAndNoPlans() {
	suite.seedCatalog()
	_, err := suite.service.CreatePlanTasks(suite.ctx, suite.baghdadPlan())
	suite.Require().NoError(err)

	noDoctors, err := suite.service.CreateTasksForNewClient(suite.ctx, &models.Client{
		ID: "c2", City: "Baghdad", Department: "d1", State: models.ClientStateApproved,
	})
	suite.Require().NoError(err)
	suite.Equal("client has no influencer doctors", noDoctors.Message)

	noPlans, err := suite.service.CreateTasksForNewClient(suite.ctx, &models.Client{
		ID: "c3", City: "Erbil", Department: "d1", State: models.ClientStateApproved,
		AdditionalInfo: datatypes.NewJSONType(models.ClientInfo{Doctors: []models.Doctor{{Name: "Dr. D", IsInfluencer: true}}}),
	})
	suite.Require().NoError(err)
	suite.Equal("no matching plans for client", noPlans.Message)
	suite.Equal(0, noPlans.TasksCreated)
	suite.NotEqual(noDoctors.Message, noPlans.Message)
}

func (suite *TaskServiceTestSuite) TestCreateTasksForNewClient_ExpandsStoredPlans() {
	suite.seedCatalog()
	_, err := suite.service.CreatePlanTasks(suite.ctx, suite.baghdadPlan())
	suite.Require().NoError(err)

	newcomer := &models.Client{
		ID:           "c2",
		City:         "Baghdad",
		Department:   "d1",
		State:        models.ClientStateApproved,
		AssignedToID: "rep-9",
		AdditionalInfo: datatypes.NewJSONType(models.ClientInfo{Doctors: []models.Doctor{
			{Name: "Dr. C", IsInfluencer: true},
			{Name: "Dr. D", IsInfluencer: false},
		}}),
	}

	result, err := suite.service.CreateTasksForNewClient(suite.ctx, newcomer)
	suite.Require().NoError(err)
	suite.Equal(1, result.TasksCreated)
	suite.Equal(1, result.MatchingPlans)
	suite.Equal(1, result.InfluencerDoctorsCount)
	suite.Equal([]PlanProcessed{{PlanID: "plan-1", TasksCreated: 1, ProductsProcessed: 1}}, result.PlansProcessed)

	tasks, err := suite.tasks.ListByAssignee(suite.ctx, "rep-9")
	suite.Require().NoError(err)
	suite.Len(tasks, 1)

	again, err := suite.service.CreateTasksForNewClient(suite.ctx, newcomer)
	suite.Require().NoError(err)
	suite.Equal(matching.ReasonNoMatchingPlans, again.Reason)
	suite.Equal(int64(3), suite.countTasks())
}

func (suite *TaskServiceTestSuite) TestCreateTasksForNewClient_RequiresID() {
	_, err := suite.service.CreateTasksForNewClient(suite.ctx, &models.Client{})
	var validationErr *ValidationError
	suite.Require().True(errors.As(err, &validationErr))
	suite.Equal("id", validationErr.Field)

	_, err = suite.service.CreateTasksForNewClient(suite.ctx, nil)
	suite.ErrorIs(err, ErrClientRequired)
}

func (suite *TaskServiceTestSuite) TestTaskStats() {
	for id, raw := range map[string]string{
		"t1": `"2025-12-30"`,
		"t2": `1767052800000`,
		"t3": `"Dec 30, 2025"`,
		"t4": `"2025-12-29T10:00:00Z"`,
		"t5": `"someday"`,
		"t6": ``,
	} {
		task := &models.Task{ID: id, ClientID: "c", ProductID: "p", MarketingTaskID: "m", Status: models.TaskStatusInProgress, State: models.TaskStatePendingReview}
		if raw != "" {
			task.TargetDate = models.RawValue(raw)
		}
		_, err := suite.tasks.CreateIfAbsent(suite.ctx, task)
		suite.Require().NoError(err)
	}

	stats, err := suite.service.TaskStats(suite.ctx)

	suite.Require().NoError(err)
	suite.Equal([]DateCount{
		{Date: dates.New(2025, time.December, 29), Count: 1},
		{Date: dates.New(2025, time.December, 30), Count: 3},
	}, stats)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

type flakyTaskRepo struct {
	repository.TaskRepository
	failFor map[string]bool
	seen    map[string]bool
	calls   int
}

func (r *flakyTaskRepo) CreateIfAbsent(ctx context.Context, task *models.Task) (bool, error) {
	r.calls++
	if _, ok := ctx.Deadline(); !ok {
		return false, errors.New("expected a deadline on every write")
	}
	if r.failFor[task.DoctorName] {
		return false, errors.New("write timed out")
	}
	if r.seen[task.ID] {
		return false, nil
	}
	r.seen[task.ID] = true
	return true, nil
}

func TestTaskCreator_ContinuesAfterFailures(t *testing.T) {
	repo := &flakyTaskRepo{failFor: map[string]bool{"Dr. B": true}, seen: map[string]bool{}}
	creator := NewTaskCreator(repo, time.Second)

	items := []matching.Item{
		{PlanID: "p", ClientID: "c1", ProductID: "x", Doctor: models.Doctor{Name: "Dr. A"}, MarketingTask: models.MarketingTask{ID: "visit"}},
		{PlanID: "p", ClientID: "c2", ProductID: "x", Doctor: models.Doctor{Name: "Dr. B"}, MarketingTask: models.MarketingTask{ID: "visit"}},
		{PlanID: "p", ClientID: "c3", ProductID: "x", Doctor: models.Doctor{Name: "Dr. C"}, MarketingTask: models.MarketingTask{ID: "visit"}},
	}

	first := creator.CreateTasks(context.Background(), items)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 0, first.Skipped)
	require.Len(t, first.Errors, 1)
	assert.Contains(t, first.Errors[0], "client c2")
	assert.True(t, first.ClientFailed("c2"))
	assert.False(t, first.ClientFailed("c1"))
	assert.Equal(t, 3, repo.calls)

	second := creator.CreateTasks(context.Background(), items)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, second.Errors, 1)
}

func TestTaskCreator_CancelledContextFailsEveryItem(t *testing.T) {
	repo := &flakyTaskRepo{seen: map[string]bool{}}
	creator := NewTaskCreator(repo, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := creator.CreateTasks(ctx, []matching.Item{{ClientID: "c1"}, {ClientID: "c2"}})

	assert.Zero(t, result.Created)
	assert.Len(t, result.Errors, 2)
	assert.Zero(t, repo.calls)
}

func TestNewTaskFromItem(t *testing.T) {
	item := matching.Item{
		PlanID:        "p",
		ClientID:      "c",
		ProductID:     "x",
		Doctor:        models.Doctor{Name: "Dr. A", Phone: "0770"},
		MarketingTask: models.MarketingTask{ID: "visit", Name: "Visit"},
		AssignedToID:  "rep",
		Priority:      "low",
		TargetSales:   7,
	}

	task := NewTaskFromItem(item)

	assert.Equal(t, item.Key(), task.ID)
	assert.Equal(t, "Visit - Dr. A", task.Title)
	assert.Equal(t, "0770", task.DoctorPhone)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.Equal(t, models.TaskStatePendingReview, task.State)
	assert.Equal(t, "rep", task.AssignedToID)
	assert.Equal(t, float64(7), task.TargetSales)
	assert.Nil(t, task.TargetDate)
}
