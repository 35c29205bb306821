package matching

import (
	"testing"

	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func baghdadPlan() models.Plan {
	return models.Plan{
		ID:                  "plan-1",
		TargetProductsSales: datatypes.JSONSlice[models.ProductTarget]{{ProductID: "prod-1", TargetSales: 50}},
		DepartmentsIDs:      datatypes.JSONSlice[string]{"d1"},
		Cities:              datatypes.JSONSlice[string]{"Baghdad"},
		SalesRepIDs:         datatypes.JSONSlice[string]{"rep-1", "rep-2"},
		DeliveryID:          "delivery-1",
	}
}

func client(id, city, department string, state models.ClientState, doctors ...models.Doctor) models.Client {
	return models.Client{
		ID:             id,
		City:           city,
		Department:     department,
		State:          state,
		Priority:       "high",
		AdditionalInfo: datatypes.NewJSONType(models.ClientInfo{Doctors: doctors}),
	}
}

func influencer(name string) models.Doctor {
	return models.Doctor{Name: name, IsInfluencer: true}
}

func product(id string, departments []string, tasks ...models.MarketingTask) models.Product {
	return models.Product{
		ID:             id,
		DepartmentsIDs: departments,
		MarketingTasks: tasks,
	}
}

func TestMatchPlan_BaghdadScenario(t *testing.T) {
	clients := []models.Client{
		client("c1", "Baghdad", "d1", models.ClientStateApproved, influencer("Dr. A"), influencer("Dr. B"), models.Doctor{Name: "Dr. C"}),
	}
	products := []models.Product{product("prod-1", []string{"d1"}, models.MarketingTask{ID: "visit", Name: "Visit"})}

	match := MatchPlan(baghdadPlan(), clients, products)

	require.Len(t, match.Items, 2)
	assert.Equal(t, []string{"c1"}, match.Clients)
	assert.Equal(t, 1, match.ProductsProcessed)
	assert.Empty(t, match.MissingProducts)

	assert.Equal(t, "Dr. A", match.Items[0].Doctor.Name)
	assert.Equal(t, "Dr. B", match.Items[1].Doctor.Name)
	for _, item := range match.Items {
		assert.Equal(t, "plan-1", item.PlanID)
		assert.Equal(t, "prod-1", item.ProductID)
		assert.Equal(t, "rep-1", item.AssignedToID)
		assert.Equal(t, "high", item.Priority)
		assert.Equal(t, float64(50), item.TargetSales)
	}
	assert.NotEqual(t, match.Items[0].Key(), match.Items[1].Key())
}

func TestMatchPlan_FiltersClients(t *testing.T) {
	plan := baghdadPlan()
	plan.ClientsIDs = datatypes.JSONSlice[string]{"covered"}
	doctor := influencer("Dr. A")

	clients := []models.Client{
		client("wrong-city", "Basra", "d1", models.ClientStateApproved, doctor),
		client("wrong-dept", "Baghdad", "d2", models.ClientStateApproved, doctor),
		client("pending", "Baghdad", "d1", models.ClientStatePending, doctor),
		client("covered", "Baghdad", "d1", models.ClientStateApproved, doctor),
		client("ok", "Baghdad", "d1", models.ClientStateApproved, doctor),
	}
	products := []models.Product{product("prod-1", []string{"d1"}, models.MarketingTask{ID: "visit"})}

	match := MatchPlan(plan, clients, products)

	assert.Equal(t, []string{"ok"}, match.Clients)
	require.Len(t, match.Items, 1)
	assert.Equal(t, "ok", match.Items[0].ClientID)
}

func TestMatchPlan_ProductEligibilityAndMissing(t *testing.T) {
	plan := baghdadPlan()
	plan.TargetProductsSales = datatypes.JSONSlice[models.ProductTarget]{
		{ProductID: "prod-2"},
		{ProductID: "ghost"},
		{ProductID: "prod-1", TargetSales: 10},
		{ProductID: "prod-1", TargetSales: 99},
		{ProductID: "other-dept"},
	}
	products := []models.Product{
		product("prod-1", []string{"d1"}, models.MarketingTask{ID: "visit"}, models.MarketingTask{ID: "call"}),
		product("prod-2", []string{"d1", "d3"}, models.MarketingTask{ID: "sample"}),
		product("other-dept", []string{"d9"}, models.MarketingTask{ID: "visit"}),
		product("unreferenced", []string{"d1"}, models.MarketingTask{ID: "visit"}),
	}
	clients := []models.Client{client("c1", "Baghdad", "d1", models.ClientStateApproved, influencer("Dr. A"))}

	match := MatchPlan(plan, clients, products)

	assert.Equal(t, []string{"ghost"}, match.MissingProducts)
	assert.Equal(t, 2, match.ProductsProcessed)

	var order []string
	for _, item := range match.Items {
		order = append(order, item.ProductID+"/"+item.MarketingTask.ID)
	}
	assert.Equal(t, []string{"prod-2/sample", "prod-1/visit", "prod-1/call"}, order)
	assert.Equal(t, float64(10), match.Items[1].TargetSales)
}

func TestMatchPlan_EligibleClientWithoutProducts(t *testing.T) {
	plan := baghdadPlan()
	plan.TargetProductsSales = nil
	clients := []models.Client{client("c1", "Baghdad", "d1", models.ClientStateApproved, influencer("Dr. A"))}

	match := MatchPlan(plan, clients, nil)

	assert.Equal(t, []string{"c1"}, match.Clients)
	assert.Empty(t, match.Items)
	assert.Zero(t, match.ProductsProcessed)
}

func TestMatchClient_Reasons(t *testing.T) {
	plans := []models.Plan{baghdadPlan()}
	products := []models.Product{product("prod-1", []string{"d1"}, models.MarketingTask{ID: "visit"})}

	pending := MatchClient(client("c1", "Baghdad", "d1", models.ClientStatePending), plans, products)
	assert.Equal(t, ReasonNotApproved, pending.Reason)
	assert.Equal(t, "client is not approved", pending.Reason.Message())

	noDoctors := MatchClient(client("c1", "Baghdad", "d1", models.ClientStateApproved, models.Doctor{Name: "Dr. X"}), plans, products)
	assert.Equal(t, ReasonNoInfluencerDoctors, noDoctors.Reason)
	assert.Equal(t, "client has no influencer doctors", noDoctors.Reason.Message())

	elsewhere := MatchClient(client("c1", "Mosul", "d1", models.ClientStateApproved, influencer("Dr. A")), plans, products)
	assert.Equal(t, ReasonNoMatchingPlans, elsewhere.Reason)
	assert.Equal(t, "no matching plans for client", elsewhere.Reason.Message())
	assert.Equal(t, 1, elsewhere.InfluencerDoctors)
}

func TestMatchClient_ExpandsEveryMatchingPlan(t *testing.T) {
	second := baghdadPlan()
	second.ID = "plan-2"
	second.SalesRepIDs = nil
	covered := baghdadPlan()
	covered.ID = "plan-3"
	covered.ClientsIDs = datatypes.JSONSlice[string]{"c1"}

	products := []models.Product{product("prod-1", []string{"d1"}, models.MarketingTask{ID: "visit"})}
	c := client("c1", "Baghdad", "d1", models.ClientStateApproved, influencer("Dr. A"), influencer("Dr. B"))

	match := MatchClient(c, []models.Plan{baghdadPlan(), second, covered}, products)

	assert.Equal(t, ReasonNone, match.Reason)
	assert.Equal(t, 2, match.InfluencerDoctors)
	require.Len(t, match.Plans, 2)
	assert.Equal(t, "plan-1", match.Plans[0].Plan.ID)
	assert.Equal(t, "plan-2", match.Plans[1].Plan.ID)
	assert.Equal(t, 1, match.Plans[0].ProductsProcessed)
	assert.Len(t, match.Items(), 4)
	assert.Equal(t, "delivery-1", match.Plans[1].Items[0].AssignedToID)
}

func TestAssigneeFor(t *testing.T) {
	plan := baghdadPlan()
	c := client("c1", "Baghdad", "d1", models.ClientStateApproved)

	assert.Equal(t, "rep-1", AssigneeFor(plan, c))

	c.AssignedToID = "own-rep"
	assert.Equal(t, "own-rep", AssigneeFor(plan, c))

	c.AssignedToID = ""
	plan.SalesRepIDs = nil
	assert.Equal(t, "delivery-1", AssigneeFor(plan, c))
}

func TestItem_KeyAndTitle(t *testing.T) {
	item := Item{
		PlanID:        "plan-1",
		ClientID:      "c1",
		ProductID:     "prod-1",
		Doctor:        influencer("Dr. A"),
		MarketingTask: models.MarketingTask{ID: "visit", Name: "Visit"},
	}

	assert.Len(t, item.Key(), 64)
	assert.Equal(t, item.Key(), item.Key())
	assert.Equal(t, "Visit - Dr. A", item.Title())

	reassigned := item
	reassigned.AssignedToID = "someone-else"
	assert.Equal(t, item.Key(), reassigned.Key())

	otherTask := item
	otherTask.MarketingTask = models.MarketingTask{ID: "call"}
	assert.NotEqual(t, item.Key(), otherTask.Key())
	assert.Equal(t, "call - Dr. A", otherTask.Title())

	// Fields are separated so that shifting characters between them changes the key.
	shifted := item
	shifted.PlanID, shifted.ClientID = "plan-1c", "1"
	assert.NotEqual(t, item.Key(), shifted.Key())
}
