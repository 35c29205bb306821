package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestPlan_UnmarshalLegacyTargets(t *testing.T) {
	var plan Plan
	err := json.Unmarshal([]byte(`{
		"id": "p1",
		"targetProductSales": [{"productId": "prod1", "targetSales": 40}],
		"departmentsIds": ["d1"],
		"cities": ["Baghdad"]
	}`), &plan)

	require.NoError(t, err)
	assert.Equal(t, "p1", plan.ID)
	require.Len(t, plan.TargetProductsSales, 1)
	assert.Equal(t, ProductTarget{ProductID: "prod1", TargetSales: 40}, plan.TargetProductsSales[0])
	assert.True(t, plan.HasCity("Baghdad"))
	assert.True(t, plan.HasDepartment("d1"))
	assert.False(t, plan.HasDepartment(""))
}

func TestPlan_CurrentKeyWins(t *testing.T) {
	var plan Plan
	err := json.Unmarshal([]byte(`{
		"id": "p1",
		"targetProductsSales": [{"productId": "new"}],
		"targetProductSales": [{"productId": "old"}]
	}`), &plan)

	require.NoError(t, err)
	require.Len(t, plan.TargetProductsSales, 1)
	assert.Equal(t, "new", plan.TargetProductsSales[0].ProductID)
}

func TestMarketingTask_AcceptsStringOrObject(t *testing.T) {
	var product Product
	err := json.Unmarshal([]byte(`{"id": "prod1", "marketingTasks": ["visit", {"id": "call", "name": "Phone call"}]}`), &product)

	require.NoError(t, err)
	assert.Equal(t, datatypes.JSONSlice[MarketingTask]{
		{ID: "visit", Name: "visit"},
		{ID: "call", Name: "Phone call"},
	}, product.MarketingTasks)
}

func TestClient_InfluencerDoctors(t *testing.T) {
	var client Client
	err := json.Unmarshal([]byte(`{
		"id": "c1",
		"state": "approved",
		"additionalInfo": {"doctors": [
			{"name": "Dr. A", "isInfluencer": true},
			{"name": "Dr. B", "isInfluencer": false},
			{"name": "Dr. C", "phone": "0770", "isInfluencer": true}
		]}
	}`), &client)

	require.NoError(t, err)
	assert.True(t, client.IsApproved())
	assert.Equal(t, []Doctor{
		{Name: "Dr. A", IsInfluencer: true},
		{Name: "Dr. C", Phone: "0770", IsInfluencer: true},
	}, client.InfluencerDoctors())
}

func TestBackupOperation_Transitions(t *testing.T) {
	now := time.Date(2025, 12, 30, 8, 0, 0, 0, time.UTC)
	op := BackupOperation{State: BackupStateNotStarted}

	require.NoError(t, op.Transition(BackupStateRunning, now))
	assert.False(t, op.Done())
	assert.Nil(t, op.FinishedAt)

	require.NoError(t, op.Transition(BackupStateSucceeded, now))
	assert.True(t, op.Done())
	assert.Equal(t, 100, op.Progress)
	require.NotNil(t, op.FinishedAt)

	assert.Error(t, op.Transition(BackupStateFailed, now))
	assert.Equal(t, BackupStateSucceeded, op.State)
}

func TestBackupOperation_CannotSkipRunning(t *testing.T) {
	op := BackupOperation{State: BackupStateNotStarted}

	assert.Error(t, op.Transition(BackupStateSucceeded, time.Now()))
	require.NoError(t, op.Transition(BackupStateFailed, time.Now()))
	assert.True(t, op.Done())
}
