package models

import (
	"encoding/json"
	"slices"
	"time"

	"gorm.io/datatypes"
)

// ProductTarget is a product referenced by a plan together with its sales goal.
type ProductTarget struct {
	ProductID   string  `json:"productId"`
	TargetSales float64 `json:"targetSales"`
}

// Plan is a sales campaign targeting a set of cities, departments and products.
type Plan struct {
	ID                  string                             `gorm:"primarykey;type:varchar(64)" json:"id"`
	Name                string                             `gorm:"type:varchar(255)" json:"name"`
	TargetProductsSales datatypes.JSONSlice[ProductTarget] `json:"targetProductsSales"`
	DepartmentsIDs      datatypes.JSONSlice[string]        `json:"departmentsIds"`
	Cities              datatypes.JSONSlice[string]        `json:"cities"`
	// ClientsIDs lists clients that a task-creation pass has already fully covered.
	ClientsIDs  datatypes.JSONSlice[string] `json:"clientsIds"`
	SalesRepIDs datatypes.JSONSlice[string] `json:"salesRepIds"`
	DeliveryID  string                      `gorm:"type:varchar(64)" json:"deliveryId"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// UnmarshalJSON also accepts the older "targetProductSales" key.
func (p *Plan) UnmarshalJSON(data []byte) error {
	type plan Plan
	aux := struct {
		*plan
		LegacyTargets []ProductTarget `json:"targetProductSales"`
	}{plan: (*plan)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(p.TargetProductsSales) == 0 && len(aux.LegacyTargets) > 0 {
		p.TargetProductsSales = aux.LegacyTargets
	}
	return nil
}

func (p Plan) HasCity(city string) bool {
	return city != "" && slices.Contains(p.Cities, city)
}

func (p Plan) HasDepartment(department string) bool {
	return department != "" && slices.Contains(p.DepartmentsIDs, department)
}

func (p Plan) CoversClient(clientID string) bool {
	return slices.Contains(p.ClientsIDs, clientID)
}
