package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"gorm.io/datatypes"
)

// MarketingTask is a recurring piece of promotional work attached to a product.
type MarketingTask struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts either {"id": ..., "name": ...} or a bare string id.
func (m *MarketingTask) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*m = MarketingTask{ID: id, Name: id}
		return nil
	}

	type marketingTask MarketingTask
	return json.Unmarshal(data, (*marketingTask)(m))
}

type Product struct {
	ID             string                             `gorm:"primarykey;type:varchar(64)" json:"id"`
	Name           string                             `gorm:"type:varchar(255)" json:"name"`
	DepartmentsIDs datatypes.JSONSlice[string]        `json:"departmentsIds"`
	MarketingTasks datatypes.JSONSlice[MarketingTask] `json:"marketingTasks"`
	CreatedAt      time.Time                          `json:"createdAt"`
	UpdatedAt      time.Time                          `json:"updatedAt"`
}

func (p Product) ServesDepartment(department string) bool {
	return department != "" && slices.Contains(p.DepartmentsIDs, department)
}
