package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusInProgress TaskStatus = "in_progress"
)

type TaskState string

const (
	TaskStatePendingReview TaskState = "pending_review"
)

// Task is one unit of field work for a (plan, client, product, doctor, marketing task) combination.
// ID is derived from that combination, so inserting the same work twice collides on the primary key.
type Task struct {
	ID                string     `gorm:"primarykey;type:varchar(64)" json:"id"`
	PlanID            string     `gorm:"type:varchar(64);index" json:"planId"`
	ClientID          string     `gorm:"type:varchar(64);not null;index" json:"clientId"`
	ProductID         string     `gorm:"type:varchar(64);not null" json:"productId"`
	DoctorName        string     `gorm:"type:varchar(255)" json:"doctorName"`
	DoctorPhone       string     `gorm:"type:varchar(64)" json:"doctorPhone"`
	MarketingTaskID   string     `gorm:"type:varchar(64);not null" json:"marketingTaskId"`
	MarketingTaskName string     `gorm:"type:varchar(255)" json:"marketingTaskName"`
	Title             string     `gorm:"type:varchar(512)" json:"title"`
	AssignedToID      string     `gorm:"type:varchar(64);index" json:"assignedToId"`
	Status            TaskStatus `gorm:"type:varchar(32);not null" json:"status"`
	State             TaskState  `gorm:"type:varchar(32);not null" json:"state"`
	Priority          string     `gorm:"type:varchar(32)" json:"priority"`
	TargetSales       float64    `json:"targetSales"`
	// TargetDate keeps whatever the mobile client stored: ISO string, epoch number, locale string.
	TargetDate RawValue  `gorm:"type:text" json:"targetDate"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
