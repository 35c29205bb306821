package models

import (
	"time"
)

// User is a field representative or delivery agent who receives task reminders.
type User struct {
	ID        string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Email     string    `gorm:"type:varchar(255);index" json:"email"`
	Role      string    `gorm:"type:varchar(32)" json:"role"`
	FCMToken  string    `gorm:"column:fcm_token;type:varchar(512)" json:"fcmToken"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanReceivePush reports whether the user has a device token registered.
func (u User) CanReceivePush() bool {
	return u.FCMToken != ""
}
