package models

import (
	"time"

	"gorm.io/datatypes"
)

type ClientState string

const (
	ClientStateApproved ClientState = "approved"
	ClientStatePending  ClientState = "pending"
	ClientStateRejected ClientState = "rejected"
)

type Doctor struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	IsInfluencer bool   `json:"isInfluencer"`
}

type ClientInfo struct {
	Doctors []Doctor `json:"doctors"`
}

// Client is a pharmacy, clinic or hospital visited by field representatives.
type Client struct {
	ID             string                         `gorm:"primarykey;type:varchar(64)" json:"id"`
	Name           string                         `gorm:"type:varchar(255)" json:"name"`
	City           string                         `gorm:"type:varchar(128);index" json:"city"`
	Department     string                         `gorm:"type:varchar(64);index" json:"department"`
	State          ClientState                    `gorm:"type:varchar(32)" json:"state"`
	Priority       string                         `gorm:"type:varchar(32)" json:"priority"`
	AssignedToID   string                         `gorm:"type:varchar(64)" json:"assignedToId"`
	AdditionalInfo datatypes.JSONType[ClientInfo] `json:"additionalInfo"`
	CreatedAt      time.Time                      `json:"createdAt"`
	UpdatedAt      time.Time                      `json:"updatedAt"`
}

func (c Client) IsApproved() bool {
	return c.State == ClientStateApproved
}

// InfluencerDoctors returns the doctors flagged as marketing priorities, in stored order.
func (c Client) InfluencerDoctors() []Doctor {
	var doctors []Doctor
	for _, d := range c.AdditionalInfo.Data().Doctors {
		if d.IsInfluencer {
			doctors = append(doctors, d)
		}
	}
	return doctors
}
