package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Destination is the shared meeting point of a group. It is stored as a
// JSON text column on both Group and Presence.
type Destination struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

func (d Destination) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *Destination) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return errors.New("unsupported destination column type")
	}
}

type Group struct {
	ID          uint         `gorm:"primaryKey" json:"-"`
	GroupID     string       `gorm:"uniqueIndex;not null" json:"groupId"`
	GroupName   string       `gorm:"not null" json:"groupName"`
	CreatedBy   string       `gorm:"not null" json:"createdBy"`
	IsActive    bool         `gorm:"default:true" json:"isActive"`
	Destination *Destination `gorm:"type:text" json:"destination"`
	Members     []Member     `gorm:"foreignKey:GroupID;references:GroupID" json:"members"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Member is one row of a group's roster. The roster is historical: it
// grows on join and never shrinks, unlike the hub's live connection set.
type Member struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	GroupID  string    `gorm:"not null;uniqueIndex:idx_group_member" json:"-"`
	Username string    `gorm:"not null;uniqueIndex:idx_group_member" json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

// GroupInput is used for creating groups
type GroupInput struct {
	GroupName string `json:"groupName"`
	CreatedBy string `json:"createdBy"`
}

// JoinInput is used for joining an existing group
type JoinInput struct {
	Username string `json:"username"`
}

// DestinationInput is used for setting a group destination
type DestinationInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}
