package models

import (
	"time"
)

type ActivityKind string

const (
	ActivityGroupCreated       ActivityKind = "group_created"
	ActivityMemberJoined       ActivityKind = "member_joined"
	ActivityDestinationSet     ActivityKind = "destination_set"
	ActivityDestinationCleared ActivityKind = "destination_cleared"
	ActivityRouteDeviation     ActivityKind = "route_deviation"
	ActivityDelayReported      ActivityKind = "delay_reported"
)

// Activity is a persisted feed entry of notable group events.
type Activity struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	GroupID   string       `gorm:"index" json:"groupId"`
	Username  string       `json:"username"`
	Kind      ActivityKind `gorm:"index" json:"kind"`
	Details   string       `json:"details,omitempty"`
	CreatedAt time.Time    `gorm:"index" json:"created_at"`
}
