package models

import (
	"encoding/json"
	"time"
)

// Envelope wraps every message on the event channel, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names
const (
	EventJoinGroup      = "joinGroup"
	EventLocationUpdate = "locationUpdate"
	EventRouteDeviation = "routeDeviation"
	EventDelayAlert     = "delayAlert"
	EventSetDestination = "setDestination"
)

// Outbound event names
const (
	EventGroupState           = "groupState"
	EventUserJoined           = "userJoined"
	EventMemberLocationUpdate = "memberLocationUpdate"
	EventUserLeft             = "userLeft"
	EventDestinationSet       = "destinationSet"
	EventDestinationCleared   = "destinationCleared"
	EventAlert                = "alert"
)

type JoinGroupData struct {
	Username string `json:"username"`
	GroupID  string `json:"groupId"`
}

type LocationUpdateData struct {
	Username  string  `json:"username"`
	GroupID   string  `json:"groupId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	ETA       *int    `json:"eta,omitempty"`
}

type RouteDeviationData struct {
	Username string `json:"username"`
	GroupID  string `json:"groupId"`
}

type DelayAlertData struct {
	Username     string `json:"username"`
	GroupID      string `json:"groupId"`
	DelayMinutes int    `json:"delayMinutes"`
}

type SetDestinationData struct {
	GroupID   string  `json:"groupId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// GroupState is the snapshot unicast to a connection when it binds.
type GroupState struct {
	Group       *Group             `json:"group"`
	Members     []PresenceResponse `json:"members"`
	Destination *Destination       `json:"destination"`
}

type UserJoinedData struct {
	Username string `json:"username"`
	GroupID  string `json:"groupId"`
}

type MemberLocationData struct {
	Username  string    `json:"username"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	ETA       *int      `json:"eta,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type UserLeftData struct {
	Username string `json:"username"`
}

const (
	AlertRouteDeviation = "route_deviation"
	AlertDelay          = "delay"
)

type AlertData struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	Username     string `json:"username"`
	DelayMinutes *int   `json:"delayMinutes,omitempty"`
}
