package models

import (
	"time"
)

// Presence is a participant's live state within one group. The
// (username, group_id) pair is the identity; the same username may exist
// in any number of groups. ConnID is the opaque reference of the
// websocket connection that currently owns this record — set iff the
// participant is online.
type Presence struct {
	ID            uint         `gorm:"primaryKey" json:"-"`
	Username      string       `gorm:"not null;uniqueIndex:idx_presence_identity" json:"username"`
	GroupID       string       `gorm:"not null;uniqueIndex:idx_presence_identity" json:"groupId"`
	Latitude      *float64     `json:"-"`
	Longitude     *float64     `json:"-"`
	LocationAt    *time.Time   `json:"-"`
	Destination   *Destination `gorm:"type:text" json:"destination"`
	ETA           *int         `json:"eta"`
	IsOnline      bool         `gorm:"default:false" json:"isOnline"`
	RouteDeviated bool         `gorm:"default:false" json:"routeDeviated"`
	ConnID        string       `gorm:"index" json:"-"`
	LastSeenAt    time.Time    `json:"-"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Location is the nested currentLocation shape clients consume.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceResponse is the wire format for a presence record.
type PresenceResponse struct {
	Username        string       `json:"username"`
	GroupID         string       `json:"groupId"`
	CurrentLocation *Location    `json:"currentLocation"`
	Destination     *Destination `json:"destination"`
	ETA             *int         `json:"eta"`
	IsOnline        bool         `json:"isOnline"`
	RouteDeviated   bool         `json:"routeDeviated"`
}

func (p *Presence) ToResponse() PresenceResponse {
	resp := PresenceResponse{
		Username:      p.Username,
		GroupID:       p.GroupID,
		Destination:   p.Destination,
		ETA:           p.ETA,
		IsOnline:      p.IsOnline,
		RouteDeviated: p.RouteDeviated,
	}
	if p.Latitude != nil && p.Longitude != nil {
		loc := Location{Latitude: *p.Latitude, Longitude: *p.Longitude}
		if p.LocationAt != nil {
			loc.Timestamp = *p.LocationAt
		}
		resp.CurrentLocation = &loc
	}
	return resp
}

// HasLocation reports whether the presence carries a last known position.
func (p *Presence) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}
