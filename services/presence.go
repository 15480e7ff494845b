package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"meetpoint/models"
)

// PresenceStore owns per-(username, group) presence records. Location
// and ETA writes are last-write-wins: the timestamp is assigned here at
// receipt time, never trusted from the client, and the latest received
// update always overwrites.
type PresenceStore struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewPresenceStore(db *gorm.DB) *PresenceStore {
	return &PresenceStore{db: db, log: slog.Default()}
}

// Upsert resolves or creates the presence for (username, groupID) and
// binds it to connID. An existing record is marked online and its
// connection reference replaced - a reconnect under the same identity
// silently displaces the previous connection.
func (s *PresenceStore) Upsert(username, groupID, connID string) (*models.Presence, error) {
	if username == "" || groupID == "" {
		return nil, fmt.Errorf("%w: username and groupId are required", ErrValidation)
	}

	now := time.Now()

	var presence models.Presence
	result := s.db.Where("username = ? AND group_id = ?", username, groupID).First(&presence)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, storeErr("find presence", result.Error)
		}
		presence = models.Presence{
			Username:   username,
			GroupID:    groupID,
			IsOnline:   true,
			ConnID:     connID,
			LastSeenAt: now,
		}
		if result := s.db.Create(&presence); result.Error != nil {
			return nil, storeErr("create presence", result.Error)
		}
		return &presence, nil
	}

	presence.IsOnline = true
	presence.ConnID = connID
	presence.LastSeenAt = now
	if result := s.db.Save(&presence); result.Error != nil {
		return nil, storeErr("save presence", result.Error)
	}
	return &presence, nil
}

// UpdateLocation overwrites the last known position. The presence must
// already exist - clients join before they send locations.
func (s *PresenceStore) UpdateLocation(username, groupID string, lat, lng float64, eta *int) (*models.Presence, error) {
	var presence models.Presence
	result := s.db.Where("username = ? AND group_id = ?", username, groupID).First(&presence)
	if result.Error != nil {
		return nil, storeErr("find presence", result.Error)
	}

	now := time.Now()
	presence.Latitude = &lat
	presence.Longitude = &lng
	presence.LocationAt = &now
	presence.LastSeenAt = now
	if eta != nil {
		presence.ETA = eta
	}

	if result := s.db.Save(&presence); result.Error != nil {
		return nil, storeErr("save presence", result.Error)
	}
	return &presence, nil
}

// MarkDeviated flags the presence as off its route.
func (s *PresenceStore) MarkDeviated(username, groupID string) (*models.Presence, error) {
	var presence models.Presence
	result := s.db.Where("username = ? AND group_id = ?", username, groupID).First(&presence)
	if result.Error != nil {
		return nil, storeErr("find presence", result.Error)
	}

	presence.RouteDeviated = true
	presence.LastSeenAt = time.Now()
	if result := s.db.Save(&presence); result.Error != nil {
		return nil, storeErr("save presence", result.Error)
	}
	return &presence, nil
}

// SetOffline marks offline whichever presence currently owns connID and
// clears the binding. A disconnect whose reference owns nothing (for
// example a connection displaced by a reconnect) returns nil, nil.
func (s *PresenceStore) SetOffline(connID string) (*models.Presence, error) {
	if connID == "" {
		return nil, nil
	}

	var presence models.Presence
	result := s.db.Where("conn_id = ?", connID).First(&presence)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr("find presence", result.Error)
	}

	presence.IsOnline = false
	presence.ConnID = ""
	if result := s.db.Save(&presence); result.Error != nil {
		return nil, storeErr("save presence", result.Error)
	}
	return &presence, nil
}

// ForceOffline marks the identified presence offline regardless of which
// connection owns it. Sweeper repair path only.
func (s *PresenceStore) ForceOffline(username, groupID string) error {
	result := s.db.Model(&models.Presence{}).
		Where("username = ? AND group_id = ?", username, groupID).
		Updates(map[string]interface{}{"is_online": false, "conn_id": ""})
	if result.Error != nil {
		return storeErr("force offline", result.Error)
	}
	return nil
}

// Touch refreshes the liveness timestamp of the presence owning connID.
func (s *PresenceStore) Touch(connID string) {
	if connID == "" {
		return
	}
	result := s.db.Model(&models.Presence{}).Where("conn_id = ?", connID).Update("last_seen_at", time.Now())
	if result.Error != nil {
		s.log.Warn("presence touch failed", "connId", connID, "error", result.Error)
	}
}

// ListOnline returns every online presence in the group.
func (s *PresenceStore) ListOnline(groupID string) ([]models.Presence, error) {
	var presences []models.Presence
	result := s.db.Where("group_id = ? AND is_online = ?", groupID, true).Order("username").Find(&presences)
	if result.Error != nil {
		return nil, storeErr("list presences", result.Error)
	}
	return presences, nil
}

// ListStale returns online presences that have not been heard from
// within ttl. Used by the sweeper to reap silently dead connections.
func (s *PresenceStore) ListStale(ttl time.Duration) ([]models.Presence, error) {
	cutoff := time.Now().Add(-ttl)
	var presences []models.Presence
	result := s.db.Where("is_online = ? AND last_seen_at < ?", true, cutoff).Find(&presences)
	if result.Error != nil {
		return nil, storeErr("list stale presences", result.Error)
	}
	return presences, nil
}
