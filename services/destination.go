package services

import (
	"log/slog"

	"gorm.io/gorm"

	"meetpoint/models"
)

// Destinations owns each group's shared destination. The group record is
// authoritative; the copy on a presence is only a client-side cache, so
// clearing the group destination also invalidates every cached copy.
// Both mutation paths (control plane and event channel) land here, so
// set/clear serialize on the same per-group lock as every other mutation
// and every bound connection hears about the change.
type Destinations struct {
	db       *gorm.DB
	registry *Registry
	hub      *Hub
	locks    *GroupLocks
	activity *ActivityLog
	log      *slog.Logger
}

func NewDestinations(db *gorm.DB, registry *Registry, hub *Hub, locks *GroupLocks, activity *ActivityLog) *Destinations {
	return &Destinations{
		db:       db,
		registry: registry,
		hub:      hub,
		locks:    locks,
		activity: activity,
		log:      slog.Default(),
	}
}

// Set overwrites the group destination unconditionally and fans the new
// value out to every bound connection.
func (d *Destinations) Set(groupID string, lat, lng float64, address string) (*models.Group, error) {
	dest := models.Destination{Latitude: lat, Longitude: lng, Address: address}

	group, err := d.apply(groupID, func() error {
		result := d.db.Model(&models.Group{}).Where("group_id = ?", groupID).Update("destination", dest)
		return result.Error
	})
	if err != nil {
		return nil, err
	}
	group.Destination = &dest

	d.activity.Record(groupID, "", models.ActivityDestinationSet, address)
	d.hub.Broadcast(groupID, models.EventDestinationSet, dest)
	d.log.Info("destination set", "groupId", groupID, "address", address)
	return group, nil
}

// Clear removes the group destination and every presence's cached copy,
// then tells every bound connection to drop it as well.
func (d *Destinations) Clear(groupID string) (*models.Group, error) {
	group, err := d.apply(groupID, func() error {
		if result := d.db.Model(&models.Group{}).Where("group_id = ?", groupID).Update("destination", nil); result.Error != nil {
			return result.Error
		}
		result := d.db.Model(&models.Presence{}).Where("group_id = ?", groupID).Update("destination", nil)
		return result.Error
	})
	if err != nil {
		return nil, err
	}
	group.Destination = nil

	d.activity.Record(groupID, "", models.ActivityDestinationCleared, "")
	d.hub.Broadcast(groupID, models.EventDestinationCleared, nil)
	d.log.Info("destination cleared", "groupId", groupID)
	return group, nil
}

// apply runs a destination mutation under the group lock. The broadcast
// happens after the lock is released; only the mutation serializes.
func (d *Destinations) apply(groupID string, mutate func() error) (*models.Group, error) {
	d.locks.Lock(groupID)
	defer d.locks.Unlock(groupID)

	group, err := d.registry.FindGroup(groupID)
	if err != nil {
		return nil, err
	}
	if err := mutate(); err != nil {
		return nil, storeErr("update destination", err)
	}
	return group, nil
}
