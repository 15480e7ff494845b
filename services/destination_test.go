package services

import (
	"errors"
	"testing"

	"meetpoint/models"
)

func TestSetDestinationBroadcastsToAllBound(t *testing.T) {
	e := newEnv(t)

	group, _ := e.registry.CreateGroup("Trip", "alice")
	aliceConn, aliceW := e.connect()
	bobConn, bobW := e.connect()
	if err := e.sessions.Join(aliceConn.ID, "alice", group.GroupID); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := e.sessions.Join(bobConn.ID, "bob", group.GroupID); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	updated, err := e.destinations.Set(group.GroupID, 51.51, -0.1, "X")
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if updated.Destination == nil || updated.Destination.Address != "X" {
		t.Errorf("destination not stored: %+v", updated.Destination)
	}

	// destinationSet goes to everyone, originator included - the UI
	// redraw is idempotent.
	for name, w := range map[string]*recWriter{"alice": aliceW, "bob": bobW} {
		rec, ok := w.last(models.EventDestinationSet)
		if !ok {
			t.Fatalf("%s did not receive destinationSet", name)
		}
		dest := rec.Data.(models.Destination)
		if dest.Latitude != 51.51 || dest.Longitude != -0.1 || dest.Address != "X" {
			t.Errorf("%s received wrong payload: %+v", name, dest)
		}
	}
}

func TestSetDestinationOverwrites(t *testing.T) {
	e := newEnv(t)

	group, _ := e.registry.CreateGroup("Trip", "alice")
	if _, err := e.destinations.Set(group.GroupID, 1, 2, "first"); err != nil {
		t.Fatalf("first Set failed: %v", err)
	}
	if _, err := e.destinations.Set(group.GroupID, 3, 4, "second"); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	found, err := e.registry.FindGroup(group.GroupID)
	if err != nil {
		t.Fatalf("FindGroup failed: %v", err)
	}
	if found.Destination == nil || found.Destination.Address != "second" {
		t.Errorf("expected unconditional overwrite, got %+v", found.Destination)
	}
}

func TestClearDestinationInvalidatesPresenceCaches(t *testing.T) {
	e := newEnv(t)

	group, _ := e.registry.CreateGroup("Trip", "alice")
	aliceConn, aliceW := e.connect()
	if err := e.sessions.Join(aliceConn.ID, "alice", group.GroupID); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := e.destinations.Set(group.GroupID, 51.51, -0.1, "X"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Simulate a client-side cache persisted on the presence.
	dest := models.Destination{Latitude: 51.51, Longitude: -0.1, Address: "X"}
	result := e.db.Model(&models.Presence{}).
		Where("username = ? AND group_id = ?", "alice", group.GroupID).
		Update("destination", dest)
	if result.Error != nil {
		t.Fatalf("seeding cached destination failed: %v", result.Error)
	}

	cleared, err := e.destinations.Clear(group.GroupID)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cleared.Destination != nil {
		t.Errorf("group destination must be gone, got %+v", cleared.Destination)
	}

	online, err := e.presences.ListOnline(group.GroupID)
	if err != nil {
		t.Fatalf("ListOnline failed: %v", err)
	}
	for _, p := range online {
		if p.Destination != nil {
			t.Errorf("cached destination must not survive a clear: %+v", p)
		}
	}

	if aliceW.count(models.EventDestinationCleared) != 1 {
		t.Error("alice did not receive destinationCleared")
	}
}

func TestDestinationMissingGroup(t *testing.T) {
	e := newEnv(t)

	if _, err := e.destinations.Set("GRP-nope", 1, 2, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Set: expected ErrNotFound, got %v", err)
	}
	if _, err := e.destinations.Clear("GRP-nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Clear: expected ErrNotFound, got %v", err)
	}
}
