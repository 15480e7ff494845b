package services

import (
	"testing"
	"time"

	"meetpoint/models"
)

func TestSweepForcesDisconnectExactlyOnce(t *testing.T) {
	e := newEnv(t)
	sweeper := NewSweeper(e.presences, e.sessions, time.Minute, time.Hour)

	group, _ := e.registry.CreateGroup("Trip", "alice")
	aliceConn, aliceW := e.connect()
	bobConn, _ := e.connect()
	if err := e.sessions.Join(aliceConn.ID, "alice", group.GroupID); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := e.sessions.Join(bobConn.ID, "bob", group.GroupID); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	// Bob's transport died without a close signal.
	backdate(t, e, "bob", group.GroupID, 2*time.Minute)

	sweeper.sweep()

	online, _ := e.presences.ListOnline(group.GroupID)
	if len(online) != 1 || online[0].Username != "alice" {
		t.Errorf("expected bob swept offline, got %+v", online)
	}
	if got := aliceW.count(models.EventUserLeft); got != 1 {
		t.Errorf("expected one userLeft from the sweep, got %d", got)
	}

	// A late close signal from the dead transport stays a no-op, and so
	// does the next sweep.
	e.sessions.Disconnect(bobConn.ID)
	sweeper.sweep()
	if got := aliceW.count(models.EventUserLeft); got != 1 {
		t.Errorf("sweep must not double-report, got %d userLeft", got)
	}
}

func TestSweepIgnoresFreshPresences(t *testing.T) {
	e := newEnv(t)
	sweeper := NewSweeper(e.presences, e.sessions, time.Minute, time.Hour)

	group, _ := e.registry.CreateGroup("Trip", "alice")
	conn, _ := e.connect()
	if err := e.sessions.Join(conn.ID, "alice", group.GroupID); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	sweeper.sweep()

	online, _ := e.presences.ListOnline(group.GroupID)
	if len(online) != 1 {
		t.Errorf("fresh presence must survive the sweep, got %+v", online)
	}
}
