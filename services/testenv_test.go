package services

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meetpoint/database"
	"meetpoint/models"
)

// env wires the full service graph against a temp sqlite file, the same
// shape main builds.
type env struct {
	db           *gorm.DB
	locks        *GroupLocks
	activity     *ActivityLog
	registry     *Registry
	presences    *PresenceStore
	hub          *Hub
	destinations *Destinations
	sessions     *SessionManager
}

func newEnv(t *testing.T) *env {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "meetpoint-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	db, err := database.Connect(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	locks := NewGroupLocks()
	activity := NewActivityLog(db)
	registry := NewRegistry(db, locks, activity)
	presences := NewPresenceStore(db)
	hub := NewHub()
	destinations := NewDestinations(db, registry, hub, locks, activity)
	sessions := NewSessionManager(registry, presences, destinations, hub, activity, locks)

	return &env{
		db:           db,
		locks:        locks,
		activity:     activity,
		registry:     registry,
		presences:    presences,
		hub:          hub,
		destinations: destinations,
		sessions:     sessions,
	}
}

// connect opens a fresh unbound connection backed by a recording writer.
func (e *env) connect() (*Client, *recWriter) {
	w := &recWriter{}
	client := NewClient(uuid.NewString(), w)
	e.sessions.Open(client)
	return client, w
}

// backdate rewrites a presence's liveness timestamp so sweeper and
// staleness checks can be exercised without waiting.
func backdate(t *testing.T, e *env, username, groupID string, by time.Duration) {
	t.Helper()
	result := e.db.Model(&models.Presence{}).
		Where("username = ? AND group_id = ?", username, groupID).
		Update("last_seen_at", time.Now().Add(-by))
	if result.Error != nil {
		t.Fatalf("backdate failed: %v", result.Error)
	}
}

// recorded is one event delivered to a recWriter.
type recorded struct {
	Event string
	Data  interface{}
}

// recWriter records every event instead of writing to a socket.
type recWriter struct {
	mu     sync.Mutex
	events []recorded
}

func (w *recWriter) WriteEvent(event string, data interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, recorded{Event: event, Data: data})
	return nil
}

func (w *recWriter) count(event string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, e := range w.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (w *recWriter) last(event string) (recorded, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.events) - 1; i >= 0; i-- {
		if w.events[i].Event == event {
			return w.events[i], true
		}
	}
	return recorded{}, false
}
