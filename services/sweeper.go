package services

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper reaps presences whose connection died without a close signal.
// The transport only tells us about clean closes, so anything online that
// has been silent longer than the TTL is forced through the normal
// disconnect transition - dedup and the userLeft broadcast come for free.
type Sweeper struct {
	presences *PresenceStore
	sessions  *SessionManager
	ttl       time.Duration
	interval  time.Duration
	log       *slog.Logger
}

func NewSweeper(presences *PresenceStore, sessions *SessionManager, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		presences: presences,
		sessions:  sessions,
		ttl:       ttl,
		interval:  interval,
		log:       slog.Default(),
	}
}

// Run ticks until ctx is cancelled. A TTL of zero disables sweeping.
func (s *Sweeper) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	stale, err := s.presences.ListStale(s.ttl)
	if err != nil {
		s.log.Warn("stale presence scan failed", "error", err)
		return
	}

	for i := range stale {
		p := &stale[i]
		s.log.Info("sweeping stale presence", "username", p.Username, "groupId", p.GroupID, "lastSeen", p.LastSeenAt)
		metricSweptTotal.Inc()
		if p.ConnID != "" {
			// Goes through the session manager so a late close signal
			// from the same connection stays a no-op.
			s.sessions.Disconnect(p.ConnID)
			continue
		}
		// Online with no connection reference should not happen; repair
		// the record directly.
		if err := s.presences.ForceOffline(p.Username, p.GroupID); err != nil {
			s.log.Warn("stale presence repair failed", "username", p.Username, "error", err)
		}
	}
}
