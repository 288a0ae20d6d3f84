// Package retention ends chat sessions that have been idle for too long.
//
// HTTP clients do not always say goodbye, so without a sweep the in-memory
// session store only grows. The janitor runs as a background goroutine and
// respects context cancellation for graceful shutdown.
package retention

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codingassistant/assistant/internal/chat"
	"github.com/codingassistant/assistant/pkg/models"
)

// DefaultSessionTTL is how long a session may sit idle before it is ended.
const DefaultSessionTTL = time.Hour

// Sessions is the part of the chat service the janitor needs.
type Sessions interface {
	ListSessions(ctx context.Context) ([]models.Session, error)
	EndSession(ctx context.Context, sessionID string) error
}

// CycleStats tracks what happened in a single sweep.
type CycleStats struct {
	Scanned int
	Ended   int
	Errors  []error
}

// Janitor periodically ends idle sessions.
type Janitor struct {
	sessions Sessions
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewJanitor creates a janitor that ends sessions idle for longer than ttl.
// It sweeps every quarter ttl, but never more often than once a minute.
func NewJanitor(s Sessions, ttl time.Duration) *Janitor {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Janitor{sessions: s, ttl: ttl, interval: interval, now: time.Now}
}

// Start runs sweeps until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("ttl", j.ttl).
		Dur("interval", j.interval).
		Msg("Session janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session janitor stopped")
			return
		case <-ticker.C:
			j.RunCycle(ctx)
		}
	}
}

// RunCycle performs one sweep.
func (j *Janitor) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats

	list, err := j.sessions.ListSessions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Session janitor: failed to list sessions")
		stats.Errors = append(stats.Errors, err)
		return stats
	}

	cutoff := j.now().Add(-j.ttl)
	for _, sess := range list {
		stats.Scanned++
		if !sess.UpdatedAt.Before(cutoff) {
			continue
		}
		// A session may end on its own between list and delete.
		if err := j.sessions.EndSession(ctx, sess.ID); err != nil && !errors.Is(err, chat.ErrSessionNotFound) {
			log.Warn().Err(err).Str("session", sess.ID).Msg("Session janitor: failed to end session")
			stats.Errors = append(stats.Errors, err)
			continue
		}
		stats.Ended++
	}

	if stats.Ended > 0 {
		log.Info().
			Int("scanned", stats.Scanned).
			Int("ended", stats.Ended).
			Msg("Idle sessions ended")
	}
	return stats
}
