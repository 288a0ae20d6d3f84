// Package sessions provides in-memory session management for multi-turn
// conversations with the assistant.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/codingassistant/assistant/pkg/models"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// MemorySessionStore is a thread-safe in-memory session store. Sessions are
// copied on the way in and out so callers never share a history slice.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session // key: session ID
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*models.Session),
	}
}

// CreateSession stores a new session.
func (s *MemorySessionStore) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = clone(session)
	return nil
}

// GetSession retrieves a copy of a session by ID.
func (s *MemorySessionStore) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return clone(session), nil
}

// UpdateSession replaces the session state. The new history must extend the
// stored one: turns are never dropped or rewritten.
func (s *MemorySessionStore) UpdateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.sessions[session.ID]
	if !exists {
		return fmt.Errorf("session %s: %w", session.ID, ErrNotFound)
	}
	if len(session.Messages) < len(current.Messages) {
		return fmt.Errorf("session %s: history would shrink from %d to %d turns",
			session.ID, len(current.Messages), len(session.Messages))
	}
	session.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = clone(session)
	return nil
}

// ListSessions lists all sessions, oldest first, without their histories.
func (s *MemorySessionStore) ListSessions(_ context.Context) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		cp.Messages = nil
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteSession removes a session.
func (s *MemorySessionStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

func clone(s *models.Session) *models.Session {
	cp := *s
	cp.Messages = append([]models.Message(nil), s.Messages...)
	return &cp
}
