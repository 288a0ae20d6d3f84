// Package chat implements the turn loop shared by every front-end: one user
// message in, one assistant reply out, history extended by exactly those two
// turns.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/codingassistant/assistant/internal/agents"
	"github.com/codingassistant/assistant/internal/executor"
	"github.com/codingassistant/assistant/internal/intent"
	"github.com/codingassistant/assistant/internal/sessions"
	"github.com/codingassistant/assistant/pkg/models"
)

// WelcomeText is sent once when a session starts.
const WelcomeText = "👋 Welcome! I am your coding assistant. How can I help you today?"

// DefaultTurnTimeout bounds one user turn, tool calls included.
const DefaultTurnTimeout = 2 * time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message is empty")
)

var tracer = otel.Tracer("coding-assistant/chat")

// SessionStore persists sessions and their histories.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	UpdateSession(ctx context.Context, session *models.Session) error
	ListSessions(ctx context.Context) ([]models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Service runs user turns against the agent team.
type Service struct {
	store   SessionStore
	runner  *executor.Runner
	team    *agents.Team
	timeout time.Duration

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates a turn loop. timeout <= 0 selects DefaultTurnTimeout.
func NewService(store SessionStore, runner *executor.Runner, team *agents.Team, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTurnTimeout
	}
	return &Service{
		store:   store,
		runner:  runner,
		team:    team,
		timeout: timeout,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Team returns the agent team the service runs.
func (s *Service) Team() *agents.Team { return s.team }

// StartSession opens a new conversation with an empty history and returns
// the welcome text to show the user.
func (s *Service) StartSession(ctx context.Context) (*models.Session, string, error) {
	now := time.Now().UTC()
	sess := &models.Session{
		ID:        uuid.New().String(),
		Variant:   string(s.team.Variant),
		Status:    models.SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	s.locksMu.Lock()
	s.locks[sess.ID] = &sync.Mutex{}
	s.locksMu.Unlock()

	log.Info().
		Str("session", sess.ID).
		Str("variant", sess.Variant).
		Msg("💬 Session started")
	return sess, WelcomeText, nil
}

// GetSession returns a session with its history.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, s.mapStoreErr(sessionID, err)
	}
	return sess, nil
}

// ListSessions returns every session without its history.
func (s *Service) ListSessions(ctx context.Context) ([]models.Session, error) {
	return s.store.ListSessions(ctx)
}

// EndSession discards a session and its history.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	lock := s.lockFor(sessionID)
	if lock == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return s.mapStoreErr(sessionID, err)
	}

	s.locksMu.Lock()
	delete(s.locks, sessionID)
	s.locksMu.Unlock()

	log.Info().Str("session", sessionID).Msg("👋 Session ended")
	return nil
}

// HandleMessage runs one user turn. Model failures and timeouts are reported
// in the response with Status error and leave the history untouched; only an
// unknown session or an empty message is returned as an error.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) (*models.SessionResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	lock := s.lockFor(sessionID)
	if lock == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, s.mapStoreErr(sessionID, err)
	}

	decision := intent.Classify(text)
	content := intent.StripCommand(text)
	if content == "" {
		content = strings.TrimSpace(text)
	}

	ctx, span := tracer.Start(ctx, "chat.turn")
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("intent", string(decision.Intent)),
		attribute.String("intent.source", string(decision.Source)),
	)
	defer span.End()

	req := executor.RunRequest{
		Entry:   s.team.Entry,
		History: append(append([]models.Message(nil), sess.Messages...), models.Message{Role: models.RoleUser, Content: content}),
	}
	if decision.Unambiguous() {
		if specialist := s.team.Specialist(specialistFor(decision.Intent)); specialist != nil {
			req.Start = specialist
			req.StartSource = models.RouteSource(decision.Source)
		}
	}

	log.Debug().
		Str("session", sessionID).
		Str("intent", string(decision.Intent)).
		Str("source", string(decision.Source)).
		Strs("matched", decision.Matched).
		Msg("Intent classified")

	turnNumber := sess.TurnCount + 1
	resp := &models.SessionResponse{
		SessionID:  sessionID,
		TurnNumber: turnNumber,
		Route:      &models.RouteDecision{Intent: string(decision.Intent), Source: models.RouteSourceModel},
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.runner.Run(runCtx, req)
	resp.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("turn timed out after %s: %w", s.timeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().
			Err(err).
			Str("session", sessionID).
			Int("turn", turnNumber).
			Msg("❌ Turn failed")

		resp.Content = "Error: " + err.Error()
		resp.Status = models.TurnError
		if req.Start != nil {
			resp.Route.Source = req.StartSource
			resp.Route.DelegateTo = req.Start.Name
		}
		return resp, nil
	}

	if d := result.Trace.Delegation; d != nil {
		resp.Route.Source = d.Source
		resp.Route.DelegateTo = d.To
	}
	resp.Content = result.FinalOutput
	resp.Agent = result.Agent
	resp.Usage = result.Trace.Usage
	resp.Status = models.TurnOK
	for _, tc := range result.Trace.ToolCalls() {
		resp.ToolCalls = append(resp.ToolCalls, models.ToolCallResult{
			Agent:     tc.Agent,
			Name:      tc.Call.Name,
			Arguments: tc.Call.Arguments,
			Message:   tc.Message,
			FilePath:  tc.FilePath,
			IsError:   tc.IsError,
		})
	}

	sess.Messages = append(req.History, models.Message{
		Role:    models.RoleAssistant,
		Content: result.FinalOutput,
		Agent:   result.Agent,
	})
	sess.TurnCount = turnNumber
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		// A reply the history does not hold is not shown.
		log.Error().Err(err).Str("session", sessionID).Msg("❌ Failed to persist turn")
		resp.Content = "Error: " + err.Error()
		resp.Status = models.TurnError
		return resp, nil
	}

	span.SetAttributes(
		attribute.String("agent.final", result.Agent),
		attribute.String("route.source", string(resp.Route.Source)),
		attribute.Int("tool_calls", len(resp.ToolCalls)),
	)
	log.Info().
		Str("session", sessionID).
		Int("turn", turnNumber).
		Str("agent", result.Agent).
		Str("source", string(resp.Route.Source)).
		Str("delegate", resp.Route.DelegateTo).
		Int("tool_calls", len(resp.ToolCalls)).
		Int64("latency_ms", resp.LatencyMs).
		Msg("✅ Turn complete")

	return resp, nil
}

// lockFor returns the mutex serializing turns of a session, or nil when the
// session was never started here.
func (s *Service) lockFor(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return s.locks[sessionID]
}

func (s *Service) mapStoreErr(sessionID string, err error) error {
	if errors.Is(err, sessions.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return err
}

func specialistFor(in intent.Intent) string {
	switch in {
	case intent.Code:
		return agents.GeneratingName
	case intent.Documentation:
		return agents.DocumentationName
	}
	return ""
}
