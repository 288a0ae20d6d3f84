// Package handlers implements the HTTP handlers for the coding assistant.
// Every chat front-end goes through chat.Service; the handlers only translate
// between HTTP and the turn loop.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/codingassistant/assistant/internal/agents"
	"github.com/codingassistant/assistant/internal/chat"
	"github.com/codingassistant/assistant/internal/router"
	"github.com/codingassistant/assistant/internal/tools"
	"github.com/codingassistant/assistant/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Chat   *chat.Service
	Tools  *tools.Registry
	Router *router.ModelRouter
}

// New creates a new Handlers instance with all dependencies.
func New(svc *chat.Service, reg *tools.Registry, mr *router.ModelRouter) *Handlers {
	return &Handlers{Chat: svc, Tools: reg, Router: mr}
}

// ══════════════════════════════════════════════════════════════
// ── Session Handlers ─────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// CreateSession starts a new conversation and returns the welcome text.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, welcome, err := h.Chat.StartSession(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"session": session,
		"welcome": welcome,
	})
}

// GetSession retrieves a session with its history.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.Chat.GetSession(r.Context(), sessionID)
	if err != nil {
		respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// ListSessions lists every session without histories.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Chat.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

// DeleteSession ends a session.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	if err := h.Chat.EndSession(r.Context(), sessionID); err != nil {
		respondChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendSessionMessage runs one user turn. A model failure is still a 200: the
// response carries status "error" and the "Error: ..." text the user sees.
func (h *Handlers) SendSessionMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req models.SessionMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Chat.HandleMessage(r.Context(), sessionID, req.Content)
	if err != nil {
		respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ══════════════════════════════════════════════════════════════
// ── Team Handlers ────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type agentView struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Entry       bool     `json:"entry"`
	Tools       []string `json:"tools"`
	Delegates   []string `json:"delegates,omitempty"`
}

// ListAgents describes the active team, entry agent first.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	team := h.Chat.Team()

	out := make([]agentView, 0, 3)
	for _, a := range team.Agents() {
		out = append(out, describeAgent(a, a == team.Entry))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"variant": team.Variant,
		"agents":  out,
	})
}

func describeAgent(a *agents.Agent, entry bool) agentView {
	v := agentView{Name: a.Name, Description: a.Description, Entry: entry, Tools: []string{}}
	for _, t := range a.Tools {
		v.Tools = append(v.Tools, t.Name)
	}
	for _, d := range a.Delegates {
		v.Delegates = append(v.Delegates, d.Name)
	}
	return v
}

// ListTools returns the registered tools with their parameter schemas.
func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Tools.Definitions())
}

// GetModel reports the configured model provider without its credential.
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	p := h.Router.Provider()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"provider":           p.Name,
		"kind":               p.Kind,
		"endpoint":           p.Endpoint,
		"model":              p.Model,
		"drivers":            h.Router.ListDrivers(),
		"average_latency_ms": h.Router.AverageLatency().Milliseconds(),
	})
}

// ══════════════════════════════════════════════════════════════
// ── MCP Handlers ─────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// MCPEndpoint serves the tool registry over MCP JSON-RPC.
func (h *Handlers) MCPEndpoint(w http.ResponseWriter, r *http.Request) {
	var req models.MCPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusOK, models.MCPResponse{
			Jsonrpc: "2.0",
			Error: &models.MCPError{
				Code:    -32700,
				Message: "Parse error",
				Data:    err.Error(),
			},
		})
		return
	}

	log.Info().Str("method", req.Method).Msg("MCP request received")

	resp := h.Tools.HandleJSONRPC(r.Context(), &req)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ══════════════════════════════════════════════════════════════
// ── Helpers ──────────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "content is required")
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
