// Package models holds the wire and domain types shared across the coding
// assistant: conversation turns, model requests, sessions and MCP envelopes.
package models

import (
	"encoding/json"
	"time"
)

// ── Conversation ─────────────────────────────────────────────

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one conversation turn. Once appended to a history it is never
// modified; histories only grow.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Agent      string     `json:"agent,omitempty"` // agent that produced an assistant turn
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"` // tool name for tool turns
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object as produced by the model
}

// ToolDefinition describes a callable tool to the model.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
}

// ── Model Boundary ───────────────────────────────────────────

// CompletionRequest is a single call to the hosted model.
type CompletionRequest struct {
	Model        string           `json:"model,omitempty"`
	Instructions string           `json:"instructions,omitempty"` // sent as the system message
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	AgentRef     string           `json:"agent_ref,omitempty"`
}

// CompletionResponse is either final text or a set of tool invocation requests.
type CompletionResponse struct {
	ID        string     `json:"id"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     TokenUsage `json:"usage"`
	LatencyMs int64      `json:"latency_ms"`
}

// TokenUsage tracks token consumption reported by the provider.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Add accumulates another usage record.
func (u *TokenUsage) Add(o TokenUsage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// ── Routing ──────────────────────────────────────────────────

// RouteSource records who made a delegation decision.
type RouteSource string

const (
	RouteSourceCommand  RouteSource = "command"
	RouteSourceKeywords RouteSource = "keywords"
	RouteSourceModel    RouteSource = "model"
)

// RouteDecision is the per-turn routing outcome. It is reported, not stored
// in the session history.
type RouteDecision struct {
	Intent     string      `json:"intent"`
	Source     RouteSource `json:"source"`
	DelegateTo string      `json:"delegate_to,omitempty"` // empty: coordinator answered directly
}

// ── Sessions ─────────────────────────────────────────────────

// Session is one chat connection and the history it owns.
type Session struct {
	ID        string        `json:"id"`
	Variant   string        `json:"variant"`
	Status    SessionStatus `json:"status"`
	Messages  []Message     `json:"messages,omitempty"`
	TurnCount int           `json:"turn_count"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionStatus tracks the lifecycle of a session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
)

// SessionMessage is the request body for sending a message to a session.
type SessionMessage struct {
	Content string `json:"content"`
}

// TurnStatus reports whether a turn produced a reply or a surfaced error.
type TurnStatus string

const (
	TurnOK    TurnStatus = "ok"
	TurnError TurnStatus = "error"
)

// SessionResponse is the reply to one session message.
type SessionResponse struct {
	SessionID  string           `json:"session_id"`
	TurnNumber int              `json:"turn_number"`
	Content    string           `json:"content"`
	Agent      string           `json:"agent,omitempty"`
	Route      *RouteDecision   `json:"route,omitempty"`
	ToolCalls  []ToolCallResult `json:"tool_calls,omitempty"`
	Usage      TokenUsage       `json:"usage"`
	LatencyMs  int64            `json:"latency_ms"`
	Status     TurnStatus       `json:"status"`
}

// ToolCallResult summarises one executed tool call for API consumers.
type ToolCallResult struct {
	Agent     string `json:"agent"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Message   string `json:"message"`
	FilePath  string `json:"file_path,omitempty"`
	IsError   bool   `json:"is_error"`
}

// ── MCP (Model Context Protocol) ─────────────────────────────

type MCPRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

type MCPResponse struct {
	Jsonrpc string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type MCPToolInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema interface{} `json:"inputSchema,omitempty"`
}

type MCPToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type MCPToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

type MCPContent struct {
	Type string `json:"type"` // text
	Text string `json:"text,omitempty"`
}
