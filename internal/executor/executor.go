// Package executor runs an agent team through the tool-use loop:
//
//	instructions + history + tool definitions → model →
//	if tool calls: handoff (once) or execute bound tools → feed results back →
//	repeat until a text response or MaxTurns is hit.
//
// Handoffs are single hop. Only the entry agent is offered transfer tools,
// and only until the first transfer; a specialist never re-delegates.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/codingassistant/assistant/internal/agents"
	"github.com/codingassistant/assistant/pkg/models"
)

// DefaultMaxTurns is the maximum number of model ↔ tool loops per run.
const DefaultMaxTurns = 10

var tracer = otel.Tracer("coding-assistant/executor")

// Completer is the model boundary: send(conversation) → text | tool calls.
type Completer interface {
	Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error)
}

// RunRequest is one run of the team for a single user turn.
type RunRequest struct {
	// Entry is the agent the turn starts at (the coordinator).
	Entry *agents.Agent
	// Start, when set, is a delegate of Entry that the turn was already
	// handed to before the first model call.
	Start *agents.Agent
	// StartSource records who chose Start.
	StartSource models.RouteSource
	// History is the conversation including the new user turn.
	History []models.Message
}

// Delegation records a handoff.
type Delegation struct {
	From   string             `json:"from"`
	To     string             `json:"to"`
	Source models.RouteSource `json:"source"`
}

// ToolCallRecord is one executed (or refused) tool call.
type ToolCallRecord struct {
	Agent     string          `json:"agent"`
	Call      models.ToolCall `json:"call"`
	Message   string          `json:"message"`
	FilePath  string          `json:"file_path,omitempty"`
	IsError   bool            `json:"is_error"`
	IsHandoff bool            `json:"is_handoff"`
}

// Turn is one model call within a run.
type Turn struct {
	Number    int               `json:"number"`
	Agent     string            `json:"agent"`
	Response  string            `json:"response,omitempty"`
	ToolCalls []ToolCallRecord  `json:"tool_calls,omitempty"`
	LatencyMs int64             `json:"latency_ms"`
	Usage     models.TokenUsage `json:"usage"`
}

// ExecutionTrace records the full run.
type ExecutionTrace struct {
	TraceID    string            `json:"trace_id"`
	Delegation *Delegation       `json:"delegation,omitempty"`
	Turns      []Turn            `json:"turns"`
	TotalMs    int64             `json:"total_ms"`
	Usage      models.TokenUsage `json:"usage"`
}

// ToolCalls flattens the tool calls of every turn, handoffs excluded.
func (t *ExecutionTrace) ToolCalls() []ToolCallRecord {
	var out []ToolCallRecord
	for _, turn := range t.Turns {
		for _, tc := range turn.ToolCalls {
			if !tc.IsHandoff {
				out = append(out, tc)
			}
		}
	}
	return out
}

// Result is the outcome of a run.
type Result struct {
	FinalOutput string
	// Agent is the agent that produced FinalOutput.
	Agent string
	// History is the input history plus every turn generated during the run.
	History []models.Message
	Trace   *ExecutionTrace
}

// Runner drives agents against a model.
type Runner struct {
	model    Completer
	maxTurns int
}

// NewRunner creates a runner. maxTurns <= 0 selects DefaultMaxTurns.
func NewRunner(model Completer, maxTurns int) *Runner {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Runner{model: model, maxTurns: maxTurns}
}

// Run executes one user turn.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if req.Entry == nil {
		return nil, fmt.Errorf("run: no entry agent")
	}

	trace := &ExecutionTrace{TraceID: uuid.New().String()}
	ctx, span := tracer.Start(ctx, "agent.run")
	span.SetAttributes(
		attribute.String("agent.entry", req.Entry.Name),
		attribute.String("trace.id", trace.TraceID),
	)
	defer span.End()

	start := time.Now()
	current := req.Entry
	handedOff := false

	if req.Start != nil && req.Start != req.Entry {
		if _, ok := req.Entry.Delegate(req.Start.Name); !ok {
			return nil, fmt.Errorf("run: %s is not a delegate of %s", req.Start.Name, req.Entry.Name)
		}
		current = req.Start
		handedOff = true
		trace.Delegation = &Delegation{From: req.Entry.Name, To: req.Start.Name, Source: req.StartSource}
	}

	messages := append([]models.Message(nil), req.History...)

	for turn := 1; turn <= r.maxTurns; turn++ {
		turnStart := time.Now()

		resp, err := r.model.Complete(ctx, &models.CompletionRequest{
			Instructions: current.Instructions,
			Messages:     messages,
			Tools:        current.ToolDefinitions(!handedOff),
			AgentRef:     current.Name,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("model call failed (agent %s, turn %d): %w", current.Name, turn, err)
		}
		trace.Usage.Add(resp.Usage)

		record := Turn{Number: turn, Agent: current.Name, Usage: resp.Usage}

		if len(resp.ToolCalls) == 0 {
			record.Response = resp.Content
			record.LatencyMs = time.Since(turnStart).Milliseconds()
			trace.Turns = append(trace.Turns, record)
			trace.TotalMs = time.Since(start).Milliseconds()

			messages = append(messages, models.Message{
				Role:    models.RoleAssistant,
				Content: resp.Content,
				Agent:   current.Name,
			})

			log.Info().
				Str("agent", current.Name).
				Int("turns", turn).
				Int64("total_ms", trace.TotalMs).
				Msg("Agent run complete")

			return &Result{
				FinalOutput: resp.Content,
				Agent:       current.Name,
				History:     messages,
				Trace:       trace,
			}, nil
		}

		messages = append(messages, models.Message{
			Role:      models.RoleAssistant,
			Content:   resp.Content,
			Agent:     current.Name,
			ToolCalls: resp.ToolCalls,
		})

		// The agent that issued this batch owns every call in it, even if
		// one of them transfers control.
		caller := current
		for _, tc := range resp.ToolCalls {
			rec := r.handleToolCall(ctx, caller, tc, handedOff)
			if rec.IsHandoff && !rec.IsError {
				next, _ := caller.DelegateForHandoff(tc.Name)
				current = next
				handedOff = true
				trace.Delegation = &Delegation{From: caller.Name, To: next.Name, Source: models.RouteSourceModel}
				log.Info().
					Str("from", caller.Name).
					Str("to", next.Name).
					Str("source", string(models.RouteSourceModel)).
					Msg("Turn handed off")
			}
			record.ToolCalls = append(record.ToolCalls, rec)
			messages = append(messages, models.Message{
				Role:       models.RoleTool,
				Content:    rec.Message,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}

		record.LatencyMs = time.Since(turnStart).Milliseconds()
		trace.Turns = append(trace.Turns, record)

		log.Debug().
			Str("agent", current.Name).
			Int("turn", turn).
			Int("tool_calls", len(resp.ToolCalls)).
			Msg("Agentic loop continuing")
	}

	trace.TotalMs = time.Since(start).Milliseconds()

	lastContent := ""
	if n := len(messages); n > 0 {
		lastContent = messages[n-1].Content
	}
	output := fmt.Sprintf("[Max turns (%d) reached] %s", r.maxTurns, lastContent)
	messages = append(messages, models.Message{Role: models.RoleAssistant, Content: output, Agent: current.Name})

	log.Warn().
		Str("agent", current.Name).
		Int("max_turns", r.maxTurns).
		Msg("Agent run hit max turns")

	return &Result{FinalOutput: output, Agent: current.Name, History: messages, Trace: trace}, nil
}

// handleToolCall resolves one tool call against the calling agent. It never
// fails: refusals and tool errors come back as error records.
func (r *Runner) handleToolCall(ctx context.Context, caller *agents.Agent, tc models.ToolCall, handedOff bool) ToolCallRecord {
	rec := ToolCallRecord{Agent: caller.Name, Call: tc}

	if delegate, ok := caller.DelegateForHandoff(tc.Name); ok {
		rec.IsHandoff = true
		if handedOff {
			rec.IsError = true
			rec.Message = "Handoff refused: this turn has already been delegated."
			return rec
		}
		rec.Message = fmt.Sprintf(`{"assistant": %q}`, delegate.Name)
		return rec
	}

	tool, ok := caller.Tool(tc.Name)
	if !ok {
		log.Warn().
			Str("agent", caller.Name).
			Str("tool", tc.Name).
			Msg("Refused call to unbound tool")
		rec.IsError = true
		rec.Message = fmt.Sprintf("❌ Tool %s is not available to %s.", tc.Name, caller.Name)
		return rec
	}

	ctx, span := tracer.Start(ctx, "tool.call")
	span.SetAttributes(
		attribute.String("tool.name", tool.Name),
		attribute.String("agent.name", caller.Name),
	)
	res := tool.Invoke(ctx, json.RawMessage(tc.Arguments))
	if res.Failed() {
		span.SetStatus(codes.Error, res.Message)
	}
	span.End()

	payload, _ := json.Marshal(res)
	rec.Message = string(payload)
	rec.FilePath = res.FilePath
	rec.IsError = res.Failed()
	return rec
}
