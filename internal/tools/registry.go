// Package tools declares the file-writing operations that agents may invoke
// and the registry that exposes them to the agent runtime and to MCP clients.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"

	"github.com/codingassistant/assistant/internal/filesink"
	"github.com/codingassistant/assistant/pkg/models"
)

// Handler executes a tool with raw JSON arguments. Handlers never return
// errors: failures are carried in the result.
type Handler func(ctx context.Context, args json.RawMessage) filesink.Result

// Tool is an externally invocable action with a typed parameter schema.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	handler     Handler
}

// Invoke runs the tool handler.
func (t *Tool) Invoke(ctx context.Context, args json.RawMessage) filesink.Result {
	return t.handler(ctx, args)
}

// Definition returns the model-facing description of the tool.
func (t *Tool) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// newTool builds a Tool whose schema is reflected from the argument type A.
func newTool[A any](name, description string, fn func(context.Context, A) filesink.Result) *Tool {
	reflector := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero A
	schema := reflector.Reflect(&zero)
	schema.Version = ""

	return &Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
		handler: func(ctx context.Context, raw json.RawMessage) filesink.Result {
			var args A
			if len(raw) == 0 {
				raw = json.RawMessage("{}")
			}
			if err := json.Unmarshal(raw, &args); err != nil {
				err = fmt.Errorf("invalid arguments for %s: %w", name, err)
				return filesink.Result{Message: "❌ " + err.Error(), Err: err}
			}
			return fn(ctx, args)
		},
	}
}

// Registry holds the tools available to agents. Registration happens at
// startup; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t *Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	log.Debug().Str("tool", t.Name).Msg("Tool registered")
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns the model-facing definitions of every tool.
func (r *Registry) Definitions() []models.ToolDefinition {
	tools := r.List()
	defs := make([]models.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition())
	}
	return defs
}
