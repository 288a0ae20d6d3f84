// Package router implements the model boundary of the assistant.
//
// A ModelRouter holds the configured provider and a registry of drivers keyed
// by provider kind. Complete sends one conversation to the provider and
// returns either final text or tool invocation requests.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codingassistant/assistant/pkg/models"
)

// Provider is the configured model endpoint.
type Provider struct {
	Name     string
	Kind     string
	Endpoint string
	APIKey   string
	Model    string
}

// Driver talks to one kind of provider.
type Driver interface {
	Kind() string
	Call(ctx context.Context, provider *Provider, req *models.CompletionRequest) (*models.CompletionResponse, error)
}

// ModelRouter routes completion requests to the driver for the provider kind.
type ModelRouter struct {
	provider Provider

	driversMu sync.RWMutex
	drivers   map[string]Driver

	// rolling average latency in ms
	latencyMu sync.RWMutex
	latency   int64
}

// NewModelRouter creates a router for provider with the built-in drivers registered.
func NewModelRouter(provider Provider) *ModelRouter {
	mr := &ModelRouter{
		provider: provider,
		drivers:  make(map[string]Driver),
	}
	for _, kind := range []string{"openai", "gemini", "ollama"} {
		mr.RegisterDriver(NewOpenAIDriver(kind))
	}
	return mr
}

// RegisterDriver adds or replaces the driver for its kind.
func (mr *ModelRouter) RegisterDriver(d Driver) {
	mr.driversMu.Lock()
	defer mr.driversMu.Unlock()
	mr.drivers[d.Kind()] = d
}

// GetDriver returns the driver for kind, or nil.
func (mr *ModelRouter) GetDriver(kind string) Driver {
	mr.driversMu.RLock()
	defer mr.driversMu.RUnlock()
	return mr.drivers[kind]
}

// ListDrivers returns the registered driver kinds, sorted.
func (mr *ModelRouter) ListDrivers() []string {
	mr.driversMu.RLock()
	defer mr.driversMu.RUnlock()

	kinds := make([]string, 0, len(mr.drivers))
	for k := range mr.drivers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Provider returns the configured provider without its credential.
func (mr *ModelRouter) Provider() Provider {
	p := mr.provider
	p.APIKey = ""
	return p
}

// AverageLatency returns the rolling average call latency.
func (mr *ModelRouter) AverageLatency() time.Duration {
	mr.latencyMu.RLock()
	defer mr.latencyMu.RUnlock()
	return time.Duration(mr.latency) * time.Millisecond
}

// Complete sends req to the configured provider.
func (mr *ModelRouter) Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	driver := mr.GetDriver(mr.provider.Kind)
	if driver == nil {
		return nil, fmt.Errorf("no driver registered for provider kind %q", mr.provider.Kind)
	}
	if req.Model == "" {
		req.Model = mr.provider.Model
	}

	start := time.Now()
	resp, err := driver.Call(ctx, &mr.provider, req)
	if err != nil {
		log.Warn().
			Str("provider", mr.provider.Name).
			Str("model", req.Model).
			Str("agent", req.AgentRef).
			Err(err).
			Msg("Model call failed")
		return nil, err
	}

	latencyMs := time.Since(start).Milliseconds()
	resp.LatencyMs = latencyMs
	if resp.Provider == "" {
		resp.Provider = mr.provider.Name
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}

	mr.latencyMu.Lock()
	if mr.latency == 0 {
		mr.latency = latencyMs
	} else {
		// Exponential moving average
		mr.latency = (mr.latency*7 + latencyMs*3) / 10
	}
	mr.latencyMu.Unlock()

	log.Debug().
		Str("agent", req.AgentRef).
		Str("model", resp.Model).
		Int("tool_calls", len(resp.ToolCalls)).
		Int64("latency_ms", latencyMs).
		Msg("Model call complete")

	return resp, nil
}
