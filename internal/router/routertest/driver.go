// Package routertest provides a scripted model driver for tests.
package routertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/codingassistant/assistant/internal/router"
	"github.com/codingassistant/assistant/pkg/models"
)

// Kind is the provider kind the scripted driver registers under.
const Kind = "scripted"

// ErrScriptExhausted is returned when the model is called more often than scripted.
var ErrScriptExhausted = errors.New("routertest: script exhausted")

// Step produces one model response.
type Step func(req *models.CompletionRequest) (*models.CompletionResponse, error)

// Text answers with final text.
func Text(content string) Step {
	return func(*models.CompletionRequest) (*models.CompletionResponse, error) {
		return &models.CompletionResponse{Content: content}, nil
	}
}

// CallTool requests a single tool invocation.
func CallTool(name, arguments string) Step {
	return func(req *models.CompletionRequest) (*models.CompletionResponse, error) {
		return &models.CompletionResponse{
			ToolCalls: []models.ToolCall{{
				ID:        fmt.Sprintf("call_%s_%d", name, len(req.Messages)),
				Name:      name,
				Arguments: arguments,
			}},
		}, nil
	}
}

// Fail makes the model call return err.
func Fail(err error) Step {
	return func(*models.CompletionRequest) (*models.CompletionResponse, error) {
		return nil, err
	}
}

// Driver replays steps in order and records every request.
type Driver struct {
	mu       sync.Mutex
	steps    []Step
	requests []models.CompletionRequest
}

// New creates a driver that plays steps in order.
func New(steps ...Step) *Driver {
	return &Driver{steps: steps}
}

func (d *Driver) Kind() string { return Kind }

// Call runs the next step, honouring context cancellation first.
func (d *Driver) Call(ctx context.Context, _ *router.Provider, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	cp := *req
	cp.Messages = append([]models.Message(nil), req.Messages...)
	cp.Tools = append([]models.ToolDefinition(nil), req.Tools...)
	d.requests = append(d.requests, cp)
	if len(d.steps) == 0 {
		d.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	step := d.steps[0]
	d.steps = d.steps[1:]
	d.mu.Unlock()

	return step(req)
}

// Requests returns copies of every request received so far.
func (d *Driver) Requests() []models.CompletionRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.CompletionRequest(nil), d.requests...)
}

// NewRouter returns a ModelRouter whose provider is served by d.
func NewRouter(d *Driver) *router.ModelRouter {
	mr := router.NewModelRouter(router.Provider{Name: "scripted", Kind: Kind, Model: "scripted-model"})
	mr.RegisterDriver(d)
	return mr
}
