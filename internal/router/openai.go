package router

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codingassistant/assistant/pkg/models"
)

// GeminiOpenAIEndpoint is Google's OpenAI-compatible endpoint.
const GeminiOpenAIEndpoint = "https://generativelanguage.googleapis.com/v1beta/openai/"

var defaultEndpoints = map[string]string{
	"openai": "https://api.openai.com/v1",
	"gemini": GeminiOpenAIEndpoint,
	"ollama": "http://localhost:11434/v1",
}

// OpenAIDriver calls any OpenAI-compatible chat completions endpoint.
type OpenAIDriver struct {
	kind string
}

// NewOpenAIDriver creates a driver registered under kind.
func NewOpenAIDriver(kind string) *OpenAIDriver {
	return &OpenAIDriver{kind: kind}
}

func (d *OpenAIDriver) Kind() string { return d.kind }

// Call sends one chat completion request with the agent's tools attached.
func (d *OpenAIDriver) Call(ctx context.Context, provider *Provider, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	if provider.APIKey == "" && d.kind != "ollama" {
		return nil, fmt.Errorf("%s: api key not configured for provider %s", d.kind, provider.Name)
	}

	endpoint := provider.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoints[d.kind]
	}
	cfg := openai.DefaultConfig(provider.APIKey)
	cfg.BaseURL = strings.TrimRight(endpoint, "/")
	client := openai.NewClientWithConfig(cfg)

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = toOpenAITools(req.Tools)
		chatReq.ToolChoice = "auto"
	}

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s: chat completion: %w", d.kind, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: response has no choices", d.kind)
	}

	msg := resp.Choices[0].Message
	out := &models.CompletionResponse{
		ID:       resp.ID,
		Provider: provider.Name,
		Model:    resp.Model,
		Content:  msg.Content,
		Usage: models.TokenUsage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
			TotalTokens:  int64(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toOpenAIMessages(req *models.CompletionRequest) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == models.RoleTool {
			msg.Name = m.Name
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func toOpenAITools(defs []models.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}
