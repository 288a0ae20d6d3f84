package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingassistant/assistant/internal/router"
	"github.com/codingassistant/assistant/pkg/models"
)

// mockDriver is a test Driver.
type mockDriver struct {
	kind string
}

func (d *mockDriver) Kind() string { return d.kind }
func (d *mockDriver) Call(ctx context.Context, provider *router.Provider, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	return &models.CompletionResponse{
		Content: "mock response from " + d.kind + " for " + req.Model,
	}, nil
}

func TestBuiltinDriversRegistered(t *testing.T) {
	mr := router.NewModelRouter(router.Provider{Kind: "gemini"})
	assert.Equal(t, []string{"gemini", "ollama", "openai"}, mr.ListDrivers())
}

func TestRegisterDriver_Overrides(t *testing.T) {
	mr := router.NewModelRouter(router.Provider{Name: "p", Kind: "openai", Model: "gpt-test"})
	mr.RegisterDriver(&mockDriver{kind: "openai"})

	resp, err := mr.Complete(context.Background(), &models.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "mock response from openai for gpt-test", resp.Content)
	assert.Equal(t, "p", resp.Provider)
	assert.Equal(t, "gpt-test", resp.Model)
}

func TestGetDriver_NotFound(t *testing.T) {
	mr := router.NewModelRouter(router.Provider{Kind: "nonexistent"})
	assert.Nil(t, mr.GetDriver("nonexistent"))

	_, err := mr.Complete(context.Background(), &models.CompletionRequest{})
	assert.Error(t, err)
}

func TestProvider_HidesAPIKey(t *testing.T) {
	mr := router.NewModelRouter(router.Provider{Name: "p", Kind: "gemini", APIKey: "secret"})
	assert.Empty(t, mr.Provider().APIKey)
}

func TestOpenAIDriver_MissingKey(t *testing.T) {
	d := router.NewOpenAIDriver("gemini")
	_, err := d.Call(context.Background(), &router.Provider{Name: "g"}, &models.CompletionRequest{Model: "m"})
	assert.Error(t, err)
}

func TestOpenAIDriver_RoundTrip(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role       string `json:"role"`
			Content    string `json:"content"`
			ToolCallID string `json:"tool_call_id"`
		} `json:"messages"`
		Tools []struct {
			Type     string `json:"type"`
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tools"`
	}
	var authHeader, path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": "gemini-2.0-flash",
			"choices": []map[string]interface{}{{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": "",
					"tool_calls": []map[string]interface{}{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]string{
							"name":      "generate_code_file",
							"arguments": `{"language":"python","filename":"a","code":"x=1"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	mr := router.NewModelRouter(router.Provider{
		Name:     "gemini",
		Kind:     "gemini",
		Endpoint: srv.URL + "/v1beta/openai/",
		APIKey:   "test-key",
		Model:    "gemini-2.0-flash",
	})

	resp, err := mr.Complete(context.Background(), &models.CompletionRequest{
		Instructions: "be helpful",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "write code"},
		},
		Tools: []models.ToolDefinition{{
			Name:       "generate_code_file",
			Parameters: map[string]interface{}{"type": "object"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/openai/chat/completions", path)
	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "gemini-2.0-flash", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be helpful", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "generate_code_file", got.Tools[0].Function.Name)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "generate_code_file", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"language":"python","filename":"a","code":"x=1"}`, resp.ToolCalls[0].Arguments)
	assert.Equal(t, int64(15), resp.Usage.TotalTokens)
	assert.Equal(t, "chatcmpl-1", resp.ID)
}

func TestOpenAIDriver_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	mr := router.NewModelRouter(router.Provider{Name: "o", Kind: "openai", Endpoint: srv.URL, APIKey: "k", Model: "m"})
	_, err := mr.Complete(context.Background(), &models.CompletionRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}
