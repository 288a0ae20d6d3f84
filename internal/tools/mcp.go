package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codingassistant/assistant/pkg/models"
)

// MCPProtocolVersion is the MCP revision the registry speaks.
const MCPProtocolVersion = "2024-11-05"

// HandleJSONRPC serves the registry over MCP JSON-RPC 2.0 so external clients
// can discover and call the same tools the agents use.
func (r *Registry) HandleJSONRPC(ctx context.Context, req *models.MCPRequest) *models.MCPResponse {
	switch req.Method {
	case "initialize":
		return &models.MCPResponse{
			Jsonrpc: "2.0",
			Result: map[string]interface{}{
				"protocolVersion": MCPProtocolVersion,
				"capabilities": map[string]interface{}{
					"tools": map[string]bool{"listChanged": false},
				},
				"serverInfo": map[string]string{
					"name":    "coding-assistant-tools",
					"version": "0.1.0",
				},
			},
			ID: req.ID,
		}

	case "notifications/initialized":
		log.Debug().Msg("MCP client initialized")
		return nil

	case "ping":
		return &models.MCPResponse{
			Jsonrpc: "2.0",
			Result:  map[string]string{"status": "pong"},
			ID:      req.ID,
		}

	case "tools/list":
		tools := r.List()
		infos := make([]models.MCPToolInfo, 0, len(tools))
		for _, t := range tools {
			infos = append(infos, models.MCPToolInfo{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.Parameters,
			})
		}
		return &models.MCPResponse{
			Jsonrpc: "2.0",
			Result:  map[string]interface{}{"tools": infos},
			ID:      req.ID,
		}

	case "tools/call":
		return r.handleToolsCall(ctx, req)

	default:
		return mcpError(req.ID, -32601, "Method not found",
			fmt.Sprintf("Method '%s' is not supported", req.Method))
	}
}

func (r *Registry) handleToolsCall(ctx context.Context, req *models.MCPRequest) *models.MCPResponse {
	var params models.MCPToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcpError(req.ID, -32602, "Invalid params", err.Error())
	}

	tool, ok := r.Get(params.Name)
	if !ok {
		return mcpError(req.ID, -32602, "Unknown tool", params.Name)
	}

	res := tool.Invoke(ctx, params.Arguments)
	log.Info().
		Str("tool", tool.Name).
		Bool("failed", res.Failed()).
		Msg("MCP tool call")

	payload, _ := json.Marshal(res)
	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Result: models.MCPToolResult{
			Content: []models.MCPContent{{Type: "text", Text: string(payload)}},
			IsError: res.Failed(),
		},
		ID: req.ID,
	}
}

func mcpError(id interface{}, code int, msg string, data interface{}) *models.MCPResponse {
	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Error:   &models.MCPError{Code: code, Message: msg, Data: data},
		ID:      id,
	}
}
