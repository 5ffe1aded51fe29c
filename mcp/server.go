// Package mcp exposes the tool registry as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"miseagent"
	"miseagent/tools"
)

const (
	ServerName    = "mise"
	ServerVersion = "0.1.0"
)

// NewServer registers every tool of tp. Calls run as userID.
func NewServer(tp miseagent.ToolProvider, userID string) (*mcpserver.MCPServer, error) {
	s := mcpserver.NewMCPServer(ServerName, ServerVersion, mcpserver.WithToolCapabilities(false))

	for _, t := range tp.GetTools() {
		tool, err := toMCPTool(t)
		if err != nil {
			return nil, err
		}
		s.AddTool(tool, handler(t, userID))
	}
	return s, nil
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *mcpserver.MCPServer) error {
	slog.Info("MCP: Serving on stdio")
	return mcpserver.ServeStdio(s)
}

func toMCPTool(t tools.Tool) (mcp.Tool, error) {
	schema, err := json.Marshal(t.InputSchema())
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("marshal schema of %s: %w", t.Name(), err)
	}
	tool := mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema)
	tool.Annotations.Title = t.Title()
	return tool, nil
}

func handler(t tools.Tool, userID string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = tools.WithUserID(ctx, userID)

		out, err := t.Run(ctx, req.GetArguments())
		if err != nil {
			slog.Warn("MCP: Tool call failed", "name", t.Name(), "error", err)
			return mcp.NewToolResultError(tools.Message(err)), nil
		}

		text, _ := out["result"].(string)
		return mcp.NewToolResultText(text), nil
	}
}
