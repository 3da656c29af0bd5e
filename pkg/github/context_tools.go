package github

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hautechai/github-mcp/pkg/inventory"
)

// PingResult echoes the message sent to the ping tool.
type PingResult struct {
	Message string `json:"message"`
}

// Ping creates a tool that checks the server is reachable. It does not call
// GitHub.
func Ping() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataContext,
		mcp.Tool{
			Name:        "ping",
			Description: "Health check. Echoes the given message, or \"pong\" when none is given. Does not contact GitHub.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Ping the server",
				ReadOnlyHint: true,
			},
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"message": {
						Type:        "string",
						Description: "Message to echo back",
					},
				},
			},
		},
		func(_ context.Context, _ ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			// A malformed message falls back to the default rather than failing.
			message, _ := OptionalParam[string](args, "message")
			if message == "" {
				message = "pong"
			}
			return itemResult(PingResult{Message: message}, nil, message), nil, nil
		},
	)
}
