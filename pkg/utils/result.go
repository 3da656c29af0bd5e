package utils //nolint:revive //TODO: figure out a better name for this package

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func NewToolResultText(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: message,
			},
		},
	}
}

func NewToolResultError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: message,
			},
		},
		IsError: true,
	}
}

func NewToolResultErrorFromErr(message string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: message + ": " + err.Error(),
			},
		},
		IsError: true,
	}
}

// NewToolResultEnvelope returns env as structured content. The text block
// carries summary, or the JSON form of env when summary is empty.
func NewToolResultEnvelope(env any, summary string, isError bool) *mcp.CallToolResult {
	data, err := json.Marshal(env)
	if err != nil {
		return NewToolResultErrorFromErr("failed to marshal result to json", err)
	}
	text := summary
	if text == "" {
		text = string(data)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: text,
			},
		},
		StructuredContent: json.RawMessage(data),
		IsError:           isError,
	}
}
