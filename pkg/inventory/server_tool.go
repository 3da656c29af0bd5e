package inventory

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandlerFunc turns dependencies into an MCP tool handler. deps is untyped so
// this package does not import its callers; handlers type-assert what they
// need.
type HandlerFunc func(deps any) mcp.ToolHandler

// ToolsetID names a group of related tools.
type ToolsetID string

// ToolsetMetadata describes the toolset a tool belongs to.
type ToolsetMetadata struct {
	ID          ToolsetID
	Description string
	// Default toolsets are enabled when no toolsets are requested.
	Default bool
}

// ServerTool is a static tool definition plus a generator for its handler.
type ServerTool struct {
	Tool        mcp.Tool
	Toolset     ToolsetMetadata
	HandlerFunc HandlerFunc
}

// IsReadOnly reports whether the tool is annotated as read-only.
func (st *ServerTool) IsReadOnly() bool {
	return st.Tool.Annotations != nil && st.Tool.Annotations.ReadOnlyHint
}

// HasHandler reports whether a handler generator is set.
func (st *ServerTool) HasHandler() bool {
	return st.HandlerFunc != nil
}

// Handler builds the tool handler. It panics when no generator is set.
func (st *ServerTool) Handler(deps any) mcp.ToolHandler {
	if st.HandlerFunc == nil {
		panic("HandlerFunc is nil for tool: " + st.Tool.Name)
	}
	return st.HandlerFunc(deps)
}

// RegisterFunc adds the tool to s. The stored definition is copied so the
// server cannot mutate it.
func (st *ServerTool) RegisterFunc(s *mcp.Server, deps any) {
	handler := st.Handler(deps)
	toolCopy := st.Tool
	s.AddTool(&toolCopy, handler)
}

// NewServerToolWithContextHandler wraps a typed handler whose dependencies
// travel in the request context rather than in a closure. Arguments are
// decoded into In before the handler runs.
func NewServerToolWithContextHandler[In any, Out any](tool mcp.Tool, toolset ToolsetMetadata, handler mcp.ToolHandlerFor[In, Out]) ServerTool {
	return ServerTool{
		Tool:    tool,
		Toolset: toolset,
		HandlerFunc: func(_ any) mcp.ToolHandler {
			return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var arguments In
				if len(req.Params.Arguments) > 0 {
					if err := json.Unmarshal(req.Params.Arguments, &arguments); err != nil {
						return nil, err
					}
				}
				resp, _, err := handler(ctx, req, arguments)
				return resp, err
			}
		},
	}
}

// NewServerToolFromHandler builds a ServerTool around an already untyped
// handler generator.
func NewServerToolFromHandler(tool mcp.Tool, toolset ToolsetMetadata, handlerFn HandlerFunc) ServerTool {
	return ServerTool{Tool: tool, Toolset: toolset, HandlerFunc: handlerFn}
}
