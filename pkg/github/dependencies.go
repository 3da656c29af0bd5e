package github

import (
	"context"
	"errors"

	gogithub "github.com/google/go-github/v79/github"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shurcooL/githubv4"

	"github.com/hautechai/github-mcp/pkg/buffer"
	"github.com/hautechai/github-mcp/pkg/inventory"
	"github.com/hautechai/github-mcp/pkg/logs"
)

// depsContextKey is the context key for ToolDependencies.
type depsContextKey struct{}

// ErrDepsNotInContext is returned when ToolDependencies is not found in context.
var ErrDepsNotInContext = errors.New("ToolDependencies not found in context; use ContextWithDeps to inject")

// ContextWithDeps returns a new context with the ToolDependencies stored in it.
// The stdio server injects the same deps into every request.
func ContextWithDeps(ctx context.Context, deps ToolDependencies) context.Context {
	return context.WithValue(ctx, depsContextKey{}, deps)
}

// DepsFromContext retrieves ToolDependencies from the context.
func DepsFromContext(ctx context.Context) (ToolDependencies, bool) {
	deps, ok := ctx.Value(depsContextKey{}).(ToolDependencies)
	return deps, ok
}

// MustDepsFromContext retrieves ToolDependencies from the context.
// Panics if deps are not found.
func MustDepsFromContext(ctx context.Context) ToolDependencies {
	deps, ok := DepsFromContext(ctx)
	if !ok {
		panic(ErrDepsNotInContext)
	}
	return deps
}

// ToolDependencies is everything a tool handler may reach for.
type ToolDependencies interface {
	// GetClient returns a GitHub REST API client
	GetClient(ctx context.Context) (*gogithub.Client, error)

	// GetGQLClient returns a GitHub GraphQL client
	GetGQLClient(ctx context.Context) (*githubv4.Client, error)

	// GetLogRetriever returns the downloader for signed log URLs
	GetLogRetriever() *logs.Retriever

	// GetContentWindowSize returns the upper bound for tail_lines
	GetContentWindowSize() int
}

// BaseDeps is the standard implementation of ToolDependencies. It stores
// pre-created clients.
type BaseDeps struct {
	Client       *gogithub.Client
	GQLClient    *githubv4.Client
	LogRetriever *logs.Retriever

	ContentWindowSize int
}

// NewBaseDeps creates a BaseDeps with the provided clients and configuration.
func NewBaseDeps(
	client *gogithub.Client,
	gqlClient *githubv4.Client,
	retriever *logs.Retriever,
	contentWindowSize int,
) *BaseDeps {
	return &BaseDeps{
		Client:            client,
		GQLClient:         gqlClient,
		LogRetriever:      retriever,
		ContentWindowSize: contentWindowSize,
	}
}

// GetClient implements ToolDependencies.
func (d BaseDeps) GetClient(_ context.Context) (*gogithub.Client, error) {
	if d.Client == nil {
		return nil, errors.New("GitHub REST client is not configured")
	}
	return d.Client, nil
}

// GetGQLClient implements ToolDependencies.
func (d BaseDeps) GetGQLClient(_ context.Context) (*githubv4.Client, error) {
	if d.GQLClient == nil {
		return nil, errors.New("GitHub GraphQL client is not configured")
	}
	return d.GQLClient, nil
}

// GetLogRetriever implements ToolDependencies. A missing retriever falls
// back to one using http.DefaultClient.
func (d BaseDeps) GetLogRetriever() *logs.Retriever {
	if d.LogRetriever == nil {
		return &logs.Retriever{}
	}
	return d.LogRetriever
}

// GetContentWindowSize implements ToolDependencies. The result never exceeds
// the number of lines the log ring buffer retains.
func (d BaseDeps) GetContentWindowSize() int {
	if d.ContentWindowSize <= 0 {
		return DefaultContentWindowSize
	}
	return min(d.ContentWindowSize, buffer.MaxRetainedLines)
}

// NewTool creates a ServerTool that retrieves ToolDependencies from context at call time.
// Ensure ContextWithDeps is called to inject deps before any tool handlers are invoked.
func NewTool[In, Out any](toolset inventory.ToolsetMetadata, tool mcp.Tool, handler func(ctx context.Context, deps ToolDependencies, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error)) inventory.ServerTool {
	return inventory.NewServerToolWithContextHandler(tool, toolset, func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error) {
		deps := MustDepsFromContext(ctx)
		return handler(ctx, deps, req, args)
	})
}
