package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func testToolsetMetadata(id string, isDefault bool) ToolsetMetadata {
	return ToolsetMetadata{
		ID:          ToolsetID(id),
		Description: "Test toolset: " + id,
		Default:     isDefault,
	}
}

// mockTool creates a minimal ServerTool for testing
func mockTool(name string, toolsetID string, readOnly bool, isDefault bool) ServerTool {
	return NewServerToolFromHandler(
		mcp.Tool{
			Name: name,
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint: readOnly,
			},
			InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		},
		testToolsetMetadata(toolsetID, isDefault),
		func(_ any) mcp.ToolHandler {
			return func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, nil
			}
		},
	)
}

func catalogue() []ServerTool {
	return []ServerTool{
		mockTool("list_issues", "issues", true, true),
		mockTool("get_issue", "issues", true, true),
		mockTool("list_workflow_runs", "actions", true, true),
		mockTool("cancel_workflow_run", "actions", false, true),
		mockTool("ping", "context", true, false),
	}
}

func toolNames(tools []ServerTool) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Tool.Name)
	}
	return names
}

func equalNames(t *testing.T, got []ServerTool, want ...string) {
	t.Helper()
	names := toolNames(got)
	if len(names) != len(want) {
		t.Fatalf("expected tools %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected tools %v, got %v", want, names)
		}
	}
}

func TestNewInventoryEmpty(t *testing.T) {
	inv := NewBuilder().Build()
	if len(inv.AvailableTools(context.Background())) != 0 {
		t.Fatalf("Expected tools to be empty")
	}
	if len(inv.ToolsetIDs()) != 0 {
		t.Fatalf("Expected no toolsets")
	}
}

func TestToolsetSelection(t *testing.T) {
	tests := []struct {
		name         string
		toolsets     []string
		want         []string
		unrecognized []string
	}{
		{
			name:     "nil uses defaults",
			toolsets: nil,
			want:     []string{"cancel_workflow_run", "list_workflow_runs", "get_issue", "list_issues"},
		},
		{
			name:     "empty enables nothing",
			toolsets: []string{},
			want:     []string{},
		},
		{
			name:     "all",
			toolsets: []string{"all"},
			want:     []string{"cancel_workflow_run", "list_workflow_runs", "ping", "get_issue", "list_issues"},
		},
		{
			name:     "explicit with whitespace and duplicates",
			toolsets: []string{" context ", "context", ""},
			want:     []string{"ping"},
		},
		{
			name:     "default keyword plus extra",
			toolsets: []string{"default", "context"},
			want:     []string{"cancel_workflow_run", "list_workflow_runs", "ping", "get_issue", "list_issues"},
		},
		{
			name:         "unknown toolset is reported",
			toolsets:     []string{"issues", "repos"},
			want:         []string{"get_issue", "list_issues"},
			unrecognized: []string{"repos"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := NewBuilder().SetTools(catalogue()).WithToolsets(tc.toolsets).Build()
			equalNames(t, inv.AvailableTools(context.Background()), tc.want...)
			if len(inv.UnrecognizedToolsets()) != len(tc.unrecognized) {
				t.Fatalf("expected unrecognized %v, got %v", tc.unrecognized, inv.UnrecognizedToolsets())
			}
			for i, name := range tc.unrecognized {
				if inv.UnrecognizedToolsets()[i] != name {
					t.Fatalf("expected unrecognized %v, got %v", tc.unrecognized, inv.UnrecognizedToolsets())
				}
			}
		})
	}
}

func TestReadOnlyFilter(t *testing.T) {
	inv := NewBuilder().
		SetTools(catalogue()).
		WithToolsets([]string{"actions"}).
		WithReadOnly(true).
		Build()
	equalNames(t, inv.AvailableTools(context.Background()), "list_workflow_runs")
}

func TestAdditionalToolsBypassToolsets(t *testing.T) {
	inv := NewBuilder().
		SetTools(catalogue()).
		WithToolsets([]string{"issues"}).
		WithTools([]string{"ping", " cancel_workflow_run "}).
		WithReadOnly(true).
		Build()
	// cancel_workflow_run is a write tool, so read-only still removes it
	equalNames(t, inv.AvailableTools(context.Background()), "ping", "get_issue", "list_issues")
}

func TestToolsetMetadata(t *testing.T) {
	inv := NewBuilder().SetTools(catalogue()).WithToolsets([]string{"issues"}).Build()

	ids := inv.ToolsetIDs()
	if len(ids) != 3 || ids[0] != "actions" || ids[1] != "context" || ids[2] != "issues" {
		t.Fatalf("unexpected toolset IDs %v", ids)
	}
	defaults := inv.DefaultToolsetIDs()
	if len(defaults) != 2 || defaults[0] != "actions" || defaults[1] != "issues" {
		t.Fatalf("unexpected default toolsets %v", defaults)
	}
	if inv.ToolsetDescriptions()["context"] != "Test toolset: context" {
		t.Fatalf("unexpected description %q", inv.ToolsetDescriptions()["context"])
	}
	enabled := inv.EnabledToolsetIDs()
	if len(enabled) != 1 || enabled[0] != "issues" {
		t.Fatalf("unexpected enabled toolsets %v", enabled)
	}
	if !inv.IsToolsetEnabled("issues") || inv.IsToolsetEnabled("actions") {
		t.Fatalf("toolset filter not applied")
	}
}

func TestFindToolByName(t *testing.T) {
	inv := NewBuilder().SetTools(catalogue()).WithToolsets([]string{}).Build()

	tool, toolsetID, err := inv.FindToolByName("ping")
	if err != nil {
		t.Fatalf("expected to find ping: %v", err)
	}
	if tool.Tool.Name != "ping" || toolsetID != "context" {
		t.Fatalf("unexpected tool %q in %q", tool.Tool.Name, toolsetID)
	}

	_, _, err = inv.FindToolByName("nope")
	var notFound *ToolDoesNotExistError
	if !errors.As(err, &notFound) || notFound.Name != "nope" {
		t.Fatalf("expected ToolDoesNotExistError, got %v", err)
	}
}

func TestAllToolsIgnoresFilters(t *testing.T) {
	inv := NewBuilder().SetTools(catalogue()).WithToolsets([]string{}).WithReadOnly(true).Build()
	if got := len(inv.AllTools()); got != 5 {
		t.Fatalf("expected 5 tools, got %d", got)
	}
}

func TestRegisterAll(t *testing.T) {
	inv := NewBuilder().SetTools(catalogue()).WithToolsets([]string{"issues"}).Build()
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0.0.0"}, nil)
	inv.RegisterAll(context.Background(), server, nil)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer func() { _ = session.Close() }()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(res.Tools) != 2 {
		t.Fatalf("expected 2 registered tools, got %d", len(res.Tools))
	}
}

func TestHandlerPanicsWithoutGenerator(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	tool := ServerTool{Tool: mcp.Tool{Name: "broken"}}
	if tool.HasHandler() {
		t.Fatalf("expected no handler")
	}
	tool.Handler(nil)
}
