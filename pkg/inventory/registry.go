package inventory

import (
	"cmp"
	"context"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Inventory is a filtered view over the tool catalogue. Create one with
// Builder.
type Inventory struct {
	tools []ServerTool

	toolsetIDs          []ToolsetID
	defaultToolsetIDs   []ToolsetID
	toolsetDescriptions map[ToolsetID]string

	readOnly bool
	// enabledToolsets is nil when every toolset is enabled.
	enabledToolsets map[ToolsetID]bool
	// additionalTools bypass the toolset filter but not the read-only one.
	additionalTools      map[string]bool
	unrecognizedToolsets []string
}

// UnrecognizedToolsets returns requested toolset IDs that match no tool.
func (r *Inventory) UnrecognizedToolsets() []string {
	return r.unrecognizedToolsets
}

// ToolsetIDs returns every toolset ID in sorted order.
func (r *Inventory) ToolsetIDs() []ToolsetID {
	return r.toolsetIDs
}

// DefaultToolsetIDs returns the IDs of toolsets marked Default.
func (r *Inventory) DefaultToolsetIDs() []ToolsetID {
	return r.defaultToolsetIDs
}

// ToolsetDescriptions maps toolset IDs to their descriptions.
func (r *Inventory) ToolsetDescriptions() map[ToolsetID]string {
	return r.toolsetDescriptions
}

// IsToolsetEnabled reports whether tools of toolsetID pass the toolset filter.
func (r *Inventory) IsToolsetEnabled(toolsetID ToolsetID) bool {
	return r.enabledToolsets == nil || r.enabledToolsets[toolsetID]
}

// EnabledToolsetIDs returns the enabled toolsets that actually have tools.
func (r *Inventory) EnabledToolsetIDs() []ToolsetID {
	var ids []ToolsetID
	for _, id := range r.toolsetIDs {
		if r.IsToolsetEnabled(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Inventory) isToolEnabled(tool *ServerTool) bool {
	if r.readOnly && !tool.IsReadOnly() {
		return false
	}
	if r.additionalTools[tool.Tool.Name] {
		return true
	}
	return r.IsToolsetEnabled(tool.Toolset.ID)
}

func sortTools(tools []ServerTool) {
	slices.SortFunc(tools, func(a, b ServerTool) int {
		return cmp.Or(
			cmp.Compare(a.Toolset.ID, b.Toolset.ID),
			cmp.Compare(a.Tool.Name, b.Tool.Name),
		)
	})
}

// AvailableTools returns the tools passing every filter, ordered by toolset
// then name.
func (r *Inventory) AvailableTools(_ context.Context) []ServerTool {
	var result []ServerTool
	for i := range r.tools {
		if r.isToolEnabled(&r.tools[i]) {
			result = append(result, r.tools[i])
		}
	}
	sortTools(result)
	return result
}

// AllTools returns the unfiltered catalogue in the same order as
// AvailableTools.
func (r *Inventory) AllTools() []ServerTool {
	result := slices.Clone(r.tools)
	sortTools(result)
	return result
}

// FindToolByName looks a tool up regardless of filters.
func (r *Inventory) FindToolByName(toolName string) (*ServerTool, ToolsetID, error) {
	for i := range r.tools {
		if r.tools[i].Tool.Name == toolName {
			return &r.tools[i], r.tools[i].Toolset.ID, nil
		}
	}
	return nil, "", NewToolDoesNotExistError(toolName)
}

// RegisterAll adds every available tool to s.
func (r *Inventory) RegisterAll(ctx context.Context, s *mcp.Server, deps any) {
	for _, tool := range r.AvailableTools(ctx) {
		tool.RegisterFunc(s, deps)
	}
}
