package inventory

import (
	"slices"
	"strings"
)

// Keywords accepted by WithToolsets.
const (
	ToolsetAll     = "all"
	ToolsetDefault = "default"
)

// Builder configures an Inventory.
//
//	inv := NewBuilder().
//	    SetTools(tools).
//	    WithReadOnly(true).
//	    WithToolsets([]string{"issues", "actions"}).
//	    Build()
type Builder struct {
	tools []ServerTool

	readOnly        bool
	toolsetIDs      []string
	toolsetIDsIsNil bool
	additionalTools []string
}

// NewBuilder returns a Builder that enables the default toolsets.
func NewBuilder() *Builder {
	return &Builder{toolsetIDsIsNil: true}
}

// SetTools sets the full tool catalogue.
func (b *Builder) SetTools(tools []ServerTool) *Builder {
	b.tools = tools
	return b
}

// WithReadOnly drops every tool not annotated as read-only.
func (b *Builder) WithReadOnly(readOnly bool) *Builder {
	b.readOnly = readOnly
	return b
}

// WithToolsets selects toolsets by ID. "all" enables everything and
// "default" expands to the toolsets marked Default. Entries are trimmed and
// deduplicated. nil means the defaults; an empty slice enables nothing.
func (b *Builder) WithToolsets(toolsetIDs []string) *Builder {
	b.toolsetIDs = toolsetIDs
	b.toolsetIDsIsNil = toolsetIDs == nil
	return b
}

// WithTools enables individual tools regardless of their toolset. The
// read-only filter still applies.
func (b *Builder) WithTools(toolNames []string) *Builder {
	b.additionalTools = toolNames
	return b
}

// Build resolves the configuration into an Inventory.
func (b *Builder) Build() *Inventory {
	inv := &Inventory{
		tools:    b.tools,
		readOnly: b.readOnly,
	}
	inv.toolsetIDs, inv.defaultToolsetIDs, inv.toolsetDescriptions = b.collectToolsets()
	inv.enabledToolsets, inv.unrecognizedToolsets = b.resolveToolsets(inv.toolsetIDs, inv.defaultToolsetIDs)

	if len(b.additionalTools) > 0 {
		inv.additionalTools = make(map[string]bool, len(b.additionalTools))
		for _, name := range b.additionalTools {
			if name = strings.TrimSpace(name); name != "" {
				inv.additionalTools[name] = true
			}
		}
	}
	return inv
}

// collectToolsets returns every toolset ID, the default ones, and their
// descriptions. Both slices are sorted.
func (b *Builder) collectToolsets() ([]ToolsetID, []ToolsetID, map[ToolsetID]string) {
	var all, defaults []ToolsetID
	descriptions := make(map[ToolsetID]string)
	for i := range b.tools {
		ts := b.tools[i].Toolset
		if _, seen := descriptions[ts.ID]; seen {
			continue
		}
		all = append(all, ts.ID)
		if ts.Default {
			defaults = append(defaults, ts.ID)
		}
		descriptions[ts.ID] = ts.Description
	}
	slices.Sort(all)
	slices.Sort(defaults)
	return all, defaults, descriptions
}

// resolveToolsets expands keywords. A nil map means every toolset is enabled.
func (b *Builder) resolveToolsets(all, defaults []ToolsetID) (map[ToolsetID]bool, []string) {
	requested := b.toolsetIDs
	if b.toolsetIDsIsNil {
		requested = []string{ToolsetDefault}
	}
	for _, id := range requested {
		if strings.TrimSpace(id) == ToolsetAll {
			return nil, nil
		}
	}

	enabled := make(map[ToolsetID]bool)
	var unrecognized []string
	for _, id := range requested {
		trimmed := strings.TrimSpace(id)
		switch {
		case trimmed == "":
		case trimmed == ToolsetDefault:
			for _, d := range defaults {
				enabled[d] = true
			}
		default:
			tsID := ToolsetID(trimmed)
			if enabled[tsID] {
				continue
			}
			enabled[tsID] = true
			if !slices.Contains(all, tsID) {
				unrecognized = append(unrecognized, trimmed)
			}
		}
	}
	return enabled, unrecognized
}
