package github

import (
	"github.com/hautechai/github-mcp/pkg/inventory"
)

// NewInventory returns a Builder preloaded with every tool. Handlers are
// generated at registration time via RegisterAll(ctx, server, deps), and the
// "default" toolset keyword expands to the toolsets marked Default.
func NewInventory() *inventory.Builder {
	return inventory.NewBuilder().SetTools(AllTools())
}
