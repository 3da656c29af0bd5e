package main

import (
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/hautechai/github-mcp/pkg/inventory"
)

// formatToolsetName converts a toolset ID to a human-readable name.
func formatToolsetName(name string) string {
	switch name {
	case "pull_requests":
		return "Pull Requests"
	default:
		// Fallback: capitalize first letter and replace underscores with spaces
		parts := strings.Split(name, "_")
		for i, part := range parts {
			if len(part) > 0 {
				parts[i] = strings.ToUpper(string(part[0])) + part[1:]
			}
		}
		return strings.Join(parts, " ")
	}
}

// requiredParams returns the tool's required input properties, sorted.
func requiredParams(tool inventory.ServerTool) []string {
	schema, ok := tool.Tool.InputSchema.(*jsonschema.Schema)
	if !ok || len(schema.Required) == 0 {
		return nil
	}
	required := append([]string(nil), schema.Required...)
	sort.Strings(required)
	return required
}
