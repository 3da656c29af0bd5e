package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hautechai/github-mcp/internal/config"
	"github.com/hautechai/github-mcp/pkg/github"
	"github.com/hautechai/github-mcp/pkg/inventory"
)

// ToolInfo describes a single enabled tool.
type ToolInfo struct {
	Name        string   `json:"name"`
	Toolset     string   `json:"toolset"`
	Title       string   `json:"title"`
	ReadOnly    bool     `json:"read_only"`
	Required    []string `json:"required,omitempty"`
	Description string   `json:"description"`
}

// ToolsOutput is the full output structure for the list-tools command.
type ToolsOutput struct {
	Tools           []ToolInfo `json:"tools"`
	EnabledToolsets []string   `json:"enabled_toolsets"`
	ReadOnly        bool       `json:"read_only"`
}

var listToolsCmd = &cobra.Command{
	Use:   "list-tools",
	Short: "List the tools the server would register",
	Long: `List every tool enabled by the current configuration.

This command resolves toolsets with the same flags and environment as the
stdio command, without contacting GitHub or requiring a token.

Examples:
  # List tools for default toolsets
  github-mcp list-tools

  # List tools for specific toolsets
  github-mcp list-tools --toolsets=issues,actions

  # Output as JSON
  github-mcp list-tools --output=json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Get()
		if err != nil {
			return err
		}
		inv := github.NewInventory().
			WithReadOnly(cfg.ReadOnly).
			WithToolsets(cfg.Toolsets).
			WithTools(cfg.Tools).
			Build()
		for _, name := range inv.UnrecognizedToolsets() {
			_, _ = fmt.Fprintf(os.Stderr, "warning: unrecognized toolset %q\n", name)
		}

		output := collectTools(inv, cfg.ReadOnly)
		if viper.GetString("list-tools-output") == "json" {
			return writeJSON(cmd.OutOrStdout(), output)
		}
		return writeText(cmd.OutOrStdout(), output)
	},
}

func init() {
	listToolsCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	_ = viper.BindPFlag("list-tools-output", listToolsCmd.Flags().Lookup("output"))

	rootCmd.AddCommand(listToolsCmd)
}

func collectTools(inv *inventory.Inventory, readOnly bool) ToolsOutput {
	var tools []ToolInfo
	for _, serverTool := range inv.AvailableTools(context.Background()) {
		info := ToolInfo{
			Name:        serverTool.Tool.Name,
			Toolset:     string(serverTool.Toolset.ID),
			ReadOnly:    serverTool.IsReadOnly(),
			Description: serverTool.Tool.Description,
		}
		if serverTool.Tool.Annotations != nil {
			info.Title = serverTool.Tool.Annotations.Title
		}
		info.Required = requiredParams(serverTool)
		tools = append(tools, info)
	}

	enabled := inv.EnabledToolsetIDs()
	toolsets := make([]string, len(enabled))
	for i, id := range enabled {
		toolsets[i] = string(id)
	}

	return ToolsOutput{
		Tools:           tools,
		EnabledToolsets: toolsets,
		ReadOnly:        readOnly,
	}
}

func writeJSON(w io.Writer, output ToolsOutput) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func writeText(w io.Writer, output ToolsOutput) error {
	_, _ = fmt.Fprintf(w, "Enabled Toolsets: %s\n", strings.Join(output.EnabledToolsets, ", "))
	_, _ = fmt.Fprintf(w, "Read-Only Mode: %v\n\n", output.ReadOnly)

	// Group tools by toolset
	toolsByToolset := make(map[string][]ToolInfo)
	for _, tool := range output.Tools {
		toolsByToolset[tool.Toolset] = append(toolsByToolset[tool.Toolset], tool)
	}

	var toolsetNames []string
	for name := range toolsByToolset {
		toolsetNames = append(toolsetNames, name)
	}
	sort.Strings(toolsetNames)

	for _, toolsetName := range toolsetNames {
		_, _ = fmt.Fprintf(w, "## %s\n\n", formatToolsetName(toolsetName))
		for _, tool := range toolsByToolset[toolsetName] {
			_, _ = fmt.Fprintf(w, "- %s: %s\n", tool.Name, tool.Title)
			if len(tool.Required) > 0 {
				_, _ = fmt.Fprintf(w, "  required: %s\n", strings.Join(tool.Required, ", "))
			}
		}
		_, _ = fmt.Fprintln(w)
	}
	_, _ = fmt.Fprintf(w, "Total: %d tool(s)\n", len(output.Tools))
	return nil
}
