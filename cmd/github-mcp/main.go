package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hautechai/github-mcp/internal/config"
	"github.com/hautechai/github-mcp/internal/ghmcp"
)

// These variables are set by the build process using ldflags.
var version = "version"
var commit = "commit"
var date = "date"

var (
	rootCmd = &cobra.Command{
		Use:     "github-mcp",
		Short:   "GitHub MCP Server",
		Long:    `A GitHub MCP server exposing lean, read-only issue, pull request and Actions tools.`,
		Version: fmt.Sprintf("Version: %s\nCommit: %s\nBuild Date: %s", version, commit, date),
	}

	stdioCmd = &cobra.Command{
		Use:   "stdio",
		Short: "Start stdio server",
		Long:  `Start a server that communicates via standard input/output streams using JSON-RPC messages.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Get()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return ghmcp.RunStdioServer(ghmcp.StdioServerConfig{
				MCPServerConfig:      serverConfig(cfg),
				LogFilePath:          cfg.LogFile,
				EnableCommandLogging: cfg.CommandLogging,
			})
		},
	}
)

func serverConfig(cfg config.Config) ghmcp.MCPServerConfig {
	return ghmcp.MCPServerConfig{
		Version:           version,
		Token:             cfg.Token,
		APIURL:            cfg.APIURL,
		GraphQLURL:        cfg.GraphQLURL,
		APIVersion:        cfg.APIVersion,
		UserAgent:         cfg.UserAgent,
		HTTPTimeout:       cfg.HTTPTimeout(),
		EnabledToolsets:   cfg.Toolsets,
		EnabledTools:      cfg.Tools,
		ReadOnly:          cfg.ReadOnly,
		ContentWindowSize: cfg.ContentWindowSize,
	}
}

// flagKeys maps each persistent flag to its configuration key.
var flagKeys = map[string]string{
	"toolsets":               "toolsets",
	"tools":                  "tools",
	"read-only":              "read_only",
	"log-file":               "log_file",
	"enable-command-logging": "enable_command_logging",
	"content-window-size":    "content_window_size",
	"api-url":                "api_url",
	"graphql-url":            "graphql_url",
}

func init() {
	config.SetVersion(version)
	rootCmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)

	rootCmd.SetVersionTemplate("{{.Short}}\n{{.Version}}\n")

	// Add global flags that will be shared by all commands
	rootCmd.PersistentFlags().StringSlice("toolsets", nil, "Comma-separated list of toolsets to enable, \"all\" or \"default\"")
	rootCmd.PersistentFlags().StringSlice("tools", nil, "Comma-separated list of additional tools to enable")
	rootCmd.PersistentFlags().Bool("read-only", false, "Restrict the server to read-only operations")
	rootCmd.PersistentFlags().String("log-file", "", "Path to log file")
	rootCmd.PersistentFlags().Bool("enable-command-logging", false, "When enabled, the server will log all command requests and responses to the log file")
	rootCmd.PersistentFlags().Int("content-window-size", config.DefaultContentWindowSize, "Upper bound for tail_lines in the log tools")
	rootCmd.PersistentFlags().String("api-url", "", "GitHub REST API base URL (default https://api.github.com)")
	rootCmd.PersistentFlags().String("graphql-url", "", "GitHub GraphQL endpoint (default <api-url>/graphql)")

	for flag, key := range flagKeys {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	// Add subcommands
	rootCmd.AddCommand(stdioCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func wordSepNormalizeFunc(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	from := []string{"_"}
	to := "-"
	for _, sep := range from {
		name = strings.ReplaceAll(name, sep, to)
	}
	return pflag.NormalizedName(name)
}
