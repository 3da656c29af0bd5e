package ghmcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gogithub "github.com/google/go-github/v79/github"
	"github.com/gregjones/httpcache"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shurcooL/githubv4"

	ghErrors "github.com/hautechai/github-mcp/pkg/errors"
	"github.com/hautechai/github-mcp/pkg/github"
	"github.com/hautechai/github-mcp/pkg/inventory"
	"github.com/hautechai/github-mcp/pkg/logs"
)

type MCPServerConfig struct {
	// Version of the server
	Version string

	// GitHub token used for both REST and GraphQL calls
	Token string

	// APIURL is the REST base, e.g. https://api.github.com or
	// https://ghe.example.com/api/v3
	APIURL string

	// GraphQLURL is the GraphQL endpoint
	GraphQLURL string

	// APIVersion is sent as X-GitHub-Api-Version when set
	APIVersion string

	UserAgent   string
	HTTPTimeout time.Duration

	// EnabledToolsets is a list of toolsets to enable. nil means the
	// defaults, "all" enables everything.
	EnabledToolsets []string

	// EnabledTools is a list of additional tools enabled regardless of toolset
	EnabledTools []string

	// ReadOnly indicates if we should only register read-only tools
	ReadOnly bool

	// ContentWindowSize caps tail_lines for the log tools
	ContentWindowSize int

	// Logger is used for bootstrap warnings and per-call logging
	Logger *slog.Logger
}

// headerTransport stamps every outgoing GitHub request with the token, user
// agent and API version.
type headerTransport struct {
	transport  http.RoundTripper
	token      string
	userAgent  string
	apiVersion string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.apiVersion != "" {
		req.Header.Set("X-GitHub-Api-Version", t.apiVersion)
	}
	return t.transport.RoundTrip(req)
}

func (cfg MCPServerConfig) headers(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &headerTransport{
		transport:  base,
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		apiVersion: cfg.APIVersion,
	}
}

// newRESTClient builds the REST client over this transport stack:
//  1. go-github-ratelimit (sleeps through secondary rate limits)
//  2. httpcache (ETag conditional requests)
//  3. headerTransport (auth, user agent, API version)
func newRESTClient(cfg MCPServerConfig, base http.RoundTripper) (*gogithub.Client, error) {
	cache := httpcache.NewTransport(httpcache.NewMemoryCache())
	cache.Transport = cfg.headers(base)

	httpClient := github_ratelimit.NewClient(cache)
	httpClient.Timeout = cfg.HTTPTimeout

	client := gogithub.NewClient(httpClient)
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	if cfg.APIURL != "" {
		baseURL, err := url.Parse(strings.TrimRight(cfg.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("failed to parse API URL: %w", err)
		}
		client.BaseURL = baseURL
	}
	return client, nil
}

func newGraphQLClient(cfg MCPServerConfig, base http.RoundTripper) *githubv4.Client {
	httpClient := &http.Client{
		Transport: &github.GraphQLStatusTransport{Transport: cfg.headers(base)},
		Timeout:   cfg.HTTPTimeout,
	}
	if cfg.GraphQLURL == "" {
		return githubv4.NewClient(httpClient)
	}
	return githubv4.NewEnterpriseClient(cfg.GraphQLURL, httpClient)
}

// newLogRetriever downloads signed log URLs. Those URLs carry their own
// credentials, so no GitHub headers are added.
func newLogRetriever(cfg MCPServerConfig, base http.RoundTripper) *logs.Retriever {
	return logs.NewRetriever(&http.Client{Transport: base, Timeout: cfg.HTTPTimeout})
}

func NewMCPServer(cfg MCPServerConfig) (*mcp.Server, error) {
	return newMCPServer(cfg, nil)
}

// newMCPServer wires the server with base as the innermost transport of
// every client; nil means http.DefaultTransport.
func newMCPServer(cfg MCPServerConfig, base http.RoundTripper) (*mcp.Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	restClient, err := newRESTClient(cfg, base)
	if err != nil {
		return nil, err
	}
	deps := github.NewBaseDeps(
		restClient,
		newGraphQLClient(cfg, base),
		newLogRetriever(cfg, base),
		cfg.ContentWindowSize,
	)

	inv, err := buildInventory(cfg)
	if err != nil {
		return nil, err
	}
	for _, name := range inv.UnrecognizedToolsets() {
		logger.Warn("unrecognized toolset ignored", "toolset", name)
	}

	server := github.NewServer(cfg.Version, nil)
	server.AddReceivingMiddleware(toolCallMiddleware(deps, logger))
	inv.RegisterAll(context.Background(), server, deps)

	logger.Info("server configured",
		"version", cfg.Version,
		"toolsets", inv.EnabledToolsetIDs(),
		"read_only", cfg.ReadOnly,
		"tools", len(inv.AvailableTools(context.Background())))
	return server, nil
}

// buildInventory resolves the enabled tools, rejecting unknown names in
// EnabledTools.
func buildInventory(cfg MCPServerConfig) (*inventory.Inventory, error) {
	inv := github.NewInventory().
		WithReadOnly(cfg.ReadOnly).
		WithToolsets(cfg.EnabledToolsets).
		WithTools(cfg.EnabledTools).
		Build()
	for _, name := range cfg.EnabledTools {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if _, _, err := inv.FindToolByName(name); err != nil {
			return nil, fmt.Errorf("failed to enable tool: %w", err)
		}
	}
	return inv, nil
}

// toolCallMiddleware injects the tool dependencies into every request and
// logs each tools/call with its duration and mapped error codes.
func toolCallMiddleware(deps github.ToolDependencies, logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			ctx = github.ContextWithDeps(ctx, deps)

			call, ok := req.(*mcp.CallToolRequest)
			if !ok {
				return next(ctx, method, req)
			}

			ctx = ghErrors.ContextWithToolErrors(ctx)
			start := time.Now()
			result, err := next(ctx, method, req)

			attrs := []any{"tool", call.Params.Name, "duration", time.Since(start)}
			records, _ := ghErrors.ToolErrorsFromContext(ctx)
			switch {
			case err != nil:
				logger.Error("tool call failed", append(attrs, "error", err)...)
			case len(records) > 0:
				codes := make([]string, 0, len(records))
				for _, rec := range records {
					codes = append(codes, rec.Code)
				}
				causes, _ := ghErrors.CausesFromContext(ctx)
				logger.Warn("tool call returned an error envelope",
					append(attrs, "error_codes", codes, "causes", errors.Join(causes...))...)
			default:
				logger.Debug("tool call", attrs...)
			}
			return result, err
		}
	}
}

type StdioServerConfig struct {
	MCPServerConfig

	// LogFilePath, if set, receives the server log; otherwise it is discarded.
	LogFilePath string

	// EnableCommandLogging logs every JSON-RPC message to the log file.
	EnableCommandLogging bool
}

// RunStdioServer is not concurrent safe.
func RunStdioServer(cfg StdioServerConfig) error {
	if cfg.Token == "" {
		return errors.New("GITHUB_TOKEN or GH_TOKEN not set")
	}

	// Create app context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logOutput io.Writer = io.Discard
	handler := slog.DiscardHandler
	if cfg.LogFilePath != "" {
		file, err := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = file.Close() }()
		logOutput = file
		handler = slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	cfg.Logger = logger
	logger.Info("starting server", "version", cfg.Version, "host", cfg.APIURL)

	server, err := NewMCPServer(cfg.MCPServerConfig)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	var transport mcp.Transport = &mcp.StdioTransport{}
	if cfg.EnableCommandLogging {
		transport = &mcp.LoggingTransport{Transport: transport, Writer: logOutput}
	}

	_, _ = fmt.Fprintf(os.Stderr, "GitHub MCP Server running on stdio\n")

	if err := server.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", "error", err)
		return fmt.Errorf("error running server: %w", err)
	}
	logger.Info("shutting down server")
	return nil
}
