package github

import (
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shurcooL/githubv4"

	"github.com/hautechai/github-mcp/pkg/envelope"
	"github.com/hautechai/github-mcp/pkg/inventory"
	"github.com/hautechai/github-mcp/pkg/pagination"
	"github.com/hautechai/github-mcp/pkg/rate"
	"github.com/hautechai/github-mcp/pkg/utils"
)

var (
	ToolsetMetadataContext = inventory.ToolsetMetadata{
		ID:          "context",
		Description: "Connectivity checks for the server itself",
		Default:     true,
	}
	ToolsetMetadataIssues = inventory.ToolsetMetadata{
		ID:          "issues",
		Description: "GitHub Issues related tools",
		Default:     true,
	}
	ToolsetMetadataPullRequests = inventory.ToolsetMetadata{
		ID:          "pull_requests",
		Description: "GitHub Pull Request related tools",
		Default:     true,
	}
	ToolsetMetadataActions = inventory.ToolsetMetadata{
		ID:          "actions",
		Description: "GitHub Actions workflow runs, jobs and logs",
		Default:     true,
	}
	ToolsetMetadataRepos = inventory.ToolsetMetadata{
		ID:          "repos",
		Description: "GitHub Repository related tools",
		Default:     true,
	}
	ToolsetMetadataSearch = inventory.ToolsetMetadata{
		ID:          "search",
		Description: "Search issues, pull requests and repositories",
		Default:     true,
	}
)

// AllTools returns every tool this server can expose. Handlers are generated
// at registration time and read their dependencies from the request context.
func AllTools() []inventory.ServerTool {
	return []inventory.ServerTool{
		// Context tools
		Ping(),

		// Issue tools
		ListIssues(),
		GetIssue(),
		ListIssueComments(),

		// Pull request tools
		ListPullRequests(),
		GetPullRequest(),
		ListPullRequestFiles(),
		GetPullRequestStatusSummary(),
		ListPullRequestCommits(),
		ListPullRequestReviews(),
		ListPullRequestReviewComments(),
		GetPullRequestDiff(),

		// Repository tools
		ListCommits(),
		GetCommit(),
		ListBranches(),
		ListTags(),
		GetTag(),
		ListReleases(),

		// Search tools
		SearchIssues(),
		SearchPullRequests(),
		SearchRepositories(),

		// Actions tools
		ListWorkflows(),
		ListWorkflowRuns(),
		GetWorkflowRun(),
		ListWorkflowJobs(),
		GetWorkflowJobLogs(),
		GetWorkflowRunLogs(),
	}
}

// pageInfoFragment is the forward-pagination subset of a GraphQL PageInfo.
type pageInfoFragment struct {
	HasNextPage githubv4.Boolean
	EndCursor   githubv4.String
}

func (p pageInfoFragment) meta() pagination.Meta {
	return pagination.FromGraphQL(pagination.PageInfo{
		HasNextPage: bool(p.HasNextPage),
		EndCursor:   string(p.EndCursor),
	})
}

// repositoryParams reads the owner/repo pair every repository tool requires.
func repositoryParams(args map[string]any) (string, string, error) {
	owner, err := RequiredParam[string](args, "owner")
	if err != nil {
		return "", "", err
	}
	repo, err := RequiredParam[string](args, "repo")
	if err != nil {
		return "", "", err
	}
	return owner, repo, nil
}

// afterCursor turns an empty cursor into a null GraphQL variable.
func afterCursor(cursor string) *githubv4.String {
	if cursor == "" {
		return nil
	}
	return githubv4.NewString(githubv4.String(cursor))
}

// formatTime renders t as RFC 3339 UTC. The zero time renders as "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// optionalTime is formatTime for nullable timestamps.
func optionalTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// authorLogin returns login only when the caller asked for authors.
func authorLogin(include bool, login string) *string {
	if !include || login == "" {
		return nil
	}
	return &login
}

func listResult[T any](items []T, page pagination.Meta, quota *rate.Quota, noun string) *mcp.CallToolResult {
	env := envelope.NewList(items, page, quota)
	return utils.NewToolResultEnvelope(env, fmt.Sprintf("%d %s", len(env.Items), noun), false)
}

func itemResult[T any](item T, quota *rate.Quota, summary string) *mcp.CallToolResult {
	return utils.NewToolResultEnvelope(envelope.NewItem(item, quota), summary, false)
}
