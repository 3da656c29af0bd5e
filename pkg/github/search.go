package github

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	gogithub "github.com/google/go-github/v79/github"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hautechai/github-mcp/pkg/envelope"
	"github.com/hautechai/github-mcp/pkg/inventory"
	"github.com/hautechai/github-mcp/pkg/pagination"
	"github.com/hautechai/github-mcp/pkg/rate"
	"github.com/hautechai/github-mcp/pkg/sanitize"
	"github.com/hautechai/github-mcp/pkg/utils"
)

// SearchIssue is a hit of an issue or pull request search.
type SearchIssue struct {
	ID            int64   `json:"id"`
	Number        int     `json:"number"`
	Title         string  `json:"title"`
	State         string  `json:"state"`
	RepoFullName  string  `json:"repo_full_name"`
	IsPullRequest bool    `json:"is_pull_request"`
	AuthorLogin   *string `json:"author_login,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// SearchRepository is a hit of a repository search.
type SearchRepository struct {
	FullName        string  `json:"full_name"`
	Private         bool    `json:"private"`
	Description     *string `json:"description"`
	Language        *string `json:"language"`
	StargazersCount int     `json:"stargazers_count"`
	ForksCount      int     `json:"forks_count"`
	OpenIssuesCount int     `json:"open_issues_count"`
	HTMLURL         string  `json:"html_url"`
}

func hasFilter(query, filterType string) bool {
	// Match filter at start of string, after whitespace, or after non-word characters like '('
	pattern := fmt.Sprintf(`(^|\s|\W)%s:\S+`, regexp.QuoteMeta(filterType))
	matched, _ := regexp.MatchString(pattern, query)
	return matched
}

func hasSpecificFilter(query, filterType, filterValue string) bool {
	pattern := fmt.Sprintf(`(^|\s|\W)%s:%s($|\s|\W)`, regexp.QuoteMeta(filterType), regexp.QuoteMeta(filterValue))
	matched, _ := regexp.MatchString(pattern, query)
	return matched
}

// scopedQuery narrows query to searchType ("issue" or "pr") and, when both
// owner and repo are given and the query names no repo, to that repository.
func scopedQuery(query, searchType, owner, repo string) string {
	if !hasSpecificFilter(query, "is", searchType) {
		query = fmt.Sprintf("is:%s %s", searchType, query)
	}
	if owner != "" && repo != "" && !hasFilter(query, "repo") {
		query = fmt.Sprintf("repo:%s/%s %s", owner, repo, query)
	}
	return query
}

// repoFullName derives owner/repo from an API repository URL such as
// https://api.github.com/repos/octo/hello.
func repoFullName(repositoryURL string) string {
	parts := strings.Split(strings.TrimRight(repositoryURL, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

func searchSummary(returned, total int, noun string) string {
	return fmt.Sprintf("%d of %d %s", returned, total, noun)
}

func issueSearchSchema(sortValues ...any) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "Search query using GitHub issues search syntax",
			},
			"owner": {
				Type:        "string",
				Description: "Optional repository owner. Scopes the search together with repo",
			},
			"repo": {
				Type:        "string",
				Description: "Optional repository name. Scopes the search together with owner",
			},
			"sort": {
				Type:        "string",
				Description: "Sort field, defaults to best match",
				Enum:        sortValues,
			},
			"order": {
				Type:        "string",
				Description: "Sort order",
				Enum:        []any{"asc", "desc"},
			},
			"include_author": includeAuthorSchema(),
		},
		Required: []string{"query"},
	}
	return WithPagination(schema)
}

var issueSortValues = []any{
	"comments", "reactions", "reactions-+1", "reactions--1", "reactions-smile",
	"reactions-thinking_face", "reactions-heart", "reactions-tada", "interactions",
	"created", "updated",
}

// searchOptions reads the sort, order and pagination parameters shared by the
// search tools.
func searchOptions(args map[string]any) (*gogithub.SearchOptions, PaginationParams, error) {
	sort, err := OptionalParam[string](args, "sort")
	if err != nil {
		return nil, PaginationParams{}, err
	}
	order, err := OptionalParam[string](args, "order")
	if err != nil {
		return nil, PaginationParams{}, err
	}
	page, err := OptionalPaginationParams(args)
	if err != nil {
		return nil, PaginationParams{}, err
	}
	return &gogithub.SearchOptions{
		Sort:  sort,
		Order: order,
		ListOptions: gogithub.ListOptions{
			Page:    page.Page,
			PerPage: page.PerPage,
		},
	}, page, nil
}

func searchIssuesHandler(searchType, noun string) func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		query, err := RequiredParam[string](args, "query")
		if err != nil {
			return InvalidArgumentResult(ctx, err), nil, nil
		}
		owner, err := OptionalParam[string](args, "owner")
		if err != nil {
			return InvalidArgumentResult(ctx, err), nil, nil
		}
		repo, err := OptionalParam[string](args, "repo")
		if err != nil {
			return InvalidArgumentResult(ctx, err), nil, nil
		}
		includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
		if err != nil {
			return InvalidArgumentResult(ctx, err), nil, nil
		}
		opts, page, err := searchOptions(args)
		if err != nil {
			return InvalidArgumentResult(ctx, err), nil, nil
		}
		query = scopedQuery(query, searchType, owner, repo)

		client, err := deps.GetClient(ctx)
		if err != nil {
			return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
		}

		result, resp, err := client.Search.Issues(ctx, query, opts)
		if err != nil {
			return restFailure(ctx, fmt.Sprintf("failed to search %s with query '%s'", noun, query), resp, err), nil, nil
		}

		items := make([]SearchIssue, 0, len(result.Issues))
		for _, issue := range result.Issues {
			items = append(items, SearchIssue{
				ID:            issue.GetID(),
				Number:        issue.GetNumber(),
				Title:         sanitize.Text(issue.GetTitle()),
				State:         issue.GetState(),
				RepoFullName:  repoFullName(issue.GetRepositoryURL()),
				IsPullRequest: issue.IsPullRequest(),
				AuthorLogin:   authorLogin(includeAuthor, issue.GetUser().GetLogin()),
				CreatedAt:     formatTime(issue.GetCreatedAt().Time),
				UpdatedAt:     formatTime(issue.GetUpdatedAt().Time),
			})
		}
		meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(result.Issues))
		env := envelope.NewList(items, meta, rate.FromResponse(resp))
		return utils.NewToolResultEnvelope(env, searchSummary(len(items), result.GetTotal(), noun), false), nil, nil
	}
}

// SearchIssues creates a tool to search issues across GitHub.
func SearchIssues() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataSearch,
		mcp.Tool{
			Name:        "search_issues",
			Description: "Search issues with GitHub issues search syntax. Results are restricted to issues; owner and repo scope the search to one repository",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Search issues",
				ReadOnlyHint: true,
			},
			InputSchema: issueSearchSchema(issueSortValues...),
		},
		searchIssuesHandler("issue", "issues"),
	)
}

// SearchPullRequests creates a tool to search pull requests across GitHub.
func SearchPullRequests() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataSearch,
		mcp.Tool{
			Name:        "search_pull_requests",
			Description: "Search pull requests with GitHub issues search syntax. Results are restricted to pull requests; owner and repo scope the search to one repository",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Search pull requests",
				ReadOnlyHint: true,
			},
			InputSchema: issueSearchSchema(issueSortValues...),
		},
		searchIssuesHandler("pr", "pull requests"),
	)
}

// SearchRepositories creates a tool to search repositories across GitHub.
func SearchRepositories() inventory.ServerTool {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "Repository search query. Examples: 'machine learning in:name stars:>1000 language:python', 'topic:react', 'user:facebook'",
			},
			"sort": {
				Type:        "string",
				Description: "Sort repositories by field, defaults to best match",
				Enum:        []any{"stars", "forks", "help-wanted-issues", "updated"},
			},
			"order": {
				Type:        "string",
				Description: "Sort order",
				Enum:        []any{"asc", "desc"},
			},
		},
		Required: []string{"query"},
	}
	WithPagination(schema)

	return NewTool(
		ToolsetMetadataSearch,
		mcp.Tool{
			Name:        "search_repositories",
			Description: "Find GitHub repositories by name, description, readme, topics, or other metadata",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Search repositories",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			query, err := RequiredParam[string](args, "query")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			opts, page, err := searchOptions(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			result, resp, err := client.Search.Repositories(ctx, query, opts)
			if err != nil {
				return restFailure(ctx, fmt.Sprintf("failed to search repositories with query '%s'", query), resp, err), nil, nil
			}

			items := make([]SearchRepository, 0, len(result.Repositories))
			for _, r := range result.Repositories {
				repo := SearchRepository{
					FullName:        r.GetFullName(),
					Private:         r.GetPrivate(),
					StargazersCount: r.GetStargazersCount(),
					ForksCount:      r.GetForksCount(),
					OpenIssuesCount: r.GetOpenIssuesCount(),
					HTMLURL:         r.GetHTMLURL(),
				}
				if r.Description != nil {
					desc := sanitize.Text(r.GetDescription())
					repo.Description = &desc
				}
				if r.Language != nil {
					lang := r.GetLanguage()
					repo.Language = &lang
				}
				items = append(items, repo)
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(result.Repositories))
			env := envelope.NewList(items, meta, rate.FromResponse(resp))
			return utils.NewToolResultEnvelope(env, searchSummary(len(items), result.GetTotal(), "repositories"), false), nil, nil
		},
	)
}
