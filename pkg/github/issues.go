package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shurcooL/githubv4"

	ghErrors "github.com/hautechai/github-mcp/pkg/errors"
	"github.com/hautechai/github-mcp/pkg/inventory"
	"github.com/hautechai/github-mcp/pkg/rate"
	"github.com/hautechai/github-mcp/pkg/sanitize"
)

// Issue is the list view of an issue.
type Issue struct {
	ID          string  `json:"id"`
	Number      int     `json:"number"`
	Title       string  `json:"title"`
	State       string  `json:"state"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	AuthorLogin *string `json:"author_login,omitempty"`
}

// IssueDetail is a single issue including its body.
type IssueDetail struct {
	Issue
	Body string `json:"body"`
}

// IssueComment is a comment on an issue.
type IssueComment struct {
	ID          string  `json:"id"`
	Body        string  `json:"body"`
	AuthorLogin *string `json:"author_login,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type actorFragment struct {
	Login githubv4.String
}

type issueFragment struct {
	ID        githubv4.String
	Number    githubv4.Int
	Title     githubv4.String
	State     githubv4.String
	CreatedAt githubv4.DateTime
	UpdatedAt githubv4.DateTime
	Author    actorFragment
}

func (f issueFragment) toIssue(includeAuthor bool) Issue {
	return Issue{
		ID:          string(f.ID),
		Number:      int(f.Number),
		Title:       sanitize.Text(string(f.Title)),
		State:       string(f.State),
		CreatedAt:   formatTime(f.CreatedAt.Time),
		UpdatedAt:   formatTime(f.UpdatedAt.Time),
		AuthorLogin: authorLogin(includeAuthor, string(f.Author.Login)),
	}
}

var (
	issueStates = map[string][]githubv4.IssueState{
		"open":   {githubv4.IssueStateOpen},
		"closed": {githubv4.IssueStateClosed},
		"all":    nil,
	}
	issueOrderFields = map[string]githubv4.IssueOrderField{
		"created":  githubv4.IssueOrderFieldCreatedAt,
		"updated":  githubv4.IssueOrderFieldUpdatedAt,
		"comments": githubv4.IssueOrderFieldComments,
	}
	orderDirections = map[string]githubv4.OrderDirection{
		"asc":  githubv4.OrderDirectionAsc,
		"desc": githubv4.OrderDirectionDesc,
	}
)

// enumParam reads an optional lower-case enum parameter. def is used when the
// parameter is absent or empty.
func enumParam[T any](args map[string]any, p string, values map[string]T, def string) (T, error) {
	var zero T
	v, err := OptionalParam[string](args, p)
	if err != nil {
		return zero, err
	}
	if v == "" {
		v = def
	}
	out, ok := values[strings.ToLower(v)]
	if !ok {
		return zero, fmt.Errorf("invalid %s: %q", p, v)
	}
	return out, nil
}

// optionalStringVar turns an empty string into a nil GraphQL input field.
func optionalStringVar(s string) *githubv4.String {
	if s == "" {
		return nil
	}
	return githubv4.NewString(githubv4.String(s))
}

func graphQLFailure(ctx context.Context, message string, err error) *mcp.CallToolResult {
	return FailureResult(ctx, ghErrors.NewGitHubGraphQLError(message, err), nil)
}

func notFoundFailure(ctx context.Context, message string, quota *rate.Quota) *mcp.CallToolResult {
	return FailureResult(ctx, ghErrors.NewNamedError(ghErrors.CodeNotFound, message, nil), quota)
}

func issueNumberSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "number",
		Description: "Issue number",
	}
}

func includeAuthorSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "boolean",
		Description: "Include author_login on each result (default false)",
	}
}

// ListIssues creates a tool to list issues in a repository.
func ListIssues() inventory.ServerTool {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"owner": {
				Type:        "string",
				Description: DescriptionRepositoryOwner,
			},
			"repo": {
				Type:        "string",
				Description: DescriptionRepositoryName,
			},
			"state": {
				Type:        "string",
				Description: "Filter by state (default all)",
				Enum:        []any{"open", "closed", "all"},
			},
			"labels": {
				Type:        "array",
				Description: "Only issues carrying all of these labels",
				Items: &jsonschema.Schema{
					Type: "string",
				},
			},
			"creator": {
				Type:        "string",
				Description: "Only issues opened by this user",
			},
			"assignee": {
				Type:        "string",
				Description: "Only issues assigned to this user",
			},
			"mentions": {
				Type:        "string",
				Description: "Only issues mentioning this user",
			},
			"since": {
				Type:        "string",
				Description: "Only issues updated at or after this time (ISO 8601)",
			},
			"sort": {
				Type:        "string",
				Description: "Sort field (default created)",
				Enum:        []any{"created", "updated", "comments"},
			},
			"direction": {
				Type:        "string",
				Description: "Sort direction (default desc)",
				Enum:        []any{"asc", "desc"},
			},
			"include_author": includeAuthorSchema(),
		},
		Required: []string{"owner", "repo"},
	}
	WithCursorPagination(schema)

	return NewTool(
		ToolsetMetadataIssues,
		mcp.Tool{
			Name:        "list_issues",
			Description: "List issues in a GitHub repository. Pass meta.next_cursor of the previous result as 'cursor' to fetch the next page.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List issues",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			states, err := enumParam(args, "state", issueStates, "all")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			labels, err := OptionalStringArrayParam(args, "labels")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			creator, err := OptionalParam[string](args, "creator")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			assignee, err := OptionalParam[string](args, "assignee")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			mentions, err := OptionalParam[string](args, "mentions")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			since, err := OptionalParam[string](args, "since")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			orderField, err := enumParam(args, "sort", issueOrderFields, "created")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			direction, err := enumParam(args, "direction", orderDirections, "desc")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			cursorParams, err := OptionalCursorPaginationParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			filters := githubv4.IssueFilters{
				Assignee:  optionalStringVar(assignee),
				CreatedBy: optionalStringVar(creator),
				Mentioned: optionalStringVar(mentions),
			}
			if states != nil {
				filters.States = &states
			}
			if len(labels) > 0 {
				labelNames := make([]githubv4.String, len(labels))
				for i, label := range labels {
					labelNames[i] = githubv4.String(label)
				}
				filters.Labels = &labelNames
			}
			if since != "" {
				sinceTime, err := parseISOTimestamp(since)
				if err != nil {
					return InvalidArgumentResult(ctx, err), nil, nil
				}
				filters.Since = &githubv4.DateTime{Time: sinceTime}
			}

			client, err := deps.GetGQLClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub GQL client: %w", err), nil), nil, nil
			}

			var query struct {
				Repository *struct {
					Issues struct {
						Nodes    []issueFragment
						PageInfo pageInfoFragment
					} `graphql:"issues(first: $first, after: $after, filterBy: $filterBy, orderBy: $orderBy)"`
				} `graphql:"repository(owner: $owner, name: $repo)"`
				RateLimit *rate.GraphQLRateLimit
			}
			vars := map[string]any{
				"owner":    githubv4.String(owner),
				"repo":     githubv4.String(repo),
				"first":    githubv4.Int(cursorParams.Limit),
				"after":    afterCursor(cursorParams.After),
				"filterBy": filters,
				"orderBy": githubv4.IssueOrder{
					Field:     orderField,
					Direction: direction,
				},
			}
			if err := client.Query(ctx, &query, vars); err != nil {
				return graphQLFailure(ctx, "failed to list issues", err), nil, nil
			}

			quota := rate.FromGraphQL(query.RateLimit)
			if query.Repository == nil {
				return notFoundFailure(ctx, "Repository not found", quota), nil, nil
			}

			issues := make([]Issue, 0, len(query.Repository.Issues.Nodes))
			for _, node := range query.Repository.Issues.Nodes {
				issues = append(issues, node.toIssue(includeAuthor))
			}
			return listResult(issues, query.Repository.Issues.PageInfo.meta(), quota, "issues"), nil, nil
		},
	)
}

// GetIssue creates a tool to get a single issue, body included.
func GetIssue() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataIssues,
		mcp.Tool{
			Name:        "get_issue",
			Description: "Get details of a specific issue in a GitHub repository.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get issue details",
				ReadOnlyHint: true,
			},
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"owner": {
						Type:        "string",
						Description: DescriptionRepositoryOwner,
					},
					"repo": {
						Type:        "string",
						Description: DescriptionRepositoryName,
					},
					"number":         issueNumberSchema(),
					"include_author": includeAuthorSchema(),
				},
				Required: []string{"owner", "repo", "number"},
			},
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			number, err := RequiredInt(args, "number")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetGQLClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub GQL client: %w", err), nil), nil, nil
			}

			var query struct {
				Repository *struct {
					Issue *struct {
						issueFragment
						Body githubv4.String
					} `graphql:"issue(number: $number)"`
				} `graphql:"repository(owner: $owner, name: $repo)"`
				RateLimit *rate.GraphQLRateLimit
			}
			vars := map[string]any{
				"owner":  githubv4.String(owner),
				"repo":   githubv4.String(repo),
				"number": githubv4.Int(number),
			}
			if err := client.Query(ctx, &query, vars); err != nil {
				return graphQLFailure(ctx, "failed to get issue", err), nil, nil
			}

			quota := rate.FromGraphQL(query.RateLimit)
			if query.Repository == nil {
				return notFoundFailure(ctx, "Repository not found", quota), nil, nil
			}
			if query.Repository.Issue == nil {
				return notFoundFailure(ctx, "Issue not found", quota), nil, nil
			}

			node := query.Repository.Issue
			issue := IssueDetail{
				Issue: node.toIssue(includeAuthor),
				Body:  sanitize.Markdown(string(node.Body)),
			}
			return itemResult(issue, quota, fmt.Sprintf("Issue #%d %s", issue.Number, issue.State)), nil, nil
		},
	)
}

// ListIssueComments creates a tool to list the comments of an issue.
func ListIssueComments() inventory.ServerTool {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"owner": {
				Type:        "string",
				Description: DescriptionRepositoryOwner,
			},
			"repo": {
				Type:        "string",
				Description: DescriptionRepositoryName,
			},
			"number":         issueNumberSchema(),
			"include_author": includeAuthorSchema(),
		},
		Required: []string{"owner", "repo", "number"},
	}
	WithCursorPagination(schema)

	return NewTool(
		ToolsetMetadataIssues,
		mcp.Tool{
			Name:        "list_issue_comments",
			Description: "List comments on an issue, oldest first.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List issue comments",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			number, err := RequiredInt(args, "number")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			cursorParams, err := OptionalCursorPaginationParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetGQLClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub GQL client: %w", err), nil), nil, nil
			}

			var query struct {
				Repository *struct {
					Issue *struct {
						Comments struct {
							Nodes []struct {
								ID        githubv4.String
								Body      githubv4.String
								CreatedAt githubv4.DateTime
								UpdatedAt githubv4.DateTime
								Author    actorFragment
							}
							PageInfo pageInfoFragment
						} `graphql:"comments(first: $first, after: $after)"`
					} `graphql:"issue(number: $number)"`
				} `graphql:"repository(owner: $owner, name: $repo)"`
				RateLimit *rate.GraphQLRateLimit
			}
			vars := map[string]any{
				"owner":  githubv4.String(owner),
				"repo":   githubv4.String(repo),
				"number": githubv4.Int(number),
				"first":  githubv4.Int(cursorParams.Limit),
				"after":  afterCursor(cursorParams.After),
			}
			if err := client.Query(ctx, &query, vars); err != nil {
				return graphQLFailure(ctx, "failed to list issue comments", err), nil, nil
			}

			quota := rate.FromGraphQL(query.RateLimit)
			if query.Repository == nil || query.Repository.Issue == nil {
				return notFoundFailure(ctx, "Issue not found", quota), nil, nil
			}

			conn := query.Repository.Issue.Comments
			comments := make([]IssueComment, 0, len(conn.Nodes))
			for _, node := range conn.Nodes {
				comments = append(comments, IssueComment{
					ID:          string(node.ID),
					Body:        sanitize.Markdown(string(node.Body)),
					AuthorLogin: authorLogin(includeAuthor, string(node.Author.Login)),
					CreatedAt:   formatTime(node.CreatedAt.Time),
					UpdatedAt:   formatTime(node.UpdatedAt.Time),
				})
			}
			return listResult(comments, conn.PageInfo.meta(), quota, "comments"), nil, nil
		},
	)
}

// parseISOTimestamp parses an ISO 8601 timestamp string into a time.Time object.
// Returns the parsed time or an error if parsing fails.
// Example formats supported: "2023-01-15T14:30:00Z", "2023-01-15"
func parseISOTimestamp(timestamp string) (time.Time, error) {
	if timestamp == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	// Try RFC3339 format (standard ISO 8601 with time)
	t, err := time.Parse(time.RFC3339, timestamp)
	if err == nil {
		return t, nil
	}

	// Try simple date format (YYYY-MM-DD)
	t, err = time.Parse("2006-01-02", timestamp)
	if err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid ISO 8601 timestamp: %s (supported formats: YYYY-MM-DDThh:mm:ssZ or YYYY-MM-DD)", timestamp)
}
