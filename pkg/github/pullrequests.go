package github

import (
	"context"
	"fmt"

	gogithub "github.com/google/go-github/v79/github"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shurcooL/githubv4"

	ghErrors "github.com/hautechai/github-mcp/pkg/errors"
	"github.com/hautechai/github-mcp/pkg/inventory"
	"github.com/hautechai/github-mcp/pkg/pagination"
	"github.com/hautechai/github-mcp/pkg/rate"
	"github.com/hautechai/github-mcp/pkg/rollup"
	"github.com/hautechai/github-mcp/pkg/sanitize"
)

const (
	// DefaultContextLimit is how many status contexts get_pr_status_summary
	// inspects when limit_contexts is not given.
	DefaultContextLimit = 10
)

// PullRequest is the list view of a pull request.
type PullRequest struct {
	ID          string  `json:"id"`
	Number      int     `json:"number"`
	Title       string  `json:"title"`
	State       string  `json:"state"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	AuthorLogin *string `json:"author_login,omitempty"`
}

// PullRequestDetail is a single pull request including its body and merge state.
type PullRequestDetail struct {
	PullRequest
	Body     string  `json:"body"`
	IsDraft  bool    `json:"is_draft"`
	Merged   bool    `json:"merged"`
	MergedAt *string `json:"merged_at,omitempty"`
}

// PullRequestFile is one changed file of a pull request.
type PullRequestFile struct {
	Filename  string  `json:"filename"`
	Status    string  `json:"status"`
	Additions int     `json:"additions"`
	Deletions int     `json:"deletions"`
	Changes   int     `json:"changes"`
	SHA       string  `json:"sha"`
	Patch     *string `json:"patch,omitempty"`
}

// PullRequestStatus is the CI rollup of the head commit of a pull request.
type PullRequestStatus struct {
	HeadSHA string `json:"head_sha,omitempty"`
	rollup.Rollup
}

// pullRequestFragment shares its selection with issueFragment.
type pullRequestFragment = issueFragment

func (f pullRequestFragment) toPullRequest(includeAuthor bool) PullRequest {
	return PullRequest(f.toIssue(includeAuthor))
}

// statusContextNode is one member of the StatusCheckRollupContext union.
type statusContextNode struct {
	Typename githubv4.String `graphql:"__typename"`
	CheckRun struct {
		Name       githubv4.String
		Conclusion githubv4.String
	} `graphql:"... on CheckRun"`
	StatusContext struct {
		Context githubv4.String
		State   githubv4.String
	} `graphql:"... on StatusContext"`
}

func (n statusContextNode) result() rollup.CheckResult {
	switch n.Typename {
	case "CheckRun":
		return rollup.CheckRun{
			Name:       sanitize.Text(string(n.CheckRun.Name)),
			Conclusion: string(n.CheckRun.Conclusion),
		}
	case "StatusContext":
		return rollup.StatusContext{
			Context: sanitize.Text(string(n.StatusContext.Context)),
			State:   string(n.StatusContext.State),
		}
	default:
		return nil
	}
}

var pullRequestStates = map[string]*[]githubv4.PullRequestState{
	"open":   {githubv4.PullRequestStateOpen},
	"closed": {githubv4.PullRequestStateClosed},
	"merged": {githubv4.PullRequestStateMerged},
	"all":    nil,
}

func pullNumberSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "number",
		Description: "Pull request number",
	}
}

// ListPullRequests creates a tool to list pull requests, most recently
// updated first.
func ListPullRequests() inventory.ServerTool {
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
				Enum:        []any{"open", "closed", "merged", "all"},
			},
			"base": {
				Type:        "string",
				Description: "Filter by base branch name",
			},
			"head": {
				Type:        "string",
				Description: "Filter by head branch name",
			},
			"include_author": includeAuthorSchema(),
		},
		Required: []string{"owner", "repo"},
	}
	WithCursorPagination(schema)

	return NewTool(
		ToolsetMetadataPullRequests,
		mcp.Tool{
			Name:        "list_pull_requests",
			Description: "List pull requests in a GitHub repository, most recently updated first.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List pull requests",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			states, err := enumParam(args, "state", pullRequestStates, "all")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			base, err := OptionalParam[string](args, "base")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			head, err := OptionalParam[string](args, "head")
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
					PullRequests struct {
						Nodes    []pullRequestFragment
						PageInfo pageInfoFragment
					} `graphql:"pullRequests(first: $first, after: $after, states: $states, baseRefName: $base, headRefName: $head, orderBy: {field: UPDATED_AT, direction: DESC})"`
				} `graphql:"repository(owner: $owner, name: $repo)"`
				RateLimit *rate.GraphQLRateLimit
			}
			vars := map[string]any{
				"owner":  githubv4.String(owner),
				"repo":   githubv4.String(repo),
				"first":  githubv4.Int(cursorParams.Limit),
				"after":  afterCursor(cursorParams.After),
				"states": states,
				"base":   optionalStringVar(base),
				"head":   optionalStringVar(head),
			}
			if err := client.Query(ctx, &query, vars); err != nil {
				return graphQLFailure(ctx, "failed to list pull requests", err), nil, nil
			}

			quota := rate.FromGraphQL(query.RateLimit)
			if query.Repository == nil {
				return notFoundFailure(ctx, "Repository not found", quota), nil, nil
			}

			prs := make([]PullRequest, 0, len(query.Repository.PullRequests.Nodes))
			for _, node := range query.Repository.PullRequests.Nodes {
				prs = append(prs, node.toPullRequest(includeAuthor))
			}
			return listResult(prs, query.Repository.PullRequests.PageInfo.meta(), quota, "pull requests"), nil, nil
		},
	)
}

// GetPullRequest creates a tool to get a single pull request.
func GetPullRequest() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataPullRequests,
		mcp.Tool{
			Name:        "get_pull_request",
			Description: "Get details of a specific pull request, including body, draft and merge state.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get pull request details",
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
					"number":         pullNumberSchema(),
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
					PullRequest *struct {
						pullRequestFragment
						Body     githubv4.String
						IsDraft  githubv4.Boolean
						Merged   githubv4.Boolean
						MergedAt *githubv4.DateTime
					} `graphql:"pullRequest(number: $number)"`
				} `graphql:"repository(owner: $owner, name: $repo)"`
				RateLimit *rate.GraphQLRateLimit
			}
			vars := map[string]any{
				"owner":  githubv4.String(owner),
				"repo":   githubv4.String(repo),
				"number": githubv4.Int(number),
			}
			if err := client.Query(ctx, &query, vars); err != nil {
				return graphQLFailure(ctx, "failed to get pull request", err), nil, nil
			}

			quota := rate.FromGraphQL(query.RateLimit)
			if query.Repository == nil {
				return notFoundFailure(ctx, "Repository not found", quota), nil, nil
			}
			if query.Repository.PullRequest == nil {
				return notFoundFailure(ctx, "Pull request not found", quota), nil, nil
			}

			node := query.Repository.PullRequest
			pr := PullRequestDetail{
				PullRequest: node.toPullRequest(includeAuthor),
				Body:        sanitize.Markdown(string(node.Body)),
				IsDraft:     bool(node.IsDraft),
				Merged:      bool(node.Merged),
			}
			if node.MergedAt != nil {
				pr.MergedAt = optionalTime(&node.MergedAt.Time)
			}
			return itemResult(pr, quota, fmt.Sprintf("PR #%d %s", pr.Number, pr.State)), nil, nil
		},
	)
}

// ListPullRequestFiles creates a tool to list the files changed by a pull request.
func ListPullRequestFiles() inventory.ServerTool {
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
			"number": pullNumberSchema(),
			"include_patch": {
				Type:        "boolean",
				Description: "Include the unified diff of each file (default false)",
			},
		},
		Required: []string{"owner", "repo", "number"},
	}
	WithPagination(schema)

	return NewTool(
		ToolsetMetadataPullRequests,
		mcp.Tool{
			Name:        "list_pr_files",
			Description: "List the files changed in a pull request with per-file line counts.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List pull request files",
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
			includePatch, err := OptionalBoolParamWithDefault(args, "include_patch", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			page, err := OptionalPaginationParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			files, resp, err := client.PullRequests.ListFiles(ctx, owner, repo, number, &gogithub.ListOptions{
				Page:    page.Page,
				PerPage: page.PerPage,
			})
			quota := rate.FromResponse(resp)
			if err != nil {
				return FailureResult(ctx, ghErrors.NewGitHubAPIError("failed to list pull request files", resp, err), quota), nil, nil
			}

			items := make([]PullRequestFile, 0, len(files))
			for _, f := range files {
				items = append(items, toPullRequestFile(f, includePatch))
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(files))
			return listResult(items, meta, quota, "files"), nil, nil
		},
	)
}

// GetPullRequestStatusSummary creates a tool that rolls the checks and
// commit statuses of a pull request's head commit into one verdict.
func GetPullRequestStatusSummary() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataPullRequests,
		mcp.Tool{
			Name:        "get_pr_status_summary",
			Description: "Summarize CI for the head commit of a pull request: overall state plus success, pending and failure counts over its check runs and commit statuses.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get pull request CI status",
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
					"number": pullNumberSchema(),
					"include_failing_contexts": {
						Type:        "boolean",
						Description: "List the names of failing checks (default false)",
					},
					"limit_contexts": {
						Type:        "number",
						Description: "How many checks to inspect (min 1, max 100, default 10)",
						Minimum:     jsonschema.Ptr(1.0),
						Maximum:     jsonschema.Ptr(100.0),
					},
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
			includeFailing, err := OptionalBoolParamWithDefault(args, "include_failing_contexts", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			limitContexts, err := boundedParam(args, "limit_contexts", DefaultContextLimit)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetGQLClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub GQL client: %w", err), nil), nil, nil
			}

			var query struct {
				Repository *struct {
					PullRequest *struct {
						Commits struct {
							Nodes []struct {
								Commit struct {
									OID               githubv4.String `graphql:"oid"`
									StatusCheckRollup *struct {
										State    githubv4.String
										Contexts struct {
											Nodes []statusContextNode
										} `graphql:"contexts(first: $limitContexts)"`
									}
								}
							}
						} `graphql:"commits(last: 1)"`
					} `graphql:"pullRequest(number: $number)"`
				} `graphql:"repository(owner: $owner, name: $repo)"`
				RateLimit *rate.GraphQLRateLimit
			}
			vars := map[string]any{
				"owner":         githubv4.String(owner),
				"repo":          githubv4.String(repo),
				"number":        githubv4.Int(number),
				"limitContexts": githubv4.Int(limitContexts),
			}
			if err := client.Query(ctx, &query, vars); err != nil {
				return graphQLFailure(ctx, "failed to get pull request status", err), nil, nil
			}

			quota := rate.FromGraphQL(query.RateLimit)
			if query.Repository == nil || query.Repository.PullRequest == nil {
				return notFoundFailure(ctx, "Pull request not found", quota), nil, nil
			}

			var (
				status        PullRequestStatus
				results       []rollup.CheckResult
				authoritative string
			)
			if commits := query.Repository.PullRequest.Commits.Nodes; len(commits) > 0 {
				commit := commits[0].Commit
				status.HeadSHA = string(commit.OID)
				if commit.StatusCheckRollup != nil {
					authoritative = string(commit.StatusCheckRollup.State)
					for _, node := range commit.StatusCheckRollup.Contexts.Nodes {
						results = append(results, node.result())
					}
				}
			}
			status.Rollup = rollup.Aggregate(results, authoritative, includeFailing)

			summary := fmt.Sprintf("status: S=%d P=%d F=%d", status.Counts.Success, status.Counts.Pending, status.Counts.Failure)
			return itemResult(status, quota, summary), nil, nil
		},
	)
}

// PullRequestCommit is one commit of a pull request.
type PullRequestCommit struct {
	SHA         string  `json:"sha"`
	Title       string  `json:"title"`
	AuthoredAt  *string `json:"authored_at"`
	AuthorLogin *string `json:"author_login,omitempty"`
}

// PullRequestReview is a submitted review of a pull request.
type PullRequestReview struct {
	ID          int64   `json:"id"`
	State       string  `json:"state"`
	SubmittedAt *string `json:"submitted_at"`
	AuthorLogin *string `json:"author_login,omitempty"`
}

// ReviewComment is an inline review comment. The location fields are only
// filled when include_location is set.
type ReviewComment struct {
	ID                int64   `json:"id"`
	Body              string  `json:"body"`
	AuthorLogin       *string `json:"author_login,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
	Path              *string `json:"path,omitempty"`
	Line              *int    `json:"line,omitempty"`
	StartLine         *int    `json:"start_line,omitempty"`
	Side              *string `json:"side,omitempty"`
	StartSide         *string `json:"start_side,omitempty"`
	OriginalLine      *int    `json:"original_line,omitempty"`
	OriginalStartLine *int    `json:"original_start_line,omitempty"`
	DiffHunk          *string `json:"diff_hunk,omitempty"`
	CommitID          *string `json:"commit_sha,omitempty"`
	OriginalCommitID  *string `json:"original_commit_sha,omitempty"`
}

// PullRequestDiff is the unified diff of a pull request.
type PullRequestDiff struct {
	Number int    `json:"number"`
	Diff   string `json:"diff"`
}

func pullRequestListSchema(extra map[string]*jsonschema.Schema) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{"number": pullNumberSchema()}
	for k, v := range extra {
		props[k] = v
	}
	return WithPagination(repositorySchema(props, "number"))
}

// pullRequestListParams reads the owner, repo, number and page every pull
// request sub-resource tool takes.
func pullRequestListParams(args map[string]any) (owner, repo string, number int, page PaginationParams, err error) {
	if owner, repo, err = repositoryParams(args); err != nil {
		return
	}
	if number, err = RequiredInt(args, "number"); err != nil {
		return
	}
	page, err = OptionalPaginationParams(args)
	return
}

// ListPullRequestCommits creates a tool to list the commits of a pull request.
func ListPullRequestCommits() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataPullRequests,
		mcp.Tool{
			Name:        "list_pr_commits",
			Description: "List the commits of a pull request in the order they were made",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List pull request commits",
				ReadOnlyHint: true,
			},
			InputSchema: pullRequestListSchema(map[string]*jsonschema.Schema{
				"include_author": includeAuthorSchema(),
			}),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, number, page, err := pullRequestListParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			commits, resp, err := client.PullRequests.ListCommits(ctx, owner, repo, number, &gogithub.ListOptions{
				Page:    page.Page,
				PerPage: page.PerPage,
			})
			if err != nil {
				return restFailure(ctx, "failed to list pull request commits", resp, err), nil, nil
			}

			items := make([]PullRequestCommit, 0, len(commits))
			for _, c := range commits {
				commit := toCommit(c, includeAuthor)
				items = append(items, PullRequestCommit{
					SHA:         commit.SHA,
					Title:       commit.Title,
					AuthoredAt:  commit.AuthoredAt,
					AuthorLogin: commit.AuthorLogin,
				})
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(commits))
			return listResult(items, meta, rate.FromResponse(resp), "commits"), nil, nil
		},
	)
}

// ListPullRequestReviews creates a tool to list the reviews of a pull request.
func ListPullRequestReviews() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataPullRequests,
		mcp.Tool{
			Name:        "list_pr_reviews",
			Description: "List the reviews of a pull request with their state",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List pull request reviews",
				ReadOnlyHint: true,
			},
			InputSchema: pullRequestListSchema(map[string]*jsonschema.Schema{
				"include_author": includeAuthorSchema(),
			}),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, number, page, err := pullRequestListParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			reviews, resp, err := client.PullRequests.ListReviews(ctx, owner, repo, number, &gogithub.ListOptions{
				Page:    page.Page,
				PerPage: page.PerPage,
			})
			if err != nil {
				return restFailure(ctx, "failed to list pull request reviews", resp, err), nil, nil
			}

			items := make([]PullRequestReview, 0, len(reviews))
			for _, r := range reviews {
				submitted := r.GetSubmittedAt()
				items = append(items, PullRequestReview{
					ID:          r.GetID(),
					State:       r.GetState(),
					SubmittedAt: optionalTime(&submitted.Time),
					AuthorLogin: authorLogin(includeAuthor, r.GetUser().GetLogin()),
				})
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(reviews))
			return listResult(items, meta, rate.FromResponse(resp), "reviews"), nil, nil
		},
	)
}

func optionalInt(include bool, p *int) *int {
	if !include {
		return nil
	}
	return p
}

func optionalString(include bool, p *string) *string {
	if !include || p == nil || *p == "" {
		return nil
	}
	return p
}

// ListPullRequestReviewComments creates a tool to list the inline review
// comments of a pull request.
func ListPullRequestReviewComments() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataPullRequests,
		mcp.Tool{
			Name:        "list_pr_review_comments",
			Description: "List the inline review comments of a pull request, optionally with their diff location",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List pull request review comments",
				ReadOnlyHint: true,
			},
			InputSchema: pullRequestListSchema(map[string]*jsonschema.Schema{
				"include_author": includeAuthorSchema(),
				"include_location": {
					Type:        "boolean",
					Description: "Include path, line, side, diff hunk and commit of each comment (default false)",
				},
			}),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, number, page, err := pullRequestListParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			includeLocation, err := OptionalBoolParamWithDefault(args, "include_location", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			comments, resp, err := client.PullRequests.ListComments(ctx, owner, repo, number, &gogithub.PullRequestListCommentsOptions{
				ListOptions: gogithub.ListOptions{
					Page:    page.Page,
					PerPage: page.PerPage,
				},
			})
			if err != nil {
				return restFailure(ctx, "failed to list pull request review comments", resp, err), nil, nil
			}

			items := make([]ReviewComment, 0, len(comments))
			for _, c := range comments {
				items = append(items, ReviewComment{
					ID:                c.GetID(),
					Body:              sanitize.Markdown(c.GetBody()),
					AuthorLogin:       authorLogin(includeAuthor, c.GetUser().GetLogin()),
					CreatedAt:         formatTime(c.GetCreatedAt().Time),
					UpdatedAt:         formatTime(c.GetUpdatedAt().Time),
					Path:              optionalString(includeLocation, c.Path),
					Line:              optionalInt(includeLocation, c.Line),
					StartLine:         optionalInt(includeLocation, c.StartLine),
					Side:              optionalString(includeLocation, c.Side),
					StartSide:         optionalString(includeLocation, c.StartSide),
					OriginalLine:      optionalInt(includeLocation, c.OriginalLine),
					OriginalStartLine: optionalInt(includeLocation, c.OriginalStartLine),
					DiffHunk:          optionalString(includeLocation, c.DiffHunk),
					CommitID:          optionalString(includeLocation, c.CommitID),
					OriginalCommitID:  optionalString(includeLocation, c.OriginalCommitID),
				})
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(comments))
			return listResult(items, meta, rate.FromResponse(resp), "review comments"), nil, nil
		},
	)
}

// GetPullRequestDiff creates a tool to fetch the unified diff of a pull
// request.
func GetPullRequestDiff() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataPullRequests,
		mcp.Tool{
			Name:        "get_pr_diff",
			Description: "Get the full unified diff of a pull request",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get pull request diff",
				ReadOnlyHint: true,
			},
			InputSchema: repositorySchema(map[string]*jsonschema.Schema{
				"number": pullNumberSchema(),
			}, "number"),
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

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			diff, resp, err := client.PullRequests.GetRaw(ctx, owner, repo, number, gogithub.RawOptions{Type: gogithub.Diff})
			if err != nil {
				return restFailure(ctx, fmt.Sprintf("failed to get diff of pull request #%d", number), resp, err), nil, nil
			}

			summary := fmt.Sprintf("#%d diff (%d bytes)", number, len(diff))
			return itemResult(PullRequestDiff{Number: number, Diff: diff}, rate.FromResponse(resp), summary), nil, nil
		},
	)
}
