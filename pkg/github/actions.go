package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	gogithub "github.com/google/go-github/v79/github"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	ghErrors "github.com/hautechai/github-mcp/pkg/errors"
	"github.com/hautechai/github-mcp/pkg/inventory"
	"github.com/hautechai/github-mcp/pkg/logs"
	"github.com/hautechai/github-mcp/pkg/pagination"
	"github.com/hautechai/github-mcp/pkg/rate"
	"github.com/hautechai/github-mcp/pkg/sanitize"
)

// truncationMarker is appended to the text summary of a tailed log.
const truncationMarker = "\n…(truncated)"

// Workflow is a workflow definition in a repository.
type Workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}

// WorkflowRun is one execution of a workflow.
type WorkflowRun struct {
	ID         int64   `json:"id"`
	RunNumber  int     `json:"run_number"`
	Event      string  `json:"event"`
	Status     string  `json:"status"`
	Conclusion *string `json:"conclusion,omitempty"`
	HeadSHA    string  `json:"head_sha"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// WorkflowJob is one job of a workflow run.
type WorkflowJob struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	Conclusion  *string `json:"conclusion,omitempty"`
	StartedAt   *string `json:"started_at,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

func toWorkflowRun(r *gogithub.WorkflowRun) WorkflowRun {
	return WorkflowRun{
		ID:         r.GetID(),
		RunNumber:  r.GetRunNumber(),
		Event:      r.GetEvent(),
		Status:     r.GetStatus(),
		Conclusion: r.Conclusion,
		HeadSHA:    r.GetHeadSHA(),
		CreatedAt:  formatTime(r.GetCreatedAt().Time),
		UpdatedAt:  formatTime(r.GetUpdatedAt().Time),
	}
}

func toWorkflowJob(j *gogithub.WorkflowJob) WorkflowJob {
	job := WorkflowJob{
		ID:         j.GetID(),
		Name:       sanitize.Text(j.GetName()),
		Status:     j.GetStatus(),
		Conclusion: j.Conclusion,
	}
	if j.StartedAt != nil {
		job.StartedAt = optionalTime(&j.StartedAt.Time)
	}
	if j.CompletedAt != nil {
		job.CompletedAt = optionalTime(&j.CompletedAt.Time)
	}
	return job
}

var jobFilters = map[string]string{
	"latest": "latest",
	"all":    "all",
}

func repositorySchema(extra map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"owner": {
			Type:        "string",
			Description: DescriptionRepositoryOwner,
		},
		"repo": {
			Type:        "string",
			Description: DescriptionRepositoryName,
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"owner", "repo"}, required...),
	}
}

func logSchema(idParam, idDescription string) *jsonschema.Schema {
	return repositorySchema(map[string]*jsonschema.Schema{
		idParam: {
			Type:        "number",
			Description: idDescription,
		},
		"tail_lines": {
			Type:        "number",
			Description: "Return only the last N lines",
			Minimum:     jsonschema.Ptr(1.0),
		},
		"include_timestamps": {
			Type:        "boolean",
			Description: "Prefix every line with the retrieval time (default false)",
		},
	}, idParam)
}

// restFailure wraps a go-github error. quota is whatever the response carried.
func restFailure(ctx context.Context, message string, resp *gogithub.Response, err error) *mcp.CallToolResult {
	return FailureResult(ctx, ghErrors.NewGitHubAPIError(message, resp, err), rate.FromResponse(resp))
}

// ListWorkflows creates a tool to list the workflows defined in a repository.
func ListWorkflows() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataActions,
		mcp.Tool{
			Name:        "list_workflows",
			Description: "List workflows in a repository",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List workflows",
				ReadOnlyHint: true,
			},
			InputSchema: WithPagination(repositorySchema(nil)),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
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

			workflows, resp, err := client.Actions.ListWorkflows(ctx, owner, repo, &gogithub.ListOptions{
				Page:    page.Page,
				PerPage: page.PerPage,
			})
			if err != nil {
				return restFailure(ctx, "failed to list workflows", resp, err), nil, nil
			}

			items := make([]Workflow, 0, len(workflows.Workflows))
			for _, w := range workflows.Workflows {
				items = append(items, Workflow{
					ID:    w.GetID(),
					Name:  sanitize.Text(w.GetName()),
					Path:  w.GetPath(),
					State: w.GetState(),
				})
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(workflows.Workflows))
			return listResult(items, meta, rate.FromResponse(resp), "workflows"), nil, nil
		},
	)
}

// ListWorkflowRuns creates a tool to list workflow runs of a repository,
// newest first.
func ListWorkflowRuns() inventory.ServerTool {
	schema := repositorySchema(map[string]*jsonschema.Schema{
		"actor": {
			Type:        "string",
			Description: "Only runs triggered by this login",
		},
		"branch": {
			Type:        "string",
			Description: "Only runs for this branch",
		},
		"event": {
			Type:        "string",
			Description: "Only runs triggered by this event, e.g. push or pull_request",
		},
		"status": {
			Type:        "string",
			Description: "Only runs with this status or conclusion",
			Enum:        []any{"queued", "in_progress", "completed", "requested", "waiting", "success", "failure", "cancelled", "skipped"},
		},
		"head_sha": {
			Type:        "string",
			Description: "Only runs for this commit",
		},
	})
	WithPagination(schema)

	return NewTool(
		ToolsetMetadataActions,
		mcp.Tool{
			Name:        "list_workflow_runs",
			Description: "List workflow runs in a repository, newest first",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List workflow runs",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			opts := &gogithub.ListWorkflowRunsOptions{}
			for p, dst := range map[string]*string{
				"actor":    &opts.Actor,
				"branch":   &opts.Branch,
				"event":    &opts.Event,
				"status":   &opts.Status,
				"head_sha": &opts.HeadSHA,
			} {
				if *dst, err = OptionalParam[string](args, p); err != nil {
					return InvalidArgumentResult(ctx, err), nil, nil
				}
			}
			page, err := OptionalPaginationParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			opts.ListOptions = gogithub.ListOptions{Page: page.Page, PerPage: page.PerPage}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			runs, resp, err := client.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
			if err != nil {
				return restFailure(ctx, "failed to list workflow runs", resp, err), nil, nil
			}

			items := make([]WorkflowRun, 0, len(runs.WorkflowRuns))
			for _, r := range runs.WorkflowRuns {
				items = append(items, toWorkflowRun(r))
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(runs.WorkflowRuns))
			return listResult(items, meta, rate.FromResponse(resp), "runs"), nil, nil
		},
	)
}

// GetWorkflowRun creates a tool to get a single workflow run.
func GetWorkflowRun() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataActions,
		mcp.Tool{
			Name:        "get_workflow_run",
			Description: "Get a workflow run by ID",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get workflow run",
				ReadOnlyHint: true,
			},
			InputSchema: repositorySchema(map[string]*jsonschema.Schema{
				"run_id": {
					Type:        "number",
					Description: "The unique identifier of the workflow run",
				},
			}, "run_id"),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			runID, err := RequiredBigInt(args, "run_id")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			run, resp, err := client.Actions.GetWorkflowRunByID(ctx, owner, repo, runID)
			if err != nil {
				return restFailure(ctx, "failed to get workflow run", resp, err), nil, nil
			}

			item := toWorkflowRun(run)
			summary := fmt.Sprintf("run #%d %s", item.RunNumber, item.Status)
			if item.Conclusion != nil {
				summary += " " + *item.Conclusion
			}
			return itemResult(item, rate.FromResponse(resp), summary), nil, nil
		},
	)
}

// ListWorkflowJobs creates a tool to list the jobs of a workflow run.
func ListWorkflowJobs() inventory.ServerTool {
	schema := repositorySchema(map[string]*jsonschema.Schema{
		"run_id": {
			Type:        "number",
			Description: "The unique identifier of the workflow run",
		},
		"filter": {
			Type:        "string",
			Description: "latest: jobs of the most recent attempt; all: every attempt (default all)",
			Enum:        []any{"latest", "all"},
		},
	}, "run_id")
	WithPagination(schema)

	return NewTool(
		ToolsetMetadataActions,
		mcp.Tool{
			Name:        "list_workflow_jobs",
			Description: "List jobs for a workflow run",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List workflow jobs",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			runID, err := RequiredBigInt(args, "run_id")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			filter, err := enumParam(args, "filter", jobFilters, "all")
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

			jobs, resp, err := client.Actions.ListWorkflowJobs(ctx, owner, repo, runID, &gogithub.ListWorkflowJobsOptions{
				Filter: filter,
				ListOptions: gogithub.ListOptions{
					Page:    page.Page,
					PerPage: page.PerPage,
				},
			})
			if err != nil {
				return restFailure(ctx, "failed to list workflow jobs", resp, err), nil, nil
			}

			items := make([]WorkflowJob, 0, len(jobs.Jobs))
			for _, j := range jobs.Jobs {
				items = append(items, toWorkflowJob(j))
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(jobs.Jobs))
			return listResult(items, meta, rate.FromResponse(resp), "jobs"), nil, nil
		},
	)
}

// logOptions reads tail_lines and include_timestamps. tail_lines is clamped
// to the content window.
func logOptions(args map[string]any, window int) (logs.Options, error) {
	tail, ok, err := OptionalParamOK[float64](args, "tail_lines")
	if err != nil {
		return logs.Options{}, err
	}
	opts := logs.Options{}
	if ok {
		if tail < 1 {
			return logs.Options{}, errors.New("tail_lines must be at least 1")
		}
		opts.TailLines = min(int(tail), window)
	}
	opts.IncludeTimestamps, err = OptionalBoolParamWithDefault(args, "include_timestamps", false)
	if err != nil {
		return logs.Options{}, err
	}
	return opts, nil
}

// logLocation validates the redirect target of a logs endpoint.
func logLocation(u *url.URL) (string, error) {
	if u == nil || u.String() == "" {
		return "", ghErrors.NewNamedError(ghErrors.CodeMissingRedirectLocation, "log redirect did not include a Location header", nil)
	}
	return u.String(), nil
}

func logResult(doc *logs.Document, quota *rate.Quota) *mcp.CallToolResult {
	summary := doc.Content
	if doc.Truncated {
		summary += truncationMarker
	}
	return itemResult(*doc, quota, summary)
}

// GetWorkflowJobLogs creates a tool to download the log of a single job.
func GetWorkflowJobLogs() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataActions,
		mcp.Tool{
			Name:        "get_workflow_job_logs",
			Description: "Download the log of a workflow job. Use tail_lines to keep only the end of long logs.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get job logs",
				ReadOnlyHint: true,
			},
			InputSchema: logSchema("job_id", "The unique identifier of the workflow job"),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			jobID, err := RequiredBigInt(args, "job_id")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			opts, err := logOptions(args, deps.GetContentWindowSize())
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			u, resp, err := client.Actions.GetWorkflowJobLogs(ctx, owner, repo, jobID, 1)
			quota := rate.FromResponse(resp)
			if err != nil {
				return restFailure(ctx, "failed to get job logs", resp, err), nil, nil
			}
			location, err := logLocation(u)
			if err != nil {
				return FailureResult(ctx, err, quota), nil, nil
			}

			doc, err := deps.GetLogRetriever().RetrieveAny(ctx, location, opts)
			if err != nil {
				return FailureResult(ctx, err, quota), nil, nil
			}
			return logResult(doc, quota), nil, nil
		},
	)
}

// GetWorkflowRunLogs creates a tool to download and flatten the log archive
// of a whole workflow run.
func GetWorkflowRunLogs() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataActions,
		mcp.Tool{
			Name:        "get_workflow_run_logs",
			Description: "Download all logs of a workflow run as one document. Archives can be large; prefer get_workflow_job_logs for a single job.",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get workflow run logs",
				ReadOnlyHint: true,
			},
			InputSchema: logSchema("run_id", "The unique identifier of the workflow run"),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			runID, err := RequiredBigInt(args, "run_id")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			opts, err := logOptions(args, deps.GetContentWindowSize())
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			u, resp, err := client.Actions.GetWorkflowRunLogs(ctx, owner, repo, runID, 1)
			quota := rate.FromResponse(resp)
			if err != nil {
				return restFailure(ctx, "failed to get workflow run logs", resp, err), nil, nil
			}
			location, err := logLocation(u)
			if err != nil {
				return FailureResult(ctx, err, quota), nil, nil
			}

			doc, err := deps.GetLogRetriever().Retrieve(ctx, location, opts)
			if err != nil {
				return FailureResult(ctx, err, quota), nil, nil
			}
			return logResult(doc, quota), nil, nil
		},
	)
}
