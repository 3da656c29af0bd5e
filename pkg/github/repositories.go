package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v79/github"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hautechai/github-mcp/pkg/inventory"
	"github.com/hautechai/github-mcp/pkg/pagination"
	"github.com/hautechai/github-mcp/pkg/rate"
	"github.com/hautechai/github-mcp/pkg/sanitize"
)

// Commit is the list view of a commit.
type Commit struct {
	SHA            string  `json:"sha"`
	Title          string  `json:"title"`
	AuthoredAt     *string `json:"authored_at"`
	AuthorLogin    *string `json:"author_login,omitempty"`
	CommitterLogin *string `json:"committer_login,omitempty"`
}

// CommitStats counts the lines a commit touched.
type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// CommitDetail is a single commit with its full message.
type CommitDetail struct {
	SHA            string            `json:"sha"`
	Message        string            `json:"message"`
	AuthoredAt     *string           `json:"authored_at"`
	AuthorLogin    *string           `json:"author_login,omitempty"`
	CommitterLogin *string           `json:"committer_login,omitempty"`
	Parents        []string          `json:"parents"`
	Stats          *CommitStats      `json:"stats,omitempty"`
	Files          []PullRequestFile `json:"files,omitempty"`
}

// Branch is a branch head.
type Branch struct {
	Name      string `json:"name"`
	CommitSHA string `json:"commit_sha"`
	Protected bool   `json:"protected"`
}

// Tag is a tag as listed by the repository.
type Tag struct {
	Name       string `json:"name"`
	CommitSHA  string `json:"commit_sha"`
	ZipballURL string `json:"zipball_url"`
	TarballURL string `json:"tarball_url"`
}

// TagDetail is a resolved tag. Type is "annotated" or "lightweight".
type TagDetail struct {
	Name      string  `json:"name"`
	CommitSHA string  `json:"commit_sha"`
	Type      string  `json:"type"`
	Tagger    *string `json:"tagger,omitempty"`
	Message   *string `json:"message,omitempty"`
}

// Release is the list view of a release.
type Release struct {
	ID          int64   `json:"id"`
	TagName     string  `json:"tag_name"`
	Name        *string `json:"name"`
	Draft       bool    `json:"draft"`
	Prerelease  bool    `json:"prerelease"`
	CreatedAt   *string `json:"created_at"`
	PublishedAt *string `json:"published_at"`
	AuthorLogin *string `json:"author_login,omitempty"`
	AssetsCount int     `json:"assets_count"`
}

// commitTitle is the first line of a commit message.
func commitTitle(message string) string {
	title, _, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(title)
}

func commitAuthoredAt(c *gogithub.RepositoryCommit) *string {
	date := c.GetCommit().GetAuthor().GetDate()
	return optionalTime(&date.Time)
}

func toCommit(c *gogithub.RepositoryCommit, includeAuthor bool) Commit {
	return Commit{
		SHA:            c.GetSHA(),
		Title:          sanitize.Text(commitTitle(c.GetCommit().GetMessage())),
		AuthoredAt:     commitAuthoredAt(c),
		AuthorLogin:    authorLogin(includeAuthor, c.GetAuthor().GetLogin()),
		CommitterLogin: authorLogin(includeAuthor, c.GetCommitter().GetLogin()),
	}
}

func toPullRequestFile(f *gogithub.CommitFile, includePatch bool) PullRequestFile {
	file := PullRequestFile{
		Filename:  f.GetFilename(),
		Status:    f.GetStatus(),
		Additions: f.GetAdditions(),
		Deletions: f.GetDeletions(),
		Changes:   f.GetChanges(),
		SHA:       f.GetSHA(),
	}
	if includePatch && f.Patch != nil {
		file.Patch = f.Patch
	}
	return file
}

// ListCommits creates a tool to list the commits of a branch, newest first.
func ListCommits() inventory.ServerTool {
	schema := repositorySchema(map[string]*jsonschema.Schema{
		"sha": {
			Type:        "string",
			Description: "Commit SHA or branch to start listing from (default branch when omitted)",
		},
		"path": {
			Type:        "string",
			Description: "Only commits touching this file path",
		},
		"author": {
			Type:        "string",
			Description: "Only commits by this GitHub login or email address",
		},
		"since": {
			Type:        "string",
			Description: "Only commits after this ISO 8601 timestamp",
		},
		"until": {
			Type:        "string",
			Description: "Only commits before this ISO 8601 timestamp",
		},
		"include_author": includeAuthorSchema(),
	})
	WithPagination(schema)

	return NewTool(
		ToolsetMetadataRepos,
		mcp.Tool{
			Name:        "list_commits",
			Description: "List commits of a branch in a repository, newest first",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List commits",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			opts := &gogithub.CommitsListOptions{}
			for p, dst := range map[string]*string{
				"sha":    &opts.SHA,
				"path":   &opts.Path,
				"author": &opts.Author,
			} {
				if *dst, err = OptionalParam[string](args, p); err != nil {
					return InvalidArgumentResult(ctx, err), nil, nil
				}
			}
			for p, dst := range map[string]*time.Time{
				"since": &opts.Since,
				"until": &opts.Until,
			} {
				raw, err := OptionalParam[string](args, p)
				if err != nil {
					return InvalidArgumentResult(ctx, err), nil, nil
				}
				if raw == "" {
					continue
				}
				if *dst, err = parseISOTimestamp(raw); err != nil {
					return InvalidArgumentResult(ctx, fmt.Errorf("invalid %s: %w", p, err)), nil, nil
				}
			}
			includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
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

			commits, resp, err := client.Repositories.ListCommits(ctx, owner, repo, opts)
			if err != nil {
				return restFailure(ctx, "failed to list commits", resp, err), nil, nil
			}

			items := make([]Commit, 0, len(commits))
			for _, c := range commits {
				items = append(items, toCommit(c, includeAuthor))
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(commits))
			return listResult(items, meta, rate.FromResponse(resp), "commits"), nil, nil
		},
	)
}

// GetCommit creates a tool to get a single commit by SHA or ref.
func GetCommit() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataRepos,
		mcp.Tool{
			Name:        "get_commit",
			Description: "Get a commit by SHA, branch or tag, optionally with line stats and changed files",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get commit",
				ReadOnlyHint: true,
			},
			InputSchema: repositorySchema(map[string]*jsonschema.Schema{
				"ref": {
					Type:        "string",
					Description: "Commit SHA, branch name or tag name",
				},
				"include_stats": {
					Type:        "boolean",
					Description: "Include addition and deletion counts (default false)",
				},
				"include_files": {
					Type:        "boolean",
					Description: "Include the changed files with their patches (default false)",
				},
				"include_author": includeAuthorSchema(),
			}, "ref"),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			ref, err := RequiredParam[string](args, "ref")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			flags := map[string]bool{}
			for _, p := range []string{"include_stats", "include_files", "include_author"} {
				if flags[p], err = OptionalBoolParamWithDefault(args, p, false); err != nil {
					return InvalidArgumentResult(ctx, err), nil, nil
				}
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			commit, resp, err := client.Repositories.GetCommit(ctx, owner, repo, ref, nil)
			if err != nil {
				return restFailure(ctx, fmt.Sprintf("failed to get commit %s", ref), resp, err), nil, nil
			}

			item := CommitDetail{
				SHA:            commit.GetSHA(),
				Message:        sanitize.Markdown(commit.GetCommit().GetMessage()),
				AuthoredAt:     commitAuthoredAt(commit),
				AuthorLogin:    authorLogin(flags["include_author"], commit.GetAuthor().GetLogin()),
				CommitterLogin: authorLogin(flags["include_author"], commit.GetCommitter().GetLogin()),
				Parents:        make([]string, 0, len(commit.Parents)),
			}
			for _, p := range commit.Parents {
				item.Parents = append(item.Parents, p.GetSHA())
			}
			if flags["include_stats"] && commit.Stats != nil {
				item.Stats = &CommitStats{
					Additions: commit.Stats.GetAdditions(),
					Deletions: commit.Stats.GetDeletions(),
					Total:     commit.Stats.GetTotal(),
				}
			}
			if flags["include_files"] {
				for _, f := range commit.Files {
					item.Files = append(item.Files, toPullRequestFile(f, true))
				}
			}
			summary := fmt.Sprintf("%s %s", shortSHA(item.SHA), commitTitle(item.Message))
			return itemResult(item, rate.FromResponse(resp), summary), nil, nil
		},
	)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// ListBranches creates a tool to list the branches of a repository.
func ListBranches() inventory.ServerTool {
	schema := repositorySchema(map[string]*jsonschema.Schema{
		"protected": {
			Type:        "boolean",
			Description: "Only protected (true) or only unprotected (false) branches",
		},
	})
	WithPagination(schema)

	return NewTool(
		ToolsetMetadataRepos,
		mcp.Tool{
			Name:        "list_branches",
			Description: "List branches in a repository",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List branches",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			opts := &gogithub.BranchListOptions{}
			protected, ok, err := OptionalParamOK[bool](args, "protected")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			if ok {
				opts.Protected = &protected
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

			branches, resp, err := client.Repositories.ListBranches(ctx, owner, repo, opts)
			if err != nil {
				return restFailure(ctx, "failed to list branches", resp, err), nil, nil
			}

			items := make([]Branch, 0, len(branches))
			for _, b := range branches {
				items = append(items, Branch{
					Name:      b.GetName(),
					CommitSHA: b.GetCommit().GetSHA(),
					Protected: b.GetProtected(),
				})
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(branches))
			return listResult(items, meta, rate.FromResponse(resp), "branches"), nil, nil
		},
	)
}

// ListTags creates a tool to list the tags of a repository.
func ListTags() inventory.ServerTool {
	schema := repositorySchema(nil)
	WithPagination(schema)

	return NewTool(
		ToolsetMetadataRepos,
		mcp.Tool{
			Name:        "list_tags",
			Description: "List git tags in a repository",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List tags",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
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

			tags, resp, err := client.Repositories.ListTags(ctx, owner, repo, &gogithub.ListOptions{
				Page:    page.Page,
				PerPage: page.PerPage,
			})
			if err != nil {
				return restFailure(ctx, "failed to list tags", resp, err), nil, nil
			}

			items := make([]Tag, 0, len(tags))
			for _, tag := range tags {
				items = append(items, Tag{
					Name:       tag.GetName(),
					CommitSHA:  tag.GetCommit().GetSHA(),
					ZipballURL: tag.GetZipballURL(),
					TarballURL: tag.GetTarballURL(),
				})
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(tags))
			return listResult(items, meta, rate.FromResponse(resp), "tags"), nil, nil
		},
	)
}

// GetTag creates a tool to get a tag by name. Annotated tags are resolved to
// the commit they point at unless resolve_annotated is false.
func GetTag() inventory.ServerTool {
	return NewTool(
		ToolsetMetadataRepos,
		mcp.Tool{
			Name:        "get_tag",
			Description: "Get a git tag by name, resolving annotated tags to their commit, tagger and message",
			Annotations: &mcp.ToolAnnotations{
				Title:        "Get tag",
				ReadOnlyHint: true,
			},
			InputSchema: repositorySchema(map[string]*jsonschema.Schema{
				"tag": {
					Type:        "string",
					Description: "Tag name",
				},
				"resolve_annotated": {
					Type:        "boolean",
					Description: "Follow an annotated tag to its commit (default true)",
				},
			}, "tag"),
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			name, err := RequiredParam[string](args, "tag")
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			resolve, err := OptionalBoolParamWithDefault(args, "resolve_annotated", true)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}

			client, err := deps.GetClient(ctx)
			if err != nil {
				return FailureResult(ctx, fmt.Errorf("failed to get GitHub client: %w", err), nil), nil, nil
			}

			ref, resp, err := client.Git.GetRef(ctx, owner, repo, "refs/tags/"+name)
			if err != nil {
				return restFailure(ctx, "failed to get tag reference", resp, err), nil, nil
			}

			item := TagDetail{
				Name:      name,
				CommitSHA: ref.GetObject().GetSHA(),
				Type:      "lightweight",
			}
			if ref.GetObject().GetType() == "tag" {
				item.Type = "annotated"
				if resolve {
					var tag *gogithub.Tag
					tag, resp, err = client.Git.GetTag(ctx, owner, repo, ref.GetObject().GetSHA())
					if err != nil {
						return restFailure(ctx, "failed to get tag object", resp, err), nil, nil
					}
					item.CommitSHA = tag.GetObject().GetSHA()
					if tagger := tag.GetTagger().GetName(); tagger != "" {
						item.Tagger = &tagger
					}
					if msg := tag.GetMessage(); msg != "" {
						msg = sanitize.Markdown(msg)
						item.Message = &msg
					}
				}
			}
			summary := fmt.Sprintf("%s %s %s", item.Name, item.Type, shortSHA(item.CommitSHA))
			return itemResult(item, rate.FromResponse(resp), summary), nil, nil
		},
	)
}

// ListReleases creates a tool to list the releases of a repository.
func ListReleases() inventory.ServerTool {
	schema := repositorySchema(map[string]*jsonschema.Schema{
		"include_author": includeAuthorSchema(),
	})
	WithPagination(schema)

	return NewTool(
		ToolsetMetadataRepos,
		mcp.Tool{
			Name:        "list_releases",
			Description: "List releases in a repository, newest first",
			Annotations: &mcp.ToolAnnotations{
				Title:        "List releases",
				ReadOnlyHint: true,
			},
			InputSchema: schema,
		},
		func(ctx context.Context, deps ToolDependencies, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			owner, repo, err := repositoryParams(args)
			if err != nil {
				return InvalidArgumentResult(ctx, err), nil, nil
			}
			includeAuthor, err := OptionalBoolParamWithDefault(args, "include_author", false)
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

			releases, resp, err := client.Repositories.ListReleases(ctx, owner, repo, &gogithub.ListOptions{
				Page:    page.Page,
				PerPage: page.PerPage,
			})
			if err != nil {
				return restFailure(ctx, "failed to list releases", resp, err), nil, nil
			}

			items := make([]Release, 0, len(releases))
			for _, r := range releases {
				release := Release{
					ID:          r.GetID(),
					TagName:     r.GetTagName(),
					Draft:       r.GetDraft(),
					Prerelease:  r.GetPrerelease(),
					AuthorLogin: authorLogin(includeAuthor, r.GetAuthor().GetLogin()),
					AssetsCount: len(r.Assets),
				}
				if r.Name != nil {
					name := sanitize.Text(r.GetName())
					release.Name = &name
				}
				created, published := r.GetCreatedAt(), r.GetPublishedAt()
				release.CreatedAt = optionalTime(&created.Time)
				release.PublishedAt = optionalTime(&published.Time)
				items = append(items, release)
			}
			meta := pagination.FromREST(resp.Header, page.Page, page.PerPage, len(releases))
			return listResult(items, meta, rate.FromResponse(resp), "releases"), nil, nil
		},
	)
}
