package github

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v79/github"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restDeps(t *testing.T, handlers map[string]http.HandlerFunc) BaseDeps {
	t.Helper()
	return BaseDeps{Client: gogithub.NewClient(MockHTTPClientWithHandlers(handlers))}
}

func Test_ListPullRequests(t *testing.T) {
	toolDef := ListPullRequests()
	assert.Equal(t, "list_pull_requests", toolDef.Tool.Name)
	assert.True(t, toolDef.Tool.Annotations.ReadOnlyHint)

	page := map[string]any{
		"repository": map[string]any{
			"pullRequests": map[string]any{
				"nodes": []any{
					issueNode(7, "Add feature", "OPEN"),
				},
				"pageInfo": map[string]any{"hasNextPage": false, "endCursor": "Y3Vyc29yOjc="},
			},
		},
		"rateLimit": testRateLimit,
	}

	tests := []struct {
		name      string
		args      map[string]interface{}
		checkVars func(t *testing.T, vars map[string]any)
	}{
		{
			name: "defaults list every state",
			args: map[string]interface{}{"owner": "owner", "repo": "repo"},
			checkVars: func(t *testing.T, vars map[string]any) {
				assert.Nil(t, vars["states"])
				assert.Nil(t, vars["base"])
				assert.Nil(t, vars["head"])
				assert.Equal(t, float64(30), vars["first"])
			},
		},
		{
			name: "state and branches",
			args: map[string]interface{}{
				"owner": "owner",
				"repo":  "repo",
				"state": "MERGED",
				"base":  "main",
				"head":  "feature",
			},
			checkVars: func(t *testing.T, vars map[string]any) {
				assert.Equal(t, []any{"MERGED"}, vars["states"])
				assert.Equal(t, "main", vars["base"])
				assert.Equal(t, "feature", vars["head"])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := gqlDeps(t, map[string]http.HandlerFunc{
				PostGraphQL: mockGraphQL(t, func(req graphQLRequest) {
					assert.Contains(t, req.Query, "orderBy: {field: UPDATED_AT, direction: DESC}")
					tc.checkVars(t, req.Variables)
				}, page),
			})
			handler := toolDef.Handler(deps)

			request := createMCPRequest(tc.args)
			result, err := handler(ContextWithDeps(context.Background(), deps), &request)
			require.NoError(t, err)

			assert.Equal(t, "1 pull requests", getTextResult(t, result).Text)
			items, meta := getItems(t, result)
			require.Len(t, items, 1)
			pr := items[0].(map[string]any)
			assert.Equal(t, float64(7), pr["number"])
			assert.Equal(t, "Add feature", pr["title"])
			assert.NotContains(t, pr, "author_login")
			assert.Nil(t, meta["next_cursor"])
			assert.Equal(t, false, meta["has_more"])
		})
	}
}

func Test_ListPullRequests_InvalidState(t *testing.T) {
	deps := gqlDeps(t, map[string]http.HandlerFunc{})
	toolDef := ListPullRequests()
	handler := toolDef.Handler(deps)

	request := createMCPRequest(map[string]interface{}{"owner": "owner", "repo": "repo", "state": "draft"})
	result, err := handler(ContextWithDeps(context.Background(), deps), &request)
	require.NoError(t, err)

	rec := getFailure(t, result)
	assert.Equal(t, "INVALID_ARGUMENT", rec["code"])
	assert.Equal(t, false, rec["retriable"])
}

func Test_GetPullRequest(t *testing.T) {
	toolDef := GetPullRequest()
	assert.Equal(t, "get_pull_request", toolDef.Tool.Name)
	schema, ok := toolDef.Tool.InputSchema.(*jsonschema.Schema)
	require.True(t, ok, "InputSchema should be *jsonschema.Schema")
	assert.ElementsMatch(t, []string{"owner", "repo", "number"}, schema.Required)

	merged := issueNode(12, "Fix bug", "MERGED")
	merged["body"] = "Fixes <b>it</b>"
	merged["isDraft"] = false
	merged["merged"] = true
	merged["mergedAt"] = "2025-02-01T12:00:00Z"

	draft := issueNode(13, "WIP", "OPEN")
	draft["body"] = ""
	draft["isDraft"] = true
	draft["merged"] = false
	draft["mergedAt"] = nil

	tests := []struct {
		name     string
		data     map[string]any
		text     string
		code     string
		checkPR  func(t *testing.T, item map[string]any)
		expectOK bool
	}{
		{
			name: "merged",
			data: map[string]any{
				"repository": map[string]any{"pullRequest": merged},
				"rateLimit":  testRateLimit,
			},
			expectOK: true,
			text:     "PR #12 MERGED",
			checkPR: func(t *testing.T, item map[string]any) {
				assert.Equal(t, true, item["merged"])
				assert.Equal(t, false, item["is_draft"])
				assert.Equal(t, "2025-02-01T12:00:00Z", item["merged_at"])
				assert.Equal(t, "Fixes <b>it</b>", item["body"])
			},
		},
		{
			name: "draft",
			data: map[string]any{
				"repository": map[string]any{"pullRequest": draft},
			},
			expectOK: true,
			text:     "PR #13 OPEN",
			checkPR: func(t *testing.T, item map[string]any) {
				assert.Equal(t, false, item["merged"])
				assert.Equal(t, true, item["is_draft"])
				assert.NotContains(t, item, "merged_at")
			},
		},
		{
			name: "pull request missing",
			data: map[string]any{
				"repository": map[string]any{"pullRequest": nil},
			},
			code: "NOT_FOUND",
		},
		{
			name: "repository missing",
			data: map[string]any{"repository": nil},
			code: "NOT_FOUND",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := gqlDeps(t, map[string]http.HandlerFunc{
				PostGraphQL: mockGraphQL(t, nil, tc.data),
			})
			handler := toolDef.Handler(deps)

			request := createMCPRequest(map[string]interface{}{
				"owner":  "owner",
				"repo":   "repo",
				"number": float64(12),
			})
			result, err := handler(ContextWithDeps(context.Background(), deps), &request)
			require.NoError(t, err)

			if !tc.expectOK {
				rec := getFailure(t, result)
				assert.Equal(t, tc.code, rec["code"])
				return
			}

			assert.Equal(t, tc.text, getTextResult(t, result).Text)
			item, _ := getItem(t, result)
			tc.checkPR(t, item)
		})
	}
}

func Test_ListPullRequestFiles(t *testing.T) {
	toolDef := ListPullRequestFiles()
	assert.Equal(t, "list_pr_files", toolDef.Tool.Name)

	files := []*gogithub.CommitFile{
		{
			Filename:  gogithub.Ptr("main.go"),
			Status:    gogithub.Ptr("modified"),
			Additions: gogithub.Ptr(3),
			Deletions: gogithub.Ptr(1),
			Changes:   gogithub.Ptr(4),
			SHA:       gogithub.Ptr("abc123"),
			Patch:     gogithub.Ptr("@@ -1 +1 @@"),
		},
		{
			Filename:  gogithub.Ptr("README.md"),
			Status:    gogithub.Ptr("added"),
			Additions: gogithub.Ptr(10),
			Changes:   gogithub.Ptr(10),
			SHA:       gogithub.Ptr("def456"),
		},
	}

	tests := []struct {
		name         string
		args         map[string]interface{}
		handler      http.HandlerFunc
		expectPatch  bool
		expectCursor any
		expectMore   bool
	}{
		{
			name: "link header drives next cursor",
			args: map[string]interface{}{"owner": "owner", "repo": "repo", "number": float64(42)},
			handler: withHeaders(expect(t, expectations{
				path:        "/repos/owner/repo/pulls/42/files",
				queryParams: map[string]string{"page": "1", "per_page": "30"},
			}).andThen(mockResponse(t, http.StatusOK, files)), map[string]string{
				"Link":                  `<https://api.github.com/repositories/1/pulls/42/files?page=2&per_page=30>; rel="next"`,
				"X-RateLimit-Remaining": "4999",
				"X-RateLimit-Used":      "1",
				"X-RateLimit-Reset":     "1735689600",
			}),
			expectCursor: "page:2",
			expectMore:   true,
		},
		{
			name: "cursor resumes and patches included",
			args: map[string]interface{}{
				"owner":         "owner",
				"repo":          "repo",
				"number":        float64(42),
				"cursor":        "page:3",
				"per_page":      float64(2),
				"include_patch": true,
			},
			handler: expectQueryParams(t, map[string]string{"page": "3", "per_page": "2"}).
				andThen(mockResponse(t, http.StatusOK, files)),
			expectPatch:  true,
			expectCursor: "page:4",
			expectMore:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := restDeps(t, map[string]http.HandlerFunc{
				GetReposPullsFilesByOwnerByRepoByPullNumber: tc.handler,
			})
			handler := toolDef.Handler(deps)

			request := createMCPRequest(tc.args)
			result, err := handler(ContextWithDeps(context.Background(), deps), &request)
			require.NoError(t, err)

			assert.Equal(t, "2 files", getTextResult(t, result).Text)
			items, meta := getItems(t, result)
			require.Len(t, items, 2)
			first := items[0].(map[string]any)
			assert.Equal(t, "main.go", first["filename"])
			assert.Equal(t, float64(4), first["changes"])
			if tc.expectPatch {
				assert.Equal(t, "@@ -1 +1 @@", first["patch"])
			} else {
				assert.NotContains(t, first, "patch")
			}
			assert.Equal(t, tc.expectCursor, meta["next_cursor"])
			assert.Equal(t, tc.expectMore, meta["has_more"])
		})
	}
}

func Test_ListPullRequestFiles_Failures(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		handler   http.HandlerFunc
		code      string
		retriable bool
	}{
		{
			name:    "graphql cursor rejected",
			args:    map[string]interface{}{"owner": "owner", "repo": "repo", "number": float64(1), "cursor": "Y3Vyc29yOjE="},
			handler: mockResponse(t, http.StatusOK, []any{}),
			code:    "INVALID_CURSOR",
		},
		{
			name:    "not found",
			args:    map[string]interface{}{"owner": "owner", "repo": "repo", "number": float64(1)},
			handler: mockResponse(t, http.StatusNotFound, `{"message": "Not Found"}`),
			code:    "HTTP_404",
		},
		{
			name:      "server error is retriable",
			args:      map[string]interface{}{"owner": "owner", "repo": "repo", "number": float64(1)},
			handler:   mockResponse(t, http.StatusBadGateway, `{"message": "Bad Gateway"}`),
			code:      "HTTP_502",
			retriable: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := restDeps(t, map[string]http.HandlerFunc{
				GetReposPullsFilesByOwnerByRepoByPullNumber: tc.handler,
			})
			toolDef := ListPullRequestFiles()
			handler := toolDef.Handler(deps)

			request := createMCPRequest(tc.args)
			result, err := handler(ContextWithDeps(context.Background(), deps), &request)
			require.NoError(t, err)

			rec := getFailure(t, result)
			assert.Equal(t, tc.code, rec["code"])
			assert.Equal(t, tc.retriable, rec["retriable"])
		})
	}
}

func Test_GetPullRequestStatusSummary(t *testing.T) {
	toolDef := GetPullRequestStatusSummary()
	assert.Equal(t, "get_pr_status_summary", toolDef.Tool.Name)

	checkRun := func(name, conclusion string) map[string]any {
		return map[string]any{"__typename": "CheckRun", "name": name, "conclusion": conclusion}
	}
	withRollup := func(state any, contexts ...any) map[string]any {
		var rollup any
		if state != nil {
			rollup = map[string]any{
				"state":    state,
				"contexts": map[string]any{"nodes": contexts},
			}
		}
		return map[string]any{
			"repository": map[string]any{
				"pullRequest": map[string]any{
					"commits": map[string]any{
						"nodes": []any{
							map[string]any{"commit": map[string]any{
								"oid":               "deadbeef",
								"statusCheckRollup": rollup,
							}},
						},
					},
				},
			},
			"rateLimit": testRateLimit,
		}
	}

	tests := []struct {
		name        string
		args        map[string]interface{}
		data        map[string]any
		limit       float64
		text        string
		state       string
		failing     []any
		headSHA     string
		noFailField bool
	}{
		{
			name: "mixed contexts with failing names",
			args: map[string]interface{}{"include_failing_contexts": true},
			data: withRollup("FAILURE",
				checkRun("build", "SUCCESS"),
				checkRun("lint", "FAILURE"),
				map[string]any{"__typename": "StatusContext", "context": "ci/legacy", "state": "PENDING"},
				map[string]any{"__typename": "StatusContext", "context": "deploy", "state": "ERROR"},
			),
			limit:   10,
			text:    "status: S=1 P=1 F=2",
			state:   "FAILURE",
			failing: []any{"lint", "deploy"},
			headSHA: "deadbeef",
		},
		{
			name:        "failing names omitted by default",
			args:        map[string]interface{}{"limit_contexts": float64(2)},
			data:        withRollup("PENDING", checkRun("build", "SUCCESS"), checkRun("e2e", "TIMED_OUT")),
			limit:       2,
			text:        "status: S=1 P=0 F=1",
			state:       "PENDING",
			headSHA:     "deadbeef",
			noFailField: true,
		},
		{
			name: "running check run without conclusion counts as failing",
			args: map[string]interface{}{"include_failing_contexts": true},
			data: withRollup("PENDING",
				map[string]any{"__typename": "CheckRun", "name": "ci", "conclusion": nil},
				map[string]any{"__typename": "StatusContext", "context": "ci/legacy", "state": "PENDING"},
			),
			limit:   10,
			text:    "status: S=0 P=1 F=1",
			state:   "PENDING",
			failing: []any{"ci"},
			headSHA: "deadbeef",
		},
		{
			name:        "no rollup yet",
			args:        map[string]interface{}{},
			data:        withRollup(nil),
			limit:       10,
			text:        "status: S=0 P=0 F=0",
			state:       "SUCCESS",
			headSHA:     "deadbeef",
			noFailField: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := gqlDeps(t, map[string]http.HandlerFunc{
				PostGraphQL: mockGraphQL(t, func(req graphQLRequest) {
					assert.Equal(t, tc.limit, req.Variables["limitContexts"])
					assert.Contains(t, req.Query, "commits(last: 1)")
					assert.Contains(t, req.Query, "... on CheckRun")
				}, tc.data),
			})
			handler := toolDef.Handler(deps)

			args := map[string]interface{}{"owner": "owner", "repo": "repo", "number": float64(3)}
			for k, v := range tc.args {
				args[k] = v
			}
			request := createMCPRequest(args)
			result, err := handler(ContextWithDeps(context.Background(), deps), &request)
			require.NoError(t, err)

			assert.Equal(t, tc.text, getTextResult(t, result).Text)
			item, _ := getItem(t, result)
			assert.Equal(t, tc.state, item["overall_state"])
			assert.Equal(t, tc.headSHA, item["head_sha"])
			if tc.noFailField {
				assert.NotContains(t, item, "failing_contexts")
			} else {
				assert.Equal(t, tc.failing, item["failing_contexts"])
			}
		})
	}
}

func Test_GetPullRequestStatusSummary_InvalidLimit(t *testing.T) {
	deps := gqlDeps(t, map[string]http.HandlerFunc{})
	toolDef := GetPullRequestStatusSummary()
	handler := toolDef.Handler(deps)

	request := createMCPRequest(map[string]interface{}{
		"owner":          "owner",
		"repo":           "repo",
		"number":         float64(3),
		"limit_contexts": float64(500),
	})
	result, err := handler(ContextWithDeps(context.Background(), deps), &request)
	require.NoError(t, err)

	rec := getFailure(t, result)
	assert.Equal(t, "INVALID_ARGUMENT", rec["code"])
}

func Test_ListPullRequestCommits(t *testing.T) {
	toolDef := ListPullRequestCommits()
	assert.Equal(t, "list_pr_commits", toolDef.Tool.Name)

	commits := []*gogithub.RepositoryCommit{
		repositoryCommit("abc123", "Add endpoint\n\nBody", "octocat"),
	}

	result := runRESTTool(t, toolDef, map[string]http.HandlerFunc{
		GetReposPullsCommitsByOwnerByRepoByPullNumber: withHeaders(expect(t, expectations{
			path:        "/repos/owner/repo/pulls/42/commits",
			queryParams: map[string]string{"page": "1", "per_page": "30"},
		}).andThen(mockResponse(t, http.StatusOK, commits)), testRateHeaders),
	}, map[string]any{"owner": "owner", "repo": "repo", "number": float64(42), "include_author": true})

	assert.Equal(t, "1 commits", getTextResult(t, result).Text)
	items, meta := getItems(t, result)
	assert.Equal(t, []any{map[string]any{
		"sha":          "abc123",
		"title":        "Add endpoint",
		"authored_at":  "2025-01-02T03:04:05Z",
		"author_login": "octocat",
	}}, items)
	assert.Equal(t, testRateMeta, meta["rate"])
	assert.Equal(t, false, meta["has_more"])
}

func Test_ListPullRequestReviews(t *testing.T) {
	toolDef := ListPullRequestReviews()
	assert.Equal(t, "list_pr_reviews", toolDef.Tool.Name)

	reviews := []*gogithub.PullRequestReview{
		{
			ID:          gogithub.Ptr(int64(80)),
			State:       gogithub.Ptr("APPROVED"),
			SubmittedAt: &gogithub.Timestamp{Time: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
			User:        &gogithub.User{Login: gogithub.Ptr("reviewer")},
		},
		{
			ID:    gogithub.Ptr(int64(81)),
			State: gogithub.Ptr("PENDING"),
		},
	}

	result := runRESTTool(t, toolDef, map[string]http.HandlerFunc{
		GetReposPullsReviewsByOwnerByRepoByPullNumber: withHeaders(mockResponse(t, http.StatusOK, reviews), map[string]string{
			"Link": `<https://api.github.com/repositories/1/pulls/42/reviews?page=3>; rel="next"`,
		}),
	}, map[string]any{"owner": "owner", "repo": "repo", "number": float64(42), "page": float64(2)})

	assert.Equal(t, "2 reviews", getTextResult(t, result).Text)
	items, meta := getItems(t, result)
	assert.Equal(t, []any{
		map[string]any{"id": float64(80), "state": "APPROVED", "submitted_at": "2025-03-01T12:00:00Z"},
		map[string]any{"id": float64(81), "state": "PENDING", "submitted_at": nil},
	}, items)
	assert.Equal(t, "page:3", meta["next_cursor"])
	assert.Equal(t, true, meta["has_more"])
}

func Test_ListPullRequestReviewComments(t *testing.T) {
	toolDef := ListPullRequestReviewComments()
	assert.Equal(t, "list_pr_review_comments", toolDef.Tool.Name)

	created := gogithub.Timestamp{Time: time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)}
	comments := []*gogithub.PullRequestComment{{
		ID:               gogithub.Ptr(int64(500)),
		Body:             gogithub.Ptr("Consider a constant here"),
		User:             &gogithub.User{Login: gogithub.Ptr("reviewer")},
		CreatedAt:        &created,
		UpdatedAt:        &created,
		Path:             gogithub.Ptr("main.go"),
		Line:             gogithub.Ptr(12),
		Side:             gogithub.Ptr("RIGHT"),
		OriginalLine:     gogithub.Ptr(10),
		DiffHunk:         gogithub.Ptr("@@ -8,3 +8,5 @@"),
		CommitID:         gogithub.Ptr("head123"),
		OriginalCommitID: gogithub.Ptr("base456"),
	}}

	tests := []struct {
		name     string
		args     map[string]any
		expected map[string]any
	}{
		{
			name: "location omitted by default",
			args: map[string]any{"owner": "owner", "repo": "repo", "number": float64(42)},
			expected: map[string]any{
				"id":         float64(500),
				"body":       "Consider a constant here",
				"created_at": "2025-03-02T09:00:00Z",
				"updated_at": "2025-03-02T09:00:00Z",
			},
		},
		{
			name: "location and author on request",
			args: map[string]any{"owner": "owner", "repo": "repo", "number": float64(42), "include_location": true, "include_author": true},
			expected: map[string]any{
				"id":                  float64(500),
				"body":                "Consider a constant here",
				"author_login":        "reviewer",
				"created_at":          "2025-03-02T09:00:00Z",
				"updated_at":          "2025-03-02T09:00:00Z",
				"path":                "main.go",
				"line":                float64(12),
				"side":                "RIGHT",
				"original_line":       float64(10),
				"diff_hunk":           "@@ -8,3 +8,5 @@",
				"commit_sha":          "head123",
				"original_commit_sha": "base456",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := runRESTTool(t, toolDef, map[string]http.HandlerFunc{
				GetReposPullsCommentsByOwnerByRepoByPullNumber: expect(t, expectations{
					path:        "/repos/owner/repo/pulls/42/comments",
					queryParams: map[string]string{"page": "1", "per_page": "30"},
				}).andThen(mockResponse(t, http.StatusOK, comments)),
			}, tc.args)

			assert.Equal(t, "1 review comments", getTextResult(t, result).Text)
			items, _ := getItems(t, result)
			require.Len(t, items, 1)
			assert.Equal(t, tc.expected, items[0])
		})
	}
}

func Test_GetPullRequestDiff(t *testing.T) {
	toolDef := GetPullRequestDiff()
	assert.Equal(t, "get_pr_diff", toolDef.Tool.Name)

	diff := "diff --git a/main.go b/main.go\n--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-old\n+new\n"

	t.Run("returns the raw diff", func(t *testing.T) {
		result := runRESTTool(t, toolDef, map[string]http.HandlerFunc{
			GetReposPullsByOwnerByRepoByPullNumber: withHeaders(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/owner/repo/pulls/42", r.URL.Path)
				assert.Contains(t, r.Header.Get("Accept"), "diff")
				mockResponse(t, http.StatusOK, diff)(w, r)
			}, testRateHeaders),
		}, map[string]any{"owner": "owner", "repo": "repo", "number": float64(42)})

		assert.Equal(t, fmt.Sprintf("#42 diff (%d bytes)", len(diff)), getTextResult(t, result).Text)
		item, meta := getItem(t, result)
		assert.Equal(t, map[string]any{"number": float64(42), "diff": diff}, item)
		assert.Equal(t, testRateMeta, meta["rate"])
	})

	t.Run("missing pull request", func(t *testing.T) {
		result := runRESTTool(t, toolDef, map[string]http.HandlerFunc{
			GetReposPullsByOwnerByRepoByPullNumber: mockResponse(t, http.StatusNotFound, `{"message": "Not Found"}`),
		}, map[string]any{"owner": "owner", "repo": "repo", "number": float64(7)})

		rec := getFailure(t, result)
		assert.Equal(t, "HTTP_404", rec["code"])
		assert.Contains(t, rec["message"], "#7")
	})

	t.Run("fractional number rejected", func(t *testing.T) {
		result := runRESTTool(t, toolDef, map[string]http.HandlerFunc{}, map[string]any{"owner": "owner", "repo": "repo", "number": 4.5})

		rec := getFailure(t, result)
		assert.Equal(t, "INVALID_ARGUMENT", rec["code"])
	})
}
