package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GitHub API endpoint patterns for testing
// These constants define the URL patterns used in HTTP mocking for tests
const (
	// GraphQL endpoint
	PostGraphQL = "POST /graphql"

	// Pull request endpoints
	GetReposPullsFilesByOwnerByRepoByPullNumber    = "GET /repos/{owner}/{repo}/pulls/{pull_number}/files"
	GetReposPullsCommitsByOwnerByRepoByPullNumber  = "GET /repos/{owner}/{repo}/pulls/{pull_number}/commits"
	GetReposPullsReviewsByOwnerByRepoByPullNumber  = "GET /repos/{owner}/{repo}/pulls/{pull_number}/reviews"
	GetReposPullsCommentsByOwnerByRepoByPullNumber = "GET /repos/{owner}/{repo}/pulls/{pull_number}/comments"
	GetReposPullsByOwnerByRepoByPullNumber         = "GET /repos/{owner}/{repo}/pulls/{pull_number}"

	// Repository endpoints
	GetReposCommitsByOwnerByRepo         = "GET /repos/{owner}/{repo}/commits"
	GetReposCommitsByOwnerByRepoByRef    = "GET /repos/{owner}/{repo}/commits/{ref}"
	GetReposBranchesByOwnerByRepo        = "GET /repos/{owner}/{repo}/branches"
	GetReposTagsByOwnerByRepo            = "GET /repos/{owner}/{repo}/tags"
	GetReposReleasesByOwnerByRepo        = "GET /repos/{owner}/{repo}/releases"
	GetReposGitRefTagsByOwnerByRepoByTag = "GET /repos/{owner}/{repo}/git/ref/tags/{tag}"
	GetReposGitTagsByOwnerByRepoBySHA    = "GET /repos/{owner}/{repo}/git/tags/{sha}"

	// Search endpoints
	GetSearchIssues       = "GET /search/issues"
	GetSearchRepositories = "GET /search/repositories"

	// Actions endpoints
	GetReposActionsWorkflowsByOwnerByRepo       = "GET /repos/{owner}/{repo}/actions/workflows"
	GetReposActionsRunsByOwnerByRepo            = "GET /repos/{owner}/{repo}/actions/runs"
	GetReposActionsRunsJobsByOwnerByRepoByRunID = "GET /repos/{owner}/{repo}/actions/runs/{run_id}/jobs"
	GetReposActionsRunsLogsByOwnerByRepoByRunID = "GET /repos/{owner}/{repo}/actions/runs/{run_id}/logs"
	GetReposActionsJobsLogsByOwnerByRepoByJobID = "GET /repos/{owner}/{repo}/actions/jobs/{job_id}/logs"
)

type expectations struct {
	path        string
	queryParams map[string]string
}

// expect is a helper function to create a partial mock that expects various
// request behaviors, such as path and query parameters.
func expect(t *testing.T, e expectations) *partialMock {
	return &partialMock{
		t:                   t,
		expectedPath:        e.path,
		expectedQueryParams: e.queryParams,
	}
}

// expectQueryParams is a helper function to create a partial mock that expects a
// request with the given query parameters, with the ability to chain a response handler.
func expectQueryParams(t *testing.T, expectedQueryParams map[string]string) *partialMock {
	return &partialMock{
		t:                   t,
		expectedQueryParams: expectedQueryParams,
	}
}

type partialMock struct {
	t *testing.T

	expectedPath        string
	expectedQueryParams map[string]string
}

func (p *partialMock) andThen(responseHandler http.HandlerFunc) http.HandlerFunc {
	p.t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if p.expectedPath != "" {
			require.Equal(p.t, p.expectedPath, r.URL.Path)
		}

		if p.expectedQueryParams != nil {
			require.Equal(p.t, len(p.expectedQueryParams), len(r.URL.Query()))
			for k, v := range p.expectedQueryParams {
				require.Equal(p.t, v, r.URL.Query().Get(k))
			}
		}

		responseHandler(w, r)
	}
}

// withHeaders sets headers on the response before h writes it.
func withHeaders(h http.HandlerFunc, headers map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		h(w, r)
	}
}

// mockResponse is a helper function to create a mock HTTP response handler
// that returns a specified status code and marshaled body.
func mockResponse(t *testing.T, code int, body interface{}) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		s, ok := body.(string)
		if ok {
			_, _ = w.Write([]byte(s))
			return
		}

		b, err := json.Marshal(body)
		require.NoError(t, err)
		_, _ = w.Write(b)
	}
}

// graphQLRequest is the decoded body of a GraphQL POST.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// mockGraphQL answers a GraphQL POST with {"data": data}. check, when set,
// sees the decoded request first.
func mockGraphQL(t *testing.T, check func(req graphQLRequest), data any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(req)
		}

		b, err := json.Marshal(map[string]any{"data": data})
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

// createMCPRequest is a helper function to create a MCP request with the given arguments.
func createMCPRequest(args any) mcp.CallToolRequest {
	// convert args to map[string]interface{} and serialize to JSON
	argsMap, ok := args.(map[string]interface{})
	if !ok {
		argsMap = make(map[string]interface{})
	}

	argsJSON, err := json.Marshal(argsMap)
	if err != nil {
		return mcp.CallToolRequest{}
	}

	jsonRawMessage := json.RawMessage(argsJSON)

	return mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Arguments: jsonRawMessage,
		},
	}
}

// getTextResult is a helper function that returns a text result from a tool call.
func getTextResult(t *testing.T, result *mcp.CallToolResult) *mcp.TextContent {
	t.Helper()
	assert.NotNil(t, result)
	require.Len(t, result.Content, 1)
	textContent, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected content to be of type TextContent")
	return textContent
}

func getErrorResult(t *testing.T, result *mcp.CallToolResult) *mcp.TextContent {
	res := getTextResult(t, result)
	require.True(t, result.IsError, "expected tool call result to be an error")
	return res
}

// getEnvelope decodes the structured content of a tool result into a
// generic map.
func getEnvelope(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, result)
	raw, ok := result.StructuredContent.(json.RawMessage)
	require.True(t, ok, "expected structured content to be json.RawMessage, is %T", result.StructuredContent)

	var env map[string]any
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

// getFailure returns the error record of a failure envelope.
func getFailure(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	getErrorResult(t, result)
	env := getEnvelope(t, result)
	assert.NotContains(t, env, "items")
	assert.NotContains(t, env, "item")
	rec, ok := env["error"].(map[string]any)
	require.True(t, ok, "expected an error record")
	return rec
}

// getItems returns the items and meta of a list envelope.
func getItems(t *testing.T, result *mcp.CallToolResult) ([]any, map[string]any) {
	t.Helper()
	require.False(t, result.IsError, "unexpected failure: %v", result.Content)
	env := getEnvelope(t, result)
	items, ok := env["items"].([]any)
	require.True(t, ok, "expected items array")
	meta, ok := env["meta"].(map[string]any)
	require.True(t, ok, "expected meta object")
	return items, meta
}

// getItem returns the item and meta of an item envelope.
func getItem(t *testing.T, result *mcp.CallToolResult) (map[string]any, map[string]any) {
	t.Helper()
	require.False(t, result.IsError, "unexpected failure: %v", result.Content)
	env := getEnvelope(t, result)
	item, ok := env["item"].(map[string]any)
	require.True(t, ok, "expected item object")
	meta, ok := env["meta"].(map[string]any)
	require.True(t, ok, "expected meta object")
	return item, meta
}

func TestOptionalParamOK(t *testing.T) {
	tests := []struct {
		name        string
		args        map[string]interface{}
		paramName   string
		expectedVal interface{}
		expectedOk  bool
		expectError bool
		errorMsg    string
	}{
		{
			name:        "present and correct type (string)",
			args:        map[string]interface{}{"myParam": "hello"},
			paramName:   "myParam",
			expectedVal: "hello",
			expectedOk:  true,
		},
		{
			name:        "present and correct type (bool)",
			args:        map[string]interface{}{"myParam": true},
			paramName:   "myParam",
			expectedVal: true,
			expectedOk:  true,
		},
		{
			name:        "present but wrong type (string expected, got bool)",
			args:        map[string]interface{}{"myParam": true},
			paramName:   "myParam",
			expectedVal: "",
			expectedOk:  true,
			expectError: true,
			errorMsg:    "parameter myParam is not of type string, is bool",
		},
		{
			name:        "parameter not present",
			args:        map[string]interface{}{"anotherParam": "value"},
			paramName:   "myParam",
			expectedVal: "",
			expectedOk:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			switch want := tc.expectedVal.(type) {
			case string:
				val, ok, err := OptionalParamOK[string](tc.args, tc.paramName)
				if tc.expectError {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tc.errorMsg)
				} else {
					require.NoError(t, err)
				}
				assert.Equal(t, tc.expectedOk, ok)
				assert.Equal(t, want, val)
			case bool:
				val, ok, err := OptionalParamOK[bool](tc.args, tc.paramName)
				require.NoError(t, err)
				assert.Equal(t, tc.expectedOk, ok)
				assert.Equal(t, want, val)
			}
		})
	}
}

// responseRecorder is a simple response recorder for the mock transport
type responseRecorder struct {
	statusCode int
	header     http.Header
	body       *bytes.Buffer
}

func (r *responseRecorder) Header() http.Header {
	return r.header
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	return r.body.Write(data)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
}

// matchPath checks if a request path matches a pattern with {param} segments.
func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}

	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternParts) != len(pathParts) {
		return false
	}

	for i := range patternParts {
		if strings.HasPrefix(patternParts[i], "{") && strings.HasSuffix(patternParts[i], "}") {
			continue
		}
		if patternParts[i] != pathParts[i] {
			return false
		}
	}
	return true
}

// executeHandler executes an HTTP handler and returns the response
func executeHandler(handler http.HandlerFunc, req *http.Request) *http.Response {
	recorder := &responseRecorder{
		header: make(http.Header),
		body:   &bytes.Buffer{},
	}
	handler(recorder, req)
	if recorder.statusCode == 0 {
		recorder.statusCode = http.StatusOK
	}

	return &http.Response{
		Status:     fmt.Sprintf("%d %s", recorder.statusCode, http.StatusText(recorder.statusCode)),
		StatusCode: recorder.statusCode,
		Header:     recorder.header,
		Body:       io.NopCloser(bytes.NewReader(recorder.body.Bytes())),
		Request:    req,
	}
}

// MockHTTPClientWithHandlers creates an HTTP client with multiple handlers for different paths
func MockHTTPClientWithHandlers(handlers map[string]http.HandlerFunc) *http.Client {
	transport := &multiHandlerTransport{handlers: handlers}
	return &http.Client{Transport: transport}
}

type multiHandlerTransport struct {
	handlers map[string]http.HandlerFunc
}

func (m *multiHandlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := req.Method + " " + req.URL.Path
	if handler, ok := m.handlers[key]; ok {
		return executeHandler(handler, req), nil
	}

	for pattern, handler := range m.handlers {
		method, pathPattern, ok := strings.Cut(pattern, " ")
		if !ok || req.Method != method {
			continue
		}
		if matchPath(pathPattern, req.URL.Path) {
			return executeHandler(handler, req), nil
		}
	}

	return &http.Response{
		Status:     "404 Not Found",
		StatusCode: http.StatusNotFound,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte(`{"message":"Not Found"}`))),
		Request:    req,
	}, nil
}
