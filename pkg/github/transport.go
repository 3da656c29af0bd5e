package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	ghErrors "github.com/hautechai/github-mcp/pkg/errors"
)

// maxErrorBody bounds how much of a failed GraphQL response is kept in the
// error message.
const maxErrorBody = 512

// GraphQLStatusTransport is an http.RoundTripper that turns a non-2xx GraphQL
// HTTP response into a *ghErrors.GitHubRawAPIError carrying that response, and
// a typed GraphQL error into a *ghErrors.UpstreamError.
// The GraphQL client only reports such failures as text, so without this the
// upstream status would be lost to the error mapper.
//
// Usage:
//
//	httpClient := &http.Client{
//	    Transport: &github.GraphQLStatusTransport{
//	        Transport: http.DefaultTransport,
//	    },
//	}
//	gqlClient := githubv4.NewClient(httpClient)
type GraphQLStatusTransport struct {
	// Transport is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Transport http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *GraphQLStatusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	resp, err := transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return typedErrors(resp)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()

	msg := fmt.Sprintf("graphql request failed: %s", resp.Status)
	if len(body) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return nil, ghErrors.NewGitHubRawAPIError(msg, resp, nil)
}

// graphQLErrors is the error list of a GraphQL response body. GitHub tags
// each entry with a type such as NOT_FOUND or RATE_LIMITED.
type graphQLErrors struct {
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

// typedErrors turns a 2xx GraphQL response whose first error carries a type
// into a *ghErrors.UpstreamError with that type as its status. Other
// responses are passed on with their body restored.
func typedErrors(resp *http.Response) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read graphql response: %w", err)
	}

	var payload graphQLErrors
	if json.Unmarshal(body, &payload) == nil && len(payload.Errors) > 0 && payload.Errors[0].Type != "" {
		first := payload.Errors[0]
		return nil, ghErrors.NewUpstreamError(first.Type, fmt.Sprintf("graphql request failed: %s", first.Message))
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
