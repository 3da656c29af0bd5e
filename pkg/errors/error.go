package errors

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v79/github"
)

// GitHubAPIError wraps a failed go-github REST call together with its response.
type GitHubAPIError struct {
	Message  string           `json:"message"`
	Response *github.Response `json:"-"`
	Err      error            `json:"-"`
}

// NewGitHubAPIError creates a new GitHubAPIError with the provided message, response, and error.
func NewGitHubAPIError(message string, resp *github.Response, err error) *GitHubAPIError {
	return &GitHubAPIError{
		Message:  message,
		Response: resp,
		Err:      err,
	}
}

func (e *GitHubAPIError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Errorf("%s: %w", e.Message, e.Err).Error()
}

func (e *GitHubAPIError) Unwrap() error { return e.Err }

// GitHubGraphQLError wraps a failed githubv4 query.
type GitHubGraphQLError struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func NewGitHubGraphQLError(message string, err error) *GitHubGraphQLError {
	return &GitHubGraphQLError{
		Message: message,
		Err:     err,
	}
}

func (e *GitHubGraphQLError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Errorf("%s: %w", e.Message, e.Err).Error()
}

func (e *GitHubGraphQLError) Unwrap() error { return e.Err }

// GitHubRawAPIError wraps a failed plain HTTP exchange, such as a signed log
// download, together with its response.
type GitHubRawAPIError struct {
	Message  string         `json:"message"`
	Response *http.Response `json:"-"`
	Err      error          `json:"-"`
}

func NewGitHubRawAPIError(message string, resp *http.Response, err error) *GitHubRawAPIError {
	return &GitHubRawAPIError{
		Message:  message,
		Response: resp,
		Err:      err,
	}
}

func (e *GitHubRawAPIError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Errorf("%s: %w", e.Message, e.Err).Error()
}

func (e *GitHubRawAPIError) Unwrap() error { return e.Err }

// UpstreamError is a failure that carries an explicit status, either numeric
// ("404") or textual ("NOT_FOUND"), without an HTTP response attached.
type UpstreamError struct {
	Status  string
	Message string
}

// NewUpstreamError creates an UpstreamError.
func NewUpstreamError(status, message string) *UpstreamError {
	return &UpstreamError{Status: status, Message: message}
}

func (e *UpstreamError) Error() string { return e.Message }

// NamedError is a failure classified only by its type name.
type NamedError struct {
	Name    string
	Message string
	Err     error
}

// NewNamedError creates a NamedError. Its code is the upper-cased name.
func NewNamedError(name, message string, err error) *NamedError {
	return &NamedError{Name: name, Message: message, Err: err}
}

func (e *NamedError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Errorf("%s: %w", e.Message, e.Err).Error()
}

func (e *NamedError) Unwrap() error { return e.Err }

func (e *NamedError) ErrorName() string { return e.Name }

type toolErrorsKey struct{}

// ToolErrors collects every mapped failure of a single tool call so the server
// middleware can log them once the call returns.
type ToolErrors struct {
	records []Record
	causes  []error
}

// ContextWithToolErrors updates or creates a context with a pointer to the tool error list (to be used by middleware).
func ContextWithToolErrors(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if val, ok := ctx.Value(toolErrorsKey{}).(*ToolErrors); ok {
		// reuse the existing list, starting fresh
		val.records = nil
		val.causes = nil
		return ctx
	}
	return context.WithValue(ctx, toolErrorsKey{}, &ToolErrors{})
}

// ToolErrorsFromContext retrieves the records collected for the current call.
func ToolErrorsFromContext(ctx context.Context) ([]Record, error) {
	if val, ok := ctx.Value(toolErrorsKey{}).(*ToolErrors); ok {
		return val.records, nil
	}
	return nil, fmt.Errorf("context does not contain ToolErrors")
}

// CausesFromContext retrieves the original errors behind the collected records.
func CausesFromContext(ctx context.Context) ([]error, error) {
	if val, ok := ctx.Value(toolErrorsKey{}).(*ToolErrors); ok {
		return val.causes, nil
	}
	return nil, fmt.Errorf("context does not contain ToolErrors")
}

// MapToContext maps err and, when ctx carries a tool error list, appends the
// record to it. The record is returned either way.
func MapToContext(ctx context.Context, err error) Record {
	rec := Map(err)
	if ctx == nil {
		return rec
	}
	if val, ok := ctx.Value(toolErrorsKey{}).(*ToolErrors); ok {
		val.records = append(val.records, rec)
		val.causes = append(val.causes, err)
	}
	return rec
}
