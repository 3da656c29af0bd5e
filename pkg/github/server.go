package github

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hautechai/github-mcp/pkg/envelope"
	ghErrors "github.com/hautechai/github-mcp/pkg/errors"
	"github.com/hautechai/github-mcp/pkg/pagination"
	"github.com/hautechai/github-mcp/pkg/rate"
	"github.com/hautechai/github-mcp/pkg/utils"
)

const (
	DescriptionRepositoryOwner = "Repository owner"
	DescriptionRepositoryName  = "Repository name"
)

const (
	// DefaultPerPage is used when neither limit nor per_page is given.
	DefaultPerPage = 30
	// MaxPerPage is the largest page GitHub serves.
	MaxPerPage = 100
	// DefaultContentWindowSize caps tail_lines when nothing else is configured.
	DefaultContentWindowSize = 5000
)

// NewServer creates a new GitHub MCP server.
func NewServer(version string, opts *mcp.ServerOptions) *mcp.Server {
	if opts == nil {
		opts = &mcp.ServerOptions{}
	}

	return mcp.NewServer(&mcp.Implementation{
		Name:    "github-mcp",
		Title:   "GitHub MCP",
		Version: version,
	}, opts)
}

// OptionalParamOK is a helper function that can be used to fetch a requested parameter from the request.
// It returns the value, a boolean indicating if the parameter was present, and an error if the type is wrong.
func OptionalParamOK[T any, A map[string]any](args A, p string) (value T, ok bool, err error) {
	val, exists := args[p]
	if !exists {
		return
	}

	value, ok = val.(T)
	if !ok {
		err = fmt.Errorf("parameter %s is not of type %T, is %T", p, value, val)
		ok = true // the parameter was present, even if the type is wrong
		return
	}

	ok = true
	return
}

// RequiredParam is a helper function that can be used to fetch a requested parameter from the request.
// It does the following checks:
// 1. Checks if the parameter is present in the request.
// 2. Checks if the parameter is of the expected type.
// 3. Checks if the parameter is not empty, i.e: non-zero value
func RequiredParam[T comparable](args map[string]any, p string) (T, error) {
	var zero T

	if _, ok := args[p]; !ok {
		return zero, fmt.Errorf("missing required parameter: %s", p)
	}

	val, ok := args[p].(T)
	if !ok {
		return zero, fmt.Errorf("parameter %s is not of type %T", p, zero)
	}

	if val == zero {
		return zero, fmt.Errorf("missing required parameter: %s", p)
	}

	return val, nil
}

// RequiredInt fetches a required whole number. JSON numbers arrive as float64.
func RequiredInt(args map[string]any, p string) (int, error) {
	v, err := RequiredParam[float64](args, p)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("parameter %s must be a whole number", p)
	}
	return int(v), nil
}

// RequiredBigInt is like RequiredInt for identifiers that need 64 bits.
// It fails when the value cannot be converted to int64 without truncation.
func RequiredBigInt(args map[string]any, p string) (int64, error) {
	v, err := RequiredParam[float64](args, p)
	if err != nil {
		return 0, err
	}

	result := int64(v)
	if float64(result) != v {
		return 0, fmt.Errorf("parameter %s value %f is too large to fit in int64", p, v)
	}
	return result, nil
}

// OptionalParam is a helper function that can be used to fetch a requested parameter from the request.
// It does the following checks:
// 1. Checks if the parameter is present in the request, if not, it returns its zero-value
// 2. If it is present, it checks if the parameter is of the expected type and returns it
func OptionalParam[T any](args map[string]any, p string) (T, error) {
	var zero T

	if _, ok := args[p]; !ok {
		return zero, nil
	}

	if _, ok := args[p].(T); !ok {
		return zero, fmt.Errorf("parameter %s is not of type %T, is %T", p, zero, args[p])
	}

	return args[p].(T), nil
}

// OptionalIntParam fetches an optional whole number as int, zero when absent.
func OptionalIntParam(args map[string]any, p string) (int, error) {
	v, err := OptionalParam[float64](args, p)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("parameter %s must be a whole number", p)
	}
	return int(v), nil
}

// OptionalBoolParamWithDefault returns d when the parameter is absent.
func OptionalBoolParamWithDefault(args map[string]any, p string, d bool) (bool, error) {
	_, ok := args[p]
	v, err := OptionalParam[bool](args, p)
	if err != nil {
		return false, err
	}
	if !ok {
		return d, nil
	}
	return v, nil
}

// OptionalStringArrayParam is a helper function that can be used to fetch a requested parameter from the request.
// It does the following checks:
// 1. Checks if the parameter is present in the request, if not, it returns its zero-value
// 2. If it is present, iterates the elements and checks each is a string
func OptionalStringArrayParam(args map[string]any, p string) ([]string, error) {
	if _, ok := args[p]; !ok {
		return []string{}, nil
	}

	switch v := args[p].(type) {
	case nil:
		return []string{}, nil
	case []string:
		return v, nil
	case []any:
		strSlice := make([]string, len(v))
		for i, v := range v {
			s, ok := v.(string)
			if !ok {
				return []string{}, fmt.Errorf("parameter %s is not of type string, is %T", p, v)
			}
			strSlice[i] = s
		}
		return strSlice, nil
	default:
		return []string{}, fmt.Errorf("parameter %s could not be coerced to []string, is %T", p, args[p])
	}
}

// boundedLimitParam reads a page size that must lie in 1..MaxPerPage.
// Absent means DefaultPerPage.
func boundedLimitParam(args map[string]any, p string) (int, error) {
	return boundedParam(args, p, DefaultPerPage)
}

// boundedParam is boundedLimitParam with a caller-chosen default.
func boundedParam(args map[string]any, p string, def int) (int, error) {
	v, ok, err := OptionalParamOK[float64](args, p)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if v != math.Trunc(v) || v < 1 || v > MaxPerPage {
		return 0, fmt.Errorf("%s must be 1..=%d", p, MaxPerPage)
	}
	return int(v), nil
}

// WithPagination adds REST pagination parameters to a tool. The cursor is
// the next_cursor of a previous page and wins over page.
// https://docs.github.com/en/rest/using-the-rest-api/using-pagination-in-the-rest-api
func WithPagination(schema *jsonschema.Schema) *jsonschema.Schema {
	schema.Properties["cursor"] = &jsonschema.Schema{
		Type:        "string",
		Description: "Cursor from meta.next_cursor of the previous page",
	}

	schema.Properties["page"] = &jsonschema.Schema{
		Type:        "number",
		Description: "Page number for pagination (min 1)",
		Minimum:     jsonschema.Ptr(1.0),
	}

	schema.Properties["per_page"] = &jsonschema.Schema{
		Type:        "number",
		Description: "Results per page for pagination (min 1, max 100)",
		Minimum:     jsonschema.Ptr(1.0),
		Maximum:     jsonschema.Ptr(100.0),
	}

	return schema
}

// WithCursorPagination adds GraphQL cursor pagination parameters to a tool.
func WithCursorPagination(schema *jsonschema.Schema) *jsonschema.Schema {
	schema.Properties["cursor"] = &jsonschema.Schema{
		Type:        "string",
		Description: "Cursor from meta.next_cursor of the previous page",
	}

	schema.Properties["limit"] = &jsonschema.Schema{
		Type:        "number",
		Description: "Results per page (min 1, max 100, default 30)",
		Minimum:     jsonschema.Ptr(1.0),
		Maximum:     jsonschema.Ptr(100.0),
	}

	return schema
}

// PaginationParams is the resolved REST page request.
type PaginationParams struct {
	Page    int
	PerPage int
}

// OptionalPaginationParams resolves "cursor", "page" and "per_page". A cursor
// that was not issued by a REST tool fails with INVALID_CURSOR.
func OptionalPaginationParams(args map[string]any) (PaginationParams, error) {
	cursor, err := OptionalParam[string](args, "cursor")
	if err != nil {
		return PaginationParams{}, invalidArgument(err)
	}
	page, err := OptionalIntParam(args, "page")
	if err != nil {
		return PaginationParams{}, invalidArgument(err)
	}
	if page < 0 {
		return PaginationParams{}, invalidArgument(errors.New("page must be at least 1"))
	}
	perPage, err := boundedLimitParam(args, "per_page")
	if err != nil {
		return PaginationParams{}, invalidArgument(err)
	}
	resolved, err := pagination.ResolvePage(cursor, page)
	if err != nil {
		return PaginationParams{}, ghErrors.NewNamedError(ghErrors.CodeInvalidCursor, err.Error(), err)
	}
	return PaginationParams{Page: resolved, PerPage: perPage}, nil
}

// CursorPaginationParams is the resolved GraphQL page request.
type CursorPaginationParams struct {
	Limit int
	After string
}

// OptionalCursorPaginationParams resolves "cursor" and "limit". The cursor is
// passed upstream verbatim.
func OptionalCursorPaginationParams(args map[string]any) (CursorPaginationParams, error) {
	limit, err := boundedLimitParam(args, "limit")
	if err != nil {
		return CursorPaginationParams{}, invalidArgument(err)
	}
	after, err := OptionalParam[string](args, "cursor")
	if err != nil {
		return CursorPaginationParams{}, invalidArgument(err)
	}
	return CursorPaginationParams{Limit: limit, After: after}, nil
}

// invalidArgument classifies a parameter validation failure.
func invalidArgument(err error) error {
	var named *ghErrors.NamedError
	if errors.As(err, &named) {
		return err
	}
	return ghErrors.NewNamedError(ghErrors.CodeInvalidArgument, err.Error(), nil)
}

// FailureResult maps err, records it for the server middleware and wraps it
// in a failure envelope. quota is attached when it was observed before the
// failure.
func FailureResult(ctx context.Context, err error, quota *rate.Quota) *mcp.CallToolResult {
	rec := ghErrors.MapToContext(ctx, err)
	return utils.NewToolResultEnvelope(envelope.NewFailure(rec, quota), "", true)
}

// InvalidArgumentResult is FailureResult for a parameter validation failure.
func InvalidArgumentResult(ctx context.Context, err error) *mcp.CallToolResult {
	return FailureResult(ctx, invalidArgument(err), nil)
}
