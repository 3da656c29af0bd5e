package errors

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v79/github"
)

// Codes that are not derived from an upstream status.
const (
	CodeUnknown                 = "UNKNOWN"
	CodeDeadlineExceeded        = "DEADLINE_EXCEEDED"
	CodeCanceled                = "CANCELED"
	CodeTimeout                 = "TIMEOUT"
	CodeNetwork                 = "NETWORK"
	CodeGraphQL                 = "GRAPHQL"
	CodeInvalidArchive          = "INVALID_ARCHIVE"
	CodeMissingRedirectLocation = "MISSING_REDIRECT_LOCATION"
	CodeInvalidCursor           = "INVALID_CURSOR"
	CodeInvalidArgument         = "INVALID_ARGUMENT"
	CodeNotFound                = "NOT_FOUND"
)

const defaultMessage = "Unknown error"

// Kind says which signal produced a Record's code.
type Kind int

const (
	KindUnknown Kind = iota
	// KindHTTPStatus codes look like HTTP_<status>.
	KindHTTPStatus
	// KindStatus codes are an upper-cased non-numeric status string.
	KindStatus
	// KindNamed codes are an upper-cased error type name.
	KindNamed
)

func (k Kind) String() string {
	switch k {
	case KindHTTPStatus:
		return "http_status"
	case KindStatus:
		return "status"
	case KindNamed:
		return "named"
	default:
		return "unknown"
	}
}

// Record is the caller-facing description of a failure.
type Record struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
	Kind      Kind   `json:"-"`
}

type statusCoder interface{ StatusCode() int }

type statusTexter interface{ Status() string }

type errorCoder interface{ ErrorCode() string }

type errorNamer interface{ ErrorName() string }

// Map converts any failure into a Record. It never fails and never looks at
// the message text to decide the code or retriability.
func Map(err error) Record {
	rec := Record{Code: CodeUnknown, Message: defaultMessage, Kind: KindUnknown}
	if err == nil {
		return rec
	}
	if msg := err.Error(); msg != "" {
		rec.Message = msg
	}

	if status, ok := statusSignal(err); ok {
		if n, isNum := numericStatus(status); isNum {
			rec.Code = "HTTP_" + strconv.Itoa(n)
			rec.Kind = KindHTTPStatus
			rec.Retriable = n == http.StatusTooManyRequests || (n >= 500 && n <= 599)
			return rec
		}
		rec.Code = strings.ToUpper(status)
		rec.Kind = KindStatus
		return rec
	}

	if name := errorName(err); name != "" {
		rec.Code = strings.ToUpper(name)
		rec.Kind = KindNamed
	}
	return rec
}

// statusSignal looks for a status in priority order: an explicit status on
// the failure, then the status of a nested upstream response, then a generic
// error code.
func statusSignal(err error) (string, bool) {
	var up *UpstreamError
	if stderrors.As(err, &up) && strings.TrimSpace(up.Status) != "" {
		return strings.TrimSpace(up.Status), true
	}
	var sc statusCoder
	if stderrors.As(err, &sc) && sc.StatusCode() != 0 {
		return strconv.Itoa(sc.StatusCode()), true
	}
	var st statusTexter
	if stderrors.As(err, &st) && strings.TrimSpace(st.Status()) != "" {
		return strings.TrimSpace(st.Status()), true
	}

	if code := responseStatus(err); code != 0 {
		return strconv.Itoa(code), true
	}

	var ec errorCoder
	if stderrors.As(err, &ec) && strings.TrimSpace(ec.ErrorCode()) != "" {
		return strings.TrimSpace(ec.ErrorCode()), true
	}
	return "", false
}

func responseStatus(err error) int {
	var rateErr *github.RateLimitError
	if stderrors.As(err, &rateErr) && rateErr.Response != nil {
		return rateErr.Response.StatusCode
	}
	var abuseErr *github.AbuseRateLimitError
	if stderrors.As(err, &abuseErr) && abuseErr.Response != nil {
		return abuseErr.Response.StatusCode
	}
	var respErr *github.ErrorResponse
	if stderrors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}
	var apiErr *GitHubAPIError
	if stderrors.As(err, &apiErr) && apiErr.Response != nil && apiErr.Response.Response != nil {
		return apiErr.Response.StatusCode
	}
	var rawErr *GitHubRawAPIError
	if stderrors.As(err, &rawErr) && rawErr.Response != nil {
		return rawErr.Response.StatusCode
	}
	return 0
}

func numericStatus(status string) (int, bool) {
	n, err := strconv.Atoi(status)
	if err != nil {
		return 0, false
	}
	return n, true
}

func errorName(err error) string {
	var named errorNamer
	if stderrors.As(err, &named) && named.ErrorName() != "" {
		return named.ErrorName()
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case stderrors.Is(err, context.Canceled):
		return CodeCanceled
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return CodeNetwork
	}
	var gqlErr *GitHubGraphQLError
	if stderrors.As(err, &gqlErr) {
		return CodeGraphQL
	}
	return ""
}
