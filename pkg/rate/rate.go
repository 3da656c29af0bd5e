// Package rate normalizes GitHub quota telemetry from REST headers and the
// GraphQL rateLimit object into a single Quota shape.
package rate

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v79/github"
)

const (
	headerRemaining = "X-RateLimit-Remaining"
	headerUsed      = "X-RateLimit-Used"
	headerReset     = "X-RateLimit-Reset"
)

// Quota is the remaining request budget reported by the upstream.
// A nil *Quota means no quota field was observable.
type Quota struct {
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
	ResetAt   string `json:"reset_at,omitempty"`
}

// GraphQLRateLimit mirrors the `rateLimit { remaining used resetAt }` selection.
// It can be embedded directly in a githubv4 query struct.
type GraphQLRateLimit struct {
	Remaining *int    `json:"remaining"`
	Used      *int    `json:"used"`
	ResetAt   *string `json:"resetAt"`
}

// FromHeaders extracts a Quota from REST response headers. Lookups are
// case-insensitive, so both canonical http.Header keys and raw lower-case
// keys are accepted.
func FromHeaders(h http.Header) *Quota {
	if h == nil {
		return nil
	}

	remaining, hasRemaining := intHeader(h, headerRemaining)
	used, hasUsed := intHeader(h, headerUsed)
	reset, hasReset := intHeader(h, headerReset)
	if !hasRemaining && !hasUsed && !hasReset {
		return nil
	}

	q := &Quota{Remaining: remaining, Used: used}
	if hasReset {
		q.ResetAt = time.Unix(int64(reset), 0).UTC().Format(time.RFC3339)
	}
	return q
}

// FromResponse is FromHeaders for go-github responses. It is nil-safe.
func FromResponse(resp *github.Response) *Quota {
	if resp == nil || resp.Response == nil {
		return nil
	}
	return FromHeaders(resp.Header)
}

// FromGraphQL converts a GraphQL rateLimit record. resetAt is already an
// ISO-8601 instant and is passed through untouched.
func FromGraphQL(rl *GraphQLRateLimit) *Quota {
	if rl == nil {
		return nil
	}
	q := &Quota{}
	if rl.Remaining != nil {
		q.Remaining = *rl.Remaining
	}
	if rl.Used != nil {
		q.Used = *rl.Used
	}
	if rl.ResetAt != nil {
		q.ResetAt = *rl.ResetAt
	}
	return q
}

// HeaderValue returns the first value for name, matching keys without regard
// to case. http.Header.Get only finds canonicalized keys; maps built by hand
// (or copied from other clients) may carry lower-case keys instead.
func HeaderValue(h http.Header, name string) (string, bool) {
	if vs, ok := h[http.CanonicalHeaderKey(name)]; ok && len(vs) > 0 {
		return vs[0], true
	}
	for k, vs := range h {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

func intHeader(h http.Header, name string) (int, bool) {
	raw, ok := HeaderValue(h, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}
