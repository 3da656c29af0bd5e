// Package pagination hides the difference between GraphQL cursor pagination and
// REST page/Link-header pagination behind one opaque cursor string.
//
// Two cursor encodings coexist. GraphQL endCursor values are foreign: they are
// handed back verbatim and never interpreted. REST cursors are synthesized
// locally as "page:<N>" and are the only ones DecodePage understands. A cursor
// is only meaningful to the tool that produced it.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomnomnom/linkheader"

	"github.com/hautechai/github-mcp/pkg/rate"
)

const pagePrefix = "page:"

var pageCursorRE = regexp.MustCompile(`^page:([1-9][0-9]*)$`)

// ErrForeignCursor is returned by ResolvePage for cursors that were not issued
// by a REST tool.
var ErrForeignCursor = errors.New("cursor was not issued by this tool")

// Meta is the continuation state of a list result.
// HasMore == false always implies NextCursor == nil.
type Meta struct {
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// PageInfo is the subset of a GraphQL PageInfo object needed for forward
// pagination.
type PageInfo struct {
	HasNextPage bool
	EndCursor   string
}

// Done is the terminal pagination state.
func Done() Meta {
	return Meta{}
}

func next(cursor string) Meta {
	return Meta{NextCursor: &cursor, HasMore: true}
}

// EncodePage synthesizes a REST page cursor.
func EncodePage(page int) string {
	return pagePrefix + strconv.Itoa(page)
}

// DecodePage recovers the page number from a cursor produced by EncodePage.
// Any other string, GraphQL cursors included, reports ok == false.
func DecodePage(cursor string) (int, bool) {
	m := pageCursorRE.FindStringSubmatch(cursor)
	if m == nil {
		return 0, false
	}
	page, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return page, true
}

// ResolvePage picks the REST page to request. An empty cursor falls back to
// page (or 1 when page < 1).
func ResolvePage(cursor string, page int) (int, error) {
	if cursor == "" {
		if page < 1 {
			return 1, nil
		}
		return page, nil
	}
	p, ok := DecodePage(cursor)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrForeignCursor, cursor)
	}
	return p, nil
}

// FromREST derives continuation metadata for a REST list call.
//
// A Link header is authoritative: rel="next" yields the linked page, and its
// absence ends pagination even if the page was full. Without a Link header a
// full page (returned >= perPage) is assumed to have a successor. That
// heuristic reports has_more on an exact multiple of perPage, so callers must
// tolerate one trailing empty page.
func FromREST(h http.Header, page, perPage, returned int) Meta {
	if page < 1 {
		page = 1
	}

	if link, ok := rate.HeaderValue(h, "Link"); ok && strings.TrimSpace(link) != "" {
		nextURL, found := nextLink(link)
		if !found {
			return Done()
		}
		if p, ok := pageParam(nextURL); ok {
			return next(EncodePage(p))
		}
		return next(EncodePage(page + 1))
	}

	if perPage > 0 && returned >= perPage {
		return next(EncodePage(page + 1))
	}
	return Done()
}

// FromGraphQL passes GraphQL page info through without reinterpretation.
func FromGraphQL(pi PageInfo) Meta {
	if !pi.HasNextPage {
		return Done()
	}
	if pi.EndCursor == "" {
		return Meta{HasMore: true}
	}
	return next(pi.EndCursor)
}

// nextLink returns the target of the rel="next" entry of an RFC 8288 Link
// header, e.g.
//
//	<https://api.github.com/repositories/1/issues?page=2>; rel="next", <...>; rel="last"
func nextLink(header string) (string, bool) {
	links := linkheader.Parse(header).FilterByRel("next")
	if len(links) == 0 || links[0].URL == "" {
		return "", false
	}
	return links[0].URL, true
}

func pageParam(rawURL string) (int, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	p, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || p < 1 {
		return 0, false
	}
	return p, true
}
