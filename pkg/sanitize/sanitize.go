// Package sanitize strips content that is invisible to a human reviewer but
// still reaches the model: hidden Unicode, smuggled code-fence info strings
// and raw HTML in issue and pull request text.
package sanitize

import (
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// hidden lists the runes removed from every string.
var hidden = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00AD, Hi: 0x00AD, Stride: 1}, // soft hyphen
		{Lo: 0x180E, Hi: 0x180E, Stride: 1}, // mongolian vowel separator
		{Lo: 0x200B, Hi: 0x200C, Stride: 1}, // zero width space, non-joiner
		{Lo: 0x200E, Hi: 0x200F, Stride: 1}, // LTR/RTL marks
		{Lo: 0x202A, Hi: 0x202E, Stride: 1}, // bidi embeddings and overrides
		{Lo: 0x2060, Hi: 0x2064, Stride: 1}, // word joiner, invisible operators
		{Lo: 0x2066, Hi: 0x2069, Stride: 1}, // bidi isolates
		{Lo: 0xFEFF, Hi: 0xFEFF, Stride: 1}, // zero width no-break space
	},
	R32: []unicode.Range32{
		{Lo: 0xE0001, Hi: 0xE0001, Stride: 1}, // language tag
		{Lo: 0xE0020, Hi: 0xE007F, Stride: 1}, // tag characters
	},
}

const maxFenceInfoLength = 48

var policy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()

	p.AllowElements(
		"b", "blockquote", "br", "code", "em",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"hr", "i", "li", "ol", "p", "pre",
		"strong", "sub", "sup", "table", "tbody",
		"td", "th", "thead", "tr", "ul",
		"a", "img",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	p.AllowImages()
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	return p
})

// Text removes hidden runes. Use it for single-line values such as titles,
// labels and check names.
func Text(s string) string {
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.Is(hidden, r) {
			return -1
		}
		return r
	}, s)
}

// Markdown sanitizes a Markdown body: hidden runes, code-fence info strings
// and HTML outside the allowed policy are removed.
func Markdown(s string) string {
	if s == "" {
		return s
	}
	return HTML(Fences(Text(s)))
}

// HTML applies the allowed-element policy.
func HTML(s string) string {
	if s == "" {
		return s
	}
	return policy().Sanitize(s)
}

// Fences drops info strings of fenced code blocks unless they look like a
// plain language tag.
func Fences(s string) string {
	if s == "" || !strings.Contains(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	open := 0 // backtick count of the open fence, 0 outside a block
	for i, line := range lines {
		ticks, rest, ok := fence(line)
		if !ok {
			continue
		}
		if open != 0 {
			if ticks == open {
				lines[i] = line[:len(line)-len(rest)]
				open = 0
			}
			continue
		}
		open = ticks
		lines[i] = line[:len(line)-len(rest)] + infoString(rest)
	}
	return strings.Join(lines, "\n")
}

// fence reports whether line starts (after indentation) with three or more
// backticks, returning their count and the remainder of the line.
func fence(line string) (int, string, bool) {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	ticks := len(trimmed) - len(strings.TrimLeft(trimmed, "`"))
	if ticks < 3 {
		return 0, "", false
	}
	return ticks, trimmed[ticks:], true
}

func infoString(rest string) string {
	token := strings.TrimSpace(rest)
	if token == "" || len(token) > maxFenceInfoLength || strings.IndexFunc(token, unicode.IsSpace) != -1 {
		return ""
	}
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("+-_#.", r) {
			continue
		}
		return ""
	}
	if unicode.IsSpace(rune(rest[0])) {
		return " " + token
	}
	return token
}
