// Package logs downloads CI logs from signed URLs and turns them into a single
// text document, optionally tailed and stamped.
package logs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"

	"github.com/hautechai/github-mcp/pkg/buffer"
	ghErrors "github.com/hautechai/github-mcp/pkg/errors"
)

// zipMagic is the local file header signature that starts every ZIP archive.
var zipMagic = []byte("PK\x03\x04")

var textSuffixes = []string{".txt", ".log"}

// Options control the transforms applied after extraction.
type Options struct {
	// TailLines keeps only the final N lines when positive.
	TailLines         int
	IncludeTimestamps bool
}

// Document is the assembled log text.
type Document struct {
	Content    string   `json:"content"`
	TotalLines int      `json:"total_lines"`
	Truncated  bool     `json:"truncated"`
	Members    []string `json:"members,omitempty"`
}

// Retriever fetches and assembles logs. The zero value uses http.DefaultClient
// and time.Now.
type Retriever struct {
	Client *http.Client
	Now    func() time.Time
}

// NewRetriever returns a Retriever using client.
func NewRetriever(client *http.Client) *Retriever {
	return &Retriever{Client: client, Now: time.Now}
}

func (r *Retriever) client() *http.Client {
	if r.Client == nil {
		return http.DefaultClient
	}
	return r.Client
}

func (r *Retriever) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Fetch downloads url. Signed URLs must not receive credentials, so the
// request carries no auth header. A non-2xx response fails with a
// *ghErrors.GitHubRawAPIError carrying the response.
func (r *Retriever) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create log download request: %w", err)
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ghErrors.NewGitHubRawAPIError(
			fmt.Sprintf("failed to download logs: unexpected status %s", resp.Status), resp, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read log download: %w", err)
	}
	return body, nil
}

// IsArchive reports whether body starts with a ZIP signature.
func IsArchive(body []byte) bool {
	return bytes.HasPrefix(body, zipMagic)
}

// Extract opens archive in memory and joins every plain-text member, in
// archive order, with "\n". Other members are skipped. Invalid UTF-8 is
// replaced. A body that is not a ZIP archive fails with INVALID_ARCHIVE.
func Extract(archive []byte) (string, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", nil, ghErrors.NewNamedError(ghErrors.CodeInvalidArchive, "failed to open log archive", err)
	}

	var parts, members []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isTextMember(f.Name) {
			continue
		}
		text, err := readMember(f)
		if err != nil {
			return "", nil, ghErrors.NewNamedError(ghErrors.CodeInvalidArchive,
				fmt.Sprintf("failed to read log archive member %s", f.Name), err)
		}
		parts = append(parts, text)
		members = append(members, f.Name)
	}
	return strings.Join(parts, "\n"), members, nil
}

func isTextMember(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range textSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func readMember(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return decodeText(data), nil
}

func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// Tail keeps the last n lines of doc, splitting on "\n", "\r\n" and "\r".
// Lines are rejoined with "\n". truncated is true iff doc had more than n
// lines. n <= 0 keeps every line.
func Tail(doc string, n int) (text string, total int, truncated bool) {
	// a strings.Reader never fails
	text, total, _ = buffer.ProcessAsRingBufferToEnd(strings.NewReader(doc), n)
	return text, total, n > 0 && total > n
}

// Annotate prefixes each of lines with the same RFC 3339 instant and joins
// them with "\n".
func Annotate(lines []string, at time.Time) string {
	stamp := at.UTC().Format(time.RFC3339)
	stamped := make([]string, len(lines))
	for i, line := range lines {
		stamped[i] = stamp + " " + line
	}
	return strings.Join(stamped, "\n")
}

// splitLines breaks doc the way Tail counts it: on "\n", "\r\n" or a lone
// "\r", with a trailing break not starting an extra line.
func splitLines(doc string) []string {
	var lines []string
	for doc != "" {
		i := strings.IndexAny(doc, "\r\n")
		if i < 0 {
			lines = append(lines, doc)
			break
		}
		lines = append(lines, doc[:i])
		if doc[i] == '\r' && i+1 < len(doc) && doc[i+1] == '\n' {
			i++
		}
		doc = doc[i+1:]
	}
	return lines
}

// Assemble applies the tail window and the timestamp pass to doc. Without a
// window and without timestamps doc is returned as is.
func (r *Retriever) Assemble(doc string, opts Options) *Document {
	if opts.TailLines <= 0 {
		lines := splitLines(doc)
		content := doc
		if opts.IncludeTimestamps {
			content = Annotate(lines, r.now())
		}
		return &Document{Content: content, TotalLines: len(lines)}
	}

	text, total, truncated := Tail(doc, opts.TailLines)
	if opts.IncludeTimestamps {
		var kept []string
		if min(total, opts.TailLines) > 0 {
			kept = strings.Split(text, "\n")
		}
		text = Annotate(kept, r.now())
	}
	return &Document{Content: text, TotalLines: total, Truncated: truncated}
}

// Retrieve downloads a log archive from url and assembles its text members.
func (r *Retriever) Retrieve(ctx context.Context, url string, opts Options) (*Document, error) {
	body, err := r.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return r.FromArchive(body, opts)
}

// FromArchive assembles an already downloaded archive.
func (r *Retriever) FromArchive(body []byte, opts Options) (*Document, error) {
	doc, members, err := Extract(body)
	if err != nil {
		return nil, err
	}
	d := r.Assemble(doc, opts)
	d.Members = members
	return d, nil
}

// RetrieveText downloads a plain-text log from url.
func (r *Retriever) RetrieveText(ctx context.Context, url string, opts Options) (*Document, error) {
	body, err := r.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return r.Assemble(decodeText(body), opts), nil
}

// RetrieveAny downloads url and picks the archive or plain-text path by
// sniffing the body.
func (r *Retriever) RetrieveAny(ctx context.Context, url string, opts Options) (*Document, error) {
	body, err := r.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if IsArchive(body) {
		return r.FromArchive(body, opts)
	}
	return r.Assemble(decodeText(body), opts), nil
}
