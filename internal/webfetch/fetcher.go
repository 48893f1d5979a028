// Package webfetch retrieves a grant's live detail page and extracts its
// main textual content for prompt context.
package webfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// FailureKind tags why a fetch produced no usable content.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureTimeout    FailureKind = "timeout"
	FailureHTTPStatus FailureKind = "http_status"
	FailureTransport  FailureKind = "transport"
	FailureNoBody     FailureKind = "no_body"
	FailureUnexpected FailureKind = "unexpected"
)

// Result is the outcome of one fetch: either extracted page text or a
// tagged failure. Failures are context for the completion step, never
// request errors. Text is not truncated here; the caller bounds it.
type Result struct {
	Text    string
	Failure FailureKind
	Detail  string // status code or error description for failures
}

// OK reports whether the fetch yielded usable page text.
func (r Result) OK() bool { return r.Failure == FailureNone }

// Status renders the result as the labeled status string injected into the
// prompt: real content when available, otherwise an explicit error note so
// the model knows live details could not be retrieved.
func (r Result) Status() string {
	if r.OK() {
		return r.Text
	}
	switch r.Failure {
	case FailureTimeout:
		return fmt.Sprintf("[Error fetching content: timeout %s]", r.Detail)
	case FailureHTTPStatus:
		return fmt.Sprintf("[Error fetching content: HTTP status %s]", r.Detail)
	case FailureTransport:
		return fmt.Sprintf("[Error fetching content: %s]", r.Detail)
	case FailureNoBody:
		return "[Could not find body tag]"
	default:
		return "[Unexpected error fetching content]"
	}
}

// Fetcher retrieves pages with a fixed request timeout.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher. The timeout bounds the whole request; zero selects
// the 15 second default.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Fetch retrieves targetURL and extracts its main text. Every failure mode
// maps to a tagged Result; Fetch itself never returns an error.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return Result{Failure: FailureTransport, Detail: err.Error()}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; GrantsAssistant/1.0)")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Result{Failure: FailureTimeout, Detail: "connecting to " + targetURL}
		}
		return Result{Failure: FailureTransport, Detail: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Failure: FailureHTTPStatus, Detail: fmt.Sprintf("%d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if isTimeout(err) {
			return Result{Failure: FailureTimeout, Detail: "reading " + targetURL}
		}
		return Result{Failure: FailureTransport, Detail: err.Error()}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "html") {
		// Non-HTML responses pass through verbatim.
		zap.L().Debug("webfetch: non-html content type, returning raw body",
			zap.String("url", targetURL),
			zap.String("content_type", contentType),
		)
		return Result{Text: string(body)}
	}

	return extract(body)
}

// extract parses HTML and pulls text from the first content-bearing
// container in priority order: main, article, #content, .content, body.
// The ordered fallback chain is brittle against arbitrary page structure
// but matches how grants.gov detail pages are laid out.
func extract(body []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("webfetch: panic during html extraction", zap.Any("panic", r))
			res = Result{Failure: FailureUnexpected, Detail: fmt.Sprint(r)}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{Failure: FailureUnexpected, Detail: err.Error()}
	}

	for _, selector := range []string{"main", "article", "div#content", "div.content"} {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return Result{Text: blockText(sel)}
		}
	}

	if b := doc.Find("body").First(); b.Length() > 0 {
		return Result{Text: blockText(b)}
	}
	return Result{Failure: FailureNoBody}
}

// blockText collects trimmed text node content joined with newlines, the
// same shape BeautifulSoup's get_text(separator="\n", strip=True) produces.
func blockText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("script,style").Remove()
	var walk func(nodes *goquery.Selection)
	walk = func(nodes *goquery.Selection) {
		nodes.Contents().Each(func(_ int, n *goquery.Selection) {
			if goquery.NodeName(n) == "#text" {
				if t := strings.TrimSpace(n.Text()); t != "" {
					parts = append(parts, t)
				}
				return
			}
			walk(n)
		})
	}
	walk(sel)
	return strings.Join(parts, "\n")
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
