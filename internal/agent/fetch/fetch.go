// Package fetch retrieves job pages for the tracking agent. Pages are
// fetched over plain HTTP first, with a headless-browser fallback for
// JavaScript-rendered job boards.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; JobTrackerAgent/1.0)"

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	UseBrowser bool // allow headless-browser fallback for SPA pages
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:    DefaultTimeout,
		UserAgent:  DefaultUserAgent,
		UseBrowser: true,
	}
}

// HTML retrieves the raw HTML of a URL over HTTP.
func HTML(ctx context.Context, urlStr string, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	client := &http.Client{Timeout: opts.Timeout}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return string(body), &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return string(body), nil
}

// Page fetches a URL and parses it into a document. If the plain fetch
// produces too little text to be a rendered job page and browser fallback is
// enabled, the page is re-rendered in a headless browser.
func Page(ctx context.Context, urlStr string, opts *Options) (*goquery.Document, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	html, err := HTML(ctx, urlStr, opts)
	if err != nil && html == "" {
		return nil, err
	}

	doc, parseErr := parse(urlStr, html)
	if parseErr != nil {
		return nil, parseErr
	}

	if opts.UseBrowser && ShouldUseBrowser(doc.Text()) {
		rendered, berr := RenderPage(ctx, urlStr, opts.Timeout)
		if berr == nil {
			if renderedDoc, perr := parse(urlStr, rendered); perr == nil {
				return renderedDoc, nil
			}
		}
	}
	return doc, err
}

func parse(urlStr, html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to parse HTML", Cause: err}
	}
	return doc, nil
}

// JobText extracts the job posting text from a document, preferring
// platform-specific content selectors and falling back to the page body.
func JobText(doc *goquery.Document, platform Platform) string {
	doc.Find("nav, footer, header, script, style, noscript, .ad, .sidebar, .cookie-banner, .popup").Remove()

	for _, selector := range ContentSelectors(platform) {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return cleanWhitespace(sel.First().Text())
		}
	}
	return cleanWhitespace(doc.Find("body").Text())
}

func cleanWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		if trimmed := strings.Join(strings.Fields(line), " "); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
