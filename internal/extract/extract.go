package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	// MaxContentChars caps extracted text handed to the chat service.
	MaxContentChars = 10000
	TruncatedSuffix = "...\n[Content truncated due to length]"

	defaultTimeout = 15 * time.Second
	maxPageBytes   = 5 << 20
)

// truncatedMarker matches the "[+1234 chars]" tail news APIs append to
// shortened content.
var truncatedMarker = regexp.MustCompile(`\[\+\d+ chars\]\s*$`)

var ErrNoContent = errors.New("no readable content")

type Article struct {
	URL       string
	FinalURL  string
	Site      string
	Title     string
	Text      string
	FetchedAt time.Time
}

// Extractor fetches a page and pulls out its main text.
type Extractor struct {
	httpClient *http.Client
	maxChars   int
}

type Option func(*Extractor)

func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.httpClient.Timeout = d
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(e *Extractor) {
		e.httpClient = hc
	}
}

func WithMaxChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxChars:   MaxContentChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (Article, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Article{}, fmt.Errorf("invalid URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Article{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; bytenews/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Article{}, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	final := resp.Request.URL
	parsed, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), final)
	if err != nil {
		return Article{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	text := strings.TrimSpace(parsed.TextContent)
	if text == "" {
		return Article{}, ErrNoContent
	}

	return Article{
		URL:       rawURL,
		FinalURL:  final.String(),
		Site:      final.Hostname(),
		Title:     strings.TrimSpace(parsed.Title),
		Text:      Truncate(text, e.maxChars),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Truncate cuts text to max characters and marks the cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + TruncatedSuffix
}

// NeedsFullText reports whether content is missing or was shortened by the
// upstream provider.
func NeedsFullText(content string) bool {
	content = strings.TrimSpace(content)
	return content == "" || truncatedMarker.MatchString(content)
}
