package source

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"bytenews/internal/geo"
	"bytenews/internal/model"
	"bytenews/internal/session"
)

const googleNewsSearchURL = "https://news.google.com/rss/search"

type languageProfile struct {
	HL   string // e.g. "en-CA"
	GL   string // e.g. "CA"
	CEID string // e.g. "CA:en"
}

// editions maps a country to its English Google News edition.
var editions = map[string]languageProfile{
	"us": {"en-US", "US", "US:en"},
	"gb": {"en-GB", "GB", "GB:en"},
	"ca": {"en-CA", "CA", "CA:en"},
	"au": {"en-AU", "AU", "AU:en"},
	"in": {"en-IN", "IN", "IN:en"},
	"de": {"en-DE", "DE", "DE:en"},
	"fr": {"en-FR", "FR", "FR:en"},
	"jp": {"en-JP", "JP", "JP:en"},
}

// GoogleNews answers free-text queries from the Google News search feed.
type GoogleNews struct {
	Client  *http.Client
	BaseURL string
	Limit   int
	geo     *geo.DatasetResolver
	log     *slog.Logger
}

func NewGoogleNews(log *slog.Logger) *GoogleNews {
	if log == nil {
		log = slog.Default()
	}
	return &GoogleNews{
		Client:  &http.Client{Timeout: 20 * time.Second},
		BaseURL: googleNewsSearchURL,
		Limit:   9,
		geo:     geo.Default(),
		log:     log,
	}
}

func (g *GoogleNews) Content(ctx context.Context, _ *session.Session, q model.Query) ([]model.Article, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, nil
	}
	ed, ok := editions[g.edition(q)]
	if !ok {
		ed = editions["us"]
	}

	u := fmt.Sprintf("%s?q=%s&hl=%s&gl=%s&ceid=%s",
		g.BaseURL,
		url.QueryEscape(text),
		url.QueryEscape(ed.HL),
		url.QueryEscape(ed.GL),
		url.QueryEscape(ed.CEID),
	)

	feed, err := fetchFeed(ctx, g.Client, gofeed.NewParser(), u)
	if err != nil {
		return nil, fmt.Errorf("google news search: %w", err)
	}

	out := make([]model.Article, 0, g.Limit)
	seen := map[string]bool{}
	skipped := 0
	for _, it := range feed.Items {
		if len(out) >= g.Limit {
			break
		}
		link := publisherURL(it)
		if link == "" {
			skipped++
			continue
		}
		if seen[normalizeURL(link)] {
			continue
		}
		seen[normalizeURL(link)] = true

		title, publisher := splitPublisher(strings.TrimSpace(it.Title))
		a := toArticle(feed, it)
		a.Title = title
		a.URL = link
		if publisher != "" {
			a.Source = publisher
		}
		out = append(out, a)
	}
	if skipped > 0 {
		g.log.Debug("google news items without a usable link", "skipped", skipped)
	}
	return out, nil
}

// edition picks the query's country, or the first supported country the
// search text names.
func (g *GoogleNews) edition(q model.Query) string {
	if q.Country != "" {
		return strings.ToLower(q.Country)
	}
	if g.geo == nil {
		return ""
	}
	for _, c := range g.geo.Mentions(q.Text) {
		if _, ok := editions[c.ISO2]; ok {
			return c.ISO2
		}
	}
	return ""
}

// splitPublisher separates the " - Publisher" suffix Google appends to titles.
func splitPublisher(title string) (string, string) {
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}

// Matches href="..." or href='...'
var reHrefAny = regexp.MustCompile(`(?i)\bhref\s*=\s*(?:"([^"]+)"|'([^']+)')`)

// Matches URLs in plain text
var reURLPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// publisherURL finds the article's real address. The description anchor is
// the most reliable, then the GUID, then parameters of the wrapper link. An
// unresolvable wrapper link is kept as is since it still redirects.
func publisherURL(it *gofeed.Item) string {
	if u := fromDescription(it.Description); u != "" {
		return u
	}
	if u := fromText(it.GUID); u != "" {
		return u
	}
	link := strings.TrimSpace(it.Link)
	if parsed, err := url.Parse(link); err == nil {
		for _, param := range []string{"url", "u", "link"} {
			if v := parsed.Query().Get(param); isPublisherURL(v) {
				return v
			}
		}
	}
	if isPublisherURL(link) || isGoogleNewsWrapper(link) {
		return link
	}
	return ""
}

func fromDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	// Google sometimes double-encodes.
	for i := 0; i < 3; i++ {
		unescaped := html.UnescapeString(desc)
		if unescaped == desc {
			break
		}
		desc = unescaped
	}

	for _, m := range reHrefAny.FindAllStringSubmatch(desc, -1) {
		href := strings.TrimSpace(m[1])
		if href == "" {
			href = strings.TrimSpace(m[2])
		}
		if isPublisherURL(href) {
			return href
		}
	}
	return fromText(desc)
}

func fromText(s string) string {
	for _, u := range reURLPattern.FindAllString(s, -1) {
		u = strings.TrimRight(u, `.,;:!?)'"`)
		if isPublisherURL(u) {
			return u
		}
	}
	return ""
}

func isGoogleNewsWrapper(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if !isGoogleHost(parsed.Hostname()) {
		return false
	}
	return strings.Contains(parsed.Path, "/articles/")
}

// isPublisherURL reports whether u is an absolute http(s) URL outside Google.
func isPublisherURL(u string) bool {
	u = strings.TrimSpace(u)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	return !isGoogleHost(parsed.Hostname())
}

var googleDomains = []string{"google.com", "google.ca", "google.co.uk", "google.fr"}

func isGoogleHost(host string) bool {
	host = strings.ToLower(host)
	for _, gd := range googleDomains {
		if host == gd || strings.HasSuffix(host, "."+gd) {
			return true
		}
	}
	return false
}
