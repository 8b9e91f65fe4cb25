package source

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"bytenews/internal/model"
	"bytenews/internal/session"
)

// RSS answers content queries from curated publisher feeds, filtered
// locally by keyword. Feeds are chosen by the query's country; queries
// without a known country use the world feeds.
type RSS struct {
	Client    *http.Client
	ByCountry map[string][]string // lower-case ISO2 -> feed URLs
	World     []string
	Limit     int
	log       *slog.Logger
}

func NewRSS(log *slog.Logger) *RSS {
	if log == nil {
		log = slog.Default()
	}
	return &RSS{
		Client:    &http.Client{Timeout: 15 * time.Second},
		ByCountry: directFeedsByCountry(),
		World: []string{
			"https://rss.nytimes.com/services/xml/rss/nyt/World.xml",
			"https://www.theguardian.com/world/rss",
			"https://feeds.bbci.co.uk/news/world/rss.xml",
			"https://www.aljazeera.com/xml/rss/all.xml",
		},
		Limit: 9,
		log:   log,
	}
}

func (r *RSS) Content(ctx context.Context, _ *session.Session, q model.Query) ([]model.Article, error) {
	keywords := searchKeywords(q.Text)
	if len(keywords) == 0 {
		return nil, nil
	}

	feeds := r.World
	if list, ok := r.ByCountry[strings.ToLower(q.Country)]; ok && q.Country != "" {
		feeds = list
	}

	parser := gofeed.NewParser()
	out := make([]model.Article, 0, r.Limit)
	seen := map[string]bool{}
	failed := 0

	for _, feedURL := range feeds {
		if len(out) >= r.Limit {
			break
		}
		feed, err := r.fetch(ctx, parser, feedURL)
		if err != nil {
			failed++
			r.log.Debug("feed skipped", "url", feedURL, "error", err)
			continue
		}

		for _, it := range feed.Items {
			if len(out) >= r.Limit {
				break
			}
			if !matchesAnyKeyword(strings.ToLower(it.Title+" "+it.Description), keywords) {
				continue
			}
			link := strings.TrimSpace(it.Link)
			if link == "" || seen[normalizeURL(link)] {
				continue
			}
			seen[normalizeURL(link)] = true
			out = append(out, toArticle(feed, it))
		}
	}

	if failed == len(feeds) && len(feeds) > 0 {
		return nil, fmt.Errorf("all %d feeds failed", failed)
	}
	return out, nil
}

func (r *RSS) fetch(ctx context.Context, parser *gofeed.Parser, feedURL string) (*gofeed.Feed, error) {
	return fetchFeed(ctx, r.Client, parser, feedURL)
}

func fetchFeed(ctx context.Context, client *http.Client, parser *gofeed.Parser, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 bytenews/0.1")
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return parser.Parse(resp.Body)
}

var reTags = regexp.MustCompile(`<[^>]*>`)

func plainText(s string) string {
	s = html.UnescapeString(reTags.ReplaceAllString(s, " "))
	return strings.Join(strings.Fields(s), " ")
}

func toArticle(feed *gofeed.Feed, it *gofeed.Item) model.Article {
	desc := plainText(it.Description)
	a := model.Article{
		Title:       strings.TrimSpace(it.Title),
		Summary:     desc,
		Description: desc,
		Content:     plainText(it.Content),
		Source:      strings.TrimSpace(feed.Title),
		URL:         strings.TrimSpace(it.Link),
	}
	if it.Image != nil {
		a.ImageURL = it.Image.URL
	} else {
		for _, enc := range it.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				a.ImageURL = enc.URL
				break
			}
		}
	}
	if a.Source == "" {
		a.Source = "Unknown Source"
	}
	return a
}

// directFeedsByCountry returns major publisher feeds per supported country.
func directFeedsByCountry() map[string][]string {
	return map[string][]string{
		"ca": {
			"https://www.cbc.ca/webfeed/rss/rss-topstories",
			"https://www.cbc.ca/webfeed/rss/rss-business",
			"https://globalnews.ca/canada/feed/",
		},
		"us": {
			"https://feeds.npr.org/1001/rss.xml",
			"https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml",
			"https://rss.nytimes.com/services/xml/rss/nyt/Business.xml",
		},
		"gb": {
			"https://feeds.bbci.co.uk/news/rss.xml",
			"https://feeds.bbci.co.uk/news/business/rss.xml",
			"https://www.theguardian.com/uk/rss",
		},
		"fr": {
			"https://www.lemonde.fr/rss/une.xml",
			"https://www.france24.com/en/rss",
		},
		"de": {
			"https://www.dw.com/en/rss",
		},
		"au": {
			"https://www.abc.net.au/news/feed/51120/rss.xml",
		},
		"in": {
			"https://feeds.feedburner.com/ndtvnews-top-stories",
		},
		"jp": {
			"https://www3.nhk.or.jp/rss/news/cat0.xml",
		},
	}
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
}

func searchKeywords(query string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if !stopWords[word] && len(word) >= 2 {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

func matchesAnyKeyword(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.Index(u, "?"); i > 0 {
		u = u[:i]
	}
	if i := strings.Index(u, "#"); i > 0 {
		u = u[:i]
	}
	return strings.ToLower(u)
}
