package source

import (
	"context"
	"sync"
	"time"

	"bytenews/internal/metrics"
	"bytenews/internal/model"
	"bytenews/internal/session"
)

// DefaultTTL matches how long the news service keeps a query's results.
const DefaultTTL = 15 * time.Minute

type cacheEntry struct {
	at       time.Time
	articles []model.Article
}

// Cached memoizes successful queries for a TTL, keyed by
// (text, country, category). Failures are never cached.
type Cached struct {
	next Source
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCached(next Source, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cached{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]cacheEntry{},
	}
}

func (c *Cached) Content(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
	key := q.Key()

	// The session precondition holds even for cached answers.
	if !sess.Authenticated() {
		return nil, session.ErrNoToken
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.at) < c.ttl {
		metrics.ContentCacheLookups.WithLabelValues("hit").Inc()
		return append([]model.Article(nil), e.articles...), nil
	}
	metrics.ContentCacheLookups.WithLabelValues("miss").Inc()

	articles, err := c.next.Content(ctx, sess, q)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{at: c.now(), articles: append([]model.Article(nil), articles...)}
	c.mu.Unlock()
	return articles, nil
}

// Purge drops every entry, e.g. after logout.
func (c *Cached) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry{}
}
