package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"bytenews/internal/metrics"
	"bytenews/internal/model"
	"bytenews/internal/session"
	"bytenews/internal/source"
)

// PerTopic caps how many articles each personalized section shows.
const PerTopic = 3

type Status int

const (
	Loading Status = iota
	Ready
	Empty
	Error
	Expired
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Empty:
		return "empty"
	case Error:
		return "error"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// ErrFetchFailed means no content query of a cycle succeeded.
var ErrFetchFailed = errors.New("content fetch failed")

// Outcome is the result of one aggregation pass.
type Outcome struct {
	Status       Status
	Sections     []model.Section
	FailedTopics []string
	Err          error
}

// Orchestrator turns preferences or a search term into sections.
type Orchestrator struct {
	src      source.Source
	perTopic int
	log      *slog.Logger
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

func WithPerTopic(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.perTopic = n
		}
	}
}

func NewOrchestrator(src source.Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{src: src, perTopic: PerTopic, log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadPersonalized queries every topic concurrently and waits for all of
// them. A failing topic yields an empty section; sections follow the
// preference order, not arrival order.
func (o *Orchestrator) LoadPersonalized(ctx context.Context, sess *session.Session, p model.Preferences) Outcome {
	if !sess.Authenticated() {
		return Outcome{Status: Expired, Err: session.ErrNoToken}
	}

	results := make([][]model.Article, len(p.Topics))
	failed := make([]bool, len(p.Topics))
	errs := make([]error, len(p.Topics))
	var authFailed atomic.Bool

	var g errgroup.Group
	for i, topic := range p.Topics {
		i, topic := i, topic
		g.Go(func() error {
			q := model.Query{Text: topic, Country: p.Country, Category: topic}
			articles, err := o.src.Content(ctx, sess, q)
			if err != nil {
				metrics.ContentQueries.WithLabelValues("topic", "error").Inc()
				o.log.Warn("topic query failed", "topic", topic, "country", p.Country, "error", err)
				if session.IsAuthFailure(err) {
					authFailed.Store(true)
				}
				failed[i] = true
				errs[i] = err
				results[i] = []model.Article{}
				return nil
			}
			metrics.ContentQueries.WithLabelValues("topic", "ok").Inc()
			if articles == nil {
				articles = []model.Article{}
			}
			if len(articles) > o.perTopic {
				articles = articles[:o.perTopic]
			}
			results[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	if authFailed.Load() {
		return Outcome{Status: Expired, Err: session.ErrAuthExpired}
	}

	out := Outcome{Sections: make([]model.Section, 0, len(p.Topics))}
	for i, topic := range p.Topics {
		out.Sections = append(out.Sections, model.Section{Key: topic, Articles: results[i]})
		if failed[i] {
			out.FailedTopics = append(out.FailedTopics, topic)
		}
	}
	if len(p.Topics) > 0 && len(out.FailedTopics) == len(p.Topics) {
		out.Status = Error
		out.Err = fmt.Errorf("%w: %w", ErrFetchFailed, errors.Join(errs...))
		return out
	}
	out.Status = statusOf(out.Sections)
	return out
}

// LoadSearch runs one free-text query and scopes every result into the
// "Search Results" section.
func (o *Orchestrator) LoadSearch(ctx context.Context, sess *session.Session, term string) Outcome {
	term = strings.TrimSpace(term)
	sections := []model.Section{{Key: model.SearchResultsKey, Articles: []model.Article{}}}

	if !sess.Authenticated() {
		return Outcome{Status: Expired, Err: session.ErrNoToken}
	}
	if term == "" {
		return Outcome{Status: Empty, Sections: sections}
	}

	articles, err := o.src.Content(ctx, sess, model.Query{Text: term})
	if err != nil {
		metrics.ContentQueries.WithLabelValues("search", "error").Inc()
		if session.IsAuthFailure(err) {
			return Outcome{Status: Expired, Err: err}
		}
		o.log.Warn("search query failed", "term", term, "error", err)
		return Outcome{Status: Error, Sections: sections, Err: fmt.Errorf("%w: %w", ErrFetchFailed, err)}
	}
	metrics.ContentQueries.WithLabelValues("search", "ok").Inc()

	if articles == nil {
		articles = []model.Article{}
	}
	sections[0].Articles = articles
	return Outcome{Status: statusOf(sections), Sections: sections}
}

func statusOf(sections []model.Section) Status {
	if model.CountArticles(sections) == 0 {
		return Empty
	}
	return Ready
}
