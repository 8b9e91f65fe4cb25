package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytenews/internal/metrics"
	"bytenews/internal/model"
	"bytenews/internal/session"
	"bytenews/internal/source"
)

func articles(prefix string, n int) []model.Article {
	out := make([]model.Article, n)
	for i := range out {
		out[i] = model.Article{Title: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return out
}

func keys(sections []model.Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Key
	}
	return out
}

func TestLoadPersonalizedScenario(t *testing.T) {
	prefs := model.Preferences{Country: "gb", Topics: []string{"sports", "finance", "world"}}

	var mu sync.Mutex
	var seen []model.Query
	arrived := make(chan struct{}, 3)
	allIn := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			<-arrived
		}
		close(allIn)
	}()

	src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		mu.Lock()
		seen = append(seen, q)
		mu.Unlock()

		// Every query must be in flight before any of them answers.
		arrived <- struct{}{}
		select {
		case <-allIn:
		case <-time.After(2 * time.Second):
			return nil, errors.New("queries were not concurrent")
		}

		if q.Text == "finance" {
			return nil, errors.New("upstream 500")
		}
		return articles(q.Text, 5), nil
	})

	out := NewOrchestrator(src).LoadPersonalized(context.Background(), session.New("tok"), prefs)

	require.Equal(t, Ready, out.Status)
	assert.Equal(t, []string{"sports", "finance", "world"}, keys(out.Sections))
	assert.Len(t, out.Sections[0].Articles, 3)
	assert.Empty(t, out.Sections[1].Articles)
	assert.NotNil(t, out.Sections[1].Articles)
	assert.Len(t, out.Sections[2].Articles, 3)
	assert.Equal(t, []string{"finance"}, out.FailedTopics)

	assert.ElementsMatch(t, []model.Query{
		{Text: "sports", Country: "gb", Category: "sports"},
		{Text: "finance", Country: "gb", Category: "finance"},
		{Text: "world", Country: "gb", Category: "world"},
	}, seen)
}

func TestLoadPersonalizedKeepsTopicOrder(t *testing.T) {
	delays := map[string]time.Duration{"a": 60 * time.Millisecond, "b": 30 * time.Millisecond, "c": 0}
	src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		time.Sleep(delays[q.Text])
		return articles(q.Text, 2), nil
	})

	for _, topics := range [][]string{{"a", "b", "c"}, {"c", "a", "b"}, {"b", "c", "a"}} {
		out := NewOrchestrator(src).LoadPersonalized(context.Background(), session.New("tok"),
			model.Preferences{Country: "us", Topics: topics})
		assert.Equal(t, topics, keys(out.Sections))
		for _, s := range out.Sections {
			assert.LessOrEqual(t, len(s.Articles), PerTopic)
			assert.Equal(t, s.Key+"-0", s.Articles[0].Title)
		}
	}
}

func TestLoadPersonalizedEmptyAndExpired(t *testing.T) {
	prefs := model.DefaultPreferences()

	t.Run("AllEmpty", func(t *testing.T) {
		src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
			return nil, nil
		})
		out := NewOrchestrator(src).LoadPersonalized(context.Background(), session.New("tok"), prefs)
		assert.Equal(t, Empty, out.Status)
		assert.Len(t, out.Sections, 3)
	})

	t.Run("AuthFailure", func(t *testing.T) {
		src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
			if q.Text == "business" {
				return nil, fmt.Errorf("GET /content: %w", session.ErrAuthExpired)
			}
			return articles(q.Text, 1), nil
		})
		out := NewOrchestrator(src).LoadPersonalized(context.Background(), session.New("tok"), prefs)
		assert.Equal(t, Expired, out.Status)
		assert.Empty(t, out.Sections)
	})

	t.Run("NoTokenNoQueries", func(t *testing.T) {
		called := false
		src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
			called = true
			return nil, nil
		})
		out := NewOrchestrator(src).LoadPersonalized(context.Background(), session.New(""), prefs)
		assert.Equal(t, Expired, out.Status)
		assert.False(t, called)
	})
}

func TestLoadSearch(t *testing.T) {
	var got model.Query
	src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		got = q
		return articles("ai", 7), nil
	})

	out := NewOrchestrator(src).LoadSearch(context.Background(), session.New("tok"), "ai")
	require.Len(t, out.Sections, 1)
	assert.Equal(t, model.SearchResultsKey, out.Sections[0].Key)
	assert.Len(t, out.Sections[0].Articles, 7, "search results are not capped")
	assert.Equal(t, model.Query{Text: "ai"}, got)
	assert.Equal(t, Ready, out.Status)
}

func TestLoadSearchEmptyVersusError(t *testing.T) {
	empty := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		return nil, nil
	})
	out := NewOrchestrator(empty).LoadSearch(context.Background(), session.New("tok"), "nothing")
	assert.Equal(t, Empty, out.Status)
	require.Len(t, out.Sections, 1)
	assert.NoError(t, out.Err)

	failing := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		return nil, errors.New("network down")
	})
	out = NewOrchestrator(failing).LoadSearch(context.Background(), session.New("tok"), "ai")
	assert.Equal(t, Error, out.Status)
	require.Len(t, out.Sections, 1)
	assert.Equal(t, model.SearchResultsKey, out.Sections[0].Key)
	assert.Error(t, out.Err)
}

func TestBoardDiscardsStaleCycles(t *testing.T) {
	b := NewBoard()

	gen1 := b.Begin("personalized", "")
	gen2 := b.Begin("searching", "ai")
	require.Greater(t, gen2, gen1)

	cycle2 := Outcome{Status: Ready, Sections: []model.Section{{Key: model.SearchResultsKey, Articles: articles("new", 1)}}}
	cycle1 := Outcome{Status: Ready, Sections: []model.Section{{Key: "technology", Articles: articles("old", 1)}}}

	discarded := testutil.ToFloat64(metrics.FetchCyclesDiscarded)
	assert.True(t, b.Commit(gen2, cycle2))
	assert.False(t, b.Commit(gen1, cycle1))
	assert.Equal(t, discarded+1, testutil.ToFloat64(metrics.FetchCyclesDiscarded))

	v := b.Snapshot()
	assert.Equal(t, gen2, v.Generation)
	assert.Equal(t, "ai", v.Term)
	assert.Equal(t, []string{model.SearchResultsKey}, keys(v.Sections))
	assert.Equal(t, "new-0", v.Sections[0].Articles[0].Title)
}

func TestBoardBeginClearsSections(t *testing.T) {
	b := NewBoard()
	var seen []Status
	b.Subscribe(func(v View) { seen = append(seen, v.Status) })

	gen := b.Begin("personalized", "")
	b.Commit(gen, Outcome{Status: Ready, Sections: []model.Section{{Key: "world", Articles: articles("w", 1)}}})
	b.Begin("personalized", "")

	v := b.Snapshot()
	assert.Equal(t, Loading, v.Status)
	assert.Empty(t, v.Sections)
	assert.Equal(t, []Status{Loading, Ready, Loading}, seen)
}

func TestSnapshotIsACopy(t *testing.T) {
	b := NewBoard()
	gen := b.Begin("personalized", "")
	b.Commit(gen, Outcome{Status: Ready, Sections: []model.Section{{Key: "world", Articles: articles("w", 1)}}})

	v := b.Snapshot()
	v.Sections[0].Articles[0].Title = "mutated"
	assert.Equal(t, "w-0", b.Snapshot().Sections[0].Articles[0].Title)
}

func TestLoadPersonalizedAllTopicsFailing(t *testing.T) {
	src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		return nil, errors.New("connection refused")
	})
	out := NewOrchestrator(src).LoadPersonalized(context.Background(), session.New("tok"), model.DefaultPreferences())

	assert.Equal(t, Error, out.Status)
	assert.ErrorIs(t, out.Err, ErrFetchFailed)
	assert.ErrorContains(t, out.Err, "connection refused")
	assert.Equal(t, []string{"technology", "business", "health"}, out.FailedTopics)
	assert.Equal(t, []string{"technology", "business", "health"}, keys(out.Sections))

	b := NewBoard()
	gen := b.Begin("personalized", "")
	require.True(t, b.Commit(gen, out))
	v := b.Snapshot()
	assert.Equal(t, Error, v.Status)
	assert.ErrorIs(t, v.Err, ErrFetchFailed)
	assert.Equal(t, out.FailedTopics, v.FailedTopics)
}

func TestLoadPersonalizedNilResultIsEmptyList(t *testing.T) {
	src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		if q.Text == "health" {
			return articles("h", 1), nil
		}
		return nil, nil
	})
	out := NewOrchestrator(src).LoadPersonalized(context.Background(), session.New("tok"), model.DefaultPreferences())

	require.Len(t, out.Sections, 3)
	for _, s := range out.Sections {
		assert.NotNil(t, s.Articles, s.Key)
	}
	assert.Equal(t, Ready, out.Status)
	assert.Empty(t, out.FailedTopics)
}

func TestBoardNotifiesInGenerationOrder(t *testing.T) {
	b := NewBoard()

	var mu sync.Mutex
	var last View
	delivering := make(chan struct{})
	b.Subscribe(func(v View) {
		if v.Generation == 1 && v.Status == Ready {
			close(delivering)
			time.Sleep(100 * time.Millisecond)
		}
		mu.Lock()
		last = v
		mu.Unlock()
	})

	gen1 := b.Begin("personalized", "")
	committed := make(chan struct{})
	go func() {
		defer close(committed)
		b.Commit(gen1, Outcome{Status: Ready, Sections: []model.Section{{Key: "technology", Articles: articles("old", 1)}}})
	}()

	<-delivering
	gen2 := b.Begin("searching", "ai")
	require.True(t, b.Commit(gen2, Outcome{Status: Ready, Sections: []model.Section{{Key: model.SearchResultsKey, Articles: articles("new", 1)}}}))
	<-committed

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, gen2, b.Snapshot().Generation)
	assert.Equal(t, gen2, last.Generation)
	assert.Equal(t, []string{model.SearchResultsKey}, keys(last.Sections))
}
