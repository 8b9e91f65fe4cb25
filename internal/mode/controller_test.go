package mode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytenews/internal/feed"
	"bytenews/internal/model"
	"bytenews/internal/prefs"
	"bytenews/internal/session"
	"bytenews/internal/source"
)

type resolverFunc func(ctx context.Context, sess *session.Session) prefs.Result

func (f resolverFunc) Resolve(ctx context.Context, sess *session.Session) prefs.Result {
	return f(ctx, sess)
}

func found(p model.Preferences) Resolver {
	return resolverFunc(func(ctx context.Context, sess *session.Session) prefs.Result {
		return prefs.Result{Status: prefs.Found, Preferences: p}
	})
}

func echoSource(calls *atomic.Int32) source.Source {
	return source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		if calls != nil {
			calls.Add(1)
		}
		return []model.Article{{Title: q.Text}}, nil
	})
}

func newController(sess *session.Session, r Resolver, src source.Source) *Controller {
	return New(sess, r, feed.NewOrchestrator(src), feed.NewBoard())
}

func sectionKeys(v feed.View) []string {
	out := make([]string, len(v.Sections))
	for i, s := range v.Sections {
		out[i] = s.Key
	}
	return out
}

func TestStartLoadsPersonalized(t *testing.T) {
	p := model.Preferences{Country: "gb", Topics: []string{"sports", "finance", "world"}}
	c := newController(session.New("tok"), found(p), echoSource(nil))

	c.Start()
	c.Wait()

	v := c.View()
	assert.Equal(t, feed.Ready, v.Status)
	assert.Equal(t, "personalized", v.Mode)
	assert.Equal(t, []string{"sports", "finance", "world"}, sectionKeys(v))
	require.NotNil(t, v.Preferences)
	assert.Equal(t, p, *v.Preferences)
	assert.Empty(t, v.Warning)
}

func TestSubmitAndClear(t *testing.T) {
	c := newController(session.New("tok"), found(model.DefaultPreferences()), echoSource(nil))
	c.Start()
	c.Wait()

	assert.False(t, c.Submit("   "))
	state, _ := c.State()
	assert.Equal(t, Personalized, state)

	require.True(t, c.Submit(" ai "))
	c.Wait()
	state, term := c.State()
	assert.Equal(t, Searching, state)
	assert.Equal(t, "ai", term)
	v := c.View()
	assert.Equal(t, []string{model.SearchResultsKey}, sectionKeys(v))
	assert.Equal(t, "ai", v.Sections[0].Articles[0].Title)

	before := v.Generation
	require.True(t, c.Submit("golang"))
	c.Wait()
	v = c.View()
	assert.Greater(t, v.Generation, before)
	assert.Equal(t, "golang", v.Sections[0].Articles[0].Title)

	require.True(t, c.Clear())
	c.Wait()
	v = c.View()
	assert.Equal(t, "personalized", v.Mode)
	assert.Equal(t, []string{"technology", "business", "health"}, sectionKeys(v))
	assert.False(t, c.Clear())
}

func TestSlowPersonalizedCycleDoesNotOverwriteSearch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 3)
	src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		if q.Category != "" {
			started <- struct{}{}
			<-release
		}
		return []model.Article{{Title: q.Text}}, nil
	})
	c := newController(session.New("tok"), found(model.DefaultPreferences()), src)

	c.Start()
	for i := 0; i < 3; i++ {
		<-started
	}

	c.Submit("ai")
	// Let the search cycle finish first, then release the stale one.
	require.Eventually(t, func() bool { return c.View().Status == feed.Ready }, testTimeout, testTick)
	close(release)
	c.Wait()

	v := c.View()
	assert.Equal(t, "searching", v.Mode)
	assert.Equal(t, []string{model.SearchResultsKey}, sectionKeys(v))
}

func TestExpiryResetsWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	sess := session.New("tok")
	c := newController(sess, found(model.DefaultPreferences()), echoSource(&calls))
	c.Start()
	c.Wait()
	require.Equal(t, int32(3), calls.Load())

	require.True(t, sess.Expire())
	c.Wait()

	v := c.View()
	assert.Equal(t, feed.Expired, v.Status)
	assert.Empty(t, v.Sections)
	assert.Equal(t, prefs.MsgSessionExpired, v.Warning)
	assert.Equal(t, int32(3), calls.Load())

	c.Submit("ai")
	c.Wait()
	assert.Equal(t, feed.Expired, c.View().Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAuthFailureDuringCycleExpiresOnce(t *testing.T) {
	sess := session.New("tok")
	var logouts atomic.Int32
	sess.OnExpire(func() { logouts.Add(1) })

	src := source.Func(func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
		sess.Expire()
		return nil, session.ErrAuthExpired
	})
	c := newController(sess, found(model.DefaultPreferences()), src)
	c.Start()
	c.Wait()

	assert.Equal(t, int32(1), logouts.Load())
	assert.Equal(t, feed.Expired, c.View().Status)
}

func TestTransientPreferencesFallBackWithWarning(t *testing.T) {
	r := resolverFunc(func(ctx context.Context, sess *session.Session) prefs.Result {
		return prefs.Result{
			Status:      prefs.TransientError,
			Preferences: model.DefaultPreferences(),
			Warning:     prefs.MsgLoadFailed,
			Err:         errors.New("503"),
		}
	})
	c := newController(session.New("tok"), r, echoSource(nil))
	c.Start()
	c.Wait()

	v := c.View()
	assert.Equal(t, feed.Ready, v.Status)
	assert.Equal(t, prefs.MsgLoadFailed, v.Warning)
	assert.Equal(t, []string{"technology", "business", "health"}, sectionKeys(v))
}

func TestNotSetShowsPromptWithoutFetching(t *testing.T) {
	var calls atomic.Int32
	r := resolverFunc(func(ctx context.Context, sess *session.Session) prefs.Result {
		return prefs.Result{Status: prefs.NotSet, Warning: prefs.MsgNotSet}
	})
	c := newController(session.New("tok"), r, echoSource(&calls))
	c.Start()
	c.Wait()

	v := c.View()
	assert.Equal(t, feed.Error, v.Status)
	assert.Equal(t, prefs.MsgNotSet, v.Warning)
	assert.Zero(t, calls.Load())
}

func TestBoardListenersSeeEveryCycle(t *testing.T) {
	c := newController(session.New("tok"), found(model.DefaultPreferences()), echoSource(nil))

	var mu sync.Mutex
	var statuses []feed.Status
	c.Board().Subscribe(func(v feed.View) {
		mu.Lock()
		statuses = append(statuses, v.Status)
		mu.Unlock()
	})

	c.Start()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, statuses)
	assert.Equal(t, feed.Loading, statuses[0])
	assert.Equal(t, feed.Ready, statuses[len(statuses)-1])
}

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)
