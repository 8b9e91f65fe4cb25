package mode

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"bytenews/internal/feed"
	"bytenews/internal/metrics"
	"bytenews/internal/prefs"
	"bytenews/internal/session"
)

type State int

const (
	Personalized State = iota
	Searching
)

func (s State) String() string {
	if s == Searching {
		return "searching"
	}
	return "personalized"
}

// Resolver supplies the standing preferences for personalized cycles.
type Resolver interface {
	Resolve(ctx context.Context, sess *session.Session) prefs.Result
}

// Controller decides which input drives the feed and starts a fetch cycle on
// every transition. Cycles run in the background; the board keeps only the
// newest one.
type Controller struct {
	sess  *session.Session
	prefs Resolver
	orch  *feed.Orchestrator
	board *feed.Board
	log   *slog.Logger
	ctx   context.Context

	mu    sync.Mutex
	state State
	term  string
	wg    sync.WaitGroup
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithContext sets the context fetch cycles run under.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.ctx = ctx
	}
}

// New wires a controller. Session expiry restarts the current mode, which
// then settles on an expired view without touching the network.
func New(sess *session.Session, resolver Resolver, orch *feed.Orchestrator, board *feed.Board, opts ...Option) *Controller {
	c := &Controller{
		sess:  sess,
		prefs: resolver,
		orch:  orch,
		board: board,
		log:   slog.Default(),
		ctx:   context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	sess.OnExpire(func() {
		c.log.Info("session expired, resetting feed")
		c.restart()
	})
	return c
}

// Start runs the initial cycle.
func (c *Controller) Start() uint64 {
	return c.restart()
}

// State returns the current mode and its search term.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.term
}

// Submit switches to search mode with term. Blank terms are ignored. A new
// submission while already searching starts a new cycle.
func (c *Controller) Submit(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	c.mu.Lock()
	c.state = Searching
	c.term = term
	c.mu.Unlock()

	c.restart()
	return true
}

// Clear leaves search mode. It is a no-op when not searching.
func (c *Controller) Clear() bool {
	c.mu.Lock()
	if c.state != Searching {
		c.mu.Unlock()
		return false
	}
	c.state = Personalized
	c.term = ""
	c.mu.Unlock()

	c.restart()
	return true
}

// Reset returns to personalized mode and reloads, e.g. after a new login.
func (c *Controller) Reset() uint64 {
	c.mu.Lock()
	c.state = Personalized
	c.term = ""
	c.mu.Unlock()
	return c.restart()
}

// Refresh reloads the current mode.
func (c *Controller) Refresh() uint64 {
	return c.restart()
}

// Wait blocks until every started cycle has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) View() feed.View {
	return c.board.Snapshot()
}

func (c *Controller) Board() *feed.Board {
	return c.board
}

// restart begins a generation under the mode lock so generation order always
// matches transition order. Board listeners run synchronously here and must
// not call back into the controller.
func (c *Controller) restart() uint64 {
	c.mu.Lock()
	state, term := c.state, c.term
	gen := c.board.Begin(state.String(), term)
	c.wg.Add(1)
	c.mu.Unlock()

	metrics.FetchCyclesStarted.WithLabelValues(state.String()).Inc()
	go func() {
		defer c.wg.Done()
		c.run(gen, state, term)
	}()
	return gen
}

func (c *Controller) run(gen uint64, state State, term string) {
	if !c.sess.Authenticated() {
		c.expired(gen, session.ErrNoToken)
		return
	}

	if state == Searching {
		c.board.Commit(gen, c.orch.LoadSearch(c.ctx, c.sess, term))
		return
	}

	res := c.prefs.Resolve(c.ctx, c.sess)
	switch res.Status {
	case prefs.AuthExpired:
		c.expired(gen, res.Err)
		return
	case prefs.NotSet:
		c.board.Update(gen, func(v *feed.View) {
			v.Status = feed.Error
			v.Warning = res.Warning
		})
		return
	}

	p := res.Preferences
	if !c.board.Update(gen, func(v *feed.View) {
		v.Preferences = &p
		v.Warning = res.Warning
	}) {
		c.log.Debug("cycle superseded before fetching", "generation", gen)
		return
	}
	c.board.Commit(gen, c.orch.LoadPersonalized(c.ctx, c.sess, p))
}

func (c *Controller) expired(gen uint64, err error) {
	c.board.Update(gen, func(v *feed.View) {
		v.Status = feed.Expired
		v.Sections = nil
		v.Warning = prefs.MsgSessionExpired
		v.Err = err
	})
}
