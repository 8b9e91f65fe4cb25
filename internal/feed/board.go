package feed

import (
	"sync"

	"bytenews/internal/metrics"
	"bytenews/internal/model"
)

// View is what the presentation layer renders for the feed.
type View struct {
	Generation uint64
	Mode       string
	Term       string
	Status     Status
	Sections   []model.Section
	// FailedTopics lists the topics whose query failed in this cycle.
	FailedTopics []string
	Preferences  *model.Preferences
	// Warning is shown independently of the sections, e.g. when the feed
	// renders under default preferences because loading them failed.
	Warning string
	Err     error
}

// Board holds the displayed sections. Each fetch cycle begins with a new
// generation; only the most recent generation may write. Listeners see
// views in the order they were written.
type Board struct {
	// notifyMu is held from the generation check until every listener
	// returned, so a superseded view can never reach a listener after a
	// newer one. Listeners must not write to the board.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	gen       uint64
	view      View
	listeners []func(View)
}

func NewBoard() *Board {
	return &Board{}
}

// Begin starts a cycle: it bumps the generation and clears the displayed
// sections immediately.
func (b *Board) Begin(mode, term string) uint64 {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	b.gen++
	b.view = View{Generation: b.gen, Mode: mode, Term: term, Status: Loading}
	v := b.view
	listeners := b.listeners
	b.mu.Unlock()

	notify(listeners, v)
	return v.Generation
}

// Update applies fn to the view if gen is still current.
func (b *Board) Update(gen uint64, fn func(*View)) bool {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return false
	}
	fn(&b.view)
	v := copyView(b.view)
	listeners := b.listeners
	b.mu.Unlock()

	notify(listeners, v)
	return true
}

// Commit publishes an outcome for gen. Results of superseded cycles are
// dropped silently.
func (b *Board) Commit(gen uint64, out Outcome) bool {
	ok := b.Update(gen, func(v *View) {
		v.Status = out.Status
		v.Sections = out.Sections
		v.FailedTopics = out.FailedTopics
		v.Err = out.Err
	})
	if !ok {
		metrics.FetchCyclesDiscarded.Inc()
	}
	return ok
}

func (b *Board) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

func (b *Board) Snapshot() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyView(b.view)
}

// Subscribe registers fn to receive every view change.
func (b *Board) Subscribe(fn func(View)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func notify(listeners []func(View), v View) {
	for _, fn := range listeners {
		fn(v)
	}
}

func copyView(v View) View {
	if v.Sections != nil {
		sections := make([]model.Section, len(v.Sections))
		for i, s := range v.Sections {
			sections[i] = model.Section{Key: s.Key, Articles: append([]model.Article{}, s.Articles...)}
		}
		v.Sections = sections
	}
	if v.FailedTopics != nil {
		v.FailedTopics = append([]string(nil), v.FailedTopics...)
	}
	if v.Preferences != nil {
		p := v.Preferences.Clone()
		v.Preferences = &p
	}
	return v
}
