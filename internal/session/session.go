package session

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrNoToken is returned locally when an authenticated call is attempted
	// without a credential.
	ErrNoToken = errors.New("session: no access token")
	// ErrAuthExpired marks a credential the remote service rejected, or one
	// that was invalidated while the call was in flight.
	ErrAuthExpired = errors.New("session: authentication expired")
)

// Session holds the current access token. Every remote-calling component
// reads it; only Expire (and the explicit login flow through SetToken)
// mutate it.
type Session struct {
	mu       sync.Mutex
	token    string
	epoch    uint64
	store    TokenStore
	log      *slog.Logger
	onExpire []func()
}

type Option func(*Session)

// WithStore persists the token across restarts.
func WithStore(store TokenStore) Option {
	return func(s *Session) {
		s.store = store
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

func New(token string, opts ...Option) *Session {
	s := &Session{token: token, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore builds a session from the persisted token, if any. A missing or
// unreadable store yields an unauthenticated session; freshness is not
// checked until first use.
func Restore(store TokenStore, opts ...Option) *Session {
	token, err := store.Load()
	s := New("", append([]Option{WithStore(store)}, opts...)...)
	if err != nil {
		s.log.Warn("token store unreadable", "error", err)
		return s
	}
	s.token = token
	return s
}

// Token returns the current token and whether one is present.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// Acquire returns the token together with the epoch it belongs to. Callers
// check Current(epoch) once the remote call returns.
func (s *Session) Acquire() (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", s.epoch, ErrNoToken
	}
	return s.token, s.epoch, nil
}

// Current reports whether epoch still identifies a live token.
func (s *Session) Current(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != "" && s.epoch == epoch
}

// SetToken installs a freshly issued token (login).
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.epoch++
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Save(token)
}

// OnExpire registers fn to run once per invalidation.
func (s *Session) OnExpire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = append(s.onExpire, fn)
}

// Expire clears the token. Only the call that actually clears a present
// token fires the callbacks; concurrent or repeated calls return false.
func (s *Session) Expire() bool {
	return s.expire(func() bool { return true })
}

// ExpireEpoch expires the session only while epoch still identifies the live
// token, so a rejection of an old token cannot log out a newer login.
func (s *Session) ExpireEpoch(epoch uint64) bool {
	return s.expire(func() bool { return s.epoch == epoch })
}

func (s *Session) expire(match func() bool) bool {
	s.mu.Lock()
	if s.token == "" || !match() {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.epoch++
	store := s.store
	callbacks := append([]func(){}, s.onExpire...)
	s.mu.Unlock()

	if store != nil {
		if err := store.Clear(); err != nil {
			s.log.Warn("clearing persisted token failed", "error", err)
		}
	}
	s.log.Info("session invalidated")
	for _, fn := range callbacks {
		fn()
	}
	return true
}

// IsAuthFailure reports whether err stems from a missing or rejected token.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrNoToken) || errors.Is(err, ErrAuthExpired)
}
