package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bytenews/internal/api"
	"bytenews/internal/geo"
	"bytenews/internal/model"
	"bytenews/internal/session"
)

const (
	MsgLoadFailed     = "Failed to load user preferences. Please set them."
	MsgNotSet         = "Please set your news preferences in the settings to see personalized news."
	MsgExactlyThree   = "Please select exactly 3 topics."
	MsgMaxThree       = "You can select a maximum of 3 topics."
	MsgUnknownCountry = "Please select a supported country."
	MsgSaveFailed     = "Failed to save preferences."
	MsgSessionExpired = "Session expired. Please log in again."
)

// Topics is the selectable topic catalog, in display order.
var Topics = []string{
	"technology", "business", "health", "science", "sports",
	"entertainment", "politics", "world", "finance",
}

var ErrValidation = errors.New("invalid preferences")

// ValidationError is a locally detected precondition violation. Its text is
// shown to the user as is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
func (e *ValidationError) Unwrap() error { return ErrValidation }

type Status int

const (
	Found Status = iota
	NotSet
	AuthExpired
	TransientError
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotSet:
		return "not-set"
	case AuthExpired:
		return "auth-expired"
	case TransientError:
		return "transient-error"
	}
	return "unknown"
}

// Result is the outcome of Resolve. Preferences is only meaningful for
// Found and TransientError (where it holds the built-in default).
type Result struct {
	Status      Status
	Preferences model.Preferences
	Warning     string
	Err         error
}

// Usable reports whether the result carries preferences a feed can load.
func (r Result) Usable() bool {
	return r.Status == Found || r.Status == TransientError
}

// Remote is the slice of the service client the store needs.
type Remote interface {
	Preferences(ctx context.Context, sess *session.Session) (model.Preferences, error)
	SavePreferences(ctx context.Context, sess *session.Session, p model.Preferences) (string, error)
}

type Store struct {
	remote    Remote
	countries geo.Resolver
	log       *slog.Logger
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

func WithCountries(r geo.Resolver) Option {
	return func(s *Store) {
		s.countries = r
	}
}

func NewStore(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:    remote,
		countries: geo.Default(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve reads the standing preferences. Auth failures never fall back to
// the default; every other failure does, with a warning.
func (s *Store) Resolve(ctx context.Context, sess *session.Session) Result {
	p, err := s.remote.Preferences(ctx, sess)
	switch {
	case err == nil:
	case session.IsAuthFailure(err):
		return Result{Status: AuthExpired, Warning: MsgSessionExpired, Err: err}
	default:
		s.log.Warn("loading preferences failed, using defaults", "error", err)
		return Result{Status: TransientError, Preferences: model.DefaultPreferences(), Warning: MsgLoadFailed, Err: err}
	}

	if !p.IsSet() {
		return Result{Status: NotSet, Warning: MsgNotSet}
	}
	if err := s.check(&p); err != nil {
		s.log.Warn("stored preferences malformed, using defaults", "error", err)
		return Result{
			Status:      TransientError,
			Preferences: model.DefaultPreferences(),
			Warning:     MsgLoadFailed,
			Err:         fmt.Errorf("malformed preferences: %w", err),
		}
	}
	return Result{Status: Found, Preferences: p}
}

// Save validates p locally and submits it. The returned text is what the
// user sees: the service's own message on success or remote failure, the
// validation text when rejected locally.
func (s *Store) Save(ctx context.Context, sess *session.Session, p model.Preferences) (string, error) {
	p = p.Clone()
	if err := s.check(&p); err != nil {
		return err.Error(), err
	}

	msg, err := s.remote.SavePreferences(ctx, sess, p)
	if err != nil {
		if session.IsAuthFailure(err) {
			return MsgSessionExpired, err
		}
		return api.MessageOf(err, MsgSaveFailed), err
	}
	s.log.Info("preferences saved", "country", p.Country, "topics", p.Topics)
	return msg, nil
}

// check enforces the rules for saved preferences and normalizes the
// country to its ISO code.
func (s *Store) check(p *model.Preferences) error {
	if len(p.Topics) != model.TopicCount {
		return &ValidationError{Msg: MsgExactlyThree}
	}
	seen := make(map[string]struct{}, len(p.Topics))
	for i, t := range p.Topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return &ValidationError{Msg: MsgExactlyThree}
		}
		if _, dup := seen[t]; dup {
			return &ValidationError{Msg: MsgExactlyThree}
		}
		seen[t] = struct{}{}
		p.Topics[i] = t
	}

	info, err := s.countries.ResolveCountry(p.Country)
	if err != nil {
		return &ValidationError{Msg: MsgUnknownCountry}
	}
	p.Country = info.ISO2
	return nil
}

// Toggle applies the form rule for checking a topic: unchecking always
// works, checking a fourth topic is refused.
func Toggle(selected []string, topic string) ([]string, error) {
	out := make([]string, 0, len(selected)+1)
	removed := false
	for _, t := range selected {
		if t == topic {
			removed = true
			continue
		}
		out = append(out, t)
	}
	if removed {
		return out, nil
	}
	if len(selected) >= model.TopicCount {
		return selected, &ValidationError{Msg: MsgMaxThree}
	}
	return append(out, topic), nil
}

// KnownTopic reports whether topic is in the catalog.
func KnownTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}
