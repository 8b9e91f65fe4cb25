package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"bytenews/internal/api"
	"bytenews/internal/chat"
	"bytenews/internal/config"
	"bytenews/internal/extract"
	"bytenews/internal/feed"
	"bytenews/internal/mode"
	"bytenews/internal/model"
	"bytenews/internal/prefs"
	"bytenews/internal/report"
	"bytenews/internal/session"
	"bytenews/internal/source"
)

var ErrNoConversation = errors.New("no open conversation")

// Service wires the news core together for a presentation driver.
type Service struct {
	Config  *config.Config
	Session *session.Session
	Client  *api.Client
	Prefs   *prefs.Store
	Mode    *mode.Controller
	Chat    *chat.Manager

	cache *source.Cached
	cron  *cron.Cron
	log   *slog.Logger
}

// NewService builds the service from cfg. The token persisted by a previous
// run, if any, is restored without being checked.
func NewService(cfg *config.Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	store := session.TokenStore(session.NewFileStore("bytenews"))
	if cfg.StatePath != "" {
		store = session.NewFileStoreAt(cfg.StatePath)
	}
	sess := session.Restore(store, session.WithLogger(log))
	return NewServiceWithSession(cfg, sess, log)
}

// NewServiceWithSession is NewService with an explicit session.
func NewServiceWithSession(cfg *config.Config, sess *session.Session, log *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	client := api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.Timeout),
		api.WithEndpoints(cfg.Endpoints),
		api.WithLogger(log.With("component", "api")),
	)

	var upstream source.Source = client
	if cfg.Source == config.SourceRSS {
		upstream = source.Route{
			Topics: source.NewRSS(log.With("component", "rss")),
			Search: source.NewGoogleNews(log.With("component", "googlenews")),
		}
	}
	cache := source.NewCached(upstream, cfg.CacheTTL)

	store := prefs.NewStore(client, prefs.WithLogger(log.With("component", "prefs")))
	orch := feed.NewOrchestrator(cache, feed.WithLogger(log.With("component", "feed")))
	ctrl := mode.New(sess, store, orch, feed.NewBoard(), mode.WithLogger(log.With("component", "mode")))

	chats := chat.NewManager(client, sess,
		chat.WithExtractor(extract.New(extract.WithTimeout(cfg.ExtractTimeout))),
		chat.WithLogger(log.With("component", "chat")),
	)
	sess.OnExpire(chats.Close)

	return &Service{
		Config:  cfg,
		Session: sess,
		Client:  client,
		Prefs:   store,
		Mode:    ctrl,
		Chat:    chats,
		cache:   cache,
		log:     log,
	}, nil
}

// Start loads the first feed and schedules automatic refreshes.
func (s *Service) Start() error {
	s.Mode.Start()
	if s.Config.RefreshSchedule == "off" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.Config.RefreshSchedule, s.autoRefresh); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	c.Start()
	s.cron = c
	s.log.Info("auto refresh scheduled", "schedule", s.Config.RefreshSchedule)
	return nil
}

func (s *Service) autoRefresh() {
	if !s.Session.Authenticated() {
		return
	}
	s.cache.Purge()
	s.Mode.Refresh()
}

// Close stops the refresh schedule and waits for in-flight cycles.
func (s *Service) Close() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.Mode.Wait()
}

// Login installs a fresh token and reloads the personalized feed.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	res, err := s.Client.Login(ctx, username, password)
	if err != nil {
		return api.MessageOf(err, "Login failed. Please try again."), err
	}
	if err := s.Session.SetToken(res.Token); err != nil {
		s.log.Warn("persisting token failed", "error", err)
	}
	s.cache.Purge()
	s.Mode.Reset()
	return res.Message, nil
}

func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	msg, err := s.Client.Register(ctx, username, password)
	if err != nil {
		return api.MessageOf(err, "Registration failed. Please try again."), err
	}
	return msg, nil
}

// Logout drops the session. Listeners see the same expiry a rejected token
// produces.
func (s *Service) Logout() {
	s.Session.Expire()
}

// Preferences returns the standing preferences for the edit form.
func (s *Service) Preferences(ctx context.Context) prefs.Result {
	return s.Prefs.Resolve(ctx, s.Session)
}

// SavePreferences stores p and reloads the personalized feed on success.
func (s *Service) SavePreferences(ctx context.Context, p model.Preferences) (string, error) {
	msg, err := s.Prefs.Save(ctx, s.Session, p)
	if err != nil {
		return msg, err
	}
	if state, _ := s.Mode.State(); state == mode.Personalized {
		s.Mode.Refresh()
	}
	return msg, nil
}

// Article looks up the n-th displayed article, counting from 1 across
// sections in display order.
func (s *Service) Article(n int) (model.Article, bool) {
	if n < 1 {
		return model.Article{}, false
	}
	for _, sec := range s.Mode.View().Sections {
		if n <= len(sec.Articles) {
			return sec.Articles[n-1], true
		}
		n -= len(sec.Articles)
	}
	return model.Article{}, false
}

// ExportFeed writes the displayed sections to path.
func (s *Service) ExportFeed(path string) error {
	v := s.Mode.View()
	return report.Feed(path, Heading(v), v.Sections, time.Now())
}

// ExportChat writes the open conversation to path.
func (s *Service) ExportChat(path string) error {
	conv, ok := s.Chat.Current()
	if !ok {
		return ErrNoConversation
	}
	return report.Conversation(path, conv.Article, conv.Messages)
}
