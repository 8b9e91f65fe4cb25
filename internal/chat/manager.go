package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"bytenews/internal/api"
	"bytenews/internal/extract"
	"bytenews/internal/metrics"
	"bytenews/internal/model"
	"bytenews/internal/session"
)

// Apology replaces the answer whenever the question could not be answered.
const Apology = "Sorry, I could not get an answer. Please try again."

// Greeting is the first bot line of every conversation.
func Greeting(title string) string {
	return fmt.Sprintf("Hello! I'm your news assistant for \"%s\". Ask me anything about this article:", title)
}

// Asker sends one question to the answering service.
type Asker interface {
	Chat(ctx context.Context, sess *session.Session, req api.ChatRequest) (string, error)
}

// Extractor fetches the full text behind an article URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (extract.Article, error)
}

// Conversation is a question-answering exchange bound to one article.
type Conversation struct {
	ID       uint64
	Article  model.Article
	Messages []model.Message
	Pending  bool

	content  string
	enriched bool
}

func (c *Conversation) snapshot() Conversation {
	return Conversation{
		ID:       c.ID,
		Article:  c.Article,
		Messages: append([]model.Message(nil), c.Messages...),
		Pending:  c.Pending,
	}
}

// Manager owns at most one open conversation. Questions are strictly
// sequential: Ask refuses while an answer is pending.
type Manager struct {
	asker     Asker
	extractor Extractor
	sess      *session.Session
	log       *slog.Logger

	mu     sync.Mutex
	conv   *Conversation
	nextID uint64
}

type Option func(*Manager)

// WithExtractor enables fetching the full article when the content carried
// by the feed is missing or cut short.
func WithExtractor(e Extractor) Option {
	return func(m *Manager) {
		m.extractor = e
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

func NewManager(asker Asker, sess *session.Session, opts ...Option) *Manager {
	m := &Manager{asker: asker, sess: sess, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a conversation about article, discarding any previous one.
func (m *Manager) Open(article model.Article) Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.conv = &Conversation{
		ID:      m.nextID,
		Article: article,
		Messages: []model.Message{
			{Role: model.RoleBot, Text: Greeting(article.Title)},
			{Role: model.RoleBot, Text: article.Summary},
		},
		content: article.Content,
	}
	return m.conv.snapshot()
}

// Current returns the open conversation, if any.
func (m *Manager) Current() (Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conv == nil {
		return Conversation{}, false
	}
	return m.conv.snapshot(), true
}

// Close discards the conversation. The answering service is not told.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conv = nil
}

// Ask sends question and blocks until it is answered. It reports false
// without doing anything when the question is blank, no conversation is
// open, or an earlier question is still pending. The reply is dropped if
// the conversation was closed or replaced in the meantime.
func (m *Manager) Ask(ctx context.Context, question string) (Conversation, bool) {
	m.mu.Lock()
	conv := m.conv
	if conv == nil || conv.Pending || strings.TrimSpace(question) == "" {
		var snap Conversation
		if conv != nil {
			snap = conv.snapshot()
		}
		m.mu.Unlock()
		return snap, false
	}
	conv.Messages = append(conv.Messages, model.Message{Role: model.RoleUser, Text: question})
	conv.Pending = true
	id := conv.ID
	article := conv.Article
	content := conv.content
	enrich := !conv.enriched && m.extractor != nil && extract.NeedsFullText(content) && article.URL != ""
	conv.enriched = true
	m.mu.Unlock()

	if enrich {
		content = m.fullText(ctx, article, content)
	}

	answer, err := m.asker.Chat(ctx, m.sess, api.ChatRequest{
		Question:    question,
		Summary:     article.Summary,
		Description: article.Description,
		Content:     content,
		URL:         article.URL,
	})
	reply := answer
	status := "ok"
	if err != nil {
		reply = Apology
		status = "error"
		if session.IsAuthFailure(err) {
			status = "auth_expired"
		}
		m.log.Warn("chat request failed", "article", article.URL, "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conv == nil || m.conv.ID != id {
		metrics.ChatRequests.WithLabelValues("dropped").Inc()
		return Conversation{}, false
	}
	metrics.ChatRequests.WithLabelValues(status).Inc()
	m.conv.Messages = append(m.conv.Messages, model.Message{Role: model.RoleBot, Text: reply})
	m.conv.Pending = false
	if enrich {
		m.conv.content = content
	}
	return m.conv.snapshot(), true
}

func (m *Manager) fullText(ctx context.Context, article model.Article, fallback string) string {
	a, err := m.extractor.Extract(ctx, article.URL)
	if err != nil {
		m.log.Info("article extraction failed, using feed content", "url", article.URL, "error", err)
		return fallback
	}
	return a.Text
}
