// Package stubapi is an in-memory implementation of the news service
// contract for local development and contract tests.
package stubapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bytenews/internal/api"
	"bytenews/internal/model"
	"bytenews/internal/source"
)

const (
	serviceName = "bytenews-stub"
	pageSize    = 9
)

type user struct {
	// Development stub: credentials are kept as given.
	password    string
	preferences model.Preferences
}

type grant struct {
	username string
	expires  time.Time
}

// Server holds users, tokens and preferences in memory.
type Server struct {
	endpoints api.Endpoints
	content   source.Source
	tokenTTL  time.Duration
	now       func() time.Time
	log       *slog.Logger

	mu     sync.Mutex
	users  map[string]*user
	tokens map[string]grant
}

type Option func(*Server)

// WithContent serves content queries from src instead of the built-in
// catalog. src is called without a session.
func WithContent(src source.Source) Option {
	return func(s *Server) {
		s.content = src
	}
}

func WithEndpoints(e api.Endpoints) Option {
	return func(s *Server) {
		s.endpoints = e
	}
}

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		endpoints: api.DefaultEndpoints(),
		content:   catalogSource{},
		tokenTTL:  time.Hour,
		now:       time.Now,
		log:       slog.Default(),
		users:     make(map[string]*user),
		tokens:    make(map[string]grant),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router. Service routes live under /api.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(PrometheusMiddleware(serviceName))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(config))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to the ByteNews stub backend!")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/api")
	g.POST(s.endpoints.Register, s.register)
	g.POST(s.endpoints.Login, s.login)

	authed := g.Group("", s.requireToken())
	authed.GET(s.endpoints.Preferences, s.getPreferences)
	authed.POST(s.endpoints.Preferences, s.updatePreferences)
	authed.GET(s.endpoints.Content, s.getContent)
	authed.POST(s.endpoints.Chat, s.chat)
	return r
}

func (s *Server) setClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Revoke invalidates token immediately.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *Server) lookup(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.tokens[token]
	if !ok {
		return "", false
	}
	if s.now().After(g.expires) {
		delete(s.tokens, token)
		return "", false
	}
	return g.username, true
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		c.JSON(http.StatusConflict, gin.H{"message": "Username already exists"})
		return
	}
	s.users[req.Username] = &user{password: req.Password}
	s.log.Info("user registered", "username", req.Username)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	if !ok || u.password != req.Password {
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}
	token := uuid.NewString()
	s.tokens[token] = grant{username: req.Username, expires: s.now().Add(s.tokenTTL)}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"username":     req.Username,
		"message":      "Login successful",
	})
}

func (s *Server) getPreferences(c *gin.Context) {
	s.mu.Lock()
	u, ok := s.users[c.GetString(userKey)]
	var p model.Preferences
	if ok {
		p = u.preferences.Clone()
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if !p.IsSet() {
		p = model.DefaultPreferences()
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updatePreferences(c *gin.Context) {
	var req model.Preferences
	if err := c.ShouldBindJSON(&req); err != nil || req.Country == "" || len(req.Topics) != model.TopicCount {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Country and exactly 3 topics are required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[c.GetString(userKey)]
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": "Preferences not updated (no change or user not found)"})
		return
	}
	if samePreferences(u.preferences, req) {
		c.JSON(http.StatusOK, gin.H{"message": "Preferences not updated (no change or user not found)"})
		return
	}
	u.preferences = req.Clone()
	c.JSON(http.StatusOK, gin.H{"message": "Preferences updated successfully"})
}

func samePreferences(a, b model.Preferences) bool {
	if a.Country != b.Country || len(a.Topics) != len(b.Topics) {
		return false
	}
	for i := range a.Topics {
		if a.Topics[i] != b.Topics[i] {
			return false
		}
	}
	return true
}

func (s *Server) getContent(c *gin.Context) {
	q := model.Query{
		Text:     c.DefaultQuery("q", "latest news"),
		Country:  strings.ToLower(c.DefaultQuery("country", "us")),
		Category: c.Query("category"),
	}

	articles, err := s.content.Content(c.Request.Context(), nil, q)
	if err != nil {
		s.log.Warn("content query failed", "query", q.Text, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to fetch news: %v", err)})
		return
	}
	if articles == nil {
		articles = []model.Article{}
	}
	c.JSON(http.StatusOK, articles)
}

type chatRequest struct {
	Question    string `json:"question"`
	Summary     string `json:"article_summary"`
	Description string `json:"article_description"`
	Content     string `json:"full_article_content"`
	URL         string `json:"articleUrl"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing question or article context for chatbot"})
		return
	}
	context := firstNonEmpty(req.Content, req.Description, req.Summary)
	if strings.TrimSpace(req.Question) == "" || context == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing question or article context for chatbot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer(req.Question, context)})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// answer quotes the sentence of the context sharing the most words with the
// question.
func answer(question, context string) string {
	words := strings.Fields(strings.ToLower(question))
	best, bestScore := "", -1
	for _, sentence := range strings.SplitAfter(context, ". ") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		score := 0
		for _, w := range words {
			if len(w) > 2 && strings.Contains(lower, strings.Trim(w, "?!.,")) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = sentence, score
		}
	}
	return "Based on the article: " + best
}
