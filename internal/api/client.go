package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bytenews/internal/metrics"
	"bytenews/internal/session"
)

const (
	defaultTimeout = 30 * time.Second
	// maxMessageRunes caps non-JSON error bodies surfaced as messages.
	maxMessageRunes = 200
)

// Endpoints maps each remote call to its path below the base URL.
type Endpoints struct {
	Login       string `yaml:"login"`
	Register    string `yaml:"register"`
	Preferences string `yaml:"preferences"`
	Content     string `yaml:"content"`
	Chat        string `yaml:"chat"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:       "/login",
		Register:    "/register",
		Preferences: "/preferences",
		Content:     "/content",
		Chat:        "/chat",
	}
}

// Error is a non-2xx reply. Message carries the service's own text.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error: status %d", e.Status)
	}
	return fmt.Sprintf("remote error: status %d: %s", e.Status, e.Message)
}

// Client talks to the news service. Authenticated calls go through the
// session guard: a 401 expires the session, and a call whose token was
// invalidated while in flight fails locally.
type Client struct {
	baseURL    string
	endpoints  Endpoints
	httpClient *http.Client
	log        *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		endpoints:  DefaultEndpoints(),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) authed(ctx context.Context, sess *session.Session, method, path string, query url.Values, in, out any) error {
	token, epoch, err := sess.Acquire()
	if err != nil {
		return err
	}

	err = c.do(ctx, method, path, query, token, in, out)

	var remote *Error
	if errors.As(err, &remote) && remote.Status == http.StatusUnauthorized {
		if sess.ExpireEpoch(epoch) {
			metrics.SessionExpirations.Inc()
			c.log.Warn("token rejected, session expired", "path", path)
		}
		return fmt.Errorf("%s %s: %w", method, path, session.ErrAuthExpired)
	}
	if !sess.Current(epoch) {
		return fmt.Errorf("%s %s: %w", method, path, session.ErrAuthExpired)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: remoteMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func remoteMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	s := strings.TrimSpace(string(raw))
	if r := []rune(s); len(r) > maxMessageRunes {
		s = string(r[:maxMessageRunes])
	}
	return s
}

// MessageOf extracts the user-facing text of err: the remote message when
// the service sent one, otherwise fallback.
func MessageOf(err error, fallback string) string {
	var remote *Error
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return fallback
}
