package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"bytenews/internal/model"
	"bytenews/internal/session"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type LoginResult struct {
	Token    string `json:"access_token"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Login exchanges credentials for a token. A 401 here means bad
// credentials, not an expired session.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, c.endpoints.Login, nil, "", credentials{username, password}, &res)
	if err != nil {
		return LoginResult{}, err
	}
	if res.Token == "" {
		return LoginResult{}, errors.New("login response carried no access token")
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var res messageResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.Register, nil, "", credentials{username, password}, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// Preferences reads the user's standing preferences.
func (c *Client) Preferences(ctx context.Context, sess *session.Session) (model.Preferences, error) {
	var p model.Preferences
	if err := c.authed(ctx, sess, http.MethodGet, c.endpoints.Preferences, nil, nil, &p); err != nil {
		return model.Preferences{}, err
	}
	p.Country = strings.ToLower(strings.TrimSpace(p.Country))
	return p, nil
}

// SavePreferences submits p and returns the service's message verbatim.
func (c *Client) SavePreferences(ctx context.Context, sess *session.Session, p model.Preferences) (string, error) {
	var res messageResponse
	if err := c.authed(ctx, sess, http.MethodPost, c.endpoints.Preferences, nil, p, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// Content runs one content query.
func (c *Client) Content(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
	v := url.Values{}
	v.Set("q", q.Text)
	if q.Country != "" {
		v.Set("country", q.Country)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}

	var articles []model.Article
	if err := c.authed(ctx, sess, http.MethodGet, c.endpoints.Content, v, nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

type ChatRequest struct {
	Question    string `json:"question"`
	Summary     string `json:"article_summary"`
	Description string `json:"article_description"`
	Content     string `json:"full_article_content"`
	URL         string `json:"articleUrl,omitempty"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

var ErrEmptyAnswer = errors.New("chat response carried no answer")

// Chat asks one question about an article.
func (c *Client) Chat(ctx context.Context, sess *session.Session, req ChatRequest) (string, error) {
	var res chatResponse
	if err := c.authed(ctx, sess, http.MethodPost, c.endpoints.Chat, nil, req, &res); err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Answer) == "" {
		return "", ErrEmptyAnswer
	}
	return res.Answer, nil
}
