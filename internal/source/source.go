package source

import (
	"context"

	"bytenews/internal/model"
	"bytenews/internal/session"
)

// Source answers content queries. The service client is the production
// implementation; RSS and GoogleNews, joined by Route, answer without it.
type Source interface {
	Content(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error)

func (f Func) Content(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
	return f(ctx, sess, q)
}
