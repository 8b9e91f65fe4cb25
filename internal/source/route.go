package source

import (
	"context"

	"bytenews/internal/model"
	"bytenews/internal/session"
)

// Route sends topic queries (those carrying a category) to Topics and
// free-text searches to Search.
type Route struct {
	Topics Source
	Search Source
}

func (r Route) Content(ctx context.Context, sess *session.Session, q model.Query) ([]model.Article, error) {
	if q.Category == "" && r.Search != nil {
		return r.Search.Content(ctx, sess, q)
	}
	return r.Topics.Content(ctx, sess, q)
}
