// Package session carries the authenticated identity through explicit
// values instead of global state. A Session is built once per login (or per
// request from a verified token) and handed to whatever needs it.
package session

import "context"

type Session struct {
	UserID string
	Email  string
	Name   string
}

// Active reports whether a user is signed in. Controllers treat an inactive
// session as the Unauthenticated page state.
func (s *Session) Active() bool {
	return s != nil && s.UserID != ""
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, or nil when no user is
// signed in.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
