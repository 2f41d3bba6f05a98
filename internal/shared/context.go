package shared

import (
	"context"
	"strconv"
)

type (
	sessionContextKey struct{}
	userContextKey    struct{}
)

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithUserID marks ctx as acting on behalf of a user without an HTTP
// session, e.g. for CLI or worker initiated operations.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

// UserIDFromContext resolves the acting user from the session, falling back
// to an explicit user id placed by ContextWithUserID.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if sess := SessionFromContext(ctx); sess != nil && sess.User() != "" {
		id, err := strconv.ParseInt(sess.User(), 10, 64)
		if err == nil && id > 0 {
			return id, true
		}
	}
	if id, ok := ctx.Value(userContextKey{}).(int64); ok && id > 0 {
		return id, true
	}
	return 0, false
}
