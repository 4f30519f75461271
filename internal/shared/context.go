package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the request session in the context. The session
// middleware is the only writer; handlers read via SessionFromContext.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session, or nil when the middleware did not
// run (tests calling handlers directly, for instance).
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
