// internal/engine/context.go
package engine

import (
	"context"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// WithSessionID tags ctx with the id of a read or watch session
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	return sessionID, ok
}
