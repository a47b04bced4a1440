package auth

import (
	"context"
	"strings"
)

type ctxKey string

const userContextKey ctxKey = "lifequest.auth.user"

// WithUser returns a context carrying the signed-in principal.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, strings.TrimSpace(userID))
}

// UserID returns the principal on ctx. ok is false when nobody is signed in.
func UserID(ctx context.Context) (string, bool) {
	v, _ := ctx.Value(userContextKey).(string)
	if v == "" {
		return "", false
	}
	return v, true
}
