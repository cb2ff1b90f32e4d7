// Context utilities for carrying the authenticated (user, token) pair through
// a single request. The pair is attached to the request-scoped context by the
// middleware and read back by handlers; it never lives in process-wide state,
// so concurrent requests from different sessions cannot interfere.
package auth

import (
	"context"
)

// contextKey is a private type for context keys, preventing collisions with
// keys defined in other packages.
type contextKey string

const authContextKey contextKey = "auth"

// authContext bundles the resolved user and the exact token that
// authenticated this request. The token is kept so logout can revoke the
// specific session it was called with.
type authContext struct {
	user  *User
	token string
}

// NewContextWithAuth returns a child context carrying the authenticated user
// and the token that proved their identity.
func NewContextWithAuth(ctx context.Context, user *User, token string) context.Context {
	return context.WithValue(ctx, authContextKey, &authContext{user: user, token: token})
}

// UserFromContext extracts the authenticated user from the context. The
// second return value reports whether a user was present.
func UserFromContext(ctx context.Context) (*User, bool) {
	ac, ok := ctx.Value(authContextKey).(*authContext)
	if !ok {
		return nil, false
	}
	return ac.user, true
}

// TokenFromContext extracts the presenting token from the context.
func TokenFromContext(ctx context.Context) (string, bool) {
	ac, ok := ctx.Value(authContextKey).(*authContext)
	if !ok {
		return "", false
	}
	return ac.token, true
}
