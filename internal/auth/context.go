// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// SystemActor is recorded in the audit log for unauthenticated or internal actions.
const SystemActor = "system"

// AuthContext holds the authenticated identity extracted from a request.
type AuthContext struct {
	Subject string // "sub" claim of the admin token
}

type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	auth, ok := ctx.Value(authContextKey{}).(*AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// Actor returns the subject to record for an action performed under ctx.
func Actor(ctx context.Context) string {
	if a := FromContext(ctx); a != nil && a.Subject != "" {
		return a.Subject
	}
	return SystemActor
}
