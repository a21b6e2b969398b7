// Package auth provides token issuance, verification and credential hashing.
package auth

import (
	"context"

	"github.com/modelvault/modelvault/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// identityKey is the context key for storing the verified Identity.
	identityKey contextKey = "identity"
)

// ContextWithIdentity adds a verified identity to the context.
func ContextWithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from the context.
// The second return value is false if the guard middleware has not run.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok
}

// MustIdentityFromContext retrieves the identity from the context.
// Panics if not present (use only behind the guard middleware).
func MustIdentityFromContext(ctx context.Context) model.Identity {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		panic("identity not found - ensure the access guard middleware is applied")
	}
	return id
}

// UserIDFromContext is a convenience function to get the caller's user ID.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return ""
	}
	return id.UserID
}
