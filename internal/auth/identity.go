// Package auth authenticates HTTP callers against a single verification
// scheme: an HS256 JWT bearer token in production, or an X-Test-Mode-User
// impersonation header outside production. It issues nothing — the JWT is
// expected to already exist, minted by whatever front door sits ahead of
// this service.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Method identifies how the caller's Identity was established.
type Method string

const (
	MethodJWT  Method = "jwt"
	MethodTest Method = "test_mode_header"
)

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID uuid.UUID
	Method Method
}

type contextKey string

const identityKey contextKey = "auth_identity"

// NewContext returns a context carrying id.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the Identity stored by Middleware, nil if absent.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
