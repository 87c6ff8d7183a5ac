package common

import (
	"context"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the resolved caller attached to a request after the full
// authorization pipeline has passed. Only the request authorizer
// constructs one; handlers read it back with IdentityFrom.
type Identity struct {
	TenantID      int64
	UserID        int64 // 0 means the tenant's own admin identity, not a User row
	Email         string
	Role          string
	Plan          string
	IsTenantAdmin bool
}

// WithIdentity returns a context carrying the resolved identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the resolved identity from the request context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
