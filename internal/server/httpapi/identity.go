package httpapi

import "context"

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// Identity is the caller established from a valid session token.
type Identity struct {
	AccountID string
	Email     string
	Role      string
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity in ctx and true if set; otherwise the zero Identity, false.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
