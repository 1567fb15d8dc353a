package portal

import "context"

type ctxKey string

const (
	ctxKeyIdentity ctxKey = "portal_identity"
	ctxKeyRole     ctxKey = "portal_role"
)

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext extracts the authenticated identity from the
// context. ok is false when no identity was stored.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return v, ok
}

// WithRole stores the user role in the context.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

// RoleFromContext extracts the user role from the context, RoleUnknown
// when absent.
func RoleFromContext(ctx context.Context) Role {
	v, _ := ctx.Value(ctxKeyRole).(Role)
	return v
}
