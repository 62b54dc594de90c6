package auth

import "context"

type ctxKey struct{}

// Identity is the validated caller: the token's subject claim plus the
// request's network address, as recorded in the audit trail.
type Identity struct {
	Subject    string
	RemoteAddr string
}

func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

func FromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(Identity)
	return ident, ok
}
