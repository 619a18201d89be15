package requestid

import "context"

type ctxKey struct{}

// Header is the HTTP header carrying the request ID.
const Header = "X-Request-ID"

// NewContext returns a context that carries the given request ID.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID stored in ctx, or an empty string.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
