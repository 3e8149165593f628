package multipass

import "context"

type keyCtxKey struct{}

// WithKey returns a context carrying the cache key being served.
func WithKey(ctx context.Context, k Key) context.Context {
	return context.WithValue(ctx, keyCtxKey{}, k)
}

// KeyFromContext returns the key the Authenticator is serving. Constructors
// and strategies use it to stamp the tenant on the profiles they produce.
func KeyFromContext(ctx context.Context) (Key, bool) {
	k, ok := ctx.Value(keyCtxKey{}).(Key)
	return k, ok
}
