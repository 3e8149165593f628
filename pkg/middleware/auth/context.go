package auth

import (
	"context"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

type ctxKey int

const stateCtxKey ctxKey = iota

// state is installed once per request by Middleware and filled in by
// whichever layer authenticates, so outer middleware (access log, metrics)
// can see a user established inside a route handler.
type state struct {
	user   User
	key    multipass.Key
	result string
}

func stateFrom(ctx context.Context) *state {
	s, _ := ctx.Value(stateCtxKey).(*state)
	return s
}

func withState(ctx context.Context) (context.Context, *state) {
	if s := stateFrom(ctx); s != nil {
		return ctx, s
	}
	s := &state{}
	return context.WithValue(ctx, stateCtxKey, s), s
}

// WithUser returns a context carrying u as the authenticated user.
func WithUser(ctx context.Context, u User) context.Context {
	ctx, s := withState(ctx)
	s.user = u
	return ctx
}

// KeyFromContext returns the (tenant, provider type) the request was
// authenticated against.
func KeyFromContext(ctx context.Context) (multipass.Key, bool) {
	s := stateFrom(ctx)
	if s == nil || s.key == (multipass.Key{}) {
		return multipass.Key{}, false
	}
	return s.key, true
}

// ResultFromContext returns the multipass result label recorded for the
// request, or "" when no authentication was attempted.
func ResultFromContext(ctx context.Context) string {
	if s := stateFrom(ctx); s != nil {
		return s.result
	}
	return ""
}
