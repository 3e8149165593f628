package multipass

import (
	"context"
	"net/http"
)

type Role struct {
	Name string `json:"name"`
}

type AuthenticationSource struct {
	Provider string `json:"provider"`
	Tenant   string `json:"tenant,omitempty"`
}

type User struct {
	Username             string               `json:"username"`
	AuthenticationSource AuthenticationSource `json:"authenticationSource"`
	Role                 Role                 `json:"role"`
}

// Info carries optional detail about an outcome (messages, scopes, claims).
type Info map[string]any

// Outcome is the result of a delegated authentication. A nil User means the
// credentials were rejected.
type Outcome struct {
	User *User
	Info Info
}

// Authenticated reports whether the outcome carries a user.
func (o Outcome) Authenticated() bool { return o.User != nil && o.User.Username != "" }

// Profile is what a strategy extracted from the credentials it verified,
// before the template's ResultHandler maps it onto an application user.
type Profile struct {
	Provider string
	Tenant   string
	Subject  string
	Claims   map[string]any
}

// ConnectionData is the raw per-tenant configuration for one provider type.
type ConnectionData map[string]any

// Options are the constructor options derived from ConnectionData.
type Options map[string]any

// AuthOptions are passed to every delegated Authenticate call.
type AuthOptions struct {
	Session bool
}

// Strategy is the capability every concrete strategy implements.
type Strategy interface {
	Authenticate(ctx context.Context, r *http.Request, opts AuthOptions) (Outcome, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, r *http.Request, opts AuthOptions) (Outcome, error)

func (f StrategyFunc) Authenticate(ctx context.Context, r *http.Request, opts AuthOptions) (Outcome, error) {
	return f(ctx, r, opts)
}

// Constructor builds a strategy instance for one tenant. The instance calls
// handler with the profile it verified.
type Constructor func(ctx context.Context, opts Options, handler ResultHandler) (Strategy, error)

// OptionsBuilder turns raw connection data into constructor options.
type OptionsBuilder func(conn ConnectionData) (Options, error)

// ResultHandler maps a verified profile onto an application user. Returning
// an Outcome without a user rejects the credentials; returning an error
// signals an exceptional failure.
type ResultHandler func(ctx context.Context, p Profile) (Outcome, error)

// VerifyFunc is the host's final say on an outcome produced by a strategy.
type VerifyFunc func(ctx context.Context, r *http.Request, key Key, out Outcome) (Outcome, error)

// Template is the registered recipe for one provider type.
type Template struct {
	ProviderType   string
	Constructor    Constructor
	OptionsBuilder OptionsBuilder
	ResultHandler  ResultHandler
}

// Params identify the cache slot and carry the connection data used on a miss.
type Params struct {
	TenantID       string
	ProviderType   string
	ConnectionData ConnectionData
}

// PassthroughOptions copies connection data into options unchanged.
func PassthroughOptions(conn ConnectionData) (Options, error) {
	opts := make(Options, len(conn))
	for k, v := range conn {
		opts[k] = v
	}
	return opts, nil
}
