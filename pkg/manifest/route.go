package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Route describes a single HTTP route.
type Route struct {
	Path    string     `toml:"path"`
	Method  string     `toml:"method"`
	Guard   Guard      `toml:"guard"`
	Policy  Policy     `toml:"policy"`
	Auth    *RouteAuth `toml:"auth"`
	Handler HSpec      `toml:"handler"`
	Tags    []string   `toml:"tags"`
}

type Guard struct {
	Roles       []string `toml:"roles"`
	Users       []string `toml:"users"`
	RequireAuth bool     `toml:"require_auth"`
}

// RouteAuth pins the tenant or provider type for a route. Empty fields are
// taken from the {tenant} / {provider} path params or the request headers.
type RouteAuth struct {
	Tenant   string `toml:"tenant"`
	Provider string `toml:"provider"`
}

type Policy struct {
	TimeoutMS int `toml:"timeout_ms"`
}

type HSpec struct {
	Type HandlerType `toml:"type"`
	Name string      `toml:"name"`
}

// normalize path/method
func (r *Route) normalize() error {
	if r.Path == "" {
		return errors.New("path is required")
	}
	if !strings.HasPrefix(r.Path, "/") {
		r.Path = "/" + r.Path
	}
	if r.Path != "/" {
		r.Path = path.Clean(r.Path)
	}
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = "GET"
	}
	if r.Handler.Type == "" {
		r.Handler.Type = HandlerWhoami
	}
	return nil
}

// validate fields that are independent of global state.
func (r *Route) validate() error {
	switch r.Handler.Type {
	case HandlerInproc:
		if strings.TrimSpace(r.Handler.Name) == "" {
			return errors.New("handler.name required for inproc")
		}
	case HandlerWhoami, HandlerInstances, HandlerEvict:
	default:
		return fmt.Errorf("unknown handler type %q", r.Handler.Type)
	}

	if r.Policy.TimeoutMS < 0 {
		return errors.New("policy.timeout_ms must be >= 0")
	}
	if r.Auth != nil && strings.Contains(r.Auth.Provider, ":") {
		return errors.New("auth.provider must not contain ':'")
	}
	return nil
}

// Authenticates reports whether the route runs the multipass authenticator.
func (r Route) Authenticates() bool {
	return r.Guard.RequireAuth || len(r.Guard.Users) > 0 || len(r.Guard.Roles) > 0 || r.Auth != nil
}
