// Package devheader is a multipass strategy for local testing that trusts
// the X-Dev-User and X-Dev-Role request headers. Never register it in
// production.
package devheader

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

// ProviderType is the registry name of this strategy.
const ProviderType = "dev"

const (
	HeaderUser = "X-Dev-User"
	HeaderRole = "X-Dev-Role"

	// ConnAllowedUsers restricts which usernames are accepted. Empty allows all.
	ConnAllowedUsers = "allowed_users"
	// ConnDefaultRole applies when the request sends no role header.
	ConnDefaultRole = "default_role"

	optAllowed = "allowed"
	optRole    = "role"
)

// Template returns the registry entry. A nil handler uses DefaultResultHandler.
func Template(handler multipass.ResultHandler) multipass.Template {
	if handler == nil {
		handler = DefaultResultHandler
	}
	return multipass.Template{
		ProviderType:   ProviderType,
		OptionsBuilder: BuildOptions,
		ResultHandler:  handler,
		Constructor:    New,
	}
}

// BuildOptions reads allowed_users and default_role.
func BuildOptions(conn multipass.ConnectionData) (multipass.Options, error) {
	allowed := map[string]struct{}{}
	switch v := conn[ConnAllowedUsers].(type) {
	case nil:
	case []string:
		for _, u := range v {
			allowed[strings.TrimSpace(u)] = struct{}{}
		}
	case []any:
		for _, u := range v {
			s, ok := u.(string)
			if !ok {
				return nil, fmt.Errorf("%s: want strings, got %T", ConnAllowedUsers, u)
			}
			allowed[strings.TrimSpace(s)] = struct{}{}
		}
	default:
		return nil, fmt.Errorf("%s: want list, got %T", ConnAllowedUsers, v)
	}

	role, _ := conn[ConnDefaultRole].(string)
	return multipass.Options{optAllowed: allowed, optRole: strings.TrimSpace(role)}, nil
}

type strategy struct {
	allowed map[string]struct{}
	role    string
	handler multipass.ResultHandler
}

// New is the Constructor for the dev header strategy.
func New(_ context.Context, opts multipass.Options, handler multipass.ResultHandler) (multipass.Strategy, error) {
	allowed, _ := opts[optAllowed].(map[string]struct{})
	role, _ := opts[optRole].(string)
	return &strategy{allowed: allowed, role: role, handler: handler}, nil
}

func (s *strategy) Authenticate(ctx context.Context, r *http.Request, _ multipass.AuthOptions) (multipass.Outcome, error) {
	user := strings.TrimSpace(r.Header.Get(HeaderUser))
	if user == "" {
		return multipass.Outcome{Info: multipass.Info{"message": "missing " + HeaderUser}}, nil
	}
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[user]; !ok {
			return multipass.Outcome{Info: multipass.Info{"message": "user not allowed"}}, nil
		}
	}
	role := strings.TrimSpace(r.Header.Get(HeaderRole))
	if role == "" {
		role = s.role
	}

	key, _ := multipass.KeyFromContext(ctx)
	return s.handler(ctx, multipass.Profile{
		Provider: key.ProviderType,
		Tenant:   key.TenantID,
		Subject:  user,
		Claims:   map[string]any{"role": role},
	})
}

// DefaultResultHandler accepts every profile with a subject.
func DefaultResultHandler(_ context.Context, p multipass.Profile) (multipass.Outcome, error) {
	if p.Subject == "" {
		return multipass.Outcome{}, nil
	}
	role, _ := p.Claims["role"].(string)
	return multipass.Outcome{User: &multipass.User{
		Username:             p.Subject,
		AuthenticationSource: multipass.AuthenticationSource{Provider: p.Provider, Tenant: p.Tenant},
		Role:                 multipass.Role{Name: role},
	}}, nil
}
