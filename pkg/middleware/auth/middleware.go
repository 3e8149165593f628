package auth

import (
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"go.uber.org/zap"
)

type Middleware struct {
	authn     *multipass.Authenticator
	dir       ConnectionDirectory
	adminRole string
	log       *zap.Logger
}

// NewMiddleware wraps an Authenticator for HTTP use.
func NewMiddleware(authn *multipass.Authenticator, dir ConnectionDirectory, adminRole string, log *zap.Logger) *Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return &Middleware{authn: authn, dir: dir, adminRole: adminRole, log: log.Named("auth")}
}

// Authenticator exposes the wrapped Authenticator.
func (m *Middleware) Authenticator() *multipass.Authenticator { return m.authn }
