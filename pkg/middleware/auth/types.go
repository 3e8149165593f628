package auth

import "github.com/joeydtaylor/steeze-multipass/pkg/multipass"

type (
	Role                 = multipass.Role
	AuthenticationSource = multipass.AuthenticationSource
	User                 = multipass.User
)

// ConnectionDirectory resolves a tenant's connection data for a provider
// type. manifest.Directory implements it.
type ConnectionDirectory interface {
	Connection(tenant, providerType string) (multipass.ConnectionData, bool)
}

// Request headers naming the tenant and provider type when the route path
// does not carry them.
const (
	HeaderTenant   = "X-Tenant-ID"
	HeaderProvider = "X-Auth-Provider"
)

// DefaultAdminRole is used when ADMIN_ROLE_NAME is unset.
const DefaultAdminRole = "admin"
