package multipass

import (
	"fmt"
	"strings"
)

const keySep = ":"

// Key identifies one cache slot: a tenant's instance of a provider type.
type Key struct {
	TenantID     string `json:"tenant"`
	ProviderType string `json:"provider"`
}

// NewKey builds a key for tenant and provider type.
func NewKey(tenantID, providerType string) Key {
	return Key{TenantID: tenantID, ProviderType: providerType}
}

// String renders "tenant:type". Provider types never contain ':' so the
// last separator always splits the two halves.
func (k Key) String() string {
	return k.TenantID + keySep + k.ProviderType
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, keySep)
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("%w: malformed key %q", ErrInvalidParams, s)
	}
	return Key{TenantID: s[:i], ProviderType: s[i+1:]}, nil
}

func (k Key) validate() error {
	if strings.TrimSpace(k.TenantID) == "" || strings.TrimSpace(k.ProviderType) == "" {
		return ErrInvalidParams
	}
	return nil
}
