package manifest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

// Tenant lists the providers one client application may authenticate with.
type Tenant struct {
	ID        string     `toml:"id"`
	Providers []Provider `toml:"provider"`
}

// Provider is a tenant's connection data for one provider type.
type Provider struct {
	Type       string         `toml:"type"`
	Connection map[string]any `toml:"connection"`
}

func (t *Tenant) validate() error {
	seen := make(map[string]struct{}, len(t.Providers))
	for i := range t.Providers {
		p := &t.Providers[i]
		p.Type = strings.TrimSpace(p.Type)
		if p.Type == "" {
			return fmt.Errorf("provider %d: type required", i)
		}
		if strings.Contains(p.Type, ":") {
			return errors.New("provider type must not contain ':'")
		}
		if _, dup := seen[p.Type]; dup {
			return fmt.Errorf("provider %q declared twice", p.Type)
		}
		seen[p.Type] = struct{}{}
	}
	return nil
}

// Directory resolves connection data by tenant and provider type.
type Directory struct {
	mu    sync.RWMutex
	conns map[string]map[string]multipass.ConnectionData
}

// NewDirectory indexes the tenants of a validated manifest.
func NewDirectory(tenants []Tenant) *Directory {
	d := &Directory{}
	d.Replace(tenants)
	return d
}

// Replace swaps the whole index. Cached instances keep the connection data
// they were built with until the sweeper evicts them.
func (d *Directory) Replace(tenants []Tenant) {
	conns := make(map[string]map[string]multipass.ConnectionData, len(tenants))
	for _, t := range tenants {
		byType := make(map[string]multipass.ConnectionData, len(t.Providers))
		for _, p := range t.Providers {
			cd := make(multipass.ConnectionData, len(p.Connection))
			for k, v := range p.Connection {
				cd[k] = v
			}
			byType[p.Type] = cd
		}
		conns[t.ID] = byType
	}
	d.mu.Lock()
	d.conns = conns
	d.mu.Unlock()
}

// Connection returns the connection data for tenant and provider type.
func (d *Directory) Connection(tenant, providerType string) (multipass.ConnectionData, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cd, ok := d.conns[tenant][providerType]
	return cd, ok
}

// Tenants lists known tenant ids.
func (d *Directory) Tenants() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.conns))
	for id := range d.conns {
		out = append(out, id)
	}
	return out
}
