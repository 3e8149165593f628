package multipass

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry maps provider types to templates. It is filled during startup
// and read on every authentication.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
	log       *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{templates: make(map[string]Template), log: log}
}

// Register adds a template. A second registration for the same provider
// type is rejected; use Replace to overwrite on purpose.
func (r *Registry) Register(t Template) error {
	if err := t.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.templates[t.ProviderType]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateProviderType, t.ProviderType)
	}
	r.templates[t.ProviderType] = t
	return nil
}

// MustRegister is Register for init-time wiring.
func (r *Registry) MustRegister(t Template) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Replace stores t whether or not the type is already registered.
// Instances built from the old template stay cached until swept.
func (r *Registry) Replace(t Template) error {
	if err := t.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	_, existed := r.templates[t.ProviderType]
	r.templates[t.ProviderType] = t
	r.mu.Unlock()
	if existed {
		r.log.Warn("template replaced", zap.String("provider", t.ProviderType))
	}
	return nil
}

// Lookup returns the template for providerType.
func (r *Registry) Lookup(providerType string) (Template, error) {
	r.mu.RLock()
	t, ok := r.templates[providerType]
	r.mu.RUnlock()
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownProviderType, providerType)
	}
	return t, nil
}

// ProviderTypes lists registered types in sorted order.
func (r *Registry) ProviderTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.templates))
	for name := range r.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (t Template) validate() error {
	switch {
	case strings.TrimSpace(t.ProviderType) == "":
		return fmt.Errorf("%w: template provider type required", ErrConfiguration)
	case strings.Contains(t.ProviderType, keySep):
		return fmt.Errorf("%w: provider type %q must not contain %q", ErrConfiguration, t.ProviderType, keySep)
	case t.Constructor == nil:
		return fmt.Errorf("%w: template %q has no constructor", ErrConfiguration, t.ProviderType)
	case t.OptionsBuilder == nil:
		return fmt.Errorf("%w: template %q has no options builder", ErrConfiguration, t.ProviderType)
	case t.ResultHandler == nil:
		return fmt.Errorf("%w: template %q has no result handler", ErrConfiguration, t.ProviderType)
	}
	return nil
}
