package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

// Factory builds a provider from its configuration.
// It must fail with types.ErrInvalidConfiguration when required keys are missing.
type Factory func(cfg Config, client transport.Client) (Provider, error)

// Registry holds driver factories and the alias -> provider instances.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		providers: make(map[string]Provider),
	}
}

// RegisterFactory registers a factory for a driver name.
// This should be called at startup for each supported driver.
func (r *Registry) RegisterFactory(driver string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[driver] = factory
}

// Build creates a provider for alias with the driver named in cfg.Driver
// (the alias itself when empty) and registers it.
func (r *Registry) Build(alias string, cfg Config, client transport.Client) (Provider, error) {
	if cfg.Driver == "" {
		cfg.Driver = alias
	}

	r.mu.RLock()
	factory, ok := r.factories[cfg.Driver]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown driver %q for %q", types.ErrInvalidConfiguration, cfg.Driver, alias)
	}

	p, err := factory(cfg, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", alias, err)
	}
	r.Register(alias, p)
	return p, nil
}

// Register binds alias to a provider instance, replacing any previous one.
func (r *Registry) Register(alias string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[alias] = p
}

// Get returns the provider for alias or types.ErrProviderNotRegistered.
func (r *Registry) Get(alias string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrProviderNotRegistered, alias)
	}
	return p, nil
}

// Aliases returns the registered aliases, sorted.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for a := range r.providers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Drivers returns the registered driver names, sorted.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for d := range r.factories {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
