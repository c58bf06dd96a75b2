package tracker

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Backend from its configuration.
type Factory func(cfg *Config) (Backend, error)

// Registry manages registered backends.
// Adapters register themselves at init time and are looked up by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// globalRegistry is the default registry used by Register and New.
var globalRegistry = NewRegistry()

// Register adds a backend factory to the global registry.
// The name should be lowercase (e.g., "local", "github", "jira").
func Register(name string, factory Factory) {
	globalRegistry.Register(name, factory)
}

// Get retrieves a factory from the global registry, or nil.
func Get(name string) Factory {
	return globalRegistry.Get(name)
}

// List returns the names of all registered backends.
func List() []string {
	return globalRegistry.List()
}

// New builds the named backend from the global registry.
func New(name string, cfg *Config) (Backend, error) {
	return globalRegistry.New(name, cfg)
}

// Register adds a factory to this registry.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get retrieves a factory from this registry.
func (r *Registry) Get(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[name]
}

// List returns the registered names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a new instance of the named backend.
func (r *Registry) New(name string, cfg *Config) (Backend, error) {
	factory := r.Get(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, r.List())
	}
	if cfg == nil {
		cfg = &Config{Prefix: name}
	}
	return factory(cfg)
}

// IsRegistered checks if a backend with the given name is registered.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}
