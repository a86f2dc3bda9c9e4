package thingstore

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps adapter names to factories. The kv and sql adapter packages
// each keep one package-level instance.
type Registry[A any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]func() A
}

// NewRegistry returns an empty registry; kind names the adapter family in
// lookup errors.
func NewRegistry[A any](kind string) *Registry[A] {
	return &Registry[A]{kind: kind, factories: map[string]func() A{}}
}

// Register adds factory under name, replacing an earlier registration.
func (r *Registry[A]) Register(name string, factory func() A) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

// Get returns a new adapter built by the factory registered under name.
func (r *Registry[A]) Get(name string) (A, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero A
		return zero, NewDriverError(fmt.Errorf("%w: no %s adapter %q", ErrDriverNotFound, r.kind, name), name, "lookup")
	}
	return factory(), nil
}

// List returns the registered names, sorted.
func (r *Registry[A]) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

func (r *Registry[A]) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}
