package adapter

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Registry maps adapter names to their implementations.
type Registry struct {
	adapters map[string]Adapter
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry holding the generic, body and results
// variants, all sharing ids.
func NewRegistry(ids IDGenerator) *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter),
	}
	r.Register(&Generic{IDs: ids})
	r.Register(&Body{IDs: ids})
	r.Register(&Results{IDs: ids})
	return r
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) {
	name := a.Name()
	if _, ok := r.adapters[name]; !ok {
		r.order = append(r.order, name)
	}
	r.adapters[name] = a
}

// Get returns an adapter by name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, eris.Errorf("adapter: unknown adapter %q (known: %s)", name, strings.Join(r.AllNames(), ", "))
	}
	return a, nil
}

// AllNames returns all registered adapter names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
