// Package entity provides the generic, per-kind entity registry described
// in spec.md §4.1 (C1): a stable-ordered collection of live instances with
// lookup by id and class-level filtering. It replaces the teacher's various
// class-level "instances" lists with an explicit value threaded through
// World, per spec.md §9's design note on rearchitecting class registries.
package entity

import "github.com/samber/lo"

// Identifiable is satisfied by any entity with a stable integer id.
type Identifiable interface {
	EntityID() int
}

// Registry holds entities of one kind in stable insertion (registry) order.
// Registry order is the default deterministic iteration order wherever
// callers don't apply an explicit sort — part of the determinism contract
// in spec.md §5/§8.
type Registry[T Identifiable] struct {
	order []T
	byID  map[int]T
}

// New creates an empty registry.
func New[T Identifiable]() *Registry[T] {
	return &Registry[T]{byID: make(map[int]T)}
}

// Add registers an entity. It panics if an entity with the same id already
// exists — duplicate ids are a dataset-loading bug, not a runtime
// condition callers are expected to recover from.
func (r *Registry[T]) Add(e T) {
	id := e.EntityID()
	if _, exists := r.byID[id]; exists {
		panic("entity: duplicate id registered")
	}
	r.byID[id] = e
	r.order = append(r.order, e)
}

// All returns every live instance in registry (insertion) order. The
// returned slice is the registry's own backing array and must not be
// mutated by callers; read it, don't store mutations back into it.
func (r *Registry[T]) All() []T {
	return r.order
}

// Count returns the number of registered entities.
func (r *Registry[T]) Count() int {
	return len(r.order)
}

// Find looks up an entity by id.
func (r *Registry[T]) Find(id int) (T, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Filter returns, in registry order, every entity matching pred.
func (r *Registry[T]) Filter(pred func(T) bool) []T {
	return lo.Filter(r.order, func(e T, _ int) bool { return pred(e) })
}
