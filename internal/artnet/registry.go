package artnet

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry maps universe ids to universes, creating them on first use.
// Lookups of existing universes are lock-free; creation is serialized so an
// id maps to at most one Universe.
type Registry struct {
	allowed map[uint16]struct{} // nil accepts every id

	universes sync.Map // uint16 -> *Universe
	count     atomic.Int64

	mu    sync.Mutex // guards creation and hooks
	hooks []func(*Universe)
}

// NewRegistry returns a registry restricted to allowed. A nil slice accepts
// every universe id, an empty non-nil slice accepts none.
func NewRegistry(allowed []uint16) *Registry {
	r := &Registry{}
	if allowed != nil {
		r.allowed = make(map[uint16]struct{}, len(allowed))
		for _, id := range allowed {
			r.allowed[id] = struct{}{}
		}
	}
	return r
}

// Allowed reports whether id may be materialized.
func (r *Registry) Allowed(id uint16) bool {
	if r.allowed == nil {
		return true
	}
	_, ok := r.allowed[id]
	return ok
}

// Get returns the universe for id, creating it if needed. It returns false
// if id is not in the allow-list.
func (r *Registry) Get(id uint16) (*Universe, bool) {
	if u, ok := r.Lookup(id); ok {
		return u, true
	}
	if !r.Allowed(id) {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.Lookup(id); ok {
		return u, true
	}
	u := newUniverse(id)
	r.universes.Store(id, u)
	r.count.Add(1)
	for _, fn := range r.hooks {
		fn(u)
	}
	return u, true
}

// Lookup returns an existing universe without creating one.
func (r *Registry) Lookup(id uint16) (*Universe, bool) {
	v, ok := r.universes.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Universe), true
}

// Len returns the number of materialized universes.
func (r *Registry) Len() int { return int(r.count.Load()) }

// Universes returns the materialized universes ordered by id.
func (r *Registry) Universes() []*Universe {
	out := make([]*Universe, 0, r.Len())
	r.universes.Range(func(_, v interface{}) bool {
		out = append(out, v.(*Universe))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// OnCreate registers fn to be called for every universe, including those
// that already exist. fn runs while creation is locked, so it must not call
// Get for another id.
func (r *Registry) OnCreate(fn func(*Universe)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = append(r.hooks, fn)
	for _, u := range r.Universes() {
		fn(u)
	}
}
