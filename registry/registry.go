// Package registry holds the set of currently known devices.
//
// The registry is the only structure in the core mutated concurrently:
// the discovery feed writes while broadcasts read. All access goes through
// an RWMutex; Snapshot returns a copy safe for iteration while discovery
// keeps mutating the underlying set.
package registry

import (
	"sort"
	"sync"

	"github.com/Gusemmett/multiCamController/types"
)

// Registry is a concurrency-safe name→device map. The zero value is not
// usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]types.Device
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{devices: make(map[string]types.Device)}
}

// Upsert inserts or replaces the entry with the same identity.
func (r *Registry) Upsert(name, addr string, port int, meta map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[name] = types.Device{Name: name, Addr: addr, Port: port, Meta: meta}
}

// Remove deletes the entry if present. No-op when absent.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, name)
}

// Get returns the device with the given identity.
func (r *Registry) Get(name string) (types.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[name]
	return d, ok
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Snapshot returns a copy of the current device set, sorted by identity
// for deterministic iteration. Safe to use while discovery mutates the
// registry.
func (r *Registry) Snapshot() []types.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clear removes every entry. Used at session teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]types.Device)
}
