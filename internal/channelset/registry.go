package channelset

import (
	"sync/atomic"
)

// Registry holds the live set of Channels behind a copy-on-write snapshot
// pointer. Readers call
// All() and never block writers; writers call Install to publish a new
// generation atomically.
type Registry struct {
	ptr atomic.Pointer[[]*Channel]
}

// NewRegistry builds a Registry seeded with the given channels.
func NewRegistry(channels ...*Channel) *Registry {
	r := &Registry{}
	cp := append([]*Channel(nil), channels...)
	r.ptr.Store(&cp)
	return r
}

// All returns the current generation's channel slice. The slice and its
// *Channel elements must not be mutated by callers; use the Channel's own
// methods (which are internally synchronized) to mutate counters/status.
func (r *Registry) All() []*Channel {
	p := r.ptr.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Install replaces the live set, copy-on-write.
func (r *Registry) Install(channels []*Channel) {
	cp := append([]*Channel(nil), channels...)
	r.ptr.Store(&cp)
}

// Add appends a channel to a new generation.
func (r *Registry) Add(c *Channel) {
	cur := r.All()
	next := append(append([]*Channel(nil), cur...), c)
	r.Install(next)
}

// Remove drops the channel with the given id in a new generation. In-flight
// requests holding an earlier Snapshot are unaffected.
func (r *Registry) Remove(id int64) {
	cur := r.All()
	next := make([]*Channel, 0, len(cur))
	for _, c := range cur {
		if c.ID != id {
			next = append(next, c)
		}
	}
	r.Install(next)
}

// ByID returns the live channel with the given id, if present.
func (r *Registry) ByID(id int64) (*Channel, bool) {
	for _, c := range r.All() {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// ByName returns the live channel with the given unique name, if present.
func (r *Registry) ByName(name string) (*Channel, bool) {
	for _, c := range r.All() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Snapshots returns point-in-time Snapshot copies of every live channel.
func (r *Registry) Snapshots() []Snapshot {
	all := r.All()
	out := make([]Snapshot, len(all))
	for i, c := range all {
		out[i] = c.Snapshot()
	}
	return out
}
