package rules

import (
	"sync"
	"sync/atomic"

	"github.com/routex/routex/internal/channelset"
)

// RouterFunc is a registered custom router. It may signal a match via the
// bool return (ordinary condition semantics) or short-circuit straight to a
// channel, bypassing the load balancer entirely.
// A panic or error from a RouterFunc is treated as non-match by the
// registry's Invoke wrapper.
type RouterFunc func(ctx EvalContext) (matched bool, channel *channelset.Channel)

// RouterInfo documents a registered custom router for introspection (e.g.
// the control-plane transformer/router listing endpoint).
type RouterInfo struct {
	Name        string
	Description string
}

type registeredRouter struct {
	fn   RouterFunc
	info RouterInfo
}

// CustomRouterRegistry is the process-wide name→function map,
// published behind a copy-on-write snapshot the same way channelset.Registry
// is, so registration never blocks concurrent rule evaluation.
type CustomRouterRegistry struct {
	ptr atomic.Pointer[map[string]registeredRouter]
	mu  sync.Mutex // serializes writers only
}

// NewCustomRouterRegistry returns an empty registry.
func NewCustomRouterRegistry() *CustomRouterRegistry {
	r := &CustomRouterRegistry{}
	empty := map[string]registeredRouter{}
	r.ptr.Store(&empty)
	return r
}

// Register installs fn under name, replacing any prior definition.
func (r *CustomRouterRegistry) Register(name string, fn RouterFunc, info RouterInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.ptr.Load()
	next := make(map[string]registeredRouter, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[name] = registeredRouter{fn: fn, info: info}
	r.ptr.Store(&next)
}

// Invoke calls the named router, recovering from any panic and treating it
// (like a returned error would be) as a non-match. The matched channel, if
// any, is returned so callers can short-circuit load balancing.
func (r *CustomRouterRegistry) Invoke(name string, ctx EvalContext) (matched bool, channel *channelset.Channel) {
	m := *r.ptr.Load()
	entry, ok := m[name]
	if !ok {
		return false, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			matched, channel = false, nil
		}
	}()
	ok2, ch := entry.fn(ctx)
	if ch != nil {
		return true, ch
	}
	return ok2, nil
}

// List returns info for all registered custom routers.
func (r *CustomRouterRegistry) List() []RouterInfo {
	m := *r.ptr.Load()
	out := make([]RouterInfo, 0, len(m))
	for _, v := range m {
		out = append(out, v.info)
	}
	return out
}

// And combines routers: matches only if every fn matches. A fn that selects a
// channel directly short-circuits, and its channel is returned.
func And(fns ...RouterFunc) RouterFunc {
	return func(ctx EvalContext) (bool, *channelset.Channel) {
		for _, fn := range fns {
			ok, ch := fn(ctx)
			if ch != nil {
				return true, ch
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

// Or combines routers: matches (or selects) on the first fn that does.
func Or(fns ...RouterFunc) RouterFunc {
	return func(ctx EvalContext) (bool, *channelset.Channel) {
		for _, fn := range fns {
			ok, ch := fn(ctx)
			if ch != nil {
				return true, ch
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// Not inverts a boolean router; direct-channel selection is not invertible
// and is treated as a match (Not only negates plain booleans).
func Not(fn RouterFunc) RouterFunc {
	return func(ctx EvalContext) (bool, *channelset.Channel) {
		ok, ch := fn(ctx)
		if ch != nil {
			return true, ch
		}
		return !ok, nil
	}
}

// When gates then behind guard: then only runs if guard matches.
func When(guard, then RouterFunc) RouterFunc {
	return func(ctx EvalContext) (bool, *channelset.Channel) {
		ok, ch := guard(ctx)
		if ch != nil {
			return true, ch
		}
		if !ok {
			return false, nil
		}
		return then(ctx)
	}
}

// Fallback tries primary first, then secondary if primary does not match.
func Fallback(primary, secondary RouterFunc) RouterFunc {
	return func(ctx EvalContext) (bool, *channelset.Channel) {
		ok, ch := primary(ctx)
		if ok {
			return ok, ch
		}
		return secondary(ctx)
	}
}
