package handler

import (
	"fmt"
	"sync"
)

// Func is a handler callback. The payload type is defined by the key.
type Func func(payload any)

// subscription is a single handler registration.
type subscription struct {
	fn     Func
	active bool
}

// Registry holds the handler subscribers of one component.
type Registry struct {
	mu sync.RWMutex

	owner string
	keys  map[string]bool

	// subscribers per key, in subscription order
	subs map[string][]*subscription
}

// NewRegistry creates a registry accepting the declared keys. owner is
// used in error messages.
func NewRegistry(owner string, keys ...string) *Registry {
	r := &Registry{
		owner: owner,
		keys:  make(map[string]bool, len(keys)),
		subs:  make(map[string][]*subscription, len(keys)),
	}
	for _, k := range keys {
		r.keys[k] = true
	}
	return r
}

// Declared reports whether key may be subscribed to.
func (r *Registry) Declared(key string) bool {
	return r.keys[key]
}

// AddHandler subscribes fn to key. The returned Disposer removes the
// subscription; it takes effect immediately, including during a dispatch
// already in progress.
func (r *Registry) AddHandler(key string, fn Func) (*Disposer, error) {
	if !r.keys[key] {
		return nil, fmt.Errorf("%w: %q is not a handler key of %s", ErrInvalidExtensionHandler, key, r.owner)
	}
	if fn == nil {
		return NewDisposer(nil), nil
	}

	sub := &subscription{fn: fn, active: true}

	r.mu.Lock()
	r.subs[key] = append(r.subs[key], sub)
	r.mu.Unlock()

	return NewDisposer(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		sub.active = false
		list := r.subs[key]
		for i, s := range list {
			if s == sub {
				r.subs[key] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}), nil
}

// Dispatch invokes every subscriber of key in subscription order. The
// subscriber list is snapshotted first; subscribers disposed before their
// turn are skipped.
func (r *Registry) Dispatch(key string, payload any) {
	r.mu.RLock()
	snapshot := make([]*subscription, len(r.subs[key]))
	copy(snapshot, r.subs[key])
	r.mu.RUnlock()

	for _, sub := range snapshot {
		r.mu.RLock()
		active := sub.active
		r.mu.RUnlock()
		if !active {
			continue
		}
		sub.fn(payload)
	}
}

// Func returns a handler that dispatches to key. It is what a handler
// option resolves to, so it is safe to call with no subscribers.
func (r *Registry) Func(key string) Func {
	return func(payload any) {
		r.Dispatch(key, payload)
	}
}

// Count returns the number of live subscribers for key.
func (r *Registry) Count(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[key])
}

// Clear drops every subscriber. Disposers handed out earlier stay valid
// and become no-ops.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, list := range r.subs {
		for _, s := range list {
			s.active = false
		}
		delete(r.subs, key)
	}
}
