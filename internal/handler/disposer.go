package handler

import "sync"

// Disposer releases a registration. Dispose may be called any number of
// times; only the first call has an effect. A nil *Disposer is valid.
type Disposer struct {
	once    sync.Once
	release func()
}

// NewDisposer wraps release in a Disposer.
func NewDisposer(release func()) *Disposer {
	return &Disposer{release: release}
}

// Dispose releases the registration.
func (d *Disposer) Dispose() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		if d.release != nil {
			d.release()
		}
	})
}

// Combine returns a Disposer that disposes every non-nil argument in
// reverse order.
func Combine(disposers ...*Disposer) *Disposer {
	return NewDisposer(func() {
		for i := len(disposers) - 1; i >= 0; i-- {
			disposers[i].Dispose()
		}
	})
}
