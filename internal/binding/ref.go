package binding

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/manager"
)

// ManagerRef holds a manager that is replaced by a fresh one when it is
// destroyed, so a component that outlives its manager keeps working.
type ManagerRef struct {
	mu        sync.Mutex
	create    func() (*manager.Manager, error)
	current   *manager.Manager
	sub       *handler.Disposer
	onReplace func(*manager.Manager)
	err       error
	closed    bool
}

// NewManagerRef calls create for the first manager and again after each
// destroy. onReplace, when set, receives every replacement.
func NewManagerRef(create func() (*manager.Manager, error), onReplace func(*manager.Manager)) (*ManagerRef, error) {
	r := &ManagerRef{create: create, onReplace: onReplace}
	m, err := create()
	if err != nil {
		return nil, err
	}
	if err := r.track(m); err != nil {
		return nil, err
	}
	return r, nil
}

// Current returns the live manager.
func (r *ManagerRef) Current() *manager.Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Err returns the error of the last failed replacement.
func (r *ManagerRef) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Context returns a provider context for the live manager.
func (r *ManagerRef) Context() *Context {
	return Provide(r.Current())
}

// Close stops replacing and destroys the live manager.
func (r *ManagerRef) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	m, sub := r.current, r.sub
	r.mu.Unlock()

	sub.Dispose()
	if m.IsDestroyed() {
		return nil
	}
	return m.Destroy()
}

func (r *ManagerRef) track(m *manager.Manager) error {
	d, err := m.AddHandler(manager.HandlerDestroy, func(any) { r.replace(m) })
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.current, r.sub = m, d
	r.mu.Unlock()
	return nil
}

func (r *ManagerRef) replace(old *manager.Manager) {
	r.mu.Lock()
	if r.closed || r.current != old {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	next, err := r.create()
	if err == nil {
		err = r.track(next)
	}
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	if err != nil {
		old.Logger().Error("replacing destroyed manager failed", zap.Error(err))
		return
	}
	if r.onReplace != nil {
		r.onReplace(next)
	}
}
