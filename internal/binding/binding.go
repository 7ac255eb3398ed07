// Package binding is the contract a rendering layer uses to reach a
// manager: a provider context carries the manager, and the Use functions
// subscribe to it and hand back disposers the caller releases when its
// component goes away.
package binding

import (
	"errors"
	"fmt"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/preset"
)

// ErrMissingProviderContext is returned when a Use function is called
// without a provider context.
var ErrMissingProviderContext = errors.New("missing provider context")

// Context carries the manager from Provide to the Use functions.
type Context struct {
	manager *manager.Manager
}

// Provide wraps m in a provider context.
func Provide(m *manager.Manager) *Context {
	return &Context{manager: m}
}

func (c *Context) get() (*manager.Manager, error) {
	if c == nil || c.manager == nil {
		return nil, ErrMissingProviderContext
	}
	return c.manager, nil
}

// Use returns the provided manager. A non-nil onChange is subscribed to
// the change handler.
func Use(ctx *Context, onChange func(manager.ChangeEvent)) (*manager.Manager, *handler.Disposer, error) {
	m, err := ctx.get()
	if err != nil {
		return nil, nil, err
	}
	if onChange == nil {
		return m, nil, nil
	}
	d, err := m.AddHandler(manager.HandlerChange, func(payload any) {
		if ev, ok := payload.(manager.ChangeEvent); ok {
			onChange(ev)
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return m, d, nil
}

// Setup registers handlers against an extension or preset and returns
// what must be released.
type Setup[T any] func(target T, m *manager.Manager) (*handler.Disposer, error)

// UseExtension finds the extension of type T. Non-empty opts are applied
// with SetOptions; a non-nil setup runs afterwards.
func UseExtension[T extension.Extension](ctx *Context, opts option.Values, setup Setup[T]) (T, *handler.Disposer, error) {
	var zero T
	m, err := ctx.get()
	if err != nil {
		return zero, nil, err
	}
	ext, err := manager.Extension[T](m)
	if err != nil {
		return zero, nil, err
	}
	return apply(ext, m, opts, setup)
}

// UsePreset is UseExtension for presets.
func UsePreset[T preset.Preset](ctx *Context, opts option.Values, setup Setup[T]) (T, *handler.Disposer, error) {
	var zero T
	m, err := ctx.get()
	if err != nil {
		return zero, nil, err
	}
	p, err := manager.Preset[T](m)
	if err != nil {
		return zero, nil, err
	}
	return apply(p, m, opts, setup)
}

func apply[T manager.Combined](target T, m *manager.Manager, opts option.Values, setup Setup[T]) (T, *handler.Disposer, error) {
	var zero T
	if len(opts) > 0 {
		if err := target.SetOptions(opts); err != nil {
			return zero, nil, fmt.Errorf("%s: %w", target.Name(), err)
		}
	}
	if setup == nil {
		return target, nil, nil
	}
	d, err := setup(target, m)
	if err != nil {
		return zero, nil, err
	}
	return target, d, nil
}
