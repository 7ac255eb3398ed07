package preset

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/option"
)

// Preset is a named bundle of extensions.
type Preset interface {
	Name() string
	Options() option.Values
	SetOptions(update option.Values) error
	AddHandler(key string, fn handler.Func) (*handler.Disposer, error)

	// AddCustomHandler routes value to one member. handled is false for
	// keys no member accepts.
	AddCustomHandler(key string, value any) (d *handler.Disposer, handled bool, err error)

	// Extensions returns the members in creation order.
	Extensions() []extension.Extension
}

// Config describes a concrete preset to NewBase.
type Config struct {
	Name string
	Spec option.Spec

	// CreateExtensions builds the members from the resolved options. It is
	// called once.
	CreateExtensions func(opts option.Values) ([]extension.Extension, error)

	// OnSetOptions forwards changed keys to members.
	OnSetOptions func(change option.Change) error

	// OnAddCustomHandler routes custom handlers to members.
	OnAddCustomHandler func(key string, value any) (*handler.Disposer, bool, error)
}

// Base implements Preset. Concrete presets embed it.
type Base struct {
	mu sync.RWMutex

	cfg        Config
	options    option.Values
	handlers   *handler.Registry
	extensions []extension.Extension
}

var _ Preset = (*Base)(nil)

// NewBase resolves opts and creates the member extensions.
func NewBase(cfg Config, opts option.Values) (*Base, error) {
	if cfg.Name == "" {
		return nil, errors.New("preset name is required")
	}
	if cfg.CreateExtensions == nil {
		return nil, fmt.Errorf("preset %s: CreateExtensions is required", cfg.Name)
	}

	handlers := handler.NewRegistry(cfg.Name, cfg.Spec.HandlerKeys...)
	resolved, initial, err := option.Merge(cfg.Spec, nil, opts, handlers)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", cfg.Name, err)
	}
	for key, fn := range initial {
		if _, err := handlers.AddHandler(key, fn); err != nil {
			return nil, err
		}
	}

	exts, err := cfg.CreateExtensions(resolved.Clone())
	if err != nil {
		return nil, fmt.Errorf("preset %s: creating extensions: %w", cfg.Name, err)
	}

	return &Base{
		cfg:        cfg,
		options:    resolved,
		handlers:   handlers,
		extensions: exts,
	}, nil
}

// Name returns the preset name.
func (b *Base) Name() string { return b.cfg.Name }

// Options returns a copy of the resolved options.
func (b *Base) Options() option.Values {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.options.Clone()
}

// Extensions returns the members in creation order. The list never
// changes after NewBase.
func (b *Base) Extensions() []extension.Extension {
	return append([]extension.Extension(nil), b.extensions...)
}

// SetOptions applies update and hands the changed keys to OnSetOptions.
func (b *Base) SetOptions(update option.Values) error {
	b.mu.Lock()
	if err := option.CheckUpdate(b.cfg.Spec, b.options, update); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("preset %s: %w", b.cfg.Name, err)
	}
	change := option.Diff(b.options, update, b.cfg.Spec.HandlerKeys)
	if change.Empty() {
		b.mu.Unlock()
		return nil
	}
	for key, val := range change.Changed {
		b.options[key] = val
	}
	change.Options = b.options.Clone()
	b.mu.Unlock()

	if b.cfg.OnSetOptions == nil {
		return nil
	}
	return b.cfg.OnSetOptions(change)
}

// AddHandler subscribes fn to a declared handler key.
func (b *Base) AddHandler(key string, fn handler.Func) (*handler.Disposer, error) {
	return b.handlers.AddHandler(key, fn)
}

// Emit dispatches payload to the subscribers of key.
func (b *Base) Emit(key string, payload any) {
	b.handlers.Dispatch(key, payload)
}

// AddCustomHandler routes through OnAddCustomHandler.
func (b *Base) AddCustomHandler(key string, value any) (*handler.Disposer, bool, error) {
	if b.cfg.OnAddCustomHandler == nil {
		return nil, false, nil
	}
	return b.cfg.OnAddCustomHandler(key, value)
}

// Forward calls ext.SetOptions with the changed subset of keys. Nothing is
// called when none of the keys changed.
func Forward(change option.Change, ext extension.Extension, keys ...string) error {
	picked := change.PickChanged(keys...)
	if len(picked) == 0 {
		return nil
	}
	return ext.SetOptions(picked)
}

// Route sends a custom handler to the member registered for key.
func Route(routes map[string]extension.Extension, key string, value any) (*handler.Disposer, bool, error) {
	ext, ok := routes[key]
	if !ok {
		return nil, false, nil
	}
	d, err := ext.AddCustomHandler(key, value)
	if err != nil {
		return nil, true, err
	}
	return d, true, nil
}

// Extension returns the first member of type T.
func Extension[T extension.Extension](p Preset) (T, error) {
	for _, ext := range p.Extensions() {
		if t, ok := ext.(T); ok {
			return t, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %T in %s", ErrExtensionNotFound, zero, p.Name())
}
