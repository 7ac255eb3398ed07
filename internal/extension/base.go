package extension

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/option"
)

// Config describes a concrete extension to NewBase.
type Config struct {
	Name     string
	Priority Priority
	Spec     option.Spec

	// OnSetOptions receives the changed keys after every effective update.
	OnSetOptions func(change option.Change)

	// OnAddCustomHandler stores a custom handler value. When nil the value
	// is kept in a fresh slot of Slots.
	OnAddCustomHandler func(key string, value any) (*handler.Disposer, error)
}

// Base implements Extension. Concrete extensions embed it.
type Base struct {
	mu sync.RWMutex

	cfg      Config
	options  option.Values
	explicit map[string]bool
	handlers *handler.Registry
	slots    *handler.Slots
}

var _ Extension = (*Base)(nil)

// NewBase resolves opts against cfg.Spec. Caller handler functions are
// subscribed immediately.
func NewBase(cfg Config, opts option.Values) (*Base, error) {
	if cfg.Name == "" {
		return nil, errors.New("extension name is required")
	}

	handlers := handler.NewRegistry(cfg.Name, cfg.Spec.HandlerKeys...)
	resolved, initial, err := option.Merge(cfg.Spec, nil, opts, handlers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	for key, fn := range initial {
		if _, err := handlers.AddHandler(key, fn); err != nil {
			return nil, err
		}
	}

	b := &Base{
		cfg:      cfg,
		options:  resolved,
		explicit: make(map[string]bool, len(opts)),
		handlers: handlers,
		slots:    handler.NewSlots(cfg.Name, cfg.Spec.CustomHandlerKeys...),
	}
	for key := range opts {
		b.explicit[key] = true
	}

	if p, ok := resolved["priority"]; ok && p != nil {
		if _, isInt := toInt(p); !isInt {
			return nil, fmt.Errorf("%s: %w: priority must be an integer, got %T", cfg.Name, option.ErrInvalidExtensionOptions, p)
		}
	}
	return b, nil
}

// Name returns the extension name.
func (b *Base) Name() string { return b.cfg.Name }

// Priority returns the "priority" option when set, otherwise the
// configured priority.
func (b *Base) Priority() Priority {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n, ok := toInt(b.options["priority"]); ok {
		return Priority(n)
	}
	return b.cfg.Priority
}

// Spec returns the option spec.
func (b *Base) Spec() option.Spec { return b.cfg.Spec }

// Options returns a copy of the resolved options.
func (b *Base) Options() option.Values {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.options.Clone()
}

// Option returns a single option value.
func (b *Base) Option(key string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.options[key]
}

// SetOptions applies update and notifies OnSetOptions with the keys whose
// values actually changed. Nothing is notified when no value changed.
func (b *Base) SetOptions(update option.Values) error {
	b.mu.Lock()
	if err := option.CheckUpdate(b.cfg.Spec, b.options, update); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", b.cfg.Name, err)
	}
	change := option.Diff(b.options, update, b.cfg.Spec.HandlerKeys)
	if change.Empty() {
		b.mu.Unlock()
		return nil
	}
	for key, val := range change.Changed {
		b.options[key] = val
		b.explicit[key] = true
	}
	change.Options = b.options.Clone()
	b.mu.Unlock()

	if b.cfg.OnSetOptions != nil {
		b.cfg.OnSetOptions(change)
	}
	return nil
}

// ApplyGlobals fills keys the extension does not define itself and the
// caller did not set, such as "exclude", from a manager-wide snapshot.
func (b *Base) ApplyGlobals(globals option.Values) error {
	b.mu.RLock()
	update := option.Values{}
	for key, val := range globals {
		if b.explicit[key] || !b.options.Has(key) {
			continue
		}
		if _, own := b.cfg.Spec.Defaults[key]; own {
			continue
		}
		if b.cfg.Spec.IsHandler(key) || b.cfg.Spec.IsCustomHandler(key) {
			continue
		}
		update[key] = val
	}
	b.mu.RUnlock()

	if len(update) == 0 {
		return nil
	}
	if err := b.SetOptions(update); err != nil {
		return err
	}

	b.mu.Lock()
	for key := range update {
		delete(b.explicit, key)
	}
	b.mu.Unlock()
	return nil
}

// Excluded reports whether the "exclude" option turns off a named
// feature such as "keymap" or "plugin".
func (b *Base) Excluded(feature string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	exclude, _ := b.options["exclude"].(map[string]any)
	v, _ := exclude[feature].(bool)
	return v
}

// AddHandler subscribes fn to a declared handler key.
func (b *Base) AddHandler(key string, fn handler.Func) (*handler.Disposer, error) {
	return b.handlers.AddHandler(key, fn)
}

// Emit dispatches payload to the subscribers of key.
func (b *Base) Emit(key string, payload any) {
	b.handlers.Dispatch(key, payload)
}

// Handlers returns the handler registry.
func (b *Base) Handlers() *handler.Registry { return b.handlers }

// Slots returns the custom handler slots.
func (b *Base) Slots() *handler.Slots { return b.slots }

// AddCustomHandler registers value under a declared custom handler key.
func (b *Base) AddCustomHandler(key string, value any) (*handler.Disposer, error) {
	if !b.cfg.Spec.IsCustomHandler(key) {
		return nil, fmt.Errorf("%w: %q is not a custom handler key of %s", handler.ErrInvalidExtensionHandler, key, b.cfg.Name)
	}
	if b.cfg.OnAddCustomHandler != nil {
		return b.cfg.OnAddCustomHandler(key, value)
	}
	return b.slots.Set(key, uuid.NewString(), value, nil)
}

// Close drops every subscriber and releases every custom handler.
func (b *Base) Close() {
	b.handlers.Clear()
	b.slots.Clear()
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case Priority:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
