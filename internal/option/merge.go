package option

import (
	"fmt"

	"github.com/dshills/loom/internal/handler"
)

// Spec describes the option surface of an extension or preset.
type Spec struct {
	// Defaults are the component's static default values.
	Defaults Values

	// HandlerKeys name options that hold multi-subscriber handlers.
	HandlerKeys []string

	// CustomHandlerKeys name options registered through AddCustomHandler.
	CustomHandlerKeys []string

	// StaticKeys may only be set at construction.
	StaticKeys []string
}

// IsHandler reports whether key is a declared handler key.
func (s Spec) IsHandler(key string) bool {
	return contains(s.HandlerKeys, key)
}

// IsCustomHandler reports whether key is a declared custom handler key.
func (s Spec) IsCustomHandler(key string) bool {
	return contains(s.CustomHandlerKeys, key)
}

// IsStatic reports whether key is construction-only.
func (s Spec) IsStatic(key string) bool {
	return contains(s.StaticKeys, key)
}

// BaseDefaults returns the options every extension carries before its own
// defaults. A fresh map is returned on every call.
func BaseDefaults() Values {
	return Values{
		"priority": nil,
		"exclude":  map[string]any{},
	}
}

// Merge resolves globals, then spec.Defaults, then caller into one set of
// values. Handler keys are filled with the dispatch functions produced by
// handlers; a caller-supplied handler function is returned separately in
// initial so the owner can subscribe it.
func Merge(spec Spec, globals, caller Values, handlers *handler.Registry) (resolved Values, initial map[string]handler.Func, err error) {
	if globals == nil {
		globals = BaseDefaults()
	}

	resolved = globals.Clone()
	for key, val := range spec.Defaults {
		resolved[key] = cloneValue(val)
	}

	initial = make(map[string]handler.Func)
	for key, val := range caller {
		switch {
		case spec.IsHandler(key):
			fn, ok := asFunc(val)
			if !ok {
				return nil, nil, fmt.Errorf("%w: handler %q must be a function, got %T", ErrInvalidExtensionOptions, key, val)
			}
			if fn != nil {
				initial[key] = fn
			}
		case spec.IsCustomHandler(key):
			// Custom handlers are registered after construction; seed values
			// are kept so the owner can route them.
			resolved[key] = val
		case resolved.Has(key):
			resolved[key] = cloneValue(val)
		default:
			return nil, nil, fmt.Errorf("%w: unknown option %q", ErrInvalidExtensionOptions, key)
		}
	}

	if handlers != nil {
		for _, key := range spec.HandlerKeys {
			resolved[key] = handlers.Func(key)
		}
	}

	if err := Validate(spec, resolved); err != nil {
		return nil, nil, err
	}
	return resolved, initial, nil
}

// Validate checks that every declared handler key resolves to an
// invocable value.
func Validate(spec Spec, values Values) error {
	for _, key := range spec.HandlerKeys {
		fn, ok := asFunc(values[key])
		if !ok || fn == nil {
			return fmt.Errorf("%w: handler %q is not invocable", ErrInvalidExtensionOptions, key)
		}
	}
	return nil
}

// CheckUpdate rejects keys that are unknown, static, or handlers. Handlers
// are added with AddHandler, never through SetOptions.
func CheckUpdate(spec Spec, current, update Values) error {
	for key := range update {
		switch {
		case spec.IsHandler(key):
			return fmt.Errorf("%w: handler %q cannot be set, use AddHandler", ErrInvalidExtensionOptions, key)
		case spec.IsCustomHandler(key):
			return fmt.Errorf("%w: custom handler %q cannot be set, use AddCustomHandler", ErrInvalidExtensionOptions, key)
		case spec.IsStatic(key):
			return fmt.Errorf("%w: static option %q cannot be updated", ErrInvalidExtensionOptions, key)
		case !current.Has(key):
			return fmt.Errorf("%w: unknown option %q", ErrInvalidExtensionOptions, key)
		}
	}
	return nil
}

func asFunc(val any) (handler.Func, bool) {
	switch fn := val.(type) {
	case nil:
		return nil, true
	case handler.Func:
		return fn, true
	case func(any):
		return handler.Func(fn), true
	default:
		return nil, false
	}
}

func contains(list []string, key string) bool {
	for _, k := range list {
		if k == key {
			return true
		}
	}
	return false
}
