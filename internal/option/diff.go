package option

import "reflect"

// Change describes the outcome of applying an update to a set of values.
type Change struct {
	// Changed holds the new values of keys that differ from before.
	Changed Values

	// Previous holds the old values of the changed keys.
	Previous Values

	// Options is the full set after the update.
	Options Values
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.Changed) == 0
}

// Has reports whether key changed.
func (c Change) Has(key string) bool {
	_, ok := c.Changed[key]
	return ok
}

// PickChanged returns the changed values restricted to keys. The result is
// empty when none of the keys changed.
func (c Change) PickChanged(keys ...string) Values {
	out := make(Values)
	for _, k := range keys {
		if val, ok := c.Changed[k]; ok {
			out[k] = val
		}
	}
	return out
}

// Diff compares update against current and returns the keys whose values
// actually change. Handler keys are ignored; current is not modified.
func Diff(current, update Values, handlerKeys []string) Change {
	change := Change{
		Changed:  make(Values),
		Previous: make(Values),
		Options:  current.Clone(),
	}

	for key, newVal := range update {
		if contains(handlerKeys, key) {
			continue
		}
		oldVal := current[key]
		if valuesEqual(oldVal, newVal) {
			continue
		}
		change.Changed[key] = cloneValue(newVal)
		change.Previous[key] = oldVal
		change.Options[key] = cloneValue(newVal)
	}

	// Handlers are shared, not copied.
	for _, key := range handlerKeys {
		if fn, ok := current[key]; ok {
			change.Options[key] = fn
		}
	}

	return change
}

// Equal compares two value sets, skipping handler keys.
func Equal(a, b Values, handlerKeys []string) bool {
	return valuesEqual(map[string]any(a.Omit(handlerKeys...)), map[string]any(b.Omit(handlerKeys...)))
}

func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch va := a.(type) {
	case Values:
		return valuesEqual(map[string]any(va), b)
	case map[string]any:
		var vb map[string]any
		switch t := b.(type) {
		case map[string]any:
			vb = t
		case Values:
			vb = t
		default:
			return false
		}
		if len(va) != len(vb) {
			return false
		}
		for k, v := range va {
			other, ok := vb[k]
			if !ok || !valuesEqual(v, other) {
				return false
			}
		}
		return true
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !valuesEqual(va[i], vb[i]) {
				return false
			}
		}
		return true
	}

	ta := reflect.TypeOf(a)
	if ta.Kind() == reflect.Func {
		// Functions compare by identity of their code pointer only.
		return reflect.TypeOf(b) == ta && reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return reflect.DeepEqual(a, b)
}
