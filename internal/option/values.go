package option

import (
	"fmt"
	"sort"
	"time"
)

// Values holds resolved option values keyed by option name.
type Values map[string]any

// Clone returns a deep copy of the values. Nested maps and slices are
// copied; functions and other reference types are shared.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return Values(cloneMap(v))
}

// Has reports whether key is present.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// Keys returns the option names in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Omit returns a shallow copy without the given keys.
func (v Values) Omit(keys ...string) Values {
	skip := make(map[string]bool, len(keys))
	for _, k := range keys {
		skip[k] = true
	}
	out := make(Values, len(v))
	for k, val := range v {
		if !skip[k] {
			out[k] = val
		}
	}
	return out
}

// Pick returns a shallow copy holding only the given keys that are present.
func (v Values) Pick(keys ...string) Values {
	out := make(Values, len(keys))
	for _, k := range keys {
		if val, ok := v[k]; ok {
			out[k] = val
		}
	}
	return out
}

// String returns the string value at key, or "" when unset.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Bool returns the boolean value at key, or false when unset.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Int returns the integer value at key. Numeric values decoded from
// configuration files (int64, float64) are converted.
func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Float returns the float value at key.
func (v Values) Float(key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Duration returns the duration at key. Strings are parsed with
// time.ParseDuration and bare integers are read as milliseconds.
func (v Values) Duration(key string) time.Duration {
	switch d := v[key].(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0
		}
		return parsed
	case int:
		return time.Duration(d) * time.Millisecond
	case int64:
		return time.Duration(d) * time.Millisecond
	case float64:
		return time.Duration(d) * time.Millisecond
	default:
		return 0
	}
}

// Strings returns a string slice at key. []any holding strings is
// converted, which is what YAML and TOML decoders produce.
func (v Values) Strings(key string) []string {
	switch s := v[key].(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

func cloneValue(val any) any {
	switch v := val.(type) {
	case Values:
		return Values(cloneMap(v))
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return val
	}
}
