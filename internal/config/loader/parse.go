package loader

import (
	"errors"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func parseTOML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return nil, perr
	}
	return normalize(config).(map[string]any), nil
}

func parseYAML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return normalize(config).(map[string]any), nil
}

// normalize turns the map[any]any and int shapes a decoder may produce
// into the map[string]any form the rest of the loader expects.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if s, ok := k.(string); ok {
				out[s] = normalize(val)
			}
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	case int64:
		return int(t)
	default:
		return v
	}
}
