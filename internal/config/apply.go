package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/option"
)

// Apply pushes the option changes from prev to next into the live
// extensions and presets of m and returns the updated names. A preset
// name takes precedence over an extension of the same name. Keys removed
// from next keep their current value.
func Apply(m *manager.Manager, prev, next *Config) ([]string, error) {
	names := make([]string, 0, len(next.Options))
	for name := range next.Options {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		updated []string
		errs    []error
	)
	for _, name := range names {
		var before option.Values
		if prev != nil {
			before = prev.Options[name]
		}
		change := option.Diff(before, next.Options[name], nil)
		if change.Empty() {
			continue
		}
		target, err := lookup(m, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := target.SetOptions(change.Changed); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		updated = append(updated, name)
	}
	return updated, errors.Join(errs...)
}

func lookup(m *manager.Manager, name string) (manager.Combined, error) {
	for _, p := range m.Presets() {
		if p.Name() == name {
			return p, nil
		}
	}
	return m.ExtensionByName(name)
}
