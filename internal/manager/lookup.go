package manager

import (
	"fmt"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/preset"
)

// ExtensionByName returns the extension with the given name.
func (m *Manager) ExtensionByName(name string) (extension.Extension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.phase == PhaseDestroyed {
		return nil, ErrManagerDestroyed
	}
	ext, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrExtensionNotFound, name)
	}
	return ext, nil
}

// Extension returns the extension of type T.
func Extension[T extension.Extension](m *Manager) (T, error) {
	var zero T
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.phase == PhaseDestroyed {
		return zero, ErrManagerDestroyed
	}
	for _, ext := range m.extensions {
		if t, ok := ext.(T); ok {
			return t, nil
		}
	}
	return zero, fmt.Errorf("%w: %T", ErrExtensionNotFound, zero)
}

// Preset returns the preset of type T.
func Preset[T preset.Preset](m *Manager) (T, error) {
	var zero T
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.phase == PhaseDestroyed {
		return zero, ErrManagerDestroyed
	}
	for _, p := range m.presets {
		if t, ok := p.(T); ok {
			return t, nil
		}
	}
	return zero, fmt.Errorf("%w: preset %T", ErrExtensionNotFound, zero)
}
