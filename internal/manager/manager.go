package manager

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/extensions/doc"
	"github.com/dshills/loom/internal/extensions/positioner"
	"github.com/dshills/loom/internal/extensions/text"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/loop"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
	"github.com/dshills/loom/internal/preset"
)

// Manager handler keys.
const (
	// HandlerChange fires after every applied transaction with a ChangeEvent.
	HandlerChange = "change"

	// HandlerCreate fires once Create has built the initial state.
	HandlerCreate = "create"

	// HandlerDestroy fires during Destroy with the Manager as payload.
	HandlerDestroy = "destroy"
)

// Combined is an extension.Extension or a preset.Preset.
type Combined interface {
	Name() string
	Options() option.Values
	SetOptions(update option.Values) error
}

// Settings is the manager-wide configuration snapshot. It is read once by
// New.
type Settings struct {
	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Scheduler drives timers. Defaults to the wall clock.
	Scheduler loop.Scheduler

	// Globals fill base options, such as "exclude", that an extension
	// neither defines nor received from its caller.
	Globals option.Values

	// ID identifies the document. A random id is generated when empty.
	ID string
}

// ChangeEvent is the payload of the change handler.
type ChangeEvent struct {
	Transaction *pm.Transaction
	Previous    *pm.State
	State       *pm.State
}

// Manager owns the extensions, schema, and state of one editor.
type Manager struct {
	mu sync.RWMutex

	id        string
	phase     Phase
	closing   bool
	logger    *zap.Logger
	scheduler loop.Scheduler

	// Extensions in priority order
	extensions []extension.Extension
	byName     map[string]extension.Extension
	presets    []preset.Preset

	handlers *handler.Registry

	// Set by Create
	schema   *pm.Schema
	state    *pm.State
	plugins  []*pm.Plugin
	commands map[string]extension.Command
	views    []*attachedView

	// Dispatch queue (protected by mu)
	dispatching bool
	queue       []*pm.Transaction
}

var _ extension.Store = (*Manager)(nil)

// New resolves combined into an ordered extension list. Preset members
// are added in preset order, then the builtin extensions that are still
// missing. An extension seen twice under one name is kept once; two
// different types sharing a name fail with ErrDuplicateExtensionNames.
func New(combined []Combined, settings Settings) (*Manager, error) {
	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler := settings.Scheduler
	if scheduler == nil {
		scheduler = loop.Wall{}
	}
	id := settings.ID
	if id == "" {
		id = uuid.NewString()
	}

	m := &Manager{
		id:        id,
		phase:     PhaseUninitialized,
		logger:    logger.With(zap.String("manager", id)),
		scheduler: scheduler,
		byName:    make(map[string]extension.Extension),
		handlers:  handler.NewRegistry("manager", HandlerChange, HandlerCreate, HandlerDestroy),
	}

	if err := m.resolve(combined); err != nil {
		return nil, err
	}

	if len(settings.Globals) > 0 {
		for _, ext := range m.extensions {
			g, ok := ext.(interface{ ApplyGlobals(option.Values) error })
			if !ok {
				continue
			}
			if err := g.ApplyGlobals(settings.Globals); err != nil {
				return nil, err
			}
		}
	}

	m.phase = PhaseResolving
	m.logger.Debug("manager resolved",
		zap.Int("extensions", len(m.extensions)),
		zap.Int("presets", len(m.presets)))
	return m, nil
}

func (m *Manager) resolve(combined []Combined) error {
	add := func(ext extension.Extension) error {
		name := ext.Name()
		if prev, ok := m.byName[name]; ok {
			if reflect.TypeOf(prev) != reflect.TypeOf(ext) {
				return fmt.Errorf("%w: %q is used by %T and %T", ErrDuplicateExtensionNames, name, prev, ext)
			}
			return nil
		}
		m.byName[name] = ext
		m.extensions = append(m.extensions, ext)
		return nil
	}

	presetNames := make(map[string]preset.Preset)
	for _, c := range combined {
		switch v := c.(type) {
		case preset.Preset:
			if prev, ok := presetNames[v.Name()]; ok {
				if reflect.TypeOf(prev) != reflect.TypeOf(v) {
					return fmt.Errorf("%w: preset %q is used by %T and %T", ErrDuplicateExtensionNames, v.Name(), prev, v)
				}
				continue
			}
			presetNames[v.Name()] = v
			m.presets = append(m.presets, v)
			for _, ext := range v.Extensions() {
				if err := add(ext); err != nil {
					return err
				}
			}
		case extension.Extension:
			if err := add(v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %T", ErrInvalidCombined, c)
		}
	}

	for _, b := range builtins {
		if _, ok := m.byName[b.name]; ok {
			continue
		}
		ext, err := b.create()
		if err != nil {
			return fmt.Errorf("builtin %s: %w", b.name, err)
		}
		if err := add(ext); err != nil {
			return err
		}
	}

	sort.SliceStable(m.extensions, func(i, j int) bool {
		return m.extensions[i].Priority() < m.extensions[j].Priority()
	})
	return nil
}

type builtin struct {
	name   string
	create func() (extension.Extension, error)
}

// builtins are always present in a manager.
var builtins = []builtin{
	{doc.Name, func() (extension.Extension, error) { return doc.New(nil) }},
	{text.Name, func() (extension.Extension, error) { return text.New(nil) }},
	{positioner.Name, func() (extension.Extension, error) { return positioner.New(nil) }},
}

// ID returns the document id.
func (m *Manager) ID() string { return m.id }

// Phase returns the lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Logger returns the manager logger.
func (m *Manager) Logger() *zap.Logger { return m.logger }

// Scheduler returns the timer source.
func (m *Manager) Scheduler() loop.Scheduler { return m.scheduler }

// Extensions returns the extensions in priority order, or nil once the
// manager is destroyed.
func (m *Manager) Extensions() []extension.Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.retired() {
		return nil
	}
	return append([]extension.Extension(nil), m.extensions...)
}

// Presets returns the presets in seed order, or nil once the manager is
// destroyed.
func (m *Manager) Presets() []preset.Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.retired() {
		return nil
	}
	return append([]preset.Preset(nil), m.presets...)
}

// AddHandler subscribes to "change", "create", or "destroy".
func (m *Manager) AddHandler(key string, fn handler.Func) (*handler.Disposer, error) {
	if m.Phase() == PhaseDestroyed {
		return nil, ErrManagerDestroyed
	}
	return m.handlers.AddHandler(key, fn)
}

// AddCustomHandler offers value to each preset, then to each extension
// that declares key. The first taker wins.
func (m *Manager) AddCustomHandler(key string, value any) (*handler.Disposer, error) {
	if m.Phase() == PhaseDestroyed {
		return nil, ErrManagerDestroyed
	}

	for _, p := range m.Presets() {
		d, handled, err := p.AddCustomHandler(key, value)
		if err != nil {
			return nil, err
		}
		if handled {
			return d, nil
		}
	}
	for _, ext := range m.Extensions() {
		spec, ok := ext.(interface{ Spec() option.Spec })
		if !ok || !spec.Spec().IsCustomHandler(key) {
			continue
		}
		return ext.AddCustomHandler(key, value)
	}
	return nil, fmt.Errorf("%w: no extension accepts custom handler %q", handler.ErrInvalidExtensionHandler, key)
}

// usable reports whether the manager accepts calls that need state.
// Callers hold mu.
func (m *Manager) usable() error {
	switch m.phase {
	case PhaseDestroyed:
		return ErrManagerDestroyed
	case PhaseActive:
		return nil
	default:
		return ErrNotCreated
	}
}

// retired reports whether Destroy has finished running extension
// teardown. Extensions still see the manager's data from their OnDestroy
// and plugin view Destroy hooks. Callers hold mu.
func (m *Manager) retired() bool {
	return m.phase == PhaseDestroyed && !m.closing
}
