package manager

import (
	"errors"
	"fmt"

	"github.com/cozy/prosemirror-go/model"
	"go.uber.org/zap"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/pm"
)

type excluder interface {
	Excluded(feature string) bool
}

func excluded(ext extension.Extension, feature string) bool {
	e, ok := ext.(excluder)
	return ok && e.Excluded(feature)
}

// Create builds the schema from every SchemaContributor, runs the
// Initializers, collects plugins and commands in priority order, and
// builds the initial state. content is a document in ProseMirror JSON
// form; nil starts from an empty document.
func (m *Manager) Create(content any) error {
	m.mu.Lock()
	if err := m.creatable(); err != nil {
		m.mu.Unlock()
		return err
	}
	schema, err := m.buildSchema()
	if err != nil {
		m.mu.Unlock()
		return err
	}

	// The document is checked before any Initializer runs so a bad
	// document leaves the manager as it was.
	var doc *pm.Node
	if content != nil {
		doc, err = pm.NodeFromJSON(schema, content)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("loading document: %w", err)
		}
	}
	m.schema = schema
	exts := append([]extension.Extension(nil), m.extensions...)
	m.mu.Unlock()

	// Initializers run without the lock so they can use the store.
	for _, ext := range exts {
		if init, ok := ext.(extension.Initializer); ok {
			if err := init.OnCreate(m); err != nil {
				m.abandonCreate()
				return fmt.Errorf("initializing %s: %w", ext.Name(), err)
			}
		}
	}

	commands := make(map[string]extension.Command)
	var plugins []*pm.Plugin
	for _, ext := range exts {
		if cc, ok := ext.(extension.CommandContributor); ok && !excluded(ext, "commands") {
			for name, cmd := range cc.Commands() {
				if _, dup := commands[name]; dup {
					m.logger.Warn("command already registered",
						zap.String("command", name),
						zap.String("extension", ext.Name()))
					continue
				}
				commands[name] = cmd
			}
		}
		if pc, ok := ext.(extension.PluginContributor); ok && !excluded(ext, "plugin") {
			if p := pc.CreatePlugin(); p != nil {
				plugins = append(plugins, p)
			}
		}
	}

	state, err := pm.NewState(pm.StateConfig{
		Schema:  schema,
		Doc:     doc,
		Plugins: plugins,
		Now:     m.scheduler.Now,
	})
	if err != nil {
		m.abandonCreate()
		return err
	}

	m.mu.Lock()
	if err := m.creatable(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.commands = commands
	m.plugins = plugins
	m.state = state
	m.phase = PhaseActive
	m.mu.Unlock()

	m.logger.Info("manager created",
		zap.Strings("nodes", schema.Nodes()),
		zap.Strings("marks", schema.Marks()),
		zap.Int("plugins", len(plugins)),
		zap.Int("commands", len(commands)))

	m.handlers.Dispatch(HandlerCreate, m)
	return nil
}

// abandonCreate drops the schema of a failed Create.
func (m *Manager) abandonCreate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseActive {
		m.schema = nil
	}
}

// creatable reports whether Create may proceed. Callers hold mu.
func (m *Manager) creatable() error {
	switch m.phase {
	case PhaseDestroyed:
		return ErrManagerDestroyed
	case PhaseActive:
		return ErrAlreadyCreated
	}
	return nil
}

// buildSchema merges node and mark specs in priority order. Callers hold mu.
func (m *Manager) buildSchema() (*pm.Schema, error) {
	var nodes []*model.NodeSpec
	var marks []*model.MarkSpec
	nodeOwner := make(map[string]string)
	markOwner := make(map[string]string)

	for _, ext := range m.extensions {
		sc, ok := ext.(extension.SchemaContributor)
		if !ok {
			continue
		}
		for _, spec := range sc.NodeSpecs() {
			if owner, dup := nodeOwner[spec.Key]; dup {
				return nil, fmt.Errorf("node %q defined by both %s and %s", spec.Key, owner, ext.Name())
			}
			nodeOwner[spec.Key] = ext.Name()
			nodes = append(nodes, spec)
		}
		for _, spec := range sc.MarkSpecs() {
			if owner, dup := markOwner[spec.Key]; dup {
				return nil, fmt.Errorf("mark %q defined by both %s and %s", spec.Key, owner, ext.Name())
			}
			markOwner[spec.Key] = ext.Name()
			marks = append(marks, spec)
		}
	}

	// The top node goes first.
	for i, spec := range nodes {
		if spec.Key == "doc" && i > 0 {
			nodes = append([]*model.NodeSpec{spec}, append(nodes[:i:i], nodes[i+1:]...)...)
			break
		}
	}
	return pm.NewSchema(nodes, marks)
}

// Destroy tears the manager down. Plugin views are destroyed for every
// attached view, then Destroyers run in reverse priority order, then the
// destroy handler fires. Every later call fails with ErrManagerDestroyed;
// accessors without an error return nil.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	if m.phase == PhaseDestroyed {
		m.mu.Unlock()
		return ErrManagerDestroyed
	}
	m.phase = PhaseDestroyed
	m.closing = true
	views := m.views
	m.views = nil
	m.queue = nil
	exts := append([]extension.Extension(nil), m.extensions...)
	m.mu.Unlock()

	for i := len(views) - 1; i >= 0; i-- {
		views[i].destroy()
	}

	for i := len(exts) - 1; i >= 0; i-- {
		if d, ok := exts[i].(extension.Destroyer); ok {
			d.OnDestroy()
		}
	}

	m.mu.Lock()
	m.closing = false
	m.mu.Unlock()

	m.handlers.Dispatch(HandlerDestroy, m)
	m.handlers.Clear()

	for _, ext := range exts {
		if c, ok := ext.(interface{ Close() }); ok {
			c.Close()
		}
	}

	m.logger.Info("manager destroyed")
	return nil
}

// Schema returns the merged schema, or nil before Create and after
// Destroy.
func (m *Manager) Schema() *pm.Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.retired() {
		return nil
	}
	return m.schema
}

// State returns the current state, or nil before Create and after
// Destroy.
func (m *Manager) State() *pm.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.retired() {
		return nil
	}
	return m.state
}

// PluginState returns the state field of the plugin with the given key.
func (m *Manager) PluginState(key string) any {
	state := m.State()
	if state == nil {
		return nil
	}
	return state.PluginState(key)
}

// Document returns the current document in ProseMirror JSON form.
func (m *Manager) Document() (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.usable(); err != nil {
		return nil, err
	}
	return m.state.Doc.JSON(), nil
}

// SetContent replaces the document.
func (m *Manager) SetContent(content any) error {
	state := m.State()
	if state == nil {
		if m.Phase() == PhaseDestroyed {
			return ErrManagerDestroyed
		}
		return ErrNotCreated
	}
	doc, err := pm.NodeFromJSON(state.Schema, content)
	if err != nil {
		return err
	}
	tr := state.Tr()
	if err := tr.SetDoc(doc); err != nil {
		return err
	}
	return m.Dispatch(tr)
}

// IsDestroyed reports whether Destroy has run.
func (m *Manager) IsDestroyed() bool {
	return errors.Is(m.checkPhase(), ErrManagerDestroyed)
}

func (m *Manager) checkPhase() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usable()
}
