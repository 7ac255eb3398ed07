package pm

import (
	"errors"
	"fmt"
	"time"
)

// StateField is the state a plugin keeps alongside the document.
type StateField struct {
	// Init computes the initial value. state holds the fields of the
	// plugins before this one.
	Init func(state *State) any

	// Apply computes the next value from a transaction.
	Apply func(tr *Transaction, value any, old, new *State) any
}

// PluginView is the per-view part of a plugin.
type PluginView struct {
	Update  func(view View, prev *State)
	Destroy func()
}

// DOMEventHandler handles a DOM event. Returning true marks the event as
// handled so later handlers are skipped.
type DOMEventHandler func(view View, event *Event) bool

// Plugin bundles state, decorations, event handlers, and view hooks.
// Decorations receives the view being drawn, or nil when the caller wants
// the decorations of every view.
type Plugin struct {
	Key         string
	State       *StateField
	Decorations func(view View, state *State) *DecorationSet
	DOMEvents   map[string]DOMEventHandler
	View        func(view View) PluginView
}

// StateConfig configures NewState.
type StateConfig struct {
	Schema    *Schema
	Doc       *Node
	Selection Selection
	Plugins   []*Plugin
	Now       func() time.Time
}

// State is an immutable editor state.
type State struct {
	Doc       *Node
	Selection Selection
	Schema    *Schema

	plugins []*Plugin
	fields  map[string]any
	now     func() time.Time
}

// NewState creates a state, initialising plugin fields in order.
func NewState(cfg StateConfig) (*State, error) {
	if cfg.Schema == nil {
		return nil, errors.New("state requires a schema")
	}
	doc := cfg.Doc
	if doc == nil {
		var err error
		doc, err = EmptyDoc(cfg.Schema)
		if err != nil {
			return nil, err
		}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &State{
		Doc:       doc,
		Selection: cfg.Selection.clamp(doc.ContentSize()),
		Schema:    cfg.Schema,
		plugins:   cfg.Plugins,
		fields:    make(map[string]any, len(cfg.Plugins)),
		now:       now,
	}
	seen := make(map[string]bool, len(cfg.Plugins))
	for _, p := range cfg.Plugins {
		if seen[p.Key] {
			return nil, fmt.Errorf("duplicate plugin key %q", p.Key)
		}
		seen[p.Key] = true
		if p.State != nil && p.State.Init != nil {
			s.fields[p.Key] = p.State.Init(s)
		}
	}
	return s, nil
}

// EmptyDoc returns a doc holding one empty paragraph when the schema has
// paragraphs, otherwise an empty doc.
func EmptyDoc(schema *Schema) (*Node, error) {
	var content []*Node
	if schema.HasNode("paragraph") {
		p, err := schema.Node("paragraph", nil)
		if err != nil {
			return nil, err
		}
		content = append(content, p)
	}
	return schema.Node("doc", nil, content...)
}

// Tr starts a transaction from this state.
func (s *State) Tr() *Transaction {
	return &Transaction{
		Time:      s.now(),
		schema:    s.Schema,
		before:    s.Doc,
		doc:       s.Doc,
		selection: s.Selection,
	}
}

// Apply returns the state after tr.
func (s *State) Apply(tr *Transaction) *State {
	next := &State{
		Doc:       tr.doc,
		Selection: tr.selection,
		Schema:    s.Schema,
		plugins:   s.plugins,
		fields:    make(map[string]any, len(s.fields)),
		now:       s.now,
	}
	for _, p := range s.plugins {
		value, ok := s.fields[p.Key]
		if p.State != nil && p.State.Apply != nil {
			next.fields[p.Key] = p.State.Apply(tr, value, s, next)
		} else if ok {
			next.fields[p.Key] = value
		}
	}
	return next
}

// Plugins returns the plugins in order.
func (s *State) Plugins() []*Plugin { return append([]*Plugin(nil), s.plugins...) }

// PluginState returns the field value of the plugin with the given key.
func (s *State) PluginState(key string) any { return s.fields[key] }

// Decorations collects decorations from every plugin for view. A nil
// view collects them for all views.
func (s *State) Decorations(view View) *DecorationSet {
	var sets []*DecorationSet
	for _, p := range s.plugins {
		if p.Decorations == nil {
			continue
		}
		if set := p.Decorations(view, s); set != nil && set.Len() > 0 {
			sets = append(sets, set)
		}
	}
	return MergeDecorations(sets...)
}
