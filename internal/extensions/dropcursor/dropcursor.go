// Package dropcursor shows where dragged content will land.
//
// While something is dragged over the editor a widget decoration marks
// the drop target: an inline element inside textblocks, or a block
// element between nodes with the neighbouring nodes decorated. Browsers
// do not reliably deliver dragend and drop, so every event schedules a
// cleanup timer and only the latest timer is kept.
package dropcursor

import (
	"sync"
	"time"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/loop"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// Name is the extension name.
const Name = "dropCursor"

// Handler keys.
const (
	OnInit    = "onInit"
	OnDestroy = "onDestroy"
)

// Timing of the drop cursor.
const (
	ThrottleInterval = 50 * time.Millisecond
	RemovalDelay     = 100 * time.Millisecond
)

// Decoration keys.
const (
	InlineKey = "drop-cursor-inline"
	BlockKey  = "drop-cursor-block"
)

// Spec is the option spec.
var Spec = option.Spec{
	Defaults: option.Values{
		"color":                 "primary",
		"inlineWidth":           "2px",
		"inlineSpacing":         "10px",
		"blockWidth":            "100%",
		"blockHeight":           "10px",
		"blockClassName":        "remirror-drop-cursor-block",
		"beforeBlockClassName":  "remirror-drop-cursor-before-block",
		"afterBlockClassName":   "remirror-drop-cursor-after-block",
		"inlineClassName":       "remirror-drop-cursor-inline",
		"beforeInlineClassName": "remirror-drop-cursor-before-inline",
		"afterInlineClassName":  "remirror-drop-cursor-after-inline",
		"insertNodeType":        "image",
	},
	HandlerKeys: []string{OnInit, OnDestroy},
}

// InitEvent is the payload of onInit.
type InitEvent struct {
	BlockElement  pm.Element
	InlineElement pm.Element
	Extension     *Extension
}

// DestroyEvent is the payload of onDestroy.
type DestroyEvent struct {
	BlockElement  pm.Element
	InlineElement pm.Element
}

// Extension adds the drop cursor plugin. Every attached view gets its
// own State.
type Extension struct {
	*extension.Base

	mu        sync.Mutex
	scheduler loop.Scheduler
	states    map[pm.View]*State
	views     []pm.View
}

// New creates the extension.
func New(opts option.Values) (*Extension, error) {
	base, err := extension.NewBase(extension.Config{
		Name:     Name,
		Priority: extension.PriorityDefault,
		Spec:     Spec,
	}, opts)
	if err != nil {
		return nil, err
	}
	if _, err := resolveColor(base.Options().String("color")); err != nil {
		return nil, err
	}
	return &Extension{
		Base:      base,
		scheduler: loop.Wall{},
		states:    make(map[pm.View]*State),
	}, nil
}

// OnCreate implements extension.Initializer.
func (e *Extension) OnCreate(store extension.Store) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduler = store.Scheduler()
	return nil
}

// State returns the drop cursor state of view, or nil when view is not
// attached.
func (e *Extension) State(view pm.View) *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[view]
}

// IsDragging reports whether anything is being dragged over any view.
func (e *Extension) IsDragging() bool {
	e.mu.Lock()
	states := make([]*State, 0, len(e.views))
	for _, v := range e.views {
		states = append(states, e.states[v])
	}
	e.mu.Unlock()
	for _, s := range states {
		if s.IsDragging() {
			return true
		}
	}
	return false
}

func (e *Extension) attach(view pm.View) *State {
	e.mu.Lock()
	s := newState(e, e.scheduler, view)
	e.states[view] = s
	e.views = append(e.views, view)
	e.mu.Unlock()

	s.init()
	return s
}

func (e *Extension) detach(view pm.View, s *State) {
	e.mu.Lock()
	if e.states[view] == s {
		delete(e.states, view)
		for i, v := range e.views {
			if v == view {
				e.views = append(e.views[:i], e.views[i+1:]...)
				break
			}
		}
	}
	e.mu.Unlock()

	s.destroy()
}

// decorations returns the set drawn in view, or the sets of every view
// when view is nil.
func (e *Extension) decorations(view pm.View) *pm.DecorationSet {
	if view != nil {
		if s := e.State(view); s != nil {
			return s.Decorations()
		}
		return pm.EmptyDecorations
	}
	e.mu.Lock()
	sets := make([]*pm.DecorationSet, 0, len(e.views))
	for _, v := range e.views {
		sets = append(sets, e.states[v].Decorations())
	}
	e.mu.Unlock()
	return pm.MergeDecorations(sets...)
}

// CreatePlugin implements extension.PluginContributor.
func (e *Extension) CreatePlugin() *pm.Plugin {
	consume := func(fn func(*State, *pm.Event)) pm.DOMEventHandler {
		return func(view pm.View, event *pm.Event) bool {
			if s := e.State(view); s != nil {
				fn(s, event)
			}
			return false
		}
	}

	return &pm.Plugin{
		Key:         Name,
		Decorations: func(view pm.View, _ *pm.State) *pm.DecorationSet { return e.decorations(view) },
		DOMEvents: map[string]pm.DOMEventHandler{
			"dragover":  consume((*State).Dragover),
			"dragend":   consume(func(s *State, _ *pm.Event) { s.Dragend() }),
			"drop":      consume(func(s *State, _ *pm.Event) { s.Drop() }),
			"dragleave": consume((*State).Dragleave),
		},
		View: func(view pm.View) pm.PluginView {
			s := e.attach(view)
			return pm.PluginView{Destroy: func() { e.detach(view, s) }}
		},
	}
}
