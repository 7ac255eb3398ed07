// Package positioner computes anchored screen positions for floating UI.
//
// Consumers register a Binding under the "positionerHandler" custom
// handler key. Each element holds one binding; registering again for the
// same element replaces the earlier binding. Positions are recomputed
// whenever the view updates and OnChange is only called when the result
// differs from the last one reported.
package positioner

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// Name is the extension name.
const Name = "positioner"

// HandlerKey is the custom handler key for bindings.
const HandlerKey = "positionerHandler"

// Spec is the option spec.
var Spec = option.Spec{
	CustomHandlerKeys: []string{HandlerKey},
}

// Position is a computed anchor rectangle.
type Position struct {
	Active bool
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// Positioner computes a Position from a view.
type Positioner struct {
	Name    string
	Compute func(view pm.View, state *pm.State) Position
}

// Binding attaches an element to a positioner.
type Binding struct {
	Element    pm.Element
	Positioner Positioner
	OnChange   func(Position)
}

// Bubble is active while the selection is non-empty and spans it.
var Bubble = Positioner{Name: "bubble", Compute: func(view pm.View, state *pm.State) Position {
	sel := state.Selection
	if sel.Empty() {
		return Position{}
	}
	return span(view, sel.From(), sel.To())
}}

// Cursor is active while the selection is empty and sits at the cursor.
var Cursor = Positioner{Name: "cursor", Compute: func(view pm.View, state *pm.State) Position {
	sel := state.Selection
	if !sel.Empty() {
		return Position{}
	}
	return span(view, sel.Head, sel.Head)
}}

// Always is always active at the selection head.
var Always = Positioner{Name: "always", Compute: func(view pm.View, state *pm.State) Position {
	return span(view, state.Selection.Head, state.Selection.Head)
}}

var named = map[string]Positioner{
	Bubble.Name: Bubble,
	Cursor.Name: Cursor,
	Always.Name: Always,
}

// Lookup returns a named positioner.
func Lookup(name string) (Positioner, bool) {
	p, ok := named[name]
	return p, ok
}

func span(view pm.View, from, to int) Position {
	start, ok := view.CoordsAtPos(from)
	if !ok {
		return Position{}
	}
	end, ok := view.CoordsAtPos(to)
	if !ok {
		return Position{}
	}
	return Position{
		Active: true,
		Top:    min(start.Top, end.Top),
		Bottom: max(start.Bottom, end.Bottom),
		Left:   min(start.Left, end.Left),
		Right:  max(start.Right, end.Right),
	}
}

type tracked struct {
	binding Binding
	last    Position
	seen    bool
}

// Extension routes positioner bindings.
type Extension struct {
	*extension.Base

	mu    sync.Mutex
	slots map[pm.Element]string
	view  pm.View
}

// New creates the extension.
func New(opts option.Values) (*Extension, error) {
	e := &Extension{slots: make(map[pm.Element]string)}
	base, err := extension.NewBase(extension.Config{
		Name:               Name,
		Priority:           extension.PriorityDefault,
		Spec:               Spec,
		OnAddCustomHandler: e.addBinding,
	}, opts)
	if err != nil {
		return nil, err
	}
	e.Base = base
	return e, nil
}

func (e *Extension) addBinding(key string, value any) (*handler.Disposer, error) {
	var b Binding
	switch v := value.(type) {
	case Binding:
		b = v
	case *Binding:
		b = *v
	default:
		return nil, fmt.Errorf("%w: %s expects a positioner.Binding, got %T", handler.ErrInvalidExtensionHandler, key, value)
	}
	if b.Element == nil || b.Positioner.Compute == nil {
		return nil, fmt.Errorf("%w: %s binding needs an element and a positioner", handler.ErrInvalidExtensionHandler, key)
	}

	e.mu.Lock()
	slot, ok := e.slots[b.Element]
	if !ok {
		slot = uuid.NewString()
		e.slots[b.Element] = slot
	}
	view := e.view
	e.mu.Unlock()

	t := &tracked{binding: b}
	d, err := e.Slots().Set(key, slot, t, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if current, ok := e.Slots().Get(key, slot); !ok || current == t {
			delete(e.slots, b.Element)
		}
	})
	if err != nil {
		return nil, err
	}
	if view != nil {
		e.refresh(view, t)
	}
	return d, nil
}

// Bindings returns the number of bound elements.
func (e *Extension) Bindings() int {
	return e.Slots().Len(HandlerKey)
}

// CreatePlugin implements extension.PluginContributor.
func (e *Extension) CreatePlugin() *pm.Plugin {
	return &pm.Plugin{
		Key: Name,
		View: func(view pm.View) pm.PluginView {
			e.mu.Lock()
			e.view = view
			e.mu.Unlock()
			e.update(view)
			return pm.PluginView{
				Update: func(view pm.View, _ *pm.State) { e.update(view) },
				Destroy: func() {
					e.mu.Lock()
					if e.view == view {
						e.view = nil
					}
					e.mu.Unlock()
				},
			}
		},
	}
}

func (e *Extension) update(view pm.View) {
	for _, v := range e.Slots().Values(HandlerKey) {
		e.refresh(view, v.(*tracked))
	}
}

func (e *Extension) refresh(view pm.View, t *tracked) {
	state := view.State()
	if state == nil {
		return
	}
	pos := t.binding.Positioner.Compute(view, state)

	e.mu.Lock()
	changed := !t.seen || pos != t.last
	t.last, t.seen = pos, true
	e.mu.Unlock()

	if changed && t.binding.OnChange != nil {
		t.binding.OnChange(pos)
	}
}
