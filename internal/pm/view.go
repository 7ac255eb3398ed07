package pm

import (
	"slices"
	"sync"
)

// Element is the part of a DOM element the core touches.
type Element interface {
	Tag() string
	AddClass(class string)
	HasClass(class string) bool
	Classes() []string
	Contains(other Element) bool
}

// BasicElement is an in-memory Element.
type BasicElement struct {
	mu       sync.Mutex
	tag      string
	classes  []string
	children []Element
}

// NewElement creates an element with the given tag.
func NewElement(tag string) *BasicElement {
	return &BasicElement{tag: tag}
}

// Tag returns the element tag.
func (e *BasicElement) Tag() string { return e.tag }

// AddClass adds a class once.
func (e *BasicElement) AddClass(class string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !slices.Contains(e.classes, class) {
		e.classes = append(e.classes, class)
	}
}

// HasClass reports whether the class is present.
func (e *BasicElement) HasClass(class string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Contains(e.classes, class)
}

// Classes returns the classes in insertion order.
func (e *BasicElement) Classes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.classes...)
}

// Append adds a child element.
func (e *BasicElement) Append(child Element) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children = append(e.children, child)
}

// Contains reports whether other is e or one of its descendants.
func (e *BasicElement) Contains(other Element) bool {
	if other == nil {
		return false
	}
	if Element(e) == other {
		return true
	}
	e.mu.Lock()
	children := append([]Element(nil), e.children...)
	e.mu.Unlock()
	for _, c := range children {
		if c == other || c.Contains(other) {
			return true
		}
	}
	return false
}

// Event is a DOM event as seen by plugins.
type Event struct {
	Type          string
	ClientX       float64
	ClientY       float64
	Key           string
	Shift         bool
	Ctrl          bool
	Alt           bool
	Meta          bool
	Target        Element
	RelatedTarget Element

	prevented bool
}

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Rect is a screen rectangle.
type Rect struct {
	Left, Right, Top, Bottom float64
}

// Slice is dragged or pasted content.
type Slice struct {
	Content   []*Node
	OpenStart int
	OpenEnd   int
}

// Dragging describes an in-progress drag started inside the editor.
type Dragging struct {
	Slice *Slice
	Move  bool
}

// View is the rendering surface the core drives. Positions are document
// positions; coordinates are client coordinates.
type View interface {
	State() *State
	UpdateState(state *State)
	Dispatch(tr *Transaction)
	DOM() Element
	Editable() bool
	PosAtCoords(left, top float64) (int, bool)
	CoordsAtPos(pos int) (Rect, bool)
	Dragging() *Dragging
	DropPoint(pos int, slice *Slice) (int, bool)
	InsertPoint(pos int, nodeType string) (int, bool)
	CreateElement(tag string) Element
}

// HeadlessView is a View without layout. The x coordinate maps directly to
// a document position and every line is LineHeight tall.
type HeadlessView struct {
	LineHeight float64

	mu       sync.Mutex
	state    *State
	dom      *BasicElement
	dispatch func(tr *Transaction)
	dragging *Dragging
	editable bool
}

var _ View = (*HeadlessView)(nil)

// NewHeadlessView creates a view. When dispatch is nil transactions are
// applied to the view's own state.
func NewHeadlessView(state *State, dispatch func(tr *Transaction)) *HeadlessView {
	return &HeadlessView{
		LineHeight: 16,
		state:      state,
		dom:        NewElement("div"),
		dispatch:   dispatch,
		editable:   true,
	}
}

// State returns the current state.
func (v *HeadlessView) State() *State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// UpdateState replaces the state.
func (v *HeadlessView) UpdateState(state *State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
}

// Dispatch sends a transaction.
func (v *HeadlessView) Dispatch(tr *Transaction) {
	if v.dispatch != nil {
		v.dispatch(tr)
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = v.state.Apply(tr)
}

// DOM returns the editor element.
func (v *HeadlessView) DOM() Element { return v.dom }

// Root returns the editor element as a BasicElement.
func (v *HeadlessView) Root() *BasicElement { return v.dom }

// Editable reports whether the view accepts input.
func (v *HeadlessView) Editable() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.editable
}

// SetEditable toggles input.
func (v *HeadlessView) SetEditable(editable bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editable = editable
}

// PosAtCoords maps left directly to a position clamped to the document.
// Coordinates above the editor miss.
func (v *HeadlessView) PosAtCoords(left, top float64) (int, bool) {
	if top < 0 || left < 0 {
		return 0, false
	}
	size := v.State().Doc.ContentSize()
	return min(int(left), size), true
}

// CoordsAtPos returns a zero-width rectangle at x == pos.
func (v *HeadlessView) CoordsAtPos(pos int) (Rect, bool) {
	if pos < 0 || pos > v.State().Doc.ContentSize() {
		return Rect{}, false
	}
	x := float64(pos)
	return Rect{Left: x, Right: x, Top: 0, Bottom: v.LineHeight}, true
}

// Dragging returns the in-progress drag, if any.
func (v *HeadlessView) Dragging() *Dragging {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dragging
}

// SetDragging sets or clears the in-progress drag.
func (v *HeadlessView) SetDragging(d *Dragging) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dragging = d
}

// DropPoint accepts any position inside the document.
func (v *HeadlessView) DropPoint(pos int, _ *Slice) (int, bool) {
	if pos < 0 || pos > v.State().Doc.ContentSize() {
		return 0, false
	}
	return pos, true
}

// InsertPoint returns pos when a node of nodeType could sit there: inline
// types inside textblocks, block types between blocks.
func (v *HeadlessView) InsertPoint(pos int, nodeType string) (int, bool) {
	state := v.State()
	t, ok := state.Schema.NodeType(nodeType)
	if !ok {
		return 0, false
	}
	r, err := state.Doc.Resolve(pos)
	if err != nil {
		return 0, false
	}
	if r.Parent().Type.InlineContent == t.Inline {
		return pos, true
	}
	return 0, false
}

// CreateElement creates a detached element.
func (v *HeadlessView) CreateElement(tag string) Element {
	return NewElement(tag)
}
