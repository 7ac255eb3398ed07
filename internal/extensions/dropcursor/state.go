package dropcursor

import (
	"sync"

	"github.com/dshills/loom/internal/loop"
	"github.com/dshills/loom/internal/pm"
)

// State is the per-view drop cursor state. It is Idle when it has no
// target and Targeting otherwise.
type State struct {
	mu sync.Mutex

	ext       *Extension
	scheduler loop.Scheduler
	view      pm.View

	blockElement  pm.Element
	inlineElement pm.Element

	decorations *pm.DecorationSet
	target      int
	hasTarget   bool
	timer       loop.Timer
	generation  int
	destroyed   bool

	dragover func(any)
}

func newState(ext *Extension, scheduler loop.Scheduler, view pm.View) *State {
	s := &State{
		ext:         ext,
		scheduler:   scheduler,
		view:        view,
		decorations: pm.EmptyDecorations,
	}
	s.dragover = loop.Throttle(scheduler, ThrottleInterval, func(v any) {
		s.evaluate(v.(*pm.Event))
	})
	return s
}

func (s *State) init() {
	opts := s.ext.Options()

	s.mu.Lock()
	s.blockElement = s.view.CreateElement("div")
	s.inlineElement = s.view.CreateElement("span")
	s.blockElement.AddClass(opts.String("blockClassName"))
	s.inlineElement.AddClass(opts.String("inlineClassName"))
	event := InitEvent{BlockElement: s.blockElement, InlineElement: s.inlineElement, Extension: s.ext}
	s.mu.Unlock()

	s.ext.Emit(OnInit, event)
}

// destroy cancels any pending cleanup and notifies onDestroy.
func (s *State) destroy() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.destroyed = true
	s.view = nil
	event := DestroyEvent{BlockElement: s.blockElement, InlineElement: s.inlineElement}
	s.mu.Unlock()

	s.ext.Emit(OnDestroy, event)
}

// Decorations returns the active decoration set.
func (s *State) Decorations() *pm.DecorationSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decorations
}

// Target returns the cached drop target.
func (s *State) Target() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.hasTarget
}

// Elements returns the block and inline cursor elements.
func (s *State) Elements() (block, inline pm.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockElement, s.inlineElement
}

// IsDragging reports whether the view has a drag in progress or a drop
// target is showing.
func (s *State) IsDragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil && s.view.Dragging() != nil {
		return true
	}
	return s.decorations != pm.EmptyDecorations || s.hasTarget
}

// Dragover handles a dragover event. Calls within ThrottleInterval of the
// last evaluated one are dropped.
func (s *State) Dragover(event *pm.Event) {
	s.dragover(event)
}

// Dragend schedules cleanup.
func (s *State) Dragend() {
	s.scheduleRemoval()
}

// Drop schedules cleanup.
func (s *State) Drop() {
	s.scheduleRemoval()
}

// Dragleave schedules cleanup when the pointer leaves the editor itself,
// not when it moves between elements inside it.
func (s *State) Dragleave(event *pm.Event) {
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()
	if view == nil {
		return
	}
	dom := view.DOM()
	if event.Target == dom || !dom.Contains(event.RelatedTarget) {
		s.scheduleRemoval()
	}
}

// evaluate computes the target under the pointer.
func (s *State) evaluate(event *pm.Event) {
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()
	if view == nil {
		return
	}

	pos, ok := view.PosAtCoords(event.ClientX, event.ClientY)
	if !ok {
		return
	}

	target := pos
	if d := view.Dragging(); d != nil && d.Slice != nil {
		if p, ok := view.DropPoint(pos, d.Slice); ok {
			target = p
		}
	} else if p, ok := view.InsertPoint(pos, s.ext.Options().String("insertNodeType")); ok {
		target = p
	}

	s.mu.Lock()
	same := s.hasTarget && s.target == target
	if !same {
		s.target, s.hasTarget = target, true
	}
	s.mu.Unlock()

	if !same {
		s.updateDecorations(view)
	}
	s.scheduleRemoval()
}

// scheduleRemoval replaces any pending cleanup with one RemovalDelay from
// now.
func (s *State) scheduleRemoval() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	s.timer = s.scheduler.AfterFunc(RemovalDelay, func() { s.remove(gen) })
}

// remove clears the target and decorations, then dispatches an empty
// transaction so the view redraws without them.
func (s *State) remove(gen int) {
	s.mu.Lock()
	if s.generation != gen || s.destroyed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.hasTarget = false
	s.target = 0
	s.decorations = pm.EmptyDecorations
	view := s.view
	s.mu.Unlock()

	if view != nil {
		view.Dispatch(view.State().Tr())
	}
}

func (s *State) updateDecorations(view pm.View) {
	state := view.State()
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()

	r, err := state.Doc.Resolve(target)
	if err != nil {
		return
	}

	var decos []pm.Decoration
	if r.Parent().Type.InlineContent {
		decos = s.inlineDecorations(r)
	} else {
		decos = s.blockDecorations(r)
	}

	s.mu.Lock()
	s.decorations = pm.CreateDecorations(decos...)
	s.mu.Unlock()

	view.Dispatch(state.Tr())
}

func (s *State) inlineDecorations(r *pm.ResolvedPos) []pm.Decoration {
	return []pm.Decoration{pm.Widget(r.Pos, s.inlineElement, InlineKey)}
}

func (s *State) blockDecorations(r *pm.ResolvedPos) []pm.Decoration {
	opts := s.ext.Options()
	decos := []pm.Decoration{pm.Widget(r.Pos, s.blockElement, BlockKey)}
	if before, ok := r.RangeBefore(); ok {
		decos = append(decos, pm.NodeDeco(before.Pos, before.End, map[string]string{"class": opts.String("beforeBlockClassName")}))
	}
	if after, ok := r.RangeAfter(); ok {
		decos = append(decos, pm.NodeDeco(after.Pos, after.End, map[string]string{"class": opts.String("afterBlockClassName")}))
	}
	return decos
}
