package binding

import (
	"sync"

	"github.com/dshills/loom/internal/extensions/positioner"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/pm"
)

// Positioned tracks one positioner for a component.
type Positioned struct {
	mu       sync.Mutex
	m        *manager.Manager
	pos      positioner.Positioner
	onChange func(positioner.Position)
	current  positioner.Position
	element  pm.Element
	disposer *handler.Disposer
}

// UsePositioner prepares a positioner binding. Nothing is tracked until an
// element is attached with Ref.
func UsePositioner(ctx *Context, pos positioner.Positioner, onChange func(positioner.Position)) (*Positioned, error) {
	m, err := ctx.get()
	if err != nil {
		return nil, err
	}
	return &Positioned{m: m, pos: pos, onChange: onChange}, nil
}

// Position returns the last computed position.
func (p *Positioned) Position() positioner.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Ref attaches el, replacing any earlier element. A nil el detaches.
func (p *Positioned) Ref(el pm.Element) error {
	p.mu.Lock()
	if el == p.element && (el == nil || p.disposer != nil) {
		p.mu.Unlock()
		return nil
	}
	old := p.disposer
	p.element, p.disposer = el, nil
	p.mu.Unlock()

	old.Dispose()
	if el == nil {
		return nil
	}

	d, err := p.m.AddCustomHandler(positioner.HandlerKey, positioner.Binding{
		Element:    el,
		Positioner: p.pos,
		OnChange:   p.update,
	})
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.disposer = d
	p.mu.Unlock()
	return nil
}

// Dispose detaches the element.
func (p *Positioned) Dispose() {
	_ = p.Ref(nil)
}

func (p *Positioned) update(pos positioner.Position) {
	p.mu.Lock()
	p.current = pos
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(pos)
	}
}
