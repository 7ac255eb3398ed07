package manager

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/pm"
)

// attachedView is a view with the plugin views created for it.
type attachedView struct {
	view        pm.View
	pluginViews []pm.PluginView
}

func (a *attachedView) update(prev *pm.State) {
	for _, pv := range a.pluginViews {
		if pv.Update != nil {
			pv.Update(a.view, prev)
		}
	}
}

// destroy tears plugin views down, last plugin first.
func (a *attachedView) destroy() {
	for i := len(a.pluginViews) - 1; i >= 0; i-- {
		if d := a.pluginViews[i].Destroy; d != nil {
			d()
		}
	}
	a.pluginViews = nil
}

// Dispatch applies a transaction. Transactions are applied one at a
// time: a Dispatch made while another is running, for example from a
// change handler, is queued and applied after it. Attached views are
// updated and the change handler fires after each transaction.
func (m *Manager) Dispatch(tr *pm.Transaction) error {
	m.mu.Lock()
	if err := m.usable(); err != nil {
		m.mu.Unlock()
		return err
	}
	if tr.Before() != m.state.Doc && !m.dispatching {
		m.mu.Unlock()
		return ErrStaleTransaction
	}
	m.queue = append(m.queue, tr)
	if m.dispatching {
		m.mu.Unlock()
		return nil
	}
	m.dispatching = true
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.queue) == 0 || m.phase != PhaseActive {
			m.queue = nil
			m.dispatching = false
			m.mu.Unlock()
			return nil
		}
		next := m.queue[0]
		m.queue = m.queue[1:]
		prev := m.state
		if next.Before() != prev.Doc {
			m.mu.Unlock()
			m.logger.Warn("dropping stale queued transaction", zap.Int("steps", len(next.Steps())))
			continue
		}
		state := prev.Apply(next)
		m.state = state
		views := append([]*attachedView(nil), m.views...)
		m.mu.Unlock()

		for _, v := range views {
			v.view.UpdateState(state)
			v.update(prev)
		}
		m.handlers.Dispatch(HandlerChange, ChangeEvent{Transaction: next, Previous: prev, State: state})
	}
}

// AttachView connects a view: it receives the current state, gets one
// plugin view per plugin, and is updated after every transaction. The
// Disposer detaches it.
func (m *Manager) AttachView(view pm.View) (*handler.Disposer, error) {
	m.mu.Lock()
	if err := m.usable(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	state := m.state
	plugins := m.plugins
	m.mu.Unlock()

	view.UpdateState(state)
	av := &attachedView{view: view}
	for _, p := range plugins {
		if p.View != nil {
			av.pluginViews = append(av.pluginViews, p.View(view))
		}
	}

	m.mu.Lock()
	if m.phase == PhaseDestroyed {
		m.mu.Unlock()
		av.destroy()
		return nil, ErrManagerDestroyed
	}
	m.views = append(m.views, av)
	m.mu.Unlock()

	return handler.NewDisposer(func() {
		m.mu.Lock()
		found := false
		for i, v := range m.views {
			if v == av {
				m.views = append(m.views[:i], m.views[i+1:]...)
				found = true
				break
			}
		}
		m.mu.Unlock()
		if found {
			av.destroy()
		}
	}), nil
}

// NewView creates and attaches a headless view that dispatches through
// the manager.
func (m *Manager) NewView() (*pm.HeadlessView, error) {
	state := m.State()
	if state == nil {
		if m.Phase() == PhaseDestroyed {
			return nil, ErrManagerDestroyed
		}
		return nil, ErrNotCreated
	}
	view := pm.NewHeadlessView(state, func(tr *pm.Transaction) {
		if err := m.Dispatch(tr); err != nil {
			m.logger.Warn("view dispatch failed", zap.Error(err))
		}
	})
	if _, err := m.AttachView(view); err != nil {
		return nil, err
	}
	return view, nil
}

// HandleDOMEvent offers an event to each plugin in priority order and
// stops at the first that consumes it.
func (m *Manager) HandleDOMEvent(view pm.View, event *pm.Event) (bool, error) {
	m.mu.RLock()
	if err := m.usable(); err != nil {
		m.mu.RUnlock()
		return false, err
	}
	plugins := m.plugins
	m.mu.RUnlock()

	for _, p := range plugins {
		h := p.DOMEvents[event.Type]
		if h != nil && h(view, event) {
			return true, nil
		}
	}
	return false, nil
}

// Decorations returns the decorations of every plugin across all views,
// layered in priority order.
func (m *Manager) Decorations() (*pm.DecorationSet, error) {
	return m.ViewDecorations(nil)
}

// ViewDecorations returns the decorations drawn in one view.
func (m *Manager) ViewDecorations(view pm.View) (*pm.DecorationSet, error) {
	state := m.State()
	if err := m.checkPhase(); err != nil {
		return nil, err
	}
	return state.Decorations(view), nil
}

// Commands returns the registered command names, sorted. It returns nil
// once the manager is destroyed.
func (m *Manager) Commands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.retired() {
		return nil
	}
	names := make([]string, 0, len(m.commands))
	for name := range m.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunCommand runs a command against the current state and dispatches its
// transaction.
func (m *Manager) RunCommand(name string, args ...any) (bool, error) {
	return m.runCommand(name, true, args)
}

// CanRun reports whether a command would apply, without dispatching.
func (m *Manager) CanRun(name string, args ...any) (bool, error) {
	return m.runCommand(name, false, args)
}

func (m *Manager) runCommand(name string, dispatch bool, args []any) (bool, error) {
	m.mu.RLock()
	if err := m.usable(); err != nil {
		m.mu.RUnlock()
		return false, err
	}
	cmd, ok := m.commands[name]
	state := m.state
	var view pm.View
	if len(m.views) > 0 {
		view = m.views[0].view
	}
	m.mu.RUnlock()

	if !ok {
		return false, fmt.Errorf("%w: %q", ErrCommandNotFound, name)
	}

	props := extension.CommandProps{State: state, View: view, Args: args}
	var dispatchErr error
	if dispatch {
		props.Dispatch = func(tr *pm.Transaction) {
			if err := m.Dispatch(tr); err != nil && dispatchErr == nil {
				dispatchErr = err
			}
		}
	}
	applied := cmd(props)
	if dispatchErr != nil {
		return false, fmt.Errorf("command %q: %w", name, dispatchErr)
	}
	return applied, nil
}
