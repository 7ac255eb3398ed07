// Package managertest builds managers for extension tests.
package managertest

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/dshills/loom/internal/loop/looptest"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/pm"
)

// Doc returns a document of paragraphs holding the given texts, in
// ProseMirror JSON form. An empty text gives an empty paragraph.
func Doc(texts ...string) map[string]any {
	content := make([]any, 0, len(texts))
	for _, text := range texts {
		p := map[string]any{"type": "paragraph"}
		if text != "" {
			p["content"] = []any{map[string]any{"type": "text", "text": text}}
		}
		content = append(content, p)
	}
	return map[string]any{"type": "doc", "content": content}
}

// New creates a manager on a manual clock, creates it with content, and
// destroys it when the test ends.
func New(t testing.TB, content any, combined ...manager.Combined) (*manager.Manager, *looptest.Clock) {
	t.Helper()
	clock := looptest.NewClock()
	m, err := manager.New(combined, manager.Settings{
		Logger:    zaptest.NewLogger(t),
		Scheduler: clock,
	})
	if err != nil {
		t.Fatalf("manager.New() error = %v", err)
	}
	if err := m.Create(content); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Destroy() })
	return m, clock
}

// Select dispatches a selection change.
func Select(t testing.TB, m *manager.Manager, anchor, head int) {
	t.Helper()
	tr := m.State().Tr().SetSelection(pm.Selection{Anchor: anchor, Head: head})
	if err := m.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch(selection) error = %v", err)
	}
}

// Run runs a command and fails the test on error.
func Run(t testing.TB, m *manager.Manager, name string, args ...any) bool {
	t.Helper()
	ok, err := m.RunCommand(name, args...)
	if err != nil {
		t.Fatalf("RunCommand(%q) error = %v", name, err)
	}
	return ok
}

// Key offers a keydown event to the plugins.
func Key(t testing.TB, m *manager.Manager, view pm.View, event pm.Event) bool {
	t.Helper()
	event.Type = "keydown"
	handled, err := m.HandleDOMEvent(view, &event)
	if err != nil {
		t.Fatalf("HandleDOMEvent(%q) error = %v", event.Key, err)
	}
	return handled
}
