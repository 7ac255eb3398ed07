package history_test

import (
	"testing"
	"time"

	"github.com/dshills/loom/internal/extension/extensiontest"
	"github.com/dshills/loom/internal/extensions/history"
	"github.com/dshills/loom/internal/extensions/paragraph"
	"github.com/dshills/loom/internal/loop/looptest"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/manager/managertest"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

func setup(t *testing.T, opts option.Values) (*manager.Manager, *history.Extension, *looptest.Clock) {
	t.Helper()
	h, err := history.New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p, _ := paragraph.New(nil)
	m, clock := managertest.New(t, managertest.Doc("ab"), h, p)
	return m, h, clock
}

func typeText(t *testing.T, m *manager.Manager, text string, pos int) {
	t.Helper()
	tr := m.State().Tr()
	if err := tr.InsertText(text, pos); err != nil {
		t.Fatalf("InsertText() error = %v", err)
	}
	if err := m.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
}

func counts(t *testing.T, m *manager.Manager) history.Counts {
	t.Helper()
	c, ok := m.PluginState(history.Name).(history.Counts)
	if !ok {
		t.Fatalf("plugin state = %T, want history.Counts", m.PluginState(history.Name))
	}
	return c
}

func TestHistoryValid(t *testing.T) {
	e, err := history.New(option.Values{"depth": 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	extensiontest.Valid(t, e, history.Spec, option.Values{"depth": 5})
}

func TestUndoRedo(t *testing.T) {
	m, h, clock := setup(t, nil)
	var undone, redone int
	h.AddHandler(history.OnUndo, func(any) { undone++ })
	h.AddHandler(history.OnRedo, func(any) { redone++ })

	typeText(t, m, "x", 3)
	clock.Advance(100 * time.Millisecond)
	typeText(t, m, "y", 4)
	clock.Advance(time.Second)
	typeText(t, m, "z", 5)

	if got := m.State().Doc.TextContent(); got != "abxyz" {
		t.Fatalf("text = %q", got)
	}
	if c := counts(t, m); c.Undo != 2 || c.Redo != 0 {
		t.Errorf("counts = %+v, want 2 undo entries", c)
	}

	managertest.Run(t, m, "undo")
	if got := m.State().Doc.TextContent(); got != "abxy" {
		t.Errorf("text after undo = %q, want abxy", got)
	}
	managertest.Run(t, m, "undo")
	if got := m.State().Doc.TextContent(); got != "ab" {
		t.Errorf("text after second undo = %q, want the grouped edit undone", got)
	}
	if ok, _ := m.CanRun("undo"); ok {
		t.Error("CanRun(undo) = true with an empty stack")
	}

	managertest.Run(t, m, "redo")
	if got := m.State().Doc.TextContent(); got != "abxy" {
		t.Errorf("text after redo = %q, want abxy", got)
	}
	if c := counts(t, m); c.Undo != 1 || c.Redo != 1 {
		t.Errorf("counts = %+v, want 1 and 1", c)
	}
	if undone != 2 || redone != 1 {
		t.Errorf("handlers undo=%d redo=%d, want 2 and 1", undone, redone)
	}
}

func TestAddToHistoryFalse(t *testing.T) {
	m, _, _ := setup(t, nil)
	tr := m.State().Tr()
	if err := tr.InsertText("x", 1); err != nil {
		t.Fatal(err)
	}
	tr.SetMeta(history.MetaAddToHistory, false)
	if err := m.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if c := counts(t, m); c.Undo != 0 {
		t.Errorf("undo depth = %d, want 0", c.Undo)
	}
}

func TestSelectionOnlyNotRecorded(t *testing.T) {
	m, _, _ := setup(t, nil)
	if err := m.Dispatch(m.State().Tr().SetSelection(pm.Cursor(2))); err != nil {
		t.Fatal(err)
	}
	if c := counts(t, m); c.Undo != 0 {
		t.Errorf("undo depth = %d after a selection change, want 0", c.Undo)
	}
}

func TestSetOptionsReconfigures(t *testing.T) {
	m, h, clock := setup(t, nil)
	if err := h.SetOptions(option.Values{"newGroupDelay": 0, "depth": 1}); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	typeText(t, m, "x", 1)
	typeText(t, m, "y", 1)
	clock.Advance(time.Millisecond)
	typeText(t, m, "z", 1)
	if got := h.Stack().UndoDepth(); got != 1 {
		t.Errorf("UndoDepth() = %d, want depth capped at 1", got)
	}
}

func TestUndoKeymap(t *testing.T) {
	h, _ := history.New(nil)
	want := map[string]string{"Mod-z": "undo", "Mod-y": "redo", "Shift-Mod-z": "redo"}
	for chord, cmd := range want {
		if got := h.Keymap()[chord]; got != cmd {
			t.Errorf("Keymap()[%q] = %q, want %q", chord, got, cmd)
		}
	}
}
