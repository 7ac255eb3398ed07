package core_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/extensions/keymap"
	"github.com/dshills/loom/internal/extensions/paragraph"
	"github.com/dshills/loom/internal/extensions/positioner"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/manager/managertest"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
	"github.com/dshills/loom/internal/preset"
	"github.com/dshills/loom/internal/presets/core"
)

func TestDefaults(t *testing.T) {
	p, err := core.New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	opts := p.Options()
	for _, key := range []string{"content", "depth", "newGroupDelay", "indentAttribute", "indentLevels", "excludeBaseKeymap", "selectParentNodeOnEscape"} {
		if !opts.Has(key) {
			t.Errorf("Options() missing %q", key)
		}
	}
	if got := opts.String("content"); got != "block+" {
		t.Errorf("content = %q, want block+", got)
	}
}

func TestMembers(t *testing.T) {
	p, err := core.New(option.Values{"depth": 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var names []string
	for _, ext := range p.Extensions() {
		names = append(names, ext.Name())
	}
	want := []string{"history", "doc", "text", "paragraph", "positioner", "keymap"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}

	km, err := preset.Extension[*keymap.Extension](p)
	if err != nil {
		t.Fatalf("Extension[keymap] error = %v", err)
	}
	if km.Priority() != extension.PriorityLow {
		t.Errorf("keymap priority = %v, want Low", km.Priority())
	}
	for _, ext := range p.Extensions() {
		if ext.Name() == "history" && ext.Options().Int("depth") != 5 {
			t.Errorf("history depth = %v, want 5", ext.Options()["depth"])
		}
	}
}

func TestContentIsStatic(t *testing.T) {
	p, _ := core.New(nil)
	err := p.SetOptions(option.Values{"content": "paragraph"})
	if !errors.Is(err, option.ErrInvalidExtensionOptions) {
		t.Errorf("SetOptions(content) error = %v, want ErrInvalidExtensionOptions", err)
	}
}

func TestForwardsChangedOptions(t *testing.T) {
	p, _ := core.New(nil)
	para, _ := preset.Extension[*paragraph.Extension](p)
	km, _ := preset.Extension[*keymap.Extension](p)

	if err := p.SetOptions(option.Values{"indentLevels": []any{0, 2}, "excludeBaseKeymap": true}); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if diff := cmp.Diff([]any{0, 2}, para.Options()["indentLevels"]); diff != "" {
		t.Errorf("paragraph indentLevels mismatch (-want +got):\n%s", diff)
	}
	if !km.Options().Bool("excludeBaseKeymap") {
		t.Error("keymap excludeBaseKeymap not forwarded")
	}
	if km.Options().Has("indentLevels") {
		t.Error("paragraph option leaked into keymap")
	}
}

func TestNewManager(t *testing.T) {
	m, err := core.NewManager(nil, core.ManagerOptions{
		Core:     option.Values{"indentLevels": []any{0, 3}},
		Settings: manager.Settings{Logger: zaptest.NewLogger(t)},
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if err := m.Create(managertest.Doc("hello")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Destroy() })

	if _, err := manager.Preset[*core.Preset](m); err != nil {
		t.Errorf("Preset[core] error = %v", err)
	}
	commands := m.Commands()
	for _, name := range []string{"undo", "redo", "indentParagraph", "dedentParagraph"} {
		found := false
		for _, c := range commands {
			found = found || c == name
		}
		if !found {
			t.Errorf("Commands() = %v, missing %q", commands, name)
		}
	}

	view, err := m.NewView()
	if err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	managertest.Select(t, m, 3, 3)
	if !managertest.Key(t, m, view, pm.Event{Key: "Backspace"}) {
		t.Fatal("Backspace not handled")
	}
	if got := m.State().Doc.TextContent(); got != "hllo" {
		t.Errorf("text = %q, want hllo", got)
	}
	if !managertest.Run(t, m, "undo") {
		t.Fatal("undo returned false")
	}
	if got := m.State().Doc.TextContent(); got != "hello" {
		t.Errorf("text after undo = %q, want hello", got)
	}
}

func TestCustomHandlersRouted(t *testing.T) {
	p, _ := core.New(nil)
	m, _ := managertest.New(t, managertest.Doc("hello"), p)

	called := 0
	d, err := m.AddCustomHandler(keymap.HandlerKey, keymap.Bindings{
		"Mod-k": func(extension.CommandProps) bool {
			called++
			return true
		},
	})
	if err != nil {
		t.Fatalf("AddCustomHandler(keymap) error = %v", err)
	}
	view, _ := m.NewView()
	managertest.Key(t, m, view, pm.Event{Key: "k", Ctrl: true})
	d.Dispose()
	managertest.Key(t, m, view, pm.Event{Key: "k", Ctrl: true})
	if called != 1 {
		t.Errorf("custom keymap called %d times, want 1", called)
	}

	pos, _ := preset.Extension[*positioner.Extension](p)
	if _, err := m.AddCustomHandler(positioner.HandlerKey, positioner.Binding{
		Element:    pm.NewElement("div"),
		Positioner: positioner.Cursor,
		OnChange:   func(positioner.Position) {},
	}); err != nil {
		t.Fatalf("AddCustomHandler(positioner) error = %v", err)
	}
	if pos.Bindings() != 1 {
		t.Errorf("Bindings() = %d, want 1", pos.Bindings())
	}
}
