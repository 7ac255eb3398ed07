package keymap_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/extension/extensiontest"
	"github.com/dshills/loom/internal/extensions/bold"
	"github.com/dshills/loom/internal/extensions/keymap"
	"github.com/dshills/loom/internal/extensions/paragraph"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/manager/managertest"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		in   string
		want keymap.Chord
	}{
		{"a", keymap.Chord{Key: "a"}},
		{"Mod-b", keymap.Chord{Key: "b", Mod: true}},
		{"Shift-Mod-z", keymap.Chord{Key: "z", Shift: true, Mod: true}},
		{"Ctrl-Alt-Delete", keymap.Chord{Key: "Delete", Ctrl: true, Alt: true}},
		{"Cmd-Enter", keymap.Chord{Key: "Enter", Meta: true}},
		{"Mod--", keymap.Chord{Key: "-", Mod: true}},
		{"Esc", keymap.Chord{Key: "Escape"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, keymap.ParseChord(tt.in)); diff != "" {
				t.Errorf("ParseChord(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestChordMatches(t *testing.T) {
	mod := keymap.ParseChord("Mod-b")
	tests := []struct {
		name  string
		event pm.Event
		want  bool
	}{
		{"ctrl", pm.Event{Key: "b", Ctrl: true}, true},
		{"meta", pm.Event{Key: "B", Meta: true}, true},
		{"both", pm.Event{Key: "b", Ctrl: true, Meta: true}, false},
		{"none", pm.Event{Key: "b"}, false},
		{"shifted", pm.Event{Key: "b", Ctrl: true, Shift: true}, false},
		{"other key", pm.Event{Key: "i", Ctrl: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mod.Matches(&tt.event); got != tt.want {
				t.Errorf("Matches(%+v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestKeymapValid(t *testing.T) {
	e, err := keymap.New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	extensiontest.Valid(t, e, keymap.Spec, nil)
}

func TestDefaultBindingMethodType(t *testing.T) {
	_, err := keymap.New(option.Values{"defaultBindingMethod": "nope"})
	if !errors.Is(err, option.ErrInvalidExtensionOptions) {
		t.Errorf("New() error = %v, want ErrInvalidExtensionOptions", err)
	}
}

func setup(t *testing.T, opts option.Values) (*manager.Manager, *keymap.Extension, pm.View) {
	t.Helper()
	km, err := keymap.New(opts)
	if err != nil {
		t.Fatalf("keymap.New() error = %v", err)
	}
	b, _ := bold.New(nil)
	p, _ := paragraph.New(nil)
	m, _ := managertest.New(t, managertest.Doc("hello"), km, b, p)
	view, err := m.NewView()
	if err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	return m, km, view
}

func TestContributorBinding(t *testing.T) {
	m, _, view := setup(t, nil)
	managertest.Select(t, m, 1, 6)

	if !managertest.Key(t, m, view, pm.Event{Key: "b", Ctrl: true}) {
		t.Fatal("Mod-b not handled")
	}
	if !extension.MarkActive(m.State(), "bold", 1, 6) {
		t.Errorf("doc = %s, want bold text", m.State().Doc)
	}
}

func TestBaseKeymapBackspace(t *testing.T) {
	m, _, view := setup(t, nil)
	managertest.Select(t, m, 3, 3)

	if !managertest.Key(t, m, view, pm.Event{Key: "Backspace"}) {
		t.Fatal("Backspace not handled")
	}
	if got := m.State().Doc.TextContent(); got != "hllo" {
		t.Errorf("text = %q, want %q", got, "hllo")
	}
}

func TestExcludeBaseKeymap(t *testing.T) {
	m, _, view := setup(t, option.Values{"excludeBaseKeymap": true})
	managertest.Select(t, m, 3, 3)

	if managertest.Key(t, m, view, pm.Event{Key: "Backspace"}) {
		t.Error("Backspace handled with the base keymap excluded")
	}
}

func TestSelectParentNodeOnEscape(t *testing.T) {
	m, km, view := setup(t, nil)
	managertest.Select(t, m, 3, 3)
	if managertest.Key(t, m, view, pm.Event{Key: "Escape"}) {
		t.Fatal("Escape handled with selectParentNodeOnEscape off")
	}

	if err := km.SetOptions(option.Values{"selectParentNodeOnEscape": true}); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if !managertest.Key(t, m, view, pm.Event{Key: "Esc"}) {
		t.Fatal("Escape not handled")
	}
	if got, want := m.State().Selection, (pm.Selection{Anchor: 1, Head: 6}); got != want {
		t.Errorf("selection = %+v, want %+v", got, want)
	}
}

func TestCustomKeymapsNewestFirst(t *testing.T) {
	m, _, view := setup(t, nil)
	var calls []string
	bind := func(name string) keymap.Bindings {
		return keymap.Bindings{"Mod-b": func(extension.CommandProps) bool {
			calls = append(calls, name)
			return true
		}}
	}

	first, err := m.AddCustomHandler(keymap.HandlerKey, bind("first"))
	if err != nil {
		t.Fatalf("AddCustomHandler() error = %v", err)
	}
	second, _ := m.AddCustomHandler(keymap.HandlerKey, bind("second"))

	managertest.Key(t, m, view, pm.Event{Key: "b", Meta: true})
	second.Dispose()
	managertest.Key(t, m, view, pm.Event{Key: "b", Meta: true})
	first.Dispose()
	managertest.Select(t, m, 1, 3)
	managertest.Key(t, m, view, pm.Event{Key: "b", Meta: true})

	if diff := cmp.Diff([]string{"second", "first"}, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if !extension.MarkActive(m.State(), "bold", 1, 3) {
		t.Error("contributor binding not used once custom keymaps were disposed")
	}
}

func TestCustomKeymapRejectsOtherValues(t *testing.T) {
	m, _, _ := setup(t, nil)
	if _, err := m.AddCustomHandler(keymap.HandlerKey, "Mod-b"); !errors.Is(err, handler.ErrInvalidExtensionHandler) {
		t.Errorf("AddCustomHandler() error = %v, want ErrInvalidExtensionHandler", err)
	}
}

func TestDefaultBindingMethod(t *testing.T) {
	var got []string
	m, _, view := setup(t, option.Values{
		"defaultBindingMethod": func(e *pm.Event) bool {
			got = append(got, e.Key)
			return true
		},
	})
	if !managertest.Key(t, m, view, pm.Event{Key: "q"}) {
		t.Error("unbound key not passed to defaultBindingMethod")
	}
	if diff := cmp.Diff([]string{"q"}, got); diff != "" {
		t.Errorf("default calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteGraphemeCluster(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor int
		key    string
		want   string
	}{
		{"combining mark", "ae\u0301b", 4, "Backspace", "ab"},
		{"flag", "x\U0001F1EB\U0001F1F7", 4, "Backspace", "x"},
		{"forward", "e\u0301z", 1, "Delete", "z"},
		{"plain", "abc", 2, "Delete", "ac"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km, _ := keymap.New(nil)
			p, _ := paragraph.New(nil)
			m, _ := managertest.New(t, managertest.Doc(tt.text), km, p)
			view, err := m.NewView()
			if err != nil {
				t.Fatal(err)
			}
			managertest.Select(t, m, tt.cursor, tt.cursor)
			if !managertest.Key(t, m, view, pm.Event{Key: tt.key}) {
				t.Fatalf("%s not handled", tt.key)
			}
			if got := m.State().Doc.TextContent(); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}
