package extension_test

import (
	"errors"
	"testing"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/extension/extensiontest"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/option"
)

var testSpec = option.Spec{
	Defaults: option.Values{
		"color": "red",
		"width": 2,
	},
	HandlerKeys:       []string{"onChange"},
	CustomHandlerKeys: []string{"binding"},
	StaticKeys:        []string{"width"},
}

type recorder struct {
	changes []option.Change
}

func newTestBase(t *testing.T, opts option.Values) (*extension.Base, *recorder) {
	t.Helper()
	rec := &recorder{}
	b, err := extension.NewBase(extension.Config{
		Name:         "test",
		Priority:     extension.PriorityHigh,
		Spec:         testSpec,
		OnSetOptions: func(c option.Change) { rec.changes = append(rec.changes, c) },
	}, opts)
	if err != nil {
		t.Fatalf("NewBase() error = %v", err)
	}
	return b, rec
}

func TestNewBaseOptions(t *testing.T) {
	opts := option.Values{"color": "blue"}
	b, _ := newTestBase(t, opts)
	extensiontest.Valid(t, b, testSpec, opts)

	if b.Name() != "test" {
		t.Errorf("Name() = %q, want %q", b.Name(), "test")
	}
}

func TestNewBaseErrors(t *testing.T) {
	tests := []struct {
		name string
		opts option.Values
	}{
		{"unknown key", option.Values{"size": 3}},
		{"handler not a func", option.Values{"onChange": "nope"}},
		{"bad priority", option.Values{"priority": "first"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extension.NewBase(extension.Config{Name: "test", Spec: testSpec}, tt.opts)
			if !errors.Is(err, option.ErrInvalidExtensionOptions) {
				t.Errorf("NewBase() error = %v, want ErrInvalidExtensionOptions", err)
			}
		})
	}

	if _, err := extension.NewBase(extension.Config{}, nil); err == nil {
		t.Error("NewBase() without a name should fail")
	}
}

func TestPriorityOverride(t *testing.T) {
	b, _ := newTestBase(t, nil)
	if got := b.Priority(); got != extension.PriorityHigh {
		t.Errorf("Priority() = %v, want %v", got, extension.PriorityHigh)
	}

	b, _ = newTestBase(t, option.Values{"priority": 7})
	if got := b.Priority(); got != 7 {
		t.Errorf("Priority() = %v, want 7", got)
	}
}

func TestSetOptionsNotifiesChangedKeysOnly(t *testing.T) {
	b, rec := newTestBase(t, nil)

	if err := b.SetOptions(option.Values{"color": "red"}); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if len(rec.changes) != 0 {
		t.Fatalf("SetOptions() with no change notified %d times", len(rec.changes))
	}

	if err := b.SetOptions(option.Values{"color": "green", "exclude": map[string]any{}}); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if len(rec.changes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(rec.changes))
	}
	c := rec.changes[0]
	if len(c.Changed) != 1 || c.Changed["color"] != "green" || c.Previous["color"] != "red" {
		t.Errorf("Change = %+v, want only color red -> green", c)
	}
	if got := b.Options().String("color"); got != "green" {
		t.Errorf("color = %q, want green", got)
	}
}

func TestSetOptionsRejects(t *testing.T) {
	b, _ := newTestBase(t, nil)
	for _, update := range []option.Values{
		{"width": 3},
		{"onChange": handler.Func(func(any) {})},
		{"binding": 1},
		{"nope": true},
	} {
		if err := b.SetOptions(update); !errors.Is(err, option.ErrInvalidExtensionOptions) {
			t.Errorf("SetOptions(%v) error = %v, want ErrInvalidExtensionOptions", update, err)
		}
	}
}

func TestHandlers(t *testing.T) {
	var calls []string
	b, _ := newTestBase(t, option.Values{
		"onChange": func(p any) { calls = append(calls, "initial:"+p.(string)) },
	})

	d, err := b.AddHandler("onChange", func(p any) { calls = append(calls, "added:"+p.(string)) })
	if err != nil {
		t.Fatalf("AddHandler() error = %v", err)
	}

	b.Options()["onChange"].(handler.Func)("a")
	d.Dispose()
	b.Emit("onChange", "b")

	want := []string{"initial:a", "added:a", "initial:b"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}

	if _, err := b.AddHandler("onMissing", nil); !errors.Is(err, handler.ErrInvalidExtensionHandler) {
		t.Errorf("AddHandler(onMissing) error = %v, want ErrInvalidExtensionHandler", err)
	}
}

func TestAddCustomHandler(t *testing.T) {
	b, _ := newTestBase(t, nil)

	d1, err := b.AddCustomHandler("binding", "one")
	if err != nil {
		t.Fatalf("AddCustomHandler() error = %v", err)
	}
	if _, err := b.AddCustomHandler("binding", "two"); err != nil {
		t.Fatalf("AddCustomHandler() error = %v", err)
	}
	if got := b.Slots().Len("binding"); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	d1.Dispose()
	d1.Dispose()
	if got := b.Slots().Values("binding"); len(got) != 1 || got[0] != "two" {
		t.Errorf("Values() = %v, want [two]", got)
	}

	if _, err := b.AddCustomHandler("other", 1); !errors.Is(err, handler.ErrInvalidExtensionHandler) {
		t.Errorf("AddCustomHandler(other) error = %v, want ErrInvalidExtensionHandler", err)
	}
}

func TestApplyGlobals(t *testing.T) {
	b, rec := newTestBase(t, option.Values{"priority": 3})

	err := b.ApplyGlobals(option.Values{
		"exclude":  map[string]any{"keymap": true},
		"priority": 9,
		"color":    "black",
		"unknown":  1,
	})
	if err != nil {
		t.Fatalf("ApplyGlobals() error = %v", err)
	}
	if !b.Excluded("keymap") || b.Excluded("plugin") {
		t.Errorf("Excluded() mismatch, exclude = %v", b.Option("exclude"))
	}
	if got := b.Priority(); got != 3 {
		t.Errorf("Priority() = %v, want caller value 3", got)
	}
	if got := b.Options().String("color"); got != "red" {
		t.Errorf("color = %q, want extension default red", got)
	}
	if len(rec.changes) != 1 {
		t.Errorf("notifications = %d, want 1", len(rec.changes))
	}
}
