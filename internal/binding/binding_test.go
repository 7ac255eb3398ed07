package binding_test

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/dshills/loom/internal/binding"
	"github.com/dshills/loom/internal/extensions/bold"
	"github.com/dshills/loom/internal/extensions/paragraph"
	"github.com/dshills/loom/internal/extensions/positioner"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/manager/managertest"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
	"github.com/dshills/loom/internal/presets/formatting"
)

func newManager(t *testing.T) *manager.Manager {
	t.Helper()
	p, _ := paragraph.New(nil)
	f, _ := formatting.New(nil)
	m, _ := managertest.New(t, managertest.Doc("hello"), p, f)
	return m
}

func TestMissingProviderContext(t *testing.T) {
	if _, _, err := binding.Use(nil, nil); !errors.Is(err, binding.ErrMissingProviderContext) {
		t.Errorf("Use(nil) error = %v, want ErrMissingProviderContext", err)
	}
	if _, _, err := binding.UseExtension[*bold.Extension](binding.Provide(nil), nil, nil); !errors.Is(err, binding.ErrMissingProviderContext) {
		t.Errorf("UseExtension() error = %v, want ErrMissingProviderContext", err)
	}
	if _, err := binding.UsePositioner(nil, positioner.Cursor, nil); !errors.Is(err, binding.ErrMissingProviderContext) {
		t.Errorf("UsePositioner() error = %v, want ErrMissingProviderContext", err)
	}
}

func TestUseSubscribesToChanges(t *testing.T) {
	m := newManager(t)
	ctx := binding.Provide(m)

	var changes int
	got, d, err := binding.Use(ctx, func(manager.ChangeEvent) { changes++ })
	if err != nil {
		t.Fatalf("Use() error = %v", err)
	}
	if got != m {
		t.Error("Use() returned a different manager")
	}
	managertest.Select(t, m, 2, 2)
	d.Dispose()
	managertest.Select(t, m, 3, 3)
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}
}

func TestUseExtension(t *testing.T) {
	m := newManager(t)
	ctx := binding.Provide(m)

	var setups int
	b, d, err := binding.UseExtension[*bold.Extension](ctx, option.Values{"weight": 800}, func(b *bold.Extension, _ *manager.Manager) (*handler.Disposer, error) {
		setups++
		return handler.NewDisposer(func() { setups-- }), nil
	})
	if err != nil {
		t.Fatalf("UseExtension() error = %v", err)
	}
	if got := b.Options().Int("weight"); got != 800 {
		t.Errorf("weight = %d, want 800", got)
	}
	d.Dispose()
	if setups != 0 {
		t.Errorf("setups = %d after Dispose, want 0", setups)
	}

	if _, _, err := binding.UseExtension[*bold.Extension](ctx, option.Values{"nope": 1}, nil); !errors.Is(err, option.ErrInvalidExtensionOptions) {
		t.Errorf("UseExtension(bad options) error = %v, want ErrInvalidExtensionOptions", err)
	}
	if _, _, err := binding.UseExtension[*positioner.Extension](ctx, nil, nil); err != nil {
		t.Errorf("UseExtension(builtin) error = %v", err)
	}
}

func TestUsePreset(t *testing.T) {
	m := newManager(t)
	p, _, err := binding.UsePreset[*formatting.Preset](binding.Provide(m), option.Values{"weight": 300}, nil)
	if err != nil {
		t.Fatalf("UsePreset() error = %v", err)
	}
	if got := p.Extensions()[0].Options().Int("weight"); got != 300 {
		t.Errorf("forwarded weight = %d, want 300", got)
	}
}

func TestUsePositioner(t *testing.T) {
	m := newManager(t)
	if _, err := m.NewView(); err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	managertest.Select(t, m, 2, 2)

	var seen []positioner.Position
	pos, err := binding.UsePositioner(binding.Provide(m), positioner.Cursor, func(p positioner.Position) {
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatalf("UsePositioner() error = %v", err)
	}
	if pos.Position().Active {
		t.Error("position active before Ref")
	}

	ext, _ := manager.Extension[*positioner.Extension](m)
	if err := pos.Ref(pm.NewElement("div")); err != nil {
		t.Fatalf("Ref() error = %v", err)
	}
	if !pos.Position().Active || len(seen) != 1 {
		t.Errorf("Position() = %+v, seen = %d, want active after Ref", pos.Position(), len(seen))
	}
	if ext.Bindings() != 1 {
		t.Errorf("Bindings() = %d, want 1", ext.Bindings())
	}

	if err := pos.Ref(pm.NewElement("span")); err != nil {
		t.Fatalf("Ref(second) error = %v", err)
	}
	if ext.Bindings() != 1 {
		t.Errorf("Bindings() = %d after re-ref, want 1", ext.Bindings())
	}

	managertest.Select(t, m, 1, 4)
	if pos.Position().Active {
		t.Error("cursor positioner active for a range selection")
	}
	pos.Dispose()
	if ext.Bindings() != 0 {
		t.Errorf("Bindings() = %d after Dispose, want 0", ext.Bindings())
	}
}

func TestManagerRefReplacesDestroyed(t *testing.T) {
	created := 0
	create := func() (*manager.Manager, error) {
		created++
		p, _ := paragraph.New(nil)
		m, err := manager.New([]manager.Combined{p}, manager.Settings{Logger: zaptest.NewLogger(t)})
		if err != nil {
			return nil, err
		}
		return m, m.Create(managertest.Doc("x"))
	}
	var replaced []*manager.Manager
	ref, err := binding.NewManagerRef(create, func(m *manager.Manager) { replaced = append(replaced, m) })
	if err != nil {
		t.Fatalf("NewManagerRef() error = %v", err)
	}

	first := ref.Current()
	if err := first.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	second := ref.Current()
	if second == first || second.IsDestroyed() {
		t.Fatal("destroyed manager was not replaced")
	}
	if len(replaced) != 1 || replaced[0] != second {
		t.Errorf("onReplace calls = %d, want 1 with the new manager", len(replaced))
	}
	if _, _, err := binding.Use(ref.Context(), nil); err != nil {
		t.Errorf("Use(ref.Context()) error = %v", err)
	}

	if err := ref.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !second.IsDestroyed() {
		t.Error("Close did not destroy the live manager")
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
}
