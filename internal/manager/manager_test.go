package manager_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/extensions/bold"
	"github.com/dshills/loom/internal/extensions/doc"
	"github.com/dshills/loom/internal/extensions/history"
	"github.com/dshills/loom/internal/extensions/paragraph"
	"github.com/dshills/loom/internal/extensions/positioner"
	"github.com/dshills/loom/internal/extensions/text"
	"github.com/dshills/loom/internal/loop/looptest"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/manager/managertest"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

func newManager(t *testing.T, combined ...manager.Combined) *manager.Manager {
	t.Helper()
	m, err := manager.New(combined, manager.Settings{
		Logger:    zaptest.NewLogger(t),
		Scheduler: looptest.NewClock(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func names(exts []extension.Extension) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = e.Name()
	}
	return out
}

func TestSchemaFromExtensions(t *testing.T) {
	h, _ := history.New(nil)
	d, _ := doc.New(nil)
	tx, _ := text.New(nil)
	p, _ := paragraph.New(nil)
	m := newManager(t, h, d, tx, p)
	if err := m.Create(nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer m.Destroy()

	sorted := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff([]string{"doc", "paragraph", "text"}, m.Schema().Nodes(), sorted); diff != "" {
		t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
	}
	if got := m.State().Doc.String(); got != "doc(paragraph)" {
		t.Errorf("initial doc = %s, want doc(paragraph)", got)
	}
	if m.Phase() != manager.PhaseActive {
		t.Errorf("Phase() = %v, want active", m.Phase())
	}
}

func TestOrderIndependentOfSeed(t *testing.T) {
	at := func(p extension.Priority) option.Values { return option.Values{"priority": int(p)} }
	build := func(reverse bool) []string {
		d, _ := doc.New(at(1))
		tx, _ := text.New(at(2))
		pos, _ := positioner.New(at(3))
		h, _ := history.New(at(20))
		p, _ := paragraph.New(at(30))
		b, _ := bold.New(at(40))
		seed := []manager.Combined{d, tx, pos, h, p, b}
		if reverse {
			seed = []manager.Combined{b, p, h, pos, tx, d}
		}
		return names(newManager(t, seed...).Extensions())
	}
	forward, backward := build(false), build(true)

	want := []string{doc.Name, text.Name, positioner.Name, history.Name, paragraph.Name, bold.Name}
	if diff := cmp.Diff(want, forward); diff != "" {
		t.Errorf("forward order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("order depends on the seed (-forward +backward):\n%s", diff)
	}
}

func TestPriorityOption(t *testing.T) {
	p, _ := paragraph.New(option.Values{"priority": int(extension.PriorityCritical)})
	m := newManager(t, p)
	if got := m.Extensions()[0].Name(); got != paragraph.Name {
		t.Errorf("first extension = %q, want paragraph moved by its priority option", got)
	}
}

func TestBuiltinsAddedOnce(t *testing.T) {
	d, _ := doc.New(option.Values{"content": "paragraph+"})
	p, _ := paragraph.New(nil)
	m := newManager(t, d, p)

	got := names(m.Extensions())
	count := map[string]int{}
	for _, n := range got {
		count[n]++
	}
	for _, n := range []string{doc.Name, text.Name, positioner.Name} {
		if count[n] != 1 {
			t.Errorf("%s present %d times in %v", n, count[n], got)
		}
	}
	e, _ := m.ExtensionByName(doc.Name)
	if e != d {
		t.Error("caller doc replaced by the builtin")
	}
}

// impostor reuses the paragraph name with a different type.
type impostor struct{ *extension.Base }

func TestDuplicateNames(t *testing.T) {
	base, err := extension.NewBase(extension.Config{Name: paragraph.Name}, nil)
	if err != nil {
		t.Fatal(err)
	}
	p, _ := paragraph.New(nil)
	_, err = manager.New([]manager.Combined{p, &impostor{base}}, manager.Settings{})
	if !errors.Is(err, manager.ErrDuplicateExtensionNames) {
		t.Errorf("New() error = %v, want ErrDuplicateExtensionNames", err)
	}

	// The same instance twice is kept once.
	m := newManager(t, p, p)
	if got := len(names(m.Extensions())); got != 4 {
		t.Errorf("extensions = %v, want paragraph once plus three builtins", names(m.Extensions()))
	}
}

func TestInvalidCombined(t *testing.T) {
	_, err := manager.New([]manager.Combined{notAnExtension{}}, manager.Settings{})
	if !errors.Is(err, manager.ErrInvalidCombined) {
		t.Errorf("New() error = %v, want ErrInvalidCombined", err)
	}
}

type notAnExtension struct{}

func (notAnExtension) Name() string { return "odd" }

func (notAnExtension) Options() option.Values { return nil }

func (notAnExtension) SetOptions(option.Values) error { return nil }

func TestLifecycleErrors(t *testing.T) {
	m := newManager(t)
	if err := m.Dispatch(nil); !errors.Is(err, manager.ErrNotCreated) {
		t.Errorf("Dispatch() before Create error = %v, want ErrNotCreated", err)
	}
	if err := m.Create(nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Create(nil); !errors.Is(err, manager.ErrAlreadyCreated) {
		t.Errorf("second Create() error = %v, want ErrAlreadyCreated", err)
	}
	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := m.Destroy(); !errors.Is(err, manager.ErrManagerDestroyed) {
		t.Errorf("second Destroy() error = %v, want ErrManagerDestroyed", err)
	}
	if !m.IsDestroyed() {
		t.Error("IsDestroyed() = false")
	}
}

func TestLookupAfterDestroy(t *testing.T) {
	p, _ := paragraph.New(nil)
	m := newManager(t, p)
	if err := m.Create(nil); err != nil {
		t.Fatal(err)
	}

	got, err := manager.Extension[*paragraph.Extension](m)
	if err != nil || got != p {
		t.Fatalf("Extension[paragraph]() = %v, %v", got, err)
	}
	if _, err := manager.Extension[*bold.Extension](m); !errors.Is(err, manager.ErrExtensionNotFound) {
		t.Errorf("Extension[bold]() error = %v, want ErrExtensionNotFound", err)
	}

	if err := m.Destroy(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ExtensionByName(paragraph.Name); !errors.Is(err, manager.ErrManagerDestroyed) {
		t.Errorf("ExtensionByName() error = %v, want ErrManagerDestroyed", err)
	}
	if _, err := manager.Extension[*paragraph.Extension](m); !errors.Is(err, manager.ErrManagerDestroyed) {
		t.Errorf("Extension[paragraph]() error = %v, want ErrManagerDestroyed", err)
	}
	if _, err := m.RunCommand("indentParagraph"); !errors.Is(err, manager.ErrManagerDestroyed) {
		t.Errorf("RunCommand() error = %v, want ErrManagerDestroyed", err)
	}
}

func TestHandlersFire(t *testing.T) {
	p, _ := paragraph.New(nil)
	m := newManager(t, p)
	var events []string
	for _, key := range []string{manager.HandlerCreate, manager.HandlerChange, manager.HandlerDestroy} {
		if _, err := m.AddHandler(key, func(any) { events = append(events, key) }); err != nil {
			t.Fatalf("AddHandler(%q) error = %v", key, err)
		}
	}
	if err := m.Create(managertest.Doc("a")); err != nil {
		t.Fatal(err)
	}
	managertest.Select(t, m, 2, 2)
	if err := m.Destroy(); err != nil {
		t.Fatal(err)
	}
	want := []string{manager.HandlerCreate, manager.HandlerChange, manager.HandlerDestroy}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchReentrant(t *testing.T) {
	p, _ := paragraph.New(nil)
	m, _ := managertest.New(t, managertest.Doc("ab"), p)

	var texts []string
	m.AddHandler(manager.HandlerChange, func(payload any) {
		ev := payload.(manager.ChangeEvent)
		texts = append(texts, ev.State.Doc.TextContent())
		if len(texts) == 1 {
			tr := m.State().Tr()
			if err := tr.InsertText("!", 1); err != nil {
				t.Error(err)
				return
			}
			// Queued until this handler returns.
			if err := m.Dispatch(tr); err != nil {
				t.Errorf("nested Dispatch() error = %v", err)
			}
			if got := m.State().Doc.TextContent(); got != "abc" {
				t.Errorf("nested Dispatch applied early: %q", got)
			}
		}
	})

	tr := m.State().Tr()
	if err := tr.InsertText("c", 3); err != nil {
		t.Fatal(err)
	}
	if err := m.Dispatch(tr); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if diff := cmp.Diff([]string{"abc", "!abc"}, texts); diff != "" {
		t.Errorf("change sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestStaleTransaction(t *testing.T) {
	p, _ := paragraph.New(nil)
	m, _ := managertest.New(t, managertest.Doc("ab"), p)

	stale := m.State().Tr()
	_ = stale.InsertText("x", 1)
	fresh := m.State().Tr()
	_ = fresh.InsertText("y", 1)
	if err := m.Dispatch(fresh); err != nil {
		t.Fatal(err)
	}
	if err := m.Dispatch(stale); !errors.Is(err, manager.ErrStaleTransaction) {
		t.Errorf("Dispatch(stale) error = %v, want ErrStaleTransaction", err)
	}
}

func TestCommands(t *testing.T) {
	p, _ := paragraph.New(nil)
	h, _ := history.New(nil)
	m, _ := managertest.New(t, managertest.Doc("ab"), p, h)

	want := []string{"dedentParagraph", "indentParagraph", "redo", "undo"}
	if diff := cmp.Diff(want, m.Commands()); diff != "" {
		t.Errorf("Commands() mismatch (-want +got):\n%s", diff)
	}
	if _, err := m.RunCommand("nope"); !errors.Is(err, manager.ErrCommandNotFound) {
		t.Errorf("RunCommand(nope) error = %v, want ErrCommandNotFound", err)
	}

	managertest.Select(t, m, 1, 1)
	before := m.State()
	if ok, err := m.CanRun("indentParagraph"); err != nil || !ok {
		t.Fatalf("CanRun() = %v, %v", ok, err)
	}
	if m.State() != before {
		t.Error("CanRun dispatched a transaction")
	}
}

func TestExcludeCommandsGlobal(t *testing.T) {
	p, _ := paragraph.New(nil)
	h, _ := history.New(option.Values{"exclude": map[string]any{}})
	m, err := manager.New([]manager.Combined{p, h}, manager.Settings{
		Globals: option.Values{"exclude": map[string]any{"commands": true}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Create(nil); err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	// history set exclude itself, so only paragraph loses its commands.
	if diff := cmp.Diff([]string{"redo", "undo"}, m.Commands()); diff != "" {
		t.Errorf("Commands() mismatch (-want +got):\n%s", diff)
	}
}

func TestSetContentAndDocument(t *testing.T) {
	p, _ := paragraph.New(nil)
	m, _ := managertest.New(t, nil, p)
	if err := m.SetContent(managertest.Doc("hi")); err != nil {
		t.Fatalf("SetContent() error = %v", err)
	}
	if got := m.State().Doc.String(); got != `doc(paragraph("hi"))` {
		t.Errorf("doc = %s", got)
	}
	raw, err := m.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if raw["type"] != "doc" {
		t.Errorf("Document() type = %v, want doc", raw["type"])
	}
}

func TestViewsFollowState(t *testing.T) {
	p, _ := paragraph.New(nil)
	m, _ := managertest.New(t, managertest.Doc("ab"), p)
	view, err := m.NewView()
	if err != nil {
		t.Fatal(err)
	}
	tr := view.State().Tr().SetSelection(pm.Cursor(2))
	view.Dispatch(tr)
	if view.State() != m.State() {
		t.Error("view state differs from manager state after dispatch")
	}
	if got := m.State().Selection; got != pm.Cursor(2) {
		t.Errorf("selection = %+v, want cursor at 2", got)
	}
}

// tracer records its teardown hooks in a shared log.
type tracer struct {
	*extension.Base
	log   *[]string
	inits int
	fail  error
}

func newTracer(t *testing.T, name string, p extension.Priority, log *[]string) *tracer {
	t.Helper()
	base, err := extension.NewBase(extension.Config{Name: name, Priority: p}, nil)
	if err != nil {
		t.Fatalf("NewBase(%s) error = %v", name, err)
	}
	return &tracer{Base: base, log: log}
}

func (tr *tracer) OnCreate(extension.Store) error {
	tr.inits++
	return tr.fail
}

func (tr *tracer) OnDestroy() { *tr.log = append(*tr.log, "destroy "+tr.Name()) }

func (tr *tracer) CreatePlugin() *pm.Plugin {
	return &pm.Plugin{
		Key: tr.Name(),
		View: func(pm.View) pm.PluginView {
			return pm.PluginView{Destroy: func() { *tr.log = append(*tr.log, "view "+tr.Name()) }}
		},
	}
}

func TestDestroyReversePriority(t *testing.T) {
	var log []string
	low := newTracer(t, "low", extension.PriorityLow, &log)
	high := newTracer(t, "high", extension.PriorityHigh, &log)
	def := newTracer(t, "default", extension.PriorityDefault, &log)
	m := newManager(t, low, high, def)
	if err := m.Create(nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := m.NewView(); err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	if _, err := m.AddHandler(manager.HandlerDestroy, func(any) { log = append(log, "handler") }); err != nil {
		t.Fatalf("AddHandler() error = %v", err)
	}

	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	want := []string{
		"view low", "view default", "view high",
		"destroy low", "destroy default", "destroy high",
		"handler",
	}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("teardown order mismatch (-want +got):\n%s", diff)
	}
}

func TestAccessorsEmptyAfterDestroy(t *testing.T) {
	p, _ := paragraph.New(nil)
	m, _ := managertest.New(t, managertest.Doc("a"), p)
	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if got := m.Extensions(); got != nil {
		t.Errorf("Extensions() = %v, want nil", names(got))
	}
	if got := m.Presets(); got != nil {
		t.Errorf("Presets() = %v, want nil", got)
	}
	if m.Schema() != nil {
		t.Error("Schema() is not nil")
	}
	if m.State() != nil {
		t.Error("State() is not nil")
	}
	if got := m.Commands(); got != nil {
		t.Errorf("Commands() = %v, want nil", got)
	}
	if _, err := m.Decorations(); !errors.Is(err, manager.ErrManagerDestroyed) {
		t.Errorf("Decorations() error = %v, want ErrManagerDestroyed", err)
	}
}

func TestDestroyHandlerSeesNoState(t *testing.T) {
	p, _ := paragraph.New(nil)
	m, _ := managertest.New(t, managertest.Doc("a"), p)
	seen := m.State()
	if _, err := m.AddHandler(manager.HandlerDestroy, func(any) { seen = m.State() }); err != nil {
		t.Fatal(err)
	}
	if err := m.Destroy(); err != nil {
		t.Fatal(err)
	}
	if seen != nil {
		t.Error("State() visible to the destroy handler")
	}
}

func TestCreateRetryAfterBadDocument(t *testing.T) {
	var log []string
	tr := newTracer(t, "tracer", extension.PriorityDefault, &log)
	p, _ := paragraph.New(nil)
	m := newManager(t, tr, p)

	err := m.Create(`{"type":"doc","content":[{"type":"missing"}]}`)
	if err == nil {
		t.Fatal("Create() with an unknown node type succeeded")
	}
	if m.Schema() != nil {
		t.Error("Schema() kept after a failed Create")
	}
	if tr.inits != 0 {
		t.Errorf("OnCreate ran %d times for a bad document, want 0", tr.inits)
	}

	if err := m.Create(nil); err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	defer m.Destroy()
	if tr.inits != 1 {
		t.Errorf("OnCreate ran %d times, want 1", tr.inits)
	}
}

func TestCreateInitializerFailure(t *testing.T) {
	var log []string
	tr := newTracer(t, "tracer", extension.PriorityDefault, &log)
	tr.fail = errors.New("boom")
	m := newManager(t, tr)

	if err := m.Create(nil); !errors.Is(err, tr.fail) {
		t.Fatalf("Create() error = %v, want the initializer error", err)
	}
	if m.Schema() != nil {
		t.Error("Schema() kept after a failed Create")
	}
	if m.Phase() != manager.PhaseResolving {
		t.Errorf("Phase() = %v, want resolving", m.Phase())
	}
}
