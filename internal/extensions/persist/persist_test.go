package persist_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/loom/internal/extension/extensiontest"
	"github.com/dshills/loom/internal/extensions/paragraph"
	"github.com/dshills/loom/internal/extensions/persist"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/manager/managertest"
	"github.com/dshills/loom/internal/option"
)

type memSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (s *memSaver) Save(id string, doc map[string]any, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	content, _ := doc["content"].([]any)
	s.saved = append(s.saved, id+":"+text(content))
	return nil
}

func text(nodes []any) string {
	var out string
	for _, n := range nodes {
		m, _ := n.(map[string]any)
		if t, ok := m["text"].(string); ok {
			out += t
		}
		children, _ := m["content"].([]any)
		out += text(children)
	}
	return out
}

func typeText(t *testing.T, m *manager.Manager, s string) {
	t.Helper()
	tr := m.State().Tr()
	if err := tr.InsertText(s, 1); err != nil {
		t.Fatal(err)
	}
	if err := m.Dispatch(tr); err != nil {
		t.Fatal(err)
	}
}

func TestPersistValid(t *testing.T) {
	e, err := persist.New(&memSaver{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	extensiontest.Valid(t, e, persist.Spec, nil)
}

func TestDebouncedSave(t *testing.T) {
	saver := &memSaver{}
	e, _ := persist.New(saver, nil)
	p, _ := paragraph.New(nil)
	m, clock := managertest.New(t, managertest.Doc(""), e, p)

	var events []persist.SaveEvent
	e.AddHandler(persist.OnSave, func(v any) { events = append(events, v.(persist.SaveEvent)) })

	typeText(t, m, "a")
	clock.Advance(600 * time.Millisecond)
	typeText(t, m, "b")
	clock.Advance(600 * time.Millisecond)
	if len(saver.saved) != 0 {
		t.Fatalf("saved %v before the document settled", saver.saved)
	}

	// Selection changes do not restart the timer.
	managertest.Select(t, m, 1, 1)
	clock.Advance(400 * time.Millisecond)
	if len(saver.saved) != 1 || saver.saved[0] != m.ID()+":ba" {
		t.Fatalf("saved = %v, want one save of ba", saver.saved)
	}
	if len(events) != 1 || events[0].Err != nil {
		t.Errorf("onSave events = %+v", events)
	}
	if e.Pending() {
		t.Error("Pending() = true after the save")
	}
}

func TestDebounceOption(t *testing.T) {
	saver := &memSaver{}
	e, _ := persist.New(saver, option.Values{"debounce": 50})
	p, _ := paragraph.New(nil)
	m, clock := managertest.New(t, nil, e, p)

	typeText(t, m, "x")
	clock.Advance(50 * time.Millisecond)
	if len(saver.saved) != 1 {
		t.Fatalf("saved = %v after 50ms", saver.saved)
	}

	if err := e.SetOptions(option.Values{"debounce": 200}); err != nil {
		t.Fatal(err)
	}
	typeText(t, m, "y")
	clock.Advance(100 * time.Millisecond)
	if len(saver.saved) != 1 {
		t.Errorf("saved = %v, want the new delay applied", saver.saved)
	}
}

func TestFlushOnDestroy(t *testing.T) {
	saver := &memSaver{}
	e, _ := persist.New(saver, nil)
	p, _ := paragraph.New(nil)
	m, clock := managertest.New(t, nil, e, p)

	typeText(t, m, "z")
	if err := m.Destroy(); err != nil {
		t.Fatal(err)
	}
	if len(saver.saved) != 1 {
		t.Fatalf("saved = %v, want the pending change flushed", saver.saved)
	}
	clock.Advance(time.Minute)
	if len(saver.saved) != 1 {
		t.Errorf("saved = %v, want no second save", saver.saved)
	}
}

func TestSaveError(t *testing.T) {
	boom := errors.New("disk full")
	e, _ := persist.New(&memSaver{err: boom}, nil)
	p, _ := paragraph.New(nil)
	m, clock := managertest.New(t, nil, e, p)

	var got error
	e.AddHandler(persist.OnSave, func(v any) { got = v.(persist.SaveEvent).Err })
	typeText(t, m, "q")
	clock.Advance(time.Second)
	if !errors.Is(got, boom) {
		t.Errorf("onSave error = %v, want %v", got, boom)
	}
}
