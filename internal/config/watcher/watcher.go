// Package watcher reports changes to configuration files for live reload.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/loom/internal/loop"
)

// ErrWatcherClosed is returned after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Operation is the kind of change seen for a file.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates the file was created or renamed into place.
	OpCreate

	// OpRemove indicates the file was deleted or renamed away.
	OpRemove
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is a debounced file change.
type Event struct {
	Path string
	Op   Operation
	Time time.Time
}

// Handler is called with each debounced event.
type Handler func(event Event)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before its event is
// delivered.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithScheduler replaces the wall clock used for debouncing.
func WithScheduler(s loop.Scheduler) Option {
	return func(w *Watcher) { w.scheduler = s }
}

// Watcher watches files through their parent directories, so editors that
// save by renaming a temporary file are seen too.
type Watcher struct {
	mu sync.Mutex

	fsw       *fsnotify.Watcher
	scheduler loop.Scheduler
	debounce  time.Duration

	files    map[string]*pending
	dirs     map[string]int
	handlers []Handler
	errors   []func(error)

	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

type pending struct {
	op        Operation
	debouncer *loop.Debouncer
}

// New creates a watcher. It starts delivering events immediately.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:       fsw,
		scheduler: loop.Wall{},
		debounce:  100 * time.Millisecond,
		files:     make(map[string]*pending),
		dirs:      make(map[string]int),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch adds a file. The file need not exist yet; its directory must.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.files[abs]; ok {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = &pending{debouncer: loop.NewDebouncer(w.scheduler, w.debounce)}
	return nil
}

// Unwatch removes a file.
func (w *Watcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.files[abs]
	if !ok {
		return nil
	}
	p.debouncer.Cancel()
	delete(w.files, abs)
	dir := filepath.Dir(abs)
	if w.dirs[dir]--; w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		if !w.closed {
			return w.fsw.Remove(dir)
		}
	}
	return nil
}

// OnChange registers a handler for file change events.
func (w *Watcher) OnChange(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// OnError registers a handler for watcher errors.
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors = append(w.errors, fn)
}

// Close stops the watcher and drops pending events.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, p := range w.files {
		p.debouncer.Cancel()
	}
	close(w.done)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	op, ok := convertOp(ev.Op)
	if !ok {
		return
	}
	w.queue(filepath.Clean(ev.Name), op)
}

// queue coalesces events per file until it has been quiet for the
// debounce delay. Remove wins over everything; create wins over write.
func (w *Watcher) queue(path string, op Operation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.files[path]
	if !ok || w.closed {
		return
	}
	if !p.debouncer.Pending() {
		p.op = op
	} else if op == OpRemove || (op == OpCreate && p.op == OpWrite) {
		p.op = op
	}
	p.debouncer.Trigger(func() { w.flush(path) })
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	p, ok := w.files[path]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	event := Event{Path: path, Op: p.op, Time: w.scheduler.Now()}
	handlers := append([]Handler(nil), w.handlers...)
	w.mu.Unlock()

	for _, h := range handlers {
		safeCall(h, event)
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.Lock()
	fns := append(([]func(error))(nil), w.errors...)
	w.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

// safeCall keeps a panicking handler from killing the watcher goroutine.
func safeCall(h Handler, event Event) {
	defer func() { _ = recover() }()
	h(event)
}

func convertOp(op fsnotify.Op) (Operation, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpRemove, true
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	default:
		return 0, false
	}
}
