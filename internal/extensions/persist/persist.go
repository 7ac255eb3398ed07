// Package persist saves the document after it stops changing.
//
// Every document change restarts a debounce timer; when it fires the
// current document is written to a Saver under the manager id. A change
// still pending when the manager is destroyed is saved immediately.
package persist

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/loop"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// Name is the extension name.
const Name = "persist"

// OnSave is the handler key notified after each save attempt.
const OnSave = "onSave"

// Spec is the option spec. debounce is in milliseconds.
var Spec = option.Spec{
	Defaults: option.Values{
		"debounce": 1000,
	},
	HandlerKeys: []string{OnSave},
}

// Saver stores documents. *store.Store implements it.
type Saver interface {
	Save(id string, doc map[string]any, at time.Time) error
}

// SaveEvent is the payload of OnSave.
type SaveEvent struct {
	ID  string
	At  time.Time
	Err error
}

// Extension saves documents to a Saver.
type Extension struct {
	*extension.Base

	saver Saver

	mu        sync.Mutex
	store     extension.Store
	debouncer *loop.Debouncer
	logger    *zap.Logger
}

// New creates the extension.
func New(saver Saver, opts option.Values) (*Extension, error) {
	e := &Extension{saver: saver, logger: zap.NewNop()}
	base, err := extension.NewBase(extension.Config{
		Name:         Name,
		Priority:     extension.PriorityLow,
		Spec:         Spec,
		OnSetOptions: e.onSetOptions,
	}, opts)
	if err != nil {
		return nil, err
	}
	e.Base = base
	return e, nil
}

func (e *Extension) onSetOptions(change option.Change) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.debouncer != nil && change.Has("debounce") {
		e.debouncer.SetDelay(change.Options.Duration("debounce"))
	}
}

// OnCreate implements extension.Initializer.
func (e *Extension) OnCreate(store extension.Store) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
	e.logger = store.Logger().Named(Name)
	e.debouncer = loop.NewDebouncer(store.Scheduler(), e.Options().Duration("debounce"))
	return nil
}

// OnDestroy implements extension.Destroyer.
func (e *Extension) OnDestroy() {
	e.mu.Lock()
	d := e.debouncer
	e.mu.Unlock()
	if d != nil && d.Pending() {
		d.Cancel()
		e.save()
	}
}

// Pending reports whether a save is scheduled.
func (e *Extension) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debouncer != nil && e.debouncer.Pending()
}

// CreatePlugin implements extension.PluginContributor.
func (e *Extension) CreatePlugin() *pm.Plugin {
	return &pm.Plugin{
		Key: Name,
		State: &pm.StateField{
			Init: func(*pm.State) any { return nil },
			Apply: func(tr *pm.Transaction, value any, _, _ *pm.State) any {
				if tr.DocChanged() {
					e.schedule()
				}
				return value
			},
		},
	}
}

func (e *Extension) schedule() {
	e.mu.Lock()
	d := e.debouncer
	e.mu.Unlock()
	if d != nil {
		d.Trigger(e.save)
	}
}

// Flush saves now if a save is pending.
func (e *Extension) Flush() {
	e.OnDestroy()
}

func (e *Extension) save() {
	e.mu.Lock()
	store, logger := e.store, e.logger
	e.mu.Unlock()
	if store == nil || e.saver == nil {
		return
	}
	state := store.State()
	if state == nil {
		return
	}

	ev := SaveEvent{ID: store.ID(), At: store.Scheduler().Now()}
	ev.Err = e.saver.Save(ev.ID, state.Doc.JSON(), ev.At)
	if ev.Err != nil {
		logger.Warn("saving document failed", zap.String("id", ev.ID), zap.Error(ev.Err))
	} else {
		logger.Debug("document saved", zap.String("id", ev.ID))
	}
	e.Emit(OnSave, ev)
}
