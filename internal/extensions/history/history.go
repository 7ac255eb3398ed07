// Package history provides undo and redo.
//
// Every document change records the state before it. Changes made within
// newGroupDelay of the previous one join its undo entry, so a burst of
// typing is undone in one step.
package history

import (
	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// Name is the extension name.
const Name = "history"

// Handler keys.
const (
	OnUndo = "onUndo"
	OnRedo = "onRedo"
)

// MetaKey marks transactions produced by undo and redo. A transaction
// with MetaAddToHistory set to false is not recorded either.
const (
	MetaKey          = "history"
	MetaAddToHistory = "addToHistory"
)

// Spec is the option spec.
var Spec = option.Spec{
	Defaults: option.Values{
		"depth":         100,
		"newGroupDelay": 500,
	},
	HandlerKeys: []string{OnUndo, OnRedo},
}

// Counts is the plugin state.
type Counts struct {
	Undo int
	Redo int
}

// Extension records document changes.
type Extension struct {
	*extension.Base

	stack *Stack
}

// New creates the extension.
func New(opts option.Values) (*Extension, error) {
	e := &Extension{}
	base, err := extension.NewBase(extension.Config{
		Name:         Name,
		Priority:     extension.PriorityHigh,
		Spec:         Spec,
		OnSetOptions: e.onSetOptions,
	}, opts)
	if err != nil {
		return nil, err
	}
	e.Base = base
	o := base.Options()
	e.stack = NewStack(o.Int("depth"), o.Duration("newGroupDelay"))
	return e, nil
}

func (e *Extension) onSetOptions(change option.Change) {
	e.stack.Configure(change.Options.Int("depth"), change.Options.Duration("newGroupDelay"))
}

// Stack returns the undo stack.
func (e *Extension) Stack() *Stack { return e.stack }

// CreatePlugin implements extension.PluginContributor.
func (e *Extension) CreatePlugin() *pm.Plugin {
	return &pm.Plugin{
		Key: Name,
		State: &pm.StateField{
			Init: func(*pm.State) any { return e.counts() },
			Apply: func(tr *pm.Transaction, _ any, old, _ *pm.State) any {
				if tr.DocChanged() && tr.Meta(MetaKey) == nil && tr.Meta(MetaAddToHistory) != false {
					e.stack.Record(Snapshot{Doc: old.Doc, Selection: old.Selection}, tr.Time)
				}
				return e.counts()
			},
		},
	}
}

func (e *Extension) counts() Counts {
	return Counts{Undo: e.stack.UndoDepth(), Redo: e.stack.RedoDepth()}
}

// Commands implements extension.CommandContributor.
func (e *Extension) Commands() map[string]extension.Command {
	return map[string]extension.Command{
		"undo": e.command("undo", e.stack.CanUndo, e.stack.Undo, OnUndo),
		"redo": e.command("redo", e.stack.CanRedo, e.stack.Redo, OnRedo),
	}
}

// Keymap implements extension.KeymapContributor.
func (e *Extension) Keymap() map[string]string {
	return map[string]string{
		"Mod-z":       "undo",
		"Mod-y":       "redo",
		"Shift-Mod-z": "redo",
	}
}

func (e *Extension) command(kind string, can func() bool, pop func(Snapshot) (Snapshot, error), event string) extension.Command {
	return func(props extension.CommandProps) bool {
		if !can() {
			return false
		}
		if props.Dispatch == nil {
			return true
		}
		state := props.State
		target, err := pop(Snapshot{Doc: state.Doc, Selection: state.Selection})
		if err != nil {
			return false
		}
		tr := state.Tr()
		if err := tr.SetDoc(target.Doc); err != nil {
			return false
		}
		tr.SetSelection(target.Selection)
		tr.SetMeta(MetaKey, kind)
		props.Dispatch(tr)
		e.Emit(event, target)
		return true
	}
}
