// Package script runs editor extensions written in Lua.
//
// A script may define a global table named commands, mapping command
// names to functions, and a global function on_change, called with the
// document text after each document change. Scripts reach the editor
// through the loom table:
//
//	loom.text()                 document text
//	loom.size()                 document content size
//	loom.selection()            anchor and head
//	loom.insert_text(s [, pos]) insert at pos or the selection head
//	loom.run(name, ...)         run another command
//	loom.log(msg)               write to the editor log
//
// Scripts run in a sandbox without io, os, or module loading, and each
// run is bounded by the timeout option.
package script

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/dshills/loom/internal/extension"
	"github.com/dshills/loom/internal/handler"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/option"
	"github.com/dshills/loom/internal/pm"
)

// DefaultName is used when New is given no name.
const DefaultName = "script"

// Spec is the option spec. source and file are read once, at creation;
// timeout is in milliseconds.
var Spec = option.Spec{
	Defaults: option.Values{
		"source":  "",
		"file":    "",
		"timeout": 1000,
	},
	StaticKeys: []string{"source", "file"},
}

// Extension is a Lua scripted extension.
type Extension struct {
	*extension.Base

	sb *sandbox

	mu       sync.Mutex
	store    extension.Store
	logger   *zap.Logger
	commands map[string]*lua.LFunction
	onChange *lua.LFunction
	change   *handler.Disposer

	// running counts Lua runs in progress on the calling goroutine.
	// Changes made while a run is active are reported once it ends.
	running atomic.Int32
	changed atomic.Bool
}

// New creates a script extension. The script itself is loaded by
// OnCreate so it can reach the editor.
func New(name string, opts option.Values) (*Extension, error) {
	if name == "" {
		name = DefaultName
	}
	e := &Extension{logger: zap.NewNop()}
	base, err := extension.NewBase(extension.Config{
		Name:         name,
		Priority:     extension.PriorityDefault,
		Spec:         Spec,
		OnSetOptions: e.onSetOptions,
	}, opts)
	if err != nil {
		return nil, err
	}
	e.Base = base
	e.sb = newSandbox(base.Options().Duration("timeout"))
	return e, nil
}

func (e *Extension) onSetOptions(change option.Change) {
	if change.Has("timeout") {
		e.sb.setTimeout(change.Options.Duration("timeout"))
	}
}

// OnCreate implements extension.Initializer. It installs the loom API,
// runs the script, and collects its commands.
func (e *Extension) OnCreate(store extension.Store) error {
	e.mu.Lock()
	e.store = store
	e.logger = store.Logger().Named(e.Name())
	e.mu.Unlock()

	e.sb.register("loom", e.api())

	source := e.Options().String("source")
	if file := e.Options().String("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("script %s: %w", e.Name(), err)
		}
		source = string(data)
	}
	if err := e.run(func() error { return e.sb.doString(source) }); err != nil {
		return fmt.Errorf("script %s: %w", e.Name(), err)
	}

	commands := make(map[string]*lua.LFunction)
	if tbl, ok := e.sb.global("commands").(*lua.LTable); ok {
		tbl.ForEach(func(k, v lua.LValue) {
			if fn, ok := v.(*lua.LFunction); ok && k.Type() == lua.LTString {
				commands[k.String()] = fn
			}
		})
	}
	onChange, _ := e.sb.global("on_change").(*lua.LFunction)

	e.mu.Lock()
	e.commands = commands
	e.onChange = onChange
	e.mu.Unlock()

	if onChange != nil {
		d, err := store.AddHandler(manager.HandlerChange, e.handleChange)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.change = d
		e.mu.Unlock()
	}
	return nil
}

// OnDestroy implements extension.Destroyer.
func (e *Extension) OnDestroy() {
	e.mu.Lock()
	d := e.change
	e.change = nil
	e.mu.Unlock()
	d.Dispose()
	e.sb.close()
}

// CommandNames returns the commands the script defined, sorted.
func (e *Extension) CommandNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.commands))
	for name := range e.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands implements extension.CommandContributor. A dry run reports
// true without calling the script.
func (e *Extension) Commands() map[string]extension.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]extension.Command, len(e.commands))
	for name, fn := range e.commands {
		out[name] = func(props extension.CommandProps) bool {
			if props.Dispatch == nil {
				return true
			}
			args := make([]lua.LValue, len(props.Args))
			for i, a := range props.Args {
				args[i] = toLua(a)
			}
			var ret lua.LValue
			err := e.run(func() error {
				var err error
				ret, err = e.sb.call(fn, args...)
				return err
			})
			if err != nil {
				e.logger.Warn("script command failed", zap.String("command", name), zap.Error(err))
				return false
			}
			return lua.LVAsBool(ret)
		}
	}
	return out
}

// run executes fn as one Lua run and then reports changes made during
// it.
func (e *Extension) run(fn func() error) error {
	e.running.Add(1)
	err := fn()
	if e.running.Add(-1) == 0 && e.changed.Swap(false) {
		e.callOnChange()
	}
	return err
}

func (e *Extension) handleChange(payload any) {
	ev, ok := payload.(manager.ChangeEvent)
	if !ok || !ev.Transaction.DocChanged() {
		return
	}
	if e.running.Load() > 0 {
		e.changed.Store(true)
		return
	}
	e.callOnChange()
}

func (e *Extension) callOnChange() {
	e.mu.Lock()
	fn, store := e.onChange, e.store
	e.mu.Unlock()
	if fn == nil || store == nil {
		return
	}
	text := lua.LString(store.State().Doc.TextContent())
	err := e.run(func() error {
		_, err := e.sb.call(fn, text)
		return err
	})
	if err != nil {
		e.logger.Warn("on_change failed", zap.Error(err))
	}
}

// api returns the functions of the loom table.
func (e *Extension) api() map[string]lua.LGFunction {
	state := func() *pm.State {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.store == nil {
			return nil
		}
		return e.store.State()
	}

	return map[string]lua.LGFunction{
		"text": func(L *lua.LState) int {
			s := state()
			if s == nil {
				L.Push(lua.LString(""))
				return 1
			}
			L.Push(lua.LString(s.Doc.TextContent()))
			return 1
		},
		"size": func(L *lua.LState) int {
			s := state()
			if s == nil {
				L.Push(lua.LNumber(0))
				return 1
			}
			L.Push(lua.LNumber(s.Doc.ContentSize()))
			return 1
		},
		"selection": func(L *lua.LState) int {
			s := state()
			if s == nil {
				L.Push(lua.LNumber(0))
				L.Push(lua.LNumber(0))
				return 2
			}
			L.Push(lua.LNumber(s.Selection.Anchor))
			L.Push(lua.LNumber(s.Selection.Head))
			return 2
		},
		"insert_text": func(L *lua.LState) int {
			s := state()
			if s == nil {
				L.Push(lua.LFalse)
				return 1
			}
			text := norm.NFC.String(L.CheckString(1))
			pos := L.OptInt(2, s.Selection.Head)
			tr := s.Tr()
			if err := tr.InsertText(text, pos); err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			if err := e.store.Dispatch(tr); err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LTrue)
			return 1
		},
		"run": func(L *lua.LState) int {
			name := L.CheckString(1)
			args := make([]any, 0, L.GetTop()-1)
			for i := 2; i <= L.GetTop(); i++ {
				args = append(args, fromLua(L.Get(i)))
			}
			ok, err := e.store.RunCommand(name, args...)
			if err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LBool(ok))
			return 1
		},
		"log": func(L *lua.LState) int {
			e.logger.Info(L.CheckString(1))
			return 0
		},
	}
}

func fromLua(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LString:
		return string(x)
	case lua.LNumber:
		if f := float64(x); f == float64(int(f)) {
			return int(f)
		}
		return float64(x)
	case lua.LBool:
		return bool(x)
	}
	return nil
}

// Eval runs code in the script's sandbox.
func (e *Extension) Eval(code string) error {
	return e.run(func() error { return e.sb.doString(code) })
}
