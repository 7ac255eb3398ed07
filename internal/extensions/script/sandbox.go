package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox errors.
var (
	// ErrClosed is returned when running code on a closed sandbox.
	ErrClosed = errors.New("script sandbox is closed")

	// ErrTimeout is returned when a script runs past its timeout.
	ErrTimeout = errors.New("script timed out")
)

// sandbox is a Lua state restricted to safe libraries.
//
// gopher-lua's LState is not goroutine-safe; mu serialises every use.
type sandbox struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	closed  bool
}

func newSandbox(timeout time.Duration) *sandbox {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// io, os, debug and package stay closed.
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		L.Push(L.NewFunction(open))
		L.Call(0, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return &sandbox{L: L, timeout: timeout}
}

// setTimeout changes the limit for later runs.
func (s *sandbox) setTimeout(d time.Duration) {
	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()
}

// do runs fn against the state with the timeout applied.
func (s *sandbox) do(fn func(L *lua.LState) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
		defer func() {
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", ErrTimeout, err)
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn(s.L)
}

// doString executes a chunk.
func (s *sandbox) doString(code string) error {
	return s.do(func(L *lua.LState) error { return L.DoString(code) })
}

// call calls fn and returns its first result.
func (s *sandbox) call(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	var ret lua.LValue = lua.LNil
	err := s.do(func(L *lua.LState) error {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	return ret, err
}

// global returns a global value.
func (s *sandbox) global(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// register installs a module table as a global.
func (s *sandbox) register(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
}

func (s *sandbox) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}

// toLua converts a Go command argument.
func toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}
