package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/tanema/luacore/src/chunk"
)

type (
	// NativeFunc is the signature of host functions callable from scripts.
	// Arguments are read through call, results are written into results and
	// the amount written is returned. Slots beyond that amount are not read.
	NativeFunc func(ctx context.Context, call *CallContext, results []Value) (int, error)
	// Function is either a native *GoFunc or a script *Closure.
	Function interface {
		fmt.Stringer
		Name() string
		call(ctx context.Context, call *CallContext, results []Value) (int, error)
	}
	// GoFunc is a named NativeFunc.
	GoFunc struct {
		name string
		val  NativeFunc
	}
	// Closure is a compiled chunk bound to the upvalues it captured.
	Closure struct {
		val       *chunk.Chunk
		upvalues  []*UpValue
		constants []Value
	}
	// HookMask selects the events a hook is called for.
	HookMask uint8
)

const (
	// HookCall calls the hook before every function call.
	HookCall HookMask = 1 << iota
	// HookReturn calls the hook after every successful return.
	HookReturn
)

var errStackOverflow = errors.New("stack overflow")

// Fn wraps a NativeFunc in a named function.
func Fn(name string, fn NativeFunc) *GoFunc {
	return &GoFunc{name: name, val: fn}
}

// Name returns the name the function was registered with.
func (f *GoFunc) Name() string { return f.name }

func (f *GoFunc) String() string { return fmt.Sprintf("function: builtin: %p", f) }

func (f *GoFunc) call(ctx context.Context, call *CallContext, results []Value) (int, error) {
	return f.val(ctx, call, results)
}

// NewClosure binds a top level chunk to the state. Upvalues named _ENV share
// the global environment, any other top level upvalue starts out nil.
func NewClosure(state *State, fn *chunk.Chunk) *Closure {
	upvals := make([]*UpValue, len(fn.UpIndexes))
	for i, idx := range fn.UpIndexes {
		if idx.Name == envName {
			upvals[i] = state.envUpValue
		} else {
			upvals[i] = ClosedUpValue(state.mainThread, Nil)
		}
	}
	return newClosure(state, fn, upvals)
}

func newClosure(state *State, fn *chunk.Chunk, upvals []*UpValue) *Closure {
	return &Closure{
		val:       fn,
		upvalues:  upvals,
		constants: state.constantsOf(fn),
	}
}

// Name is the name of the compiled function.
func (c *Closure) Name() string { return c.val.Name }

// Chunk returns the compiled function.
func (c *Closure) Chunk() *chunk.Chunk { return c.val }

// UpValues returns the captured upvalues in upvalue index order.
func (c *Closure) UpValues() []*UpValue { return c.upvalues }

func (c *Closure) String() string { return fmt.Sprintf("function: %p", c) }

func (c *Closure) call(ctx context.Context, call *CallContext, results []Value) (int, error) {
	return execute(ctx, c, call, results)
}

// Return copies vals into results and returns the amount copied.
func Return(results []Value, vals ...Value) int {
	return copy(results, vals)
}

// Invoke calls fn with the arguments described by call. A frame is pushed for
// the duration of the call and removed on every exit path, after which the
// upvalues open on the frame registers are closed. Errors are wrapped with the
// script position and traceback while the failing frame is still pushed.
func Invoke(ctx context.Context, fn Function, call *CallContext, results []Value) (int, error) {
	thread := call.Thread
	if len(thread.callStack) >= call.State.config.Runtime.MaxCallDepth {
		return 0, call.State.wrapError(thread, errStackOverflow)
	}
	varargs := 0
	if cls, isCls := fn.(*Closure); isCls {
		varargs = max(call.ArgumentCount-int(cls.val.Arity), 0)
	}
	thread.PushCallStackFrame(CallStackFrame{
		Function:              fn,
		Base:                  call.FrameBase,
		VariableArgumentCount: varargs,
		IsHook:                thread.inHook,
	})
	defer func() {
		thread.PopCallStackFrame()
		call.State.closeUpValues(thread, call.FrameBase)
	}()

	var n int
	var err error
	if thread.hookMask != 0 && !thread.inHook {
		n, err = executeCallHook(ctx, fn, call, results)
	} else {
		n, err = fn.call(ctx, call, results)
	}
	if err != nil {
		return 0, call.State.wrapError(thread, err)
	}
	return n, nil
}

// executeCallHook runs fn between the call and return events of the hook.
// Calls made by the hook itself are not hooked again.
func executeCallHook(ctx context.Context, fn Function, call *CallContext, results []Value) (int, error) {
	thread := call.Thread
	if thread.hookMask&HookCall != 0 {
		if err := thread.runHook(ctx, "call"); err != nil {
			return 0, err
		}
	}
	n, err := fn.call(ctx, call, results)
	if err != nil {
		return 0, err
	}
	if thread.hookMask&HookReturn != 0 {
		if err := thread.runHook(ctx, "return"); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (t *Thread) runHook(ctx context.Context, event string) error {
	hook := t.hook
	t.inHook = true
	defer func() { t.inHook = false }()
	base := t.stack.Top()
	defer func() { _ = t.stack.SetTop(base) }()
	if err := t.stack.Push(StringValue(event)); err != nil {
		return err
	}
	_, err := Invoke(ctx, hook, &CallContext{
		State:         t.state,
		Thread:        t,
		ArgumentCount: 1,
		FrameBase:     base,
	}, nil)
	return err
}

func (m HookMask) String() string {
	var mask string
	if m&HookCall != 0 {
		mask += "c"
	}
	if m&HookReturn != 0 {
		mask += "r"
	}
	return mask
}

// ParseHookMask reads a mask string such as "cr".
func ParseHookMask(mask string) HookMask {
	var m HookMask
	for _, ch := range mask {
		switch ch {
		case 'c':
			m |= HookCall
		case 'r':
			m |= HookReturn
		}
	}
	return m
}
