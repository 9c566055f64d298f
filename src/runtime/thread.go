package runtime

import (
	"context"
	"fmt"
)

type (
	// ThreadStatus is the coroutine status of a thread.
	ThreadStatus string
	// CallStackFrame is one activation record on the call stack of a thread.
	CallStackFrame struct {
		// Function is the callee of this frame.
		Function Function
		// Base is the stack index of the first argument/register of the frame.
		Base int
		// VariableArgumentCount is the amount of arguments passed beyond the
		// declared parameters of a closure, always 0 for go functions.
		VariableArgumentCount int
		// IsHook marks frames that were pushed while a hook was running.
		IsHook bool
		pc     int64
	}
	// Thread is an independent pair of a value stack and call stack. The main
	// thread of a State always exists, every other thread is a coroutine.
	Thread struct {
		state     *State
		stack     *Stack
		callStack []CallStackFrame
		buffers   [][]Value

		hook     Function
		hookMask HookMask
		inHook   bool

		fn       Function
		status   ThreadStatus
		isMain   bool
		started  bool
		closing  bool
		lastErr  error
		ctx      context.Context
		cancel   context.CancelFunc
		resumeCh chan transfer
		yieldCh  chan transfer
	}
)

const (
	// ThreadSuspended is a coroutine that was created or has yielded.
	ThreadSuspended ThreadStatus = "suspended"
	// ThreadRunning is the thread currently executing.
	ThreadRunning ThreadStatus = "running"
	// ThreadNormal is a thread that resumed another coroutine and waits for it.
	ThreadNormal ThreadStatus = "normal"
	// ThreadDead is a coroutine that finished, failed or was closed.
	ThreadDead ThreadStatus = "dead"
)

const maxPooledBuffers = 16

func newThread(state *State, fn Function, isMain bool) *Thread {
	ctx, cancel := context.WithCancel(context.Background())
	thread := &Thread{
		state:    state,
		stack:    newStack(state.config.Runtime.InitialStackSize, state.config.Runtime.MaxStackSize),
		fn:       fn,
		isMain:   isMain,
		status:   ThreadSuspended,
		ctx:      ctx,
		cancel:   cancel,
		resumeCh: make(chan transfer),
		yieldCh:  make(chan transfer),
	}
	if isMain {
		thread.status = ThreadRunning
	}
	return thread
}

// State returns the state the thread belongs to.
func (t *Thread) State() *State { return t.state }

// Stack returns the value stack of the thread.
func (t *Thread) Stack() *Stack { return t.stack }

// IsMain reports if this is the main thread of its state.
func (t *Thread) IsMain() bool { return t.isMain }

// Status returns the coroutine status of the thread.
func (t *Thread) Status() ThreadStatus { return t.status }

// CallStack returns a copy of the frames of the thread, oldest first.
func (t *Thread) CallStack() []CallStackFrame {
	frames := make([]CallStackFrame, len(t.callStack))
	copy(frames, t.callStack)
	return frames
}

// CallStackDepth returns the amount of frames currently pushed.
func (t *Thread) CallStackDepth() int { return len(t.callStack) }

// PushCallStackFrame pushes a frame. Frames are popped in LIFO order.
func (t *Thread) PushCallStackFrame(frame CallStackFrame) {
	t.callStack = append(t.callStack, frame)
}

// PopCallStackFrame removes the most recent frame.
func (t *Thread) PopCallStackFrame() {
	last := len(t.callStack) - 1
	t.callStack[last] = CallStackFrame{}
	t.callStack = t.callStack[:last]
}

// SetHook installs fn as the call/return hook of the thread. A zero mask or a
// nil function removes the hook.
func (t *Thread) SetHook(fn Function, mask HookMask) {
	if fn == nil || mask == 0 {
		t.hook, t.hookMask = nil, 0
		return
	}
	t.hook, t.hookMask = fn, mask
}

// Hook returns the installed hook function and its mask.
func (t *Thread) Hook() (Function, HookMask) { return t.hook, t.hookMask }

// HookMask returns the mask of the installed hook.
func (t *Thread) HookMask() HookMask { return t.hookMask }

// IsInHook reports if the thread is currently executing its hook.
func (t *Thread) IsInHook() bool { return t.inHook }

func (t *Thread) String() string {
	return fmt.Sprintf("thread: %p", t)
}

// currentClosureFrame finds the most recent script frame, ignoring the top
// skip frames, so that errors can report a position.
func (t *Thread) currentClosureFrame(skip int) (*Closure, int64, bool) {
	for i := len(t.callStack) - 1 - skip; i >= 0; i-- {
		if cls, isCls := t.callStack[i].Function.(*Closure); isCls {
			return cls, t.callStack[i].pc, true
		}
	}
	return nil, 0, false
}

func (t *Thread) rentBuffer(size int) []Value {
	if n := len(t.buffers); n > 0 && cap(t.buffers[n-1]) >= size {
		buf := t.buffers[n-1][:size]
		t.buffers = t.buffers[:n-1]
		return buf
	}
	return make([]Value, size)
}

func (t *Thread) returnBuffer(buf []Value) {
	if len(t.buffers) >= maxPooledBuffers {
		return
	}
	clear(buf[:cap(buf)])
	t.buffers = append(t.buffers, buf)
}
