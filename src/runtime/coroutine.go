package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/tanema/luacore/src/conf"
)

// transfer is what moves between a coroutine and its resumer. Only one side
// ever runs engine code: the resumer blocks on yieldCh while the coroutine
// runs and the coroutine blocks on resumeCh while it is suspended.
type transfer struct {
	values   []Value
	err      error
	panicVal any
	done     bool
	panicked bool
	closing  bool
}

var (
	errCoroutineClosed = errors.New("cannot resume dead coroutine")
	errYieldOutside    = errors.New("attempt to yield from outside a coroutine")
)

// NewThread creates a suspended coroutine that will call fn when first resumed.
func (s *State) NewThread(fn Function) *Thread {
	return newThread(s, fn, false)
}

// Resume starts or continues the coroutine with args. It returns the values
// the coroutine yielded or returned. Cancelling ctx interrupts the coroutine.
func (t *Thread) Resume(ctx context.Context, args []Value) ([]Value, error) {
	switch {
	case t.isMain:
		return nil, errors.New("cannot resume non-suspended coroutine")
	case t.status == ThreadDead:
		return nil, errCoroutineClosed
	case t.status != ThreadSuspended:
		return nil, errors.New("cannot resume non-suspended coroutine")
	}

	state := t.state
	prev := state.CurrentThread()
	prev.status = ThreadNormal
	t.status = ThreadRunning
	state.threadStack = append(state.threadStack, t)
	stop := context.AfterFunc(ctx, t.cancel)
	defer stop()

	if !t.started {
		t.started = true
		state.coroutines[t] = struct{}{}
		go t.run(args)
	} else {
		t.resumeCh <- transfer{values: args}
	}
	tr := <-t.yieldCh

	state.threadStack = state.threadStack[:len(state.threadStack)-1]
	prev.status = ThreadRunning
	if tr.panicked {
		t.finish()
		panic(tr.panicVal)
	} else if tr.done {
		t.finish()
		t.lastErr = tr.err
		return tr.values, tr.err
	}
	t.status = ThreadSuspended
	return tr.values, nil
}

// Yield suspends the running coroutine, handing values to the resumer. It
// returns the arguments of the next resume. Only the running coroutine can
// yield.
func (t *Thread) Yield(values []Value) ([]Value, error) {
	if t.isMain {
		return nil, errYieldOutside
	} else if t.closing {
		return nil, errCoroutineClosed
	} else if t.status != ThreadRunning {
		return nil, errYieldOutside
	}
	t.yieldCh <- transfer{values: values}
	tr := <-t.resumeCh
	if tr.closing {
		return nil, errCoroutineClosed
	}
	return tr.values, nil
}

// Close kills a suspended coroutine, unwinding its frames and closing its
// upvalues. Closing a dead coroutine does nothing.
func (t *Thread) Close() error {
	switch t.status {
	case ThreadDead:
		return nil
	case ThreadRunning, ThreadNormal:
		return fmt.Errorf("cannot close a %v coroutine", t.status)
	}
	if t.isMain {
		return errors.New("cannot close the main thread")
	}
	t.closing = true
	t.cancel()
	if t.started {
		t.resumeCh <- transfer{closing: true}
		for tr := <-t.yieldCh; !tr.done && !tr.panicked; tr = <-t.yieldCh {
			t.resumeCh <- transfer{closing: true}
		}
	}
	t.finish()
	return nil
}

func (t *Thread) finish() {
	t.status = ThreadDead
	t.cancel()
	t.state.closeUpValues(t, 0)
	delete(t.state.coroutines, t)
}

func (t *Thread) run(args []Value) {
	tr := transfer{done: true}
	defer func() {
		if r := recover(); r != nil {
			tr = transfer{panicked: true, panicVal: r}
		}
		t.yieldCh <- tr
	}()
	if err := t.stack.Push(args...); err != nil {
		tr.err = err
		return
	}
	results := make([]Value, conf.MAXRESULTS)
	n, err := Invoke(t.ctx, t.fn, &CallContext{
		State:         t.state,
		Thread:        t,
		ArgumentCount: len(args),
		ChunkName:     t.fn.Name(),
		RootChunkName: t.fn.Name(),
	}, results)
	if err != nil {
		tr.err = err
		return
	}
	tr.values = results[:n]
}
