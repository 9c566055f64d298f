package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/luacore/src/conf"
)

func TestCoroutineResumeYield(t *testing.T) {
	t.Parallel()
	state := New(conf.Default())
	ctx := context.Background()

	var statuses []ThreadStatus
	var current *Thread
	gen := Fn("gen", func(_ context.Context, call *CallContext, results []Value) (int, error) {
		current = call.State.CurrentThread()
		statuses = append(statuses, call.Thread.Status(), state.MainThread().Status())
		next, err := call.Thread.Yield(call.Args())
		if err != nil {
			return 0, err
		}
		return Return(results, next...), nil
	})

	co := state.NewThread(gen)
	assert.Equal(t, ThreadSuspended, co.Status())
	assert.False(t, co.IsMain())

	res, err := co.Resume(ctx, values(1, 2))
	require.NoError(t, err)
	assert.Equal(t, values(1, 2), res)
	assert.Same(t, co, current)
	assert.Equal(t, []ThreadStatus{ThreadRunning, ThreadNormal}, statuses)
	assert.Equal(t, ThreadSuspended, co.Status())
	assert.Equal(t, ThreadRunning, state.MainThread().Status())
	assert.Same(t, state.MainThread(), state.CurrentThread())

	res, err = co.Resume(ctx, values("done"))
	require.NoError(t, err)
	assert.Equal(t, values("done"), res)
	assert.Equal(t, ThreadDead, co.Status())

	_, err = co.Resume(ctx, nil)
	require.EqualError(t, err, "cannot resume dead coroutine")
}

func TestCoroutineErrors(t *testing.T) {
	t.Parallel()
	state := New(conf.Default())
	ctx := context.Background()

	co := state.NewThread(Fn("fail", func(context.Context, *CallContext, []Value) (int, error) {
		return 0, errors.New("inside coroutine")
	}))
	_, err := co.Resume(ctx, nil)
	require.ErrorContains(t, err, "inside coroutine")
	assert.Equal(t, ThreadDead, co.Status())
	assert.Equal(t, 0, co.CallStackDepth())

	_, err = state.MainThread().Yield(nil)
	require.ErrorIs(t, err, errYieldOutside)
	_, err = state.MainThread().Resume(ctx, nil)
	require.Error(t, err)
	require.Error(t, state.MainThread().Close())
}

func TestYieldRequiresRunningCoroutine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	yielder := Fn("yielder", func(_ context.Context, call *CallContext, _ []Value) (int, error) {
		_, err := call.Thread.Yield(nil)
		return 0, err
	})

	testcases := []struct {
		desc  string
		setup func(t *testing.T, state *State) *Thread
	}{
		{
			desc: "not started",
			setup: func(_ *testing.T, state *State) *Thread {
				return state.NewThread(yielder)
			},
		},
		{
			desc: "suspended after yield",
			setup: func(t *testing.T, state *State) *Thread {
				co := state.NewThread(yielder)
				_, err := co.Resume(ctx, nil)
				require.NoError(t, err)
				return co
			},
		},
		{
			desc: "dead",
			setup: func(t *testing.T, state *State) *Thread {
				co := state.NewThread(Fn("noop", func(context.Context, *CallContext, []Value) (int, error) { return 0, nil }))
				_, err := co.Resume(ctx, nil)
				require.NoError(t, err)
				return co
			},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			state := New(conf.Default())
			co := tc.setup(t, state)
			_, err := co.Yield(values(1))
			require.ErrorIs(t, err, errYieldOutside)
		})
	}

	t.Run("normal", func(t *testing.T) {
		t.Parallel()
		state := New(conf.Default())
		var outer *Thread
		var innerErr error
		inner := state.NewThread(Fn("inner", func(context.Context, *CallContext, []Value) (int, error) {
			assert.Equal(t, ThreadNormal, outer.Status())
			_, innerErr = outer.Yield(nil)
			return 0, nil
		}))
		outer = state.NewThread(Fn("outer", func(ctx context.Context, _ *CallContext, _ []Value) (int, error) {
			_, err := inner.Resume(ctx, nil)
			return 0, err
		}))
		_, err := outer.Resume(ctx, nil)
		require.NoError(t, err)
		require.ErrorIs(t, innerErr, errYieldOutside)
		assert.Equal(t, ThreadDead, outer.Status())
	})
}

func TestCoroutinePanicIsForwarded(t *testing.T) {
	t.Parallel()
	state := New(conf.Default())
	co := state.NewThread(Fn("boom", func(context.Context, *CallContext, []Value) (int, error) {
		panic("boom")
	}))
	assert.PanicsWithValue(t, "boom", func() { _, _ = co.Resume(context.Background(), nil) })
	assert.Equal(t, ThreadDead, co.Status())
	assert.Same(t, state.MainThread(), state.CurrentThread())
}

func TestCoroutineClose(t *testing.T) {
	t.Parallel()
	state := New(conf.Default())
	ctx := context.Background()

	var upval *UpValue
	var closeErr error
	co := state.NewThread(Fn("gen", func(_ context.Context, call *CallContext, _ []Value) (int, error) {
		upval = call.State.getOrAddUpValue(call.Thread, call.FrameBase)
		closeErr = call.Thread.Close()
		for {
			if _, err := call.Thread.Yield(nil); err != nil {
				return 0, err
			}
		}
	}))
	_, err := co.Resume(ctx, values("captured"))
	require.NoError(t, err)
	require.ErrorContains(t, closeErr, "cannot close a running coroutine")
	assert.False(t, upval.IsClosed())

	require.NoError(t, co.Close())
	assert.Equal(t, ThreadDead, co.Status())
	assert.True(t, upval.IsClosed())
	assert.Equal(t, StringValue("captured"), upval.GetValue())
	require.NoError(t, co.Close())

	never := state.NewThread(Fn("never", func(context.Context, *CallContext, []Value) (int, error) { return 0, nil }))
	require.NoError(t, never.Close())
	assert.Equal(t, ThreadDead, never.Status())
}

func TestCoroutineCancellation(t *testing.T) {
	t.Parallel()
	state := New(conf.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	co := state.NewThread(Fn("wait", func(ctx context.Context, _ *CallContext, _ []Value) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}))
	_, err := co.Resume(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, isCancelled(err))
	assert.Equal(t, ThreadDead, co.Status())
}

func TestStateCloseKillsSuspendedCoroutines(t *testing.T) {
	t.Parallel()
	state := New(conf.Default())
	co := state.NewThread(Fn("gen", func(_ context.Context, call *CallContext, _ []Value) (int, error) {
		_, err := call.Thread.Yield(nil)
		return 0, err
	}))
	_, err := co.Resume(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, state.Close())
	assert.Equal(t, ThreadDead, co.Status())
	assert.Empty(t, state.coroutines)
}

func TestCoroutineLib(t *testing.T) {
	t.Parallel()
	state := newTestState(t)
	ctx := context.Background()
	lib := state.GetGlobal("coroutine").AsTable()
	libFn := func(name string) Value { return lib.GetString(name) }

	gen := FunctionValue(Fn("gen", func(ctx context.Context, call *CallContext, results []Value) (int, error) {
		yieldable, err := call.State.Call(ctx, libFn("isyieldable"))
		if err != nil {
			return 0, err
		}
		res, err := call.State.Call(ctx, libFn("yield"), yieldable[0], call.Arg(0))
		if err != nil {
			return 0, err
		}
		return Return(results, res...), nil
	}))

	res, err := state.Call(ctx, libFn("create"), gen)
	require.NoError(t, err)
	require.Equal(t, TypeThread, res[0].Type())
	co := res[0]

	res, err = state.Call(ctx, libFn("resume"), co, StringValue("first"))
	require.NoError(t, err)
	assert.Equal(t, values(true, true, "first"), res)

	res, err = state.Call(ctx, libFn("status"), co)
	require.NoError(t, err)
	assert.Equal(t, values("suspended"), res)

	res, err = state.Call(ctx, libFn("resume"), co, StringValue("second"))
	require.NoError(t, err)
	assert.Equal(t, values(true, "second"), res)

	res, err = state.Call(ctx, libFn("resume"), co)
	require.NoError(t, err)
	assert.Equal(t, values(false, "cannot resume dead coroutine"), res)

	res, err = state.Call(ctx, libFn("running"))
	require.NoError(t, err)
	assert.Equal(t, []Value{ThreadValue(state.MainThread()), BoolValue(true)}, res)

	res, err = state.Call(ctx, libFn("isyieldable"))
	require.NoError(t, err)
	assert.Equal(t, values(false), res)

	wrapped, err := state.Call(ctx, libFn("wrap"), gen)
	require.NoError(t, err)
	res, err = state.Call(ctx, wrapped[0], StringValue("a"))
	require.NoError(t, err)
	assert.Equal(t, values(true, "a"), res)
	res, err = state.Call(ctx, wrapped[0], StringValue("b"))
	require.NoError(t, err)
	assert.Equal(t, values("b"), res)
	_, err = state.Call(ctx, wrapped[0])
	require.ErrorContains(t, err, "cannot resume dead coroutine")

	failing := FunctionValue(Fn("failing", func(context.Context, *CallContext, []Value) (int, error) {
		return 0, errors.New("oops")
	}))
	res, err = state.Call(ctx, libFn("create"), failing)
	require.NoError(t, err)
	co = res[0]
	res, err = state.Call(ctx, libFn("resume"), co)
	require.NoError(t, err)
	assert.Equal(t, values(false, "oops"), res)
	res, err = state.Call(ctx, libFn("close"), co)
	require.NoError(t, err)
	assert.Equal(t, values(false, "oops"), res)
}
