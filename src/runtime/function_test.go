package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/luacore/src/bytecode"
)

func TestHooks(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		desc   string
		mask   string
		fail   bool
		events []string
	}{
		{desc: "call and return", mask: "cr", events: []string{"call", "return"}},
		{desc: "call only", mask: "c", events: []string{"call"}},
		{desc: "return only", mask: "r", events: []string{"return"}},
		{desc: "no return event on failure", mask: "cr", fail: true, events: []string{"call"}},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			state := newTestState(t)
			ctx := context.Background()
			var events []string
			hook := Fn("hook", func(ctx context.Context, call *CallContext, _ []Value) (int, error) {
				events = append(events, call.Arg(0).String())
				assert.True(t, call.Thread.IsInHook())
				// calls made by the hook are not hooked again
				_, err := call.State.Call(ctx, state.GetGlobal("type"), Nil)
				return 0, err
			})
			target := Fn("target", func(context.Context, *CallContext, []Value) (int, error) {
				if tc.fail {
					return 0, errors.New("target failed")
				}
				return 0, nil
			})

			thread := state.MainThread()
			thread.SetHook(hook, ParseHookMask(tc.mask))
			assert.Equal(t, tc.mask, thread.HookMask().String())
			_, err := state.Call(ctx, FunctionValue(target))
			if tc.fail {
				require.ErrorContains(t, err, "target failed")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.events, events)
			assert.False(t, thread.IsInHook())
			assert.Equal(t, 0, thread.CallStackDepth())
		})
	}
}

func TestHookFramesAreMarked(t *testing.T) {
	t.Parallel()
	state := newTestState(t)
	var frames []CallStackFrame
	hook := Fn("hook", func(_ context.Context, call *CallContext, _ []Value) (int, error) {
		frames = call.Thread.CallStack()
		return 0, nil
	})
	thread := state.MainThread()
	thread.SetHook(hook, HookCall)
	_, err := state.Call(context.Background(), state.GetGlobal("type"), Nil)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.False(t, frames[0].IsHook)
	assert.True(t, frames[1].IsHook)

	thread.SetHook(nil, HookCall)
	fn, mask := thread.Hook()
	assert.Nil(t, fn)
	assert.Equal(t, HookMask(0), mask)
}

func TestDebugHookLib(t *testing.T) {
	t.Parallel()
	state := newTestState(t)
	ctx := context.Background()
	debug := state.GetGlobal("debug").AsTable()
	rec := &recorder{}
	hook := FunctionValue(rec.fn("hook"))

	_, err := state.Call(ctx, debug.GetString("sethook"), hook, StringValue("c"))
	require.NoError(t, err)
	res, err := state.Call(ctx, debug.GetString("gethook"))
	require.NoError(t, err)
	assert.Equal(t, []Value{hook, StringValue("c")}, res)
	assert.Equal(t, [][]Value{values("call")}, rec.calls)

	_, err = state.Call(ctx, debug.GetString("sethook"))
	require.NoError(t, err)
	res, err = state.Call(ctx, debug.GetString("gethook"))
	require.NoError(t, err)
	assert.Equal(t, values(nil), res)
}

func TestReturnHookSeesScriptCalls(t *testing.T) {
	t.Parallel()
	state := newTestState(t)
	rec := &recorder{}
	state.MainThread().SetHook(rec.fn("hook"), HookCall|HookReturn)
	_, err := runProto(state, mainProto([]any{"type", 1.0},
		iABCK(bytecode.GETTABUP, 0, 0, false, 0, true), iABx(bytecode.LOADK, 1, 1),
		iABC(bytecode.CALL, 0, 2, 2), iAB(bytecode.RETURN, 0, 2),
	))
	require.NoError(t, err)
	assert.Equal(t, [][]Value{values("call"), values("call"), values("return"), values("return")}, rec.calls)
}

func TestParseHookMask(t *testing.T) {
	t.Parallel()
	assert.Equal(t, HookCall|HookReturn, ParseHookMask("crl"))
	assert.Equal(t, HookMask(0), ParseHookMask(""))
	assert.Equal(t, "cr", (HookCall | HookReturn).String())
}
