package runtime

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/luacore/src/conf"
)

func TestEvalConsoleLine(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		desc    string
		line    string
		lastErr error
		out     string
		err     string
	}{
		{desc: "empty", line: "   "},
		{desc: "help", line: "help", out: consoleHelp + "\n"},
		{desc: "get value", line: "get answer", out: "42\n"},
		{desc: "get field", line: "get string.len", out: "function: "},
		{desc: "get missing", line: "get nope", out: "nil\n"},
		{desc: "get usage", line: "get", err: "usage: get <name[.field...]>"},
		{desc: "get through a number", line: "get answer.x", err: "attempt to index a number value"},
		{desc: "call", line: "call string.rep ab 2", out: "abab\n"},
		{desc: "call numbers", line: "call select 2 x 3", out: "3\n"},
		{desc: "call multiple results", line: "call select 1 x y", out: "x\ty\n"},
		{desc: "call usage", line: "call", err: "usage: call <name> [args...]"},
		{desc: "call nil", line: "call nope", err: "attempt to call a nil value"},
		{desc: "traceback without failure", line: "traceback", out: "no failure recorded\n"},
		{desc: "traceback", line: "traceback", lastErr: errors.New("last failure"), out: "last failure\n"},
		{desc: "unknown", line: "jump", err: `unknown command "jump", try help`},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			state := newTestState(t)
			state.SetGlobal("answer", NumberValue(42))
			var out bytes.Buffer
			err := state.evalConsoleLine(context.Background(), tc.line, &out, tc.lastErr)
			if tc.err != "" {
				require.ErrorContains(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tc.out)
			if tc.out == "" {
				assert.Empty(t, out.String())
			}
		})
	}
}

func TestEvalConsoleQuit(t *testing.T) {
	t.Parallel()
	state := newTestState(t)
	for _, line := range []string{"quit", "exit"} {
		err := state.evalConsoleLine(context.Background(), line, &bytes.Buffer{}, nil)
		require.ErrorIs(t, err, errQuit)
	}
}

func TestEvalConsoleGlobals(t *testing.T) {
	t.Parallel()
	state := New(conf.Default())
	state.SetGlobal("b", NumberValue(1))
	state.SetGlobal("a", NumberValue(2))
	var out bytes.Buffer
	require.NoError(t, state.evalConsoleLine(context.Background(), "globals", &out, nil))
	assert.Equal(t, "_G\na\nb\n", out.String())
}
