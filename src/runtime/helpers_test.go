package runtime

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tanema/luacore/src/bytecode"
	"github.com/tanema/luacore/src/chunk"
	"github.com/tanema/luacore/src/conf"
)

const testFile = "test.lua"

var (
	iABC  = bytecode.IABC
	iAB   = bytecode.IAB
	iABCK = bytecode.IABCK
	iABx  = bytecode.IABx
	iAsBx = bytecode.IAsBx
)

func newTestState(t *testing.T) *State {
	t.Helper()
	state := New(conf.Default())
	state.Stdout = io.Discard
	state.OpenLibs()
	t.Cleanup(func() { require.NoError(t, state.Close()) })
	return state
}

// proto builds a function chunk, every instruction is on its own line.
func proto(name string, arity int64, varargs bool, consts []any, code ...uint32) *chunk.Chunk {
	fn := chunk.New(testFile, name, arity, varargs)
	fn.Constants = consts
	fn.MaxStackSize = 16
	for i, op := range code {
		fn.Code(op, chunk.LineInfo{Line: int64(i + 1)})
	}
	return fn
}

// mainProto builds a main chunk that sees the environment through _ENV.
func mainProto(consts []any, code ...uint32) *chunk.Chunk {
	fn := chunk.NewMain(testFile)
	fn.Constants = consts
	fn.MaxStackSize = 16
	for i, op := range code {
		fn.Code(op, chunk.LineInfo{Line: int64(i + 1)})
	}
	return fn
}

// capture adds upvalues captured from the registers of the enclosing function.
func capture(fn *chunk.Chunk, registers ...uint8) *chunk.Chunk {
	for _, reg := range registers {
		fn.UpIndexes = append(fn.UpIndexes, chunk.UpIndex{Name: "local", FromStack: true, Index: reg})
	}
	return fn
}

func runProto(state *State, fn *chunk.Chunk) ([]Value, error) {
	return runProtoCtx(context.Background(), state, fn)
}

func runProtoCtx(ctx context.Context, state *State, fn *chunk.Chunk) ([]Value, error) {
	results := make([]Value, 16)
	n, err := state.Run(ctx, fn, results)
	return results[:n], err
}

func values(vals ...any) []Value {
	out := make([]Value, len(vals))
	for i, val := range vals {
		out[i] = ValueOf(val)
	}
	return out
}

// recorder is a native function that stores its arguments on every call.
type recorder struct {
	calls [][]Value
}

func (r *recorder) fn(name string) *GoFunc {
	return Fn(name, func(_ context.Context, call *CallContext, _ []Value) (int, error) {
		r.calls = append(r.calls, call.Args())
		return 0, nil
	})
}
