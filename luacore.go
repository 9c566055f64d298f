package luacore

import (
	"context"

	"github.com/tanema/luacore/src/chunk"
	"github.com/tanema/luacore/src/conf"
	"github.com/tanema/luacore/src/runtime"
)

// Run executes a chunk on a state and returns every value the chunk returned.
func Run(ctx context.Context, state *runtime.State, fn *chunk.Chunk) ([]runtime.Value, error) {
	results := make([]runtime.Value, conf.MAXRESULTS)
	n, err := state.Run(ctx, fn, results)
	if err != nil {
		return nil, err
	}
	return results[:n], nil
}

// Chunk runs a chunk in a fresh state with the builtin libraries loaded.
func Chunk(ctx context.Context, fn *chunk.Chunk) ([]runtime.Value, error) {
	state := runtime.New(conf.Default())
	state.OpenLibs()
	defer func() { _ = state.Close() }()
	return Run(ctx, state, fn)
}

// File will undump and run a compiled chunk file.
func File(ctx context.Context, path string) ([]runtime.Value, error) {
	fn, err := chunk.File(path)
	if err != nil {
		return nil, err
	}
	return Chunk(ctx, fn)
}

// Bytes will undump and run a compiled chunk.
func Bytes(ctx context.Context, data []byte) ([]runtime.Value, error) {
	fn, err := chunk.Undump(data)
	if err != nil {
		return nil, err
	}
	return Chunk(ctx, fn)
}
