package chunk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/luacore/src/bytecode"
)

func testChunk(t *testing.T) *Chunk {
	t.Helper()
	main := NewMain("test.lua")
	main.MaxStackSize = 2
	inner := New("test.lua", "add", 2, false)
	inner.MaxStackSize = 3
	inner.LineInfo = LineInfo{Line: 2, Column: 7}
	inner.Code(bytecode.IABC(bytecode.ADD, 2, 0, 1), LineInfo{Line: 3})
	inner.Code(bytecode.IAB(bytecode.RETURN, 2, 2), LineInfo{Line: 3})

	for _, k := range []any{nil, true, 42, "add", 1.5} {
		_, err := main.AddConst(k)
		require.NoError(t, err)
	}
	main.Code(bytecode.IABx(bytecode.CLOSURE, 0, main.AddFn(inner)), LineInfo{Line: 1})
	main.Code(bytecode.IAB(bytecode.RETURN, 0, 1), LineInfo{Line: 4})
	return main
}

func TestAddConst(t *testing.T) {
	t.Parallel()
	c := New("", "", 0, false)
	assert.Equal(t, "chunk", c.Name)

	idx, err := c.AddConst(int64(3))
	require.NoError(t, err)
	assert.Equal(t, uint16(0), idx)
	idx, err = c.AddConst(float64(3))
	require.NoError(t, err)
	assert.Equal(t, uint16(0), idx, "ints and floats share a constant")
	idx, err = c.AddConst("3")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), idx)
	assert.Equal(t, []any{float64(3), "3"}, c.Constants)
	assert.Nil(t, c.GetConst(12))

	_, err = c.AddConst([]int{})
	assert.EqualError(t, err, "cannot store a []int as a constant")
}

func TestLineAt(t *testing.T) {
	t.Parallel()
	main := testChunk(t)
	assert.Equal(t, int64(4), main.LineAt(1).Line)
	assert.Equal(t, int64(2), main.FnTable[0].LineAt(99).Line)
}

func TestDumpUndump(t *testing.T) {
	t.Parallel()
	main := testChunk(t)

	data, err := main.Dump(false)
	require.NoError(t, err)
	assert.True(t, IsBinary(data))

	loaded, err := Undump(data)
	require.NoError(t, err)
	assert.Equal(t, main, loaded)

	stripped, err := main.Dump(true)
	require.NoError(t, err)
	loaded, err = Read(bytes.NewReader(stripped))
	require.NoError(t, err)
	assert.Nil(t, loaded.LineTrace)
	assert.Nil(t, loaded.FnTable[0].LineTrace)
	assert.Equal(t, main.FnTable[0].ByteCodes, loaded.FnTable[0].ByteCodes)
	assert.NotNil(t, main.LineTrace, "stripping does not modify the original")
}

func TestUndumpErrors(t *testing.T) {
	t.Parallel()
	_, err := Undump([]byte("print('hello')"))
	assert.ErrorIs(t, err, ErrNotBinary)

	_, err = Undump([]byte("\x1bLuac\xff\xff"))
	assert.ErrorContains(t, err, "chunk: unmarshal")
}

func TestUndumpNilFunction(t *testing.T) {
	t.Parallel()
	main := NewMain("broken.lua")
	main.FnTable = []*Chunk{testChunk(t), nil}
	for _, strip := range []bool{false, true} {
		data, err := main.Dump(strip)
		require.NoError(t, err)
		_, err = Undump(data)
		require.EqualError(t, err, "chunk: <main> has a nil function at 1")
	}

	path := filepath.Join(t.TempDir(), "broken.luac")
	data, err := main.Dump(false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	_, err = File(path)
	require.ErrorContains(t, err, "has a nil function at 1")
}

func TestFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "main.luac")
	data, err := testChunk(t).Dump(false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, "<main>", loaded.Name)

	_, err = File(filepath.Join(t.TempDir(), "nope.luac"))
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	t.Parallel()
	out := testChunk(t).String()
	assert.Contains(t, out, "<main> <test.lua:0> (2 instructions)")
	assert.Contains(t, out, "0+ params, 1 upvalues, 2 slots, 5 constants, 1 functions")
	assert.Contains(t, out, "add <test.lua:2> (2 instructions)")
	assert.Contains(t, out, "[3]\tADD        2     0     1    ")
}
