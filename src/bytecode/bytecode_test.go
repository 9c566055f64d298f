package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytecodeABC(t *testing.T) {
	t.Parallel()
	t.Run("iAB", func(t *testing.T) {
		t.Parallel()
		code := IAB(MOVE, 12, 22)
		assert.Equal(t, MOVE, GetOp(code))
		assert.Equal(t, int64(12), GetA(code))
		b, bK := GetBK(code)
		assert.Equal(t, int64(22), b)
		assert.False(t, bK)
		c, cK := GetCK(code)
		assert.Equal(t, int64(0), c)
		assert.False(t, cK)
		assert.Equal(t, formatABC, GetOp(code).format())
	})

	t.Run("iABCK", func(t *testing.T) {
		t.Parallel()
		code := IABCK(ADD, 12, 22, true, 255, true)
		assert.Equal(t, ADD, GetOp(code))
		assert.Equal(t, int64(12), GetA(code))
		b, bK := GetBK(code)
		assert.Equal(t, int64(22), b)
		assert.True(t, bK)
		c, cK := GetCK(code)
		assert.Equal(t, int64(255), c)
		assert.True(t, cK)
		assert.Equal(t, int64(22), GetB(code))
		assert.Equal(t, int64(255), GetC(code))
	})

	t.Run("iABx", func(t *testing.T) {
		t.Parallel()
		code := IABx(LOADK, 12, 300)
		a, x := GetA(code), GetBx(code)
		assert.Equal(t, LOADK, GetOp(code))
		assert.Equal(t, int64(12), a)
		assert.Equal(t, int64(300), x)
		assert.Equal(t, formatABx, GetOp(code).format())
	})

	t.Run("iAsBx", func(t *testing.T) {
		t.Parallel()
		code := IAsBx(JMP, 12, -300)
		a, xs := GetA(code), GetsBx(code)
		assert.Equal(t, JMP, GetOp(code))
		assert.Equal(t, int64(12), a)
		assert.Equal(t, int64(-300), xs)
		assert.Equal(t, formatAsBx, GetOp(code).format())
	})
}

func TestToString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "MOVE       1     2     0    ", ToString(IAB(MOVE, 1, 2)))
	assert.Equal(t, "ADD        0     1k    2    ", ToString(IABCK(ADD, 0, 1, true, 2, false)))
	assert.Equal(t, "LOADK      3     7          ", ToString(IABx(LOADK, 3, 7)))
	assert.Equal(t, "JMP        0     -2         ", ToString(IAsBx(JMP, 0, -2)))
	assert.Equal(t, "LOADI      2     -5         ", ToString(IAsBx(LOADI, 2, -5)))
	assert.Equal(t, "EXARG      63   ", ToString(63))
	assert.Equal(t, "UNDEFINED", Op(63).String())
	assert.Equal(t, "VARARG", VARARG.String())
}
