package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	t.Parallel()
	tbl := NewTable(nil, nil)
	fn := Fn("f", nil)
	testcases := []struct {
		in       any
		typ      ValueType
		typeName string
	}{
		{nil, TypeNil, "nil"},
		{true, TypeBoolean, "boolean"},
		{1, TypeNumber, "number"},
		{int64(1), TypeNumber, "number"},
		{1.5, TypeNumber, "number"},
		{"s", TypeString, "string"},
		{fn, TypeFunction, "function"},
		{tbl, TypeTable, "table"},
		{NewUserData(nil, nil), TypeUserData, "userdata"},
		{NumberValue(3), TypeNumber, "number"},
	}
	for _, tc := range testcases {
		val := ValueOf(tc.in)
		assert.Equal(t, tc.typ, val.Type())
		assert.Equal(t, tc.typeName, val.TypeName())
	}
	assert.Panics(t, func() { ValueOf(struct{}{}) })
	assert.Panics(t, func() { StringValue("x").AsNumber() })
	assert.Equal(t, Nil, TableValue(nil))
	assert.Equal(t, Nil, FunctionValue(nil))
}

func TestValueConversions(t *testing.T) {
	t.Parallel()
	testcases := []struct {
		val     Value
		truthy  bool
		num     float64
		isNum   bool
		integer int64
		isInt   bool
		str     string
	}{
		{val: Nil, str: "nil"},
		{val: BoolValue(false), str: "false"},
		{val: BoolValue(true), truthy: true, str: "true"},
		{val: NumberValue(0), truthy: true, isNum: true, isInt: true, str: "0"},
		{val: NumberValue(2.5), truthy: true, num: 2.5, isNum: true, str: "2.5"},
		{val: NumberValue(-3), truthy: true, num: -3, isNum: true, integer: -3, isInt: true, str: "-3"},
		{val: NumberValue(math.Inf(1)), truthy: true, num: math.Inf(1), isNum: true, str: "inf"},
		{val: StringValue(" 10 "), truthy: true, num: 10, isNum: true, integer: 10, isInt: true, str: " 10 "},
		{val: StringValue("0x1F"), truthy: true, num: 31, isNum: true, integer: 31, isInt: true, str: "0x1F"},
		{val: StringValue("1e2"), truthy: true, num: 100, isNum: true, integer: 100, isInt: true, str: "1e2"},
		{val: StringValue("abc"), truthy: true, str: "abc"},
		{val: StringValue("nan"), truthy: true, str: "nan"},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.truthy, tc.val.ToBoolean(), tc.str)
		num, isNum := tc.val.ToNumber()
		assert.Equal(t, tc.isNum, isNum, tc.str)
		assert.Equal(t, tc.num, num, tc.str)
		integer, isInt := tc.val.ToInteger()
		assert.Equal(t, tc.isInt, isInt, tc.str)
		assert.Equal(t, tc.integer, integer, tc.str)
		assert.Equal(t, tc.str, tc.val.String())
	}
}

func TestRawEquals(t *testing.T) {
	t.Parallel()
	tbl := NewTable(nil, nil)
	assert.True(t, RawEquals(NumberValue(1), NumberValue(1)))
	assert.True(t, RawEquals(StringValue("a"), StringValue("a")))
	assert.True(t, RawEquals(TableValue(tbl), TableValue(tbl)))
	assert.False(t, RawEquals(TableValue(tbl), TableValue(NewTable(nil, nil))))
	assert.False(t, RawEquals(NumberValue(1), StringValue("1")))
	assert.False(t, RawEquals(BoolValue(false), Nil))
}

func TestValueMetatable(t *testing.T) {
	t.Parallel()
	mt := NewTable(nil, nil)
	tbl := NewTable(nil, nil)
	tbl.SetMetatable(mt)
	assert.Same(t, mt, TableValue(tbl).Metatable())
	assert.Same(t, mt, UserDataValue(NewUserData(1, mt)).Metatable())
	assert.Nil(t, StringValue("x").Metatable())
}

func TestStack(t *testing.T) {
	t.Parallel()
	stack := newStack(2, 8)
	require.NoError(t, stack.Push(NumberValue(1), NumberValue(2), NumberValue(3)))
	assert.Equal(t, 3, stack.Top())
	assert.Equal(t, values(2, 3), stack.Slice(1, 3))
	assert.Equal(t, Nil, stack.Get(100))

	require.NoError(t, stack.SetTop(1))
	assert.Equal(t, NumberValue(2), stack.Get(1), "slots above top keep their value")
	require.NoError(t, stack.Set(7, StringValue("last")))
	assert.Equal(t, StringValue("last"), stack.Get(7))

	require.ErrorContains(t, stack.Set(8, Nil), "stack overflow")
	require.ErrorContains(t, stack.SetTop(9), "stack overflow")
	require.Error(t, stack.Set(-1, Nil))
	assert.Empty(t, stack.Slice(3, 2))

	stack.reset()
	assert.Equal(t, 0, stack.Top())
	assert.Equal(t, Nil, stack.Get(0))
}
