package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type (
	// ValueType is the tag of a Value.
	ValueType uint8
	// Value is any value that a script can hold. It is a small tagged union that
	// is comparable with == so it can be used directly as a table key. Numbers are
	// always float64, booleans are stored in num as 0 or 1 and every reference
	// type lives in ref.
	Value struct {
		ref any
		num float64
		typ ValueType
	}
)

const (
	// TypeNil is the zero value of Value.
	TypeNil ValueType = iota
	// TypeBoolean is true or false.
	TypeBoolean
	// TypeNumber is a float64.
	TypeNumber
	// TypeString is an immutable string.
	TypeString
	// TypeFunction is either a *GoFunc or *Closure.
	TypeFunction
	// TypeTable is a *Table.
	TypeTable
	// TypeUserData is host data implementing UserData.
	TypeUserData
	// TypeThread is a *Thread, which is a coroutine handle.
	TypeThread

	typeCount
)

var typeNames = [typeCount]string{"nil", "boolean", "number", "string", "function", "table", "userdata", "thread"}

// Nil is the nil value, equal to the zero Value.
var Nil = Value{}

func (t ValueType) String() string {
	if t >= typeCount {
		return "unknown"
	}
	return typeNames[t]
}

// BoolValue wraps a bool.
func BoolValue(b bool) Value {
	if b {
		return Value{typ: TypeBoolean, num: 1}
	}
	return Value{typ: TypeBoolean}
}

// NumberValue wraps a float64.
func NumberValue(n float64) Value { return Value{typ: TypeNumber, num: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{typ: TypeString, ref: s} }

// FunctionValue wraps a *GoFunc or *Closure.
func FunctionValue(fn Function) Value {
	if fn == nil {
		return Nil
	}
	return Value{typ: TypeFunction, ref: fn}
}

// TableValue wraps a table.
func TableValue(tbl *Table) Value {
	if tbl == nil {
		return Nil
	}
	return Value{typ: TypeTable, ref: tbl}
}

// UserDataValue wraps host data. The data must be comparable, a pointer is
// the usual choice.
func UserDataValue(ud UserData) Value {
	if ud == nil {
		return Nil
	}
	return Value{typ: TypeUserData, ref: ud}
}

// ThreadValue wraps a thread.
func ThreadValue(thread *Thread) Value {
	if thread == nil {
		return Nil
	}
	return Value{typ: TypeThread, ref: thread}
}

// ValueOf converts a go value into a Value. It panics if the value has no
// representation.
func ValueOf(in any) Value {
	switch tin := in.(type) {
	case nil:
		return Nil
	case Value:
		return tin
	case bool:
		return BoolValue(tin)
	case int:
		return NumberValue(float64(tin))
	case int64:
		return NumberValue(float64(tin))
	case float64:
		return NumberValue(tin)
	case string:
		return StringValue(tin)
	case Function:
		return FunctionValue(tin)
	case *Table:
		return TableValue(tin)
	case *Thread:
		return ThreadValue(tin)
	case UserData:
		return UserDataValue(tin)
	default:
		panic(fmt.Sprintf("cannot convert %T to a lua value", in))
	}
}

// Type returns the tag of the value.
func (v Value) Type() ValueType { return v.typ }

// TypeName returns the lua name of the value type.
func (v Value) TypeName() string { return v.typ.String() }

// IsNil reports if the value is nil.
func (v Value) IsNil() bool { return v.typ == TypeNil }

// AsBool reads a boolean without checking the tag.
func (v Value) AsBool() bool {
	v.mustBe(TypeBoolean)
	return v.num != 0
}

// AsNumber reads a number without coercion.
func (v Value) AsNumber() float64 {
	v.mustBe(TypeNumber)
	return v.num
}

// AsString reads a string without coercion.
func (v Value) AsString() string { return v.ref.(string) }

// AsFunction reads a function.
func (v Value) AsFunction() Function { return v.ref.(Function) }

// AsTable reads a table.
func (v Value) AsTable() *Table { return v.ref.(*Table) }

// AsUserData reads userdata.
func (v Value) AsUserData() UserData { return v.ref.(UserData) }

// AsThread reads a thread.
func (v Value) AsThread() *Thread { return v.ref.(*Thread) }

func (v Value) mustBe(typ ValueType) {
	if v.typ != typ {
		panic(fmt.Sprintf("value is a %v not a %v", v.typ, typ))
	}
}

// ToBoolean is lua truthiness, only nil and false are falsy.
func (v Value) ToBoolean() bool {
	switch v.typ {
	case TypeNil:
		return false
	case TypeBoolean:
		return v.num != 0
	default:
		return true
	}
}

// ToNumber converts numbers and numeric strings.
func (v Value) ToNumber() (float64, bool) {
	switch v.typ {
	case TypeNumber:
		return v.num, true
	case TypeString:
		return parseNumber(v.ref.(string))
	default:
		return 0, false
	}
}

// ToInteger converts the value to a number that has an exact integer representation.
func (v Value) ToInteger() (int64, bool) {
	n, ok := v.ToNumber()
	if !ok {
		return 0, false
	}
	return floatToInt(n)
}

// Metatable returns the metatable owned by a table or userdata. Other types
// share a metatable through the State.
func (v Value) Metatable() *Table {
	switch v.typ {
	case TypeTable:
		return v.AsTable().Metatable()
	case TypeUserData:
		return v.AsUserData().Metatable()
	default:
		return nil
	}
}

// RawEquals compares two values without metamethods.
func RawEquals(a, b Value) bool {
	return a == b
}

func (v Value) String() string {
	switch v.typ {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return strconv.FormatBool(v.num != 0)
	case TypeNumber:
		return formatNumber(v.num)
	case TypeString:
		return v.ref.(string)
	case TypeFunction:
		return v.AsFunction().String()
	case TypeTable:
		return fmt.Sprintf("table: %p", v.ref)
	case TypeUserData:
		return fmt.Sprintf("userdata: %p", v.ref)
	case TypeThread:
		return fmt.Sprintf("thread: %p", v.ref)
	default:
		return fmt.Sprintf("Unknown value type: %v", v.typ)
	}
}

func formatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case math.IsNaN(n):
		return "nan"
	case n == math.Trunc(n) && math.Abs(n) < 1e15:
		return strconv.FormatInt(int64(n), 10)
	default:
		return strconv.FormatFloat(n, 'g', 14, 64)
	}
}

func parseNumber(str string) (float64, bool) {
	str = strings.TrimSpace(str)
	if str == "" {
		return 0, false
	}
	lower := strings.ToLower(str)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") {
		return 0, false
	} else if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "-0x") {
		neg := strings.HasPrefix(lower, "-")
		ival, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(lower, "-"), "0x"), 16, 64)
		if err != nil {
			return 0, false
		}
		if neg {
			return -float64(ival), true
		}
		return float64(ival), true
	}
	fval, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, false
	}
	return fval, true
}

func floatToInt(n float64) (int64, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return 0, false
	}
	if n < math.MinInt64 || n >= math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}
