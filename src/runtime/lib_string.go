package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/tanema/luacore/src/lstring"
)

// createStringLib builds the string library and makes it the __index of the
// string metatable so methods can be called on string values.
func createStringLib(s *State) *Table {
	lib := NewTable(nil, nil)
	for name, fn := range map[string]NativeFunc{
		"format":  stdStringFormat,
		"len":     stdStringLen,
		"lower":   stdStringLower,
		"rep":     stdStringRep,
		"reverse": stdStringReverse,
		"sub":     stdStringSub,
		"upper":   stdStringUpper,
	} {
		lib.SetString(name, FunctionValue(Fn("string."+name, fn)))
	}
	mt := NewTable(nil, nil)
	mt.SetString(string(MetaIndex), TableValue(lib))
	s.SetMetatable(StringValue(""), mt)
	return lib
}

// formatArgs converts values to the go values lstring.Format understands.
func formatArgs(vals []Value) []any {
	args := make([]any, len(vals))
	for i, val := range vals {
		switch val.typ {
		case TypeNil:
			args[i] = nil
		case TypeBoolean:
			args[i] = val.AsBool()
		case TypeNumber:
			args[i] = val.AsNumber()
		case TypeString:
			args[i] = val.AsString()
		default:
			args[i] = val
		}
	}
	return args
}

func stdStringFormat(_ context.Context, call *CallContext, results []Value) (int, error) {
	tmpl, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	str, err := lstring.Format(tmpl, formatArgs(call.ArgsFrom(1))...)
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(str)), nil
}

func stdPrintf(_ context.Context, call *CallContext, _ []Value) (int, error) {
	tmpl, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	str, err := lstring.Format(tmpl, formatArgs(call.ArgsFrom(1))...)
	if err != nil {
		return 0, err
	}
	_, err = fmt.Fprint(call.State.Stdout, str)
	return 0, err
}

func stdStringLen(_ context.Context, call *CallContext, results []Value) (int, error) {
	str, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	return Return(results, NumberValue(float64(len(str)))), nil
}

func stdStringLower(_ context.Context, call *CallContext, results []Value) (int, error) {
	str, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(strings.ToLower(str))), nil
}

func stdStringUpper(_ context.Context, call *CallContext, results []Value) (int, error) {
	str, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(strings.ToUpper(str))), nil
}

func stdStringReverse(_ context.Context, call *CallContext, results []Value) (int, error) {
	str, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(lstring.Reverse(str))), nil
}

func stdStringRep(_ context.Context, call *CallContext, results []Value) (int, error) {
	str, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	count, err := call.CheckInteger(1)
	if err != nil {
		return 0, err
	}
	sep, err := call.OptString(2, "")
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(lstring.Repeat(str, sep, count))), nil
}

func stdStringSub(_ context.Context, call *CallContext, results []Value) (int, error) {
	str, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	start, err := call.OptInteger(1, 1)
	if err != nil {
		return 0, err
	}
	end, err := call.OptInteger(2, -1)
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(lstring.Substring(str, start, end))), nil
}
