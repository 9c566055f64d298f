package runtime

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/tanema/luacore/src/conf"
)

// OpenLibs registers the builtin functions and libraries in the environment
// and marks every library as loaded.
func (s *State) OpenLibs() {
	env := s.environment
	env.SetString("_VERSION", StringValue(conf.LUAVERSION))
	env.SetString("HOST_OS", StringValue(runtime.GOOS))
	env.SetString("HOST_ARCH", StringValue(runtime.GOARCH))
	for name, fn := range map[string]NativeFunc{
		"assert":       stdAssert,
		"error":        stdError,
		"getmetatable": stdGetMetatable,
		"ipairs":       stdIPairs,
		"next":         stdNext,
		"pairs":        stdPairs,
		"pcall":        stdPCall,
		"print":        stdPrint,
		"printf":       stdPrintf,
		"rawequal":     stdRawEq,
		"rawget":       stdRawGet,
		"rawlen":       stdRawLen,
		"rawset":       stdRawSet,
		"require":      stdRequire,
		"select":       stdSelect,
		"setmetatable": stdSetMetatable,
		"tonumber":     stdToNumber,
		"tostring":     stdToString,
		"type":         stdType,
		"warn":         stdWarn,
		"xpcall":       stdXPCall,
	} {
		env.SetString(name, FunctionValue(Fn(name, fn)))
	}

	for name, fact := range map[string]func(*State) *Table{
		"coroutine": createCoroutineLib,
		"debug":     createDebugLib,
		"os":        createOSLib,
		"package":   createPackageLib,
		"string":    createStringLib,
	} {
		lib := TableValue(fact(s))
		env.SetString(name, lib)
		s.packages.SetString(name, lib)
	}
	s.packages.SetString("_G", TableValue(env))
}

func stdPrint(ctx context.Context, call *CallContext, _ []Value) (int, error) {
	parts := make([]string, call.ArgumentCount)
	for i := range parts {
		str, err := call.State.toString(ctx, call.Thread, call.Arg(i))
		if err != nil {
			return 0, err
		}
		parts[i] = str
	}
	_, err := fmt.Fprintln(call.State.Stdout, strings.Join(parts, "\t"))
	return 0, err
}

func stdAssert(_ context.Context, call *CallContext, results []Value) (int, error) {
	if _, err := call.CheckAny(0); err != nil {
		return 0, err
	}
	if call.Arg(0).ToBoolean() {
		return Return(results, call.Args()...), nil
	}
	msg := StringValue("assertion failed!")
	if call.HasArg(1) {
		msg = call.Arg(1)
	}
	return 0, newUserErr(call, msg, 0)
}

func stdError(_ context.Context, call *CallContext, _ []Value) (int, error) {
	level, err := call.OptInteger(1, 1)
	if err != nil {
		return 0, err
	}
	return 0, newUserErr(call, call.Arg(0), level)
}

func stdPCall(ctx context.Context, call *CallContext, results []Value) (int, error) {
	if _, err := call.CheckAny(0); err != nil {
		return 0, err
	}
	res, err := call.State.call(ctx, call.Thread, call.Arg(0), call.ArgsFrom(1), -1)
	if err != nil {
		if isCancelled(err) {
			return 0, err
		}
		return Return(results, BoolValue(false), errorValue(err)), nil
	}
	return Return(results, append([]Value{BoolValue(true)}, res...)...), nil
}

func stdXPCall(ctx context.Context, call *CallContext, results []Value) (int, error) {
	if _, err := call.CheckAny(0); err != nil {
		return 0, err
	}
	handler, err := call.CheckFunction(1)
	if err != nil {
		return 0, err
	}
	res, err := call.State.call(ctx, call.Thread, call.Arg(0), call.ArgsFrom(2), -1)
	if err != nil {
		if isCancelled(err) {
			return 0, err
		}
		handled, herr := call.State.call(ctx, call.Thread, FunctionValue(handler), []Value{errorValue(err)}, -1)
		if herr != nil {
			return 0, herr
		}
		return Return(results, append([]Value{BoolValue(false)}, handled...)...), nil
	}
	return Return(results, append([]Value{BoolValue(true)}, res...)...), nil
}

func stdToString(ctx context.Context, call *CallContext, results []Value) (int, error) {
	val, err := call.CheckAny(0)
	if err != nil {
		return 0, err
	}
	str, err := call.State.toString(ctx, call.Thread, val)
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(str)), nil
}

func stdToNumber(_ context.Context, call *CallContext, results []Value) (int, error) {
	val, err := call.CheckAny(0)
	if err != nil {
		return 0, err
	}
	if !call.HasArg(1) || call.Arg(1).IsNil() {
		if n, ok := val.ToNumber(); ok {
			return Return(results, NumberValue(n)), nil
		}
		return Return(results, Nil), nil
	}
	base, err := call.CheckInteger(1)
	if err != nil {
		return 0, err
	} else if base < 2 || base > 36 {
		return 0, call.argErr(1, "base out of range")
	}
	str, err := call.CheckString(0)
	if err != nil {
		return 0, err
	}
	n, perr := strconv.ParseInt(strings.ToLower(strings.TrimSpace(str)), int(base), 64)
	if perr != nil {
		return Return(results, Nil), nil
	}
	return Return(results, NumberValue(float64(n))), nil
}

func stdType(_ context.Context, call *CallContext, results []Value) (int, error) {
	val, err := call.CheckAny(0)
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(val.TypeName())), nil
}

func stdSelect(_ context.Context, call *CallContext, results []Value) (int, error) {
	if call.Arg(0).typ == TypeString && call.Arg(0).AsString() == "#" {
		return Return(results, NumberValue(float64(call.ArgumentCount-1))), nil
	}
	idx, err := call.CheckInteger(0)
	if err != nil {
		return 0, err
	}
	rest := call.ArgumentCount - 1
	switch {
	case idx < 0 && -idx <= int64(rest):
		return Return(results, call.ArgsFrom(int(int64(call.ArgumentCount)+idx))...), nil
	case idx <= 0:
		return 0, call.argErr(0, "index out of range")
	default:
		return Return(results, call.ArgsFrom(int(idx))...), nil
	}
}

func stdRawGet(_ context.Context, call *CallContext, results []Value) (int, error) {
	tbl, err := call.CheckTable(0)
	if err != nil {
		return 0, err
	}
	return Return(results, tbl.Get(call.Arg(1))), nil
}

func stdRawSet(_ context.Context, call *CallContext, results []Value) (int, error) {
	tbl, err := call.CheckTable(0)
	if err != nil {
		return 0, err
	} else if err := tbl.Set(call.Arg(1), call.Arg(2)); err != nil {
		return 0, err
	}
	return Return(results, call.Arg(0)), nil
}

func stdRawEq(_ context.Context, call *CallContext, results []Value) (int, error) {
	return Return(results, BoolValue(RawEquals(call.Arg(0), call.Arg(1)))), nil
}

func stdRawLen(_ context.Context, call *CallContext, results []Value) (int, error) {
	switch val := call.Arg(0); val.typ {
	case TypeTable:
		return Return(results, NumberValue(float64(val.AsTable().Len()))), nil
	case TypeString:
		return Return(results, NumberValue(float64(len(val.AsString())))), nil
	default:
		return 0, call.argErr(0, "table or string expected")
	}
}

func stdSetMetatable(_ context.Context, call *CallContext, results []Value) (int, error) {
	tbl, err := call.CheckTable(0)
	if err != nil {
		return 0, err
	}
	var mt *Table
	switch mtVal := call.Arg(1); mtVal.typ {
	case TypeNil:
	case TypeTable:
		mt = mtVal.AsTable()
	default:
		return 0, call.argErr(1, "nil or table expected")
	}
	if cur := tbl.Metatable(); cur != nil && !cur.GetString(string(MetaMeta)).IsNil() {
		return 0, fmt.Errorf("cannot change a protected metatable")
	}
	tbl.SetMetatable(mt)
	return Return(results, call.Arg(0)), nil
}

func stdGetMetatable(_ context.Context, call *CallContext, results []Value) (int, error) {
	mt, ok := call.State.TryGetMetatable(call.Arg(0))
	if !ok {
		return Return(results, Nil), nil
	}
	if protected := mt.GetString(string(MetaMeta)); !protected.IsNil() {
		return Return(results, protected), nil
	}
	return Return(results, TableValue(mt)), nil
}

func stdNext(_ context.Context, call *CallContext, results []Value) (int, error) {
	tbl, err := call.CheckTable(0)
	if err != nil {
		return 0, err
	}
	key, val, err := tbl.Next(call.Arg(1))
	if err != nil {
		return 0, err
	} else if key.IsNil() {
		return Return(results, Nil), nil
	}
	return Return(results, key, val), nil
}

var nextFn = Fn("next", stdNext)

func stdPairs(ctx context.Context, call *CallContext, results []Value) (int, error) {
	val, err := call.CheckAny(0)
	if err != nil {
		return 0, err
	}
	if handler := call.State.metamethod(val, MetaPairs); !handler.IsNil() {
		res, err := call.State.call(ctx, call.Thread, handler, []Value{val}, 3)
		if err != nil {
			return 0, err
		}
		return Return(results, res...), nil
	}
	if _, err := call.CheckTable(0); err != nil {
		return 0, err
	}
	return Return(results, FunctionValue(nextFn), val, Nil), nil
}

var ipairsIterator = Fn("ipairs_iterator", func(ctx context.Context, call *CallContext, results []Value) (int, error) {
	idx, err := call.CheckInteger(1)
	if err != nil {
		return 0, err
	}
	key := NumberValue(float64(idx + 1))
	val, err := call.State.index(ctx, call.Thread, call.Arg(0), key)
	if err != nil {
		return 0, err
	} else if val.IsNil() {
		return Return(results, Nil), nil
	}
	return Return(results, key, val), nil
})

func stdIPairs(_ context.Context, call *CallContext, results []Value) (int, error) {
	val, err := call.CheckAny(0)
	if err != nil {
		return 0, err
	}
	return Return(results, FunctionValue(ipairsIterator), val, NumberValue(0)), nil
}

func stdWarn(_ context.Context, call *CallContext, _ []Value) (int, error) {
	parts := make([]string, call.ArgumentCount)
	for i := range parts {
		str, err := call.CheckString(i)
		if err != nil {
			return 0, err
		}
		parts[i] = str
	}
	msg := strings.Join(parts, "")
	switch msg {
	case "@on":
		call.State.config.Runtime.Warnings = true
	case "@off":
		call.State.config.Runtime.Warnings = false
	default:
		if call.State.config.Runtime.Warnings {
			call.State.logger.Warn(msg, "chunk", call.RootChunkName)
		}
	}
	return 0, nil
}
