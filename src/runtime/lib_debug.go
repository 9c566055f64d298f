package runtime

import (
	"context"
	"strings"
)

func createDebugLib(*State) *Table {
	lib := NewTable(nil, nil)
	for name, fn := range map[string]NativeFunc{
		"gethook":   stdDebugGetHook,
		"sethook":   stdDebugSetHook,
		"traceback": stdDebugTraceback,
	} {
		lib.SetString(name, FunctionValue(Fn("debug."+name, fn)))
	}
	return lib
}

// threadArg reads the optional leading thread argument of the debug library.
func threadArg(call *CallContext) (*Thread, int) {
	if arg := call.Arg(0); arg.typ == TypeThread {
		return arg.AsThread(), 1
	}
	return call.Thread, 0
}

func stdDebugSetHook(_ context.Context, call *CallContext, _ []Value) (int, error) {
	thread, offset := threadArg(call)
	if call.Arg(offset).IsNil() {
		thread.SetHook(nil, 0)
		return 0, nil
	}
	hook, err := call.CheckFunction(offset)
	if err != nil {
		return 0, err
	}
	mask, err := call.CheckString(offset + 1)
	if err != nil {
		return 0, err
	}
	thread.SetHook(hook, ParseHookMask(mask))
	return 0, nil
}

func stdDebugGetHook(_ context.Context, call *CallContext, results []Value) (int, error) {
	thread, _ := threadArg(call)
	hook, mask := thread.Hook()
	if hook == nil {
		return Return(results, Nil), nil
	}
	return Return(results, FunctionValue(hook), StringValue(mask.String())), nil
}

func stdDebugTraceback(_ context.Context, call *CallContext, results []Value) (int, error) {
	thread, offset := threadArg(call)
	msg := call.Arg(offset)
	if !msg.IsNil() && msg.typ != TypeString && msg.typ != TypeNumber {
		return Return(results, msg), nil
	}
	var tb *Traceback
	if thread == call.Thread {
		tb = call.State.GetTraceback()
	} else {
		tb = call.State.threadTraceback(thread)
	}
	parts := []string{}
	if !msg.IsNil() {
		parts = append(parts, msg.String())
	}
	parts = append(parts, tb.String())
	return Return(results, StringValue(strings.Join(parts, "\n"))), nil
}
