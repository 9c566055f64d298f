package runtime

import "context"

func createCoroutineLib(*State) *Table {
	lib := NewTable(nil, nil)
	for name, fn := range map[string]NativeFunc{
		"close":       stdThreadClose,
		"create":      stdThreadCreate,
		"isyieldable": stdThreadIsYieldable,
		"resume":      stdThreadResume,
		"running":     stdThreadRunning,
		"status":      stdThreadStatus,
		"wrap":        stdThreadWrap,
		"yield":       stdThreadYield,
	} {
		lib.SetString(name, FunctionValue(Fn("coroutine."+name, fn)))
	}
	return lib
}

func stdThreadCreate(_ context.Context, call *CallContext, results []Value) (int, error) {
	fn, err := call.CheckFunction(0)
	if err != nil {
		return 0, err
	}
	return Return(results, ThreadValue(call.State.NewThread(fn))), nil
}

func stdThreadResume(ctx context.Context, call *CallContext, results []Value) (int, error) {
	co, err := call.CheckThread(0)
	if err != nil {
		return 0, err
	}
	res, err := co.Resume(ctx, call.ArgsFrom(1))
	if err != nil {
		if isCancelled(err) {
			return 0, err
		}
		return Return(results, BoolValue(false), errorValue(err)), nil
	}
	return Return(results, append([]Value{BoolValue(true)}, res...)...), nil
}

func stdThreadYield(_ context.Context, call *CallContext, results []Value) (int, error) {
	res, err := call.Thread.Yield(call.Args())
	if err != nil {
		return 0, err
	}
	return Return(results, res...), nil
}

func stdThreadStatus(_ context.Context, call *CallContext, results []Value) (int, error) {
	co, err := call.CheckThread(0)
	if err != nil {
		return 0, err
	}
	return Return(results, StringValue(string(co.Status()))), nil
}

func stdThreadRunning(_ context.Context, call *CallContext, results []Value) (int, error) {
	current := call.State.CurrentThread()
	return Return(results, ThreadValue(current), BoolValue(current.IsMain())), nil
}

func stdThreadIsYieldable(_ context.Context, call *CallContext, results []Value) (int, error) {
	return Return(results, BoolValue(!call.Thread.IsMain())), nil
}

func stdThreadClose(_ context.Context, call *CallContext, results []Value) (int, error) {
	co, err := call.CheckThread(0)
	if err != nil {
		return 0, err
	}
	wasDead := co.Status() == ThreadDead
	if err := co.Close(); err != nil {
		return 0, err
	}
	if wasDead && co.lastErr != nil {
		return Return(results, BoolValue(false), errorValue(co.lastErr)), nil
	}
	return Return(results, BoolValue(true)), nil
}

func stdThreadWrap(_ context.Context, call *CallContext, results []Value) (int, error) {
	fn, err := call.CheckFunction(0)
	if err != nil {
		return 0, err
	}
	co := call.State.NewThread(fn)
	wrapped := Fn("coroutine.wrap", func(ctx context.Context, call *CallContext, results []Value) (int, error) {
		res, err := co.Resume(ctx, call.Args())
		if err != nil {
			return 0, err
		}
		return Return(results, res...), nil
	})
	return Return(results, FunctionValue(wrapped)), nil
}
