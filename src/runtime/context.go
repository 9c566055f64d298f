package runtime

import (
	"fmt"
)

// CallContext describes one invocation. Arguments live on the stack of Thread
// starting at FrameBase.
type CallContext struct {
	State         *State
	Thread        *Thread
	ArgumentCount int
	FrameBase     int
	ChunkName     string
	RootChunkName string
}

// Arg returns the argument at i or nil when fewer arguments were passed.
func (c *CallContext) Arg(i int) Value {
	if i < 0 || i >= c.ArgumentCount {
		return Nil
	}
	return c.Thread.stack.Get(c.FrameBase + i)
}

// Args returns a copy of all arguments.
func (c *CallContext) Args() []Value {
	return c.Thread.stack.Slice(c.FrameBase, c.FrameBase+c.ArgumentCount)
}

// ArgsFrom returns a copy of the arguments starting at i.
func (c *CallContext) ArgsFrom(i int) []Value {
	if i >= c.ArgumentCount {
		return []Value{}
	}
	return c.Thread.stack.Slice(c.FrameBase+i, c.FrameBase+c.ArgumentCount)
}

// HasArg reports if an argument was passed at i, even a nil one.
func (c *CallContext) HasArg(i int) bool {
	return i >= 0 && i < c.ArgumentCount
}

// CheckAny ensures an argument was passed at i.
func (c *CallContext) CheckAny(i int) (Value, error) {
	if !c.HasArg(i) {
		return Nil, c.argErr(i, "value expected")
	}
	return c.Arg(i), nil
}

// CheckNumber reads a number, coercing numeric strings.
func (c *CallContext) CheckNumber(i int) (float64, error) {
	arg := c.Arg(i)
	if n, ok := arg.ToNumber(); ok {
		return n, nil
	}
	return 0, c.typeErr(i, TypeNumber)
}

// CheckInteger reads a number that has an integer representation.
func (c *CallContext) CheckInteger(i int) (int64, error) {
	arg := c.Arg(i)
	n, ok := arg.ToNumber()
	if !ok {
		return 0, c.typeErr(i, TypeNumber)
	}
	ival, ok := floatToInt(n)
	if !ok {
		return 0, c.argErr(i, "number has no integer representation")
	}
	return ival, nil
}

// CheckString reads a string, numbers are converted to their string form.
func (c *CallContext) CheckString(i int) (string, error) {
	arg := c.Arg(i)
	switch arg.typ {
	case TypeString:
		return arg.AsString(), nil
	case TypeNumber:
		return arg.String(), nil
	default:
		return "", c.typeErr(i, TypeString)
	}
}

// CheckTable reads a table.
func (c *CallContext) CheckTable(i int) (*Table, error) {
	arg := c.Arg(i)
	if arg.typ != TypeTable {
		return nil, c.typeErr(i, TypeTable)
	}
	return arg.AsTable(), nil
}

// CheckFunction reads a function.
func (c *CallContext) CheckFunction(i int) (Function, error) {
	arg := c.Arg(i)
	if arg.typ != TypeFunction {
		return nil, c.typeErr(i, TypeFunction)
	}
	return arg.AsFunction(), nil
}

// CheckThread reads a coroutine handle.
func (c *CallContext) CheckThread(i int) (*Thread, error) {
	arg := c.Arg(i)
	if arg.typ != TypeThread {
		return nil, c.typeErr(i, TypeThread)
	}
	return arg.AsThread(), nil
}

// OptNumber reads an optional number.
func (c *CallContext) OptNumber(i int, def float64) (float64, error) {
	if c.Arg(i).IsNil() {
		return def, nil
	}
	return c.CheckNumber(i)
}

// OptInteger reads an optional integer.
func (c *CallContext) OptInteger(i int, def int64) (int64, error) {
	if c.Arg(i).IsNil() {
		return def, nil
	}
	return c.CheckInteger(i)
}

// OptString reads an optional string.
func (c *CallContext) OptString(i int, def string) (string, error) {
	if c.Arg(i).IsNil() {
		return def, nil
	}
	return c.CheckString(i)
}

func (c *CallContext) funcName() string {
	if depth := len(c.Thread.callStack); depth > 0 {
		if fn := c.Thread.callStack[depth-1].Function; fn != nil {
			return fn.Name()
		}
	}
	return "?"
}

func (c *CallContext) typeErr(i int, expected ValueType) error {
	got := "no value"
	if c.HasArg(i) {
		got = c.Arg(i).TypeName()
	}
	return c.argErr(i, fmt.Sprintf("%v expected, got %v", expected, got))
}

func (c *CallContext) argErr(i int, msg string) error {
	return fmt.Errorf("bad argument #%v to '%v' (%v)", i+1, c.funcName(), msg)
}
