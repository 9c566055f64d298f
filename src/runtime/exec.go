package runtime

import (
	"context"
	"fmt"

	"github.com/tanema/luacore/src/bytecode"
	"github.com/tanema/luacore/src/chunk"
	"github.com/tanema/luacore/src/conf"
)

// frame is the register window of one running closure. Registers are
// addressed relative to base on the thread stack, which may be reallocated
// by nested calls, so the stack is never cached as a slice.
type frame struct {
	ctx       context.Context
	call      *CallContext
	state     *State
	thread    *Thread
	cls       *Closure
	fn        *chunk.Chunk
	base      int
	stackSize int
	// top is the end of the values produced by the last multiple result
	// instruction.
	top     int
	varargs []Value
	idx     int
}

func execute(ctx context.Context, cls *Closure, call *CallContext, results []Value) (int, error) {
	f := &frame{
		ctx:       ctx,
		call:      call,
		state:     call.State,
		thread:    call.Thread,
		cls:       cls,
		fn:        cls.val,
		base:      call.FrameBase,
		stackSize: int(cls.val.StackSize()),
		idx:       len(call.Thread.callStack) - 1,
	}
	arity := int(f.fn.Arity)
	if f.fn.Varargs && call.ArgumentCount > arity {
		f.varargs = f.thread.stack.Slice(f.base+arity, f.base+call.ArgumentCount)
	}
	if err := f.thread.stack.SetTop(f.base + f.stackSize); err != nil {
		return 0, err
	}
	for i := min(call.ArgumentCount, arity); i < f.stackSize; i++ {
		f.thread.stack.values[f.base+i] = Nil
	}
	f.top = f.base + f.stackSize
	return f.run(results)
}

func (f *frame) reg(idx int64) Value {
	return f.thread.stack.Get(f.base + int(idx))
}

func (f *frame) setReg(idx int64, val Value) error {
	return f.thread.stack.Set(f.base+int(idx), val)
}

func (f *frame) constant(idx int64) Value {
	if idx < 0 || int(idx) >= len(f.cls.constants) {
		return Nil
	}
	return f.cls.constants[idx]
}

func (f *frame) rk(idx int64, isConst bool) Value {
	if isConst {
		return f.constant(idx)
	}
	return f.reg(idx)
}

func (f *frame) upvalue(idx int64) (*UpValue, error) {
	if idx < 0 || int(idx) >= len(f.cls.upvalues) {
		return nil, fmt.Errorf("invalid upvalue index %v", idx)
	}
	return f.cls.upvalues[idx], nil
}

func (f *frame) run(results []Value) (int, error) {
	code := f.fn.ByteCodes
	for pc := int64(0); ; pc++ {
		if err := f.ctx.Err(); err != nil {
			return 0, err
		} else if pc < 0 || int(pc) >= len(code) {
			return 0, nil
		}
		f.thread.callStack[f.idx].pc = pc
		instruction := code[pc]
		op := bytecode.GetOp(instruction)
		a := bytecode.GetA(instruction)

		var err error
		switch op {
		case bytecode.MOVE:
			err = f.setReg(a, f.reg(bytecode.GetB(instruction)))
		case bytecode.LOADK:
			err = f.setReg(a, f.constant(bytecode.GetBx(instruction)))
		case bytecode.LOADBOOL:
			err = f.setReg(a, BoolValue(bytecode.GetB(instruction) != 0))
			if bytecode.GetC(instruction) != 0 {
				pc++
			}
		case bytecode.LOADNIL:
			for i := a; i <= a+bytecode.GetB(instruction) && err == nil; i++ {
				err = f.setReg(i, Nil)
			}
		case bytecode.LOADI, bytecode.LOADF:
			err = f.setReg(a, NumberValue(float64(bytecode.GetsBx(instruction))))
		case bytecode.GETUPVAL:
			var upval *UpValue
			if upval, err = f.upvalue(bytecode.GetB(instruction)); err == nil {
				err = f.setReg(a, upval.GetValue())
			}
		case bytecode.SETUPVAL:
			var upval *UpValue
			if upval, err = f.upvalue(bytecode.GetB(instruction)); err == nil {
				upval.SetValue(f.reg(a))
			}
		case bytecode.GETTABUP:
			var upval *UpValue
			if upval, err = f.upvalue(bytecode.GetB(instruction)); err == nil {
				var val Value
				if val, err = f.state.index(f.ctx, f.thread, upval.GetValue(), f.rk(bytecode.GetCK(instruction))); err == nil {
					err = f.setReg(a, val)
				}
			}
		case bytecode.GETTABLE:
			var val Value
			if val, err = f.state.index(f.ctx, f.thread, f.reg(bytecode.GetB(instruction)), f.rk(bytecode.GetCK(instruction))); err == nil {
				err = f.setReg(a, val)
			}
		case bytecode.SETTABUP:
			var upval *UpValue
			if upval, err = f.upvalue(a); err == nil {
				err = f.state.setIndex(f.ctx, f.thread, upval.GetValue(), f.rk(bytecode.GetBK(instruction)), f.rk(bytecode.GetCK(instruction)))
			}
		case bytecode.SETTABLE:
			err = f.state.setIndex(f.ctx, f.thread, f.reg(a), f.rk(bytecode.GetBK(instruction)), f.rk(bytecode.GetCK(instruction)))
		case bytecode.NEWTABLE:
			err = f.setReg(a, TableValue(NewSizedTable(int(bytecode.GetB(instruction)), int(bytecode.GetC(instruction)))))
		case bytecode.SELF:
			obj := f.reg(bytecode.GetB(instruction))
			var method Value
			if method, err = f.state.index(f.ctx, f.thread, obj, f.rk(bytecode.GetCK(instruction))); err == nil {
				if err = f.setReg(a+1, obj); err == nil {
					err = f.setReg(a, method)
				}
			}
		case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD, bytecode.POW,
			bytecode.IDIV, bytecode.BAND, bytecode.BOR, bytecode.BXOR, bytecode.SHL, bytecode.SHR:
			var val Value
			lval, rval := f.rk(bytecode.GetBK(instruction)), f.rk(bytecode.GetCK(instruction))
			if val, err = f.state.arith(f.ctx, f.thread, op, lval, rval); err == nil {
				err = f.setReg(a, val)
			}
		case bytecode.UNM, bytecode.BNOT:
			var val Value
			operand := f.rk(bytecode.GetBK(instruction))
			if val, err = f.state.arith(f.ctx, f.thread, op, operand, operand); err == nil {
				err = f.setReg(a, val)
			}
		case bytecode.NOT:
			err = f.setReg(a, BoolValue(!f.rk(bytecode.GetBK(instruction)).ToBoolean()))
		case bytecode.LEN:
			var val Value
			if val, err = f.state.length(f.ctx, f.thread, f.rk(bytecode.GetBK(instruction))); err == nil {
				err = f.setReg(a, val)
			}
		case bytecode.CONCAT:
			var val Value
			if val, err = f.concat(bytecode.GetB(instruction), bytecode.GetC(instruction)); err == nil {
				err = f.setReg(a, val)
			}
		case bytecode.JMP:
			if a > 0 {
				f.state.closeUpValues(f.thread, f.base+int(a)-1)
			}
			pc += bytecode.GetsBx(instruction)
		case bytecode.CLOSE:
			f.state.closeUpValues(f.thread, f.base+int(a))
		case bytecode.EQ, bytecode.LT, bytecode.LE:
			var res bool
			lval, rval := f.rk(bytecode.GetBK(instruction)), f.rk(bytecode.GetCK(instruction))
			switch op {
			case bytecode.EQ:
				res, err = f.state.equals(f.ctx, f.thread, lval, rval)
			case bytecode.LT:
				res, err = f.state.lessThan(f.ctx, f.thread, lval, rval)
			default:
				res, err = f.state.lessEqual(f.ctx, f.thread, lval, rval)
			}
			if err == nil && res != (a != 0) {
				pc++
			}
		case bytecode.TEST:
			if f.reg(a).ToBoolean() != (bytecode.GetB(instruction) != 0) {
				pc++
			}
		case bytecode.CALL:
			err = f.callAt(a, int(bytecode.GetB(instruction))-1, int(bytecode.GetC(instruction))-1)
		case bytecode.TAILCALL:
			return f.tailCall(a, int(bytecode.GetB(instruction))-1, results)
		case bytecode.RETURN:
			return f.ret(a, int(bytecode.GetB(instruction))-1, results), nil
		case bytecode.FORPREP:
			err = f.forPrep(a)
			pc += bytecode.GetsBx(instruction)
		case bytecode.FORLOOP:
			var loop bool
			if loop, err = f.forLoop(a); loop {
				pc += bytecode.GetsBx(instruction)
			}
		case bytecode.TFORCALL:
			err = f.forCall(a, bytecode.GetC(instruction))
		case bytecode.TFORLOOP:
			if ctrl := f.reg(a + 1); !ctrl.IsNil() {
				err = f.setReg(a, ctrl)
				pc += bytecode.GetsBx(instruction)
			}
		case bytecode.SETLIST:
			err = f.setList(a, int(bytecode.GetB(instruction)), bytecode.GetC(instruction))
		case bytecode.CLOSURE:
			err = f.closure(a, bytecode.GetBx(instruction))
		case bytecode.VARARG:
			err = f.vararg(a, int(bytecode.GetB(instruction))-1)
		default:
			err = fmt.Errorf("unknown opcode %v", op)
		}
		if err != nil {
			return 0, err
		}
	}
}

func (f *frame) concat(from, to int64) (Value, error) {
	if from > to {
		return StringValue(""), nil
	}
	var err error
	acc := f.reg(to)
	for i := to - 1; i >= from; i-- {
		lval := f.reg(i)
		if isConcatable(lval) && acc.typ == TypeString {
			acc = StringValue(lval.String() + acc.AsString())
			continue
		}
		if acc, err = f.state.concat(f.ctx, f.thread, lval, acc); err != nil {
			return Nil, err
		}
	}
	if from == to && !isConcatable(acc) {
		return Nil, fmt.Errorf("attempt to concatenate a %v value", acc.TypeName())
	}
	if acc.typ == TypeNumber {
		acc = StringValue(acc.String())
	}
	return acc, nil
}

// invoke calls the function at register a with nargs arguments, nargs < 0
// means every value up to the multiple result top. Results are written into
// buf.
func (f *frame) invoke(a int64, nargs int, buf []Value) (int, error) {
	fnIdx := f.base + int(a)
	if nargs < 0 {
		nargs = max(f.top-fnIdx-1, 0)
	}
	callee, nargs, err := f.state.resolveCallable(f.thread, fnIdx, nargs)
	if err != nil {
		return 0, err
	} else if err := f.thread.stack.SetTop(fnIdx + 1 + nargs); err != nil {
		return 0, err
	}
	n, err := Invoke(f.ctx, callee, &CallContext{
		State:         f.state,
		Thread:        f.thread,
		ArgumentCount: nargs,
		FrameBase:     fnIdx + 1,
		ChunkName:     f.fn.Name,
		RootChunkName: f.call.RootChunkName,
	}, buf)
	if err := f.thread.stack.SetTop(max(f.base+f.stackSize, f.top)); err != nil {
		return 0, err
	}
	return n, err
}

// callAt implements CALL. nresults < 0 keeps every result and moves the
// multiple result top past them.
func (f *frame) callAt(a int64, nargs, nresults int) error {
	size := nresults
	if nresults < 0 {
		size = conf.MAXRESULTS
	}
	buf := f.thread.rentBuffer(size)
	defer f.thread.returnBuffer(buf)
	n, err := f.invoke(a, nargs, buf)
	if err != nil {
		return err
	}
	if nresults < 0 {
		nresults = n
		f.top = f.base + int(a) + n
		if err := f.thread.stack.SetTop(max(f.base+f.stackSize, f.top)); err != nil {
			return err
		}
	}
	for i := range nresults {
		val := Nil
		if i < n {
			val = buf[i]
		}
		if err := f.setReg(a+int64(i), val); err != nil {
			return err
		}
	}
	return nil
}

// tailCall hands the caller's result buffer straight to the callee.
func (f *frame) tailCall(a int64, nargs int, results []Value) (int, error) {
	return f.invoke(a, nargs, results)
}

func (f *frame) ret(a int64, nret int, results []Value) int {
	from := f.base + int(a)
	if nret < 0 {
		nret = max(f.top-from, 0)
	}
	n := min(nret, len(results))
	for i := range n {
		results[i] = f.thread.stack.Get(from + i)
	}
	return n
}

func (f *frame) forNumbers(a int64) (float64, float64, float64, error) {
	names := []string{"initial", "limit", "step"}
	var vals [3]float64
	for i := range vals {
		n, ok := f.reg(a + int64(i)).ToNumber()
		if !ok {
			return 0, 0, 0, fmt.Errorf("'for' %v value must be a number", names[i])
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], nil
}

func (f *frame) forPrep(a int64) error {
	init, limit, step, err := f.forNumbers(a)
	if err != nil {
		return err
	} else if step == 0 {
		return fmt.Errorf("'for' step is zero")
	}
	if err := f.setReg(a+1, NumberValue(limit)); err != nil {
		return err
	} else if err := f.setReg(a+2, NumberValue(step)); err != nil {
		return err
	}
	return f.setReg(a, NumberValue(init-step))
}

func (f *frame) forLoop(a int64) (bool, error) {
	idx, limit, step, err := f.forNumbers(a)
	if err != nil {
		return false, err
	}
	idx += step
	if err := f.setReg(a, NumberValue(idx)); err != nil {
		return false, err
	}
	if (step > 0 && idx <= limit) || (step < 0 && idx >= limit) {
		return true, f.setReg(a+3, NumberValue(idx))
	}
	return false, nil
}

// forCall implements TFORCALL: R[A+3], ..., R[A+2+C] := R[A](R[A+1], R[A+2]).
func (f *frame) forCall(a, nresults int64) error {
	fnIdx := a + 3
	for i := range int64(3) {
		if err := f.setReg(fnIdx+i, f.reg(a+i)); err != nil {
			return err
		}
	}
	return f.callAt(fnIdx, 2, int(nresults))
}

func (f *frame) setList(a int64, count int, block int64) error {
	tblVal := f.reg(a)
	if tblVal.typ != TypeTable {
		return fmt.Errorf("attempt to set list on a %v value", tblVal.TypeName())
	}
	if count < 0 {
		count = 0
	}
	if count == 0 {
		count = max(f.top-(f.base+int(a)+1), 0)
	}
	tbl := tblVal.AsTable()
	offset := (block - 1) * conf.LFIELDSPERFLUSH
	for i := 1; i <= count; i++ {
		if err := tbl.Set(NumberValue(float64(offset+int64(i))), f.reg(a+int64(i))); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) closure(a, fnIdx int64) error {
	if fnIdx < 0 || int(fnIdx) >= len(f.fn.FnTable) {
		return fmt.Errorf("invalid function index %v", fnIdx)
	}
	proto := f.fn.FnTable[fnIdx]
	upvals := make([]*UpValue, len(proto.UpIndexes))
	for i, idx := range proto.UpIndexes {
		if idx.FromStack {
			upvals[i] = f.state.getOrAddUpValue(f.thread, f.base+int(idx.Index))
			continue
		}
		upval, err := f.upvalue(int64(idx.Index))
		if err != nil {
			return err
		}
		upvals[i] = upval
	}
	return f.setReg(a, FunctionValue(newClosure(f.state, proto, upvals)))
}

func (f *frame) vararg(a int64, want int) error {
	if want < 0 {
		want = len(f.varargs)
		f.top = f.base + int(a) + want
		if err := f.thread.stack.SetTop(max(f.base+f.stackSize, f.top)); err != nil {
			return err
		}
	}
	for i := range want {
		val := Nil
		if i < len(f.varargs) {
			val = f.varargs[i]
		}
		if err := f.setReg(a+int64(i), val); err != nil {
			return err
		}
	}
	return nil
}
