package runtime

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/tanema/luacore/src/bytecode"
	"github.com/tanema/luacore/src/conf"
)

// MetaMethod is the key of a metatable entry that changes the behaviour of an
// operation.
type MetaMethod string

// Supported metamethods.
const (
	MetaAdd      MetaMethod = "__add"
	MetaSub      MetaMethod = "__sub"
	MetaMul      MetaMethod = "__mul"
	MetaDiv      MetaMethod = "__div"
	MetaMod      MetaMethod = "__mod"
	MetaPow      MetaMethod = "__pow"
	MetaUNM      MetaMethod = "__unm"
	MetaIDiv     MetaMethod = "__idiv"
	MetaBAnd     MetaMethod = "__band"
	MetaBOr      MetaMethod = "__bor"
	MetaBXOr     MetaMethod = "__bxor"
	MetaShl      MetaMethod = "__shl"
	MetaShr      MetaMethod = "__shr"
	MetaBNot     MetaMethod = "__bnot"
	MetaConcat   MetaMethod = "__concat"
	MetaLen      MetaMethod = "__len"
	MetaEq       MetaMethod = "__eq"
	MetaLt       MetaMethod = "__lt"
	MetaLe       MetaMethod = "__le"
	MetaIndex    MetaMethod = "__index"
	MetaNewIndex MetaMethod = "__newindex"
	MetaCall     MetaMethod = "__call"
	MetaToString MetaMethod = "__tostring"
	MetaName     MetaMethod = "__name"
	MetaMeta     MetaMethod = "__metatable"
	MetaPairs    MetaMethod = "__pairs"
)

var arithMetaMethods = map[bytecode.Op]MetaMethod{
	bytecode.ADD:  MetaAdd,
	bytecode.SUB:  MetaSub,
	bytecode.MUL:  MetaMul,
	bytecode.DIV:  MetaDiv,
	bytecode.MOD:  MetaMod,
	bytecode.POW:  MetaPow,
	bytecode.IDIV: MetaIDiv,
	bytecode.BAND: MetaBAnd,
	bytecode.BOR:  MetaBOr,
	bytecode.BXOR: MetaBXOr,
	bytecode.SHL:  MetaShl,
	bytecode.SHR:  MetaShr,
	bytecode.UNM:  MetaUNM,
	bytecode.BNOT: MetaBNot,
}

// TryGetMetatable returns the metatable for any value. Tables and userdata
// carry their own, the other types share one per type through the State.
func (s *State) TryGetMetatable(val Value) (*Table, bool) {
	var mt *Table
	switch val.typ {
	case TypeTable, TypeUserData:
		mt = val.Metatable()
	default:
		mt = s.metatables[val.typ]
	}
	return mt, mt != nil
}

// SetMetatable sets the metatable of a value, nil removes it. Setting the
// metatable of a primitive changes it for every value of that type.
func (s *State) SetMetatable(val Value, mt *Table) {
	switch val.typ {
	case TypeTable:
		val.AsTable().SetMetatable(mt)
	case TypeUserData:
		val.AsUserData().SetMetatable(mt)
	default:
		s.metatables[val.typ] = mt
	}
}

func (s *State) metamethod(val Value, method MetaMethod) Value {
	if mt, ok := s.TryGetMetatable(val); ok {
		return mt.GetString(string(method))
	}
	return Nil
}

func (s *State) callMeta(ctx context.Context, thread *Thread, fn Value, args ...Value) (Value, error) {
	res, err := s.call(ctx, thread, fn, args, 1)
	if err != nil {
		return Nil, err
	}
	return res[0], nil
}

// index is a get with __index dispatch.
func (s *State) index(ctx context.Context, thread *Thread, obj, key Value) (Value, error) {
	for range conf.MAXTAGLOOP {
		var handler Value
		if obj.typ == TypeTable {
			if res := obj.AsTable().Get(key); !res.IsNil() {
				return res, nil
			}
			if handler = s.metamethod(obj, MetaIndex); handler.IsNil() {
				return Nil, nil
			}
		} else if handler = s.metamethod(obj, MetaIndex); handler.IsNil() {
			return Nil, fmt.Errorf("attempt to index a %v value", obj.TypeName())
		}
		if handler.typ == TypeFunction {
			return s.callMeta(ctx, thread, handler, obj, key)
		}
		obj = handler
	}
	return Nil, fmt.Errorf("'__index' chain too long; possible loop")
}

// setIndex is a set with __newindex dispatch.
func (s *State) setIndex(ctx context.Context, thread *Thread, obj, key, val Value) error {
	for range conf.MAXTAGLOOP {
		var handler Value
		if obj.typ == TypeTable {
			tbl := obj.AsTable()
			if !tbl.Get(key).IsNil() {
				return tbl.Set(key, val)
			}
			if handler = s.metamethod(obj, MetaNewIndex); handler.IsNil() {
				return tbl.Set(key, val)
			}
		} else if handler = s.metamethod(obj, MetaNewIndex); handler.IsNil() {
			return fmt.Errorf("attempt to index a %v value", obj.TypeName())
		}
		if handler.typ == TypeFunction {
			_, err := s.call(ctx, thread, handler, []Value{obj, key, val}, 0)
			return err
		}
		obj = handler
	}
	return fmt.Errorf("'__newindex' chain too long; possible loop")
}

// resolveCallable makes the value at fnIdx callable. Non function values with
// a __call metamethod are shifted into the first argument.
func (s *State) resolveCallable(thread *Thread, fnIdx, nargs int) (Function, int, error) {
	fnVal := thread.stack.Get(fnIdx)
	if fnVal.typ == TypeFunction {
		return fnVal.AsFunction(), nargs, nil
	}
	handler := s.metamethod(fnVal, MetaCall)
	if handler.typ != TypeFunction {
		return nil, 0, fmt.Errorf("attempt to call a %v value", fnVal.TypeName())
	}
	for i := nargs; i > 0; i-- {
		if err := thread.stack.Set(fnIdx+1+i, thread.stack.Get(fnIdx+i)); err != nil {
			return nil, 0, err
		}
	}
	if err := thread.stack.Set(fnIdx+1, fnVal); err != nil {
		return nil, 0, err
	}
	return handler.AsFunction(), nargs + 1, nil
}

// arith evaluates an arithmetic or bitwise operator. Unary operators pass the
// operand twice.
func (s *State) arith(ctx context.Context, thread *Thread, op bytecode.Op, lval, rval Value) (Value, error) {
	lnum, lok := lval.ToNumber()
	rnum, rok := rval.ToNumber()
	if lok && rok {
		switch op {
		case bytecode.BAND, bytecode.BOR, bytecode.BXOR, bytecode.SHL, bytecode.SHR, bytecode.BNOT:
			return bitwise(op, lnum, rnum)
		default:
			return NumberValue(arithFloat(op, lnum, rnum)), nil
		}
	}

	method := arithMetaMethods[op]
	handler := s.metamethod(lval, method)
	if handler.IsNil() {
		handler = s.metamethod(rval, method)
	}
	if handler.IsNil() {
		culprit := rval
		if !lok {
			culprit = lval
		}
		switch op {
		case bytecode.BAND, bytecode.BOR, bytecode.BXOR, bytecode.SHL, bytecode.SHR, bytecode.BNOT:
			return Nil, fmt.Errorf("attempt to perform bitwise operation on a %v value", culprit.TypeName())
		default:
			return Nil, fmt.Errorf("attempt to perform arithmetic on a %v value", culprit.TypeName())
		}
	}
	return s.callMeta(ctx, thread, handler, lval, rval)
}

func arithFloat(op bytecode.Op, lval, rval float64) float64 {
	switch op {
	case bytecode.ADD:
		return lval + rval
	case bytecode.SUB:
		return lval - rval
	case bytecode.MUL:
		return lval * rval
	case bytecode.DIV:
		return lval / rval
	case bytecode.MOD:
		if math.IsInf(rval, 0) && !math.IsInf(lval, 0) {
			if (lval < 0) != (rval < 0) && lval != 0 {
				return rval
			}
			return lval
		}
		mod := math.Mod(lval, rval)
		if mod != 0 && (mod < 0) != (rval < 0) {
			mod += rval
		}
		return mod
	case bytecode.POW:
		return math.Pow(lval, rval)
	case bytecode.IDIV:
		return math.Floor(lval / rval)
	case bytecode.UNM:
		return -lval
	default:
		return math.NaN()
	}
}

func bitwise(op bytecode.Op, lval, rval float64) (Value, error) {
	lint, lok := floatToInt(lval)
	rint, rok := floatToInt(rval)
	if !lok || !rok {
		return Nil, fmt.Errorf("number has no integer representation")
	}
	var res int64
	switch op {
	case bytecode.BAND:
		res = lint & rint
	case bytecode.BOR:
		res = lint | rint
	case bytecode.BXOR:
		res = lint ^ rint
	case bytecode.SHL:
		res = shiftLeft(lint, rint)
	case bytecode.SHR:
		res = shiftLeft(lint, -rint)
	case bytecode.BNOT:
		res = ^lint
	}
	return NumberValue(float64(res)), nil
}

// shiftLeft is a logical shift, negative amounts shift right.
func shiftLeft(val, shift int64) int64 {
	switch {
	case shift <= -64 || shift >= 64:
		return 0
	case shift >= 0:
		return int64(uint64(val) << uint64(shift))
	default:
		return int64(uint64(val) >> uint64(-shift))
	}
}

func (s *State) concat(ctx context.Context, thread *Thread, lval, rval Value) (Value, error) {
	if isConcatable(lval) && isConcatable(rval) {
		return StringValue(lval.String() + rval.String()), nil
	}
	handler := s.metamethod(lval, MetaConcat)
	if handler.IsNil() {
		handler = s.metamethod(rval, MetaConcat)
	}
	if handler.IsNil() {
		culprit := lval
		if isConcatable(lval) {
			culprit = rval
		}
		return Nil, fmt.Errorf("attempt to concatenate a %v value", culprit.TypeName())
	}
	return s.callMeta(ctx, thread, handler, lval, rval)
}

func isConcatable(val Value) bool {
	return val.typ == TypeString || val.typ == TypeNumber
}

func (s *State) length(ctx context.Context, thread *Thread, val Value) (Value, error) {
	if val.typ == TypeString {
		return NumberValue(float64(len(val.AsString()))), nil
	}
	if handler := s.metamethod(val, MetaLen); !handler.IsNil() {
		return s.callMeta(ctx, thread, handler, val)
	} else if val.typ == TypeTable {
		return NumberValue(float64(val.AsTable().Len())), nil
	}
	return Nil, fmt.Errorf("attempt to get length of a %v value", val.TypeName())
}

// equals compares with __eq dispatch, which only applies between two tables
// or two userdata.
func (s *State) equals(ctx context.Context, thread *Thread, lval, rval Value) (bool, error) {
	if RawEquals(lval, rval) {
		return true, nil
	} else if lval.typ != rval.typ || (lval.typ != TypeTable && lval.typ != TypeUserData) {
		return false, nil
	}
	handler := s.metamethod(lval, MetaEq)
	if handler.IsNil() {
		handler = s.metamethod(rval, MetaEq)
	}
	if handler.IsNil() {
		return false, nil
	}
	res, err := s.callMeta(ctx, thread, handler, lval, rval)
	return res.ToBoolean(), err
}

func (s *State) lessThan(ctx context.Context, thread *Thread, lval, rval Value) (bool, error) {
	return s.compare(ctx, thread, MetaLt, lval, rval)
}

func (s *State) lessEqual(ctx context.Context, thread *Thread, lval, rval Value) (bool, error) {
	return s.compare(ctx, thread, MetaLe, lval, rval)
}

func (s *State) compare(ctx context.Context, thread *Thread, method MetaMethod, lval, rval Value) (bool, error) {
	switch {
	case lval.typ == TypeNumber && rval.typ == TypeNumber:
		if method == MetaLt {
			return lval.num < rval.num, nil
		}
		return lval.num <= rval.num, nil
	case lval.typ == TypeString && rval.typ == TypeString:
		cmp := strings.Compare(lval.AsString(), rval.AsString())
		if method == MetaLt {
			return cmp < 0, nil
		}
		return cmp <= 0, nil
	}
	handler := s.metamethod(lval, method)
	if handler.IsNil() {
		handler = s.metamethod(rval, method)
	}
	if handler.IsNil() {
		if lval.typ == rval.typ {
			return false, fmt.Errorf("attempt to compare two %v values", lval.TypeName())
		}
		return false, fmt.Errorf("attempt to compare %v with %v", lval.TypeName(), rval.TypeName())
	}
	res, err := s.callMeta(ctx, thread, handler, lval, rval)
	return res.ToBoolean(), err
}

// toString converts a value with __tostring and __name dispatch.
func (s *State) toString(ctx context.Context, thread *Thread, val Value) (string, error) {
	if handler := s.metamethod(val, MetaToString); !handler.IsNil() {
		res, err := s.callMeta(ctx, thread, handler, val)
		if err != nil {
			return "", err
		} else if res.typ != TypeString && res.typ != TypeNumber {
			return "", fmt.Errorf("'__tostring' must return a string")
		}
		return res.String(), nil
	}
	if name := s.metamethod(val, MetaName); name.typ == TypeString {
		return fmt.Sprintf("%v: %p", name.AsString(), val.ref), nil
	}
	return val.String(), nil
}
