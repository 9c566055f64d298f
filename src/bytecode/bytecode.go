// Package bytecode encodes and decodes the 32 bit instructions run by the vm.
//
// Every instruction starts with a 6 bit opcode followed by an 8 bit A register.
// The remaining 18 bits hold either B and C bytes, each with a constant flag,
// or a single 16 bit Bx/sBx operand.
package bytecode

import (
	"fmt"
	"strconv"
)

// Op is the opcode of an instruction.
type Op uint8

// R is a register, K a constant, RK(x) is K[x] when the x constant flag is set
// and R[x] otherwise, UpValue[x] is an upvalue of the running closure.
const (
	MOVE     Op = iota // R[A] = R[B]
	LOADK              // R[A] = K[Bx]
	LOADBOOL           // R[A] = B != 0; if C != 0 then pc++
	LOADNIL            // R[A..A+B] = nil
	LOADI              // R[A] = sBx
	LOADF              // R[A] = float(sBx)
	GETUPVAL           // R[A] = UpValue[B]
	GETTABUP           // R[A] = UpValue[B][RK(C)]
	GETTABLE           // R[A] = R[B][RK(C)]
	SETTABUP           // UpValue[A][RK(B)] = RK(C)
	SETUPVAL           // UpValue[B] = R[A]
	SETTABLE           // R[A][RK(B)] = RK(C)
	NEWTABLE           // R[A] = {} sized B array slots and C hash slots
	SELF               // R[A+1] = R[B]; R[A] = R[B][RK(C)]
	ADD                // R[A] = RK(B) + RK(C)
	SUB                // R[A] = RK(B) - RK(C)
	MUL                // R[A] = RK(B) * RK(C)
	MOD                // R[A] = RK(B) % RK(C)
	POW                // R[A] = RK(B) ^ RK(C)
	DIV                // R[A] = RK(B) / RK(C)
	IDIV               // R[A] = RK(B) // RK(C)
	BAND               // R[A] = RK(B) & RK(C)
	BOR                // R[A] = RK(B) | RK(C)
	BXOR               // R[A] = RK(B) ~ RK(C)
	SHL                // R[A] = RK(B) << RK(C)
	SHR                // R[A] = RK(B) >> RK(C)
	UNM                // R[A] = -RK(B)
	BNOT               // R[A] = ~RK(B)
	NOT                // R[A] = not RK(B)
	LEN                // R[A] = #RK(B)
	CONCAT             // R[A] = R[B] .. ... .. R[C]
	JMP                // pc += sBx; close upvalues >= R[A-1] when A > 0
	CLOSE              // close upvalues >= R[A]
	EQ                 // if (RK(B) == RK(C)) != A then pc++
	LT                 // if (RK(B) < RK(C)) != A then pc++
	LE                 // if (RK(B) <= RK(C)) != A then pc++
	TEST               // if truthy(R[A]) != B then pc++
	CALL               // R[A..A+C-2] = R[A](R[A+1..A+B-1])
	TAILCALL           // return R[A](R[A+1..A+B-1])
	RETURN             // return R[A..A+B-2]
	FORLOOP            // R[A] += R[A+2]; if in range then pc += sBx; R[A+3] = R[A]
	FORPREP            // R[A] -= R[A+2]; pc += sBx
	TFORLOOP           // if R[A+1] != nil then R[A] = R[A+1]; pc += sBx
	TFORCALL           // R[A+3..A+2+C] = R[A](R[A+1], R[A+2])
	SETLIST            // R[A][(C-1)*50+i] = R[A+i] for 1 <= i <= B, B == 0 runs to top
	CLOSURE            // R[A] = closure(FnTable[Bx])
	VARARG             // R[A..A+B-2] = ...
	// opcodes are 6 bits so at most 64 fit.
)

var opNames = [...]string{
	MOVE: "MOVE", LOADK: "LOADK", LOADBOOL: "LOADBOOL", LOADNIL: "LOADNIL",
	LOADI: "LOADI", LOADF: "LOADF", GETUPVAL: "GETUPVAL", GETTABUP: "GETTABUP",
	GETTABLE: "GETTABLE", SETTABUP: "SETTABUP", SETUPVAL: "SETUPVAL", SETTABLE: "SETTABLE",
	NEWTABLE: "NEWTABLE", SELF: "SELF", ADD: "ADD", SUB: "SUB", MUL: "MUL", MOD: "MOD",
	POW: "POW", DIV: "DIV", IDIV: "IDIV", BAND: "BAND", BOR: "BOR", BXOR: "BXOR",
	SHL: "SHL", SHR: "SHR", UNM: "UNM", BNOT: "BNOT", NOT: "NOT", LEN: "LEN",
	CONCAT: "CONCAT", JMP: "JMP", CLOSE: "CLOSE", EQ: "EQ", LT: "LT", LE: "LE",
	TEST: "TEST", CALL: "CALL", TAILCALL: "TAILCALL", RETURN: "RETURN",
	FORLOOP: "FORLOOP", FORPREP: "FORPREP", TFORLOOP: "TFORLOOP", TFORCALL: "TFORCALL",
	SETLIST: "SETLIST", CLOSURE: "CLOSURE", VARARG: "VARARG",
}

// operand layout of an opcode.
type format uint8

const (
	formatABC format = iota
	formatABx
	formatAsBx
)

const (
	opBits   = 6
	aShift   = opBits
	bShift   = aShift + 8
	bKShift  = bShift + 8
	cShift   = bKShift + 1
	cKShift  = cShift + 8
	opMask   = 1<<opBits - 1
	byteMask = 0xFF
	bxMask   = 0xFFFF
)

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "UNDEFINED"
}

func (op Op) format() format {
	switch op {
	case LOADK, CLOSURE:
		return formatABx
	case LOADI, LOADF, JMP, FORLOOP, FORPREP, TFORLOOP:
		return formatAsBx
	default:
		return formatABC
	}
}

func flag(set bool) uint32 {
	if set {
		return 1
	}
	return 0
}

// IABCK builds | CK: 1 | C: u8 | BK: 1 | B: u8 | A: u8 | Op: u6 |.
func IABCK(op Op, a uint8, b uint8, bconst bool, c uint8, cconst bool) uint32 {
	return flag(cconst)<<cKShift | uint32(c)<<cShift |
		flag(bconst)<<bKShift | uint32(b)<<bShift |
		uint32(a)<<aShift | uint32(op)
}

// IABC builds an IABCK instruction with neither operand flagged as a constant.
func IABC(op Op, a uint8, b uint8, c uint8) uint32 { return IABCK(op, a, b, false, c, false) }

// IAB builds an IABC instruction with C left at zero.
func IAB(op Op, a uint8, b uint8) uint32 { return IABC(op, a, b, 0) }

// IABx builds | Bx: u16 | A: u8 | Op: u6 |.
func IABx(op Op, a uint8, b uint16) uint32 { return uint32(b)<<bShift | uint32(a)<<aShift | uint32(op) }

// IAsBx builds | sBx: i16 | A: u8 | Op: u6 |, used by jumps and small literals.
func IAsBx(op Op, a uint8, b int16) uint32 { return IABx(op, a, uint16(b)) }

// GetOp decodes the opcode.
func GetOp(bc uint32) Op { return Op(bc & opMask) }

// GetA decodes register A.
func GetA(bc uint32) int64 { return int64(bc >> aShift & byteMask) }

// GetB decodes B ignoring its constant flag.
func GetB(bc uint32) int64 { return int64(bc >> bShift & byteMask) }

// GetC decodes C ignoring its constant flag.
func GetC(bc uint32) int64 { return int64(bc >> cShift & byteMask) }

// GetBx decodes the unsigned 16 bit operand.
func GetBx(bc uint32) int64 { return int64(bc >> bShift & bxMask) }

// GetsBx decodes the signed 16 bit operand.
func GetsBx(bc uint32) int64 { return int64(int16(bc >> bShift & bxMask)) }

// GetBK decodes B and whether it indexes the constant table.
func GetBK(bc uint32) (int64, bool) { return GetB(bc), bc&(1<<bKShift) != 0 }

// GetCK decodes C and whether it indexes the constant table.
func GetCK(bc uint32) (int64, bool) { return GetC(bc), bc&(1<<cKShift) != 0 }

// ToString renders an instruction for chunk listings.
func ToString(bc uint32) string {
	op := GetOp(bc)
	if int(op) >= len(opNames) {
		return fmt.Sprintf("%-10v %-5v", "EXARG", bc)
	}
	var b, c string
	switch op.format() {
	case formatABx:
		b = strconv.FormatInt(GetBx(bc), 10)
	case formatAsBx:
		b = strconv.FormatInt(GetsBx(bc), 10)
	default:
		b, c = operand(GetBK(bc)), operand(GetCK(bc))
	}
	return fmt.Sprintf("%-10v %-5v %-5v %-5v", op, GetA(bc), b, c)
}

func operand(val int64, isConst bool) string {
	str := strconv.FormatInt(val, 10)
	if isConst {
		str += "k"
	}
	return str
}
