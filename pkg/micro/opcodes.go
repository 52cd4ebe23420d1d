// Package micro implements the character script assembler and the sandboxed
// VM that runs it against a read-only world snapshot.
package micro

import (
	"fmt"
	"strconv"
)

// Op identifies an operation. The immediate/address distinction lives in
// the operand, never in the opcode.
type Op uint8

const (
	OpMov Op = iota // mov dst src|#imm
	OpMovi          // movi a b: mem[mem[a]] = mem[mem[b]]

	OpAdd // add dst src|#imm
	OpShr // shr dst src|#imm
	OpShl // shl dst src|#imm
	OpMul // mul dst src|#imm
	OpDiv // div dst src|#imm

	OpJe // je a src|#imm label
	OpJg // jg a src|#imm label

	OpInc // inc reg
	OpDec // dec reg
	OpAnd // and dst src|#imm
	OpOr  // or dst src|#imm
	OpNg  // ng reg

	OpRet // ret src|#imm

	OpLoadScore // load_score dst
	OpLoadLoc   // load_loc dst (dst, dst+1)
	OpLoadMap   // load_map dst x y
	OpGetID     // get_id dst

	OpLocateChest     // locate_nearest_k_chest dst k|#k
	OpLocateCharacter // locate_nearest_k_character dst k|#k

	opCount
)

// shape is the operand grammar of an opcode.
type shape uint8

const (
	shapeReg        shape = iota // reg
	shapeValue                   // src|#imm
	shapeRegValue                // reg src|#imm
	shapeRegReg                  // reg reg
	shapeRegRegReg               // reg reg reg
	shapeBranch                  // reg src|#imm label
)

// arity is the number of operand tokens a shape consumes.
func (s shape) arity() int {
	switch s {
	case shapeReg, shapeValue:
		return 1
	case shapeRegValue, shapeRegReg:
		return 2
	default:
		return 3
	}
}

type opInfo struct {
	name  string
	shape shape
}

var opTable = [opCount]opInfo{
	OpMov:             {"mov", shapeRegValue},
	OpMovi:            {"movi", shapeRegReg},
	OpAdd:             {"add", shapeRegValue},
	OpShr:             {"shr", shapeRegValue},
	OpShl:             {"shl", shapeRegValue},
	OpMul:             {"mul", shapeRegValue},
	OpDiv:             {"div", shapeRegValue},
	OpJe:              {"je", shapeBranch},
	OpJg:              {"jg", shapeBranch},
	OpInc:             {"inc", shapeReg},
	OpDec:             {"dec", shapeReg},
	OpAnd:             {"and", shapeRegValue},
	OpOr:              {"or", shapeRegValue},
	OpNg:              {"ng", shapeReg},
	OpRet:             {"ret", shapeValue},
	OpLoadScore:       {"load_score", shapeReg},
	OpLoadLoc:         {"load_loc", shapeReg},
	OpLoadMap:         {"load_map", shapeRegRegReg},
	OpGetID:           {"get_id", shapeReg},
	OpLocateChest:     {"locate_nearest_k_chest", shapeRegValue},
	OpLocateCharacter: {"locate_nearest_k_character", shapeRegValue},
}

// mnemonics maps source text to opcodes. Case sensitive.
var mnemonics = func() map[string]Op {
	m := make(map[string]Op, opCount)
	for op, info := range opTable {
		m[info.name] = Op(op)
	}
	return m
}()

// LookupMnemonic returns the opcode for a mnemonic.
func LookupMnemonic(name string) (Op, bool) {
	op, ok := mnemonics[name]
	return op, ok
}

// Valid reports whether op is a defined operation.
func (op Op) Valid() bool { return op < opCount }

func (op Op) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op(%d)", uint8(op))
	}
	return opTable[op].name
}

// Operand is the second operand of an instruction: either an Addr, read from
// scratch memory at run time, or an Imm, used as is.
type Operand interface {
	fmt.Stringer
	operand()
}

// Addr is a scratch memory address. It may be out of range; every access is
// checked when the instruction runs.
type Addr int

// Imm is a literal value.
type Imm uint32

func (Addr) operand() {}
func (Imm) operand()  {}

func (a Addr) String() string { return strconv.Itoa(int(a)) }
func (i Imm) String() string  { return "#" + strconv.FormatInt(int64(int32(i)), 10) }

// Instruction is one encoded operation.
//
// Arg1 is the first memory operand. Arg2 is the optional second operand.
// Arg3 holds the resolved program counter of a branch, or the y address of
// load_map.
type Instruction struct {
	Op   Op
	Arg1 Addr
	Arg2 Operand
	Arg3 int
}

func (in Instruction) String() string {
	if !in.Op.Valid() {
		return in.Op.String()
	}
	switch opTable[in.Op].shape {
	case shapeReg:
		return fmt.Sprintf("%s %d", in.Op, in.Arg1)
	case shapeValue:
		return fmt.Sprintf("%s %v", in.Op, in.Arg2)
	case shapeRegValue, shapeRegReg:
		return fmt.Sprintf("%s %d %v", in.Op, in.Arg1, in.Arg2)
	case shapeRegRegReg:
		return fmt.Sprintf("%s %d %v %d", in.Op, in.Arg1, in.Arg2, in.Arg3)
	default:
		return fmt.Sprintf("%s %d %v @%d", in.Op, in.Arg1, in.Arg2, in.Arg3)
	}
}
