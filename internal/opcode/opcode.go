// Package opcode is the single source of truth for instruction numbering
// (spec §5 "External Interfaces": "opcode numbers are part of the bytecode
// format and must not be renumbered without a format version bump"). Both
// the text parser/linker (internal/loader) and the interpreter/dispatcher
// (internal/interp, internal/dispatch) import this package instead of
// defining their own enums, so the two halves of the format can never drift
// apart the way a per-package enum could.
package opcode

type Op uint8

const (
	LoadConst Op = iota
	LoadNull
	LoadTrue
	LoadFalse
	LoadInt
	LoadFloat
	Move

	Add
	Sub
	Mul
	Div
	Mod
	Pow

	Eq
	Neq
	Lt
	Le
	Gt
	Ge

	BAnd
	BOr
	BXor
	Shl
	Shr

	Neg
	Not
	BNot

	GetGlobal
	SetGlobal
	GetUpvalue
	SetUpvalue

	Closure
	CloseUpvalues

	Jump
	JumpIfFalse
	JumpIfTrue

	Call
	Return
	Halt

	NewArray
	NewHash
	GetIndex
	SetIndex
	GetKeys
	GetValues

	NewClass
	NewInstance
	GetProp
	SetProp
	SetMethod
	Inherit
	GetSuper

	SetupTry
	PopTry
	Throw

	ImportModule
	Export
	GetExport
	GetModuleExport
	ImportAll

	NumOpcodes
)

var names = [...]string{
	"LOAD_CONST", "LOAD_NULL", "LOAD_TRUE", "LOAD_FALSE", "LOAD_INT", "LOAD_FLOAT", "MOVE",
	"ADD", "SUB", "MUL", "DIV", "MOD", "POW",
	"EQ", "NEQ", "LT", "LE", "GT", "GE",
	"BAND", "BOR", "BXOR", "SHL", "SHR",
	"NEG", "NOT", "BNOT",
	"GET_GLOBAL", "SET_GLOBAL", "GET_UPVALUE", "SET_UPVALUE",
	"CLOSURE", "CLOSE_UPVALUES",
	"JUMP", "JUMP_IF_FALSE", "JUMP_IF_TRUE",
	"CALL", "RETURN", "HALT",
	"NEW_ARRAY", "NEW_HASH", "GET_INDEX", "SET_INDEX", "GET_KEYS", "GET_VALUES",
	"NEW_CLASS", "NEW_INSTANCE", "GET_PROP", "SET_PROP", "SET_METHOD", "INHERIT", "GET_SUPER",
	"SETUP_TRY", "POP_TRY", "THROW",
	"IMPORT_MODULE", "EXPORT", "GET_EXPORT", "GET_MODULE_EXPORT", "IMPORT_ALL",
}

func (o Op) String() string {
	if int(o) < len(names) {
		return names[o]
	}
	return "UNKNOWN_OP"
}

// ByName resolves a mnemonic to its Op, used by the text parser. Returns
// false for an unrecognized mnemonic so the caller can produce a
// vmerr.ParseError with the offending token.
func ByName(name string) (Op, bool) {
	for i, n := range names {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}
