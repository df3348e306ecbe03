package interp

import (
	"fmt"
	"strings"

	"github.com/lazypaws/meowvm/internal/chunk"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/opcode"
)

// argKind classifies one operand slot for disassembly purposes only — a
// deliberately small restatement of internal/loader's unexported ArgKind
// table (the parser's copy drives encoding, this one only drives how many
// bytes to skip and how to print what's there), the same restate-rather-
// than-share call made for ReturnSentinel/CallVoidSentinel in calls.go.
type argKind uint8

const (
	argReg argKind = iota
	argConst
	argJump
)

var disasmShapes = map[opcode.Op][]argKind{
	opcode.LoadConst: {argReg, argConst},
	opcode.LoadNull:  {argReg},
	opcode.LoadTrue:  {argReg},
	opcode.LoadFalse: {argReg},
	opcode.Move:      {argReg, argReg},

	opcode.Add: {argReg, argReg, argReg}, opcode.Sub: {argReg, argReg, argReg},
	opcode.Mul: {argReg, argReg, argReg}, opcode.Div: {argReg, argReg, argReg},
	opcode.Mod: {argReg, argReg, argReg}, opcode.Pow: {argReg, argReg, argReg},
	opcode.Eq: {argReg, argReg, argReg}, opcode.Neq: {argReg, argReg, argReg},
	opcode.Lt: {argReg, argReg, argReg}, opcode.Le: {argReg, argReg, argReg},
	opcode.Gt: {argReg, argReg, argReg}, opcode.Ge: {argReg, argReg, argReg},
	opcode.BAnd: {argReg, argReg, argReg}, opcode.BOr: {argReg, argReg, argReg},
	opcode.BXor: {argReg, argReg, argReg}, opcode.Shl: {argReg, argReg, argReg},
	opcode.Shr: {argReg, argReg, argReg},

	opcode.Neg: {argReg, argReg}, opcode.Not: {argReg, argReg}, opcode.BNot: {argReg, argReg},

	opcode.GetGlobal:  {argReg, argConst},
	opcode.SetGlobal:  {argReg, argConst},
	opcode.GetUpvalue: {argReg, argReg},
	opcode.SetUpvalue: {argReg, argReg},

	opcode.CloseUpvalues: {argReg},

	opcode.Jump:        {argJump},
	opcode.JumpIfFalse: {argReg, argJump},
	opcode.JumpIfTrue:  {argReg, argJump},

	opcode.Call: {argReg, argReg, argReg, argReg},
	opcode.Halt: {},

	opcode.NewArray: {argReg, argReg, argReg},
	opcode.NewHash:  {argReg, argReg, argReg},
	opcode.GetIndex: {argReg, argReg, argReg},
	opcode.SetIndex: {argReg, argReg, argReg},
	opcode.GetKeys:   {argReg, argReg},
	opcode.GetValues: {argReg, argReg},

	opcode.NewClass:    {argReg, argConst},
	opcode.NewInstance: {argReg, argReg},
	opcode.GetProp:      {argReg, argReg, argConst},
	opcode.SetProp:      {argReg, argConst, argReg},
	opcode.SetMethod:    {argReg, argConst, argReg},
	opcode.Inherit:      {argReg, argReg},
	opcode.GetSuper:     {argReg, argConst},

	opcode.SetupTry: {argJump},
	opcode.PopTry:   {},
	opcode.Throw:    {argReg},

	opcode.Export:          {argConst, argReg},
	opcode.GetExport:       {argReg, argReg, argConst},
	opcode.GetModuleExport: {argReg, argReg, argConst},
	opcode.ImportAll:       {argReg},
	// LoadInt, LoadFloat, Closure, Return, ImportModule are handled outside
	// this shape table: the first three have a fixed-width immediate or
	// variable-length upvalue descriptor list the table can't express,
	// Return has a single register-or-sentinel operand, and ImportModule
	// shares LoadConst's (reg, const) shape.
}

// Disassemble renders ch's instruction stream as one line per instruction —
// offset, mnemonic, operands — for --disasm output (SUPPLEMENTED FEATURE: a debug-only bytecode disassembler,
// grounded on the teacher's internal/vm disassembly style of walking a flat
// byte stream opcode-by-opcode rather than building an AST-shaped view).
func Disassemble(ch *chunk.Chunk) []string {
	lines := make([]string, 0, len(ch.Code))
	ip := 0
	for ip < len(ch.Code) {
		offset := ip
		op := opcode.Op(ch.Code[ip])
		ip++

		var operands []string
		switch op {
		case opcode.LoadInt:
			dst, n := chunk.DecodeVarU16(ch.Code, ip)
			ip += n
			imm := chunk.DecodeI64(ch.Code, ip)
			ip += 8
			operands = []string{regStr(dst), fmt.Sprintf("%d", imm)}

		case opcode.LoadFloat:
			dst, n := chunk.DecodeVarU16(ch.Code, ip)
			ip += n
			imm := chunk.DecodeF64(ch.Code, ip)
			ip += 8
			operands = []string{regStr(dst), fmt.Sprintf("%g", imm)}

		case opcode.ImportModule:
			dst, n := chunk.DecodeVarU16(ch.Code, ip)
			ip += n
			path, n := chunk.DecodeVarU16(ch.Code, ip)
			ip += n
			operands = []string{regStr(dst), constStr(ch, path)}

		case opcode.Return:
			reg, n := chunk.DecodeVarU16(ch.Code, ip)
			ip += n
			if reg == ReturnSentinel {
				operands = []string{"-"}
			} else {
				operands = []string{regStr(reg)}
			}

		case opcode.Closure:
			dst, n := chunk.DecodeVarU16(ch.Code, ip)
			ip += n
			protoIdx, n := chunk.DecodeVarU16(ch.Code, ip)
			ip += n
			operands = []string{regStr(dst), constStr(ch, protoIdx)}

			numUpvalues := 0
			if cv, err := ch.Constant(protoIdx); err == nil {
				if proto, ok := cv.AsObject().(*objects.FunctionProto); ok {
					numUpvalues = proto.NumUpvalues
				}
			}
			for i := 0; i < numUpvalues; i++ {
				isLocal, n := chunk.DecodeVarU16(ch.Code, ip)
				ip += n
				idx, n := chunk.DecodeVarU16(ch.Code, ip)
				ip += n
				kind := "up"
				if isLocal != 0 {
					kind = "local"
				}
				operands = append(operands, fmt.Sprintf("%s:%d", kind, idx))
			}

		default:
			shape, ok := disasmShapes[op]
			if !ok {
				lines = append(lines, fmt.Sprintf("%04d %-16s <unknown operand shape>", offset, op))
				continue
			}
			for _, k := range shape {
				v, n := chunk.DecodeVarU16(ch.Code, ip)
				ip += n
				switch k {
				case argReg:
					operands = append(operands, regStr(v))
				case argConst:
					operands = append(operands, constStr(ch, v))
				case argJump:
					operands = append(operands, fmt.Sprintf("->%d", v))
				}
			}
		}

		lines = append(lines, fmt.Sprintf("%04d %-16s %s", offset, op, strings.Join(operands, ", ")))
	}
	return lines
}

func regStr(idx uint16) string { return fmt.Sprintf("r%d", idx) }

func constStr(ch *chunk.Chunk, idx uint16) string {
	v, err := ch.Constant(idx)
	if err != nil {
		return fmt.Sprintf("c%d", idx)
	}
	return fmt.Sprintf("c%d(%s)", idx, v.Inspect())
}
