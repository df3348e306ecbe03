package loader

import "github.com/lazypaws/meowvm/internal/opcode"

// ArgKind classifies one operand slot of an instruction, driving both how
// the parser consumes a token and how it gets encoded into the chunk (spec
// §4.H instruction table).
type ArgKind uint8

const (
	ArgReg       ArgKind = iota // register index or other raw integer, var-u16 encoded
	ArgConstIdx                 // explicit numeric index into the proto's .const pool (LOAD_CONST)
	ArgConstAuto                // a literal token (string/int/float/bool/null), auto-interned as a constant
	ArgImmI64                   // fixed 8-byte little-endian int64 (LOAD_INT)
	ArgImmF64                   // fixed 8-byte little-endian float64 (LOAD_FLOAT)
	ArgJumpTarget               // a label identifier (patched) or a literal integer target
	ArgProtoRef                 // "@name", auto-interned as a proto-reference placeholder constant
)

// instrSpecs gives the fixed operand shape for every opcode except RETURN
// and CLOSURE, which have variable arity handled specially in the parser.
var instrSpecs = map[opcode.Op][]ArgKind{
	opcode.LoadConst:  {ArgReg, ArgConstIdx},
	opcode.LoadNull:   {ArgReg},
	opcode.LoadTrue:   {ArgReg},
	opcode.LoadFalse:  {ArgReg},
	opcode.LoadInt:    {ArgReg, ArgImmI64},
	opcode.LoadFloat:  {ArgReg, ArgImmF64},
	opcode.Move:       {ArgReg, ArgReg},

	opcode.Add:  {ArgReg, ArgReg, ArgReg},
	opcode.Sub:  {ArgReg, ArgReg, ArgReg},
	opcode.Mul:  {ArgReg, ArgReg, ArgReg},
	opcode.Div:  {ArgReg, ArgReg, ArgReg},
	opcode.Mod:  {ArgReg, ArgReg, ArgReg},
	opcode.Pow:  {ArgReg, ArgReg, ArgReg},
	opcode.Eq:   {ArgReg, ArgReg, ArgReg},
	opcode.Neq:  {ArgReg, ArgReg, ArgReg},
	opcode.Lt:   {ArgReg, ArgReg, ArgReg},
	opcode.Le:   {ArgReg, ArgReg, ArgReg},
	opcode.Gt:   {ArgReg, ArgReg, ArgReg},
	opcode.Ge:   {ArgReg, ArgReg, ArgReg},
	opcode.BAnd: {ArgReg, ArgReg, ArgReg},
	opcode.BOr:  {ArgReg, ArgReg, ArgReg},
	opcode.BXor: {ArgReg, ArgReg, ArgReg},
	opcode.Shl:  {ArgReg, ArgReg, ArgReg},
	opcode.Shr:  {ArgReg, ArgReg, ArgReg},

	opcode.Neg:  {ArgReg, ArgReg},
	opcode.Not:  {ArgReg, ArgReg},
	opcode.BNot: {ArgReg, ArgReg},

	opcode.GetGlobal:  {ArgReg, ArgConstAuto},
	opcode.SetGlobal:  {ArgReg, ArgConstAuto},
	opcode.GetUpvalue: {ArgReg, ArgReg},
	opcode.SetUpvalue: {ArgReg, ArgReg},

	opcode.CloseUpvalues: {ArgReg},

	opcode.Jump:        {ArgJumpTarget},
	opcode.JumpIfFalse:  {ArgReg, ArgJumpTarget},
	opcode.JumpIfTrue:   {ArgReg, ArgJumpTarget},

	opcode.Call: {ArgReg, ArgReg, ArgReg, ArgReg},
	opcode.Halt: {},

	opcode.NewArray: {ArgReg, ArgReg, ArgReg},
	opcode.NewHash:  {ArgReg, ArgReg, ArgReg},
	opcode.GetIndex: {ArgReg, ArgReg, ArgReg},
	opcode.SetIndex: {ArgReg, ArgReg, ArgReg},
	opcode.GetKeys:   {ArgReg, ArgReg},
	opcode.GetValues: {ArgReg, ArgReg},

	opcode.NewClass:    {ArgReg, ArgConstAuto},
	opcode.NewInstance: {ArgReg, ArgReg},
	opcode.GetProp:      {ArgReg, ArgReg, ArgConstAuto},
	opcode.SetProp:      {ArgReg, ArgConstAuto, ArgReg},
	opcode.SetMethod:    {ArgReg, ArgConstAuto, ArgReg},
	opcode.Inherit:      {ArgReg, ArgReg},
	opcode.GetSuper:     {ArgReg, ArgConstAuto},

	opcode.SetupTry: {ArgJumpTarget},
	opcode.PopTry:   {},
	opcode.Throw:    {ArgReg},

	opcode.ImportModule:    {ArgReg, ArgConstAuto},
	opcode.Export:          {ArgConstAuto, ArgReg},
	opcode.GetExport:       {ArgReg, ArgReg, ArgConstAuto},
	opcode.GetModuleExport: {ArgReg, ArgReg, ArgConstAuto},
	opcode.ImportAll:       {ArgReg},
}

// ReturnSentinel is written by the encoder whenever RETURN has no explicit
// register operand (spec §9 Open Question 1: "the encoder MUST emit the
// sentinel when no value is intended, never omit the byte").
const ReturnSentinel uint16 = 0xFFFF

// CallVoidSentinel marks a CALL whose result is discarded (spec §4.H:
// "dst == 0xFFFF sentinel means 'no return needed'").
const CallVoidSentinel uint16 = 0xFFFF
