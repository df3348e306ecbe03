package objects

import (
	"fmt"

	"github.com/lazypaws/meowvm/internal/chunk"
	"github.com/lazypaws/meowvm/internal/value"
)

// UpvalueDesc describes how a Closure's i-th upvalue is captured at CLOSURE
// time (spec §3 "FunctionProto"): either a caller-frame register (IsLocal)
// or an index into the enclosing closure's own upvalue array.
type UpvalueDesc struct {
	IsLocal bool
	Index   int
}

// upvalueState is the two-state machine from spec §3 ("Upvalue"): OPEN
// references a live register slot, CLOSED holds a copied Value. The
// transition is one-way.
type upvalueState uint8

const (
	upvalueOpen upvalueState = iota
	upvalueClosed
)

// Upvalue is the indirection cell implementing closure capture. While OPEN,
// Index is an absolute index into the interpreter's flat register vector
// (internal/interp.ExecutionContext.Registers); RETURN and CLOSE_UPVALUES
// close any upvalue whose slot is leaving scope (spec §4.H "Upvalue
// protocol").
type Upvalue struct {
	state  upvalueState
	index  int
	closed value.Value
}

func NewOpenUpvalue(index int) *Upvalue {
	return &Upvalue{state: upvalueOpen, index: index, closed: value.Null()}
}

func (u *Upvalue) ObjKind() value.Kind { return value.KindUpvalue }
func (u *Upvalue) Inspect() string     { return fmt.Sprintf("<upvalue %v>", u.state == upvalueClosed) }

func (u *Upvalue) Trace(v value.Visitor) {
	// If OPEN the referenced value lives in the execution context's
	// register vector and is traced from there (spec §4.A); only a CLOSED
	// upvalue owns its own Value.
	if u.state == upvalueClosed {
		v.VisitValue(u.closed)
	}
}

func (u *Upvalue) IsOpen() bool   { return u.state == upvalueOpen }
func (u *Upvalue) IsClosed() bool { return u.state == upvalueClosed }
func (u *Upvalue) Index() int     { return u.index }

func (u *Upvalue) Close(v value.Value) {
	u.closed = v
	u.state = upvalueClosed
}

func (u *Upvalue) Closed() value.Value { return u.closed }

// SetClosedValue overwrites a CLOSED upvalue's stored value in place
// (SET_UPVALUE targeting an upvalue that has already been closed — spec
// §4.H "current closure's upvalue list" makes no distinction between an
// open and a closed target for SET_UPVALUE).
func (u *Upvalue) SetClosedValue(v value.Value) { u.closed = v }

// FunctionProto is the immutable compiled-function header produced by the
// text parser/linker (spec §3, §4.E). Once linked, every field is final.
type FunctionProto struct {
	NumRegisters int
	NumUpvalues  int
	Name         *String
	Chunk        *chunk.Chunk
	UpvalueDescs []UpvalueDesc
}

func NewFunctionProto(numRegisters, numUpvalues int, name *String, ch *chunk.Chunk, descs []UpvalueDesc) *FunctionProto {
	return &FunctionProto{
		NumRegisters: numRegisters,
		NumUpvalues:  numUpvalues,
		Name:         name,
		Chunk:        ch,
		UpvalueDescs: descs,
	}
}

func (p *FunctionProto) ObjKind() value.Kind { return value.KindProto }
func (p *FunctionProto) Inspect() string {
	if p.Name != nil {
		return fmt.Sprintf("<proto %s>", p.Name.Inspect())
	}
	return "<proto>"
}

func (p *FunctionProto) Trace(v value.Visitor) {
	if p.Name != nil {
		v.VisitObject(p.Name)
	}
	for _, c := range p.Chunk.Constants {
		v.VisitValue(c)
	}
}

// Closure pairs a FunctionProto with its captured Upvalues (spec §3
// "Closure"). Upvalues is always length == Proto.NumUpvalues, populated at
// CLOSURE-instruction time; every slot must be non-nil before the closure is
// published (spec §8 invariant).
type Closure struct {
	Proto    *FunctionProto
	Upvalues []*Upvalue

	// Module is the module this closure is lexically bound to: whichever
	// module was executing when the CLOSURE instruction ran. GET_GLOBAL
	// and SET_GLOBAL inside this closure's body resolve against
	// Module.Globals regardless of which module's code later calls it
	// (spec §4.F/§4.H: "current module's globals" means the callee's
	// home module, not the caller's).
	Module *Module
}

func NewClosure(proto *FunctionProto) *Closure {
	return &Closure{Proto: proto, Upvalues: make([]*Upvalue, proto.NumUpvalues)}
}

func (c *Closure) ObjKind() value.Kind { return value.KindClosure }
func (c *Closure) Inspect() string {
	if c.Proto != nil && c.Proto.Name != nil {
		return fmt.Sprintf("<closure %s>", c.Proto.Name.Inspect())
	}
	return "<closure>"
}

func (c *Closure) Trace(v value.Visitor) {
	v.VisitObject(c.Proto)
	for _, uv := range c.Upvalues {
		if uv != nil {
			v.VisitObject(uv)
		}
	}
	if c.Module != nil {
		v.VisitObject(c.Module)
	}
}
