package interp

import (
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
)

// tryHandler is one entry of the try/throw handler stack (spec §4.H
// "SETUP_TRY/POP_TRY/THROW"): the frame depth and register-vector high
// water mark to unwind to, and the bytecode offset to resume at.
type tryHandler struct {
	frameDepth int
	regDepth   int
	handlerIP  int
}

// ExecutionContext is the live register/frame/upvalue/handler state shared
// by every nested call the engine is currently running (spec §4.H "a flat
// register vector addressed by frame-relative index", "an open-upvalue set
// keyed by absolute register index", "a handler stack for try/throw").
// Grounded on the teacher's internal/vm.VM frame-and-stack layout
// (funvibe/funxy), generalised from a value stack to a register vector per
// the spec's register-machine model.
type ExecutionContext struct {
	Registers []value.Value
	Frames    []*CallFrame
	open      map[int]*objects.Upvalue
	handlers  []tryHandler
}

func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		Registers: make([]value.Value, 0, 256),
		Frames:    make([]*CallFrame, 0, 32),
		open:      make(map[int]*objects.Upvalue),
	}
}

// TraceRoots implements gc.RootProvider: every live register, every active
// frame's closure and module, and every still-open upvalue are roots for
// as long as the call they belong to is on the stack.
func (ctx *ExecutionContext) TraceRoots(v value.Visitor) {
	for _, reg := range ctx.Registers {
		v.VisitValue(reg)
	}
	for _, f := range ctx.Frames {
		if f.Closure != nil {
			v.VisitObject(f.Closure)
		}
		if f.Module != nil {
			v.VisitObject(f.Module)
		}
		v.VisitValue(f.Receiver)
	}
	for _, uv := range ctx.open {
		v.VisitObject(uv)
	}
}

func (ctx *ExecutionContext) top() *CallFrame {
	return ctx.Frames[len(ctx.Frames)-1]
}

// pushFrame extends the register vector by proto.NumRegisters zero-valued
// (Null) slots and pushes a new frame whose Base is the vector's prior
// length, returning the new frame.
func (ctx *ExecutionContext) pushFrame(closure *objects.Closure, mod *objects.Module, returnReg uint16, receiver value.Value) *CallFrame {
	base := len(ctx.Registers)
	n := closure.Proto.NumRegisters
	for i := 0; i < n; i++ {
		ctx.Registers = append(ctx.Registers, value.Null())
	}
	f := &CallFrame{
		Closure:   closure,
		Module:    mod,
		ReturnReg: returnReg,
		Base:      base,
		Receiver:  receiver,
	}
	ctx.Frames = append(ctx.Frames, f)
	return f
}

// popFrame closes every upvalue still open on the departing frame's
// registers (spec §4.H "RETURN closes upvalues captured from this frame")
// and shrinks the register vector back to the frame's base.
func (ctx *ExecutionContext) popFrame() *CallFrame {
	f := ctx.top()
	ctx.closeUpvaluesFrom(f.Base)
	ctx.Registers = ctx.Registers[:f.Base]
	ctx.Frames = ctx.Frames[:len(ctx.Frames)-1]
	return f
}

// reg/setReg read and write a register relative to frame f's Base.
func (f *CallFrame) reg(ctx *ExecutionContext, idx uint16) value.Value {
	return ctx.Registers[f.Base+int(idx)]
}

func (f *CallFrame) setReg(ctx *ExecutionContext, idx uint16, v value.Value) {
	ctx.Registers[f.Base+int(idx)] = v
}
