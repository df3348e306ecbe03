package interp

import (
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// readUpvalue/writeUpvalue dereference an upvalue regardless of whether it
// is still OPEN (live register, read through the shared register vector)
// or already CLOSED (its own copied Value) — spec §3 "Upvalue".
func (e *Engine) readUpvalue(uv *objects.Upvalue) value.Value {
	if uv.IsOpen() {
		return e.ctx.Registers[uv.Index()]
	}
	return uv.Closed()
}

func (e *Engine) writeUpvalue(uv *objects.Upvalue, v value.Value) {
	if uv.IsOpen() {
		e.ctx.Registers[uv.Index()] = v
		return
	}
	uv.SetClosedValue(v)
}

// execClosure implements CLOSURE's variable-length operand shape (spec
// §4.H): dst, a proto constant reference, then proto.NumUpvalues pairs of
// (is_local, index). A `local` pair captures a register of the *currently
// executing* frame (the enclosing scope at the point CLOSURE runs); a
// `parent` pair copies the enclosing closure's own upvalue pointer, so
// nested closures three levels deep share the same cell as the outermost
// capture.
func (e *Engine) execClosure(f *CallFrame, code []byte, ip *int) error {
	ctx := e.ctx
	dst := readVarU16(code, ip)
	protoIdx := readVarU16(code, ip)

	cv, err := f.Closure.Proto.Chunk.Constant(protoIdx)
	if err != nil {
		f.IP = *ip
		return vmerr.Wrap(vmerr.LinkError, err, "%s", err.Error())
	}
	proto, ok := cv.AsObject().(*objects.FunctionProto)
	if !ok {
		f.IP = *ip
		return vmerr.New(vmerr.TypeError, "CLOSURE: constant is not a FunctionProto")
	}

	closure := e.heap.NewClosure(proto)
	closure.Module = e.homeModule(f)

	for i := 0; i < proto.NumUpvalues; i++ {
		isLocal := readVarU16(code, ip)
		idx := readVarU16(code, ip)
		if isLocal != 0 {
			abs := f.Base + int(idx)
			closure.Upvalues[i] = e.findOrCreateUpvalue(abs)
		} else {
			closure.Upvalues[i] = f.Closure.Upvalues[idx]
		}
	}
	f.IP = *ip
	f.setReg(ctx, dst, value.FromObject(closure))
	return nil
}
