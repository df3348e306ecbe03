package interp

import (
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// handleThrow implements THROW's unwind (spec §4.H "SETUP_TRY/POP_TRY/
// THROW"): pop the innermost handler, close every upvalue captured from a
// register the unwind is about to discard, truncate the register vector and
// frame stack back to the state SETUP_TRY recorded, and resume at the
// handler's target IP with the thrown value in the resuming frame's
// register 0. Reports false (and leaves all state untouched) when no
// handler is active, letting the caller treat the throw as uncaught.
func (e *Engine) handleThrow(thrown value.Value) bool {
	ctx := e.ctx
	if len(ctx.handlers) == 0 {
		return false
	}
	h := ctx.handlers[len(ctx.handlers)-1]
	ctx.handlers = ctx.handlers[:len(ctx.handlers)-1]

	ctx.closeUpvaluesFrom(h.regDepth)
	ctx.Registers = ctx.Registers[:h.regDepth]
	ctx.Frames = ctx.Frames[:h.frameDepth]

	resumed := ctx.top()
	resumed.IP = h.handlerIP
	resumed.setReg(ctx, 0, thrown)
	return true
}

// errorInstance builds (or reuses, via errClassCache/errFieldNames) the
// internal error class and constructs a fresh Instance of it for a
// recoverable *vmerr.Error converted to a THROW (spec §7 "every recoverable
// error ... is converted into a THROW with an instance carrying the error
// kind and a message"). The class has no superclass and is not reachable
// from any Meow-source identifier; scripts observe it only through
// GET_PROP on the caught value, never by name. Kept as per-Engine state
// (not a package-level cache) so multiple Engine instances never share an
// interned string or Class across heaps (spec §9 "no process-wide
// singletons").
func (e *Engine) errorInstance(kind vmerr.Kind, message string) value.Value {
	if e.errClassCache == nil {
		e.errClassCache = e.heap.NewClass(e.heap.NewString("Error"), nil)
	}
	inst := e.heap.NewInstance(e.errClassCache)
	inst.SetField(e.heap.NewString("kind"), value.FromObject(e.heap.NewString(kind.String())))
	inst.SetField(e.heap.NewString("message"), value.FromObject(e.heap.NewString(message)))
	return value.FromObject(inst)
}
