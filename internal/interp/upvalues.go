package interp

import (
	"github.com/lazypaws/meowvm/internal/objects"
)

// findOrCreateUpvalue implements the reuse half of the upvalue protocol
// (spec §4.H "CLOSURE must reuse an already-open upvalue for a given
// absolute register rather than creating a duplicate, so two closures
// capturing the same local share one cell"). absIndex is an index into
// ctx.Registers, not a frame-relative one.
func (e *Engine) findOrCreateUpvalue(absIndex int) *objects.Upvalue {
	if uv, ok := e.ctx.open[absIndex]; ok {
		return uv
	}
	uv := e.heap.NewUpvalue(absIndex)
	e.ctx.open[absIndex] = uv
	return uv
}

// closeUpvaluesFrom closes every open upvalue whose absolute index is >=
// fromAbs, copying the register's current value into the cell and removing
// it from the open set (spec §4.H "CLOSE_UPVALUES / RETURN close every
// upvalue at or above the given register").
func (ctx *ExecutionContext) closeUpvaluesFrom(fromAbs int) {
	for idx, uv := range ctx.open {
		if idx >= fromAbs {
			uv.Close(ctx.Registers[idx])
			delete(ctx.open, idx)
		}
	}
}
