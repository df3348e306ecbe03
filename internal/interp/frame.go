// Package interp implements the Interpreter Core (spec §4.H): the
// register-window call-frame state machine, the instruction dispatch loop,
// CALL/RETURN semantics, the upvalue open/close protocol, and the
// try/throw handler stack. Grounded on the teacher's internal/vm/vm.go
// (funvibe/funxy) for loop shape and panic/recover-free error propagation
// style, and on original_source/include/vm/meow_vm.h for the subsystem
// wiring (Memory Manager, Module Manager, Operator Dispatcher, Builtin
// Registry all owned by one engine instance — "no global singletons," per
// spec §9 design notes).
package interp

import (
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
)

// CallFrame is one active call's state (spec §4.H "state machine per
// frame"): the executing closure, where to resume in the caller once this
// frame returns, and the base offset into the engine's flat register
// vector.
type CallFrame struct {
	Closure   *objects.Closure
	Module    *objects.Module
	ReturnReg uint16
	IP        int
	Base      int

	// Receiver is set when this frame was entered via a BoundMethod call
	// (spec §4.H CALL semantics); GET_SUPER consults Receiver's class to
	// start its lookup from the superclass. Zero value (Null) otherwise.
	Receiver value.Value
}
