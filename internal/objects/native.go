package objects

import (
	"fmt"

	"github.com/lazypaws/meowvm/internal/value"
)

// NativeFunc is the call shape for a NativeFunction. engine is typed
// interface{} rather than a concrete *interp.Engine: internal/objects sits
// below internal/interp in the dependency graph (Closures and Classes hold
// Values that can reference native functions), so a concrete engine type
// here would close a package cycle. internal/interp passes itself as
// engine; internal/natives type-asserts it back to its own heapProvider
// interface, and internal/builtins ignores it;
// this mirrors the original's forward-declared `class MeowEngine;` used by
// native.h without a full definition.
type NativeFunc func(engine interface{}, args []value.Value) (value.Value, error)

// NativeFunction is a builtin or host-registered callable (spec §3
// "NativeFunction"). Unlike Closure it carries no Chunk or upvalues; Arity
// of -1 means variadic (all supplied args forwarded as a slice).
type NativeFunction struct {
	Name  *String
	Arity int
	Fn    NativeFunc
}

func NewNativeFunction(name *String, arity int, fn NativeFunc) *NativeFunction {
	return &NativeFunction{Name: name, Arity: arity, Fn: fn}
}

func (n *NativeFunction) ObjKind() value.Kind { return value.KindNative }

func (n *NativeFunction) Inspect() string {
	if n.Name != nil {
		return fmt.Sprintf("<native %s>", n.Name.Inspect())
	}
	return "<native>"
}

func (n *NativeFunction) Trace(v value.Visitor) {
	if n.Name != nil {
		v.VisitObject(n.Name)
	}
}

func (n *NativeFunction) Call(engine interface{}, args []value.Value) (value.Value, error) {
	return n.Fn(engine, args)
}
