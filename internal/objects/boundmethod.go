package objects

import (
	"github.com/lazypaws/meowvm/internal/value"
)

// BoundMethod pairs a receiver with an unbound method Value (Closure or
// NativeFunction), produced by GET_PROP when the looked-up name resolves to
// a method rather than a field (spec §3 "BoundMethod"). CALL on a
// BoundMethod pushes Receiver as the callee's implicit first register.
// Receiver is a plain value.Value rather than *Instance so the same
// machinery serves both user-class method dispatch and the built-in
// method registry's String/Array/HashTable receivers (internal/builtins).
type BoundMethod struct {
	Receiver value.Value
	Method   value.Value
}

func NewBoundMethod(receiver value.Value, method value.Value) *BoundMethod {
	return &BoundMethod{Receiver: receiver, Method: method}
}

func (b *BoundMethod) ObjKind() value.Kind { return value.KindBoundMethod }
func (b *BoundMethod) Inspect() string     { return "<bound method>" }

func (b *BoundMethod) Trace(v value.Visitor) {
	v.VisitValue(b.Receiver)
	v.VisitValue(b.Method)
}
