package interp

import (
	"github.com/lazypaws/meowvm/internal/builtins"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// getProp implements GET_PROP (spec §4.H "instance field or class method
// lookup"): an Instance checks its own field table first, then its class's
// method chain (wrapped as a BoundMethod); a primitive (String/Array/
// HashTable) receiver consults the Builtin Registry instead (spec §4.I).
func (e *Engine) getProp(receiver value.Value, name *objects.String) (value.Value, error) {
	if inst, ok := receiver.AsObject().(*objects.Instance); receiver.IsObject() && ok {
		if v, ok := inst.GetField(name); ok {
			return v, nil
		}
		if m, ok := inst.Class.FindMethod(name); ok {
			return value.FromObject(e.heap.NewBoundMethod(receiver, m)), nil
		}
		return value.Null(), vmerr.New(vmerr.AttributeNotFound, "%s has no attribute %q", inst.Inspect(), name.Inspect())
	}

	if typeName, ok := builtins.TypeNameFor(receiver); ok {
		if m, ok := e.builtins.Lookup(typeName, name); ok {
			return value.FromObject(e.heap.NewBoundMethod(receiver, m)), nil
		}
		return value.Null(), vmerr.New(vmerr.AttributeNotFound, "%s has no method %q", typeName, name.Inspect())
	}

	return value.Null(), vmerr.New(vmerr.TypeError, "GET_PROP: %s has no properties", receiver.TypeName())
}

// setProp implements SET_PROP: only Instance fields are assignable (spec
// §3 "Instance ... fields are created on first SET_PROP").
func (e *Engine) setProp(receiver value.Value, name *objects.String, v value.Value) error {
	inst, ok := receiver.AsObject().(*objects.Instance)
	if !receiver.IsObject() || !ok {
		return vmerr.New(vmerr.TypeError, "SET_PROP: %s has no assignable properties", receiver.TypeName())
	}
	inst.SetField(name, v)
	return nil
}

// execGetSuper implements GET_SUPER (spec §4.H: "method lookup starting
// from super class of current bound receiver"): the "current bound
// receiver" is whatever Instance CALL bound to this frame when it entered
// via a BoundMethod (internal/interp.CallFrame.Receiver).
func (e *Engine) execGetSuper(f *CallFrame, dst uint16, name *objects.String) error {
	inst, ok := f.Receiver.AsObject().(*objects.Instance)
	if !f.Receiver.IsObject() || !ok {
		return vmerr.New(vmerr.TypeError, "GET_SUPER: no bound instance receiver in this frame")
	}
	if inst.Class == nil || inst.Class.Super == nil {
		return vmerr.New(vmerr.AttributeNotFound, "%s's class has no superclass", inst.Inspect())
	}
	m, ok := inst.Class.Super.FindMethod(name)
	if !ok {
		return vmerr.New(vmerr.AttributeNotFound, "superclass has no method %q", name.Inspect())
	}
	e.ctx.top().setReg(e.ctx, dst, value.FromObject(e.heap.NewBoundMethod(f.Receiver, m)))
	return nil
}
