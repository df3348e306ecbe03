package builtins

import (
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// receiverArg0 extracts the bound receiver that internal/interp always
// places in args[0] when it dispatches a BoundMethod (spec §4.H CALL
// semantics: "insert the bound instance as the first argument").
func receiverArg0(args []value.Value) (value.Value, []value.Value, error) {
	if len(args) == 0 {
		return value.Value{}, nil, vmerr.New(vmerr.TypeError, "built-in method called with no receiver")
	}
	return args[0], args[1:], nil
}

func (r *Registry) registerStringMethods() {
	r.addMethod("String", "len", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, _, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		s, ok := recv.AsObject().(*objects.String)
		if !ok {
			return value.Null(), vmerr.New(vmerr.TypeError, "String.len: receiver is not a String")
		}
		return value.Int(int64(s.Len())), nil
	})

	r.addMethod("String", "upper", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, _, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		s := recv.AsObject().(*objects.String)
		out := make([]byte, len(s.Bytes()))
		for i, c := range s.Bytes() {
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out[i] = c
		}
		return value.FromObject(r.heap.NewString(string(out))), nil
	})

	r.addMethod("String", "lower", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, _, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		s := recv.AsObject().(*objects.String)
		out := make([]byte, len(s.Bytes()))
		for i, c := range s.Bytes() {
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			out[i] = c
		}
		return value.FromObject(r.heap.NewString(string(out))), nil
	})
}

func (r *Registry) registerArrayMethods() {
	r.addMethod("Array", "len", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, _, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		a := recv.AsObject().(*objects.Array)
		return value.Int(int64(a.Len())), nil
	})

	r.addMethod("Array", "push", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, rest, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		a := recv.AsObject().(*objects.Array)
		for _, v := range rest {
			a.Push(v)
		}
		return recv, nil
	})

	r.addMethod("Array", "pop", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, _, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		a := recv.AsObject().(*objects.Array)
		v, ok := a.Pop()
		if !ok {
			return value.Null(), vmerr.New(vmerr.IndexOutOfRange, "Array.pop: array is empty")
		}
		return v, nil
	})
}

func (r *Registry) registerHashMethods() {
	r.addMethod("HashTable", "len", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, _, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		h := recv.AsObject().(*objects.Hash)
		return value.Int(int64(h.Len())), nil
	})

	r.addMethod("HashTable", "has", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, rest, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		h := recv.AsObject().(*objects.Hash)
		if len(rest) == 0 {
			return value.Null(), vmerr.New(vmerr.TypeError, "HashTable.has: missing key argument")
		}
		key, ok := rest[0].AsObject().(*objects.String)
		if !ok {
			return value.Null(), vmerr.New(vmerr.TypeError, "HashTable.has: key must be a String")
		}
		return value.Bool(h.Has(key)), nil
	})

	r.addMethod("HashTable", "keys", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, _, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		h := recv.AsObject().(*objects.Hash)
		keys := h.Keys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i] = value.FromObject(k)
		}
		return value.FromObject(r.heap.NewArray(out)), nil
	})

	r.addMethod("HashTable", "values", func(_ interface{}, args []value.Value) (value.Value, error) {
		recv, _, err := receiverArg0(args)
		if err != nil {
			return value.Null(), err
		}
		h := recv.AsObject().(*objects.Hash)
		keys := h.Keys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			v, _ := h.Get(k)
			out[i] = v
		}
		return value.FromObject(r.heap.NewArray(out)), nil
	})
}

// TypeNameFor maps a value's concrete heap kind to the registry key used by
// GET_PROP when dispatching on primitive receivers.
func TypeNameFor(v value.Value) (string, bool) {
	if !v.IsObject() {
		return "", false
	}
	switch v.AsObject().(type) {
	case *objects.String:
		return "String", true
	case *objects.Array:
		return "Array", true
	case *objects.Hash:
		return "HashTable", true
	default:
		return "", false
	}
}
