package interp

import (
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// getIndex implements GET_INDEX over Array (int index) and HashTable
// (String key) receivers (spec §4.H "Array index or HashTable key
// lookup/assign").
func (e *Engine) getIndex(container, index value.Value) (value.Value, error) {
	obj := container.AsObject()
	switch c := obj.(type) {
	case *objects.Array:
		if !index.IsInt() {
			return value.Null(), vmerr.New(vmerr.TypeError, "GET_INDEX: Array index must be an Int, got %s", index.TypeName())
		}
		v, ok := c.Get(int(index.AsInt()))
		if !ok {
			return value.Null(), vmerr.New(vmerr.IndexOutOfRange, "array index %d out of range (len %d)", index.AsInt(), c.Len())
		}
		return v, nil
	case *objects.Hash:
		key, ok := index.AsObject().(*objects.String)
		if !index.IsObject() || !ok {
			return value.Null(), vmerr.New(vmerr.TypeError, "GET_INDEX: HashTable key must be a String, got %s", index.TypeName())
		}
		v, ok := c.Get(key)
		if !ok {
			return value.Null(), vmerr.New(vmerr.KeyNotFound, "key %q not found", key.Inspect())
		}
		return v, nil
	default:
		return value.Null(), vmerr.New(vmerr.TypeError, "GET_INDEX: unsupported receiver type %s", container.TypeName())
	}
}

func (e *Engine) setIndex(container, index, v value.Value) error {
	obj := container.AsObject()
	switch c := obj.(type) {
	case *objects.Array:
		if !index.IsInt() {
			return vmerr.New(vmerr.TypeError, "SET_INDEX: Array index must be an Int, got %s", index.TypeName())
		}
		if !c.Set(int(index.AsInt()), v) {
			return vmerr.New(vmerr.IndexOutOfRange, "array index %d out of range (len %d)", index.AsInt(), c.Len())
		}
		return nil
	case *objects.Hash:
		key, ok := index.AsObject().(*objects.String)
		if !index.IsObject() || !ok {
			return vmerr.New(vmerr.TypeError, "SET_INDEX: HashTable key must be a String, got %s", index.TypeName())
		}
		c.Set(key, v)
		return nil
	default:
		return vmerr.New(vmerr.TypeError, "SET_INDEX: unsupported receiver type %s", container.TypeName())
	}
}
