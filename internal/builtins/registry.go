// Package builtins implements the per-type method/getter registry GET_PROP
// and CALL consult when a receiver is a primitive heap kind (String, Array,
// HashTable) rather than a user-defined Instance (spec §4.H "GET_PROP":
// "instance field or class method lookup/assign" generalises, for
// primitive receivers, to this registry). Grounded on
// original_source/include/runtime/builtin_registry.h, which keys the same
// two tables by type name and is itself a GC root traced alongside the
// execution context.
package builtins

import (
	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
)

type Registry struct {
	methods map[string]map[*objects.String]value.Value
	getters map[string]map[*objects.String]value.Value
	heap    *gc.MemoryManager
}

func NewRegistry(heap *gc.MemoryManager) *Registry {
	r := &Registry{
		methods: make(map[string]map[*objects.String]value.Value),
		getters: make(map[string]map[*objects.String]value.Value),
		heap:    heap,
	}
	r.registerStringMethods()
	r.registerArrayMethods()
	r.registerHashMethods()
	return r
}

// TraceRoots implements gc.RootProvider: every registered NativeFunction
// and method-name string is reachable for the lifetime of the engine.
func (r *Registry) TraceRoots(v value.Visitor) {
	for _, table := range r.methods {
		for name, fn := range table {
			v.VisitObject(name)
			v.VisitValue(fn)
		}
	}
	for _, table := range r.getters {
		for name, fn := range table {
			v.VisitObject(name)
			v.VisitValue(fn)
		}
	}
}

func (r *Registry) addMethod(typeName string, name string, fn objects.NativeFunc) {
	table, ok := r.methods[typeName]
	if !ok {
		table = make(map[*objects.String]value.Value)
		r.methods[typeName] = table
	}
	nameObj := r.heap.NewString(name)
	native := r.heap.NewNativeFunction(nameObj, -1, fn)
	table[nameObj] = value.FromObject(native)
}

// Lookup finds a method by name on the given built-in type name ("String",
// "Array", "HashTable"). The *objects.String key space is per-type, so
// Lookup does a linear scan by byte content rather than relying on pointer
// identity — callers pass in interned strings from the constant pool, which
// are usually (but not guaranteed to be) the very same instance registered
// here.
func (r *Registry) Lookup(typeName string, name *objects.String) (value.Value, bool) {
	table, ok := r.methods[typeName]
	if !ok {
		return value.Null(), false
	}
	if v, ok := table[name]; ok {
		return v, true
	}
	for k, v := range table {
		if k.Equal(name) {
			return v, true
		}
	}
	return value.Null(), false
}
