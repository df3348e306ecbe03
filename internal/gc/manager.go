package gc

import (
	"github.com/lazypaws/meowvm/internal/chunk"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
)

const initialThreshold = 1024

// MemoryManager is the sole allocation entry point for every heap object
// kind (spec §4.C "Memory Manager"): it owns the string intern pool, the
// GC-trigger threshold policy, and the enable/disable-gc switch consulted
// by DisableGuard. Grounded on memory_manager.h/.cpp's new_object<T>
// template, expanded into one constructor method per object kind since Go
// has no variadic generic allocator equivalent.
type MemoryManager struct {
	gc         *MarkSweepGC
	stringPool map[string]*objects.String
	allocated  int
	threshold  int
	gcEnabled  bool
}

func NewMemoryManager(gc *MarkSweepGC) *MemoryManager {
	return &MemoryManager{
		gc:         gc,
		stringPool: make(map[string]*objects.String),
		threshold:  initialThreshold,
		gcEnabled:  true,
	}
}

// maybeCollect implements the GC trigger policy (spec §4.C: "collect when
// allocated_count >= threshold, then double the threshold").
func (m *MemoryManager) maybeCollect() {
	if m.gcEnabled && m.allocated >= m.threshold {
		m.Collect()
		m.threshold *= 2
	}
}

func (m *MemoryManager) register(o value.Object) {
	m.gc.RegisterObject(o)
	m.allocated++
}

// Collect forces an immediate mark-sweep cycle and prunes the string intern
// pool of any entry the collector did not mark, regardless of the
// threshold policy. Also invoked internally by maybeCollect.
func (m *MemoryManager) Collect() {
	survivors := m.gc.Collect()
	for k, s := range m.stringPool {
		if !m.gc.IsMarked(s) {
			delete(m.stringPool, k)
		}
	}
	m.allocated = survivors
}

func (m *MemoryManager) EnableGC()  { m.gcEnabled = true }
func (m *MemoryManager) DisableGC() { m.gcEnabled = false }

// DisableGuard disables the collector and returns a closure that restores
// whatever enabled/disabled state was in effect before the call — not
// unconditionally re-enabling — so nested guards compose correctly. This is
// the Go idiom (`defer mm.DisableGuard()()`) for the original's RAII
// GCDisableGuard (gc_disable_guard.h).
func (m *MemoryManager) DisableGuard() func() {
	prev := m.gcEnabled
	m.gcEnabled = false
	return func() { m.gcEnabled = prev }
}

// NewString interns on byte content: a repeat call with equal content
// returns the previously allocated *String instead of allocating (spec §3
// "String ... interned").
func (m *MemoryManager) NewString(s string) *objects.String {
	if existing, ok := m.stringPool[s]; ok {
		return existing
	}
	m.maybeCollect()
	obj := objects.NewString(s)
	m.register(obj)
	m.stringPool[s] = obj
	return obj
}

func (m *MemoryManager) NewArray(elements []value.Value) *objects.Array {
	m.maybeCollect()
	obj := objects.NewArray(elements)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewHash(fields map[*objects.String]value.Value) *objects.Hash {
	m.maybeCollect()
	obj := objects.NewHash(fields)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewUpvalue(index int) *objects.Upvalue {
	m.maybeCollect()
	obj := objects.NewOpenUpvalue(index)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewFunctionProto(numRegisters, numUpvalues int, name *objects.String, ch *chunk.Chunk, descs []objects.UpvalueDesc) *objects.FunctionProto {
	m.maybeCollect()
	obj := objects.NewFunctionProto(numRegisters, numUpvalues, name, ch, descs)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewClosure(proto *objects.FunctionProto) *objects.Closure {
	m.maybeCollect()
	obj := objects.NewClosure(proto)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewModule(path string, main *objects.FunctionProto) *objects.Module {
	m.maybeCollect()
	obj := objects.NewModule(path, main)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewNativeFunction(name *objects.String, arity int, fn objects.NativeFunc) *objects.NativeFunction {
	m.maybeCollect()
	obj := objects.NewNativeFunction(name, arity, fn)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewClass(name *objects.String, super *objects.Class) *objects.Class {
	m.maybeCollect()
	obj := objects.NewClass(name, super)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewInstance(class *objects.Class) *objects.Instance {
	m.maybeCollect()
	obj := objects.NewInstance(class)
	m.register(obj)
	return obj
}

func (m *MemoryManager) NewBoundMethod(receiver value.Value, method value.Value) *objects.BoundMethod {
	m.maybeCollect()
	obj := objects.NewBoundMethod(receiver, method)
	m.register(obj)
	return obj
}

// Allocated and Threshold expose current GC diagnostics (spec-adjacent;
// wired to the humanize-formatted --gc-stats CLI flag in internal/clirun).
func (m *MemoryManager) Allocated() int { return m.allocated }
func (m *MemoryManager) Threshold() int { return m.threshold }
