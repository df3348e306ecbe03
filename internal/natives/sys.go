package natives

import (
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/modmgr"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// RegisterSys installs the "sys" module: gc_stats() for inspecting the
// collector's own bookkeeping, and uuid4() for tagging values (module
// instances, error records, trace spans) with a unique identifier the way a
// host embedding the VM would.
func RegisterSys(mgr *modmgr.Manager, heap *gc.MemoryManager) {
	mod := heap.NewModule("sys", nil)
	mod.State = objects.ModuleExecuted
	mod.Export(heap.NewString("gc_stats"), value.FromObject(heap.NewNativeFunction(heap.NewString("gc_stats"), 0, gcStats)))
	mod.Export(heap.NewString("uuid4"), value.FromObject(heap.NewNativeFunction(heap.NewString("uuid4"), 0, uuid4)))
	mgr.RegisterNative("sys", mod)
}

func gcStats(engine interface{}, _ []value.Value) (value.Value, error) {
	eng, ok := engine.(heapProvider)
	if !ok {
		return value.Null(), vmerr.New(vmerr.TypeError, "sys.gc_stats: engine does not expose a heap")
	}
	heap := eng.Heap()
	allocated := heap.Allocated()
	threshold := heap.Threshold()
	fields := map[*objects.String]value.Value{
		heap.NewString("allocated"):       value.Int(int64(allocated)),
		heap.NewString("threshold"):       value.Int(int64(threshold)),
		heap.NewString("allocated_human"): value.FromObject(heap.NewString(humanize.Comma(int64(allocated)))),
		heap.NewString("threshold_human"): value.FromObject(heap.NewString(humanize.Comma(int64(threshold)))),
	}
	return value.FromObject(heap.NewHash(fields)), nil
}

func uuid4(engine interface{}, _ []value.Value) (value.Value, error) {
	eng, ok := engine.(heapProvider)
	if !ok {
		return value.Null(), vmerr.New(vmerr.TypeError, "sys.uuid4: engine does not expose a heap")
	}
	return value.FromObject(eng.Heap().NewString(uuid.New().String())), nil
}
