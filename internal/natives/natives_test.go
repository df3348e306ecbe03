package natives

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/modmgr"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
)

// fakeEngine is the minimal heapProvider a native function needs; it stands
// in for *interp.Engine without creating a dependency on internal/interp.
type fakeEngine struct{ heap *gc.MemoryManager }

func (f *fakeEngine) Heap() *gc.MemoryManager { return f.heap }

func newTestHeap() *gc.MemoryManager {
	return gc.NewMemoryManager(gc.NewMarkSweepGC())
}

func call(t *testing.T, eng *fakeEngine, v value.Value, args ...value.Value) value.Value {
	t.Helper()
	fn, ok := v.AsObject().(*objects.NativeFunction)
	require.True(t, ok)
	result, err := fn.Call(eng, args)
	require.NoError(t, err)
	return result
}

func TestDBOpenExecQueryClose(t *testing.T) {
	heap := newTestHeap()
	mgr := modmgr.NewManager(heap, "", "")
	RegisterDB(mgr, heap)
	eng := &fakeEngine{heap: heap}

	mod, err := mgr.Load("db", "")
	require.NoError(t, err)
	openFn, ok := mod.GetExport(heap.NewString("open"))
	require.True(t, ok)

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	handle := call(t, eng, openFn, value.FromObject(heap.NewString(dbPath)))
	require.True(t, handle.IsObject())
	h, ok := handle.AsObject().(*objects.Hash)
	require.True(t, ok)

	execFn, ok := h.Get(heap.NewString("exec"))
	require.True(t, ok)
	call(t, eng, execFn, value.FromObject(heap.NewString("CREATE TABLE t (id INTEGER, name TEXT)")))
	call(t, eng, execFn, value.FromObject(heap.NewString("INSERT INTO t (id, name) VALUES (1, 'meow')")))

	queryFn, ok := h.Get(heap.NewString("query"))
	require.True(t, ok)
	rows := call(t, eng, queryFn, value.FromObject(heap.NewString("SELECT id, name FROM t")))
	arr, ok := rows.AsObject().(*objects.Array)
	require.True(t, ok)
	require.Equal(t, 1, arr.Len())

	row, ok := arr.Get(0)
	require.True(t, ok)
	rowHash, ok := row.AsObject().(*objects.Hash)
	require.True(t, ok)
	name, ok := rowHash.Get(heap.NewString("name"))
	require.True(t, ok)
	require.Equal(t, "meow", name.Inspect())

	closeFn, ok := h.Get(heap.NewString("close"))
	require.True(t, ok)
	call(t, eng, closeFn)
}

func TestSysGCStatsAndUUID4(t *testing.T) {
	heap := newTestHeap()
	mgr := modmgr.NewManager(heap, "", "")
	RegisterSys(mgr, heap)
	eng := &fakeEngine{heap: heap}

	mod, err := mgr.Load("sys", "")
	require.NoError(t, err)

	statsFn, ok := mod.GetExport(heap.NewString("gc_stats"))
	require.True(t, ok)
	stats := call(t, eng, statsFn)
	h, ok := stats.AsObject().(*objects.Hash)
	require.True(t, ok)
	allocated, ok := h.Get(heap.NewString("allocated"))
	require.True(t, ok)
	require.True(t, allocated.IsInt())

	uuidFn, ok := mod.GetExport(heap.NewString("uuid4"))
	require.True(t, ok)
	id1 := call(t, eng, uuidFn)
	id2 := call(t, eng, uuidFn)
	require.True(t, id1.IsObject())
	require.NotEqual(t, id1.Inspect(), id2.Inspect())
}

func TestIOPrintlnReturnsNull(t *testing.T) {
	heap := newTestHeap()
	mgr := modmgr.NewManager(heap, "", "")
	RegisterIO(mgr, heap)
	eng := &fakeEngine{heap: heap}

	mod, err := mgr.Load("io", "")
	require.NoError(t, err)
	printlnFn, ok := mod.GetExport(heap.NewString("println"))
	require.True(t, ok)

	result := call(t, eng, printlnFn, value.Int(42), value.FromObject(heap.NewString("hi")))
	require.True(t, result.IsNull())
}
