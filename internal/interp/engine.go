package interp

import (
	"github.com/lazypaws/meowvm/internal/builtins"
	"github.com/lazypaws/meowvm/internal/dispatch"
	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/modmgr"
	"github.com/lazypaws/meowvm/internal/natives"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// Engine is the single VM instance (spec §9 "Global mutable state": "all
// per-VM state must be owned by a single VM instance struct ... the public
// API forbids process-wide singletons so multiple VMs may coexist").
// Grounded on original_source/include/vm/meow_vm.h, which holds exactly
// these five collaborators behind one struct and no package-level state.
type Engine struct {
	heap       *gc.MemoryManager
	dispatcher *dispatch.Dispatcher
	modules    *modmgr.Manager
	builtins   *builtins.Registry
	ctx        *ExecutionContext

	initNameCache *objects.String
	errClassCache *objects.Class
}

// New wires every subsystem together. The construction order mirrors the
// dependency cycle the interfaces in internal/gc and internal/modmgr exist
// to break: the collector needs roots before the things holding those roots
// exist, and the module manager needs an executor before the engine exists.
func New(entryDir, libraryRoot string) *Engine {
	collector := gc.NewMarkSweepGC()
	heap := gc.NewMemoryManager(collector)

	e := &Engine{
		heap:     heap,
		ctx:      NewExecutionContext(),
		builtins: builtins.NewRegistry(heap),
		modules:  modmgr.NewManager(heap, entryDir, libraryRoot),
	}
	e.dispatcher = dispatch.New(heap)

	collector.AddRoot(e.ctx)
	collector.AddRoot(e.builtins)
	collector.AddRoot(e.modules)
	e.modules.SetExecutor(e)

	natives.RegisterDB(e.modules, heap)
	natives.RegisterSys(e.modules, heap)
	natives.RegisterIO(e.modules, heap)

	return e
}

func (e *Engine) Heap() *gc.MemoryManager     { return e.heap }
func (e *Engine) Modules() *modmgr.Manager    { return e.modules }
func (e *Engine) Builtins() *builtins.Registry { return e.builtins }

// RunFile resolves and runs path as the entry module, exactly the way any
// IMPORT_MODULE resolves a path, except with no importer directory of its
// own (spec §4.F resolution order falls through to the entry/library-root
// candidates for a bare entry path).
func (e *Engine) RunFile(path string) (*objects.Module, error) {
	return e.modules.Load(path, "")
}

// RunModule implements modmgr.Executor: push an initial frame for mod.Main
// and run the dispatch loop until that frame (and only that frame) returns,
// marking mod EXECUTED is the caller's (modmgr.Manager's) responsibility.
func (e *Engine) RunModule(mod *objects.Module) error {
	closure := e.heap.NewClosure(mod.Main)
	closure.Module = mod
	baseDepth := len(e.ctx.Frames)
	e.ctx.pushFrame(closure, mod, loader_ReturnSentinel, value.Null())
	return e.run(baseDepth)
}

// loader_ReturnSentinel mirrors internal/loader.ReturnSentinel (0xFFFF,
// "no return register"); the top-level module frame never writes a return
// value anywhere, so it uses the same sentinel a CALL_VOID callee would.
const loader_ReturnSentinel = 0xFFFF

// TraceRoots is not implemented directly on Engine: the ExecutionContext,
// Registry, and Manager are each registered as independent gc.RootProvider
// instances (see New), so the collector traces them without routing
// through the Engine at all.

// BacktraceFrame is one line of an uncaught-throw backtrace: a proto's
// source name and the ip the fault (or the call into the next frame) was
// at, spec §7 "prints the thrown value's string form and a frame backtrace
// with each frame's proto source name and current ip".
type BacktraceFrame struct {
	SourceName string
	IP         int
}

// Backtrace snapshots every active frame, innermost first. Safe to call
// right after RunFile/RunModule returns an error: handleThrow leaves
// ctx.Frames untouched on its no-handler path, so the stack is still
// exactly what it was when the fault occurred.
func (e *Engine) Backtrace() []BacktraceFrame {
	frames := e.ctx.Frames
	out := make([]BacktraceFrame, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		source := "<unknown>"
		if f.Closure != nil && f.Closure.Proto != nil && f.Closure.Proto.Chunk != nil {
			source = f.Closure.Proto.Chunk.SourceName
		}
		out = append(out, BacktraceFrame{SourceName: source, IP: f.IP})
	}
	return out
}

// raiseAt annotates err with the current frame's source name if it is a
// *vmerr.Error (spec §7: "runtime errors are annotated with the current
// frame's source name ... before propagating"). Errors from outside any
// frame (e.g. pre-link failures) pass through unchanged.
func (e *Engine) raiseAt(f *CallFrame, err error) error {
	if err == nil {
		return nil
	}
	if f == nil {
		return err
	}
	if ve, ok := err.(*vmerr.Error); ok {
		source := "<unknown>"
		if f != nil && f.Closure != nil && f.Closure.Proto != nil && f.Closure.Proto.Chunk != nil {
			source = f.Closure.Proto.Chunk.SourceName
		}
		return ve.WithLocation(source, f.IP)
	}
	return err
}
