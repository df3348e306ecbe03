package natives

import (
	"fmt"
	"os"

	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/modmgr"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
)

// RegisterIO installs the "io" module: println(v), writing v's Inspect()
// representation to stdout followed by a newline. Grounded on the
// original's print/printl diagnostic logging (meow_vm.cpp logs "Final value
// in r0" on HALT) generalized into a script-callable native rather than a
// VM-internal diagnostic, since the core opcode set (spec §4.H) has no
// output instruction of its own.
func RegisterIO(mgr *modmgr.Manager, heap *gc.MemoryManager) {
	mod := heap.NewModule("io", nil)
	mod.State = objects.ModuleExecuted
	mod.Export(heap.NewString("println"), value.FromObject(heap.NewNativeFunction(heap.NewString("println"), -1, ioPrintln)))
	mgr.RegisterNative("io", mod)
}

func ioPrintln(_ interface{}, args []value.Value) (value.Value, error) {
	parts := make([]interface{}, len(args))
	for i, a := range args {
		parts[i] = a.Inspect()
	}
	fmt.Fprintln(os.Stdout, parts...)
	return value.Null(), nil
}
