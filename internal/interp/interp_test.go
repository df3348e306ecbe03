package interp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lazypaws/meowvm/internal/loader"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
)

// runMain parses source as a standalone module (bypassing the Module
// Manager's file-resolution machinery — see TestImportModule for that path)
// and runs it to completion on a fresh Engine, returning the resulting
// Module so the test can inspect its Globals/Exports.
func runMain(t *testing.T, source string) (*Engine, *objects.Module) {
	t.Helper()
	e := New(t.TempDir(), "")
	protos, err := loader.Parse(e.heap, "test.meow", source)
	require.NoError(t, err)
	main, ok := protos["main"]
	require.True(t, ok, "source has no main function")
	mod := e.heap.NewModule("test.meow", main)
	require.NoError(t, e.RunModule(mod))
	return e, mod
}

func globalOf(e *Engine, mod *objects.Module, name string) (value.Value, bool) {
	return mod.GetGlobal(e.heap.NewString(name))
}

func TestArithmeticAndGlobals(t *testing.T) {
	src := `
.func main
.registers 4
.upvalues 0
LOAD_INT 0 2
LOAD_INT 1 3
MUL 2 0 1
SET_GLOBAL 2 "result"
HALT
.endfunc
`
	e, mod := runMain(t, src)
	v, ok := globalOf(e, mod, "result")
	require.True(t, ok)
	require.True(t, v.IsInt())
	require.Equal(t, int64(6), v.AsInt())
}

func TestClosureSharedUpvalue(t *testing.T) {
	src := `
.func inc
.registers 2
.upvalues 1
GET_UPVALUE 0 0
LOAD_INT 1 1
ADD 0 0 1
SET_UPVALUE 0 0
RETURN 0
.endfunc

.func main
.registers 3
.upvalues 0
LOAD_INT 0 0
CLOSURE 1 @inc 1 0
CALL 2 1 0 0
CALL 2 1 0 0
SET_GLOBAL 2 "result"
RETURN
.endfunc
`
	e, mod := runMain(t, src)
	v, ok := globalOf(e, mod, "result")
	require.True(t, ok)
	require.Equal(t, int64(2), v.AsInt())
}

func TestTryThrowCatchesZeroDivision(t *testing.T) {
	src := `
.func main
.registers 3
.upvalues 0
SETUP_TRY handler
LOAD_INT 0 1
LOAD_INT 1 0
DIV 2 0 1
POP_TRY
JUMP done
handler:
SET_GLOBAL 0 "caught"
done:
HALT
.endfunc
`
	e, mod := runMain(t, src)
	v, ok := globalOf(e, mod, "caught")
	require.True(t, ok)
	require.True(t, v.IsObject())
	inst, ok := v.AsObject().(*objects.Instance)
	require.True(t, ok)
	kind, ok := inst.GetField(e.heap.NewString("kind"))
	require.True(t, ok)
	require.Equal(t, "ZeroDivision", kind.Inspect())
}

func TestClassInheritanceAndGetSuper(t *testing.T) {
	src := `
.func speak_animal
.registers 1
.upvalues 0
LOAD_INT 0 1
RETURN 0
.endfunc

.func speak_dog
.registers 3
.upvalues 0
GET_SUPER 0 "speak"
CALL 1 0 0 0
LOAD_INT 2 10
ADD 1 1 2
RETURN 1
.endfunc

.func main
.registers 6
.upvalues 0
NEW_CLASS 0 "Animal"
CLOSURE 1 @speak_animal
SET_METHOD 0 "speak" 1
NEW_CLASS 2 "Dog"
INHERIT 2 0
CLOSURE 3 @speak_dog
SET_METHOD 2 "speak" 3
NEW_INSTANCE 4 2
GET_PROP 5 4 "speak"
CALL 5 5 0 0
SET_GLOBAL 5 "result"
RETURN
.endfunc
`
	e, mod := runMain(t, src)
	v, ok := globalOf(e, mod, "result")
	require.True(t, ok)
	require.Equal(t, int64(11), v.AsInt())
}

func TestGCSurvivesRootedArrayAcrossCollections(t *testing.T) {
	src := `
.func main
.registers 5
.upvalues 0
LOAD_INT 0 0
LOAD_INT 1 2000
LOAD_INT 4 1
loop:
LT 2 0 1
JUMP_IF_FALSE 2 done
NEW_ARRAY 3 0 1
ADD 0 0 4
JUMP loop
done:
SET_GLOBAL 3 "result"
HALT
.endfunc
`
	e, mod := runMain(t, src)
	v, ok := globalOf(e, mod, "result")
	require.True(t, ok)
	require.True(t, v.IsObject())
	arr, ok := v.AsObject().(*objects.Array)
	require.True(t, ok)
	require.Equal(t, 1, arr.Len())
	elem, ok := arr.Get(0)
	require.True(t, ok)
	require.Equal(t, int64(1999), elem.AsInt())
	require.Greater(t, e.heap.Threshold(), 1024)
}

func TestImportModule(t *testing.T) {
	dir := t.TempDir()
	lib := `
.func main
.registers 1
.upvalues 0
LOAD_INT 0 42
EXPORT "answer" 0
RETURN
.endfunc
`
	entry := `
.func main
.registers 3
.upvalues 0
IMPORT_MODULE 0 "lib.meow"
GET_MODULE_EXPORT 1 0 "answer"
SET_GLOBAL 1 "result"
RETURN
.endfunc
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.meow"), []byte(lib), 0o644))
	entryPath := filepath.Join(dir, "entry.meow")
	require.NoError(t, os.WriteFile(entryPath, []byte(entry), 0o644))

	e := New(dir, "")
	mod, err := e.RunFile(entryPath)
	require.NoError(t, err)
	v, ok := globalOf(e, mod, "result")
	require.True(t, ok)
	require.Equal(t, int64(42), v.AsInt())
}

// TestUncaughtThrowIsNotDoubleWrapped checks that an unhandled runtime
// error (integer division by zero) surfaces as a single UncaughtThrow that
// names the original ZeroDivision kind, never "uncaught UncaughtThrow",
// and that the failing frame stays available to Backtrace.
func TestUncaughtThrowIsNotDoubleWrapped(t *testing.T) {
	src := `
.func main
.registers 1
.upvalues 0
LOAD_INT 0 0
DIV 0 0 0
HALT
.endfunc
`
	e := New(t.TempDir(), "")
	protos, err := loader.Parse(e.heap, "test.meow", src)
	require.NoError(t, err)
	main, ok := protos["main"]
	require.True(t, ok)
	mod := e.heap.NewModule("test.meow", main)

	runErr := e.RunModule(mod)
	require.Error(t, runErr)
	require.NotContains(t, runErr.Error(), "uncaught UncaughtThrow")
	require.Contains(t, runErr.Error(), "ZeroDivision")

	bt := e.Backtrace()
	require.Len(t, bt, 1)
	require.Equal(t, "test.meow", bt[0].SourceName)
}

// TestModFollowsDivisorSign checks spec.md §4.G's "modulo follows sign of
// divisor" (floored modulo), not Go's truncated-division `%` (dividend's
// sign): -7 MOD 3 must be 2, not -1.
func TestModFollowsDivisorSign(t *testing.T) {
	src := `
.func main
.registers 3
.upvalues 0
LOAD_INT 0 -7
LOAD_INT 1 3
MOD 2 0 1
SET_GLOBAL 2 "result"
RETURN
.endfunc
`
	e, mod := runMain(t, src)
	v, ok := globalOf(e, mod, "result")
	require.True(t, ok)
	require.Equal(t, int64(2), v.AsInt())
}
