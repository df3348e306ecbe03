// Package tests drives golden-file .meow fixtures through the real CLI
// entry point (internal/clirun.Run), replacing the teacher's hand-rolled
// exec+diff harness (tests/functional_test.go) with testscript — each
// testdata/*.txtar fixture packages its source file(s) and the expected
// stdout/exit behavior in one place.
package tests

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/lazypaws/meowvm/internal/clirun"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"meow": meowMain,
	}))
}

func meowMain() int {
	return clirun.Run(os.Args[1:], os.Stderr, func() bool { return false })
}

func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
	})
}
