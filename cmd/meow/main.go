// Command meow is the thin CLI wrapper around internal/interp (spec §6
// "External Interfaces"): it resolves the entry file, builds a VMArgs, runs
// the VM to completion, and maps the result to a process exit code. All of
// the actual logic lives in internal/clirun so tests/ can drive it in-process
// through the same entry point the built binary uses.
package main

import (
	"os"

	"github.com/lazypaws/meowvm/internal/clirun"
)

func main() {
	os.Exit(clirun.Run(os.Args[1:], os.Stderr, func() bool {
		return clirun.StderrIsTTY(os.Stderr.Fd())
	}))
}
