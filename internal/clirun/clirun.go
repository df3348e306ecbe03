// Package clirun implements the meow CLI's argument parsing and run loop
// (spec §6 "External Interfaces"), factored out of cmd/meow so that both the
// built binary and the testscript-driven end-to-end tests in tests/ can
// invoke the identical logic in-process.
package clirun

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/lazypaws/meowvm/internal/config"
	"github.com/lazypaws/meowvm/internal/interp"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// VMArgs holds the entry path, its directory (for Module Manager
// resolution), and the arguments that follow the entry path (plus any
// meow.yaml entry_args). Run does not pass Argv to the engine, so a running
// script cannot read it.
type VMArgs struct {
	EntryPath string
	EntryDir  string
	Argv      []string
}

// Run parses argv (as cmd/meow received it, i.e. without argv[0]), executes
// the entry module, and returns the process exit code (spec §6: "0 on HALT
// from main, non-zero on uncaught throw or parse error"). stderr is
// threaded through explicitly rather than hardcoded to os.Stderr; script
// output from io.println goes to os.Stdout.
func Run(argv []string, stderr io.Writer, isTTY func() bool) int {
	var disasm, gcStats bool
	var rest []string
	for _, a := range argv {
		switch a {
		case "--disasm":
			disasm = true
		case "--gc-stats":
			gcStats = true
		default:
			rest = append(rest, a)
		}
	}

	if len(rest) == 0 {
		fmt.Fprintln(stderr, "usage: meow [--disasm] [--gc-stats] <entry.meow> [args...]")
		return 1
	}

	args := VMArgs{
		EntryPath: rest[0],
		EntryDir:  filepath.Dir(rest[0]),
		Argv:      rest[1:],
	}

	libraryRoot := ""
	if manifest, err := config.Find(args.EntryDir); err == nil && manifest != "" {
		if cfg, err := config.Load(manifest); err == nil {
			libraryRoot = cfg.LibraryRoot
			args.Argv = append(args.Argv, cfg.EntryArgs...)
		} else {
			fmt.Fprintf(stderr, "meow.yaml: %s\n", err)
		}
	}

	e := interp.New(args.EntryDir, libraryRoot)

	mod, err := e.RunFile(args.EntryPath)
	if err != nil {
		// The Module Manager wraps the entry module's own parse or run
		// error in a ModuleLoadError; report the underlying error.
		for {
			ve, ok := err.(*vmerr.Error)
			if !ok || ve.Kind != vmerr.ModuleLoadError {
				break
			}
			inner, ok := ve.Cause.(*vmerr.Error)
			if !ok {
				break
			}
			err = inner
		}
		printError(stderr, err, isTTY(), e.Backtrace())
		return exitCodeFor(err)
	}

	if disasm {
		printDisassembly(stderr, mod)
	}
	if gcStats {
		printGCStats(stderr, e)
	}

	return 0
}

// StderrIsTTY is the default isTTY probe cmd/meow passes to Run (the
// "meow: <error>" line is colorized only when stderr is a terminal; the
// backtrace lines are not colorized;
// grounded on the teacher's own go-isatty-gated CLI coloring).
func StderrIsTTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// exitCodeFor maps a failed run to a process exit code.
func exitCodeFor(err error) int {
	if ve, ok := err.(*vmerr.Error); ok {
		switch ve.Kind {
		case vmerr.ParseError, vmerr.LinkError:
			return 2
		case vmerr.UncaughtThrow:
			return 3
		default:
			return 1
		}
	}
	return 1
}

// printError prints err's string form and, for an uncaught throw, the
// frame backtrace spec §7 requires (each frame's proto source name and the
// ip it was at). ParseError/LinkError fail before any frame exists, so
// backtrace is empty for those and nothing extra is printed.
func printError(stderr io.Writer, err error, tty bool, backtrace []interp.BacktraceFrame) {
	if tty {
		fmt.Fprintf(stderr, "\x1b[31mmeow: %s\x1b[0m\n", err)
	} else {
		fmt.Fprintf(stderr, "meow: %s\n", err)
	}
	if ve, ok := err.(*vmerr.Error); !ok || ve.Kind != vmerr.UncaughtThrow {
		return
	}
	for _, bf := range backtrace {
		fmt.Fprintf(stderr, "  at %s:%d\n", bf.SourceName, bf.IP)
	}
}

// printDisassembly walks every FunctionProto reachable from mod's main
// closure via its constant pool and prints interp.Disassemble's output for
// each (--disasm flag, supplemented feature #5 in SPEC_FULL.md).
func printDisassembly(stderr io.Writer, mod *objects.Module) {
	if mod.Main == nil {
		return
	}
	seen := make(map[*objects.FunctionProto]bool)
	var walk func(proto *objects.FunctionProto)
	walk = func(proto *objects.FunctionProto) {
		if proto == nil || seen[proto] {
			return
		}
		seen[proto] = true
		fmt.Fprintf(stderr, "; %s\n", proto.Inspect())
		for _, line := range interp.Disassemble(proto.Chunk) {
			fmt.Fprintln(stderr, line)
		}
		for _, cv := range proto.Chunk.Constants {
			if !cv.IsObject() {
				continue
			}
			if sub, ok := cv.AsObject().(*objects.FunctionProto); ok {
				walk(sub)
			}
		}
	}
	walk(mod.Main)
}

// printGCStats prints the collector's final bookkeeping via go-humanize.
func printGCStats(stderr io.Writer, e *interp.Engine) {
	heap := e.Heap()
	fmt.Fprintf(stderr, "gc: allocated=%s threshold=%s\n",
		humanize.Comma(int64(heap.Allocated())), humanize.Comma(int64(heap.Threshold())))
}
