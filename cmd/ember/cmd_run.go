package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ember/heap"
	"ember/vm"
)

// runCmd compiles and executes a single source file, following the
// teacher's cmd_run_compiled.go.
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and execute an ember source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Compile and execute ember source code.
`
}
func (r *runCmd) SetFlags(f *flag.FlagSet) {}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 file not provided\n")
		return subcommands.ExitUsageError
	}
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	slice, err := compileSource(string(data), 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 65
	}

	h := heap.New()
	defer h.FreeAll()
	machine := vm.New(h)
	if err := machine.Run(slice); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
