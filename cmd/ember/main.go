// Command ember is the ember language's CLI: compile-and-run a source
// file, start an interactive REPL, or emit a source file's bytecode to
// disk for inspection. Grounded on the teacher's main.go/cmd_*.go
// split (one subcommand per file, registered with
// github.com/google/subcommands), generalized from the teacher's
// dual tree-walking/compiled command pairs down to the single
// compiled pipeline this repository implements.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&emitCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
