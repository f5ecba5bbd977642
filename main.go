// cmd lc3vm is the command-line interface to the simulator and its tool suite.
package main

import (
	"context"
	"os"

	"github.com/sixteen-systems/lc3vm/internal/cli"
	"github.com/sixteen-systems/lc3vm/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Demo(),
	cmd.Assembler(),
	cmd.Executor(),
	cmd.Debug(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
