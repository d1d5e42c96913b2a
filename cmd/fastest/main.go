// Command fastest is the CLI entry point: `fastest list` discovers tests
// without running them, `fastest run` discovers, schedules and executes a
// test inventory end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/fastestgo/fastest/internal/logging"
)

func newLogger(verbose bool) *logging.WriterLogger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.NewWriterLogger(os.Stderr, level)
}

func doMain() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&listCmd{}, "")
	subcommands.Register(&runCmd{}, "")

	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	ctx := logging.AttachLogger(context.Background(), newLogger(*verbose))

	return int(subcommands.Execute(ctx))
}

func main() {
	os.Exit(doMain())
}

func fail(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "fastest: "+format+"\n", args...)
	return subcommands.ExitFailure
}
