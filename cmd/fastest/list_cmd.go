package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/fastestgo/fastest/internal/discovery"
)

// listCmd implements subcommands.Command for `fastest list`.
type listCmd struct {
	root string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "discover tests without running them" }
func (*listCmd) Usage() string {
	return `list [-root dir]:
	Discover and print every test id under root.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.root, "root", ".", "directory to discover tests under")
}

func (c *listCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	inv, err := discovery.Discover(discovery.Options{Roots: []string{c.root}})
	if err != nil {
		return fail("discovery failed: %v", err)
	}

	for path, err := range inv.Skipped {
		fmt.Fprintf(os.Stderr, "fastest: skipped %s: %v\n", path, err)
	}
	for _, item := range inv.Items {
		fmt.Println(item.ID)
	}
	return subcommands.ExitSuccess
}
