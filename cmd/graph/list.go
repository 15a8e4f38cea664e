package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"pipelined.dev/graph"
)

type listCommand struct {
	sources bool
}

func (cmd *listCommand) Name() string {
	return "list"
}

func (cmd *listCommand) Help() string {
	return "Show the list of registered unit types"
}

func (cmd *listCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.sources, "sources", false, "print where each type is registered")
}

func (cmd *listCommand) Run(out io.Writer) error {
	for _, e := range graph.DefaultRegistry.List() {
		fmt.Fprintf(out, "%-28s %-12s %s\n", e.URI, e.Category, e.Label)
		if cmd.sources {
			fmt.Fprintf(out, "\t%s:%d\n", filepath.Base(e.File), e.Line)
		}
	}
	return nil
}
