package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"pipelined.dev/graph"
	"pipelined.dev/graph/engine"
)

type infoCommand struct {
	uri string
}

func (cmd *infoCommand) Name() string {
	return "info"
}

func (cmd *infoCommand) Help() string {
	return "Dump the description, buses and parameters of a unit type"
}

func (cmd *infoCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.uri, "uri", "", "unit type to describe (required)")
}

func (cmd *infoCommand) Run(out io.Writer) error {
	if cmd.uri == "" {
		return errors.New("missing -uri required flag")
	}
	e, err := engine.New(48000)
	if err != nil {
		return err
	}
	p, err := graph.DefaultRegistry.Create(e, cmd.uri)
	if err != nil {
		return err
	}
	u := p.Base()
	dump := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	dump.Fdump(out, u.Info())
	for i := 1; i <= u.NIBuses(); i++ {
		fmt.Fprintf(out, "input %d: ", i)
		dump.Fdump(out, u.IBusInfo(graph.IBusID(i)))
	}
	for i := 1; i <= u.NOBuses(); i++ {
		fmt.Fprintf(out, "output %d: ", i)
		dump.Fdump(out, u.OBusInfo(graph.OBusID(i)))
	}
	for _, info := range u.ListParams() {
		dump.Fdump(out, info)
	}
	return nil
}
