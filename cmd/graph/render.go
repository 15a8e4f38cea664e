package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"
	"pipelined.dev/signal"

	"pipelined.dev/graph"
	"pipelined.dev/graph/engine"
	"pipelined.dev/graph/speaker"
	"pipelined.dev/graph/units/player"
	"pipelined.dev/graph/units/recorder"
	"pipelined.dev/graph/units/sequencer"
	"pipelined.dev/graph/wav"
)

type renderCommand struct {
	in       string
	out      string
	units    stringList
	seconds  float64
	rate     uint
	bitDepth uint
	note     int
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render a chain of units into a wav file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	cmd.units = nil
	fs.StringVar(&cmd.in, "in", "", "wav file played into the chain")
	fs.StringVar(&cmd.out, "out", "", "output wav file (required)")
	fs.Var(&cmd.units, "chain", "semicolon separated unit URIs (required)")
	fs.Float64Var(&cmd.seconds, "seconds", 1, "duration to render")
	fs.UintVar(&cmd.rate, "rate", 48000, "sample rate")
	fs.UintVar(&cmd.bitDepth, "bits", 16, "output bit depth, 16 or 32")
	fs.IntVar(&cmd.note, "note", -1, "MIDI key played from the start")
}

func (cmd *renderCommand) Validate() error {
	var missing []string
	if cmd.out == "" {
		missing = append(missing, "Missing -out required flag")
	}
	if len(cmd.units) == 0 && cmd.in == "" {
		missing = append(missing, "Missing -chain required flag")
	}
	if cmd.seconds <= 0 {
		missing = append(missing, "-seconds must be positive")
	}
	if len(missing) > 0 {
		return errors.New(strings.Join(missing, "\n"))
	}
	return nil
}

func (cmd *renderCommand) Run(out io.Writer) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	e, err := engine.New(uint32(cmd.rate))
	if err != nil {
		return err
	}
	c := graph.NewChain(e, speaker.Stereo)
	proxy := graph.NewProxy(c)
	defer runtime.KeepAlive(proxy)
	proxy.On(graph.NotifySubInsert.EventName(), func() {
		children, _ := proxy.Children()
		fmt.Fprintf(out, "chain has %d units\n", len(children))
	})

	if cmd.note >= 0 {
		seq, err := graph.DefaultRegistry.Create(e, sequencer.URI)
		if err != nil {
			return err
		}
		seq.(*sequencer.Sequencer).Schedule(0, midi.NoteOn(0, uint8(cmd.note), 100))
		c.SetEventSource(seq)
	}
	if cmd.in != "" {
		buf, err := wav.Load(cmd.in)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", cmd.in, err)
		}
		c.Insert(graph.Spawn(e, player.New, buf), c.Len())
	}
	for _, uri := range cmd.units {
		p, err := graph.DefaultRegistry.Create(e, uri)
		if err != nil {
			return err
		}
		c.Insert(p, c.Len())
	}

	blocks := int(math.Ceil(cmd.seconds * float64(cmd.rate) / graph.BlockSize))
	rec := graph.Spawn(e, recorder.New, blocks*graph.BlockSize).(*recorder.Recorder)
	if !rec.Connect(1, c, 1) {
		return errors.New("chain output cannot be recorded")
	}
	e.AddRoot(rec)

	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		return e.Process(blocks)
	})
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				graph.CallNotifies()
				return nil
			case <-ticker.C:
				graph.CallNotifies()
			}
		}
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := wav.Save(cmd.out, rec.Buffer(), signal.BitDepth(cmd.bitDepth)); err != nil {
		return err
	}
	fmt.Fprintf(out, "rendered %d frames to %s\n", rec.Frames(), cmd.out)
	return nil
}
