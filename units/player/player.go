// Package player provides a source unit that plays a go-audio buffer.
package player

import (
	"github.com/go-audio/audio"

	"pipelined.dev/graph"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/speaker"
)

// URI identifies the Player unit type.
const URI = "graph.units.Player"

// Loop restarts playback at the end of the buffer.
const Loop param.ID = 1

func init() {
	graph.Enroll(New)
}

// Player renders an interleaved buffer. Mono buffers produce a mono
// output, all others a stereo output of the first two channels. Without
// a buffer the output is silent.
type Player struct {
	graph.Unit
	buf *audio.FloatBuffer
	pos int
}

// New constructs a Player. A *audio.FloatBuffer argument is played.
func New(ctx *graph.Context) graph.Processor {
	p := &Player{}
	if b, ok := ctx.Args().(*audio.FloatBuffer); ok {
		p.buf = b
	}
	p.Attach(ctx)
	return p
}

// QueryInfo implements graph.Processor.
func (p *Player) QueryInfo(info *graph.Info) {
	info.URI = URI
	info.Label = "Player"
	info.Category = "Sources"
}

// Initialize implements graph.Processor.
func (p *Player) Initialize() {
	p.AddParamID(Loop, param.Toggle("Loop", "Lp"), 0)
}

// Configure implements graph.Processor.
func (p *Player) Configure(ibuses, obuses []speaker.Arrangement) {
	p.AddOutputBus("Output", arrangement(p.buf))
}

// Render implements graph.Processor.
func (p *Player) Render(frames int) {
	n := p.NOChannels(1)
	total := 0
	if p.buf != nil {
		total = p.buf.NumFrames()
	}
	loop := p.GetParam(Loop) != 0
	for c := 0; c < n; c++ {
		out := p.OBlock(1, c)[:frames]
		pos := p.pos
		for i := range out {
			if pos >= total && loop && total > 0 {
				pos = 0
			}
			if pos >= total {
				out[i] = 0
				continue
			}
			out[i] = p.buf.Data[pos*p.buf.Format.NumChannels+c]
			pos++
		}
		if c == n-1 {
			p.pos = pos
		}
	}
}

// Play submits a job replacing the buffer and restarting playback.
func (p *Player) Play(b *audio.FloatBuffer) {
	p.Engine().AddJob(func() {
		p.buf = b
		p.pos = 0
		p.Reconfigure(0, speaker.None, 1, arrangement(b))
	})
}

// Done reports whether a non-looping playback reached the end. It must
// be called from the render goroutine.
func (p *Player) Done() bool {
	return p.buf == nil || p.pos >= p.buf.NumFrames()
}

func arrangement(b *audio.FloatBuffer) speaker.Arrangement {
	if b != nil && b.Format != nil && b.Format.NumChannels == 1 {
		return speaker.Mono
	}
	return speaker.Stereo
}
