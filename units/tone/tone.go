// Package tone provides a sine test tone generator driven by note events.
package tone

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"pipelined.dev/graph"
	"pipelined.dev/graph/event"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/speaker"
)

// URI identifies the Tone unit type.
const URI = "graph.units.Tone"

// Parameters of the Tone.
const (
	Frequency param.ID = iota + 1
	Gain
	// Hold keeps the tone sounding after note off.
	Hold
)

func init() {
	graph.Enroll(New)
}

// Tone renders a mono sine wave. It sounds at the Frequency parameter
// until the first note event arrives. NoteOn retunes the tone to the key
// and gates it with the velocity, NoteOff closes the gate unless Hold is
// set. Events take effect at their frame offset.
type Tone struct {
	graph.Unit
	phase    float64
	freq     float64
	velocity float64
	envelope []float64
}

// New constructs a Tone.
func New(ctx *graph.Context) graph.Processor {
	t := &Tone{envelope: make([]float64, graph.BlockSize)}
	t.Attach(ctx)
	return t
}

// QueryInfo implements graph.Processor.
func (t *Tone) QueryInfo(info *graph.Info) {
	info.URI = URI
	info.Label = "Tone"
	info.Category = "Generators"
	info.Description = "Sine test tone"
}

// Initialize implements graph.Processor.
func (t *Tone) Initialize() {
	t.AddParamID(Frequency, param.Range("Frequency", "Freq", 20, 20000, 0, "Hz"), 440)
	t.AddParamID(Gain, param.Range("Gain", "G", 0, 1, 0.01, ""), 0.5)
	t.AddParamID(Hold, param.Toggle("Hold", "H"), 0)
}

// Configure implements graph.Processor.
func (t *Tone) Configure(ibuses, obuses []speaker.Arrangement) {
	t.AddOutputBus("Output", speaker.Mono)
	t.PrepareEventInput()
}

// Reset implements graph.Processor.
func (t *Tone) Reset() {
	t.phase = 0
	t.freq = t.GetParam(Frequency)
	t.velocity = 1
}

// Render implements graph.Processor.
func (t *Tone) Render(frames int) {
	if t.CheckDirty(Frequency) {
		t.freq = t.GetParam(Frequency)
	}
	out := t.OBlock(1, 0)[:frames]
	env := t.envelope[:frames]
	pos := 0
	for _, e := range t.EventInput().Events() {
		at := min(max(e.Frame, pos), frames)
		t.sine(out[pos:at], env[pos:at])
		pos = at
		t.handle(e)
	}
	t.sine(out[pos:], env[pos:])
	vecmath.MulBlockInPlace(out, env)
	vecmath.ScaleBlock(out, out, t.GetParam(Gain))
}

func (t *Tone) handle(e event.Event) {
	switch e.Type {
	case event.NoteOn:
		t.freq = 440 * math.Pow(2, (float64(e.Key)-69)/12)
		t.velocity = e.Velocity
	case event.NoteOff:
		if t.GetParam(Hold) == 0 {
			t.velocity = 0
		}
	case event.AllNotesOff, event.AllSoundOff:
		t.velocity = 0
	case event.ParamValue:
		if t.ParamInfo(e.Param) != nil {
			t.SetParam(e.Param, e.Value)
		}
		if e.Param == Frequency {
			t.freq = t.GetParam(Frequency)
		}
	}
}

// sine fills out with the oscillator and env with the current gate.
func (t *Tone) sine(out, env []float64) {
	step := 2 * math.Pi * t.freq / float64(t.Engine().SampleRate())
	for i := range out {
		out[i] = math.Sin(t.phase)
		env[i] = t.velocity
		t.phase += step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
}
