// Package mixer provides a unit that sums two inputs.
package mixer

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"pipelined.dev/graph"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/speaker"
)

// URI identifies the Mixer unit type.
const URI = "graph.units.Mixer"

// Parameters of the Mixer.
const (
	Level1 param.ID = iota + 1
	Level2
	// Peak is an output parameter holding the highest absolute sample of
	// the last block. Listeners are notified when it changes.
	Peak
)

func init() {
	graph.Enroll(New)
}

// Mixer adds two stereo inputs, each scaled by its level.
type Mixer struct {
	graph.Unit
	scratch []float64
}

// New constructs a Mixer.
func New(ctx *graph.Context) graph.Processor {
	m := &Mixer{scratch: make([]float64, graph.BlockSize)}
	m.Attach(ctx)
	return m
}

// QueryInfo implements graph.Processor.
func (m *Mixer) QueryInfo(info *graph.Info) {
	info.URI = URI
	info.Label = "Mixer"
	info.Category = "Routing"
}

// Initialize implements graph.Processor.
func (m *Mixer) Initialize() {
	m.StartParamGroup("Levels")
	m.AddParamID(Level1, param.Range("Level 1", "L1", 0, 2, 0.01, ""), 1)
	m.AddParamID(Level2, param.Range("Level 2", "L2", 0, 2, 0.01, ""), 1)
	m.StartParamGroup("Meter")
	peak := param.Range("Peak", "Pk", 0, 16, 0, "")
	peak.Hints = param.BuildHints("r:G:", peak.Min, peak.Max)
	m.AddParamID(Peak, peak, 0)
}

// Configure implements graph.Processor.
func (m *Mixer) Configure(ibuses, obuses []speaker.Arrangement) {
	m.AddInputBus("Input 1", speaker.Stereo)
	m.AddInputBus("Input 2", speaker.Stereo)
	m.AddOutputBus("Output", speaker.Stereo)
}

// Render implements graph.Processor.
func (m *Mixer) Render(frames int) {
	l1, l2 := m.GetParam(Level1), m.GetParam(Level2)
	scratch := m.scratch[:frames]
	peak := 0.0
	for c := 0; c < m.NOChannels(1); c++ {
		out := m.OBlock(1, c)[:frames]
		vecmath.ScaleBlock(out, m.IFloats(1, c)[:frames], l1)
		vecmath.ScaleBlock(scratch, m.IFloats(2, c)[:frames], l2)
		vecmath.AddBlockInPlace(out, scratch)
		for _, v := range out {
			peak = math.Max(peak, math.Abs(v))
		}
	}
	m.SetParam(Peak, peak)
}
