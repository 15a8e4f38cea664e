// Package amp provides an amplifier unit with stepped volume and mute.
package amp

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"pipelined.dev/graph"
	"pipelined.dev/graph/event"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/speaker"
)

// URI identifies the Amplifier unit type.
const URI = "graph.units.Amplifier"

// Parameters of the Amplifier.
const (
	Volume param.ID = iota + 1
	Mute
)

// MinVolume is the volume in dB that is treated as silence.
const MinVolume = -96

func init() {
	graph.Enroll(New)
}

// Amplifier scales its input by the volume parameter. Its input follows
// the arrangement of the connected producer and the output mirrors it.
// ParamValue events on the event input are applied at the start of the
// block they arrive in.
type Amplifier struct {
	graph.Unit
	gain float64
}

// New constructs an Amplifier.
func New(ctx *graph.Context) graph.Processor {
	a := &Amplifier{gain: 1}
	a.Attach(ctx)
	return a
}

// QueryInfo implements graph.Processor.
func (a *Amplifier) QueryInfo(info *graph.Info) {
	info.URI = URI
	info.Label = "Amplifier"
	info.Category = "Dynamics"
	info.Description = "Volume control with mute"
}

// Initialize implements graph.Processor.
func (a *Amplifier) Initialize() {
	a.StartParamGroup("Volume")
	a.AddParamID(Volume, param.Range("Volume", "Vol", MinVolume, 24, 0.5, "dB"), 0)
	a.AddParamID(Mute, param.Toggle("Mute", "M"), 0)
}

// Configure implements graph.Processor.
func (a *Amplifier) Configure(ibuses, obuses []speaker.Arrangement) {
	sa := speaker.Stereo
	if len(ibuses) > 0 && ibuses[0].Count() > 0 {
		sa = ibuses[0]
	}
	a.AddInputBus("Input", sa)
	a.AddOutputBus("Output", sa)
	a.PrepareEventInput()
}

// Reset implements graph.Processor.
func (a *Amplifier) Reset() {
	a.gain = a.level()
}

// Render implements graph.Processor.
func (a *Amplifier) Render(frames int) {
	for _, e := range a.EventInput().Events() {
		if e.Type == event.ParamValue && a.ParamInfo(e.Param) != nil {
			a.SetParam(e.Param, e.Value)
		}
	}
	if a.CheckDirty(Volume) || a.CheckDirty(Mute) {
		a.gain = a.level()
	}
	for c := 0; c < a.NOChannels(1); c++ {
		vecmath.ScaleBlock(a.OBlock(1, c)[:frames], a.IFloats(1, c)[:frames], a.gain)
	}
}

// level returns the linear gain and clears the dirty flags.
func (a *Amplifier) level() float64 {
	db, mute := a.GetParam(Volume), a.GetParam(Mute)
	if mute != 0 || db <= MinVolume {
		return 0
	}
	return math.Pow(10, db/20)
}
