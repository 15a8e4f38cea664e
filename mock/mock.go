// Package mock provides mocks for graph units and engines and allows to
// execute integration tests.
package mock

import (
	"sync"

	"pipelined.dev/graph"
	"pipelined.dev/graph/event"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/speaker"
)

// Counter counts the calls of the unit contract.
type Counter struct {
	Initializes int
	Configures  int
	Resets      int
	Renders     int
}

// Source mocks a unit without inputs. It fills every channel of its output
// with Value, or with Value plus the frame index if Ramp is set.
type Source struct {
	graph.Unit
	Counter
	URI      string
	Label    string
	Speakers speaker.Arrangement
	Value    float64
	Ramp     bool
	// Events are emitted every block if EventOut is set.
	Events   []event.Event
	EventOut bool
}

// Factory returns a factory that attaches and returns m. It is meant to
// be used once.
func (m *Source) Factory() graph.Factory {
	return func(ctx *graph.Context) graph.Processor {
		m.Attach(ctx)
		return m
	}
}

// QueryInfo implements graph.Processor.
func (m *Source) QueryInfo(info *graph.Info) {
	info.URI = or(m.URI, "mock.Source")
	info.Label = or(m.Label, "Source")
}

// Initialize implements graph.Processor.
func (m *Source) Initialize() {
	m.Initializes++
}

// Configure implements graph.Processor.
func (m *Source) Configure(ibuses, obuses []speaker.Arrangement) {
	m.Configures++
	m.AddOutputBus("Output", arrangement(m.Speakers))
	if m.EventOut {
		m.PrepareEventOutput()
	}
}

// Reset implements graph.Processor.
func (m *Source) Reset() {
	m.Resets++
}

// Render implements graph.Processor.
func (m *Source) Render(frames int) {
	m.Renders++
	for c := 0; c < m.NOChannels(1); c++ {
		b := m.OBlock(1, c)
		for i := range b[:frames] {
			b[i] = m.Value
			if m.Ramp {
				b[i] += float64(i)
			}
		}
	}
	if m.EventOut {
		out := m.EventOutput()
		for _, e := range m.Events {
			out.Append(e)
		}
	}
}

// Effect mocks a unit with one input and one output. It copies its input
// to its output and forwards events.
type Effect struct {
	graph.Unit
	Counter
	URI   string
	Label string
	In    speaker.Arrangement
	Out   speaker.Arrangement
	// Adapt makes the effect accept the requested input arrangement and
	// mirror it on the output.
	Adapt    bool
	EventIn  bool
	EventOut bool
	Params   []param.Info
	Panic    bool
	// Received holds the events read during the last block.
	Received []event.Event
}

// Factory returns a factory that attaches and returns m. It is meant to
// be used once.
func (m *Effect) Factory() graph.Factory {
	return func(ctx *graph.Context) graph.Processor {
		m.Attach(ctx)
		return m
	}
}

// QueryInfo implements graph.Processor.
func (m *Effect) QueryInfo(info *graph.Info) {
	info.URI = or(m.URI, "mock.Effect")
	info.Label = or(m.Label, "Effect")
}

// Initialize implements graph.Processor.
func (m *Effect) Initialize() {
	m.Initializes++
	for _, p := range m.Params {
		m.AddParam(p, 0)
	}
}

// Configure implements graph.Processor.
func (m *Effect) Configure(ibuses, obuses []speaker.Arrangement) {
	m.Configures++
	in, out := arrangement(m.In), arrangement(m.Out)
	if m.Adapt {
		if len(ibuses) > 0 && ibuses[0].Count() > 0 {
			in = ibuses[0]
		}
		out = in
	}
	m.AddInputBus("Input", in)
	m.AddOutputBus("Output", out)
	if m.EventIn {
		m.PrepareEventInput()
	}
	if m.EventOut {
		m.PrepareEventOutput()
	}
	m.Received = make([]event.Event, 0, event.DefaultCapacity)
}

// Reset implements graph.Processor.
func (m *Effect) Reset() {
	m.Resets++
}

// Render implements graph.Processor.
func (m *Effect) Render(frames int) {
	m.Renders++
	if m.Panic {
		panic("mock effect failure")
	}
	for c := 0; c < m.NOChannels(1); c++ {
		copy(m.OBlock(1, c)[:frames], m.IFloats(1, c))
	}
	m.Received = m.Received[:0]
	if !m.EventIn {
		return
	}
	for _, e := range m.EventInput().Events() {
		m.Received = append(m.Received, e)
		if m.EventOut {
			m.EventOutput().Append(e)
		}
	}
}

// Sink mocks a unit with one input and no outputs. It keeps a copy of
// the last rendered block of every input channel.
type Sink struct {
	graph.Unit
	Counter
	URI      string
	Speakers speaker.Arrangement
	// Adapt makes the sink accept the requested input arrangement.
	Adapt bool
	last  [][]float64
}

// Factory returns a factory that attaches and returns m. It is meant to
// be used once.
func (m *Sink) Factory() graph.Factory {
	return func(ctx *graph.Context) graph.Processor {
		m.Attach(ctx)
		return m
	}
}

// QueryInfo implements graph.Processor.
func (m *Sink) QueryInfo(info *graph.Info) {
	info.URI = or(m.URI, "mock.Sink")
	info.Label = "Sink"
}

// Configure implements graph.Processor.
func (m *Sink) Configure(ibuses, obuses []speaker.Arrangement) {
	m.Configures++
	in := arrangement(m.Speakers)
	if m.Adapt && len(ibuses) > 0 && ibuses[0].Count() > 0 {
		in = ibuses[0]
	}
	m.AddInputBus("Input", in)
	m.last = make([][]float64, in.Count())
	for i := range m.last {
		m.last[i] = make([]float64, graph.BlockSize)
	}
}

// Reset implements graph.Processor.
func (m *Sink) Reset() {
	m.Resets++
}

// Render implements graph.Processor.
func (m *Sink) Render(frames int) {
	m.Renders++
	for c := range m.last {
		copy(m.last[c], m.IFloats(1, c)[:frames])
	}
}

// Last returns the last block read from channel c.
// It is not thread-safe, so should not be checked while rendering.
func (m *Sink) Last(c int) []float64 {
	return m.last[c]
}

// Factory returns a factory that creates a new Effect with uri and label
// on every call.
func Factory(uri, label string) graph.Factory {
	return func(ctx *graph.Context) graph.Processor {
		m := &Effect{URI: uri, Label: label}
		m.Attach(ctx)
		return m
	}
}

// Engine mocks graph.Engine. Blocks are advanced manually.
type Engine struct {
	Rate        uint32
	Frames      uint64
	Reschedules int
	Enqueued    []graph.Processor

	mu   sync.Mutex
	jobs []func()
}

// SampleRate implements graph.Engine.
func (e *Engine) SampleRate() uint32 {
	if e.Rate == 0 {
		return 48000
	}
	return e.Rate
}

// FrameCounter implements graph.Engine.
func (e *Engine) FrameCounter() uint64 {
	return e.Frames
}

// Enqueue implements graph.Engine. It records p and its dependencies.
func (e *Engine) Enqueue(p graph.Processor) {
	p.Base().EnqueueDeps()
	for _, q := range e.Enqueued {
		if q == p {
			return
		}
	}
	e.Enqueued = append(e.Enqueued, p)
}

// Reschedule implements graph.Engine.
func (e *Engine) Reschedule() {
	e.Reschedules++
}

// AddJob implements graph.Engine.
func (e *Engine) AddJob(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, fn)
}

// RunJobs runs and removes all submitted jobs.
func (e *Engine) RunJobs() int {
	e.mu.Lock()
	jobs := e.jobs
	e.jobs = nil
	e.mu.Unlock()
	for _, fn := range jobs {
		fn()
	}
	return len(jobs)
}

// Advance moves the frame counter to the next block.
func (e *Engine) Advance() {
	e.Frames += graph.BlockSize
}

func arrangement(sa speaker.Arrangement) speaker.Arrangement {
	if sa.Count() == 0 {
		return speaker.Stereo
	}
	return sa
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
