// Package recorder provides a sink unit that captures its input into a
// go-audio buffer.
package recorder

import (
	"github.com/go-audio/audio"

	"pipelined.dev/graph"
	"pipelined.dev/graph/speaker"
)

// URI identifies the Recorder unit type.
const URI = "graph.units.Recorder"

// DefaultDuration is the capture capacity in seconds used when no
// capacity is passed to the factory.
const DefaultDuration = 10

func init() {
	graph.Enroll(New)
}

// Recorder interleaves its input into a preallocated buffer until the
// buffer is full. The input follows the arrangement of the producer.
// The captured buffer may only be read while the engine is stopped or
// from a job.
type Recorder struct {
	graph.Unit
	capacity int
	buf      *audio.FloatBuffer
}

// New constructs a Recorder. An int argument sets the capacity in frames.
func New(ctx *graph.Context) graph.Processor {
	r := &Recorder{}
	if n, ok := ctx.Args().(int); ok && n > 0 {
		r.capacity = n
	}
	r.Attach(ctx)
	return r
}

// QueryInfo implements graph.Processor.
func (r *Recorder) QueryInfo(info *graph.Info) {
	info.URI = URI
	info.Label = "Recorder"
	info.Category = "Sinks"
}

// Configure implements graph.Processor. It drops the capture.
func (r *Recorder) Configure(ibuses, obuses []speaker.Arrangement) {
	sa := speaker.Stereo
	if len(ibuses) > 0 && ibuses[0].Count() > 0 {
		sa = ibuses[0]
	}
	r.AddInputBus("Input", sa)
	rate := int(r.Engine().SampleRate())
	if r.capacity == 0 {
		r.capacity = DefaultDuration * rate
	}
	r.buf = &audio.FloatBuffer{
		Format: &audio.Format{
			NumChannels: sa.Count(),
			SampleRate:  rate,
		},
		Data: make([]float64, 0, r.capacity*sa.Count()),
	}
}

// Render implements graph.Processor.
func (r *Recorder) Render(frames int) {
	n := r.NIChannels(1)
	if n == 0 {
		return
	}
	frames = min(frames, (cap(r.buf.Data)-len(r.buf.Data))/n)
	start := len(r.buf.Data)
	r.buf.Data = r.buf.Data[:start+frames*n]
	for c := 0; c < n; c++ {
		for i, v := range r.IFloats(1, c)[:frames] {
			r.buf.Data[start+i*n+c] = v
		}
	}
}

// Buffer returns the captured samples.
func (r *Recorder) Buffer() *audio.FloatBuffer {
	return r.buf
}

// Frames returns the number of captured frames.
func (r *Recorder) Frames() int {
	return r.buf.NumFrames()
}

// Full reports whether the capacity is exhausted.
func (r *Recorder) Full() bool {
	return len(r.buf.Data) == cap(r.buf.Data)
}

// Rewind submits a job dropping the capture.
func (r *Recorder) Rewind() {
	r.Engine().AddJob(func() {
		r.buf.Data = r.buf.Data[:0]
	})
}
