package tone_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/engine"
	"pipelined.dev/graph/event"
	"pipelined.dev/graph/mock"
	"pipelined.dev/graph/units/tone"
)

const sampleRate = 48000

func setup(t *testing.T) (*engine.Engine, graph.Processor, *mock.Source, *mock.Sink) {
	t.Helper()
	e, err := engine.New(sampleRate)
	require.NoError(t, err)
	notes := &mock.Source{EventOut: true}
	sink := &mock.Sink{}
	graph.Spawn(e, notes.Factory(), nil)
	graph.Spawn(e, sink.Factory(), nil)
	p := graph.Spawn(e, tone.New, nil)
	require.True(t, p.Base().ConnectEventInput(notes))
	require.True(t, sink.Connect(1, p, 1))
	require.True(t, e.AddRoot(sink))
	return e, p, notes, sink
}

func TestFreeRunning(t *testing.T) {
	e, _, _, sink := setup(t)
	require.NoError(t, e.Process(1))
	step := 2 * math.Pi * 440 / sampleRate
	for _, i := range []int{0, 1, 100} {
		expected := 0.5 * math.Sin(float64(i)*step)
		// mono output is broadcast into both sink channels
		assert.InDelta(t, expected, sink.Last(0)[i], 1e-9)
		assert.InDelta(t, expected, sink.Last(1)[i], 1e-9)
	}
}

func TestNotes(t *testing.T) {
	var tests = []struct {
		name   string
		hold   float64
		silent bool
	}{
		{"release", 0, true},
		{"hold", 1, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e, p, notes, sink := setup(t)
			notes.Events = []event.Event{
				event.Param(0, tone.Hold, test.hold),
				event.Note(0, true, 0, 81, 1),
				event.Note(128, false, 0, 81, 0),
			}
			require.NoError(t, e.Process(1))
			assert.Equal(t, test.hold, p.Base().PeekParamMT(tone.Hold))

			// an octave above A4
			step := 2 * math.Pi * 880 / sampleRate
			assert.InDelta(t, 0.5*math.Sin(10*step), sink.Last(0)[10], 1e-9)
			for _, v := range sink.Last(0)[128:] {
				if test.silent {
					assert.Zero(t, v)
				}
			}
			assert.Equal(t, !test.silent, rms(sink.Last(0)[128:]) > 0.1)
		})
	}
}

func TestAllNotesOff(t *testing.T) {
	e, _, notes, sink := setup(t)
	notes.Events = []event.Event{{Type: event.AllNotesOff}}
	require.NoError(t, e.Process(1))
	for _, v := range sink.Last(0) {
		assert.Zero(t, v)
	}
}

func rms(b []float64) float64 {
	var sum float64
	for _, v := range b {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(b)))
}
