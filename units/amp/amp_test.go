package amp_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/engine"
	"pipelined.dev/graph/event"
	"pipelined.dev/graph/mock"
	"pipelined.dev/graph/speaker"
	"pipelined.dev/graph/units/amp"
)

func TestAmplifier(t *testing.T) {
	e, err := engine.New(48000, engine.WithGuardCheck())
	require.NoError(t, err)
	src := &mock.Source{Value: 0.5, EventOut: true}
	sink := &mock.Sink{}
	graph.Spawn(e, src.Factory(), nil)
	graph.Spawn(e, sink.Factory(), nil)
	a, err := graph.DefaultRegistry.Create(e, amp.URI)
	require.NoError(t, err)
	require.True(t, a.Base().Connect(1, src, 1))
	require.True(t, a.Base().ConnectEventInput(src))
	require.True(t, sink.Connect(1, a, 1))
	require.True(t, e.AddRoot(sink))

	var tests = []struct {
		name     string
		set      func()
		expected float64
	}{
		{
			name:     "unity",
			set:      func() {},
			expected: 0.5,
		},
		{
			name: "proxy",
			set: func() {
				graph.NewProxy(a).Set("volume", -6)
			},
			expected: 0.5 * math.Pow(10, -6.0/20),
		},
		{
			name: "mute event",
			set: func() {
				src.Events = []event.Event{event.Param(0, amp.Mute, 1)}
			},
			expected: 0,
		},
		{
			name: "unmute at minimum volume",
			set: func() {
				src.Events = []event.Event{
					event.Param(0, amp.Mute, 0),
					event.Param(0, amp.Volume, amp.MinVolume),
				}
			},
			expected: 0,
		},
		{
			name: "unmute",
			set: func() {
				src.Events = []event.Event{event.Param(0, amp.Volume, 6)}
			},
			expected: 0.5 * math.Pow(10, 6.0/20),
		},
	}
	for _, test := range tests {
		test.set()
		require.NoError(t, e.Process(1), test.name)
		for c := 0; c < 2; c++ {
			assert.InDelta(t, test.expected, sink.Last(c)[0], 1e-12, test.name)
			assert.InDelta(t, test.expected, sink.Last(c)[graph.BlockSize-1], 1e-12, test.name)
		}
	}
}

func TestAmplifierAdapts(t *testing.T) {
	e, err := engine.New(48000)
	require.NoError(t, err)
	c := graph.NewChain(e, speaker.Stereo)
	src := &mock.Source{Speakers: speaker.Mono, Value: 1}
	graph.Spawn(e, src.Factory(), nil)
	a := graph.Spawn(e, amp.New, nil)
	c.Insert(src, 0)
	c.Insert(a, 1)
	assert.Equal(t, speaker.Mono, a.Base().IBusInfo(1).Speakers)
	assert.Equal(t, speaker.Mono, a.Base().OBusInfo(1).Speakers)
	p, _ := a.Base().Source(1)
	assert.Equal(t, graph.Processor(src), p)
}
