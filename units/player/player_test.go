package player_test

import (
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/engine"
	"pipelined.dev/graph/speaker"
	"pipelined.dev/graph/units/player"
	"pipelined.dev/graph/units/recorder"
)

func ramp(channels, frames int) *audio.FloatBuffer {
	b := &audio.FloatBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: 48000},
		Data:   make([]float64, channels*frames),
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			b.Data[i*channels+c] = float64(i) + float64(c)/10
		}
	}
	return b
}

func TestPlayer(t *testing.T) {
	var tests = []struct {
		name     string
		buf      *audio.FloatBuffer
		loop     float64
		speakers speaker.Arrangement
		expected func(i, c int) float64
	}{
		{
			name:     "stereo once",
			buf:      ramp(2, 300),
			speakers: speaker.Stereo,
			expected: func(i, c int) float64 {
				if i >= 300 {
					return 0
				}
				return float64(i) + float64(c)/10
			},
		},
		{
			name:     "mono loop",
			buf:      ramp(1, 300),
			loop:     1,
			speakers: speaker.Mono,
			expected: func(i, c int) float64 {
				return float64(i % 300)
			},
		},
		{
			name:     "empty",
			speakers: speaker.Stereo,
			expected: func(i, c int) float64 { return 0 },
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e, err := engine.New(48000)
			require.NoError(t, err)
			p := graph.Spawn(e, player.New, test.buf).(*player.Player)
			assert.Equal(t, test.speakers, p.OBusInfo(1).Speakers)
			p.SetParam(player.Loop, test.loop)
			rec := graph.Spawn(e, recorder.New, 1024).(*recorder.Recorder)
			rec.Reconfigure(1, test.speakers, 0, speaker.None)
			require.True(t, rec.Connect(1, p, 1))
			require.True(t, e.AddRoot(rec))

			require.NoError(t, e.Process(3))
			buf := rec.Buffer()
			n := test.speakers.Count()
			require.Equal(t, 3*graph.BlockSize*n, len(buf.Data))
			for i := 0; i < 3*graph.BlockSize; i++ {
				for c := 0; c < n; c++ {
					require.Equal(t, test.expected(i, c), buf.Data[i*n+c], "frame %d channel %d", i, c)
				}
			}
		})
	}
}

func TestPlay(t *testing.T) {
	e, err := engine.New(48000)
	require.NoError(t, err)
	p := graph.Spawn(e, player.New, nil).(*player.Player)
	require.True(t, e.AddRoot(p))
	require.NoError(t, e.Process(1))
	assert.True(t, p.Done())

	p.Play(ramp(1, 100))
	require.NoError(t, e.Process(1))
	assert.Equal(t, speaker.Mono, p.OBusInfo(1).Speakers)
	assert.True(t, p.Done())
	assert.Equal(t, 99.0, p.OFloats(1, 0)[99])
	assert.Zero(t, p.OFloats(1, 0)[100])
}
