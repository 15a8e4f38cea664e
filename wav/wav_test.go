package wav_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pipelined.dev/signal"

	"pipelined.dev/graph/wav"
)

func TestRoundTrip(t *testing.T) {
	var tests = []struct {
		bitDepth    signal.BitDepth
		numChannels int
		delta       float64
	}{
		{signal.BitDepth16, 1, 1.0 / 32767},
		{signal.BitDepth16, 2, 1.0 / 32767},
		{signal.BitDepth32, 2, 1e-9},
	}
	for _, test := range tests {
		in := &audio.FloatBuffer{
			Format: &audio.Format{NumChannels: test.numChannels, SampleRate: 44100},
			Data:   make([]float64, 1000*test.numChannels),
		}
		for i := range in.Data {
			in.Data[i] = math.Sin(float64(i) / 10)
		}
		path := filepath.Join(t.TempDir(), "out.wav")
		require.NoError(t, wav.Save(path, in, test.bitDepth))

		out, err := wav.Load(path)
		require.NoError(t, err)
		assert.Equal(t, test.numChannels, out.Format.NumChannels)
		assert.Equal(t, 44100, out.Format.SampleRate)
		require.Len(t, out.Data, len(in.Data))
		assert.InDeltaSlice(t, in.Data, out.Data, test.delta)
	}
}

func TestClipping(t *testing.T) {
	in := &audio.FloatBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: 48000},
		Data:   []float64{-4, -1, 0, 1, 4},
	}
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, wav.Save(path, in, signal.BitDepth16))
	out, err := wav.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, 0, 1, 1}, out.Data)
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	buf := &audio.FloatBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: 48000}}
	assert.ErrorIs(t, wav.Save(filepath.Join(dir, "a.wav"), buf, signal.BitDepth8), wav.ErrUnsupportedBitDepth)
	assert.ErrorIs(t, wav.Save(filepath.Join(dir, "b.wav"), &audio.FloatBuffer{}, signal.BitDepth16), wav.ErrEmptyBuffer)
	_, err := wav.Load(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)
}
