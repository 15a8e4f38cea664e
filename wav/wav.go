// Package wav encodes recorded graph output to WAV files and decodes WAV
// files for playback.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"pipelined.dev/signal"
)

// pcmFormat is the WAV audio format code of integer PCM.
const pcmFormat = 1

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")
	// ErrInvalidFile is returned when the input is not a valid WAV file.
	ErrInvalidFile = errors.New("wav is not valid")
	// ErrEmptyBuffer is returned when there is nothing to encode.
	ErrEmptyBuffer = errors.New("empty buffer")
)

// Encode writes buf as integer PCM with the given bit depth. Samples are
// clipped to [-1, 1].
func Encode(w io.WriteSeeker, buf *audio.FloatBuffer, bitDepth signal.BitDepth) error {
	if bitDepth != signal.BitDepth16 && bitDepth != signal.BitDepth32 {
		return ErrUnsupportedBitDepth
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels == 0 {
		return ErrEmptyBuffer
	}
	e := wav.NewEncoder(w, buf.Format.SampleRate, int(bitDepth), buf.Format.NumChannels, pcmFormat)
	ib := &audio.IntBuffer{
		Format:         buf.Format,
		Data:           make([]int, len(buf.Data)),
		SourceBitDepth: int(bitDepth),
	}
	scale := maxValue(bitDepth)
	for i, v := range buf.Data {
		ib.Data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * scale))
	}
	if err := e.Write(ib); err != nil {
		return fmt.Errorf("error writing samples: %w", err)
	}
	return e.Close()
}

// Save encodes buf into a new file at path.
func Save(path string, buf *audio.FloatBuffer, bitDepth signal.BitDepth) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, buf, bitDepth); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Decode reads all samples of a 16 or 32 bit PCM stream and scales them
// to [-1, 1].
func Decode(r io.ReadSeeker) (*audio.FloatBuffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}
	bitDepth := signal.BitDepth(d.BitDepth)
	if bitDepth != signal.BitDepth16 && bitDepth != signal.BitDepth32 {
		return nil, ErrUnsupportedBitDepth
	}
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("error reading samples: %w", err)
	}
	fb := &audio.FloatBuffer{
		Format: &audio.Format{
			NumChannels: ib.Format.NumChannels,
			SampleRate:  ib.Format.SampleRate,
		},
		Data: make([]float64, len(ib.Data)),
	}
	scale := maxValue(bitDepth)
	for i, v := range ib.Data {
		fb.Data[i] = float64(v) / scale
	}
	return fb, nil
}

// Load decodes the file at path.
func Load(path string) (*audio.FloatBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func maxValue(bitDepth signal.BitDepth) float64 {
	return float64(int64(1)<<(bitDepth-1) - 1)
}
