// Package buffer provides the fixed size, guarded sample blocks units
// render into.
package buffer

import (
	"errors"
	"fmt"
	"math"
	"unsafe"
)

const (
	// BlockSize is the maximum number of frames rendered at once.
	BlockSize = 256
	// MaxChannels limits the number of output channels of one unit.
	MaxChannels = 1024
	// Canary is the bit pattern guards are filled with.
	Canary uint64 = 0xE14D8A302B97C56F

	// floats per cache line
	lineFloats = 64 / 8
	guardSize  = lineFloats
	stride     = guardSize + BlockSize + guardSize
)

var (
	// ErrTooManyChannels is returned when an arena exceeds MaxChannels.
	ErrTooManyChannels = errors.New("too many channels")
	// ErrOverrun is returned when a guard value was overwritten.
	ErrOverrun = errors.New("buffer overrun")
)

var canary = math.Float64frombits(Canary)

// Float is the storage of one output channel. Samples either points to
// its own block or is redirected to a block owned by another unit.
type Float struct {
	block   []float64
	samples []float64
	head    []float64
	tail    []float64
}

// Own resets redirection and returns the channel's own block.
func (f *Float) Own() []float64 {
	f.samples = f.block
	return f.block
}

// Redirect points the channel to b without copying.
func (f *Float) Redirect(b []float64) {
	f.samples = b[:BlockSize:BlockSize]
}

// Samples returns the block currently exposed to readers.
func (f *Float) Samples() []float64 {
	return f.samples
}

// Fill assigns v to every sample of the own block.
func (f *Float) Fill(v float64) {
	b := f.Own()
	for i := range b {
		b[i] = v
	}
}

// Check reports whether both guards are intact.
func (f *Float) Check() bool {
	for i := range f.head {
		if math.Float64bits(f.head[i]) != Canary || math.Float64bits(f.tail[i]) != Canary {
			return false
		}
	}
	return true
}

// Aligned reports whether the own block starts on a cache line.
func (f *Float) Aligned() bool {
	return uintptr(unsafe.Pointer(&f.block[0]))%64 == 0
}

// Arena holds the channel buffers of one unit in a single allocation.
type Arena struct {
	mem  []float64
	bufs []Float
}

// NewArena allocates buffers for n channels. Blocks are zeroed and
// cache-line aligned, each one is bracketed by guard values.
func NewArena(n int) (*Arena, error) {
	if n < 0 || n > MaxChannels {
		return nil, fmt.Errorf("allocate %d channels: %w", n, ErrTooManyChannels)
	}
	a := &Arena{bufs: make([]Float, n)}
	if n == 0 {
		return a, nil
	}
	a.mem = make([]float64, n*stride+lineFloats)
	off := 0
	if r := uintptr(unsafe.Pointer(&a.mem[guardSize])) % 64; r != 0 {
		off = int(64-r) / 8
	}
	for i := range a.bufs {
		base := off + i*stride
		f := &a.bufs[i]
		f.head = a.mem[base : base+guardSize : base+guardSize]
		f.block = a.mem[base+guardSize : base+guardSize+BlockSize : base+guardSize+BlockSize]
		f.tail = a.mem[base+guardSize+BlockSize : base+stride : base+stride]
		for j := range f.head {
			f.head[j] = canary
			f.tail[j] = canary
		}
		f.samples = f.block
	}
	return a, nil
}

// Len returns the number of channels.
func (a *Arena) Len() int {
	if a == nil {
		return 0
	}
	return len(a.bufs)
}

// At returns channel i.
func (a *Arena) At(i int) *Float {
	return &a.bufs[i]
}

// Check verifies the guards of all channels.
func (a *Arena) Check() error {
	for i := 0; i < a.Len(); i++ {
		if !a.bufs[i].Check() {
			return fmt.Errorf("channel %d: %w", i, ErrOverrun)
		}
	}
	return nil
}

var zero = mustArena(1)

func mustArena(n int) *Arena {
	a, err := NewArena(n)
	if err != nil {
		panic(err)
	}
	return a
}

// Zero returns the shared silent block read by unconnected inputs.
// It must never be written.
func Zero() []float64 {
	return zero.bufs[0].block
}

// CheckZero reports whether the shared silent block is still silent and
// its guards are intact.
func CheckZero() bool {
	for _, v := range zero.bufs[0].block {
		if v != 0 {
			return false
		}
	}
	return zero.bufs[0].Check()
}

var discard = mustArena(1)

// Discard returns a block that absorbs writes to invalid channels.
// Its content is undefined.
func Discard() []float64 {
	return discard.bufs[0].block
}
