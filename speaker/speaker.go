// Package speaker describes channel layouts of audio buses.
//
// An Arrangement is a bitset where every channel bit names the role of one
// channel (front-left, front-right, ...) and the Aux bit marks a bus as a
// side-chain input rather than a main signal path.
package speaker

import (
	"math/bits"
)

// Arrangement is a set of channel roles plus the auxiliary flag.
type Arrangement uint64

// Channel roles.
const (
	None         Arrangement = 0
	FrontLeft    Arrangement = 0x01
	FrontRight   Arrangement = 0x02
	FrontCenter  Arrangement = 0x04
	LowFrequency Arrangement = 0x08
	BackLeft     Arrangement = 0x10
	BackRight    Arrangement = 0x20
	// Aux marks auxiliary buses, it is not a channel.
	Aux Arrangement = 1 << 63
)

// Common layouts.
const (
	Mono       = FrontLeft
	Stereo     = FrontLeft | FrontRight
	Stereo21   = Stereo | LowFrequency
	Stereo30   = Stereo | FrontCenter
	Stereo31   = Stereo30 | LowFrequency
	Surround50 = Stereo30 | BackLeft | BackRight
	Surround51 = Surround50 | LowFrequency
)

const channelsMask = ^Aux

var bitNames = map[Arrangement]string{
	None:         "-",
	FrontLeft:    "FL",
	FrontRight:   "FR",
	FrontCenter:  "FC",
	LowFrequency: "LFE",
	BackLeft:     "BL",
	BackRight:    "BR",
	Aux:          "AUX",
	Stereo:       "Stereo",
	Stereo21:     "Stereo-2.1",
	Stereo30:     "Stereo-3.0",
	Stereo31:     "Stereo-3.1",
	Surround50:   "Surround-5.0",
	Surround51:   "Surround-5.1",
}

// Channels returns the arrangement without the auxiliary flag.
func (a Arrangement) Channels() Arrangement {
	return a & channelsMask
}

// Count returns the number of channels in the arrangement.
func (a Arrangement) Count() int {
	return bits.OnesCount64(uint64(a.Channels()))
}

// IsAux reports whether the auxiliary flag is set.
func (a Arrangement) IsAux() bool {
	return a&Aux != 0
}

// BitName returns the short name of a single role or a known layout.
// Unknown combinations return an empty string.
func (a Arrangement) BitName() string {
	return bitNames[a]
}

// String returns a human readable description, e.g. "Stereo" or "AUX(Mono)".
func (a Arrangement) String() string {
	ch := a.Channels()
	name := "Mono"
	if ch != Mono {
		name = ch.BitName()
	}
	if name == "" {
		name = "<INVALID>"
	}
	if a.IsAux() {
		return Aux.BitName() + "(" + name + ")"
	}
	return name
}
