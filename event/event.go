// Package event defines the control events exchanged between units within
// one render block.
package event

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"pipelined.dev/graph/param"
)

// Type of an event.
type Type uint8

// Event types.
const (
	NoteOn Type = iota + 1
	NoteOff
	Aftertouch
	ControlChange
	ParamValue
	AllSoundOff
	AllNotesOff
)

var typeNames = [...]string{
	NoteOn:        "NoteOn",
	NoteOff:       "NoteOff",
	Aftertouch:    "Aftertouch",
	ControlChange: "ControlChange",
	ParamValue:    "ParamValue",
	AllSoundOff:   "AllSoundOff",
	AllNotesOff:   "AllNotesOff",
}

func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Event is a control event at Frame samples into the current block.
// Velocity and Value are normalized to [0, 1] for MIDI originated events.
type Event struct {
	Frame    int
	Type     Type
	Channel  uint8
	Key      uint8
	Control  uint8
	Velocity float64
	Value    float64
	Param    param.ID
}

// Note returns a NoteOn or NoteOff event.
func Note(frame int, on bool, channel, key uint8, velocity float64) Event {
	t := NoteOff
	if on {
		t = NoteOn
	}
	return Event{Frame: frame, Type: t, Channel: channel, Key: key, Velocity: velocity}
}

// Param returns an event that assigns v to parameter id.
func Param(frame int, id param.ID, v float64) Event {
	return Event{Frame: frame, Type: ParamValue, Param: id, Value: v}
}

const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// FromMIDI converts a channel voice message. Unsupported messages return
// false.
func FromMIDI(frame int, msg midi.Message) (Event, bool) {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		if vel == 0 {
			return Note(frame, false, ch, key, 0), true
		}
		return Note(frame, true, ch, key, float64(vel)/127), true
	case msg.GetNoteOff(&ch, &key, &vel):
		return Note(frame, false, ch, key, float64(vel)/127), true
	case msg.GetPolyAfterTouch(&ch, &key, &vel):
		return Event{Frame: frame, Type: Aftertouch, Channel: ch, Key: key, Velocity: float64(vel) / 127}, true
	case msg.GetControlChange(&ch, &cc, &val):
		switch cc {
		case ccAllSoundOff:
			return Event{Frame: frame, Type: AllSoundOff, Channel: ch}, true
		case ccAllNotesOff:
			return Event{Frame: frame, Type: AllNotesOff, Channel: ch}, true
		}
		return Event{Frame: frame, Type: ControlChange, Channel: ch, Control: cc, Value: float64(val) / 127}, true
	}
	return Event{}, false
}

// MIDI converts the event into a channel voice message. Parameter events
// have no MIDI representation.
func (e Event) MIDI() (midi.Message, bool) {
	switch e.Type {
	case NoteOn:
		return midi.NoteOn(e.Channel, e.Key, to7bit(e.Velocity)), true
	case NoteOff:
		return midi.NoteOffVelocity(e.Channel, e.Key, to7bit(e.Velocity)), true
	case Aftertouch:
		return midi.PolyAfterTouch(e.Channel, e.Key, to7bit(e.Velocity)), true
	case ControlChange:
		return midi.ControlChange(e.Channel, e.Control, to7bit(e.Value)), true
	case AllSoundOff:
		return midi.ControlChange(e.Channel, ccAllSoundOff, 0), true
	case AllNotesOff:
		return midi.ControlChange(e.Channel, ccAllNotesOff, 0), true
	}
	return nil, false
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn, NoteOff, Aftertouch:
		return fmt.Sprintf("%+4d ch=%d %s key=%d vel=%.3f", e.Frame, e.Channel, e.Type, e.Key, e.Velocity)
	case ControlChange:
		return fmt.Sprintf("%+4d ch=%d %s cc=%d val=%.3f", e.Frame, e.Channel, e.Type, e.Control, e.Value)
	case ParamValue:
		return fmt.Sprintf("%+4d %s id=%d val=%f", e.Frame, e.Type, e.Param, e.Value)
	}
	return fmt.Sprintf("%+4d ch=%d %s", e.Frame, e.Channel, e.Type)
}

func to7bit(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 127
	}
	return uint8(v*127 + 0.5)
}
