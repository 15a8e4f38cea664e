// Package sequencer provides a unit that plays scheduled MIDI messages as
// graph events.
package sequencer

import (
	"sort"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"

	"pipelined.dev/graph"
	"pipelined.dev/graph/event"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/speaker"
)

// URI identifies the Sequencer unit type.
const URI = "graph.units.Sequencer"

// Transpose shifts the keys of note events by semitones.
const Transpose param.ID = 1

func init() {
	graph.Enroll(New)
}

type message struct {
	frame uint64
	msg   midi.Message
}

// Sequencer emits MIDI messages on its event output at the frame they
// were scheduled for. Frames count from the first block the sequencer
// rendered. Messages scheduled for the past, or that did not fit into the
// event output of their block, are emitted at the start of the next block.
type Sequencer struct {
	graph.Unit
	pos     atomic.Uint64
	pending []message // sorted by frame
}

// New constructs a Sequencer.
func New(ctx *graph.Context) graph.Processor {
	s := &Sequencer{}
	s.Attach(ctx)
	return s
}

// QueryInfo implements graph.Processor.
func (s *Sequencer) QueryInfo(info *graph.Info) {
	info.URI = URI
	info.Label = "Sequencer"
	info.Category = "Events"
	info.Description = "Plays scheduled MIDI messages"
}

// Initialize implements graph.Processor.
func (s *Sequencer) Initialize() {
	s.AddParamID(Transpose, param.Range("Transpose", "Tr", -24, 24, 1, "semitones"), 0)
}

// Configure implements graph.Processor.
func (s *Sequencer) Configure(ibuses, obuses []speaker.Arrangement) {
	s.PrepareEventOutput()
}

// Render implements graph.Processor.
func (s *Sequencer) Render(frames int) {
	pos := s.pos.Load()
	end := pos + uint64(frames)
	transpose := int(s.GetParam(Transpose))
	out := s.EventOutput()
	n := 0
	for _, m := range s.pending {
		if m.frame >= end {
			break
		}
		offset := 0
		if m.frame > pos {
			offset = int(m.frame - pos)
		}
		if e, ok := event.FromMIDI(offset, m.msg); ok {
			switch e.Type {
			case event.NoteOn, event.NoteOff, event.Aftertouch:
				e.Key = uint8(min(max(int(e.Key)+transpose, 0), 127))
			}
			// a full output keeps the rest for the next block
			if !out.Append(e) {
				break
			}
		}
		n++
	}
	s.pending = s.pending[:copy(s.pending, s.pending[n:])]
	s.pos.Store(end)
}

// Schedule submits msg to be emitted at frame. It is safe for concurrent
// use, the message is queued before the next block.
func (s *Sequencer) Schedule(frame uint64, msg midi.Message) {
	s.Engine().AddJob(func() {
		i := sort.Search(len(s.pending), func(i int) bool { return s.pending[i].frame > frame })
		s.pending = append(s.pending, message{})
		copy(s.pending[i+1:], s.pending[i:])
		s.pending[i] = message{frame: frame, msg: msg}
	})
}

// Clear submits a job dropping all pending messages.
func (s *Sequencer) Clear() {
	s.Engine().AddJob(func() {
		s.pending = s.pending[:0]
	})
}

// Position returns the number of frames rendered so far. It is safe for
// concurrent use.
func (s *Sequencer) Position() uint64 {
	return s.pos.Load()
}
