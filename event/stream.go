package event

// DefaultCapacity is the number of events a stream holds per block.
const DefaultCapacity = 64

// Stream is the list of events produced by one unit during one block.
// Events are kept sorted by Frame, events with equal frames keep their
// insertion order. A stream never grows beyond the capacity it was created
// with, events appended to a full stream are dropped.
type Stream struct {
	events  []Event
	dropped int
}

// NewStream returns a stream with capacity for n events.
func NewStream(n int) *Stream {
	return &Stream{events: make([]Event, 0, n)}
}

// Append inserts e after all events with a frame less or equal to e.Frame.
// It returns false and drops e if the stream is full.
func (s *Stream) Append(e Event) bool {
	if len(s.events) == cap(s.events) {
		s.dropped++
		return false
	}
	i := len(s.events)
	for i > 0 && s.events[i-1].Frame > e.Frame {
		i--
	}
	s.events = append(s.events, Event{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = e
	return true
}

// Clear removes all events and keeps the storage.
func (s *Stream) Clear() {
	s.events = s.events[:0]
	s.dropped = 0
}

// Dropped returns the number of events dropped since the last Clear.
func (s *Stream) Dropped() int {
	if s == nil {
		return 0
	}
	return s.dropped
}

// Len returns the number of events.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.events)
}

// At returns the event at position i.
func (s *Stream) At(i int) Event {
	return s.events[i]
}

// Events returns the underlying events. The slice is only valid until the
// stream is modified.
func (s *Stream) Events() []Event {
	if s == nil {
		return nil
	}
	return s.events
}

// Range is a read-only view of another unit's stream. The zero Range is
// empty. A Range always reflects the current content of the stream, so
// it can be iterated more than once.
type Range struct {
	s *Stream
}

// RangeOf returns a view of s.
func RangeOf(s *Stream) Range {
	return Range{s: s}
}

// Len returns the number of events.
func (r Range) Len() int {
	return r.s.Len()
}

// At returns the event at position i.
func (r Range) At(i int) Event {
	return r.s.At(i)
}

// Events returns the events of the underlying stream.
func (r Range) Events() []Event {
	return r.s.Events()
}
