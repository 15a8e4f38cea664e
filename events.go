package graph

import (
	"pipelined.dev/graph/event"
)

// PrepareEventInput enables reading events during Render through
// EventInput. It is undone by reconfiguration.
func (u *Unit) PrepareEventInput() {
	if u.streams == nil {
		u.streams = &eventStreams{}
	}
	if assert(!u.streams.hasInput, "event input prepared twice") {
		u.streams.hasInput = true
	}
}

// PrepareEventOutput enables producing events during Render through
// EventOutput. It is undone by reconfiguration.
func (u *Unit) PrepareEventOutput() {
	if u.streams == nil {
		u.streams = &eventStreams{}
	}
	if assert(!u.streams.hasOutput, "event output prepared twice") {
		u.streams.hasOutput = true
		u.streams.stream = event.NewStream(event.DefaultCapacity)
	}
}

// HasEventInput reports whether u reads events.
func (u *Unit) HasEventInput() bool {
	return u.streams != nil && u.streams.hasInput
}

// HasEventOutput reports whether u produces events.
func (u *Unit) HasEventOutput() bool {
	return u.streams != nil && u.streams.hasOutput
}

// EventInput returns the events of the connected event source for the
// current block.
func (u *Unit) EventInput() event.Range {
	if !assert(u.HasEventInput(), "event input not prepared for %s", u.DebugName()) {
		return event.Range{}
	}
	if src := u.streams.source; src != nil && src.streams != nil {
		return event.RangeOf(src.streams.stream)
	}
	return event.Range{}
}

// EventOutput returns the stream u appends its events to. It is cleared
// before every Render call.
func (u *Unit) EventOutput() *event.Stream {
	if !assert(u.HasEventOutput(), "event output not prepared for %s", u.DebugName()) {
		return event.NewStream(0)
	}
	return u.streams.stream
}

// ConnectEventInput reads events from producer.
func (u *Unit) ConnectEventInput(producer Processor) bool {
	if !assert(producer != nil, "connect events to nil producer") {
		return false
	}
	p := producer.Base()
	if !assert(u.HasEventInput(), "%s has no event input", u.DebugName()) ||
		!assert(p.HasEventOutput(), "%s has no event output", p.DebugName()) {
		return false
	}
	u.DisconnectEventInput()
	u.streams.source = p
	p.outputs = append(p.outputs, backlink{unit: u, ibus: eventIStream})
	u.reschedule()
	u.enqueueNotify(NotifyBusConnect)
	return true
}

// DisconnectEventInput removes the event connection if there is one.
func (u *Unit) DisconnectEventInput() {
	if u.streams == nil || u.streams.source == nil {
		return
	}
	p := u.streams.source
	u.streams.source = nil
	assert(p.eraseBacklink(backlink{unit: u, ibus: eventIStream}), "missing event back-link")
	u.reschedule()
	u.enqueueNotify(NotifyBusDisconnect)
}

// EventSource returns the producer of the event input.
func (u *Unit) EventSource() Processor {
	if u.streams == nil || u.streams.source == nil {
		return nil
	}
	return u.streams.source.self
}
