package graph

import (
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/speaker"
)

// AddInputBus declares an input bus. It may only be called from Configure.
// The label must be unique among the input buses of u.
func (u *Unit) AddInputBus(label string, sa speaker.Arrangement) IBusID {
	return u.AddInputBusHints(label, sa, "", "")
}

// AddInputBusHints is AddInputBus with UI hints and a short description.
func (u *Unit) AddInputBusHints(label string, sa speaker.Arrangement, hints, blurb string) IBusID {
	info, ok := u.newBus(label, sa, hints, blurb)
	if !ok {
		return 0
	}
	for i := range u.ibuses {
		if !assert(u.ibuses[i].Ident != info.Ident, "duplicate input bus %q", label) {
			return 0
		}
	}
	u.ibuses = append(u.ibuses, ibus{BusInfo: info})
	return IBusID(len(u.ibuses))
}

// AddOutputBus declares an output bus. It may only be called from
// Configure. The label must be unique among the output buses of u.
func (u *Unit) AddOutputBus(label string, sa speaker.Arrangement) OBusID {
	return u.AddOutputBusHints(label, sa, "", "")
}

// AddOutputBusHints is AddOutputBus with UI hints and a short description.
func (u *Unit) AddOutputBusHints(label string, sa speaker.Arrangement, hints, blurb string) OBusID {
	info, ok := u.newBus(label, sa, hints, blurb)
	if !ok {
		return 0
	}
	for i := range u.obuses {
		if !assert(u.obuses[i].Ident != info.Ident, "duplicate output bus %q", label) {
			return 0
		}
	}
	u.obuses = append(u.obuses, obus{BusInfo: info, index: -1})
	return OBusID(len(u.obuses))
}

func (u *Unit) newBus(label string, sa speaker.Arrangement, hints, blurb string) (BusInfo, bool) {
	switch {
	case !assert(u.flags&configuring != 0, "bus %q added outside of configure", label),
		!assert(label != "", "empty bus label"),
		!assert(sa.Count() > 0, "bus %q without channels", label),
		!assert(len(u.ibuses)+len(u.obuses) < maxBuses, "too many buses"):
		return BusInfo{}, false
	}
	return BusInfo{
		Ident:    param.Canonify(label),
		Label:    label,
		Hints:    hints,
		Blurb:    blurb,
		Speakers: sa,
	}, true
}

// NIBuses returns the number of input buses.
func (u *Unit) NIBuses() int {
	return len(u.ibuses)
}

// NOBuses returns the number of output buses.
func (u *Unit) NOBuses() int {
	return len(u.obuses)
}

func (u *Unit) ibus(id IBusID) *ibus {
	if id < 1 || int(id) > len(u.ibuses) {
		assert(false, "invalid input bus %d of %s", id, u.DebugName())
		return nil
	}
	return &u.ibuses[id-1]
}

func (u *Unit) obus(id OBusID) *obus {
	if id < 1 || int(id) > len(u.obuses) {
		assert(false, "invalid output bus %d of %s", id, u.DebugName())
		return nil
	}
	return &u.obuses[id-1]
}

// IBusInfo describes input bus id.
func (u *Unit) IBusInfo(id IBusID) BusInfo {
	if b := u.ibus(id); b != nil {
		return b.BusInfo
	}
	return BusInfo{}
}

// OBusInfo describes output bus id.
func (u *Unit) OBusInfo(id OBusID) BusInfo {
	if b := u.obus(id); b != nil {
		return b.BusInfo
	}
	return BusInfo{}
}

// FindIBus returns the input bus with label or identifier name, or 0.
func (u *Unit) FindIBus(name string) IBusID {
	ident := param.Canonify(name)
	for i := range u.ibuses {
		if u.ibuses[i].Ident == ident {
			return IBusID(i + 1)
		}
	}
	return 0
}

// FindOBus returns the output bus with label or identifier name, or 0.
func (u *Unit) FindOBus(name string) OBusID {
	ident := param.Canonify(name)
	for i := range u.obuses {
		if u.obuses[i].Ident == ident {
			return OBusID(i + 1)
		}
	}
	return 0
}

// NIChannels returns the number of channels of input bus id.
func (u *Unit) NIChannels(id IBusID) int {
	if b := u.ibus(id); b != nil {
		return b.Speakers.Count()
	}
	return 0
}

// NOChannels returns the number of channels of output bus id.
func (u *Unit) NOChannels(id OBusID) int {
	if b := u.obus(id); b != nil {
		return b.Speakers.Count()
	}
	return 0
}

// Connected reports whether any input reads output bus id. Outputs that
// are not connected need not be rendered.
func (u *Unit) Connected(id OBusID) bool {
	if b := u.obus(id); b != nil {
		return b.concounter > 0
	}
	return false
}

// Source returns the producer connected to input bus id.
func (u *Unit) Source(id IBusID) (Processor, OBusID) {
	if b := u.ibus(id); b != nil && b.proc != nil {
		return b.proc.self, b.obus
	}
	return nil, 0
}

// Compatible reports whether an input with arrangement in may read an
// output with arrangement out: equal channel counts or mono into stereo.
func Compatible(in, out speaker.Arrangement) bool {
	in, out = in.Channels(), out.Channels()
	return in.Count() == out.Count() ||
		(in == speaker.Stereo && out == speaker.Mono)
}

// Connect reads input bus ib from output bus ob of producer. Any previous
// connection of ib is removed first. It returns false and leaves ib
// unconnected if the arrangements are not Compatible.
func (u *Unit) Connect(ib IBusID, producer Processor, ob OBusID) bool {
	if !assert(producer != nil, "connect to nil producer") {
		return false
	}
	p := producer.Base()
	in, out := u.ibus(ib), p.obus(ob)
	if in == nil || out == nil {
		return false
	}
	u.Disconnect(ib)
	if !Compatible(in.Speakers, out.Speakers) {
		logger.WithField("unit", u.DebugName()).
			Debugf("cannot connect %s to %s", in.Speakers, out.Speakers)
		return false
	}
	in.proc = p
	in.obus = ob
	out.concounter++
	p.outputs = append(p.outputs, backlink{unit: u, ibus: ib})
	u.reschedule()
	u.enqueueNotify(NotifyBusConnect)
	return true
}

// Disconnect removes the connection of input bus ib.
func (u *Unit) Disconnect(ib IBusID) {
	if ib == eventIStream {
		u.DisconnectEventInput()
		return
	}
	in := u.ibus(ib)
	if in == nil || in.proc == nil {
		return
	}
	p := in.proc
	out := p.obus(in.obus)
	in.proc = nil
	in.obus = 0
	if out == nil {
		return
	}
	if assert(out.concounter > 0, "connection counter underflow") {
		out.concounter--
	}
	assert(p.eraseBacklink(backlink{unit: u, ibus: ib}), "missing back-link")
	u.reschedule()
	u.enqueueNotify(NotifyBusDisconnect)
}

func (u *Unit) eraseBacklink(b backlink) bool {
	for i := range u.outputs {
		if u.outputs[i] == b {
			u.outputs = append(u.outputs[:i], u.outputs[i+1:]...)
			return true
		}
	}
	return false
}

// DisconnectIBuses disconnects the event input and all input buses.
func (u *Unit) DisconnectIBuses() {
	u.DisconnectEventInput()
	for i := range u.ibuses {
		u.Disconnect(IBusID(i + 1))
	}
}

// DisconnectOBuses disconnects every input that reads from u, including
// event inputs.
func (u *Unit) DisconnectOBuses() {
	for len(u.outputs) > 0 {
		b := u.outputs[len(u.outputs)-1]
		n := len(u.outputs)
		b.unit.Disconnect(b.ibus)
		if len(u.outputs) == n {
			// drop stale entries so the loop terminates
			u.outputs = u.outputs[:n-1]
		}
	}
}

// removeAllBuses releases buffers, drops all connections and deletes all
// bus declarations and event streams.
func (u *Unit) removeAllBuses() {
	u.releaseBuffers()
	u.ibuses = u.ibuses[:0]
	u.obuses = u.obuses[:0]
	u.streams = nil
}

func (u *Unit) reschedule() {
	if u.engine != nil {
		u.engine.Reschedule()
	}
}
