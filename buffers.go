package graph

import (
	"pipelined.dev/graph/internal/buffer"
)

// assignBuffers allocates one channel buffer per output channel. On
// failure all output buses are left without buffers and render silence.
func (u *Unit) assignBuffers() {
	n := 0
	for i := range u.obuses {
		b := &u.obuses[i]
		b.index = n
		b.count = b.Speakers.Count()
		n += b.count
	}
	arena, err := buffer.NewArena(n)
	if err != nil {
		logger.WithField("unit", u.DebugName()).WithError(err).Error("output buffers unavailable")
		for i := range u.obuses {
			u.obuses[i].index = -1
			u.obuses[i].count = 0
		}
		u.arena = nil
		return
	}
	u.arena = arena
}

// releaseBuffers disconnects u and frees its output buffers.
func (u *Unit) releaseBuffers() {
	u.DisconnectIBuses()
	u.DisconnectOBuses()
	for i := range u.obuses {
		u.obuses[i].index = -1
		u.obuses[i].count = 0
	}
	u.arena = nil
}

func (u *Unit) channel(ob OBusID, c int) *buffer.Float {
	b := u.obus(ob)
	if b == nil {
		return nil
	}
	if !assert(c >= 0 && c < b.count, "invalid channel %d of output bus %d of %s", c, ob, u.DebugName()) {
		return nil
	}
	return u.arena.At(b.index + c)
}

// OBlock returns the own block of channel c of output bus ob and cancels
// any redirection of that channel.
func (u *Unit) OBlock(ob OBusID, c int) []float64 {
	if f := u.channel(ob, c); f != nil {
		return f.Own()
	}
	return buffer.Discard()
}

// RedirectOBlock exposes block as channel c of output bus ob without
// copying. The redirection lasts until the next OBlock call.
func (u *Unit) RedirectOBlock(ob OBusID, c int, block []float64) {
	if !assert(len(block) >= BlockSize, "redirect to short block") {
		return
	}
	if f := u.channel(ob, c); f != nil {
		f.Redirect(block)
	}
}

// AssignOBlock fills channel c of output bus ob with v.
func (u *Unit) AssignOBlock(ob OBusID, c int, v float64) {
	if f := u.channel(ob, c); f != nil {
		f.Fill(v)
	}
}

// OFloats returns the samples currently exposed by channel c of output
// bus ob.
func (u *Unit) OFloats(ob OBusID, c int) []float64 {
	if f := u.channel(ob, c); f != nil {
		return f.Samples()
	}
	return buffer.Zero()
}

// IFloats returns the samples read by channel c of input bus ib.
// Unconnected inputs read silence. Channels beyond the producer's count
// read its last channel, which broadcasts mono into stereo.
func (u *Unit) IFloats(ib IBusID, c int) []float64 {
	in := u.ibus(ib)
	if in == nil || in.proc == nil {
		return buffer.Zero()
	}
	p := in.proc
	out := p.obus(in.obus)
	if out == nil || out.count == 0 || p.arena == nil {
		return buffer.Zero()
	}
	if c >= out.count {
		c = out.count - 1
	}
	if c < 0 {
		c = 0
	}
	return p.arena.At(out.index + c).Samples()
}

// CheckBuffers verifies that no channel buffer of u was overrun.
func (u *Unit) CheckBuffers() error {
	return u.arena.Check()
}

// silence fills all own output buffers with zeros.
func (u *Unit) silence() {
	for i := 0; i < u.arena.Len(); i++ {
		u.arena.At(i).Fill(0)
	}
}
