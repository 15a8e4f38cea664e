package graph

import (
	"fmt"

	"pipelined.dev/graph/speaker"
)

// EnsureInitialized runs Initialize, configures a stereo arrangement,
// allocates output buffers and resets the unit. It has no effect on
// initialized units.
func (u *Unit) EnsureInitialized() {
	if u.Initialized() || !assert(u.self != nil, "unit was not spawned") {
		return
	}
	u.paramGroup = ""
	u.self.Initialize()
	u.paramGroup = ""
	u.flags |= initialized
	u.configure([]speaker.Arrangement{speaker.Stereo}, []speaker.Arrangement{speaker.Stereo})
	if len(u.ibuses)+len(u.obuses) == 0 && !u.HasEventInput() && !u.HasEventOutput() {
		logger.WithField("unit", u.DebugName()).Warn("no input or output facilities")
	}
	u.assignBuffers()
	u.ResetState()
}

// configure replaces all buses with the ones declared by Configure.
// A panicking Configure leaves u without buses.
func (u *Unit) configure(ibuses, obuses []speaker.Arrangement) {
	u.removeAllBuses()
	u.flags |= configuring
	defer func() {
		u.flags &^= configuring
		if r := recover(); r != nil {
			logger.WithField("unit", u.DebugName()).WithError(fmt.Errorf("%v", r)).Error("configure failed")
			u.removeAllBuses()
		}
	}()
	u.self.Configure(ibuses, obuses)
}

// Reconfigure calls Configure with input bus ib patched to ipatch and
// output bus ob patched to opatch. Zero IDs or arrangements leave a bus
// unchanged. Nothing happens unless a patch differs from the current
// arrangement. Reconfiguration drops all connections of u and forces a
// state reset. It reports whether Configure was called.
func (u *Unit) Reconfigure(ib IBusID, ipatch speaker.Arrangement, ob OBusID, opatch speaker.Arrangement) bool {
	if !assert(u.Initialized(), "reconfigure before initialization") ||
		!assert(!u.TornDown(), "reconfigure of torn down unit %s", u.DebugName()) {
		return false
	}
	if ipatch != 0 && !assert(int(ib) <= len(u.ibuses), "invalid input bus %d", ib) {
		return false
	}
	if opatch != 0 && !assert(int(ob) <= len(u.obuses), "invalid output bus %d", ob) {
		return false
	}
	ispeakers := make([]speaker.Arrangement, len(u.ibuses))
	for i := range u.ibuses {
		ispeakers[i] = u.ibuses[i].Speakers
	}
	ospeakers := make([]speaker.Arrangement, len(u.obuses))
	for i := range u.obuses {
		ospeakers[i] = u.obuses[i].Speakers
	}
	patched := false
	if ib > 0 && ipatch != 0 && ispeakers[ib-1] != ipatch {
		ispeakers[ib-1] = ipatch
		patched = true
	}
	if ob > 0 && opatch != 0 && ospeakers[ob-1] != opatch {
		ospeakers[ob-1] = opatch
		patched = true
	}
	if !patched {
		return false
	}
	u.configure(ispeakers, ospeakers)
	u.assignBuffers()
	u.reschedule()
	u.flags &^= hasReset
	u.ResetState()
	return true
}

// ResetState resets u at most once per block. Reconfiguration forces the
// next call to reset again.
func (u *Unit) ResetState() {
	u.EnsureInitialized()
	if !u.Initialized() {
		return
	}
	stamp := u.frameCounter()
	if u.flags&hasReset != 0 && u.resetStamp == stamp {
		return
	}
	u.flags |= hasReset
	u.resetStamp = stamp
	if u.HasEventOutput() {
		u.streams.stream.Clear()
	}
	u.self.Reset()
}

// HasReset reports whether ResetState was called since the last
// reconfiguration.
func (u *Unit) HasReset() bool {
	return u.flags&hasReset != 0
}

// EnqueueDeps enqueues every producer u reads from, then calls
// EnqueueChildren.
func (u *Unit) EnqueueDeps() {
	for i := range u.ibuses {
		if p := u.ibuses[i].proc; p != nil {
			u.engine.Enqueue(p.self)
		}
	}
	if src := u.EventSource(); src != nil {
		u.engine.Enqueue(src)
	}
	u.self.EnqueueChildren()
}

// RenderBlock renders one block unless u was rendered for the current
// block already. A panicking Render is reported and silences u.
func (u *Unit) RenderBlock() {
	if u.TornDown() {
		return
	}
	stamp := u.frameCounter()
	if u.renderStamp == stamp && stamp != 0 {
		return
	}
	u.renderStamp = stamp
	if u.HasEventOutput() {
		u.streams.stream.Clear()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("unit", u.DebugName()).WithError(fmt.Errorf("%v", r)).Error("render failed")
			u.silence()
		}
	}()
	u.self.Render(BlockSize)
	if u.HasEventOutput() {
		if n := u.streams.stream.Dropped(); n > 0 {
			logger.WithField("unit", u.DebugName()).WithField("dropped", n).Warn("event output full")
		}
	}
}

// Teardown disconnects u from producers and consumers and removes all
// buses, buffers and event streams. A torn down unit renders nothing and
// cannot be reconfigured.
func (u *Unit) Teardown() {
	if u.TornDown() {
		return
	}
	u.removeAllBuses()
	u.flags |= tornDown
	u.reschedule()
}

// TornDown reports whether Teardown was called.
func (u *Unit) TornDown() bool {
	return u.flags&tornDown != 0
}

func (u *Unit) frameCounter() uint64 {
	if u.engine == nil {
		return 0
	}
	return u.engine.FrameCounter()
}
