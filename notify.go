package graph

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"pipelined.dev/graph/param"
)

// NotifyFlag is a change signal relayed from the render goroutine to the
// notification consumer.
type NotifyFlag uint32

// Notification flags.
const (
	NotifyBusConnect NotifyFlag = 1 << iota
	NotifyBusDisconnect
	NotifySubInsert
	NotifySubRemove
	NotifyParamChange
)

var notifyEvents = []struct {
	flag NotifyFlag
	name string
}{
	{NotifyBusConnect, "bus:connect"},
	{NotifyBusDisconnect, "bus:disconnect"},
	{NotifySubInsert, "sub:insert"},
	{NotifySubRemove, "sub:remove"},
	{NotifyParamChange, "params:change"},
}

// EventName returns the name of the event dispatched for f.
func (f NotifyFlag) EventName() string {
	for _, e := range notifyEvents {
		if e.flag == f {
			return e.name
		}
	}
	return ""
}

// notifyEnd terminates the notify list. A unit whose nqNext is nil is not
// queued.
var notifyEnd = &Unit{}

var notifyQueue struct {
	_       cpu.CacheLinePad
	head    atomic.Pointer[Unit]
	_       cpu.CacheLinePad
	running atomic.Bool
}

func init() {
	notifyQueue.head.Store(notifyEnd)
}

// enqueueNotify records flags and queues u unless it is queued already.
// The queue keeps u alive until the flags are delivered.
func (u *Unit) enqueueNotify(flags NotifyFlag) {
	u.nqFlags.Or(uint32(flags))
	// claim the slot, a concurrent producer may have won
	if !u.nqNext.CompareAndSwap(nil, notifyEnd) {
		return
	}
	u.nqSelf = u.self
	for {
		head := notifyQueue.head.Load()
		u.nqNext.Store(head)
		if notifyQueue.head.CompareAndSwap(head, u) {
			return
		}
	}
}

// PendingNotifies reports whether CallNotifies has work to do.
func PendingNotifies() bool {
	return notifyQueue.head.Load() != notifyEnd
}

// CallNotifies delivers all pending notifications. Every unit is visited
// once per call, its flags are cleared and one event per set flag is
// dispatched to the unit's Proxy. Units without a live Proxy are skipped.
// Only one goroutine may call CallNotifies at a time, concurrent calls
// return 0 immediately. It returns the number of units visited.
func CallNotifies() int {
	if !notifyQueue.running.CompareAndSwap(false, true) {
		return 0
	}
	defer notifyQueue.running.Store(false)
	n := 0
	u := notifyQueue.head.Swap(notifyEnd)
	for u != notifyEnd {
		next := u.nqNext.Load()
		self := u.nqSelf
		u.nqSelf = nil
		u.nqNext.Store(nil)
		flags := NotifyFlag(u.nqFlags.Swap(0))
		if flags != 0 {
			u.dispatch(flags)
		}
		runtime.KeepAlive(self)
		n++
		u = next
	}
	return n
}

func (u *Unit) dispatch(flags NotifyFlag) {
	var proxy *Proxy
	if wp := u.proxy.Load(); wp != nil {
		proxy = wp.Value()
	}
	if proxy == nil {
		if flags&NotifyParamChange != 0 {
			u.changedParams(func(id param.ID, v float64) {})
		}
		return
	}
	proxy.emit(flags)
}
