package graph

import (
	"math"
	"sync/atomic"
	"weak"

	"pipelined.dev/graph/event"
	"pipelined.dev/graph/internal/buffer"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/speaker"
)

// BlockSize is the number of frames passed to every Render call.
const BlockSize = buffer.BlockSize

// IBusID identifies an input bus, the first bus has ID 1.
type IBusID uint32

// OBusID identifies an output bus, the first bus has ID 1.
type OBusID uint32

// eventIStream is used in back-links for event connections.
const eventIStream = IBusID(math.MaxUint32)

// maxBuses limits the number of buses of one unit.
const maxBuses = 65535

// Info describes a unit type. URI must be globally unique.
type Info struct {
	URI         string
	Label       string
	Category    string
	Description string
	Website     string
	Creator     string
}

// Engine is the block scheduler units are bound to. All methods except
// AddJob, SampleRate and FrameCounter must be called from the render
// goroutine.
type Engine interface {
	SampleRate() uint32
	// FrameCounter returns the frame position of the current block.
	FrameCounter() uint64
	// Enqueue adds p to the schedule being built, after its dependencies.
	Enqueue(p Processor)
	// Reschedule requests a new schedule before the next block.
	Reschedule()
	// AddJob runs fn on the render goroutine before the next block.
	AddJob(fn func())
}

// Processor is implemented by every graph node. Implementations embed
// Unit and provide QueryInfo, Configure and Render. Unit supplies
// defaults for the remaining methods.
type Processor interface {
	// QueryInfo fills the static description of the unit type.
	QueryInfo(info *Info)
	// Initialize declares parameters. It is called exactly once.
	Initialize()
	// Configure declares buses for the requested arrangements. It is
	// called with all previous buses and event streams removed and may be
	// called repeatedly.
	Configure(ibuses, obuses []speaker.Arrangement)
	// Reset clears internal state.
	Reset()
	// Render fills every connected output with frames samples. It must not
	// allocate, lock or block.
	Render(frames int)
	// EnqueueChildren declares additional scheduling dependencies.
	EnqueueChildren()
	// Base returns the embedded unit.
	Base() *Unit
}

const (
	initialized uint32 = 1 << iota
	hasReset
	configuring
	tornDown
)

type ibus struct {
	BusInfo
	proc *Unit
	obus OBusID
}

type obus struct {
	BusInfo
	concounter int
	index      int
	count      int
}

// BusInfo describes a bus.
type BusInfo struct {
	Ident    string
	Label    string
	Hints    string
	Blurb    string
	Speakers speaker.Arrangement
}

type backlink struct {
	unit *Unit
	ibus IBusID
}

type eventStreams struct {
	hasInput  bool
	hasOutput bool
	source    *Unit
	stream    *event.Stream
}

// Unit is the state shared by all processors: buses, connections,
// parameters, output buffers and event streams. It is embedded by value
// into concrete processor types and must not be copied after Spawn.
type Unit struct {
	self   Processor
	engine Engine
	id     string
	flags  uint32

	ibuses  []ibus
	obuses  []obus
	outputs []backlink
	arena   *buffer.Arena
	streams *eventStreams

	params     []*param.Slot // sorted by ID
	paramGroup string

	resetStamp  uint64
	renderStamp uint64

	// notify queue linkage
	nqNext  atomic.Pointer[Unit]
	nqFlags atomic.Uint32
	nqSelf  Processor
	proxy   atomic.Pointer[weak.Pointer[Proxy]]
}

// Base returns u.
func (u *Unit) Base() *Unit {
	return u
}

// Attach binds u to the engine of the construction context. Constructors
// must call it before returning.
func (u *Unit) Attach(ctx *Context) {
	if !assert(ctx != nil && ctx.engine != nil, "attach without construction context") {
		return
	}
	u.engine = ctx.engine
	ctx.consumed = u
}

// Engine returns the engine u is bound to.
func (u *Unit) Engine() Engine {
	return u.engine
}

// Processor returns the processor embedding u.
func (u *Unit) Processor() Processor {
	return u.self
}

// ID returns the unique instance identifier.
func (u *Unit) ID() string {
	return u.id
}

// Initialize is the default no-op implementation.
func (u *Unit) Initialize() {
	assert(len(u.ibuses)+len(u.obuses) == 0, "buses declared before configure")
}

// Reset is the default no-op implementation.
func (u *Unit) Reset() {}

// EnqueueChildren is the default no-op implementation.
func (u *Unit) EnqueueChildren() {}

// Initialized reports whether the parameter set is fixed.
func (u *Unit) Initialized() bool {
	return u.flags&initialized != 0
}

// Info queries the type description of u.
func (u *Unit) Info() Info {
	var info Info
	if u.self != nil {
		u.self.QueryInfo(&info)
	}
	return info
}

// DebugName returns the label of the unit type or its URI.
func (u *Unit) DebugName() string {
	info := u.Info()
	if info.Label != "" {
		return info.Label
	}
	return info.URI
}
