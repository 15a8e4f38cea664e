// Package metric publishes per unit type render counters through expvar.
//
// Counters of every unit type live in the expvar map "graph.units", keyed
// by the unit URI:
//
//	{"graph.units": {"graph.units.Amplifier": {"Blocks": 750, ...}}}
package metric

import (
	"expvar"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/signal"
)

// Counter names.
const (
	// UnitCounter counts metered unit instances.
	UnitCounter = "Units"
	// BlockCounter counts rendered blocks.
	BlockCounter = "Blocks"
	// FrameCounter counts rendered frames.
	FrameCounter = "Frames"
	// LatencyCounter holds the time the last Render call took.
	LatencyCounter = "Latency"
	// DurationCounter holds the duration of the rendered signal.
	DurationCounter = "Duration"
)

var units = expvar.NewMap("graph.units")

var types struct {
	sync.Mutex
	m map[string]*counters
}

type counters struct {
	vars     *expvar.Map
	units    *expvar.Int
	blocks   *expvar.Int
	frames   *expvar.Int
	latency  *duration
	duration *duration
}

func lookup(uri string) *counters {
	types.Lock()
	defer types.Unlock()
	if c, ok := types.m[uri]; ok {
		return c
	}
	c := &counters{
		vars:     new(expvar.Map).Init(),
		units:    new(expvar.Int),
		blocks:   new(expvar.Int),
		frames:   new(expvar.Int),
		latency:  new(duration),
		duration: new(duration),
	}
	c.vars.Set(UnitCounter, c.units)
	c.vars.Set(BlockCounter, c.blocks)
	c.vars.Set(FrameCounter, c.frames)
	c.vars.Set(LatencyCounter, c.latency)
	c.vars.Set(DurationCounter, c.duration)
	if types.m == nil {
		types.m = make(map[string]*counters)
	}
	types.m[uri] = c
	units.Set(uri, c.vars)
	return c
}

// Get returns the counters of unit type uri. It is empty for types that
// were never metered.
func Get(uri string) map[string]string {
	types.Lock()
	c, ok := types.m[uri]
	types.Unlock()
	m := make(map[string]string)
	if !ok {
		return m
	}
	c.vars.Do(func(kv expvar.KeyValue) {
		m[kv.Key] = kv.Value.String()
	})
	return m
}

// GetAll returns the counters of all metered unit types.
func GetAll() map[string]map[string]string {
	types.Lock()
	uris := make([]string, 0, len(types.m))
	for uri := range types.m {
		uris = append(uris, uri)
	}
	types.Unlock()
	m := make(map[string]map[string]string, len(uris))
	for _, uri := range uris {
		m[uri] = Get(uri)
	}
	return m
}

// Meter accumulates the renders of one unit instance into the counters
// of its type. A Meter is used by one goroutine at a time.
type Meter struct {
	c             *counters
	rate          signal.Frequency
	blockSize     int
	blockDuration time.Duration
	closed        bool
}

// New registers a unit instance of type uri rendering at sampleRate.
func New(uri string, sampleRate uint32) *Meter {
	c := lookup(uri)
	c.units.Add(1)
	return &Meter{
		c:    c,
		rate: signal.Frequency(sampleRate),
	}
}

// Rendered records a Render call of frames that started at start.
func (m *Meter) Rendered(start time.Time, frames int) {
	m.c.latency.set(time.Since(start))
	m.c.blocks.Add(1)
	m.c.frames.Add(int64(frames))
	if frames != m.blockSize {
		m.blockSize = frames
		m.blockDuration = m.rate.Duration(frames)
	}
	m.c.duration.add(m.blockDuration)
}

// Close unregisters the unit instance. Counters of the type are kept.
func (m *Meter) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.c.units.Add(-1)
}

type duration struct {
	d atomic.Int64
}

func (v *duration) String() string {
	return `"` + time.Duration(v.d.Load()).String() + `"`
}

func (v *duration) add(delta time.Duration) {
	v.d.Add(int64(delta))
}

func (v *duration) set(value time.Duration) {
	v.d.Store(int64(value))
}
