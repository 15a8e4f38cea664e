// Package engine schedules and renders graph units block by block.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"pipelined.dev/graph"
	"pipelined.dev/graph/internal/lockfree"
	"pipelined.dev/graph/log"
	"pipelined.dev/graph/metric"
)

const maxDepth = 999

var (
	// ErrInvalidSampleRate is returned for sample rates that are zero or
	// not a multiple of 4.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrRunning is returned if Run is called on a running engine.
	ErrRunning = errors.New("engine is running")
)

// Engine implements graph.Engine. It renders the units reachable from its
// roots in dependency order. All graph mutation happens on the goroutine
// calling RenderBlock, other goroutines use AddJob.
type Engine struct {
	sampleRate   uint32
	frameCounter atomic.Uint64
	reschedule   atomic.Bool
	running      atomic.Bool
	depth        int
	checkGuards  bool

	mu       sync.Mutex
	roots    []graph.Processor
	schedule []graph.Processor

	jobs    lockfree.List[func()]
	log     logrus.FieldLogger
	metered bool
	meters  map[*graph.Unit]*metric.Meter
	// meter of each scheduled unit, same order as schedule
	measure []*metric.Meter
}

// Option provides a way to set functional parameters to engine.
type Option func(e *Engine) error

// WithLogger sets logger to engine.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) error {
		e.log = l
		return nil
	}
}

// WithMetric enables render counters of the scheduled unit types.
func WithMetric() Option {
	return func(e *Engine) error {
		e.metered = true
		e.meters = make(map[*graph.Unit]*metric.Meter)
		return nil
	}
}

// WithGuardCheck verifies output buffers of every unit after each block.
func WithGuardCheck() Option {
	return func(e *Engine) error {
		e.checkGuards = true
		return nil
	}
}

// New creates a new engine and applies provided options.
func New(sampleRate uint32, options ...Option) (*Engine, error) {
	if sampleRate == 0 || sampleRate%4 != 0 {
		return nil, fmt.Errorf("%d: %w", sampleRate, ErrInvalidSampleRate)
	}
	e := &Engine{
		sampleRate: sampleRate,
		schedule:   make([]graph.Processor, 0, 256),
		log:        log.Component(log.GetLogger(), "engine"),
	}
	e.frameCounter.Store(graph.BlockSize)
	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}
	e.Reschedule()
	return e, nil
}

// SampleRate returns the sample rate in Hz.
func (e *Engine) SampleRate() uint32 {
	return e.sampleRate
}

// FrameCounter returns the position of the current block.
func (e *Engine) FrameCounter() uint64 {
	return e.frameCounter.Load()
}

// Reschedule requests a new schedule before the next block.
func (e *Engine) Reschedule() {
	e.reschedule.Store(true)
}

// AddJob submits fn to be run on the render goroutine before the next
// block. It is safe for concurrent use.
func (e *Engine) AddJob(fn func()) {
	e.jobs.Push(fn)
}

// AddRoot adds p to the set of units rendered every block.
func (e *Engine) AddRoot(p graph.Processor) bool {
	if p == nil || p.Base().Engine() != graph.Engine(e) {
		e.log.Error("root of foreign engine")
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.roots {
		if r == p {
			e.log.WithField("unit", p.Base().DebugName()).Error("root added twice")
			return false
		}
	}
	e.roots = append(e.roots, p)
	e.Reschedule()
	return true
}

// DelRoot removes p from the roots and reports whether it was one.
func (e *Engine) DelRoot(p graph.Processor) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.Reschedule()
	for i, r := range e.roots {
		if r == p {
			e.roots = append(e.roots[:i], e.roots[i+1:]...)
			return true
		}
	}
	return false
}

// Enqueue adds p to the schedule after its dependencies. It may only be
// called while a schedule is built.
func (e *Engine) Enqueue(p graph.Processor) {
	u := p.Base()
	if u.Engine() != graph.Engine(e) {
		e.log.WithField("unit", u.DebugName()).Error("enqueue of foreign unit")
		return
	}
	if e.depth <= 0 || e.depth > maxDepth {
		e.log.WithField("depth", e.depth).Error("enqueue outside of scheduling")
		return
	}
	e.depth++
	u.EnqueueDeps()
	e.depth--
	for _, s := range e.schedule {
		if s == p {
			return
		}
	}
	e.schedule = append(e.schedule, p)
}

func (e *Engine) makeSchedule() {
	if !e.reschedule.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.reschedule.Swap(false) {
		return
	}
	e.schedule = e.schedule[:0]
	e.depth++
	for _, r := range e.roots {
		e.Enqueue(r)
	}
	e.depth--
	for _, p := range e.schedule {
		p.Base().ResetState()
	}
	if e.metered {
		e.updateMeters()
	}
}

// updateMeters creates meters for newly scheduled units and closes the
// meters of units that left the schedule.
func (e *Engine) updateMeters() {
	meters := make(map[*graph.Unit]*metric.Meter, len(e.schedule))
	e.measure = e.measure[:0]
	for _, p := range e.schedule {
		u := p.Base()
		m, ok := e.meters[u]
		if !ok {
			m = metric.New(unitType(p), e.sampleRate)
		}
		meters[u] = m
		e.measure = append(e.measure, m)
	}
	for u, m := range e.meters {
		if _, ok := meters[u]; !ok {
			m.Close()
		}
	}
	e.meters = meters
}

func unitType(p graph.Processor) string {
	if uri := p.Base().Info().URI; uri != "" {
		return uri
	}
	return fmt.Sprintf("%T", p)
}

// Schedule returns a copy of the current render order.
func (e *Engine) Schedule() []graph.Processor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]graph.Processor(nil), e.schedule...)
}

// RenderBlock runs pending jobs, rebuilds the schedule if needed and
// renders one block in all scheduled units.
func (e *Engine) RenderBlock() error {
	e.jobs.Drain(func(fn func()) { fn() })
	e.makeSchedule()
	e.frameCounter.Add(graph.BlockSize)
	for i, p := range e.schedule {
		if !e.metered {
			p.Base().RenderBlock()
			continue
		}
		start := time.Now()
		p.Base().RenderBlock()
		e.measure[i].Rendered(start, graph.BlockSize)
	}
	if !e.checkGuards {
		return nil
	}
	for _, p := range e.schedule {
		if err := p.Base().CheckBuffers(); err != nil {
			return fmt.Errorf("%s: %w", p.Base().DebugName(), err)
		}
	}
	return nil
}

// Process renders n blocks as fast as possible on the calling goroutine.
func (e *Engine) Process(n int) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer e.running.Store(false)
	for i := 0; i < n; i++ {
		if err := e.RenderBlock(); err != nil {
			return err
		}
	}
	return nil
}

// Run renders blocks in real time on a new goroutine until ctx is done.
// The returned channel is closed when rendering stops.
func (e *Engine) Run(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	if !e.running.CompareAndSwap(false, true) {
		errc <- ErrRunning
		close(errc)
		return errc
	}
	go e.run(ctx, errc)
	return errc
}

func (e *Engine) run(ctx context.Context, errc chan<- error) {
	defer close(errc)
	defer e.running.Store(false)
	period := time.Duration(graph.BlockSize) * time.Second / time.Duration(e.sampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.RenderBlock(); err != nil {
				errc <- fmt.Errorf("error rendering block: %w", err)
				return
			}
		}
	}
}
