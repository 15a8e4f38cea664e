package graph

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"pipelined.dev/graph/internal/lockfree"
)

// ErrUnknownURI is returned when no unit type is registered for a URI.
var ErrUnknownURI = errors.New("unknown unit type")

// ErrConstruction is returned when a factory fails to produce a unit.
var ErrConstruction = errors.New("unit construction failed")

// Context carries the engine and construction arguments into a Factory.
// The constructed unit must consume it with Unit.Attach.
type Context struct {
	engine   Engine
	args     interface{}
	consumed *Unit
}

// Engine returns the engine the new unit is bound to.
func (c *Context) Engine() Engine {
	return c.engine
}

// Args returns the construction arguments, nil for registry creation by URI.
func (c *Context) Args() interface{} {
	return c.args
}

// Factory constructs a unit. It must call Attach on the embedded Unit.
type Factory func(ctx *Context) Processor

// construct runs f and binds the result to its processor.
func construct(e Engine, f Factory, args interface{}) Processor {
	ctx := &Context{engine: e, args: args}
	p := f(ctx)
	if p == nil {
		return nil
	}
	u := p.Base()
	if !assert(ctx.consumed == u, "construction context was not consumed") {
		return nil
	}
	u.self = p
	u.id = xid.New().String()
	return p
}

// Spawn constructs a unit with f bound to e and initializes it.
func Spawn(e Engine, f Factory, args interface{}) Processor {
	p := construct(e, f, args)
	if p != nil {
		p.Base().EnsureInitialized()
	}
	return p
}

// Entry describes a registered unit type.
type Entry struct {
	Info
	ID   uint32
	File string
	Line int

	create Factory
}

type hook struct {
	id     uint32
	create Factory
	file   string
	line   int
}

// Registry is a catalog of unit types. Types are enrolled without locking,
// usually from init functions, and resolved into the catalog on first use.
type Registry struct {
	pending lockfree.List[*hook]
	nextID  atomic.Uint32
	hooks   sync.Map // uint32 -> *hook

	mu    sync.RWMutex
	table map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{table: make(map[string]Entry)}
}

// DefaultRegistry holds the built-in unit types.
var DefaultRegistry = NewRegistry()

// Enroll adds a unit type to the DefaultRegistry.
func Enroll(f Factory) uint32 {
	return DefaultRegistry.enroll(f, 2)
}

// Enroll adds a unit type. The type's URI is queried lazily. It returns an
// ID usable with CreateID.
func (r *Registry) Enroll(f Factory) uint32 {
	return r.enroll(f, 2)
}

func (r *Registry) enroll(f Factory, skip int) uint32 {
	if !assert(f != nil, "enroll nil factory") {
		return 0
	}
	h := &hook{id: r.nextID.Add(1), create: f}
	if _, file, line, ok := runtime.Caller(skip); ok {
		h.file, h.line = file, line
	}
	r.hooks.Store(h.id, h)
	r.pending.Push(h)
	return h.id
}

// Init resolves all pending enrollments in enrollment order. Every type
// is instantiated once on a scratch engine to query its Info. Types with
// an empty or already registered URI are skipped with a warning.
// Factories must not call back into the same registry.
func (r *Registry) Init() {
	for !r.pending.Empty() {
		r.mu.Lock()
		r.pending.Drain(r.register)
		r.mu.Unlock()
	}
}

func (r *Registry) register(h *hook) {
	p := construct(scratch, h.create, nil)
	if p == nil {
		logger.WithField("source", fmt.Sprintf("%s:%d", h.file, h.line)).Warn("unit factory failed")
		return
	}
	e := Entry{ID: h.id, File: h.file, Line: h.line, create: h.create}
	p.QueryInfo(&e.Info)
	switch _, dup := r.table[e.URI]; {
	case e.URI == "":
		logger.WithField("source", fmt.Sprintf("%s:%d", h.file, h.line)).Warn("invalid empty unit URI")
	case dup:
		logger.WithField("uri", e.URI).Warn("duplicate unit URI")
	default:
		r.table[e.URI] = e
	}
}

// Lookup returns the entry registered for uri.
func (r *Registry) Lookup(uri string) (Entry, bool) {
	r.Init()
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.table[uri]
	return e, ok
}

// Create instantiates the type registered for uri bound to e and
// initializes it.
func (r *Registry) Create(e Engine, uri string) (Processor, error) {
	entry, ok := r.Lookup(uri)
	if !ok {
		return nil, fmt.Errorf("create %q: %w", uri, ErrUnknownURI)
	}
	p := Spawn(e, entry.create, nil)
	if p == nil {
		return nil, fmt.Errorf("create %q: %w", uri, ErrConstruction)
	}
	return p, nil
}

// CreateID instantiates the type enrolled with id, passing args to its
// factory. The type need not have a URI.
func (r *Registry) CreateID(e Engine, id uint32, args interface{}) (Processor, error) {
	v, ok := r.hooks.Load(id)
	if !ok {
		return nil, fmt.Errorf("create #%d: %w", id, ErrUnknownURI)
	}
	p := Spawn(e, v.(*hook).create, args)
	if p == nil {
		return nil, fmt.Errorf("create #%d: %w", id, ErrConstruction)
	}
	return p, nil
}

// List returns all registered types ordered by URI.
func (r *Registry) List() []Entry {
	r.Init()
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Entry, 0, len(r.table))
	for _, e := range r.table {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].URI < list[j].URI })
	return list
}

// scratchEngine binds units that are only constructed to query their Info.
type scratchEngine struct{}

var scratch Engine = scratchEngine{}

func (scratchEngine) SampleRate() uint32   { return 48000 }
func (scratchEngine) FrameCounter() uint64 { return BlockSize }
func (scratchEngine) Enqueue(Processor)    {}
func (scratchEngine) Reschedule()          {}
func (scratchEngine) AddJob(fn func())     {}
