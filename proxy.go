package graph

import (
	"errors"
	"sync"
	"weak"

	"pipelined.dev/graph/param"
)

// ErrNotChain is returned by child operations of proxies for units other
// than Chain.
var ErrNotChain = errors.New("not a chain")

// Proxy is the handle other goroutines use to observe and control a
// processor. It receives the notifications of its unit. The unit only
// holds a weak reference, notifications for a collected Proxy are dropped.
type Proxy struct {
	proc Processor
	unit *Unit

	mu            sync.Mutex
	handlers      map[string][]func()
	paramHandlers map[param.ID][]func(float64)
}

// NewProxy returns the proxy of p, creating it if needed.
func NewProxy(p Processor) *Proxy {
	u := p.Base()
	for {
		old := u.proxy.Load()
		if old != nil {
			if x := old.Value(); x != nil {
				return x
			}
		}
		x := &Proxy{
			proc:          p,
			unit:          u,
			handlers:      make(map[string][]func()),
			paramHandlers: make(map[param.ID][]func(float64)),
		}
		wp := weak.Make(x)
		if u.proxy.CompareAndSwap(old, &wp) {
			return x
		}
	}
}

// Processor returns the proxied processor.
func (x *Proxy) Processor() Processor {
	return x.proc
}

// On registers fn for the named notification event, e.g. "bus:connect".
func (x *Proxy) On(name string, fn func()) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.handlers[name] = append(x.handlers[name], fn)
}

// OnParam registers fn for value changes of parameter id. The first
// listener switches the parameter to notifying mode.
func (x *Proxy) OnParam(id param.ID, fn func(v float64)) bool {
	if x.unit.ParamInfo(id) == nil {
		return false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.paramHandlers[id]) == 0 {
		x.unit.ParamNotifiesMT(id, true)
	}
	x.paramHandlers[id] = append(x.paramHandlers[id], fn)
	return true
}

// OffParam removes all listeners of parameter id and stops notifications.
func (x *Proxy) OffParam(id param.ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.paramHandlers[id]) > 0 {
		delete(x.paramHandlers, id)
		x.unit.ParamNotifiesMT(id, false)
	}
}

// Properties lists the parameters of the processor.
func (x *Proxy) Properties() []*param.Info {
	return x.unit.ListParams()
}

// Get returns the value of the parameter with identifier ident.
func (x *Proxy) Get(ident string) (float64, bool) {
	id, ok := x.unit.FindParam(ident)
	if !ok {
		return 0, false
	}
	return x.unit.PeekParamMT(id), true
}

// Set submits a job assigning v to the parameter with identifier ident.
func (x *Proxy) Set(ident string, v float64) bool {
	id, ok := x.unit.FindParam(ident)
	if !ok {
		return false
	}
	x.unit.engine.AddJob(func() {
		x.unit.SetParam(id, v)
	})
	return true
}

// Children returns the members of a proxied Chain.
func (x *Proxy) Children() ([]Processor, error) {
	c, ok := x.proc.(*Chain)
	if !ok {
		return nil, ErrNotChain
	}
	return c.List(), nil
}

// CreateChild creates a processor of type uri and submits a job inserting
// it into the proxied Chain before sibling, or at the end if sibling is nil.
func (x *Proxy) CreateChild(r *Registry, uri string, sibling Processor) (Processor, error) {
	c, ok := x.proc.(*Chain)
	if !ok {
		return nil, ErrNotChain
	}
	p, err := r.Create(x.unit.engine, uri)
	if err != nil {
		return nil, err
	}
	x.unit.engine.AddJob(func() {
		pos := c.Len()
		if sibling != nil {
			if i := c.FindPos(sibling); i >= 0 {
				pos = i
			}
		}
		c.Insert(p, pos)
	})
	return p, nil
}

// RemoveChild submits a job removing child from the proxied Chain and
// tearing it down. It returns false if child is not a member.
func (x *Proxy) RemoveChild(child Processor) (bool, error) {
	c, ok := x.proc.(*Chain)
	if !ok {
		return false, ErrNotChain
	}
	if c.FindPos(child) < 0 {
		return false, nil
	}
	x.unit.engine.AddJob(func() {
		if !c.Remove(child) {
			logger.WithField("chain", c.DebugName()).Warn("child vanished during removal")
			return
		}
		child.Base().Teardown()
	})
	return true, nil
}

func (x *Proxy) emit(flags NotifyFlag) {
	var calls []func()
	x.mu.Lock()
	for _, e := range notifyEvents {
		if flags&e.flag != 0 {
			calls = append(calls, x.handlers[e.name]...)
		}
	}
	if flags&NotifyParamChange != 0 {
		x.unit.changedParams(func(id param.ID, v float64) {
			for _, fn := range x.paramHandlers[id] {
				fn := fn
				calls = append(calls, func() { fn(v) })
			}
		})
	}
	x.mu.Unlock()
	for _, fn := range calls {
		fn()
	}
}
