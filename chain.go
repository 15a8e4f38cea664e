package graph

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"pipelined.dev/graph/speaker"
)

// ChainURI identifies the Chain unit type.
const ChainURI = "graph.Chain"

func init() {
	Enroll(NewChainFactory)
}

// Chain is a unit containing an ordered sequence of units. Adjacent
// members are wired automatically: the main output of each member feeds
// the main input of the next one, the chain's own input feeds the first
// member and the last member with outputs provides the chain's output.
type Chain struct {
	Unit
	ispeakers speaker.Arrangement
	ospeakers speaker.Arrangement
	inlet     *inlet
	eproc     Processor
	last      *Unit

	mu       sync.Mutex
	children []Processor
}

// NewChainFactory constructs a Chain. The arrangement of the chain's
// input and output is taken from a speaker.Arrangement argument, stereo
// by default.
func NewChainFactory(ctx *Context) Processor {
	sa := speaker.Stereo
	if a, ok := ctx.Args().(speaker.Arrangement); ok {
		sa = a
	}
	if !assert(sa.Count() > 0, "chain without channels") {
		return nil
	}
	c := &Chain{ispeakers: sa, ospeakers: sa}
	c.Attach(ctx)
	in := Spawn(ctx.Engine(), newInlet, c)
	if !assert(in != nil, "chain inlet construction failed") {
		return nil
	}
	c.inlet = in.(*inlet)
	return c
}

// NewChain spawns an initialized Chain bound to e.
func NewChain(e Engine, sa speaker.Arrangement) *Chain {
	if p := Spawn(e, NewChainFactory, sa); p != nil {
		return p.(*Chain)
	}
	return nil
}

// QueryInfo implements Processor.
func (c *Chain) QueryInfo(info *Info) {
	info.URI = ChainURI
	info.Label = "Chain"
	info.Category = "Container"
}

// Configure implements Processor.
func (c *Chain) Configure(ibuses, obuses []speaker.Arrangement) {
	c.AddInputBus("Input", c.ispeakers)
	c.AddOutputBus("Output", c.ospeakers)
}

// SetEventSource assigns the producer feeding events to members that
// cannot get them from their predecessor. It applies to future wiring.
func (c *Chain) SetEventSource(p Processor) {
	if p != nil && !assert(p.Base().HasEventOutput(), "event source without event output") {
		return
	}
	c.eproc = p
}

// EnqueueChildren enqueues the members after the inlet.
func (c *Chain) EnqueueChildren() {
	e := c.Engine()
	c.last = nil
	e.Enqueue(c.inlet)
	if c.eproc != nil {
		e.Enqueue(c.eproc)
	}
	for _, p := range c.children {
		e.Enqueue(p)
		if p.Base().NOBuses() > 0 {
			c.last = p.Base()
		}
	}
}

// Render exposes the output of the last member with outputs. Missing
// channels repeat the member's last channel. EnqueueChildren is always
// called before Render.
func (c *Chain) Render(frames int) {
	const out1 = OBusID(1)
	n := c.NOChannels(out1)
	nlast := 0
	if c.last != nil {
		nlast = c.last.NOChannels(out1)
	}
	for ch := 0; ch < n; ch++ {
		if nlast > 0 {
			c.RedirectOBlock(out1, ch, c.last.OFloats(out1, min(ch, nlast-1)))
		} else {
			c.AssignOBlock(out1, ch, 0)
		}
	}
}

// Len returns the number of members.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.children)
}

// At returns the member at position i or nil.
func (c *Chain) At(i int) Processor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.children) {
		return nil
	}
	return c.children[i]
}

// FindPos returns the position of p or -1.
func (c *Chain) FindPos(p Processor) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findPos(p)
}

func (c *Chain) findPos(p Processor) int {
	for i, child := range c.children {
		if child == p {
			return i
		}
	}
	return -1
}

// List returns a copy of the members. It is safe for concurrent use.
func (c *Chain) List() []Processor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Processor(nil), c.children...)
}

// Insert adds p at position pos, clamped to the valid range, and rewires
// the chain from there on.
func (c *Chain) Insert(p Processor, pos int) {
	if !assert(p != nil, "insert nil unit") ||
		!assert(p.Base() != &c.Unit, "insert chain into itself") ||
		!assert(p.Base().Engine() == c.Engine(), "insert unit of foreign engine") {
		return
	}
	c.mu.Lock()
	if !assert(c.findPos(p) < 0, "unit inserted twice") {
		c.mu.Unlock()
		return
	}
	pos = max(0, min(pos, len(c.children)))
	c.children = append(c.children, nil)
	copy(c.children[pos+1:], c.children[pos:])
	c.children[pos] = p
	c.mu.Unlock()

	c.reconnect(pos)
	c.Engine().Reschedule()
	c.enqueueNotify(NotifySubInsert)
}

// Remove takes p out of the chain, disconnects it and rewires its former
// successors. It returns false if p is not a member.
func (c *Chain) Remove(p Processor) bool {
	c.mu.Lock()
	pos := c.findPos(p)
	if pos < 0 {
		c.mu.Unlock()
		return false
	}
	c.children = append(c.children[:pos], c.children[pos+1:]...)
	c.mu.Unlock()

	u := p.Base()
	u.DisconnectIBuses()
	u.DisconnectOBuses()
	c.reconnect(pos)
	c.Engine().Reschedule()
	c.enqueueNotify(NotifySubRemove)
	return true
}

// reconnect disconnects the inputs of all members from start on and wires
// them pairwise again.
func (c *Chain) reconnect(start int) {
	for _, p := range c.children[start:] {
		p.Base().DisconnectIBuses()
	}
	for i := start; i < len(c.children); i++ {
		var prev Processor = c.inlet
		if i > 0 {
			prev = c.children[i-1]
		}
		c.chainUp(prev, c.children[i])
	}
}

type linkState string

const (
	stateHave    linkState = "HAVE"
	stateRequest linkState = "REQUEST"
	stateMatch   linkState = "MATCH"
	stateMiss    linkState = "MISS"
)

// chainUp connects the events and the main audio bus of next to prev and
// returns the number of connected channels. If the arrangements differ,
// next is asked once to adopt the arrangement of prev.
func (c *Chain) chainUp(prev, next Processor) int {
	p, n := prev.Base(), next.Base()
	if !assert(p != &c.Unit && n != &c.Unit, "chain wired to itself") {
		return 0
	}
	// events are wired regardless of audio compatibility
	c.chainEvents(prev, next)
	ni, no := n.NIBuses(), p.NOBuses()
	if ni == 0 || no == 0 {
		logLink(stateMiss, p, min(no, 1), 0, n, min(ni, 1), 0)
		return 0
	}
	const (
		ob = OBusID(1)
		ib = IBusID(1)
	)
	ospa := p.OBusInfo(ob).Speakers.Channels()
	ispa := n.IBusInfo(ib).Speakers.Channels()
	if ospa != ispa {
		logLink(stateRequest, p, 1, ospa, n, 1, ospa)
		n.Reconfigure(ib, ospa, 0, speaker.None)
		ispa = n.IBusInfo(ib).Speakers.Channels()
		logLink(stateHave, p, 1, ospa, n, 1, ispa)
		// reconfiguration dropped the event connection
		c.chainEvents(prev, next)
	}
	if ispa == ospa || (ospa == speaker.Mono && ispa == speaker.Stereo) {
		if n.Connect(ib, prev, ob) {
			logLink(stateMatch, p, 1, ospa, n, 1, ispa)
			return ispa.Count()
		}
	}
	logLink(stateMiss, p, 1, ospa, n, 1, ispa)
	return 0
}

// chainEvents feeds the event input of next from prev or, if prev produces
// no events, from the chain's event source.
func (c *Chain) chainEvents(prev, next Processor) {
	n := next.Base()
	if !n.HasEventInput() || n.EventSource() != nil {
		return
	}
	switch {
	case prev.Base().HasEventOutput():
		n.ConnectEventInput(prev)
	case c.eproc != nil:
		n.ConnectEventInput(c.eproc)
	}
}

func logLink(state linkState, p *Unit, ob int, osa speaker.Arrangement, n *Unit, ib int, isa speaker.Arrangement) {
	logger.WithFields(logrus.Fields{
		"state": state,
		"prev":  busName(p.DebugName(), ob, osa, true),
		"next":  busName(n.DebugName(), ib, isa, false),
	}).Debug("chain link")
}

func busName(name string, bus int, sa speaker.Arrangement, output bool) string {
	if bus == 0 {
		return name
	}
	desc := ""
	if sa != 0 {
		desc = sa.String()
	}
	if output {
		return fmt.Sprintf("%s·%s-%d>>", name, desc, bus)
	}
	return fmt.Sprintf("<<%s-%d·%s", desc, bus, name)
}

// inlet exposes the chain's input as an output for the first member.
type inlet struct {
	Unit
	chain *Chain
}

func newInlet(ctx *Context) Processor {
	c, ok := ctx.Args().(*Chain)
	if !assert(ok && c != nil, "inlet without chain") {
		return nil
	}
	in := &inlet{chain: c}
	in.Attach(ctx)
	return in
}

func (in *inlet) QueryInfo(info *Info) {
	info.Label = "Chain.Inlet"
}

func (in *inlet) Configure(ibuses, obuses []speaker.Arrangement) {
	in.AddOutputBus("Output", in.chain.ispeakers)
}

func (in *inlet) Render(frames int) {
	const (
		i1 = IBusID(1)
		o1 = OBusID(1)
	)
	ni, no := in.chain.NIChannels(i1), in.NOChannels(o1)
	if !assert(ni == no, "inlet channel mismatch") {
		return
	}
	for c := 0; c < ni; c++ {
		in.RedirectOBlock(o1, c, in.chain.IFloats(i1, c))
	}
}
