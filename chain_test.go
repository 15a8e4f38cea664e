package graph_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/engine"
	"pipelined.dev/graph/event"
	"pipelined.dev/graph/mock"
	"pipelined.dev/graph/speaker"
)

func TestChainRender(t *testing.T) {
	e := newEngine(t, engine.WithGuardCheck())
	c := graph.NewChain(e, speaker.Stereo)
	require.NotNil(t, c)
	src := &mock.Source{Value: 0.25}
	fx1, fx2 := &mock.Effect{}, &mock.Effect{}
	sink := &mock.Sink{}
	for _, p := range []graph.Processor{
		graph.Spawn(e, src.Factory(), nil),
		graph.Spawn(e, fx1.Factory(), nil),
		graph.Spawn(e, fx2.Factory(), nil),
	} {
		c.Insert(p, c.Len())
	}
	graph.Spawn(e, sink.Factory(), nil)
	require.True(t, sink.Connect(1, c, 1))
	require.True(t, e.AddRoot(sink))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []graph.Processor{src, fx1, fx2}, c.List())
	p, _ := fx2.Source(1)
	assert.Equal(t, graph.Processor(fx1), p)

	require.NoError(t, e.Process(2))
	assert.Equal(t, 2, fx2.Renders)
	for ch := 0; ch < 2; ch++ {
		for _, v := range sink.Last(ch) {
			assert.Equal(t, 0.25, v)
		}
	}
}

func TestChainRemove(t *testing.T) {
	e := newEngine(t)
	c := graph.NewChain(e, speaker.Stereo)
	src := &mock.Source{Value: 1}
	fx1, fx2 := &mock.Effect{}, &mock.Effect{}
	graph.Spawn(e, src.Factory(), nil)
	graph.Spawn(e, fx1.Factory(), nil)
	graph.Spawn(e, fx2.Factory(), nil)
	c.Insert(src, 0)
	c.Insert(fx2, 1)
	// positions are clamped
	c.Insert(fx1, -5)
	assert.Equal(t, []graph.Processor{fx1, src, fx2}, c.List())
	assert.Equal(t, 1, c.FindPos(src))

	assert.True(t, c.Remove(fx1))
	assert.False(t, c.Remove(fx1))
	assert.Equal(t, []graph.Processor{src, fx2}, c.List())

	c.Insert(fx1, 1)
	assert.True(t, c.Remove(fx1))
	p, _ := fx2.Source(1)
	assert.Equal(t, graph.Processor(src), p)
	p, _ = fx1.Source(1)
	assert.Nil(t, p)
	assert.False(t, fx1.Connected(1))
	assert.Nil(t, c.At(2))
	assert.Equal(t, -1, c.FindPos(fx1))
}

func TestChainInsertInvalid(t *testing.T) {
	hook := logHook(t)
	e := newEngine(t)
	other := newEngine(t)
	c := graph.NewChain(e, speaker.Stereo)
	fx := &mock.Effect{}
	foreign := &mock.Effect{}
	graph.Spawn(e, fx.Factory(), nil)
	graph.Spawn(other, foreign.Factory(), nil)

	c.Insert(fx, 0)
	c.Insert(fx, 0)
	c.Insert(foreign, 0)
	c.Insert(c, 0)
	assert.Equal(t, 1, c.Len())
	assert.Subset(t, assertions(hook), []string{
		"unit inserted twice",
		"insert unit of foreign engine",
		"insert chain into itself",
	})
}

func TestChainArrangements(t *testing.T) {
	hook := logHook(t)
	e := newEngine(t)
	c := graph.NewChain(e, speaker.Stereo)
	mono := &mock.Source{Speakers: speaker.Mono}
	adapt := &mock.Effect{Adapt: true}
	fixed := &mock.Effect{In: speaker.Surround51}
	graph.Spawn(e, mono.Factory(), nil)
	graph.Spawn(e, adapt.Factory(), nil)
	graph.Spawn(e, fixed.Factory(), nil)

	c.Insert(mono, 0)
	c.Insert(adapt, 1)
	// the adapting effect follows its mono predecessor
	assert.Equal(t, speaker.Mono, adapt.IBusInfo(1).Speakers)
	assert.Equal(t, speaker.Mono, adapt.OBusInfo(1).Speakers)
	p, _ := adapt.Source(1)
	assert.Equal(t, graph.Processor(mono), p)

	c.Insert(fixed, 2)
	// the fixed effect keeps its 5.1 input and stays unconnected
	p, _ = fixed.Source(1)
	assert.Nil(t, p)

	states := map[string]int{}
	for _, entry := range hook.AllEntries() {
		if entry.Message == "chain link" {
			states[fmt.Sprint(entry.Data["state"])]++
		}
	}
	assert.Greater(t, states["REQUEST"], 0)
	assert.Greater(t, states["HAVE"], 0)
	assert.Greater(t, states["MATCH"], 0)
	assert.Greater(t, states["MISS"], 0)
}

func TestChainEvents(t *testing.T) {
	e := newEngine(t)
	c := graph.NewChain(e, speaker.Stereo)
	notes := &mock.Source{
		EventOut: true,
		Events:   []event.Event{event.Note(0, true, 0, 60, 0.8)},
	}
	src := &mock.Source{}
	fx := &mock.Effect{In: speaker.Surround51, EventIn: true}
	graph.Spawn(e, notes.Factory(), nil)
	graph.Spawn(e, src.Factory(), nil)
	graph.Spawn(e, fx.Factory(), nil)

	c.SetEventSource(notes)
	c.Insert(src, 0)
	c.Insert(fx, 1)
	// events are wired even though the audio link failed
	p, _ := fx.Source(1)
	assert.Nil(t, p)
	assert.Equal(t, graph.Processor(notes), fx.EventSource())

	require.True(t, e.AddRoot(c))
	require.NoError(t, e.Process(1))
	require.Len(t, fx.Received, 1)
	assert.Equal(t, uint8(60), fx.Received[0].Key)
	assert.Equal(t, event.NoteOn, fx.Received[0].Type)
}

func TestChainEventPassing(t *testing.T) {
	e := newEngine(t)
	c := graph.NewChain(e, speaker.Stereo)
	src := &mock.Source{
		EventOut: true,
		Events:   []event.Event{event.Param(3, 1, 0.5)},
	}
	fx1 := &mock.Effect{EventIn: true, EventOut: true}
	fx2 := &mock.Effect{EventIn: true}
	graph.Spawn(e, src.Factory(), nil)
	graph.Spawn(e, fx1.Factory(), nil)
	graph.Spawn(e, fx2.Factory(), nil)
	c.Insert(src, 0)
	c.Insert(fx1, 1)
	c.Insert(fx2, 2)
	assert.Equal(t, graph.Processor(src), fx1.EventSource())
	assert.Equal(t, graph.Processor(fx1), fx2.EventSource())

	require.True(t, e.AddRoot(c))
	require.NoError(t, e.Process(3))
	require.Len(t, fx2.Received, 1)
	assert.Equal(t, 3, fx2.Received[0].Frame)
}

func TestChainProxy(t *testing.T) {
	graph.CallNotifies()
	e := newEngine(t)
	r := graph.NewRegistry()
	r.Enroll(mock.Factory("test.Effect", "Effect"))
	c := graph.NewChain(e, speaker.Stereo)
	x := graph.NewProxy(c)
	var inserts, removes int
	x.On("sub:insert", func() { inserts++ })
	x.On("sub:remove", func() { removes++ })

	first, err := x.CreateChild(r, "test.Effect", nil)
	require.NoError(t, err)
	second, err := x.CreateChild(r, "test.Effect", first)
	require.NoError(t, err)
	_, err = x.CreateChild(r, "test.Missing", nil)
	assert.ErrorIs(t, err, graph.ErrUnknownURI)

	// insertion happens on the render goroutine
	children, err := x.Children()
	require.NoError(t, err)
	assert.Empty(t, children)
	require.NoError(t, e.Process(1))
	children, _ = x.Children()
	assert.Equal(t, []graph.Processor{second, first}, children)
	graph.CallNotifies()
	assert.Equal(t, 1, inserts)

	ok, err := x.RemoveChild(second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, e.Process(1))
	children, _ = x.Children()
	assert.Equal(t, []graph.Processor{first}, children)
	graph.CallNotifies()
	assert.Equal(t, 1, removes)
	// removed children are torn down and unlinked
	assert.True(t, second.Base().TornDown())
	assert.Zero(t, second.Base().NOBuses())
	assert.NoError(t, second.Base().CheckBuffers())
	p, _ := first.Base().Source(1)
	assert.NotNil(t, p)
	assert.NotEqual(t, second, p)
	assert.False(t, first.Base().TornDown())

	_, err = graph.NewProxy(first).Children()
	assert.ErrorIs(t, err, graph.ErrNotChain)
}
