package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/graph"
	"pipelined.dev/graph/engine"
	"pipelined.dev/graph/metric"
	"pipelined.dev/graph/mock"
	"pipelined.dev/graph/speaker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNew(t *testing.T) {
	tests := []struct {
		sampleRate uint32
		err        error
	}{
		{48000, nil},
		{44100, nil},
		{22050, engine.ErrInvalidSampleRate},
		{0, engine.ErrInvalidSampleRate},
	}
	for _, test := range tests {
		e, err := engine.New(test.sampleRate)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err)
			assert.Nil(t, e)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, test.sampleRate, e.SampleRate())
		assert.Equal(t, uint64(graph.BlockSize), e.FrameCounter())
	}
}

func TestSchedule(t *testing.T) {
	e, err := engine.New(48000)
	require.NoError(t, err)
	src1 := &mock.Source{}
	src2 := &mock.Source{Speakers: speaker.Mono}
	fx := &mock.Effect{}
	sink1, sink2 := &mock.Sink{}, &mock.Sink{}
	for _, f := range []graph.Factory{src1.Factory(), src2.Factory(), fx.Factory(), sink1.Factory(), sink2.Factory()} {
		require.NotNil(t, graph.Spawn(e, f, nil))
	}
	require.True(t, fx.Connect(1, src1, 1))
	require.True(t, sink1.Connect(1, fx, 1))
	require.True(t, sink2.Connect(1, src2, 1))
	require.True(t, e.AddRoot(sink1))
	require.True(t, e.AddRoot(sink2))
	assert.False(t, e.AddRoot(sink2))

	require.NoError(t, e.Process(1))
	assert.Equal(t, []graph.Processor{src1, fx, sink1, src2, sink2}, e.Schedule())
	assert.Equal(t, uint64(2*graph.BlockSize), e.FrameCounter())
	for _, c := range []*mock.Counter{&src1.Counter, &src2.Counter, &fx.Counter, &sink1.Counter, &sink2.Counter} {
		assert.Equal(t, 1, c.Resets)
		assert.Equal(t, 1, c.Renders)
	}

	// shared producers are rendered once per block
	require.True(t, sink2.Connect(1, fx, 1))
	require.NoError(t, e.Process(2))
	assert.Equal(t, []graph.Processor{src1, fx, sink1, sink2}, e.Schedule())
	assert.Equal(t, 3, fx.Renders)
	assert.Equal(t, 1, src2.Renders)

	assert.True(t, e.DelRoot(sink1))
	assert.False(t, e.DelRoot(sink1))
	require.NoError(t, e.Process(1))
	assert.Equal(t, []graph.Processor{src1, fx, sink2}, e.Schedule())
}

func TestForeignRoot(t *testing.T) {
	other, _ := engine.New(48000)
	l, hook := test.NewNullLogger()
	e, err := engine.New(48000, engine.WithLogger(l))
	require.NoError(t, err)
	sink := &mock.Sink{}
	graph.Spawn(other, sink.Factory(), nil)
	assert.False(t, e.AddRoot(sink))
	assert.Equal(t, "root of foreign engine", hook.LastEntry().Message)
}

func TestJobs(t *testing.T) {
	e, err := engine.New(48000)
	require.NoError(t, err)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		e.AddJob(func() { order = append(order, i) })
	}
	assert.Empty(t, order)
	require.NoError(t, e.Process(1))
	assert.Equal(t, []int{0, 1, 2}, order)
	require.NoError(t, e.Process(1))
	assert.Len(t, order, 3)
}

func TestGuardCheck(t *testing.T) {
	e, err := engine.New(48000, engine.WithGuardCheck())
	require.NoError(t, err)
	c := graph.NewChain(e, speaker.Stereo)
	for i := 0; i < 4; i++ {
		fx := &mock.Effect{}
		graph.Spawn(e, fx.Factory(), nil)
		c.Insert(fx, i)
	}
	require.True(t, e.AddRoot(c))
	assert.NoError(t, e.Process(8))
}

func TestRun(t *testing.T) {
	e, err := engine.New(48000, engine.WithMetric())
	require.NoError(t, err)
	sink := &mock.Sink{URI: "engine_test.RunSink"}
	src := &mock.Source{URI: "engine_test.RunSource", Value: 0.5}
	graph.Spawn(e, src.Factory(), nil)
	graph.Spawn(e, sink.Factory(), nil)
	require.True(t, sink.Connect(1, src, 1))
	require.True(t, e.AddRoot(sink))

	var rendered atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	errc := e.Run(ctx)
	// a second run fails while the first is active
	err, ok := <-e.Run(ctx)
	assert.True(t, ok)
	assert.ErrorIs(t, err, engine.ErrRunning)
	assert.ErrorIs(t, e.Process(1), engine.ErrRunning)

	require.Eventually(t, func() bool {
		done := make(chan struct{})
		e.AddJob(func() {
			rendered.Store(int32(src.Renders))
			close(done)
		})
		<-done
		return rendered.Load() >= 3
	}, time.Second, 10*time.Millisecond)
	cancel()
	for err := range errc {
		assert.NoError(t, err)
	}

	counters := metric.Get("engine_test.RunSource")
	assert.NotEqual(t, "0", counters[metric.BlockCounter])
	assert.NotEmpty(t, counters[metric.DurationCounter])
	assert.Equal(t, 0.5, sink.Last(0)[0])
}

func TestMetric(t *testing.T) {
	e, err := engine.New(48000, engine.WithMetric())
	require.NoError(t, err)
	src := &mock.Source{URI: "engine_test.MeteredSource"}
	fx1 := &mock.Effect{URI: "engine_test.MeteredEffect"}
	fx2 := &mock.Effect{URI: "engine_test.MeteredEffect"}
	sink := &mock.Sink{URI: "engine_test.MeteredSink"}
	for _, f := range []graph.Factory{src.Factory(), fx1.Factory(), fx2.Factory(), sink.Factory()} {
		require.NotNil(t, graph.Spawn(e, f, nil))
	}
	require.True(t, fx1.Connect(1, src, 1))
	require.True(t, fx2.Connect(1, fx1, 1))
	require.True(t, sink.Connect(1, fx2, 1))
	require.True(t, e.AddRoot(sink))
	require.NoError(t, e.Process(4))

	var tests = []struct {
		uri    string
		units  string
		blocks string
		frames string
	}{
		{"engine_test.MeteredSource", "1", "4", "1024"},
		{"engine_test.MeteredEffect", "2", "8", "2048"},
		{"engine_test.MeteredSink", "1", "4", "1024"},
	}
	for _, test := range tests {
		counters := metric.Get(test.uri)
		assert.Equal(t, test.units, counters[metric.UnitCounter], test.uri)
		assert.Equal(t, test.blocks, counters[metric.BlockCounter], test.uri)
		assert.Equal(t, test.frames, counters[metric.FrameCounter], test.uri)
	}

	// units leaving the schedule are no longer counted
	sink.Disconnect(1)
	require.NoError(t, e.Process(1))
	assert.Equal(t, "0", metric.Get("engine_test.MeteredEffect")[metric.UnitCounter])
	assert.Equal(t, "8", metric.Get("engine_test.MeteredEffect")[metric.BlockCounter])
	assert.Equal(t, "5", metric.Get("engine_test.MeteredSink")[metric.BlockCounter])
}
