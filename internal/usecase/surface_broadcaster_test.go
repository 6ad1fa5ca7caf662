package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"VolSurf/internal/services/surface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_TicksOnlyOnChange(t *testing.T) {
	e := seededEngine(t)
	m := newFakeMetrics()
	pub := &fakePublisher{}
	sink := &fakeSink{}
	b := NewSurfaceBroadcaster(newQuery(t, e, nil, m), pub, m, nil, time.Second, 6, sink)
	ctx := context.Background()

	sent, err := b.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, pub.snaps, 1)
	require.Len(t, sink.snaps, 1)
	assert.Len(t, pub.snaps[0].Strikes, 6)
	assert.Same(t, pub.snaps[0], sink.snaps[0])

	sent, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, sent)

	_, err = e.AddSample(100, 0.3, 0.19)
	require.NoError(t, err)
	sent, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Len(t, pub.snaps, 2)
	assert.Equal(t, e.Version(), pub.snaps[1].Version)
	assert.Equal(t, 2, m.published["kafka"])
	assert.Equal(t, 2, m.published["stream"])
}

func TestBroadcaster_SkipsDegenerate(t *testing.T) {
	e := surface.NewEngine()
	sink := &fakeSink{}
	b := NewSurfaceBroadcaster(newQuery(t, e, nil, nil), nil, nil, nil, time.Second, 4, sink)

	sent, err := b.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)

	for _, s := range surface.DemoSamples()[:3] {
		_, err := e.AddSample(s.Strike, s.TimeToExpiry, s.ImpliedVol)
		require.NoError(t, err)
	}
	sent, err = b.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Len(t, sink.snaps, 1)
}

func TestBroadcaster_PublishFailureStillFeedsSinks(t *testing.T) {
	e := seededEngine(t)
	pub := &fakePublisher{err: errors.New("broker down")}
	sink := &fakeSink{}
	b := NewSurfaceBroadcaster(newQuery(t, e, nil, nil), pub, nil, nil, time.Second, 4, sink)

	sent, err := b.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Len(t, sink.snaps, 1)
}

func TestBroadcaster_RunStopsOnCancel(t *testing.T) {
	e := seededEngine(t)
	sink := &fakeSink{}
	b := NewSurfaceBroadcaster(newQuery(t, e, nil, nil), nil, nil, nil, 5*time.Millisecond, 4, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop")
	}
	assert.Len(t, sink.snaps, 1)
}
