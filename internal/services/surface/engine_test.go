package surface

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScenarioEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e := NewEngine(opts...)
	for _, s := range scenarioSamples() {
		_, err := e.AddSample(s.Strike, s.TimeToExpiry, s.ImpliedVol)
		require.NoError(t, err)
	}
	return e
}

func TestEngineScenario(t *testing.T) {
	e := newScenarioEngine(t)

	r, err := e.Point(100, 0.1)
	require.NoError(t, err)
	require.True(t, r.InDomain)
	assert.Equal(t, 0.20, r.Vol)

	r, err = e.Point(102, 0.4)
	require.NoError(t, err)
	require.True(t, r.InDomain)
	assert.Greater(t, r.Vol, 0.18)
	assert.Less(t, r.Vol, 0.25)

	r, err = e.Point(200, 0.1)
	require.NoError(t, err)
	assert.True(t, r.Outside())
}

func TestEngineDuplicateRejectKeepsValue(t *testing.T) {
	e := newScenarioEngine(t)
	before := e.Version()

	_, err := e.AddSample(100, 0.1, 0.99)
	require.ErrorIs(t, err, ErrDuplicateSample)
	assert.Equal(t, before, e.Version())

	r, err := e.Point(100, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.20, r.Vol)
}

func TestEngineDuplicateAverage(t *testing.T) {
	e := newScenarioEngine(t, WithDuplicatePolicy(DuplicateAverage))

	s, err := e.AddSample(100, 0.1, 0.30)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, s.ImpliedVol, 1e-12)
	assert.Equal(t, 8, e.Count())

	r, err := e.Point(100, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, r.Vol, 1e-12)
}

func TestEngineInvalidSample(t *testing.T) {
	e := NewEngine()
	_, err := e.AddSample(-1, 0.1, 0.2)
	assert.ErrorIs(t, err, ErrInvalidSample)
	assert.Zero(t, e.Version())
	assert.Zero(t, e.Count())
}

func TestEngineRebuildsLazily(t *testing.T) {
	var rebuilds atomic.Int32
	e := newScenarioEngine(t, WithRebuildHook(func(int, time.Duration, error) {
		rebuilds.Add(1)
	}))
	assert.Zero(t, rebuilds.Load())

	_, err := e.Point(100, 0.3)
	require.NoError(t, err)
	_, err = e.Grid(4, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rebuilds.Load())

	_, err = e.AddSample(120, 0.3, 0.26)
	require.NoError(t, err)
	r, err := e.Point(115, 0.3)
	require.NoError(t, err)
	assert.True(t, r.InDomain)
	assert.EqualValues(t, 2, rebuilds.Load())
}

func TestEngineDegenerateUntilEnoughSamples(t *testing.T) {
	e := NewEngine()
	_, err := e.Point(100, 0.1)
	assert.ErrorIs(t, err, ErrDegenerateDomain)

	_, err = e.AddSample(90, 0.1, 0.2)
	require.NoError(t, err)
	_, err = e.AddSample(110, 0.1, 0.2)
	require.NoError(t, err)
	_, err = e.Grid(3, 3)
	assert.ErrorIs(t, err, ErrDegenerateDomain)

	_, err = e.AddSample(100, 0.5, 0.3)
	require.NoError(t, err)
	r, err := e.Point(100, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.3, r.Vol)
}

func TestEngineIdempotentRebuild(t *testing.T) {
	a := newScenarioEngine(t)
	b := newScenarioEngine(t)

	ga, err := a.Surface(0)
	require.NoError(t, err)
	gb, err := b.Surface(0)
	require.NoError(t, err)
	assert.Len(t, ga.Points, DefaultResolution*DefaultResolution)
	assert.Equal(t, ga, gb)

	ia, _, err := a.interpolant()
	require.NoError(t, err)
	ib, _, err := b.interpolant()
	require.NoError(t, err)
	assert.Equal(t, ia.Triangulation(), ib.Triangulation())
}

func TestEngineGridVersion(t *testing.T) {
	e := newScenarioEngine(t)
	g, err := e.Grid(2, 2)
	require.NoError(t, err)
	assert.Equal(t, e.Version(), g.Version)

	_, err = e.Grid(0, 2)
	assert.ErrorIs(t, err, ErrInvalidResolution)
}

func TestEngineGradients(t *testing.T) {
	e := NewEngine()
	samples, _ := linearSamples(13, 30)
	for _, s := range samples {
		_, err := e.AddSample(s.Strike, s.TimeToExpiry, s.ImpliedVol)
		require.NoError(t, err)
	}

	grads, err := e.Gradients()
	require.NoError(t, err)
	require.Len(t, grads, 30)
	assert.InDelta(t, 0.001, grads[0].DStrike, 1e-9)
	assert.InDelta(t, -0.05, grads[0].DTime, 1e-9)
}

func TestEngineConcurrentReadersAndWriters(t *testing.T) {
	e := newScenarioEngine(t, WithGridWorkers(4))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, err := e.AddSample(90+float64(w)*5+float64(i)*0.1, 0.2+float64(i)*0.01, 0.2)
				assert.NoError(t, err)
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				res, err := e.Point(100, 0.1)
				assert.NoError(t, err)
				assert.Equal(t, 0.20, res.Vol)
				_, err = e.Grid(6, 6)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8+80, e.Count())
	r, err := e.Point(100, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.20, r.Vol)
}

func TestEngineNearDuplicateDoesNotBreakBuild(t *testing.T) {
	e := newScenarioEngine(t)

	_, err := e.AddSample(100+1e-11, 0.1, 0.21)
	require.ErrorIs(t, err, ErrDuplicateSample)
	_, err = e.AddSample(95, 0.1+0.2, 0.30)
	require.ErrorIs(t, err, ErrDuplicateSample)
	assert.Equal(t, 8, e.Count())

	r, err := e.Point(100, 0.3)
	require.NoError(t, err)
	assert.True(t, r.InDomain)
}

func TestEngineNearDuplicateAverages(t *testing.T) {
	e := newScenarioEngine(t, WithDuplicatePolicy(DuplicateAverage))

	got, err := e.AddSample(100+1e-11, 0.1, 0.22)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Strike)
	assert.InDelta(t, 0.21, got.ImpliedVol, 1e-12)
	assert.Equal(t, 8, e.Count())

	r, err := e.Point(100, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.21, r.Vol, 1e-12)
}

func TestEngineIDsAreDistinct(t *testing.T) {
	a, b := NewEngine(), NewEngine()
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
