package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"VolSurf/internal/domain/models"
	"VolSurf/internal/services/surface"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu      sync.Mutex
	saved   []surface.Sample
	loadErr error
	saveErr error
}

func (f *fakeRepo) Init(context.Context) error { return nil }

func (f *fakeRepo) Save(ctx context.Context, s surface.Sample) error {
	return f.SaveBatch(ctx, []surface.Sample{s})
}

func (f *fakeRepo) SaveBatch(_ context.Context, samples []surface.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, samples...)
	return nil
}

func (f *fakeRepo) LoadAll(context.Context) ([]surface.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]surface.Sample(nil), f.saved...), nil
}

func (f *fakeRepo) Health(context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

type fakeMetrics struct {
	mu        sync.Mutex
	ingested  map[string]int
	rejected  map[string]int
	grids     int
	hits      int
	misses    int
	published map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		ingested:  map[string]int{},
		rejected:  map[string]int{},
		published: map[string]int{},
	}
}

func (m *fakeMetrics) SampleIngested(source string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested[source]++
}

func (m *fakeMetrics) SampleRejected(source, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[source+"/"+reason]++
}

func (m *fakeMetrics) GridEvaluated(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grids++
}

func (m *fakeMetrics) CacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *fakeMetrics) Published(sink string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.published[sink]++
	}
}

func (m *fakeMetrics) StreamClients(int) {}

type fakePublisher struct {
	snaps []*models.GridSnapshot
	err   error
}

func (p *fakePublisher) PublishGrid(_ context.Context, g *models.GridSnapshot) error {
	p.snaps = append(p.snaps, g)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

type fakeSink struct {
	snaps []*models.GridSnapshot
}

func (s *fakeSink) Broadcast(g *models.GridSnapshot) { s.snaps = append(s.snaps, g) }

func seededEngine(t *testing.T) *surface.Engine {
	t.Helper()
	e := surface.NewEngine()
	for _, s := range surface.DemoSamples() {
		_, err := e.AddSample(s.Strike, s.TimeToExpiry, s.ImpliedVol)
		require.NoError(t, err)
	}
	return e
}
