package repository

import (
	"context"
	"time"

	"VolSurf/internal/domain/models"
	"VolSurf/internal/services/surface"
)

// SampleRepository persists raw observations so a restart can replay them.
type SampleRepository interface {
	Init(ctx context.Context) error // ensure tables
	Save(ctx context.Context, s surface.Sample) error
	SaveBatch(ctx context.Context, samples []surface.Sample) error
	// LoadAll returns every persisted observation in ingestion order.
	LoadAll(ctx context.Context) ([]surface.Sample, error)
	Health(ctx context.Context) error
	Close() error
}

// GridPublisher ships evaluated grids to downstream consumers.
type GridPublisher interface {
	PublishGrid(ctx context.Context, g *models.GridSnapshot) error
	Close() error
}

type Metrics interface {
	SampleIngested(source string, stored int)
	SampleRejected(source, reason string)
	GridEvaluated(source string, took time.Duration)
	CacheLookup(hit bool)
	Published(sink string, err error)
	StreamClients(n int)
}
