package usecase

import (
	"context"
	"errors"
	"time"

	"VolSurf/internal/domain/models"
	domrepo "VolSurf/internal/domain/repository"
	"VolSurf/internal/services/surface"
	"VolSurf/pkg/logger"
)

// GridSink receives every new grid snapshot; the WebSocket hub is one.
type GridSink interface {
	Broadcast(snap *models.GridSnapshot)
}

// SurfaceBroadcaster polls the engine version and, whenever it moved,
// evaluates the default grid once and hands it to the publisher and sinks.
type SurfaceBroadcaster struct {
	query     *SurfaceQuery
	publisher domrepo.GridPublisher
	sinks     []GridSink
	metrics   domrepo.Metrics
	log       *logger.Logger
	interval  time.Duration
	steps     int

	last    uint64
	started bool
}

// NewSurfaceBroadcaster creates the broadcaster. publisher may be nil.
func NewSurfaceBroadcaster(
	query *SurfaceQuery,
	publisher domrepo.GridPublisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	interval time.Duration,
	steps int,
	sinks ...GridSink,
) *SurfaceBroadcaster {
	if log == nil {
		log = logger.Nop()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &SurfaceBroadcaster{
		query:     query,
		publisher: publisher,
		sinks:     sinks,
		metrics:   metrics,
		log:       log,
		interval:  interval,
		steps:     steps,
	}
}

// Run ticks until ctx is cancelled.
func (b *SurfaceBroadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.log.Info("surface broadcaster started", logger.Duration("interval_ms", b.interval), logger.Int("steps", b.steps))
	for {
		select {
		case <-ctx.Done():
			b.log.Info("surface broadcaster stopped")
			return
		case <-ticker.C:
			if _, err := b.Tick(ctx); err != nil {
				b.log.Warn("surface broadcast failed", logger.Error(err))
			}
		}
	}
}

// Tick broadcasts when the version changed since the last successful tick.
// It reports whether a snapshot went out. A surface that cannot be built yet
// (too few samples, collinear) is skipped until the next mutation.
func (b *SurfaceBroadcaster) Tick(ctx context.Context) (bool, error) {
	v := b.query.Version()
	if b.started && v == b.last {
		return false, nil
	}

	snap, err := b.query.Grid(ctx, "broadcast", b.steps, b.steps)
	if err != nil {
		if errors.Is(err, surface.ErrDegenerateDomain) {
			b.last, b.started = v, true
			return false, nil
		}
		return false, err
	}

	if b.publisher != nil {
		perr := b.publisher.PublishGrid(ctx, snap)
		if b.metrics != nil {
			b.metrics.Published("kafka", perr)
		}
		if perr != nil {
			b.log.Error("publish grid failed", logger.Uint64("version", snap.Version), logger.Error(perr))
		}
	}
	for _, s := range b.sinks {
		s.Broadcast(snap)
	}
	if b.metrics != nil && len(b.sinks) > 0 {
		b.metrics.Published("stream", nil)
	}

	b.last, b.started = snap.Version, true
	b.log.Debug("surface broadcast",
		logger.Uint64("version", snap.Version),
		logger.Int("samples", snap.Samples),
		logger.Int("inside", snap.Inside()),
	)
	return true, nil
}
