package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"VolSurf/internal/domain/models"
	domrepo "VolSurf/internal/domain/repository"
	domsvc "VolSurf/internal/domain/service"
	"VolSurf/internal/services/surface"
	"VolSurf/pkg/cache"
	"VolSurf/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// ErrTooManySteps is returned for a grid request above the configured limit.
var ErrTooManySteps = errors.New("surface query: grid too large")

const gridKeyPrefix = "grid"

// SurfaceQueryConfig holds read-side limits.
type SurfaceQueryConfig struct {
	DefaultSteps int
	MaxSteps     int
	CacheTTL     time.Duration
}

// SurfaceQuery serves reads. Grids are cached under the engine ID and the
// version they were computed at. A mutation makes every cached grid
// unreachable without explicit invalidation, and engines sharing a cache
// never read each other's grids. Concurrent misses for one key share a
// single evaluation.
type SurfaceQuery struct {
	surface domsvc.Surface
	cache   cache.Service
	metrics domrepo.Metrics
	log     *logger.Logger
	cfg     SurfaceQueryConfig
	group   singleflight.Group
	now     func() time.Time
}

// NewSurfaceQuery creates the read service. c may be nil to disable caching.
func NewSurfaceQuery(s domsvc.Surface, c cache.Service, metrics domrepo.Metrics, log *logger.Logger, cfg SurfaceQueryConfig) *SurfaceQuery {
	if cfg.DefaultSteps < 1 {
		cfg.DefaultSteps = surface.DefaultResolution
	}
	if cfg.MaxSteps < cfg.DefaultSteps {
		cfg.MaxSteps = cfg.DefaultSteps
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SurfaceQuery{
		surface: s,
		cache:   c,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Point evaluates one position. Outside the sample hull the response has a
// null vol and Outside set; that is not an error.
func (q *SurfaceQuery) Point(_ context.Context, strike, t float64) (models.PointResponse, error) {
	r, err := q.surface.Point(strike, t)
	if err != nil {
		return models.PointResponse{}, err
	}
	return models.NewPointResponse(strike, t, r), nil
}

// Grid returns the grid for the requested dimensions; zero selects the
// default. source labels the latency metric.
func (q *SurfaceQuery) Grid(ctx context.Context, source string, strikeSteps, timeSteps int) (*models.GridSnapshot, error) {
	if strikeSteps == 0 {
		strikeSteps = q.cfg.DefaultSteps
	}
	if timeSteps == 0 {
		timeSteps = q.cfg.DefaultSteps
	}
	if strikeSteps < 1 || timeSteps < 1 {
		return nil, surface.ErrInvalidResolution
	}
	if strikeSteps > q.cfg.MaxSteps || timeSteps > q.cfg.MaxSteps {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d per axis", ErrTooManySteps, strikeSteps, timeSteps, q.cfg.MaxSteps)
	}

	key := q.gridKey(q.surface.Version(), strikeSteps, timeSteps)
	if snap, ok := q.cached(ctx, key); ok {
		return snap, nil
	}

	v, err, _ := q.group.Do(key, func() (interface{}, error) {
		start := time.Now()
		g, err := q.surface.Grid(strikeSteps, timeSteps)
		if err != nil {
			return nil, err
		}
		if q.metrics != nil {
			q.metrics.GridEvaluated(source, time.Since(start))
		}
		snap := models.NewGridSnapshot(g, q.surface.Count(), q.now())
		q.store(ctx, q.gridKey(g.Version, strikeSteps, timeSteps), snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.GridSnapshot), nil
}

func (q *SurfaceQuery) cached(ctx context.Context, key string) (*models.GridSnapshot, bool) {
	if q.cache == nil {
		return nil, false
	}
	var snap models.GridSnapshot
	err := q.cache.Get(ctx, key, &snap)
	if q.metrics != nil {
		q.metrics.CacheLookup(err == nil)
	}
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			q.log.Warn("grid cache read failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	return &snap, true
}

func (q *SurfaceQuery) store(ctx context.Context, key string, snap *models.GridSnapshot) {
	if q.cache == nil {
		return
	}
	if err := q.cache.Set(ctx, key, snap, q.cfg.CacheTTL); err != nil {
		q.log.Warn("grid cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func (q *SurfaceQuery) gridKey(version uint64, strikeSteps, timeSteps int) string {
	return cache.GenerateKeyWithParams(gridKeyPrefix, q.surface.ID(), version, strikeSteps, timeSteps)
}

// Purge drops every grid this engine cached. Entries are unreachable once
// the engine is gone, so shutdown clears them instead of waiting for the TTL.
func (q *SurfaceQuery) Purge(ctx context.Context) error {
	if q.cache == nil {
		return nil
	}
	prefix := cache.GenerateKeyWithParams(gridKeyPrefix, q.surface.ID()) + ":"
	if err := q.cache.DeleteByPattern(ctx, cache.BuildPattern(prefix)); err != nil {
		return fmt.Errorf("purge grid cache: %w", err)
	}
	return nil
}

// Samples returns the stored samples in insertion order.
func (q *SurfaceQuery) Samples() []surface.Sample {
	return q.surface.Samples()
}

// Bounds reports the sample extent; Bounds is nil while the store is empty.
func (q *SurfaceQuery) Bounds() models.BoundsResponse {
	resp := models.BoundsResponse{
		Samples: q.surface.Count(),
		Version: q.surface.Version(),
		Policy:  q.surface.DuplicatePolicy().String(),
	}
	if b, ok := q.surface.Bounds(); ok {
		resp.Bounds = &b
	}
	return resp
}

// Gradients returns the estimated gradient at every node.
func (q *SurfaceQuery) Gradients() ([]surface.NodeGradient, error) {
	return q.surface.Gradients()
}

// Version returns the current engine version.
func (q *SurfaceQuery) Version() uint64 {
	return q.surface.Version()
}
