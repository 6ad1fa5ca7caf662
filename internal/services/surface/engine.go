package surface

import (
	"sync"
	"sync/atomic"
	"time"

	"VolSurf/pkg/logger"

	"github.com/google/uuid"
)

type snapshot struct {
	ip      *Interpolant
	version uint64
}

// Engine owns a sample set and the interpolant built from it. Mutations bump
// a version; the first query that sees a version newer than the published
// snapshot rebuilds under the lock and publishes the result atomically.
// Queries against an up-to-date snapshot take no lock.
type Engine struct {
	cfg EngineConfig
	id  string

	mu      sync.Mutex
	store   *Store
	version atomic.Uint64
	current atomic.Pointer[snapshot]
}

// NewEngine creates an empty engine.
func NewEngine(opts ...EngineOption) *Engine {
	cfg := EngineConfig{
		Policy:            DuplicateReject,
		DefaultResolution: DefaultResolution,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DefaultResolution < 1 {
		cfg.DefaultResolution = DefaultResolution
	}

	return &Engine{
		cfg:   cfg,
		id:    uuid.NewString(),
		store: NewStore(cfg.Policy),
	}
}

// AddSample validates and stores one observation, marking the surface stale.
func (e *Engine) AddSample(strike, timeToExpiry, vol float64) (Sample, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.store.Add(Sample{Strike: strike, TimeToExpiry: timeToExpiry, ImpliedVol: vol})
	if err != nil {
		return Sample{}, err
	}
	e.version.Add(1)
	return s, nil
}

// Point evaluates the surface at (strike, time).
func (e *Engine) Point(strike, timeToExpiry float64) (Result, error) {
	ip, _, err := e.interpolant()
	if err != nil {
		return Result{}, err
	}
	return ip.Evaluate(strike, timeToExpiry), nil
}

// Grid evaluates the surface on a strikeSteps × timeSteps grid over the sample bounds.
func (e *Engine) Grid(strikeSteps, timeSteps int) (*Grid, error) {
	if strikeSteps < 1 || timeSteps < 1 {
		return nil, ErrInvalidResolution
	}
	ip, version, err := e.interpolant()
	if err != nil {
		return nil, err
	}
	g, err := ip.Grid(strikeSteps, timeSteps, e.cfg.GridWorkers)
	if err != nil {
		return nil, err
	}
	g.Version = version
	return g, nil
}

// Surface evaluates a square grid; resolution < 1 uses the configured default.
func (e *Engine) Surface(resolution int) (*Grid, error) {
	if resolution < 1 {
		resolution = e.cfg.DefaultResolution
	}
	return e.Grid(resolution, resolution)
}

// Gradients returns the estimated gradient at every sample.
func (e *Engine) Gradients() ([]NodeGradient, error) {
	ip, _, err := e.interpolant()
	if err != nil {
		return nil, err
	}
	return ip.Gradients(), nil
}

// Rebuild forces the interpolant to be up to date and reports any build error.
func (e *Engine) Rebuild() error {
	_, _, err := e.interpolant()
	return err
}

// Count returns the number of stored samples.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Count()
}

// Bounds returns the extent of the stored samples.
func (e *Engine) Bounds() (Bounds, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Bounds()
}

// Samples returns the stored samples in insertion order.
func (e *Engine) Samples() []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Samples()
}

// ID identifies this engine instance. Versions are only comparable between
// snapshots carrying the same ID.
func (e *Engine) ID() string {
	return e.id
}

// Version returns a counter that changes with every accepted mutation.
func (e *Engine) Version() uint64 {
	return e.version.Load()
}

// DuplicatePolicy returns the configured duplicate policy.
func (e *Engine) DuplicatePolicy() DuplicatePolicy {
	return e.cfg.Policy
}

func (e *Engine) interpolant() (*Interpolant, uint64, error) {
	if s := e.current.Load(); s != nil && s.version == e.version.Load() {
		return s.ip, s.version, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// version only moves under mu
	v := e.version.Load()
	if s := e.current.Load(); s != nil && s.version == v {
		return s.ip, s.version, nil
	}

	start := time.Now()
	ip, err := NewInterpolant(e.store.Samples())
	took := time.Since(start)
	if e.cfg.OnRebuild != nil {
		e.cfg.OnRebuild(e.store.Count(), took, err)
	}
	if err != nil {
		if e.cfg.Logger != nil {
			e.cfg.Logger.Warn("surface rebuild failed",
				logger.Int("samples", e.store.Count()),
				logger.Error(err),
			)
		}
		return nil, 0, err
	}

	e.current.Store(&snapshot{ip: ip, version: v})
	if e.cfg.Logger != nil {
		e.cfg.Logger.Debug("surface rebuilt",
			logger.Int("samples", e.store.Count()),
			logger.Int("nodes", ip.Nodes()),
			logger.Int("triangles", len(ip.tr.Triangles)),
			logger.Int64("version", int64(v)),
			logger.Duration("took_ms", took),
		)
	}
	return ip, v, nil
}
