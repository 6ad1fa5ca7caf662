package surface

import (
	"time"

	"VolSurf/pkg/logger"
)

// DefaultResolution is the per-axis grid size used by Surface when none is given.
const DefaultResolution = 50

// EngineOption configures Engine.
type EngineOption func(*EngineConfig)

// RebuildHook observes every rebuild attempt.
type RebuildHook func(samples int, took time.Duration, err error)

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Policy            DuplicatePolicy
	GridWorkers       int
	DefaultResolution int
	Logger            *logger.Logger
	OnRebuild         RebuildHook
}

// WithDuplicatePolicy sets how exact (strike, time) collisions are handled.
func WithDuplicatePolicy(p DuplicatePolicy) EngineOption {
	return func(c *EngineConfig) {
		c.Policy = p
	}
}

// WithGridWorkers sets the number of goroutines a grid evaluation fans out to.
func WithGridWorkers(n int) EngineOption {
	return func(c *EngineConfig) {
		c.GridWorkers = n
	}
}

// WithDefaultResolution sets the grid size used by Surface(0).
func WithDefaultResolution(n int) EngineOption {
	return func(c *EngineConfig) {
		c.DefaultResolution = n
	}
}

// WithLogger sets the logger used for rebuild diagnostics.
func WithLogger(l *logger.Logger) EngineOption {
	return func(c *EngineConfig) {
		c.Logger = l
	}
}

// WithRebuildHook registers a callback run after each rebuild attempt.
func WithRebuildHook(h RebuildHook) EngineOption {
	return func(c *EngineConfig) {
		c.OnRebuild = h
	}
}
