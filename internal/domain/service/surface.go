package service

import "VolSurf/internal/services/surface"

// Surface is the volatility surface as the usecases see it. *surface.Engine
// implements it.
type Surface interface {
	AddSample(strike, timeToExpiry, vol float64) (surface.Sample, error)
	Point(strike, timeToExpiry float64) (surface.Result, error)
	Grid(strikeSteps, timeSteps int) (*surface.Grid, error)
	Gradients() ([]surface.NodeGradient, error)
	Rebuild() error
	Count() int
	Bounds() (surface.Bounds, bool)
	Samples() []surface.Sample
	ID() string
	Version() uint64
	DuplicatePolicy() surface.DuplicatePolicy
}

var _ Surface = (*surface.Engine)(nil)
