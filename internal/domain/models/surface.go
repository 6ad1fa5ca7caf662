package models

import (
	"time"

	"VolSurf/internal/services/surface"
)

// PointResponse is a single evaluation. Vol is null when Outside is set.
type PointResponse struct {
	Strike  float64  `json:"strike"`
	Time    float64  `json:"time"`
	Vol     *float64 `json:"vol"`
	Outside bool     `json:"outside"`
}

func NewPointResponse(strike, t float64, r surface.Result) PointResponse {
	return PointResponse{
		Strike:  strike,
		Time:    t,
		Vol:     volOrNil(r),
		Outside: r.Outside(),
	}
}

// GridSnapshot is the wire form of a grid, shared by the HTTP API, the grid
// cache, the grids topic and the stream. Vols[i][j] is the vol at
// (Strikes[i], Times[j]) or null outside the sample hull.
type GridSnapshot struct {
	Version     uint64       `json:"version"`
	Samples     int          `json:"samples"`
	Strikes     []float64    `json:"strikes"`
	Times       []float64    `json:"times"`
	Vols        [][]*float64 `json:"vols"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// NewGridSnapshot converts an evaluated grid into its wire form.
func NewGridSnapshot(g *surface.Grid, samples int, at time.Time) *GridSnapshot {
	vols := make([][]*float64, len(g.Strikes))
	for i := range g.Strikes {
		row := make([]*float64, len(g.Times))
		for j := range g.Times {
			row[j] = volOrNil(g.At(i, j).Result)
		}
		vols[i] = row
	}
	return &GridSnapshot{
		Version:     g.Version,
		Samples:     samples,
		Strikes:     g.Strikes,
		Times:       g.Times,
		Vols:        vols,
		GeneratedAt: at.UTC(),
	}
}

// Inside counts the grid nodes that fell inside the sample hull.
func (s *GridSnapshot) Inside() int {
	n := 0
	for _, row := range s.Vols {
		for _, v := range row {
			if v != nil {
				n++
			}
		}
	}
	return n
}

type BoundsResponse struct {
	Bounds  *surface.Bounds `json:"bounds"`
	Samples int             `json:"samples"`
	Version uint64          `json:"version"`
	Policy  string          `json:"duplicate_policy"`
}

// IngestResult reports the stored form of each accepted sample. Under the
// averaging policy Stored may differ from what was sent.
type IngestResult struct {
	Accepted int              `json:"accepted"`
	Stored   []surface.Sample `json:"stored"`
	Rejected []RejectedSample `json:"rejected,omitempty"`
	Version  uint64           `json:"version"`
}

// RejectedSample points at a batch entry the surface refused.
type RejectedSample struct {
	Index   int    `json:"index"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func volOrNil(r surface.Result) *float64 {
	if r.Outside() {
		return nil
	}
	v := r.Vol
	return &v
}
