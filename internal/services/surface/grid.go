package surface

import (
	"fmt"
	"runtime"
	"sync"
)

// GridPoint is one evaluated node of a regular grid.
type GridPoint struct {
	Strike float64
	Time   float64
	Result
}

// Grid is a regular strike × time evaluation of the surface. Points are in
// strike-major order: Points[i*len(Times)+j] is (Strikes[i], Times[j]).
type Grid struct {
	Version uint64
	Strikes []float64
	Times   []float64
	Points  []GridPoint
}

// At returns the point at strike index i and time index j.
func (g *Grid) At(i, j int) GridPoint {
	return g.Points[i*len(g.Times)+j]
}

// Linspace returns n evenly spaced values from start to stop inclusive. The
// last value is stop exactly; n == 1 yields start.
func Linspace(start, stop float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Grid evaluates the interpolant on strikeSteps × timeSteps points spanning
// the sample bounds. Strike rows are spread across workers goroutines, each
// writing a disjoint range of the preallocated result.
func (ip *Interpolant) Grid(strikeSteps, timeSteps, workers int) (*Grid, error) {
	if strikeSteps < 1 || timeSteps < 1 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidResolution, strikeSteps, timeSteps)
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, strikeSteps)

	g := &Grid{
		Strikes: Linspace(ip.bounds.MinStrike, ip.bounds.MaxStrike, strikeSteps),
		Times:   Linspace(ip.bounds.MinTime, ip.bounds.MaxTime, timeSteps),
		Points:  make([]GridPoint, strikeSteps*timeSteps),
	}

	rows := (strikeSteps + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo, hi := w*rows, min((w+1)*rows, strikeSteps)
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				s := g.Strikes[i]
				for j, t := range g.Times {
					g.Points[i*timeSteps+j] = GridPoint{Strike: s, Time: t, Result: ip.Evaluate(s, t)}
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	return g, nil
}
