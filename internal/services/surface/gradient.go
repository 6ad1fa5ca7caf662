package surface

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Gradient holds the partial derivatives of vol at a node.
type Gradient struct {
	DStrike float64 `json:"d_strike"`
	DTime   float64 `json:"d_time"`
}

// EstimateGradients fits, for every node, the plane through the node's value
// that best matches its 1-ring neighbours in the inverse-distance weighted
// least-squares sense. Linear data is reproduced exactly.
func EstimateGradients(tr *Triangulation, values []float64) ([]Gradient, error) {
	if len(values) != len(tr.Points) {
		return nil, fmt.Errorf("surface: %d values for %d points", len(values), len(tr.Points))
	}

	adj := tr.Adjacency()
	grads := make([]Gradient, len(tr.Points))
	for i, ring := range adj {
		g, err := fitNode(tr.Points, values, i, ring)
		if err != nil {
			return nil, err
		}
		grads[i] = g
	}
	return grads, nil
}

func fitNode(pts []Point, values []float64, i int, ring []int) (Gradient, error) {
	if len(ring) < 2 {
		return Gradient{}, fmt.Errorf("%w: node %d has degree %d", ErrInsufficientNeighbors, i, len(ring))
	}

	a := mat.NewDense(len(ring), 2, nil)
	rhs := mat.NewVecDense(len(ring), nil)
	for r, j := range ring {
		dx := pts[j].X - pts[i].X
		dy := pts[j].Y - pts[i].Y
		w := 1 / math.Hypot(dx, dy)
		a.Set(r, 0, w*dx)
		a.Set(r, 1, w*dy)
		rhs.SetVec(r, w*(values[j]-values[i]))
	}

	var g mat.VecDense
	if err := g.SolveVec(a, rhs); err != nil {
		return Gradient{}, fmt.Errorf("%w: node %d: %v", ErrInsufficientNeighbors, i, err)
	}
	return Gradient{DStrike: g.AtVec(0), DTime: g.AtVec(1)}, nil
}
