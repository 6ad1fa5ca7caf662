package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateGradientsLinear(t *testing.T) {
	pts := randomPoints(5, 80)
	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = 1 + 2*p.X - 3*p.Y
	}

	tr, err := Triangulate(pts)
	require.NoError(t, err)
	grads, err := EstimateGradients(tr, values)
	require.NoError(t, err)

	for i, g := range grads {
		assert.InDelta(t, 2.0, g.DStrike, 1e-9, "node %d", i)
		assert.InDelta(t, -3.0, g.DTime, 1e-9, "node %d", i)
	}
}

func TestEstimateGradientsIsolatedNode(t *testing.T) {
	tr := &Triangulation{
		Points:    []Point{{0, 0}, {1, 0}, {0, 1}, {5, 5}},
		Triangles: [][3]int{{0, 1, 2}},
		Neighbors: [][3]int{{-1, -1, -1}},
	}
	_, err := EstimateGradients(tr, []float64{0, 1, 2, 3})
	assert.ErrorIs(t, err, ErrInsufficientNeighbors)
}

func TestEstimateGradientsValueCount(t *testing.T) {
	tr, err := Triangulate(latticePoints(3))
	require.NoError(t, err)

	_, err = EstimateGradients(tr, []float64{1, 2})
	assert.Error(t, err)
}
