package surface

import "math"

const (
	// orientEps separates collinear from turning triples in normalized space.
	orientEps = 1e-12
	// circleEps keeps co-circular quadrilaterals on their existing diagonal.
	circleEps = 1e-12
	// baryEps lets points on a shared edge count as inside both triangles.
	baryEps = 1e-10
)

// Point is a position in the (strike, time) plane.
type Point struct {
	X, Y float64
}

// orient is twice the signed area of abc; positive when counter-clockwise.
func orient(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// incircle is positive when d lies strictly inside the circumcircle of the
// counter-clockwise triangle abc.
func incircle(a, b, c, d Point) float64 {
	adx, ady := a.X-d.X, a.Y-d.Y
	bdx, bdy := b.X-d.X, b.Y-d.Y
	cdx, cdy := c.X-d.X, c.Y-d.Y

	ad := adx*adx + ady*ady
	bd := bdx*bdx + bdy*bdy
	cd := cdx*cdx + cdy*cdy

	return ad*(bdx*cdy-cdx*bdy) +
		bd*(cdx*ady-adx*cdy) +
		cd*(adx*bdy-bdx*ady)
}

// barycentric returns the coordinates of p relative to the triangle abc.
func barycentric(a, b, c, p Point) [3]float64 {
	det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	l0 := ((b.Y-c.Y)*(p.X-c.X) + (c.X-b.X)*(p.Y-c.Y)) / det
	l1 := ((c.Y-a.Y)*(p.X-c.X) + (a.X-c.X)*(p.Y-c.Y)) / det
	return [3]float64{l0, l1, 1 - l0 - l1}
}

func inside(bc [3]float64) bool {
	return bc[0] >= -baryEps && bc[1] >= -baryEps && bc[2] >= -baryEps
}

// normalizer maps the sample bounds affinely onto the unit square.
type normalizer struct {
	x0, y0       float64
	xSpan, ySpan float64
}

func newNormalizer(b Bounds) (normalizer, bool) {
	n := normalizer{
		x0: b.MinStrike, y0: b.MinTime,
		xSpan: b.MaxStrike - b.MinStrike,
		ySpan: b.MaxTime - b.MinTime,
	}
	if n.xSpan <= 0 || n.ySpan <= 0 || math.IsInf(n.xSpan, 0) || math.IsInf(n.ySpan, 0) {
		return normalizer{}, false
	}
	return n, true
}

func (n normalizer) apply(strike, time float64) Point {
	return Point{X: (strike - n.x0) / n.xSpan, Y: (time - n.y0) / n.ySpan}
}
