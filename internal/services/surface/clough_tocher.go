package surface

// patch holds the Bézier control net of a Clough–Tocher element. The triangle
// is split at its centroid into three cubic sub-triangles; cIJKL is the
// control point with multi-index (i, j, k, l) over (v0, v1, v2, centroid).
type patch struct {
	c3000, c0300, c0030, c0003 float64
	c2100, c2010, c1200        float64
	c0210, c1020, c0120        float64
	c2001, c0201, c0021        float64
	c1101, c1011, c0111        float64
	c1002, c0102, c0012        float64
}

// newPatch builds the control net from vertex values and gradients. centroids
// holds, for each edge opposite vertex k, the neighbouring triangle's centroid
// in this triangle's barycentric coordinates, or nil on the hull. The
// cross-edge derivative is made linear along each edge using that direction,
// so the two elements sharing an edge join with continuous gradient.
func newPatch(p [3]Point, f [3]float64, g [3]Gradient, centroids [3]*[3]float64) patch {
	e12 := Point{p[1].X - p[0].X, p[1].Y - p[0].Y}
	e23 := Point{p[2].X - p[1].X, p[2].Y - p[1].Y}
	e31 := Point{p[0].X - p[2].X, p[0].Y - p[2].Y}

	dot := func(g Gradient, e Point) float64 { return g.DStrike*e.X + g.DTime*e.Y }

	df12 := dot(g[0], e12)
	df21 := -dot(g[1], e12)
	df23 := dot(g[1], e23)
	df32 := -dot(g[2], e23)
	df31 := dot(g[2], e31)
	df13 := -dot(g[0], e31)

	var c patch
	c.c3000 = f[0]
	c.c2100 = (df12 + 3*c.c3000) / 3
	c.c2010 = (df13 + 3*c.c3000) / 3
	c.c0300 = f[1]
	c.c1200 = (df21 + 3*c.c0300) / 3
	c.c0210 = (df23 + 3*c.c0300) / 3
	c.c0030 = f[2]
	c.c1020 = (df31 + 3*c.c0030) / 3
	c.c0120 = (df32 + 3*c.c0030) / 3

	c.c2001 = (c.c2100 + c.c2010 + c.c3000) / 3
	c.c0201 = (c.c1200 + c.c0300 + c.c0210) / 3
	c.c0021 = (c.c1020 + c.c0120 + c.c0030) / 3

	var gk [3]float64
	for k := 0; k < 3; k++ {
		m := centroids[k]
		if m == nil {
			gk[k] = -0.5
			continue
		}
		switch k {
		case 0:
			gk[k] = (2*m[2] + m[1] - 1) / (2 - 3*m[2] - 3*m[1])
		case 1:
			gk[k] = (2*m[0] + m[2] - 1) / (2 - 3*m[0] - 3*m[2])
		case 2:
			gk[k] = (2*m[1] + m[0] - 1) / (2 - 3*m[1] - 3*m[0])
		}
	}

	c.c0111 = (gk[0]*(-c.c0300+3*c.c0210-3*c.c0120+c.c0030) +
		(-c.c0300 + 2*c.c0210 - c.c0120 + c.c0021 + c.c0201)) / 2
	c.c1011 = (gk[1]*(-c.c0030+3*c.c1020-3*c.c2010+c.c3000) +
		(-c.c0030 + 2*c.c1020 - c.c2010 + c.c2001 + c.c0021)) / 2
	c.c1101 = (gk[2]*(-c.c3000+3*c.c2100-3*c.c1200+c.c0300) +
		(-c.c3000 + 2*c.c2100 - c.c1200 + c.c2001 + c.c0201)) / 2

	c.c1002 = (c.c1101 + c.c1011 + c.c2001) / 3
	c.c0102 = (c.c1101 + c.c0111 + c.c0201) / 3
	c.c0012 = (c.c1011 + c.c0111 + c.c0021) / 3
	c.c0003 = (c.c1002 + c.c0102 + c.c0012) / 3

	return c
}

// eval evaluates the element at barycentric coordinates b. Subtracting the
// smallest coordinate selects the sub-triangle: its vertex coordinate drops
// to zero and the centroid weight becomes three times the removed amount.
func (c *patch) eval(b [3]float64) float64 {
	m := min(b[0], b[1], b[2])
	b1, b2, b3, b4 := b[0]-m, b[1]-m, b[2]-m, 3*m

	return b1*b1*b1*c.c3000 +
		3*b1*b1*b2*c.c2100 +
		3*b1*b1*b3*c.c2010 +
		3*b1*b1*b4*c.c2001 +
		3*b1*b2*b2*c.c1200 +
		6*b1*b2*b4*c.c1101 +
		3*b1*b3*b3*c.c1020 +
		6*b1*b3*b4*c.c1011 +
		3*b1*b4*b4*c.c1002 +
		b2*b2*b2*c.c0300 +
		3*b2*b2*b3*c.c0210 +
		3*b2*b2*b4*c.c0201 +
		3*b2*b3*b3*c.c0120 +
		6*b2*b3*b4*c.c0111 +
		3*b2*b4*b4*c.c0102 +
		b3*b3*b3*c.c0030 +
		3*b3*b3*b4*c.c0021 +
		3*b3*b4*b4*c.c0012 +
		b4*b4*b4*c.c0003
}
