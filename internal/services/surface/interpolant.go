package surface

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// mergeEps is the distance, per axis in normalized space, under which
// samples share one mesh node.
const mergeEps = 1e-9

// Result is the outcome of evaluating the surface at one position. The zero
// value reports a position outside the convex hull of the samples.
type Result struct {
	Vol      float64
	InDomain bool
}

// Outside reports whether the position fell outside the interpolation domain.
func (r Result) Outside() bool {
	return !r.InDomain
}

type box struct {
	minX, maxX, minY, maxY float64
}

func (b box) contains(p Point) bool {
	return p.X >= b.minX-baryEps && p.X <= b.maxX+baryEps &&
		p.Y >= b.minY-baryEps && p.Y <= b.maxY+baryEps
}

// Interpolant is a C¹ piecewise-cubic surface over the Delaunay mesh of a
// sample set. It is immutable after construction and safe for concurrent reads.
type Interpolant struct {
	samples []Sample
	bounds  Bounds
	norm    normalizer
	tr      *Triangulation
	values  []float64
	grads   []Gradient
	patches []patch
	boxes   []box
	nodes   map[Point]int
	// mesh node of every sample
	nodeOf []int
}

// NewInterpolant triangulates the sample positions, estimates node gradients
// and prepares one Clough–Tocher element per triangle.
//
// Positions are first mapped onto the unit square of the sample bounds, and
// the mesh is Delaunay in that space, not in raw (strike, time) units.
// Samples closer than mergeEps there become one node carrying their mean vol.
func NewInterpolant(samples []Sample) (*Interpolant, error) {
	if len(samples) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 samples, got %d", ErrDegenerateDomain, len(samples))
	}

	bounds, _ := boundsOf(samples)
	norm, ok := newNormalizer(bounds)
	if !ok {
		return nil, fmt.Errorf("%w: samples span a single strike or expiry", ErrDegenerateDomain)
	}

	all := make([]Point, len(samples))
	for i, s := range samples {
		all[i] = norm.apply(s.Strike, s.TimeToExpiry)
	}
	firsts, nodeOf := mergeCoincident(all)

	ip := &Interpolant{
		samples: samples,
		bounds:  bounds,
		norm:    norm,
		values:  make([]float64, len(firsts)),
		nodes:   make(map[Point]int, len(samples)),
		nodeOf:  nodeOf,
	}
	pts := make([]Point, len(firsts))
	for k, i := range firsts {
		pts[k] = all[i]
	}
	members := make([]int, len(firsts))
	for i, s := range samples {
		k := nodeOf[i]
		ip.values[k] += s.ImpliedVol
		members[k]++
		ip.nodes[all[i]] = k
	}
	for k := range ip.values {
		ip.values[k] /= float64(members[k])
	}

	tr, err := Triangulate(pts)
	if err != nil {
		return nil, err
	}
	ip.tr = tr

	ip.grads, err = EstimateGradients(tr, ip.values)
	if err != nil {
		return nil, err
	}

	ip.patches = make([]patch, len(tr.Triangles))
	ip.boxes = make([]box, len(tr.Triangles))
	for t, v := range tr.Triangles {
		p := [3]Point{pts[v[0]], pts[v[1]], pts[v[2]]}
		f := [3]float64{ip.values[v[0]], ip.values[v[1]], ip.values[v[2]]}
		g := [3]Gradient{ip.grads[v[0]], ip.grads[v[1]], ip.grads[v[2]]}

		var centroids [3]*[3]float64
		for k, n := range tr.Neighbors[t] {
			if n < 0 {
				continue
			}
			nv := tr.Triangles[n]
			m := Point{
				X: (pts[nv[0]].X + pts[nv[1]].X + pts[nv[2]].X) / 3,
				Y: (pts[nv[0]].Y + pts[nv[1]].Y + pts[nv[2]].Y) / 3,
			}
			bc := barycentric(p[0], p[1], p[2], m)
			centroids[k] = &bc
		}

		ip.patches[t] = newPatch(p, f, g, centroids)
		ip.boxes[t] = box{
			minX: min(p[0].X, p[1].X, p[2].X), maxX: max(p[0].X, p[1].X, p[2].X),
			minY: min(p[0].Y, p[1].Y, p[2].Y), maxY: max(p[0].Y, p[1].Y, p[2].Y),
		}
	}

	return ip, nil
}

// Evaluate returns the surface value at (strike, time), or an outside-domain
// Result when the position is not covered by the mesh.
func (ip *Interpolant) Evaluate(strike, time float64) Result {
	if math.IsNaN(strike) || math.IsNaN(time) || math.IsInf(strike, 0) || math.IsInf(time, 0) {
		return Result{}
	}

	q := ip.norm.apply(strike, time)
	if i, ok := ip.nodes[q]; ok {
		return Result{Vol: ip.values[i], InDomain: true}
	}

	t, bc, ok := ip.locate(q)
	if !ok {
		return Result{}
	}
	return Result{Vol: ip.patches[t].eval(bc), InDomain: true}
}

// locate finds the first triangle, in mesh order, whose closure contains q.
func (ip *Interpolant) locate(q Point) (int, [3]float64, bool) {
	pts := ip.tr.Points
	for t, v := range ip.tr.Triangles {
		if !ip.boxes[t].contains(q) {
			continue
		}
		bc := barycentric(pts[v[0]], pts[v[1]], pts[v[2]], q)
		if inside(bc) {
			return t, bc, true
		}
	}
	return -1, [3]float64{}, false
}

// Bounds returns the extent of the samples the interpolant was built from.
func (ip *Interpolant) Bounds() Bounds {
	return ip.bounds
}

// Triangulation returns the mesh in normalized coordinates.
func (ip *Interpolant) Triangulation() *Triangulation {
	return ip.tr
}

// NodeGradient pairs a sample with its estimated gradient in strike and time units.
type NodeGradient struct {
	Sample
	Gradient
}

// Gradients returns the node gradients rescaled to the original units.
func (ip *Interpolant) Gradients() []NodeGradient {
	out := make([]NodeGradient, len(ip.samples))
	for i, s := range ip.samples {
		out[i] = NodeGradient{
			Sample: s,
			Gradient: Gradient{
				DStrike: ip.grads[ip.nodeOf[i]].DStrike / ip.norm.xSpan,
				DTime:   ip.grads[ip.nodeOf[i]].DTime / ip.norm.ySpan,
			},
		}
	}
	return out
}

// Nodes returns the number of mesh nodes, which is below the sample count
// when coincident samples were merged.
func (ip *Interpolant) Nodes() int {
	return len(ip.tr.Points)
}

// mergeCoincident groups points within mergeEps of each other on both axes.
// firsts holds the lowest point index of each group, in ascending order, and
// nodeOf maps every point to its group.
func mergeCoincident(pts []Point) (firsts, nodeOf []int) {
	parent := make([]int, len(pts))
	order := make([]int, len(pts))
	for i := range pts {
		parent[i] = i
		order[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(pts[a].X, pts[b].X) })
	for a, i := range order {
		for _, j := range order[a+1:] {
			if pts[j].X-pts[i].X > mergeEps {
				break
			}
			if math.Abs(pts[j].Y-pts[i].Y) > mergeEps {
				continue
			}
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[max(ri, rj)] = min(ri, rj)
			}
		}
	}

	nodeOf = make([]int, len(pts))
	node := make(map[int]int)
	for i := range pts {
		r := find(i)
		k, ok := node[r]
		if !ok {
			k = len(firsts)
			node[r] = k
			firsts = append(firsts, i)
		}
		nodeOf[i] = k
	}
	return firsts, nodeOf
}
