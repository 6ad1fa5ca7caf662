package surface

import (
	"fmt"
	"math"
	"slices"
)

// Triangulation is a Delaunay mesh over a point set. Triangles hold point
// indices in counter-clockwise order; Neighbors[t][k] is the triangle across
// the edge opposite vertex k, or -1 on the hull.
type Triangulation struct {
	Points    []Point
	Triangles [][3]int
	Neighbors [][3]int
}

type edge struct {
	a, b int
}

type triangle struct {
	v     [3]int
	alive bool
}

// builder carries the mutable state of an incremental construction.
// Directed edges map to the triangle that holds them counter-clockwise.
type builder struct {
	pts   []Point
	tris  []triangle
	edges map[edge]int
}

// Triangulate computes a Delaunay triangulation of points by incremental
// insertion with Lawson flips. Points are inserted in slice order and
// co-circular configurations never flip, so equal input gives equal output.
// The empty-circumcircle property holds in the coordinates given; the
// interpolant passes unit-square coordinates, not raw strike and time.
// Points closer than orientEps to an existing vertex are an error.
func Triangulate(points []Point) (*Triangulation, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 points, got %d", ErrDegenerateDomain, len(points))
	}

	seed := -1
	for k := 2; k < len(points); k++ {
		if math.Abs(orient(points[0], points[1], points[k])) > orientEps {
			seed = k
			break
		}
	}
	if seed < 0 {
		return nil, fmt.Errorf("%w: all %d points are collinear", ErrDegenerateDomain, len(points))
	}

	b := &builder{
		pts:   points,
		edges: make(map[edge]int, 6*len(points)),
	}
	if orient(points[0], points[1], points[seed]) > 0 {
		b.add(0, 1, seed)
	} else {
		b.add(1, 0, seed)
	}

	for i := 2; i < len(points); i++ {
		if i == seed {
			continue
		}
		if err := b.insert(i); err != nil {
			return nil, err
		}
	}
	b.sweep()

	return b.finish(), nil
}

func (b *builder) add(a, c, d int) int {
	t := len(b.tris)
	b.tris = append(b.tris, triangle{v: [3]int{a, c, d}, alive: true})
	b.edges[edge{a, c}] = t
	b.edges[edge{c, d}] = t
	b.edges[edge{d, a}] = t
	return t
}

func (b *builder) remove(t int) {
	v := b.tris[t].v
	b.tris[t].alive = false
	for k := 0; k < 3; k++ {
		e := edge{v[k], v[(k+1)%3]}
		if b.edges[e] == t {
			delete(b.edges, e)
		}
	}
}

// third returns the vertex of triangle t that is not on edge e.
func (b *builder) third(t int, e edge) int {
	for _, v := range b.tris[t].v {
		if v != e.a && v != e.b {
			return v
		}
	}
	return -1
}

func (b *builder) insert(i int) error {
	p := b.pts[i]

	for t := range b.tris {
		if !b.tris[t].alive {
			continue
		}
		v := b.tris[t].v
		var o [3]float64
		onEdge, zeros := -1, 0
		outside := false
		for k := 0; k < 3; k++ {
			o[k] = orient(b.pts[v[k]], b.pts[v[(k+1)%3]], p)
			if o[k] < -orientEps {
				outside = true
				break
			}
			if o[k] <= orientEps {
				onEdge = k
				zeros++
			}
		}
		if outside {
			continue
		}
		if zeros > 1 {
			return fmt.Errorf("%w: point %d coincides with a vertex", ErrDegenerateDomain, i)
		}
		if onEdge >= 0 {
			b.splitEdge(t, onEdge, i)
		} else {
			b.splitTriangle(t, i)
		}
		return nil
	}

	b.extendHull(i)
	return nil
}

func (b *builder) splitTriangle(t, p int) {
	v := b.tris[t].v
	b.remove(t)
	b.add(v[0], v[1], p)
	b.add(v[1], v[2], p)
	b.add(v[2], v[0], p)
	b.legalize(edge{v[0], v[1]}, edge{v[1], v[2]}, edge{v[2], v[0]})
}

// splitEdge inserts p on edge k of triangle t, splitting the triangle across
// the edge too when one exists.
func (b *builder) splitEdge(t, k, p int) {
	v := b.tris[t].v
	a, c, d := v[k], v[(k+1)%3], v[(k+2)%3]

	u, shared := b.edges[edge{c, a}]
	b.remove(t)
	b.add(c, d, p)
	b.add(d, a, p)
	pending := []edge{{c, d}, {d, a}}

	if shared {
		e := b.third(u, edge{c, a})
		b.remove(u)
		b.add(a, e, p)
		b.add(e, c, p)
		pending = append(pending, edge{a, e}, edge{e, c})
	}
	b.legalize(pending...)
}

// extendHull connects a point outside the mesh to every hull edge it sees.
func (b *builder) extendHull(p int) {
	var visible []edge
	for t := range b.tris {
		if !b.tris[t].alive {
			continue
		}
		v := b.tris[t].v
		for k := 0; k < 3; k++ {
			e := edge{v[k], v[(k+1)%3]}
			if _, ok := b.edges[edge{e.b, e.a}]; ok {
				continue
			}
			if orient(b.pts[e.a], b.pts[e.b], b.pts[p]) < -orientEps {
				visible = append(visible, e)
			}
		}
	}

	pending := make([]edge, 0, len(visible))
	for _, e := range visible {
		b.add(e.b, e.a, p)
		pending = append(pending, edge{e.b, e.a})
	}
	b.legalize(pending...)
}

// legalize flips every illegal edge reachable from the given ones.
func (b *builder) legalize(stack ...edge) {
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if na, nb, ok := b.flipIfIllegal(e); ok {
			stack = append(stack, na, nb)
		}
	}
}

// flipIfIllegal flips the diagonal e when the opposite vertex lies inside the
// circumcircle of the triangle holding e, returning the two outer edges of the
// far side to re-check.
func (b *builder) flipIfIllegal(e edge) (edge, edge, bool) {
	t, ok := b.edges[e]
	if !ok {
		return edge{}, edge{}, false
	}
	u, ok := b.edges[edge{e.b, e.a}]
	if !ok {
		return edge{}, edge{}, false
	}
	p := b.third(t, e)
	d := b.third(u, edge{e.b, e.a})

	if incircle(b.pts[e.a], b.pts[e.b], b.pts[p], b.pts[d]) <= circleEps {
		return edge{}, edge{}, false
	}

	b.remove(t)
	b.remove(u)
	b.add(e.a, d, p)
	b.add(d, e.b, p)
	return edge{e.a, d}, edge{d, e.b}, true
}

// sweep repeats global flip passes until every interior edge is legal.
func (b *builder) sweep() {
	for pass := 0; pass < len(b.pts)*len(b.pts)+1; pass++ {
		flipped := false
		for t := 0; t < len(b.tris); t++ {
			if !b.tris[t].alive {
				continue
			}
			v := b.tris[t].v
			for k := 0; k < 3; k++ {
				e := edge{v[k], v[(k+1)%3]}
				if _, _, ok := b.flipIfIllegal(e); ok {
					flipped = true
					break
				}
			}
		}
		if !flipped {
			return
		}
	}
}

func (b *builder) finish() *Triangulation {
	ids := make(map[int]int, len(b.tris))
	tr := &Triangulation{Points: b.pts}
	for t := range b.tris {
		if !b.tris[t].alive {
			continue
		}
		ids[t] = len(tr.Triangles)
		tr.Triangles = append(tr.Triangles, b.tris[t].v)
	}

	tr.Neighbors = make([][3]int, len(tr.Triangles))
	for i, v := range tr.Triangles {
		for k := 0; k < 3; k++ {
			// edge opposite vertex k runs v[k+1] -> v[k+2]
			a, c := v[(k+1)%3], v[(k+2)%3]
			if u, ok := b.edges[edge{c, a}]; ok {
				tr.Neighbors[i][k] = ids[u]
			} else {
				tr.Neighbors[i][k] = -1
			}
		}
	}
	return tr
}

// Hull returns the boundary edges of the mesh, each oriented with the
// interior on its left.
func (tr *Triangulation) Hull() [][2]int {
	var hull [][2]int
	for i, v := range tr.Triangles {
		for k := 0; k < 3; k++ {
			if tr.Neighbors[i][k] < 0 {
				hull = append(hull, [2]int{v[(k+1)%3], v[(k+2)%3]})
			}
		}
	}
	return hull
}

// Adjacency returns the sorted 1-ring of every point.
func (tr *Triangulation) Adjacency() [][]int {
	seen := make([]map[int]struct{}, len(tr.Points))
	for i := range seen {
		seen[i] = make(map[int]struct{})
	}
	for _, v := range tr.Triangles {
		for k := 0; k < 3; k++ {
			a, c := v[k], v[(k+1)%3]
			seen[a][c] = struct{}{}
			seen[c][a] = struct{}{}
		}
	}

	adj := make([][]int, len(tr.Points))
	for i, s := range seen {
		for j := range s {
			adj[i] = append(adj[i], j)
		}
		slices.Sort(adj[i])
	}
	return adj
}
