// Package ring implements the planar assembly primitives the converter
// needs on top of orb geometries: merging way segments into maximal runs,
// closing and validating rings, repairing self-intersections, and
// composing outer rings and holes into normalized multipolygons.
package ring

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const maxRepairDepth = 8

// Valid reports whether r is a usable polygon ring: closed, at least
// four points, nonzero area and free of self-intersections.
func Valid(r orb.Ring) bool {
	if len(r) < 4 || !r.Closed() {
		return false
	}
	if planar.Area(r) == 0 {
		return false
	}
	return !selfIntersects(r)
}

// selfIntersects checks every pair of non-adjacent ring segments for a
// crossing. Quadratic, but rings are short in practice.
func selfIntersects(r orb.Ring) bool {
	n := len(r) - 1 // last point repeats the first
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// skip adjacent segments (they share an endpoint)
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if _, ok := segmentIntersection(r[i], r[i+1], r[j], r[j+1]); ok {
				return true
			}
		}
	}
	return false
}

// Repair splits a self-intersecting ring at its crossing points into
// valid sub-rings (the zero-width-buffer equivalent for bowtie rings).
// Already-valid rings come back unchanged. An empty result means the
// ring could not be repaired.
func Repair(r orb.Ring) []orb.Ring {
	return repair(r, 0)
}

func repair(r orb.Ring, depth int) []orb.Ring {
	if len(r) < 4 || !r.Closed() || planar.Area(r) == 0 {
		return nil
	}
	if depth >= maxRepairDepth {
		return nil
	}

	n := len(r) - 1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			p, ok := segmentIntersection(r[i], r[i+1], r[j], r[j+1])
			if !ok {
				continue
			}

			// split into two rings at the crossing point
			a := make(orb.Ring, 0, i+2+(n-j))
			a = append(a, r[:i+1]...)
			a = append(a, p)
			a = append(a, r[j+1:]...)

			b := make(orb.Ring, 0, j-i+2)
			b = append(b, p)
			b = append(b, r[i+1:j+1]...)
			b = append(b, p)

			var out []orb.Ring
			out = append(out, repair(a, depth+1)...)
			out = append(out, repair(b, depth+1)...)
			return out
		}
	}

	return []orb.Ring{r}
}

// segmentIntersection returns the proper crossing point of segments
// (a1,a2) and (b1,b2). Shared endpoints and collinear overlaps do not
// count as crossings.
func segmentIntersection(a1, a2, b1, b2 orb.Point) (orb.Point, bool) {
	d1x, d1y := a2[0]-a1[0], a2[1]-a1[1]
	d2x, d2y := b2[0]-b1[0], b2[1]-b1[1]

	denom := d1x*d2y - d1y*d2x
	if denom == 0 {
		return orb.Point{}, false // parallel or collinear
	}

	t := ((b1[0]-a1[0])*d2y - (b1[1]-a1[1])*d2x) / denom
	u := ((b1[0]-a1[0])*d1y - (b1[1]-a1[1])*d1x) / denom

	const eps = 1e-12
	if t <= eps || t >= 1-eps || u <= eps || u >= 1-eps {
		return orb.Point{}, false
	}

	return orb.Point{a1[0] + t*d1x, a1[1] + t*d1y}, true
}

// Contains reports whether any point of r lies inside outer
// (even-odd rule). Used to assign holes to their enclosing shell.
func Contains(outer orb.Ring, r orb.Ring) bool {
	for _, p := range r {
		if pointInRing(outer, p) {
			return true
		}
	}
	return false
}

func pointInRing(ring orb.Ring, p orb.Point) bool {
	inside := false
	x, y := p[0], p[1]
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// AddHole inserts an inner ring into the polygon of mp whose shell
// contains it. Rings no shell contains are dropped.
func AddHole(mp orb.MultiPolygon, r orb.Ring) orb.MultiPolygon {
	for i := range mp {
		if len(mp[i]) > 0 && Contains(mp[i][0], r) {
			mp[i] = append(mp[i], r)
			return mp
		}
	}
	return mp
}

// Orient normalizes ring winding in place: exterior rings
// counter-clockwise, holes clockwise.
func Orient(mp orb.MultiPolygon) orb.MultiPolygon {
	for _, poly := range mp {
		for i, r := range poly {
			want := orb.CCW
			if i > 0 {
				want = orb.CW
			}
			if r.Orientation() != want {
				r.Reverse()
			}
		}
	}
	return mp
}

// PolygonsFromLines merges the given line segments into closed rings and
// builds one polygon per ring, repairing self-intersecting rings. Rings
// that stay invalid after repair are dropped. An empty result means no
// usable ring survived.
func PolygonsFromLines(lines []orb.LineString) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for _, r := range CloseRings(Merge(lines)) {
		if Valid(r) {
			mp = append(mp, orb.Polygon{r})
			continue
		}
		for _, fixed := range Repair(r) {
			if Valid(fixed) {
				mp = append(mp, orb.Polygon{fixed})
			}
		}
	}
	return mp
}

// Union combines two multipolygons without a boolean kernel. A shell of
// b sharing an edge with a shell of a is dissolved into it: the shared
// segments cancel and the remaining boundary re-stitches into one
// combined shell. Shells that only touch at points stay separate
// polygons. A shell strictly inside a shell of a becomes a hole there,
// unless an existing hole contains it, in which case it is an island and
// keeps its own polygon. Disjoint shells are concatenated.
func Union(a, b orb.MultiPolygon) orb.MultiPolygon {
	for _, poly := range b {
		if len(poly) == 0 {
			continue
		}
		shell := poly[0]

		placed := false
		for i := range a {
			if len(a[i]) == 0 {
				continue
			}
			base := a[i][0]

			if sharesEdge(base, shell) {
				a = dissolveInto(a, i, shell)
				placed = true
				break
			}
			if sharesPoint(base, shell) {
				a = append(a, poly)
				placed = true
				break
			}
			if Contains(base, shell) {
				if insideHole(a[i], shell) {
					a = append(a, poly)
				} else {
					a[i] = append(a[i], shell)
				}
				placed = true
				break
			}
		}
		if !placed {
			a = append(a, poly)
		}
	}
	return a
}

// dissolveInto replaces polygon i's shell with the boundary of its union
// with r. The largest resulting ring becomes the shell and keeps the
// polygon's holes; any other rings are appended as new polygons.
func dissolveInto(mp orb.MultiPolygon, i int, r orb.Ring) orb.MultiPolygon {
	rings := dissolve(mp[i][0], r)
	if len(rings) == 0 {
		return mp
	}

	best := 0
	for j := 1; j < len(rings); j++ {
		if math.Abs(planar.Area(rings[j])) > math.Abs(planar.Area(rings[best])) {
			best = j
		}
	}
	mp[i][0] = rings[best]
	for j, rg := range rings {
		if j != best {
			mp = append(mp, orb.Polygon{rg})
		}
	}
	return mp
}

// dissolve merges two rings that share edges into the rings bounding
// their combined area: segments present in both rings cancel, the rest
// re-stitch into closed rings.
func dissolve(a, b orb.Ring) []orb.Ring {
	counts := make(map[edge]int, len(a)+len(b))
	count := func(r orb.Ring) {
		for i := 0; i+1 < len(r); i++ {
			counts[newEdge(r[i], r[i+1])]++
		}
	}
	count(a)
	count(b)

	var lines []orb.LineString
	emit := func(r orb.Ring) {
		for i := 0; i+1 < len(r); i++ {
			if counts[newEdge(r[i], r[i+1])] == 1 {
				lines = append(lines, orb.LineString{r[i], r[i+1]})
			}
		}
	}
	emit(a)
	emit(b)

	return CloseRings(Merge(lines))
}

// edge is a direction-normalized ring segment.
type edge struct {
	a, b orb.Point
}

func newEdge(p, q orb.Point) edge {
	if q[0] < p[0] || (q[0] == p[0] && q[1] < p[1]) {
		p, q = q, p
	}
	return edge{p, q}
}

// sharesEdge reports whether two rings have a segment in common,
// regardless of traversal direction.
func sharesEdge(a, b orb.Ring) bool {
	edges := make(map[edge]bool, len(a))
	for i := 0; i+1 < len(a); i++ {
		edges[newEdge(a[i], a[i+1])] = true
	}
	for i := 0; i+1 < len(b); i++ {
		if edges[newEdge(b[i], b[i+1])] {
			return true
		}
	}
	return false
}

// sharesPoint reports whether two rings have a vertex in common.
func sharesPoint(a, b orb.Ring) bool {
	points := make(map[orb.Point]bool, len(a))
	for _, p := range a {
		points[p] = true
	}
	for _, p := range b {
		if points[p] {
			return true
		}
	}
	return false
}

// insideHole reports whether r lies inside one of poly's interior rings.
func insideHole(poly orb.Polygon, r orb.Ring) bool {
	for _, hole := range poly[1:] {
		if Contains(hole, r) {
			return true
		}
	}
	return false
}

// Difference subtracts b's shells from a by inserting them as holes in
// the shells of a that contain them. Shells no polygon of a contains
// are dropped.
func Difference(a, b orb.MultiPolygon) orb.MultiPolygon {
	for _, poly := range b {
		if len(poly) == 0 {
			continue
		}
		a = AddHole(a, poly[0])
	}
	return a
}
