package convert

import (
	"github.com/paulmach/orb"

	"github.com/aspectumapp/osm2geojson/internal/element"
	"github.com/aspectumapp/osm2geojson/internal/polyrules"
	"github.com/aspectumapp/osm2geojson/internal/ring"
)

// nodeShape converts a node to a point.
func (r *run) nodeShape(el *element.Element) (*Shape, error) {
	return newShape(el, orb.Point{el.Lon, el.Lat}), nil
}

// wayShape converts a way to a point (center summary), line or polygon.
//
// consumer is the id to record as the user of elements this way pulls in
// when the way itself is an id-less member stub. visited guards the ref
// indirection chain against cycles; nil starts a fresh chain.
func (r *run) wayShape(el *element.Element, consumer int64, visited map[string]bool) (*Shape, error) {
	if el.Center != nil {
		return newShape(el, orb.Point{el.Center.Lon, el.Center.Lat}), nil
	}

	// the id this way passes down as "used by"
	by := el.ID
	if by == 0 {
		by = consumer
	}

	var coords orb.LineString

	switch {
	case len(el.Geometry) > 0:
		coords = make(orb.LineString, 0, len(el.Geometry))
		for _, p := range el.Geometry {
			coords = append(coords, orb.Point{p.Lon, p.Lat})
		}

	case len(el.Nodes) > 0:
		coords = make(orb.LineString, 0, len(el.Nodes))
		for _, id := range el.Nodes {
			node := r.index.Node(id)
			if node == nil {
				return nil, r.warn(ErrUnresolvedReference, el, "node not found in index")
			}
			if by != 0 {
				r.markUsed(node.Key(), by)
			}
			coords = append(coords, orb.Point{node.Lon, node.Lat})
		}

	case el.Ref != 0:
		referent := r.index.Resolve(el)
		if referent == nil {
			return nil, r.warn(ErrUnresolvedReference, el, "way ref not found in index")
		}
		if visited == nil {
			visited = map[string]bool{el.Key(): true}
		}
		if visited[referent.Key()] {
			return nil, r.warn(ErrUnresolvedReference, el, "way ref chain loops")
		}
		visited[referent.Key()] = true

		if by != 0 {
			r.markUsed(referent.Key(), by)
		}

		refShape, err := r.wayShape(referent, by, visited)
		if err != nil || refShape == nil {
			return nil, err
		}
		coords = lineOf(refShape.Geometry)
		if coords == nil {
			return nil, r.warn(ErrDegenerateGeometry, el, "referenced way has no line geometry")
		}

	default:
		return nil, r.warn(ErrDegenerateGeometry, el, "way has no coordinate source")
	}

	if len(coords) < 2 {
		return nil, r.warn(ErrDegenerateGeometry, el, "way has fewer than two coordinates")
	}

	if polyrules.IsArea(el, r.opts.Tables) {
		return r.wayPolygon(el, coords)
	}
	return newShape(el, coords), nil
}

// wayPolygon closes the way's coordinates into a ring and builds a
// polygon, applying a single self-intersection repair pass when the ring
// is invalid.
func (r *run) wayPolygon(el *element.Element, coords orb.LineString) (*Shape, error) {
	rg := make(orb.Ring, len(coords), len(coords)+1)
	copy(rg, coords)
	if !rg.Closed() {
		rg = append(rg, rg[0])
	}

	if ring.Valid(rg) {
		return newShape(el, ring.Orient(orb.MultiPolygon{{rg}})[0]), nil
	}

	repaired := ring.Repair(rg)
	var mp orb.MultiPolygon
	for _, fixed := range repaired {
		if ring.Valid(fixed) {
			mp = append(mp, orb.Polygon{fixed})
		}
	}
	if len(mp) == 0 {
		return nil, r.warn(ErrInvalidGeometry, el, "failed to generate polygon from way")
	}

	mp = ring.Orient(mp)
	if len(mp) == 1 {
		return newShape(el, mp[0]), nil
	}
	return newShape(el, mp), nil
}
