package convert

import (
	"github.com/paulmach/orb"

	"github.com/aspectumapp/osm2geojson/internal/element"
	"github.com/aspectumapp/osm2geojson/internal/polyrules"
	"github.com/aspectumapp/osm2geojson/internal/ring"
)

// relationShape converts a relation to a point (center summary), a
// merged multiline, or an assembled multipolygon.
func (r *run) relationShape(el *element.Element) (*Shape, error) {
	if el.Center != nil {
		return newShape(el, orb.Point{el.Center.Lon, el.Center.Lat}), nil
	}

	members, err := r.relationMembers(el)
	if err != nil || members == nil {
		return nil, err
	}

	if polyrules.IsArea(el, r.opts.Tables) {
		return r.multipolygonShape(el, members)
	}
	return r.multilineShape(el, members)
}

// relationMembers resolves the member list: either the relation's own
// members or, for a ref stub, the members of the referenced relation.
func (r *run) relationMembers(el *element.Element) ([]element.Element, error) {
	if len(el.Members) > 0 {
		return el.Members, nil
	}
	if el.Ref == 0 {
		return nil, r.warn(ErrDegenerateGeometry, el, "relation has no members")
	}
	referent := r.index.Resolve(el)
	if referent == nil {
		return nil, r.warn(ErrUnresolvedReference, el, "relation ref not found in index")
	}
	return referent.Members, nil
}

// multilineShape builds a line shape per way member (recursing into
// nested relations) and merges the lines into maximal connected runs.
func (r *run) multilineShape(el *element.Element, members []element.Element) (*Shape, error) {
	var lines []orb.LineString

	for i := range members {
		member := &members[i]

		var shape *Shape
		var err error
		switch member.Type {
		case element.TypeWay:
			shape, err = r.wayShape(member, el.ID, nil)
		case element.TypeRelation:
			if nested := r.index.Resolve(member); nested != nil {
				r.markUsed(nested.Key(), el.ID)
			}
			shape, err = r.relationShape(member)
		default:
			if werr := r.warn(ErrUnsupportedMember, member, "multiline member not handled"); werr != nil {
				return nil, werr
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if shape == nil {
			if werr := r.warn(ErrDegenerateGeometry, member, "failed to build relation member"); werr != nil {
				return nil, werr
			}
			continue
		}

		switch g := shape.Geometry.(type) {
		case orb.MultiLineString:
			lines = append(lines, g...)
		default:
			// polygon members collapse to their exterior ring; this
			// should not occur on well-formed data
			if line := lineOf(shape.Geometry); line != nil {
				lines = append(lines, line)
			}
		}
	}

	if len(lines) == 0 {
		return nil, r.warn(ErrAssemblyFailure, el, "no lines for multiline relation")
	}

	return newShape(el, orb.MultiLineString(ring.Merge(lines))), nil
}

// roleRun is a maximal run of consecutive same-role member rings. Role
// assignment in real data is not guaranteed to be contiguous: a relation
// may legitimately list outer, then inner, then more outer members.
type roleRun struct {
	role  string
	lines []orb.LineString
}

// multipolygonShape assembles the relation's way members into one
// multipolygon. Members are grouped into runs of consecutive same-role
// members; the first outer run becomes the base geometry and every other
// run is combined into it in source order, outer runs by union and inner
// runs by difference. A missing or invalid outer base fails the whole
// relation; any other member failure only skips that member.
func (r *run) multipolygonShape(el *element.Element, members []element.Element) (*Shape, error) {
	var runs []roleRun

	for i := range members {
		member := &members[i]
		if member.Type != element.TypeWay {
			if werr := r.warn(ErrUnsupportedMember, member, "multipolygon member not handled"); werr != nil {
				return nil, werr
			}
			continue
		}

		r.markUsed(element.Key(element.TypeWay, member.Ref), el.ID)

		shape, err := r.wayShape(member, el.ID, nil)
		if err != nil {
			return nil, err
		}
		if shape == nil {
			if werr := r.warn(ErrDegenerateGeometry, member, "failed to build way in relation"); werr != nil {
				return nil, werr
			}
			continue
		}
		line := lineOf(shape.Geometry)
		if line == nil {
			if werr := r.warn(ErrDegenerateGeometry, member, "multipolygon member has no line geometry"); werr != nil {
				return nil, werr
			}
			continue
		}

		role := "outer"
		if member.Role == "inner" {
			role = "inner"
		}
		if len(runs) == 0 || runs[len(runs)-1].role != role {
			runs = append(runs, roleRun{role: role})
		}
		runs[len(runs)-1].lines = append(runs[len(runs)-1].lines, line)
	}

	// the first outer run anchors the geometry
	base := -1
	for i := range runs {
		if runs[i].role == "outer" {
			base = i
			break
		}
	}
	if base == -1 {
		return nil, r.warn(ErrAssemblyFailure, el, "no outer ways for multipolygon relation")
	}

	mp := ring.PolygonsFromLines(runs[base].lines)
	if len(mp) == 0 {
		return nil, r.warn(ErrAssemblyFailure, el, "failed to assemble outer rings")
	}

	for i := range runs {
		if i == base {
			continue
		}
		part := ring.PolygonsFromLines(runs[i].lines)
		if len(part) == 0 {
			if werr := r.warn(ErrInvalidGeometry, el, "failed to assemble "+runs[i].role+" rings"); werr != nil {
				return nil, werr
			}
			continue
		}
		if runs[i].role == "outer" {
			mp = ring.Union(mp, part)
		} else {
			mp = ring.Difference(mp, part)
		}
	}

	return newShape(el, ring.Orient(mp)), nil
}
