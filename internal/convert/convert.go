// Package convert implements the geometry assembly engine: it turns an
// OSM element graph (nodes, ways, relations referencing each other by id
// and role) into planar point, line and polygon shapes, and renders them
// as GeoJSON features.
package convert

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/aspectumapp/osm2geojson/internal/element"
	"github.com/aspectumapp/osm2geojson/internal/logger"
	"github.com/aspectumapp/osm2geojson/internal/polyrules"
)

// Options configures a single conversion run. The zero value uses the
// built-in classification tables, non-strict failure handling and the
// used-reference filter.
type Options struct {
	// Tables holds the polygon classification rules. Empty means the
	// built-in defaults.
	Tables polyrules.Tables
	// Strict aborts the run on the first element failure instead of
	// skipping the element with a diagnostic.
	Strict bool
	// KeepUsed disables the used-reference filter, keeping elements that
	// were consumed as members of other elements in the output.
	KeepUsed bool
	// Logger overrides the process logger for this run.
	Logger *zap.Logger
}

// Result is the output of a conversion run: the assembled shapes in
// input order plus every diagnostic emitted along the way.
type Result struct {
	Shapes      []Shape
	Diagnostics []Diagnostic
}

// FeatureCollection renders the result as GeoJSON.
func (res *Result) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range res.Shapes {
		fc.Append(res.Shapes[i].Feature())
	}
	return fc
}

// run owns the per-conversion state: the reference index and the
// id-to-consumer usage map. Input elements are never mutated.
type run struct {
	opts  Options
	index element.Index
	used  map[string]int64 // element key -> id of the consuming element
	diags []Diagnostic
	log   *zap.Logger
}

// Run converts a document to shapes. In non-strict mode the returned
// error is always nil: malformed elements degrade to diagnostics. In
// strict mode the first element failure aborts and surfaces as an error.
func Run(doc *element.Document, opts Options) (*Result, error) {
	if opts.Tables.Rules == nil && opts.Tables.AreaKeys == nil {
		opts.Tables = polyrules.DefaultTables()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}

	r := &run{
		opts:  opts,
		index: element.BuildIndex(doc),
		used:  make(map[string]int64),
		log:   log,
	}

	var shapes []Shape
	for i := range doc.Elements {
		el := &doc.Elements[i]
		switch el.Type {
		case element.TypeNode, element.TypeWay, element.TypeRelation:
		default:
			continue // count, bounds and other non-geometry entries
		}

		shape, err := r.elementShape(el)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", el.Key(), err)
		}
		if shape == nil {
			if werr := r.warn(ErrDegenerateGeometry, el, "element not converted"); werr != nil {
				return nil, werr
			}
			continue
		}
		shapes = append(shapes, *shape)
	}

	if !opts.KeepUsed {
		shapes = filterUsed(shapes, r.used)
	}

	return &Result{Shapes: shapes, Diagnostics: r.diags}, nil
}

// FromJSON converts a raw Overpass JSON response.
func FromJSON(data []byte, opts Options) (*Result, error) {
	doc, err := element.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return Run(doc, opts)
}

// elementShape builds the shape for a single top-level element or
// relation member stub. A nil shape with nil error means the element was
// skipped (non-strict mode).
func (r *run) elementShape(el *element.Element) (*Shape, error) {
	switch el.Type {
	case element.TypeNode:
		return r.nodeShape(el)
	case element.TypeWay:
		return r.wayShape(el, 0, nil)
	case element.TypeRelation:
		return r.relationShape(el)
	}
	return nil, r.warn(ErrUnsupportedMember, el, "unknown element type")
}

// markUsed records that the element addressed by key was consumed by
// element id `by`. First consumer wins, matching source order.
func (r *run) markUsed(key string, by int64) {
	if _, ok := r.used[key]; !ok {
		r.used[key] = by
	}
}

// filterUsed drops every shape whose element was consumed as a member of
// a relation or referenced by another way, so members are not emitted
// twice.
func filterUsed(shapes []Shape, used map[string]int64) []Shape {
	filtered := shapes[:0]
	for _, s := range shapes {
		if _, ok := used[s.key]; ok {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}
