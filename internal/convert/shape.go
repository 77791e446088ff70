package convert

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/aspectumapp/osm2geojson/internal/element"
)

// Shape pairs an assembled geometry with the properties of the element
// it came from. Shapes are created once per element and not mutated
// afterward.
type Shape struct {
	Geometry   orb.Geometry
	Properties geojson.Properties

	key string // "type/id" identity, used by the used-ref filter
}

// Feature converts the shape to a GeoJSON feature. Coordinates marshal
// as nested plain-number arrays in [lon, lat] order.
func (s *Shape) Feature() *geojson.Feature {
	f := geojson.NewFeature(s.Geometry)
	f.Properties = s.Properties
	return f
}

// elementProps extracts the property set carried on output features:
// type, id and tags always when present, plus node refs and meta
// attributes when the source element has them.
func elementProps(el *element.Element) geojson.Properties {
	props := geojson.Properties{
		"type": el.Type,
		"id":   el.ID,
	}
	if el.Tags != nil {
		props["tags"] = el.Tags
	}
	if len(el.Nodes) > 0 {
		props["nodes"] = el.Nodes
	}
	if el.Timestamp != nil {
		props["timestamp"] = el.Timestamp.UTC().Format(time.RFC3339)
	}
	if el.User != "" {
		props["user"] = el.User
	}
	if el.UID != 0 {
		props["uid"] = el.UID
	}
	if el.Version != 0 {
		props["version"] = el.Version
	}
	return props
}

func newShape(el *element.Element, g orb.Geometry) *Shape {
	return &Shape{
		Geometry:   g,
		Properties: elementProps(el),
		key:        el.Key(),
	}
}

// lineOf flattens a shape to a single line: linestrings pass through,
// polygon-shaped members collapse to their exterior ring. Returns nil
// for geometries that cannot act as a line segment.
func lineOf(g orb.Geometry) orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return v
	case orb.Polygon:
		if len(v) > 0 {
			return orb.LineString(v[0])
		}
	case orb.MultiPolygon:
		if len(v) > 0 && len(v[0]) > 0 {
			return orb.LineString(v[0][0])
		}
	}
	return nil
}
