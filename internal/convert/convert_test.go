package convert

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/aspectumapp/osm2geojson/internal/element"
	"github.com/aspectumapp/osm2geojson/internal/osmxml"
)

func mustDoc(t *testing.T, data string) *element.Document {
	t.Helper()
	doc, err := element.ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("failed to parse test document: %v", err)
	}
	return doc
}

func mustRun(t *testing.T, data string, opts Options) *Result {
	t.Helper()
	result, err := Run(mustDoc(t, data), opts)
	if err != nil {
		t.Fatalf("unexpected conversion error: %v", err)
	}
	return result
}

func findShape(res *Result, typ string, id int64) *Shape {
	key := element.Key(typ, id)
	for i := range res.Shapes {
		if res.Shapes[i].key == key {
			return &res.Shapes[i]
		}
	}
	return nil
}

func TestNodeToPointFeature(t *testing.T) {
	res := mustRun(t, `{"elements": [
		{"type": "node", "id": 1, "lat": 1.234, "lon": 4.321}
	]}`, Options{})

	if len(res.Shapes) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(res.Shapes))
	}

	data, err := json.Marshal(res.Shapes[0].Feature())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var feature struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Type string `json:"type"`
			ID   int64  `json:"id"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data, &feature); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if feature.Type != "Feature" {
		t.Errorf("feature type = %q", feature.Type)
	}
	if feature.Geometry.Type != "Point" {
		t.Errorf("geometry type = %q", feature.Geometry.Type)
	}
	if len(feature.Geometry.Coordinates) != 2 ||
		feature.Geometry.Coordinates[0] != 4.321 ||
		feature.Geometry.Coordinates[1] != 1.234 {
		t.Errorf("coordinates = %v, want [4.321, 1.234]", feature.Geometry.Coordinates)
	}
	if feature.Properties.Type != "node" || feature.Properties.ID != 1 {
		t.Errorf("properties = %+v", feature.Properties)
	}
}

func TestClosedServiceWayStaysLine(t *testing.T) {
	res := mustRun(t, `{"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 0, "lon": 1},
		{"type": "node", "id": 3, "lat": 1, "lon": 1},
		{"type": "way", "id": 10, "nodes": [1, 2, 3, 1],
		 "tags": {"highway": "service", "area": "no"}}
	]}`, Options{KeepUsed: true})

	shape := findShape(res, element.TypeWay, 10)
	if shape == nil {
		t.Fatal("way 10 not converted")
	}
	if _, ok := shape.Geometry.(orb.LineString); !ok {
		t.Fatalf("expected LineString, got %T", shape.Geometry)
	}
}

func TestClosedBuildingWayBecomesPolygon(t *testing.T) {
	res := mustRun(t, `{"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 0, "lon": 1},
		{"type": "node", "id": 3, "lat": 1, "lon": 1},
		{"type": "node", "id": 4, "lat": 1, "lon": 0},
		{"type": "way", "id": 10, "nodes": [1, 2, 3, 4, 1],
		 "tags": {"building": "yes"}}
	]}`, Options{KeepUsed: true})

	shape := findShape(res, element.TypeWay, 10)
	if shape == nil {
		t.Fatal("way 10 not converted")
	}
	poly, ok := shape.Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("expected Polygon, got %T", shape.Geometry)
	}
	if poly[0].Orientation() != orb.CCW {
		t.Error("exterior ring should be counter-clockwise")
	}
	if props := shape.Properties; props["type"] != "way" {
		t.Errorf("properties type = %v", props["type"])
	}
}

func TestWayWithCenterBecomesPoint(t *testing.T) {
	res := mustRun(t, `{"elements": [
		{"type": "way", "id": 10, "center": {"lat": 2.5, "lon": 3.5},
		 "tags": {"building": "yes"}}
	]}`, Options{})

	shape := findShape(res, element.TypeWay, 10)
	if shape == nil {
		t.Fatal("way 10 not converted")
	}
	point, ok := shape.Geometry.(orb.Point)
	if !ok {
		t.Fatalf("expected Point, got %T", shape.Geometry)
	}
	if point[0] != 3.5 || point[1] != 2.5 {
		t.Errorf("center point = %v", point)
	}
}

func TestWayInlineGeometry(t *testing.T) {
	res := mustRun(t, `{"elements": [
		{"type": "way", "id": 10,
		 "geometry": [{"lat": 0, "lon": 0}, {"lat": 1, "lon": 1}],
		 "tags": {"highway": "primary"}}
	]}`, Options{})

	shape := findShape(res, element.TypeWay, 10)
	if shape == nil {
		t.Fatal("way 10 not converted")
	}
	line, ok := shape.Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("expected LineString, got %T", shape.Geometry)
	}
	if len(line) != 2 || !line[1].Equal(orb.Point{1, 1}) {
		t.Errorf("line = %v", line)
	}
}

func TestUnresolvedNodeReference(t *testing.T) {
	const data = `{"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 3, "lat": 1, "lon": 1},
		{"type": "way", "id": 10, "nodes": [1, 2, 3],
		 "tags": {"highway": "primary"}}
	]}`

	// non-strict: way is skipped, run continues with a diagnostic
	res := mustRun(t, data, Options{KeepUsed: true})
	if findShape(res, element.TypeWay, 10) != nil {
		t.Error("way with missing node should not produce a feature")
	}
	if findShape(res, element.TypeNode, 1) == nil {
		t.Error("unaffected node should still convert")
	}
	found := false
	for _, d := range res.Diagnostics {
		if errors.Is(d.Err, ErrUnresolvedReference) {
			found = true
		}
	}
	if !found {
		t.Error("expected an unresolved-reference diagnostic")
	}

	// strict: the run aborts before any feature list is returned
	_, err := Run(mustDoc(t, data), Options{Strict: true})
	if err == nil {
		t.Fatal("expected error in strict mode")
	}
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("error should wrap ErrUnresolvedReference, got %v", err)
	}
}

func TestDegenerateWay(t *testing.T) {
	res := mustRun(t, `{"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "way", "id": 10, "nodes": [1], "tags": {"highway": "primary"}}
	]}`, Options{KeepUsed: true})

	if findShape(res, element.TypeWay, 10) != nil {
		t.Error("single-point way should not produce a feature")
	}
	found := false
	for _, d := range res.Diagnostics {
		if errors.Is(d.Err, ErrDegenerateGeometry) {
			found = true
		}
	}
	if !found {
		t.Error("expected a degenerate-geometry diagnostic")
	}
}

func TestWayRefIndirection(t *testing.T) {
	res := mustRun(t, `{"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 1, "lon": 1},
		{"type": "way", "id": 10, "nodes": [1, 2], "tags": {"highway": "primary"}},
		{"type": "way", "id": 11, "ref": 10, "tags": {"highway": "primary"}}
	]}`, Options{KeepUsed: true})

	shape := findShape(res, element.TypeWay, 11)
	if shape == nil {
		t.Fatal("ref way not converted")
	}
	line, ok := shape.Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("expected LineString, got %T", shape.Geometry)
	}
	if len(line) != 2 {
		t.Errorf("expected referenced coordinates, got %v", line)
	}

	// the referent is consumed by the referencing way
	filtered := mustRun(t, `{"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 1, "lon": 1},
		{"type": "way", "id": 10, "nodes": [1, 2], "tags": {"highway": "primary"}},
		{"type": "way", "id": 11, "ref": 10, "tags": {"highway": "primary"}}
	]}`, Options{})
	if findShape(filtered, element.TypeWay, 10) != nil {
		t.Error("referenced way should be filtered as used")
	}
	if findShape(filtered, element.TypeWay, 11) == nil {
		t.Error("referencing way should remain")
	}
}

func TestKeepUsedRoundTrip(t *testing.T) {
	const data = `{"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 0, "lon": 1},
		{"type": "way", "id": 10, "nodes": [1, 2], "tags": {"highway": "primary"}}
	]}`

	filtered := mustRun(t, data, Options{})
	if len(filtered.Shapes) != 1 {
		t.Fatalf("expected only the way, got %d shapes", len(filtered.Shapes))
	}

	kept := mustRun(t, data, Options{KeepUsed: true})
	if len(kept.Shapes) != 3 {
		t.Fatalf("expected way plus both nodes, got %d shapes", len(kept.Shapes))
	}
	if findShape(kept, element.TypeNode, 1) == nil || findShape(kept, element.TypeNode, 2) == nil {
		t.Error("consumed nodes should survive with KeepUsed")
	}
	if findShape(kept, element.TypeWay, 10) == nil {
		t.Error("way should convert in both modes")
	}
}

func TestXMLAndJSONInputsMatch(t *testing.T) {
	const jsonData = `{"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 0, "lon": 1},
		{"type": "node", "id": 3, "lat": 1, "lon": 1},
		{"type": "node", "id": 4, "lat": 1, "lon": 0},
		{"type": "way", "id": 10, "nodes": [1, 2, 3, 4, 1],
		 "tags": {"building": "yes"}}
	]}`
	const xmlData = `<osm version="0.6">
		<node id="1" lat="0" lon="0"/>
		<node id="2" lat="0" lon="1"/>
		<node id="3" lat="1" lon="1"/>
		<node id="4" lat="1" lon="0"/>
		<way id="10">
			<nd ref="1"/><nd ref="2"/><nd ref="3"/><nd ref="4"/><nd ref="1"/>
			<tag k="building" v="yes"/>
		</way>
	</osm>`

	fromJSON := mustRun(t, jsonData, Options{})

	xmlDoc, err := osmxml.ParseBytes([]byte(xmlData))
	if err != nil {
		t.Fatalf("failed to parse XML: %v", err)
	}
	fromXML, err := Run(xmlDoc, Options{})
	if err != nil {
		t.Fatalf("failed to convert XML document: %v", err)
	}

	a, err := json.Marshal(fromJSON.FeatureCollection())
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(fromXML.FeatureCollection())
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("feature collections differ:\nJSON input: %s\nXML input:  %s", a, b)
	}
}

func TestWayRefCycle(t *testing.T) {
	const data = `{"elements": [
		{"type": "way", "id": 10, "ref": 11, "tags": {"highway": "primary"}},
		{"type": "way", "id": 11, "ref": 10, "tags": {"highway": "primary"}}
	]}`

	res := mustRun(t, data, Options{KeepUsed: true})
	if len(res.Shapes) != 0 {
		t.Errorf("cyclic refs must not convert, got %d shapes", len(res.Shapes))
	}

	_, err := Run(mustDoc(t, data), Options{Strict: true})
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("expected unresolved-reference error, got %v", err)
	}
}
