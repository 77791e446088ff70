package element

import (
	"encoding/json"
	"fmt"
	"time"
)

// Element types as they appear in Overpass JSON and OSM XML.
const (
	TypeNode     = "node"
	TypeWay      = "way"
	TypeRelation = "relation"
)

// LonLat is a single coordinate pair as emitted by Overpass
// ("out geom" way geometry, "out center" summaries).
type LonLat struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is the bounding box Overpass attaches to ways and relations
// when queried with "out bb".
type Bounds struct {
	MinLat float64 `json:"minlat"`
	MinLon float64 `json:"minlon"`
	MaxLat float64 `json:"maxlat"`
	MaxLon float64 `json:"maxlon"`
}

// Element is one OSM element in the Overpass JSON shape. A single struct
// covers all three element kinds plus the stub forms that appear inside
// relation member lists:
//
//   - node: Lat/Lon set
//   - way: exactly one of Geometry (inline coordinates), Nodes (node id
//     refs) or Ref (indirection to another way) populated
//   - relation: Members set, each member itself an Element carrying Ref,
//     Role and possibly inline Geometry
//
// Center short-circuits geometry building for "out center" results.
type Element struct {
	Type string `json:"type"`
	ID   int64  `json:"id,omitempty"`

	// Node coordinates.
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`

	Tags map[string]string `json:"tags,omitempty"`

	// Way coordinate sources (mutually exclusive).
	Nodes    []int64  `json:"nodes,omitempty"`
	Geometry []LonLat `json:"geometry,omitempty"`
	Ref      int64    `json:"ref,omitempty"`

	// Relation members. Role is set on member stubs.
	Members []Element `json:"members,omitempty"`
	Role    string    `json:"role,omitempty"`

	Center *LonLat `json:"center,omitempty"`
	Bounds *Bounds `json:"bounds,omitempty"`

	// Optional meta attributes (OSM XML or Overpass "out meta").
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Version   int64      `json:"version,omitempty"`
	Changeset int64      `json:"changeset,omitempty"`
	User      string     `json:"user,omitempty"`
	UID       int64      `json:"uid,omitempty"`
}

// Document is a full Overpass JSON response (or the equivalent produced
// from OSM XML).
type Document struct {
	Version   float64   `json:"version,omitempty"`
	Generator string    `json:"generator,omitempty"`
	Elements  []Element `json:"elements"`
}

// ParseJSON decodes an Overpass API JSON response.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode overpass JSON: %w", err)
	}
	return &doc, nil
}

// Key returns the "type/id" identity used for all element addressing.
func Key(typ string, id int64) string {
	return fmt.Sprintf("%s/%d", typ, id)
}

// Key returns the element's "type/id" identity.
func (e *Element) Key() string {
	return Key(e.Type, e.ID)
}

// IsRef reports whether the element is only an indirection to another
// element (a member stub or a way that points at another way).
func (e *Element) IsRef() bool {
	return e.Ref != 0 && len(e.Nodes) == 0 && len(e.Geometry) == 0 &&
		e.Lat == 0 && e.Lon == 0
}

// HasTags reports whether the element carries any tags.
func (e *Element) HasTags() bool {
	return len(e.Tags) > 0
}
