package convert

import (
	"time"

	"github.com/paulmach/osm"

	"github.com/aspectumapp/osm2geojson/internal/element"
)

// FromOSM converts a paulmach/osm document (the ecosystem-standard model
// produced by its XML and PBF scanners) into a convertible document.
func FromOSM(o *osm.OSM) *element.Document {
	doc := &element.Document{Version: 0.6}
	if o == nil {
		return doc
	}

	for _, n := range o.Nodes {
		el := element.Element{
			Type: element.TypeNode,
			ID:   int64(n.ID),
			Lat:  n.Lat,
			Lon:  n.Lon,
		}
		copyMeta(&el, n.Tags, n.Timestamp, n.User, int64(n.UserID), n.Version, int64(n.ChangesetID))
		doc.Elements = append(doc.Elements, el)
	}

	for _, w := range o.Ways {
		el := element.Element{
			Type: element.TypeWay,
			ID:   int64(w.ID),
		}
		for _, wn := range w.Nodes {
			el.Nodes = append(el.Nodes, int64(wn.ID))
		}
		copyMeta(&el, w.Tags, w.Timestamp, w.User, int64(w.UserID), w.Version, int64(w.ChangesetID))
		doc.Elements = append(doc.Elements, el)
	}

	for _, rel := range o.Relations {
		el := element.Element{
			Type: element.TypeRelation,
			ID:   int64(rel.ID),
		}
		for _, m := range rel.Members {
			el.Members = append(el.Members, element.Element{
				Type: string(m.Type),
				Ref:  m.Ref,
				Role: m.Role,
			})
		}
		copyMeta(&el, rel.Tags, rel.Timestamp, rel.User, int64(rel.UserID), rel.Version, int64(rel.ChangesetID))
		doc.Elements = append(doc.Elements, el)
	}

	return doc
}

func copyMeta(el *element.Element, tags osm.Tags, ts time.Time, user string, uid int64, version int, changeset int64) {
	if len(tags) > 0 {
		el.Tags = tags.Map()
	}
	if !ts.IsZero() {
		t := ts
		el.Timestamp = &t
	}
	el.User = user
	el.UID = uid
	el.Version = int64(version)
	el.Changeset = changeset
}
