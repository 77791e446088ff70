// Package osmxml parses OSM XML (editor exports and Overpass XML
// responses) into the same element document produced by the Overpass
// JSON decoder, so both inputs feed the converter identically.
package osmxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aspectumapp/osm2geojson/internal/element"
)

// Format identifies the input encoding of a document.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// DetectFormat sniffs whether data is OSM XML or Overpass JSON by its
// first non-whitespace byte.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatXML
	}
	return FormatJSON
}

// Parse reads an OSM XML document into an element document.
func Parse(r io.Reader) (*element.Document, error) {
	doc := &element.Document{Version: 0.6}
	decoder := xml.NewDecoder(r)

	sawRoot := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("XML parse error: %w", err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "osm":
			sawRoot = true
			if v, ok := attr(se, "version"); ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					doc.Version = f
				}
			}
			if g, ok := attr(se, "generator"); ok {
				doc.Generator = g
			}
		case "node", "way", "relation":
			if !sawRoot {
				return nil, fmt.Errorf("OSM root element not found")
			}
			el, err := parseElement(decoder, se)
			if err != nil {
				return nil, err
			}
			doc.Elements = append(doc.Elements, el)
		case "bounds", "note", "meta", "count", "remark":
			if err := decoder.Skip(); err != nil {
				return nil, fmt.Errorf("XML parse error: %w", err)
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("OSM root element not found")
	}
	return doc, nil
}

// ParseBytes parses an in-memory OSM XML document.
func ParseBytes(data []byte) (*element.Document, error) {
	return Parse(bytes.NewReader(data))
}

// parseElement reads one node/way/relation (or nested member) element,
// consuming tokens up to its end tag.
func parseElement(decoder *xml.Decoder, se xml.StartElement) (element.Element, error) {
	el := element.Element{Type: se.Name.Local}
	if se.Name.Local == "member" {
		mt, _ := attr(se, "type")
		el.Type = mt
	}

	el.ID = attrInt(se, "id")
	el.Ref = attrInt(se, "ref")
	el.Role, _ = attr(se, "role")
	if lat, ok := attrFloat(se, "lat"); ok {
		el.Lat = lat
	}
	if lon, ok := attrFloat(se, "lon"); ok {
		el.Lon = lon
	}
	parseMeta(&el, se)

	for {
		token, err := decoder.Token()
		if err != nil {
			return el, fmt.Errorf("XML parse error: %w", err)
		}

		switch t := token.(type) {
		case xml.EndElement:
			if t.Name.Local == se.Name.Local {
				return el, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "tag":
				k, _ := attr(t, "k")
				v, _ := attr(t, "v")
				if el.Tags == nil {
					el.Tags = make(map[string]string)
				}
				el.Tags[k] = v
				if err := decoder.Skip(); err != nil {
					return el, fmt.Errorf("XML parse error: %w", err)
				}

			case "nd":
				// a nd carries either a node id reference or an inline
				// coordinate (Overpass "out geom")
				lat, hasLat := attrFloat(t, "lat")
				lon, hasLon := attrFloat(t, "lon")
				if hasLat || hasLon {
					el.Geometry = append(el.Geometry, element.LonLat{Lat: lat, Lon: lon})
				} else if ref := attrInt(t, "ref"); ref != 0 {
					el.Nodes = append(el.Nodes, ref)
				}
				if err := decoder.Skip(); err != nil {
					return el, fmt.Errorf("XML parse error: %w", err)
				}

			case "member":
				member, err := parseElement(decoder, t)
				if err != nil {
					return el, err
				}
				el.Members = append(el.Members, member)

			case "center":
				lat, _ := attrFloat(t, "lat")
				lon, _ := attrFloat(t, "lon")
				el.Center = &element.LonLat{Lat: lat, Lon: lon}
				if err := decoder.Skip(); err != nil {
					return el, fmt.Errorf("XML parse error: %w", err)
				}

			case "bounds":
				el.Bounds = &element.Bounds{}
				el.Bounds.MinLat, _ = attrFloat(t, "minlat")
				el.Bounds.MinLon, _ = attrFloat(t, "minlon")
				el.Bounds.MaxLat, _ = attrFloat(t, "maxlat")
				el.Bounds.MaxLon, _ = attrFloat(t, "maxlon")
				if err := decoder.Skip(); err != nil {
					return el, fmt.Errorf("XML parse error: %w", err)
				}

			default:
				if err := decoder.Skip(); err != nil {
					return el, fmt.Errorf("XML parse error: %w", err)
				}
			}
		}
	}
}

// parseMeta copies the optional meta attributes when present.
func parseMeta(el *element.Element, se xml.StartElement) {
	if v, ok := attr(se, "timestamp"); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			el.Timestamp = &ts
		}
	}
	el.Version = attrInt(se, "version")
	el.Changeset = attrInt(se, "changeset")
	el.User, _ = attr(se, "user")
	el.UID = attrInt(se, "uid")
}

func attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrInt(se xml.StartElement, name string) int64 {
	v, ok := attr(se, name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func attrFloat(se xml.StartElement, name string) (float64, bool) {
	v, ok := attr(se, name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
