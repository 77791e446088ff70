package polyrules

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aspectumapp/osm2geojson/internal/element"
)

// Mode controls how a classification rule matches tag values.
type Mode string

const (
	// ModeAll matches any value of the rule's key.
	ModeAll Mode = "all"
	// ModeWhitelist matches only values listed in the rule.
	ModeWhitelist Mode = "whitelist"
	// ModeBlacklist matches values NOT listed in the rule; absence from
	// the list is itself a polygon signal.
	ModeBlacklist Mode = "blacklist"
)

// Rule is one entry of the polygon classification table, in the
// osm-polygon-features JSON format.
type Rule struct {
	Key     string   `json:"key"`
	Polygon Mode     `json:"polygon"`
	Values  []string `json:"values,omitempty"`
}

// RuleTable is an ordered list of classification rules. Order matters:
// the first rule whose key is present in an element's tags selects the
// key, and only rules for that key are evaluated.
type RuleTable []Rule

// AreaKeys maps tag key -> value -> line-exception flag. A true entry
// overrides a positive rule-table classification back to "not an area"
// (iD editor areaKeys format).
type AreaKeys map[string]map[string]bool

// Tables bundles the immutable classification configuration for a run.
type Tables struct {
	Rules    RuleTable
	AreaKeys AreaKeys
}

//go:embed polygon-features.json
var defaultRulesJSON []byte

//go:embed areakeys.json
var defaultAreaKeysJSON []byte

// DefaultTables returns the built-in classification tables
// (osm-polygon-features rules plus iD areaKeys exceptions).
func DefaultTables() Tables {
	rules, err := parseRuleTable(defaultRulesJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded polygon-features.json invalid: %v", err))
	}
	keys, err := parseAreaKeys(defaultAreaKeysJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded areakeys.json invalid: %v", err))
	}
	return Tables{Rules: rules, AreaKeys: keys}
}

// LoadRuleTable reads a rule table from a polygon-features JSON file.
func LoadRuleTable(path string) (RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read polygon features file: %w", err)
	}
	return parseRuleTable(data)
}

// LoadAreaKeys reads an area-exception table from an areaKeys JSON file.
// Both the bare map form and the {"areaKeys": {...}} wrapper are accepted.
func LoadAreaKeys(path string) (AreaKeys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read area keys file: %w", err)
	}
	return parseAreaKeys(data)
}

func parseRuleTable(data []byte) (RuleTable, error) {
	var rules RuleTable
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse polygon features: %w", err)
	}
	for _, r := range rules {
		switch r.Polygon {
		case ModeAll, ModeWhitelist, ModeBlacklist:
		default:
			return nil, fmt.Errorf("rule for key %q has unknown mode %q", r.Key, r.Polygon)
		}
	}
	return rules, nil
}

func parseAreaKeys(data []byte) (AreaKeys, error) {
	var wrapped struct {
		AreaKeys AreaKeys `json:"areaKeys"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.AreaKeys != nil {
		return wrapped.AreaKeys, nil
	}

	var keys AreaKeys
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse area keys: %w", err)
	}
	return keys, nil
}

// IsArea decides whether an element denotes an area (polygon) or a line.
// Precedence, first hit wins:
//
//  1. no tags -> line
//  2. area=no -> line, area=yes -> area
//  3. type=multipolygon -> area
//  4. open ring (first/last coordinate or node id differ) -> line
//  5. rule table keyed by first matching tag key
//  6. areaKeys exception may flip a positive rule result back to line
func IsArea(el *element.Element, tables Tables) bool {
	if !el.HasTags() {
		return false
	}
	tags := el.Tags

	switch tags["area"] {
	case "no":
		return false
	case "yes":
		return true
	}

	if tags["type"] == "multipolygon" {
		return true
	}

	if g := el.Geometry; len(g) > 0 {
		first, last := g[0], g[len(g)-1]
		if first.Lat != last.Lat || first.Lon != last.Lon {
			return false
		}
	}
	if n := el.Nodes; len(n) > 0 && n[0] != n[len(n)-1] {
		return false
	}

	if !matchRules(tags, tables.Rules) {
		return false
	}
	return !isException(tags, tables.AreaKeys)
}

// matchRules evaluates the rule table against the element's tags. The
// first rule whose key is present in the tags selects that key; all rules
// for the selected key are then evaluated together so that a whitelist
// and a blacklist on the same key cannot contradict each other: a value
// absent from a blacklist only counts as a polygon signal when no
// whitelist governs the key.
func matchRules(tags map[string]string, rules RuleTable) bool {
	key := ""
	for _, rule := range rules {
		if _, ok := tags[rule.Key]; ok {
			key = rule.Key
			break
		}
	}
	if key == "" {
		return false
	}

	value := tags[key]
	sawWhitelist := false
	blacklistMiss := false
	for _, rule := range rules {
		if rule.Key != key {
			continue
		}
		switch rule.Polygon {
		case ModeAll:
			return true
		case ModeWhitelist:
			if contains(rule.Values, value) {
				return true
			}
			sawWhitelist = true
		case ModeBlacklist:
			if contains(rule.Values, value) {
				return false
			}
			blacklistMiss = true
		}
	}
	return blacklistMiss && !sawWhitelist
}

// isException reports whether any tag hits a true areaKeys entry.
func isException(tags map[string]string, keys AreaKeys) bool {
	for k, v := range tags {
		if values, ok := keys[k]; ok && values[v] {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
