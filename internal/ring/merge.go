package ring

import (
	"github.com/paulmach/orb"
)

// Merge connects line segments sharing endpoints into maximal runs.
// Input order is preserved for the run seeds; segments are reversed as
// needed to fit. Runs that close on themselves come back as closed
// linestrings. Empty and single-point inputs are dropped.
func Merge(lines []orb.LineString) []orb.LineString {
	segments := make([]orb.LineString, 0, len(lines))
	for _, l := range lines {
		if len(l) > 1 {
			segments = append(segments, cloneLine(l))
		}
	}

	var merged []orb.LineString
	for len(segments) != 0 {
		current := segments[0]
		segments = segments[1:]

		// grow the current run until it closes or nothing fits
		for len(segments) != 0 && !current[0].Equal(current[len(current)-1]) {
			first := current[0]
			last := current[len(current)-1]

			foundAt := -1
			for i, seg := range segments {
				switch {
				case last.Equal(seg[0]):
					current = append(current, seg[1:]...)
				case last.Equal(seg[len(seg)-1]):
					reverseLine(seg)
					current = append(current, seg[1:]...)
				case first.Equal(seg[len(seg)-1]):
					current = append(seg[:len(seg)-1:len(seg)-1], current...)
				case first.Equal(seg[0]):
					reverseLine(seg)
					current = append(seg[:len(seg)-1:len(seg)-1], current...)
				default:
					continue
				}
				foundAt = i
				break
			}

			if foundAt == -1 {
				break // dangling run, no segment connects
			}
			segments = append(segments[:foundAt], segments[foundAt+1:]...)
		}

		merged = append(merged, current)
	}

	return merged
}

// CloseRings converts merged runs into rings, closing each run whose
// endpoints already coincide. Open runs are force-closed by repeating the
// first point; callers that need strict closure should check Closed()
// before calling.
func CloseRings(lines []orb.LineString) []orb.Ring {
	rings := make([]orb.Ring, 0, len(lines))
	for _, l := range lines {
		if len(l) < 3 {
			continue
		}
		r := orb.Ring(cloneLine(l))
		if !r.Closed() {
			r = append(r, r[0])
		}
		rings = append(rings, r)
	}
	return rings
}

func cloneLine(l orb.LineString) orb.LineString {
	out := make(orb.LineString, len(l))
	copy(out, l)
	return out
}

func reverseLine(l orb.LineString) {
	for i, j := 0, len(l)-1; i < j; i, j = i+1, j-1 {
		l[i], l[j] = l[j], l[i]
	}
}
