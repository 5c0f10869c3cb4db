package geocode

import "strings"

// A queryStrategy builds one candidate lookup query from the raw location
// text, its comma-separated segments, and the regional anchor. ok is false
// when the strategy does not apply to this text.
type queryStrategy func(full string, parts []string, anchor string) (query string, ok bool)

// Strategies are tried in this order; the first non-empty geocoder result
// wins. Every widened form requires more than three segments, so short
// texts are only ever looked up verbatim.
var wideningStrategies = []queryStrategy{
	verbatimQuery,
	landmarkAnchorQuery,
	firstSegmentAnchorQuery,
	roadPairQuery,
	widerAreaQuery,
}

func verbatimQuery(full string, _ []string, _ string) (string, bool) {
	full = strings.TrimSpace(full)
	return full, full != ""
}

// First two segments pinned to the regional anchor: a specific landmark
// inside the city.
func landmarkAnchorQuery(_ string, parts []string, anchor string) (string, bool) {
	if len(parts) <= 3 {
		return "", false
	}
	return parts[0] + ", " + parts[1] + ", " + anchor, true
}

func firstSegmentAnchorQuery(_ string, parts []string, anchor string) (string, bool) {
	if len(parts) <= 3 {
		return "", false
	}
	return parts[0] + ", " + anchor, true
}

// First two segments without the anchor, for road codes and landmark names
// that Nominatim indexes on their own.
func roadPairQuery(_ string, parts []string, _ string) (string, bool) {
	if len(parts) <= 3 {
		return "", false
	}
	return parts[0] + " " + parts[1], true
}

// Last three segments: the wider administrative area.
func widerAreaQuery(_ string, parts []string, _ string) (string, bool) {
	if len(parts) <= 3 {
		return "", false
	}
	return strings.Join(parts[len(parts)-3:], ", "), true
}

func splitSegments(text string) []string {
	raw := strings.Split(text, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
