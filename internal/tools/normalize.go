package tools

import "time"

// candidateLayouts are the timestamp shapes the data backend has been
// observed to emit. normalizeTimestamp tries each in turn; an unparsable
// value is passed through unchanged rather than dropped, since a handler
// must never silently erase backend data.
var candidateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalizeTimestamp converts a backend-native timestamp to UTC ISO-8601
// with a trailing "Z", per §4.3's requirement that every timestamp in a
// tool response be normalized regardless of backend format.
func normalizeTimestamp(raw string) string {
	if raw == "" {
		return raw
	}
	for _, layout := range candidateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format("2006-01-02T15:04:05Z")
		}
	}
	return raw
}

// nowUTC returns the current instant formatted as UTC ISO-8601 with "Z",
// used when a handler must stamp meta.as_of itself rather than echo a
// backend-supplied value (e.g. prices-quotes when the backend's response
// omits as_of).
func nowUTC(clock func() time.Time) string {
	return clock().UTC().Format("2006-01-02T15:04:05Z")
}
