package utils

import (
	"fmt"
	"time"
)

// lenientLayouts are tried in order by ParseLenientTime. RFC3339 covers the
// trailing-Z ISO-8601 form emitted by most collectors.
var lenientLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseStrictTime parses an RFC3339 timestamp and fails on anything else.
// Used on the correlation path, where substituting a default would corrupt
// time-proximity scoring.
func ParseStrictTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// ParseLenientTime parses a timestamp in any accepted layout, reporting
// whether it succeeded. Callers on the forecast grouping path substitute the
// current time on failure; grouping tolerates imprecision where correlation
// does not.
func ParseLenientTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range lenientLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
