package util

import (
	"strconv"
	"strings"
	"time"
)

// Layouts accepted by ParseTime, tried in order. The minute layout is what
// the analytics service emits for hourly buckets.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime tries the known layouts, then unix seconds. Layouts without a
// zone are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// FormatMinute renders t the way the analytics service labels buckets.
func FormatMinute(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
