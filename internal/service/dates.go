package service

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate accepts the layouts the dashboard date pickers send and returns
// the instant in UTC. Layouts without an offset are read as UTC.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if value, err := time.Parse(layout, raw); err == nil {
			return value.UTC(), true
		}
	}
	return time.Time{}, false
}
