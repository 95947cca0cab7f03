package utils

import (
	"strings"
	"time"
)

const layoutDateTime = "2006-01-02 15:04"

// LoadLocation resolves a zone name; empty and "Local" both mean the host zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// FormatDateTime formats t as "YYYY-MM-DD HH:MM" in loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(layoutDateTime)
}
