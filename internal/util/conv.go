package util

import (
	"strconv"
	"time"
)

// ParseDate reads a YYYY-MM-DD date in loc. An empty string yields now.
func ParseDate(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	return time.ParseInLocation(DateFormat, s, loc)
}

// ParseIntDefault returns def when s is not an integer.
func ParseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
