package utils

import (
	"strconv"
	"strings"
	"time"
)

func IsValidInterval(interval string) bool {
	switch interval {
	case "Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year":
		return true
	default:
		return false
	}
}

// StartOfInterval truncates t (in UTC) to the start of its interval bucket,
// matching ClickHouse's toStartOf* functions. Weeks start on Sunday.
func StartOfInterval(t time.Time, interval string) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch interval {
	case "Minute":
		return t.Truncate(time.Minute)
	case "Hour":
		return t.Truncate(time.Hour)
	case "Day":
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case "Week":
		return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, time.UTC)
	case "Month":
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case "Quarter":
		return time.Date(y, m-(m-1)%3, 1, 0, 0, 0, 0, time.UTC)
	case "Year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// ClampedInt parses raw as an integer and clamps it to [min, max]. Empty or
// non-numeric input yields def; this never fails.
func ClampedInt(raw string, def, min, max int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return clamp(def, min, max)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return clamp(def, min, max)
	}
	return clamp(n, min, max)
}

func clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
