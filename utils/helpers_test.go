package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampedInt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"empty uses default", "", 30},
		{"garbage uses default", "abc", 30},
		{"float uses default", "7.5", 30},
		{"in range", "45", 45},
		{"below min", "0", 1},
		{"negative", "-20", 1},
		{"above max", "500", 180},
		{"whitespace", " 14 ", 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampedInt(tt.raw, 30, 1, 180))
		})
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "héé", Truncate("héééé", 3))
}

func TestStartOfInterval(t *testing.T) {
	ts := time.Date(2026, time.August, 13, 17, 42, 9, 0, time.UTC) // Thursday

	assert.Equal(t, time.Date(2026, 8, 13, 17, 42, 0, 0, time.UTC), StartOfInterval(ts, "Minute"))
	assert.Equal(t, time.Date(2026, 8, 13, 17, 0, 0, 0, time.UTC), StartOfInterval(ts, "Hour"))
	assert.Equal(t, time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC), StartOfInterval(ts, "Day"))
	assert.Equal(t, time.Date(2026, 8, 9, 0, 0, 0, 0, time.UTC), StartOfInterval(ts, "Week"))
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), StartOfInterval(ts, "Month"))
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), StartOfInterval(ts, "Quarter"))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), StartOfInterval(ts, "Year"))
}
