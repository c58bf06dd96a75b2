package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, January 15, 2025, 10:00 local.
var now = time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

func TestParseCompactDuration(t *testing.T) {
	tests := map[string]time.Time{
		"+6h": now.Add(6 * time.Hour),
		"-6h": now.Add(-6 * time.Hour),
		"-1d": now.AddDate(0, 0, -1),
		"2w":  now.AddDate(0, 0, 14),
		"+1m": now.AddDate(0, 1, 0),
		"-1y": now.AddDate(-1, 0, 0),
	}
	for in, want := range tests {
		got, err := ParseCompactDuration(in, now)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %v, want %v", in, got, want)
	}

	for _, in := range []string{"", "6h+", "++1d", "1x", "tomorrow", "2025-01-15"} {
		_, err := ParseCompactDuration(in, now)
		assert.Error(t, err, in)
		assert.False(t, IsCompactDuration(in), in)
	}
}

func TestParseCompactDurationLeapDay(t *testing.T) {
	got, err := ParseCompactDuration("+1d", time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), got)
}

func TestParseAbsoluteRecordLayout(t *testing.T) {
	got, err := ParseAbsolute("2024-06-30T23:59:58.123456")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 23, 59, 58, 123456000, time.Local), got)

	got, err = ParseAbsolute("2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.Local), got)

	_, err = ParseAbsolute("yesterday")
	assert.Error(t, err)
}

func TestParseNaturalLanguage(t *testing.T) {
	got, err := ParseNaturalLanguage("yesterday", now)
	require.NoError(t, err)
	assert.Equal(t, 14, got.Day())

	got, err = ParseNaturalLanguage("next monday", now)
	require.NoError(t, err)
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 20, got.Day())

	_, err = ParseNaturalLanguage("   ", now)
	assert.Error(t, err)
}

func TestParseRelativeTimeLayers(t *testing.T) {
	// Compact durations win over natural language and keep the clock time.
	got, err := ParseRelativeTime("+1d", now)
	require.NoError(t, err)
	assert.True(t, now.AddDate(0, 0, 1).Equal(got))

	// ISO dates are never handed to the natural language rules.
	got, err = ParseRelativeTime("2025-03-15T14:30:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, 14, got.UTC().Hour())

	got, err = ParseRelativeTime("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, 16, got.Day())

	_, err = ParseRelativeTime("not-a-date", now)
	assert.Error(t, err)
}
