package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeBound(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)

	tests := []struct {
		name     string
		value    string
		loc      *time.Location
		upper    bool
		expected time.Time
	}{
		{"date lower", "2024-02-29", time.UTC, false, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"date upper", "2024-02-29", time.UTC, true, time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)},
		{"date with hour", "2024-02-29T13", time.UTC, true, time.Date(2024, 2, 29, 13, 0, 0, 0, time.UTC)},
		{"rfc3339", "2024-02-29T13:45:00Z", time.UTC, false, time.Date(2024, 2, 29, 13, 45, 0, 0, time.UTC)},
		{"rfc3339 into zone", "2024-02-29T20:00:00Z", bangkok, false, time.Date(2024, 3, 1, 3, 0, 0, 0, bangkok)},
		{"date in zone", " 2024-03-01 ", bangkok, false, time.Date(2024, 3, 1, 0, 0, 0, 0, bangkok)},
		{"nil location", "2024-03-01", nil, false, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeBound(tt.value, tt.loc, tt.upper)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestParseTimeBound_Invalid(t *testing.T) {
	for _, value := range []string{"", "yesterday", "2024-13-01", "2024-02-30", "2024-02-01T25"} {
		_, err := ParseTimeBound(value, time.UTC, false)
		assert.ErrorIs(t, err, ErrInvalidTime, value)
	}
}

func TestParseResolution(t *testing.T) {
	for _, value := range []string{"hour", "Day", " month ", "YEAR"} {
		_, err := ParseResolution(value)
		assert.NoError(t, err, value)
	}
	for _, value := range []string{"decade", "minute", "second", ""} {
		_, err := ParseResolution(value)
		assert.ErrorIs(t, err, ErrInvalidResolution, value)
	}
}
