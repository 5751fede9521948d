package daterange

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	v, err := ParseDate(raw)
	require.NoError(t, err)
	return v
}

func TestParseDate(t *testing.T) {
	t.Run("calendar date", func(t *testing.T) {
		v, err := ParseDate("2025-11-01")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), v)
	})

	t.Run("timestamp is normalized to UTC", func(t *testing.T) {
		v, err := ParseDate("2025-11-01T10:00:00+02:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 11, 1, 8, 0, 0, 0, time.UTC), v)
	})

	for _, raw := range []string{"", "  ", "2025-13-01", "2025-02-30", "11/01/2025", "tomorrow"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ParseDate(raw)
			assert.True(t, errors.Is(err, ErrInvalidDate))
		})
	}
}

func TestNewRejectsEmptyAndReversedRanges(t *testing.T) {
	start := date(t, "2025-11-01")

	_, err := New(start, start)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, start)
	assert.ErrorIs(t, err, ErrInvalidRange)

	dr, err := New(start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, dr.Days())
}

func TestDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"four calendar days", "2025-11-01", "2025-11-05", 4},
		{"single day", "2025-11-01", "2025-11-02", 1},
		{"same calendar day counts as one", "2025-11-01T09:00:00Z", "2025-11-01T18:00:00Z", 1},
		{"partial day rounds up", "2025-11-01T10:00:00Z", "2025-11-02T12:00:00Z", 2},
		{"exact multiple", "2025-11-01T10:00:00Z", "2025-11-03T10:00:00Z", 2},
		{"month boundary", "2025-01-30", "2025-02-02", 3},
		{"nanosecond past a whole day", "2025-11-01T10:00:00Z", "2025-11-02T10:00:00.000000001Z", 2},
		{"longer than a duration can hold", "2025-11-01", "2325-11-01", 109572},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr := DateRange{Start: date(t, tt.start), End: date(t, tt.end)}
			assert.Equal(t, tt.want, dr.Days())
		})
	}
}

func TestOverlaps(t *testing.T) {
	existing := DateRange{Start: date(t, "2025-11-01"), End: date(t, "2025-11-03")}

	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"adjacent after", "2025-11-03", "2025-11-05", false},
		{"adjacent before", "2025-10-30", "2025-11-01", false},
		{"overlapping tail", "2025-11-02", "2025-11-04", true},
		{"contained", "2025-11-01T12:00:00Z", "2025-11-02T00:00:00Z", true},
		{"covering", "2025-10-01", "2025-12-01", true},
		{"disjoint", "2025-12-01", "2025-12-05", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := DateRange{Start: date(t, tt.start), End: date(t, tt.end)}
			assert.Equal(t, tt.want, existing.Overlaps(candidate))
			assert.Equal(t, tt.want, candidate.Overlaps(existing), "overlap must be symmetric")
		})
	}
}

func TestMerge(t *testing.T) {
	a := DateRange{Start: date(t, "2025-11-01"), End: date(t, "2025-11-03")}
	b := DateRange{Start: date(t, "2025-11-03"), End: date(t, "2025-11-06")}

	merged, ok := a.Merge(b)
	require.True(t, ok)
	assert.Equal(t, DateRange{Start: a.Start, End: b.End}, merged)

	_, ok = a.Merge(DateRange{Start: date(t, "2025-12-01"), End: date(t, "2025-12-02")})
	assert.False(t, ok)
}

func TestContains(t *testing.T) {
	outer := DateRange{Start: date(t, "2025-11-01"), End: date(t, "2025-11-10")}
	assert.True(t, outer.Contains(DateRange{Start: date(t, "2025-11-01"), End: date(t, "2025-11-10")}))
	assert.False(t, outer.Contains(DateRange{Start: date(t, "2025-10-31"), End: date(t, "2025-11-02")}))
	assert.True(t, outer.ContainsTime(date(t, "2025-11-01")))
	assert.False(t, outer.ContainsTime(date(t, "2025-11-10")))
}
