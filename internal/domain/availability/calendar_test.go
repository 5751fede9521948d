package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/domain/shared/daterange"
)

func rng(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	s, err := daterange.ParseDate(start)
	require.NoError(t, err)
	e, err := daterange.ParseDate(end)
	require.NoError(t, err)
	return daterange.DateRange{Start: s, End: e}
}

func TestHasConflict(t *testing.T) {
	existing := []daterange.DateRange{rng(t, "2025-11-01", "2025-11-03")}

	assert.False(t, HasConflict(rng(t, "2025-11-03", "2025-11-05"), existing), "adjacent ranges share no day")
	assert.True(t, HasConflict(rng(t, "2025-11-02", "2025-11-04"), existing))
	assert.True(t, HasConflict(rng(t, "2025-10-30", "2025-11-02"), existing))
	assert.False(t, HasConflict(rng(t, "2025-10-30", "2025-11-01"), existing))
	assert.False(t, HasConflict(rng(t, "2025-11-02", "2025-11-04"), nil))
}

func TestReserveRejectsOverlapAndRecordsPrevention(t *testing.T) {
	now := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	cal := NewCalendar("car-1")

	require.NoError(t, cal.Reserve(rng(t, "2025-11-01", "2025-11-03"), "b1", now))
	require.NoError(t, cal.Reserve(rng(t, "2025-11-03", "2025-11-05"), "b2", now))

	err := cal.Reserve(rng(t, "2025-11-02", "2025-11-04"), "b3", now)
	require.ErrorIs(t, err, ErrConflict)
	assert.Len(t, cal.Blocks, 2)

	var names []string
	for _, ev := range cal.PendingEvents() {
		names = append(names, ev.EventName())
	}
	assert.Equal(t, []string{"calendar.blocked", "calendar.blocked", "calendar.overbooking_prevented"}, names)
}

func TestReleaseFreesRange(t *testing.T) {
	now := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	cal := NewCalendar("car-1")
	r := rng(t, "2025-11-01", "2025-11-03")

	require.NoError(t, cal.Reserve(r, "b1", now))
	assert.False(t, cal.CanReserve(r))
	require.NoError(t, cal.Release("b1", now))
	assert.True(t, cal.CanReserve(r))
	assert.ErrorIs(t, cal.Release("b1", now), ErrRangeNotFound)
}

func TestOwnerBlockParticipatesInConflicts(t *testing.T) {
	now := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	cal := NewCalendar("car-1")

	require.NoError(t, cal.Block(rng(t, "2025-12-01", "2025-12-10"), "service", now))
	assert.ErrorIs(t, cal.Reserve(rng(t, "2025-12-09", "2025-12-12"), "b1", now), ErrConflict)
	assert.ErrorIs(t, cal.Block(rng(t, "2025-12-05", "2025-12-05"), "empty", now), daterange.ErrInvalidRange)
}

func TestBetweenOrdersByStart(t *testing.T) {
	now := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	cal := NewCalendar("car-1")
	require.NoError(t, cal.Reserve(rng(t, "2025-12-01", "2025-12-03"), "late", now))
	require.NoError(t, cal.Reserve(rng(t, "2025-11-01", "2025-11-03"), "early", now))
	require.NoError(t, cal.Reserve(rng(t, "2026-01-01", "2026-01-03"), "outside", now))

	blocks := cal.Between(rng(t, "2025-10-01", "2025-12-31"))
	require.Len(t, blocks, 2)
	assert.Equal(t, "early", blocks[0].Reference)
	assert.Equal(t, "late", blocks[1].Reference)

	assert.Len(t, cal.Between(daterange.DateRange{}), 3)
}

func TestReleaseOwnerBlockLeavesBookingsAlone(t *testing.T) {
	now := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	cal := NewCalendar("car-1")
	require.NoError(t, cal.Reserve(rng(t, "2025-11-01", "2025-11-03"), "bk-1", now))
	require.NoError(t, cal.Block(rng(t, "2025-11-10", "2025-11-12"), "service", now))

	assert.ErrorIs(t, cal.ReleaseOwnerBlock("bk-1", now), ErrRangeNotFound)
	require.NoError(t, cal.ReleaseOwnerBlock("service", now))
	require.Len(t, cal.Blocks, 1)
	assert.Equal(t, ReasonBooking, cal.Blocks[0].Reason)
}
