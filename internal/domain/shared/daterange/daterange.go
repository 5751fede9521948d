package daterange

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidRange = errors.New("daterange: end must be after start")
	ErrInvalidDate  = errors.New("daterange: invalid date")
)

const (
	secondsPerDay = 24 * 60 * 60
	dateLayout    = "2006-01-02"
)

// DateRange represents a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: start.UTC(), End: end.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// Timestamps are converted to UTC, and every calendar-day rule downstream
// (the past-start check, day counting) uses the UTC date: on 2025-10-20,
// 2025-10-20T00:30:00+02:00 is 2025-10-19 and counts as past.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errors.Wrap(ErrInvalidDate, "empty value")
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidDate, "%q", value)
	}
	return t.UTC(), nil
}

func (dr DateRange) Validate() error {
	if dr.End.IsZero() || dr.Start.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days counts started 24h periods, never less than one. The span is taken
// in whole seconds plus nanoseconds, so ranges longer than time.Duration can
// hold are still counted exactly.
func (dr DateRange) Days() int {
	secs := dr.End.Unix() - dr.Start.Unix()
	nanos := dr.End.Nanosecond() - dr.Start.Nanosecond()
	if nanos < 0 {
		secs--
		nanos += int(time.Second)
	}
	if secs < 0 || (secs == 0 && nanos == 0) {
		return 1
	}
	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 || nanos > 0 {
		days++
	}
	if days < 1 {
		return 1
	}
	return int(days)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.Start.Before(dr.Start) && !other.End.After(dr.End)
}

func (dr DateRange) ContainsTime(t time.Time) bool {
	t = t.UTC()
	return !t.Before(dr.Start) && t.Before(dr.End)
}

func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.End.Equal(other.Start) || dr.Start.Equal(other.End)
}

func (dr DateRange) Merge(other DateRange) (DateRange, bool) {
	if !(dr.Overlaps(other) || dr.Adjacent(other)) {
		return DateRange{}, false
	}
	start := dr.Start
	if other.Start.Before(start) {
		start = other.Start
	}
	end := dr.End
	if other.End.After(end) {
		end = other.End
	}
	return DateRange{Start: start, End: end}, true
}

// StartDate returns the calendar day (UTC midnight) the range begins on.
func (dr DateRange) StartDate() time.Time {
	return TruncateDay(dr.Start)
}

func TruncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
