package availability

import (
	"time"

	"carshare/internal/domain/shared/daterange"
)

type CalendarBlocked struct {
	CarID     string
	Range     daterange.DateRange
	Reason    BlockReason
	Reference string
	At        time.Time
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.CarID }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }

type CalendarReleased struct {
	CarID     string
	Range     daterange.DateRange
	Reason    BlockReason
	Reference string
	At        time.Time
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.CarID }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }

type CalendarOverbookingPrevented struct {
	CarID string
	Range daterange.DateRange
	At    time.Time
}

func (e CalendarOverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e CalendarOverbookingPrevented) AggregateID() string   { return e.CarID }
func (e CalendarOverbookingPrevented) OccurredAt() time.Time { return e.At }
