package policies

import (
	"context"
	"io"
	"time"

	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/membership"
	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/daterange"
)

// RatesPolicy resolves the fee rates for a renter's membership tier.
type RatesPolicy interface {
	RatesFor(tier membership.Tier) pricing.Rates
}

// ReservationLedger is an optional second line of defense against double
// booking, backed by a store that enforces non-overlap itself. Hold returns
// availability.ErrConflict when the range is taken.
type ReservationLedger interface {
	Hold(ctx context.Context, carID cars.CarID, bookingID booking.BookingID, r daterange.DateRange) error
	Release(ctx context.Context, bookingID booking.BookingID) error
}

// PhotoStorage persists car photos and returns their public URL.
type PhotoStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// Clock is injected into handlers that depend on the current time. The zero
// value reads the system clock.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
