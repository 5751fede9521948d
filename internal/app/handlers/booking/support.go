package booking

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
)

var (
	ErrBookingIDRequired = errors.New("booking: booking id is required")
	// ErrNotParticipant is reported as forbidden.
	ErrNotParticipant = errors.Mark(errors.New("booking: caller is not a participant of this booking"), auth.ErrForbidden)
	ErrInvalidStatus  = errors.New("booking: unknown status filter")
)

// parseStatuses turns "pending,confirmed" into states; empty means all.
func parseStatuses(raw string) ([]booking.State, error) {
	var out []booking.State
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" || part == "ALL" {
			continue
		}
		state := booking.State(part)
		switch state {
		case booking.StatePending, booking.StateConfirmed, booking.StateDeclined,
			booking.StateExpired, booking.StateCancelled, booking.StateCompleted:
		default:
			return nil, errors.Wrapf(ErrInvalidStatus, "%q", part)
		}
		if !slices.Contains(out, state) {
			out = append(out, state)
		}
	}
	return out, nil
}

// mapBookings renders bookings newest first with a snapshot of their car.
func mapBookings(ctx context.Context, repo cars.Repository, bookings []*booking.Booking, logger *slog.Logger) dto.BookingCollection {
	slices.SortStableFunc(bookings, func(a, b *booking.Booking) int { return b.CreatedAt.Compare(a.CreatedAt) })
	cache := make(map[cars.CarID]*cars.Car)
	items := make([]dto.Booking, 0, len(bookings))
	for _, b := range bookings {
		car, ok := cache[b.CarID]
		if !ok {
			loaded, err := repo.ByID(ctx, b.CarID)
			if err != nil && logger != nil {
				logger.WarnContext(ctx, "car snapshot missing for booking", "booking_id", b.ID, "car_id", b.CarID, "err", err)
			}
			car = loaded
			cache[b.CarID] = car
		}
		items = append(items, dto.MapBooking(b, car))
	}
	return dto.BookingCollection{Items: items}
}
