package booking

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"carshare/internal/app/auth"
	"carshare/internal/app/commands"
	"carshare/internal/app/dto"
	"carshare/internal/app/handlers/quotes"
	"carshare/internal/app/middleware"
	"carshare/internal/app/outbox"
	"carshare/internal/app/policies"
	"carshare/internal/app/uow"
	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/membership"
)

const requestBookingKey = "booking.request"

// RequestBookingCommand asks to rent a car. Fee rates always come from the
// renter's membership tier.
type RequestBookingCommand struct {
	BookingID       string
	CarID           string
	RenterID        string
	RenterTier      string
	StartDate       string
	EndDate         string
	Note            string
	IdempotencyKeyV string
}

func (RequestBookingCommand) Key() string              { return requestBookingKey }
func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (RequestBookingCommand) ResultPrototype() any     { return &dto.Booking{} }
func (RequestBookingCommand) RequiredRole() auth.Role  { return auth.RoleRenter }

func (c RequestBookingCommand) Validate() error {
	if strings.TrimSpace(c.CarID) == "" {
		return quotes.ErrCarRequired
	}
	if strings.TrimSpace(c.RenterID) == "" {
		return booking.ErrRenterRequired
	}
	return nil
}

type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Quoter     quotes.Quoter
	Ledger     policies.ReservationLedger
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (_ *dto.Booking, err error) {
	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	car, err := unit.Cars().ByID(ctx, cars.CarID(strings.TrimSpace(cmd.CarID)))
	if err != nil {
		return nil, err
	}
	if !car.Bookable() {
		return nil, cars.ErrNotFound
	}

	quote, err := h.Quoter.Quote(car, cmd.StartDate, cmd.EndDate, membership.ParseTier(cmd.RenterTier), quotes.Overrides{})
	if err != nil {
		return nil, err
	}

	id := booking.BookingID(strings.TrimSpace(cmd.BookingID))
	if id == "" {
		id = booking.BookingID(uuid.NewString())
	}
	now := h.Clock.Now()

	calendar, err := unit.Calendars().Calendar(ctx, car.ID)
	if err != nil {
		return nil, err
	}
	if err := calendar.Reserve(quote.Range, string(id), now); err != nil {
		if errors.Is(err, availability.ErrConflict) && h.Logger != nil {
			h.Logger.InfoContext(ctx, "overbooking prevented", "car_id", car.ID, "start", quote.Range.Start, "end", quote.Range.End, "renter_id", cmd.RenterID)
		}
		return nil, err
	}

	b, err := booking.NewBooking(booking.CreateParams{
		ID:         id,
		Car:        car,
		RenterID:   cmd.RenterID,
		RenterTier: string(membership.ParseTier(cmd.RenterTier)),
		Quote:      quote,
		Policy:     booking.PolicyFor(car.CancellationPolicyID, quote.Range.Start),
		Note:       cmd.Note,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	if h.Ledger != nil {
		if err := h.Ledger.Hold(ctx, car.ID, b.ID, b.Range); err != nil {
			return nil, err
		}
		release := func(ctx context.Context) {
			if relErr := h.Ledger.Release(ctx, b.ID); relErr != nil && h.Logger != nil {
				h.Logger.ErrorContext(ctx, "ledger release failed", "booking_id", b.ID, "err", relErr)
			}
		}
		if !uow.OnAbort(unit, release) {
			defer func() {
				if err != nil {
					release(ctx)
				}
			}()
		}
	}

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := unit.Calendars().Save(ctx, calendar); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b, calendar); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking requested", "booking_id", b.ID, "car_id", car.ID, "total", b.Price.Total.String())
	}
	result := dto.MapBooking(b, car)
	return &result, nil
}

var (
	_ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
	_ middleware.IdempotentCommand                          = RequestBookingCommand{}
	_ middleware.RoleRestricted                             = RequestBookingCommand{}
)
