package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/app/outbox"
	"carshare/internal/app/policies"
	"carshare/internal/app/uow"
	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
)

const (
	confirmBookingKey = "booking.owner.confirm"
	declineBookingKey = "booking.owner.decline"
)

type ConfirmOwnerBookingCommand struct {
	BookingID string
	OwnerID   string
}

func (ConfirmOwnerBookingCommand) Key() string             { return confirmBookingKey }
func (ConfirmOwnerBookingCommand) RequiredRole() auth.Role { return auth.RoleOwner }

func (c ConfirmOwnerBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return ErrBookingIDRequired
	}
	return nil
}

type DeclineOwnerBookingCommand struct {
	BookingID string
	OwnerID   string
	Reason    string
}

func (DeclineOwnerBookingCommand) Key() string             { return declineBookingKey }
func (DeclineOwnerBookingCommand) RequiredRole() auth.Role { return auth.RoleOwner }

func (c DeclineOwnerBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return ErrBookingIDRequired
	}
	return nil
}

// OwnerDecisionHandler answers pending requests on behalf of the car owner.
type OwnerDecisionHandler struct {
	UoWFactory uow.UoWFactory
	Ledger     policies.ReservationLedger
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *OwnerDecisionHandler) Confirm(ctx context.Context, cmd ConfirmOwnerBookingCommand) (_ dto.Booking, err error) {
	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Booking{}, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	b, err := loadOwned(ctx, unit, cmd.BookingID, cmd.OwnerID)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := b.Confirm(h.Clock.Now()); err != nil {
		return dto.Booking{}, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return dto.Booking{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b); err != nil {
		return dto.Booking{}, err
	}
	car, _ := unit.Cars().ByID(ctx, b.CarID)
	return dto.MapBooking(b, car), nil
}

func (h *OwnerDecisionHandler) Decline(ctx context.Context, cmd DeclineOwnerBookingCommand) (_ dto.Booking, err error) {
	defer releaseLedgerOnSuccess(ctx, h.Ledger, h.Logger, booking.BookingID(strings.TrimSpace(cmd.BookingID)), &err)

	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Booking{}, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	b, err := loadOwned(ctx, unit, cmd.BookingID, cmd.OwnerID)
	if err != nil {
		return dto.Booking{}, err
	}
	now := h.Clock.Now()
	if err := b.Decline(cmd.Reason, now); err != nil {
		return dto.Booking{}, err
	}
	if err := freeCalendar(ctx, unit, b, now, h.Outbox, h.Encoder); err != nil {
		return dto.Booking{}, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return dto.Booking{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b); err != nil {
		return dto.Booking{}, err
	}
	car, _ := unit.Cars().ByID(ctx, b.CarID)
	return dto.MapBooking(b, car), nil
}

func loadOwned(ctx context.Context, unit uow.UnitOfWork, id, ownerID string) (*booking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, booking.BookingID(strings.TrimSpace(id)))
	if err != nil {
		return nil, err
	}
	if ownerID != "" && string(b.OwnerID) != ownerID {
		return nil, ErrNotParticipant
	}
	return b, nil
}

// freeCalendar drops the booking's block from its car calendar. A missing
// block is tolerated so stale calendars never prevent a state change.
func freeCalendar(ctx context.Context, unit uow.UnitOfWork, b *booking.Booking, now time.Time, box outbox.Outbox, enc outbox.EventEncoder) error {
	calendar, err := unit.Calendars().Calendar(ctx, b.CarID)
	if err != nil {
		return err
	}
	if err := calendar.Release(string(b.ID), now); err != nil {
		if errors.Is(err, availability.ErrRangeNotFound) {
			return nil
		}
		return err
	}
	if err := unit.Calendars().Save(ctx, calendar); err != nil {
		return err
	}
	return outbox.Drain(ctx, box, enc, calendar)
}

// releaseLedgerOnSuccess must be deferred before uow.Finish so it observes
// the handler result. When an outer unit owns the transaction the release
// waits for its commit.
func releaseLedgerOnSuccess(ctx context.Context, ledger policies.ReservationLedger, logger *slog.Logger, id booking.BookingID, errp *error) {
	if ledger == nil || *errp != nil || id == "" {
		return
	}
	release := func(ctx context.Context) {
		if err := ledger.Release(ctx, id); err != nil && logger != nil {
			logger.ErrorContext(ctx, "ledger release failed", "booking_id", id, "err", err)
		}
	}
	if unit, ok := uow.FromContext(ctx); ok && uow.AfterCommit(unit, release) {
		return
	}
	release(context.WithoutCancel(ctx))
}
