package booking

import (
	"context"
	"log/slog"
	"strings"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/app/outbox"
	"carshare/internal/app/policies"
	"carshare/internal/app/uow"
	"carshare/internal/domain/booking"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID string
	RenterID  string
	Reason    string
}

func (CancelBookingCommand) Key() string             { return cancelBookingKey }
func (CancelBookingCommand) RequiredRole() auth.Role { return auth.RoleRenter }

func (c CancelBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return ErrBookingIDRequired
	}
	return nil
}

type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Ledger     policies.ReservationLedger
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (_ dto.Cancellation, err error) {
	id := booking.BookingID(strings.TrimSpace(cmd.BookingID))
	defer releaseLedgerOnSuccess(ctx, h.Ledger, h.Logger, id, &err)

	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Cancellation{}, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	b, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return dto.Cancellation{}, err
	}
	if cmd.RenterID != "" && b.RenterID != cmd.RenterID {
		return dto.Cancellation{}, ErrNotParticipant
	}
	now := h.Clock.Now()
	refund, penalty, err := b.Cancel(cmd.Reason, now)
	if err != nil {
		return dto.Cancellation{}, err
	}
	if err := freeCalendar(ctx, unit, b, now, h.Outbox, h.Encoder); err != nil {
		return dto.Cancellation{}, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return dto.Cancellation{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b); err != nil {
		return dto.Cancellation{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "refund", refund.String(), "penalty", penalty.String())
	}
	return dto.Cancellation{
		BookingID: string(b.ID),
		Status:    string(b.State),
		Refund:    dto.MapAmount(refund),
		Penalty:   dto.MapAmount(penalty),
		Currency:  refund.Currency,
	}, nil
}
