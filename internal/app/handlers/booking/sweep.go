package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/outbox"
	"carshare/internal/app/policies"
	"carshare/internal/app/uow"
	"carshare/internal/domain/booking"
)

const (
	expirePendingKey    = "booking.sweep.expire"
	completeFinishedKey = "booking.sweep.complete"
)

var ErrInvalidTTL = errors.New("booking: pending ttl must be positive")

// ExpirePendingBookingsCommand expires requests left pending longer than TTL.
type ExpirePendingBookingsCommand struct {
	TTL time.Duration
}

func (ExpirePendingBookingsCommand) Key() string { return expirePendingKey }

func (c ExpirePendingBookingsCommand) Validate() error {
	if c.TTL <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

// CompleteFinishedBookingsCommand completes confirmed rentals whose range has ended.
type CompleteFinishedBookingsCommand struct{}

func (CompleteFinishedBookingsCommand) Key() string { return completeFinishedKey }

type SweepResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// SweepHandler runs each transition in its own unit of work so one bad
// booking does not hold back the rest.
type SweepHandler struct {
	UoWFactory uow.UoWFactory
	Ledger     policies.ReservationLedger
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *SweepHandler) Expire(ctx context.Context, cmd ExpirePendingBookingsCommand) (SweepResult, error) {
	now := h.Clock.Now()
	ids, err := h.candidates(ctx, booking.Filter{
		States:        []booking.State{booking.StatePending},
		CreatedBefore: now.Add(-cmd.TTL),
	})
	if err != nil {
		return SweepResult{}, err
	}
	return h.each(ctx, ids, func(ctx context.Context, unit uow.UnitOfWork, b *booking.Booking) error {
		if err := b.Expire(now); err != nil {
			return err
		}
		return freeCalendar(ctx, unit, b, now, h.Outbox, h.Encoder)
	}, true), nil
}

func (h *SweepHandler) Complete(ctx context.Context, _ CompleteFinishedBookingsCommand) (SweepResult, error) {
	now := h.Clock.Now()
	ids, err := h.candidates(ctx, booking.Filter{States: []booking.State{booking.StateConfirmed}})
	if err != nil {
		return SweepResult{}, err
	}
	return h.each(ctx, ids, func(_ context.Context, _ uow.UnitOfWork, b *booking.Booking) error {
		if now.Before(b.Range.End) {
			return errSkip
		}
		return b.Complete(now)
	}, false), nil
}

var errSkip = errors.New("booking: skip")

func (h *SweepHandler) candidates(ctx context.Context, filter booking.Filter) ([]booking.BookingID, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	found, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]booking.BookingID, 0, len(found))
	for _, b := range found {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (h *SweepHandler) each(ctx context.Context, ids []booking.BookingID, apply func(context.Context, uow.UnitOfWork, *booking.Booking) error, releaseLedger bool) SweepResult {
	var result SweepResult
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		err := h.transition(ctx, id, apply, releaseLedger)
		switch {
		case err == nil:
			result.Processed++
		case errors.Is(err, errSkip), errors.Is(err, booking.ErrInvalidState):
		default:
			result.Failed++
			if h.Logger != nil {
				h.Logger.WarnContext(ctx, "booking sweep failed", "booking_id", id, "err", err)
			}
		}
	}
	return result
}

func (h *SweepHandler) transition(ctx context.Context, id booking.BookingID, apply func(context.Context, uow.UnitOfWork, *booking.Booking) error, releaseLedger bool) (err error) {
	if releaseLedger {
		defer releaseLedgerOnSuccess(ctx, h.Ledger, h.Logger, id, &err)
	}
	unit, execCtx, err := uow.Start(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer uow.Finish(execCtx, unit, true, &err)

	b, err := unit.Bookings().ByID(execCtx, id)
	if err != nil {
		return err
	}
	if err := apply(execCtx, unit, b); err != nil {
		return err
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return err
	}
	return outbox.Drain(execCtx, h.Outbox, h.Encoder, b)
}
