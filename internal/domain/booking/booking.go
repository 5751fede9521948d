package booking

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"carshare/internal/domain/cars"
	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/daterange"
	"carshare/internal/domain/shared/events"
	"carshare/internal/domain/shared/money"
)

var (
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrNotFound         = errors.New("booking: not found")
	ErrRenterRequired   = errors.New("booking: renter id required")
	ErrOwnBooking       = errors.New("booking: owners cannot book their own car")
	ErrTotalRequired    = errors.New("booking: total must be positive")
	ErrConcurrentUpdate = errors.New("booking: concurrent update")
)

type BookingID string

type State string

const (
	StatePending   State = "PENDING"
	StateConfirmed State = "CONFIRMED"
	StateDeclined  State = "DECLINED"
	StateExpired   State = "EXPIRED"
	StateCancelled State = "CANCELLED"
	StateCompleted State = "COMPLETED"
)

// Active states hold the car's calendar.
func (s State) Active() bool {
	return s == StatePending || s == StateConfirmed
}

type Booking struct {
	ID         BookingID
	CarID      cars.CarID
	OwnerID    cars.OwnerID
	RenterID   string
	RenterTier string
	Range      daterange.DateRange
	// Price is the quote accepted at creation; it never follows later car
	// price changes.
	Price     pricing.Quote
	State     State
	Policy    CancellationPolicySnapshot
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

// Filter selects bookings; zero fields match everything.
type Filter struct {
	RenterID      string
	OwnerID       cars.OwnerID
	CarID         cars.CarID
	States        []State
	CreatedBefore time.Time
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	List(ctx context.Context, filter Filter) ([]*Booking, error)
}

type CreateParams struct {
	ID         BookingID
	Car        *cars.Car
	RenterID   string
	RenterTier string
	Quote      pricing.Quote
	Policy     CancellationPolicySnapshot
	Note       string
	CreatedAt  time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.RenterID) == "" {
		return nil, ErrRenterRequired
	}
	if params.Car == nil {
		return nil, cars.ErrNotFound
	}
	if string(params.Car.Owner) == params.RenterID {
		return nil, ErrOwnBooking
	}
	if params.Quote.Total.Amount <= 0 {
		return nil, ErrTotalRequired
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		CarID:      params.Car.ID,
		OwnerID:    params.Car.Owner,
		RenterID:   params.RenterID,
		RenterTier: params.RenterTier,
		Range:      params.Quote.Range,
		Price:      params.Quote,
		State:      StatePending,
		Policy:     params.Policy,
		Note:       strings.TrimSpace(params.Note),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Price.CarID = string(params.Car.ID)
	b.Record(BookingRequested{
		BookingID: b.ID,
		CarID:     b.CarID,
		OwnerID:   b.OwnerID,
		RenterID:  b.RenterID,
		Range:     b.Range,
		Total:     b.Price.Total,
		At:        now,
	})
	return b, nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.transition(StateConfirmed, now)
	b.Record(BookingConfirmed{BookingID: b.ID, CarID: b.CarID, Range: b.Range, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Decline(reason string, now time.Time) error {
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.transition(StateDeclined, now)
	b.Record(BookingDeclined{BookingID: b.ID, Reason: strings.TrimSpace(reason), At: b.UpdatedAt})
	return nil
}

// Expire closes a request the owner never answered.
func (b *Booking) Expire(now time.Time) error {
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.transition(StateExpired, now)
	b.Record(BookingExpired{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// Cancel is initiated by the renter and applies the cancellation policy.
func (b *Booking) Cancel(reason string, now time.Time) (refund, penalty money.Money, err error) {
	if !b.State.Active() {
		return money.Money{}, money.Money{}, ErrInvalidState
	}
	if b.State == StatePending {
		refund, penalty = b.Price.Total, money.Money{Currency: b.Price.Total.Currency}
	} else {
		refund, penalty, err = b.Policy.CalculateRefund(b.Price.Total, now, b.Range.Start)
		if err != nil {
			return money.Money{}, money.Money{}, err
		}
	}
	b.transition(StateCancelled, now)
	b.Record(BookingCancelled{BookingID: b.ID, Refund: refund, Penalty: penalty, Reason: strings.TrimSpace(reason), At: b.UpdatedAt})
	return refund, penalty, nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.State != StateConfirmed {
		return ErrInvalidState
	}
	if now.Before(b.Range.End) {
		return errors.Wrap(ErrInvalidState, "rental has not ended")
	}
	b.transition(StateCompleted, now)
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) transition(to State, now time.Time) {
	b.State = to
	b.UpdatedAt = now.UTC()
}

func (f Filter) Matches(b *Booking) bool {
	if b == nil {
		return false
	}
	if f.RenterID != "" && b.RenterID != f.RenterID {
		return false
	}
	if f.OwnerID != "" && b.OwnerID != f.OwnerID {
		return false
	}
	if f.CarID != "" && b.CarID != f.CarID {
		return false
	}
	if len(f.States) > 0 && !slices.Contains(f.States, b.State) {
		return false
	}
	if !f.CreatedBefore.IsZero() && !b.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}
