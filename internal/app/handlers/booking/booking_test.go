package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/app/handlers/quotes"
	"carshare/internal/app/policies"
	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/membership"
	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/daterange"
	"carshare/internal/domain/shared/money"
	"carshare/internal/infra/storage/memory"
)

var now = time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

type fakeLedger struct {
	mu       sync.Mutex
	held     map[booking.BookingID]daterange.DateRange
	released []booking.BookingID
	holdErr  error
}

func (l *fakeLedger) Hold(_ context.Context, _ cars.CarID, id booking.BookingID, r daterange.DateRange) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holdErr != nil {
		return l.holdErr
	}
	if l.held == nil {
		l.held = make(map[booking.BookingID]daterange.DateRange)
	}
	l.held[id] = r
	return nil
}

func (l *fakeLedger) Release(_ context.Context, id booking.BookingID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
	l.released = append(l.released, id)
	return nil
}

type fixture struct {
	store   *memory.Store
	outbox  *memory.Outbox
	ledger  *fakeLedger
	clock   *time.Time
	request *RequestBookingHandler
	owner   *OwnerDecisionHandler
	cancel  *CancelBookingHandler
	sweep   *SweepHandler
	list    *ListBookingsHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.Seed(
		&cars.Car{ID: "car-1", Owner: "owner-1", Make: "Toyota", Model: "Corolla", PricePerDay: money.Must(5000, "USD"), CancellationPolicyID: booking.PolicyModerate, State: cars.StateActive},
		&cars.Car{ID: "car-draft", Owner: "owner-1", Make: "Kia", Model: "Rio", PricePerDay: money.Must(3000, "USD"), State: cars.StateDraft},
	)
	box := memory.NewOutbox()
	box.Attach(store)
	current := now
	clock := policies.Clock(func() time.Time { return current })
	factory := memory.Factory{Store: store}
	ledger := &fakeLedger{}
	rates := membership.DefaultTable(pricing.DefaultRates, "USD")
	return &fixture{
		store:   store,
		outbox:  box,
		ledger:  ledger,
		clock:   &current,
		request: &RequestBookingHandler{UoWFactory: factory, Quoter: quotes.Quoter{Rates: rates, Clock: clock}, Ledger: ledger, Outbox: box, Clock: clock},
		owner:   &OwnerDecisionHandler{UoWFactory: factory, Ledger: ledger, Outbox: box, Clock: clock},
		cancel:  &CancelBookingHandler{UoWFactory: factory, Ledger: ledger, Outbox: box, Clock: clock},
		sweep:   &SweepHandler{UoWFactory: factory, Ledger: ledger, Outbox: box, Clock: clock},
		list:    &ListBookingsHandler{UoWFactory: factory},
	}
}

func (f *fixture) book(t *testing.T, id, start, end string) *dto.Booking {
	t.Helper()
	res, err := f.request.Handle(context.Background(), RequestBookingCommand{
		BookingID: id, CarID: "car-1", RenterID: "renter-1", StartDate: start, EndDate: end,
	})
	require.NoError(t, err)
	return res
}

func eventNames(box *memory.Outbox) []string {
	var out []string
	for _, rec := range box.Records() {
		out = append(out, rec.Name)
	}
	return out
}

func TestRequestBookingSnapshotsQuote(t *testing.T) {
	f := newFixture(t)
	res := f.book(t, "bk-1", "2025-11-01", "2025-11-05")

	assert.Equal(t, "PENDING", res.Status)
	assert.Equal(t, 4, res.Price.TotalDays)
	assert.Equal(t, dto.Amount(23000), res.Price.Total)
	assert.Equal(t, "Toyota Corolla", res.Car.Name)
	assert.Equal(t, booking.PolicyModerate, res.CancellationPolicy)
	assert.Contains(t, f.ledger.held, booking.BookingID("bk-1"))
	assert.Equal(t, []string{"booking.requested", "calendar.blocked"}, eventNames(f.outbox))
}

func TestRequestBookingUsesMembershipRates(t *testing.T) {
	f := newFixture(t)
	res, err := f.request.Handle(context.Background(), RequestBookingCommand{
		BookingID: "bk-1", CarID: "car-1", RenterID: "renter-1", RenterTier: "premium",
		StartDate: "2025-11-01", EndDate: "2025-11-05",
	})
	require.NoError(t, err)
	// 200.00 + 5% service fee + 3% insurance
	assert.Equal(t, dto.Amount(21600), res.Price.Total)
}

func TestRequestBookingRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	f.book(t, "bk-1", "2025-11-01", "2025-11-05")

	_, err := f.request.Handle(context.Background(), RequestBookingCommand{
		BookingID: "bk-2", CarID: "car-1", RenterID: "renter-2", StartDate: "2025-11-04", EndDate: "2025-11-06",
	})
	assert.ErrorIs(t, err, availability.ErrConflict)
	assert.NotContains(t, f.ledger.held, booking.BookingID("bk-2"))

	adjacent := f.book(t, "bk-3", "2025-11-05", "2025-11-07")
	assert.Equal(t, "PENDING", adjacent.Status)
}

func TestRequestBookingValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		cmd  RequestBookingCommand
		want error
	}{
		{"past start", RequestBookingCommand{CarID: "car-1", RenterID: "r", StartDate: "2025-10-19", EndDate: "2025-10-22"}, pricing.ErrStartDateInPast},
		{"reversed range", RequestBookingCommand{CarID: "car-1", RenterID: "r", StartDate: "2025-11-05", EndDate: "2025-11-01"}, pricing.ErrInvalidRange},
		{"bad date", RequestBookingCommand{CarID: "car-1", RenterID: "r", StartDate: "soon", EndDate: "2025-11-01"}, pricing.ErrInvalidDate},
		{"unknown car", RequestBookingCommand{CarID: "nope", RenterID: "r", StartDate: "2025-11-01", EndDate: "2025-11-05"}, cars.ErrNotFound},
		{"draft car", RequestBookingCommand{CarID: "car-draft", RenterID: "r", StartDate: "2025-11-01", EndDate: "2025-11-05"}, cars.ErrNotFound},
		{"own car", RequestBookingCommand{CarID: "car-1", RenterID: "owner-1", StartDate: "2025-11-01", EndDate: "2025-11-05"}, booking.ErrOwnBooking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.request.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.outbox.Records())
}

func TestLedgerConflictRollsBackCalendar(t *testing.T) {
	f := newFixture(t)
	f.ledger.holdErr = availability.ErrConflict

	_, err := f.request.Handle(context.Background(), RequestBookingCommand{
		BookingID: "bk-1", CarID: "car-1", RenterID: "renter-1", StartDate: "2025-11-01", EndDate: "2025-11-05",
	})
	require.ErrorIs(t, err, availability.ErrConflict)

	f.ledger.holdErr = nil
	res := f.book(t, "bk-2", "2025-11-01", "2025-11-05")
	assert.Equal(t, "bk-2", res.ID)
}

func TestOwnerConfirmAndDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "bk-1", "2025-11-01", "2025-11-05")
	f.book(t, "bk-2", "2025-11-10", "2025-11-12")

	_, err := f.owner.Confirm(ctx, ConfirmOwnerBookingCommand{BookingID: "bk-1", OwnerID: "someone-else"})
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	confirmed, err := f.owner.Confirm(ctx, ConfirmOwnerBookingCommand{BookingID: "bk-1", OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)

	_, err = f.owner.Decline(ctx, DeclineOwnerBookingCommand{BookingID: "bk-1", OwnerID: "owner-1"})
	assert.ErrorIs(t, err, booking.ErrInvalidState)

	declined, err := f.owner.Decline(ctx, DeclineOwnerBookingCommand{BookingID: "bk-2", OwnerID: "owner-1", Reason: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, "DECLINED", declined.Status)
	assert.Equal(t, []booking.BookingID{"bk-2"}, f.ledger.released)

	// the declined range is free again
	f.book(t, "bk-3", "2025-11-10", "2025-11-12")
}

func TestCancelAppliesPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "bk-1", "2025-11-01", "2025-11-05")

	_, err := f.cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", RenterID: "intruder"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = f.owner.Confirm(ctx, ConfirmOwnerBookingCommand{BookingID: "bk-1", OwnerID: "owner-1"})
	require.NoError(t, err)

	// moderate: free until five days before start, 50% afterwards
	*f.clock = time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)
	res, err := f.cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", RenterID: "renter-1"})
	require.NoError(t, err)
	assert.Equal(t, dto.Cancellation{BookingID: "bk-1", Status: "CANCELLED", Refund: 11500, Penalty: 11500, Currency: "USD"}, res)
	assert.Equal(t, []booking.BookingID{"bk-1"}, f.ledger.released)

	_, err = f.cancel.Handle(ctx, CancelBookingCommand{BookingID: "bk-1", RenterID: "renter-1"})
	assert.ErrorIs(t, err, booking.ErrInvalidState)
}

func TestSweepExpiresStalePendingBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "bk-old", "2025-11-01", "2025-11-05")
	*f.clock = now.Add(30 * time.Hour)
	f.book(t, "bk-new", "2025-11-10", "2025-11-12")

	res, err := f.sweep.Expire(ctx, ExpirePendingBookingsCommand{TTL: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Processed: 1}, res)

	list, err := f.list.Renter(ctx, ListRenterBookingsQuery{RenterID: "renter-1", Status: "expired"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "bk-old", list.Items[0].ID)
	assert.Equal(t, []booking.BookingID{"bk-old"}, f.ledger.released)
}

func TestSweepCompletesFinishedRentals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "bk-1", "2025-11-01", "2025-11-05")
	_, err := f.owner.Confirm(ctx, ConfirmOwnerBookingCommand{BookingID: "bk-1", OwnerID: "owner-1"})
	require.NoError(t, err)

	res, err := f.sweep.Complete(ctx, CompleteFinishedBookingsCommand{})
	require.NoError(t, err)
	assert.Zero(t, res.Processed)

	*f.clock = time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
	res, err = f.sweep.Complete(ctx, CompleteFinishedBookingsCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "bk-1", "2025-11-01", "2025-11-05")
	*f.clock = now.Add(time.Hour)
	f.book(t, "bk-2", "2025-11-10", "2025-11-12")

	owner, err := f.list.Owner(ctx, ListOwnerBookingsQuery{OwnerID: "owner-1"})
	require.NoError(t, err)
	require.Len(t, owner.Items, 2)
	assert.Equal(t, "bk-2", owner.Items[0].ID, "newest first")

	all, err := f.list.All(ctx, ListAllBookingsQuery{Status: "pending,confirmed"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	_, err = f.list.All(ctx, ListAllBookingsQuery{Status: "archived"})
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	none, err := f.list.Renter(ctx, ListRenterBookingsQuery{RenterID: "renter-9"})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
}
