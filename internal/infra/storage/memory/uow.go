package memory

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/outbox"
	"carshare/internal/app/uow"
	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
	ErrReadOnly             = errors.New("memory: write in read-only unit of work")
)

// Factory begins units of work over a Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:     f.Store,
		readOnly:  opts.ReadOnly,
		cars:      make(map[cars.CarID]stagedCar),
		calendars: make(map[cars.CarID]stagedCalendar),
		bookings:  make(map[booking.BookingID]stagedBooking),
	}, nil
}

type stagedCar struct {
	origin *cars.Car
	value  *cars.Car
}

type stagedCalendar struct {
	origin *availability.Calendar
	value  *availability.Calendar
}

type stagedBooking struct {
	origin *booking.Booking
	value  *booking.Booking
}

// Unit stages writes and applies them atomically on Commit. Every staged
// aggregate must still carry the version it was loaded with, otherwise the
// commit fails with the aggregate's concurrent update error.
type Unit struct {
	uow.AbortHooks
	uow.CommitHooks

	store    *Store
	readOnly bool

	mu        sync.Mutex
	done      bool
	cars      map[cars.CarID]stagedCar
	calendars map[cars.CarID]stagedCalendar
	bookings  map[booking.BookingID]stagedBooking
	events    []outbox.EventRecord
}

func (u *Unit) Cars() cars.Repository              { return carRepo{u} }
func (u *Unit) Calendars() availability.Repository { return calendarRepo{u} }
func (u *Unit) Bookings() booking.Repository       { return bookingRepo{u} }

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return ErrUnitClosed
	}
	u.done = true
	u.mu.Unlock()

	if err := u.apply(); err != nil {
		u.DropCommit()
		u.RunAbort(ctx)
		return err
	}
	u.Discard()
	u.RunCommit(ctx)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return nil
	}
	u.done = true
	u.mu.Unlock()
	u.DropCommit()
	u.RunAbort(ctx)
	return nil
}

func (u *Unit) apply() error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedKeys(u.cars) {
		staged := u.cars[id]
		if current, ok := s.cars[id]; ok && current.Version != staged.value.Version {
			return cars.ErrConcurrentUpdate
		} else if !ok && staged.value.Version != 0 {
			return cars.ErrConcurrentUpdate
		}
	}
	for _, id := range sortedKeys(u.calendars) {
		staged := u.calendars[id]
		var current int64
		if existing, ok := s.calendars[id]; ok {
			current = existing.Version
		}
		if current != staged.value.Version {
			return availability.ErrConcurrentUpdate
		}
	}
	for _, id := range sortedKeys(u.bookings) {
		staged := u.bookings[id]
		var current int64
		if existing, ok := s.bookings[id]; ok {
			current = existing.Version
		}
		if current != staged.value.Version {
			return booking.ErrConcurrentUpdate
		}
	}

	for _, id := range sortedKeys(u.cars) {
		staged := u.cars[id]
		if _, ok := s.cars[id]; !ok {
			s.carOrder = append(s.carOrder, id)
		}
		staged.value.Version++
		staged.origin.Version = staged.value.Version
		s.cars[id] = staged.value
	}
	for _, id := range sortedKeys(u.calendars) {
		staged := u.calendars[id]
		staged.value.Version++
		staged.origin.Version = staged.value.Version
		s.calendars[id] = staged.value
	}
	for _, id := range sortedKeys(u.bookings) {
		staged := u.bookings[id]
		staged.value.Version++
		staged.origin.Version = staged.value.Version
		s.bookings[id] = staged.value
	}
	if s.outbox != nil && len(u.events) > 0 {
		s.outbox.append(u.events...)
	}
	return nil
}

func (u *Unit) writable() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

// stageEvent keeps an outbox record until the unit commits.
func (u *Unit) stageEvent(rec outbox.EventRecord) error {
	if err := u.writable(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.events = append(u.events, rec)
	return nil
}

type carRepo struct{ u *Unit }

func (r carRepo) ByID(_ context.Context, id cars.CarID) (*cars.Car, error) {
	r.u.mu.Lock()
	staged, ok := r.u.cars[id]
	r.u.mu.Unlock()
	if ok {
		return cloneCar(staged.value), nil
	}
	return r.u.store.car(id)
}

func (r carRepo) Save(_ context.Context, car *cars.Car) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.cars[car.ID] = stagedCar{origin: car, value: cloneCar(car)}
	return nil
}

func (r carRepo) Search(_ context.Context, params cars.SearchParams) (cars.SearchResult, error) {
	return cars.Search(r.u.store.catalog(), params), nil
}

type calendarRepo struct{ u *Unit }

func (r calendarRepo) Calendar(_ context.Context, id cars.CarID) (*availability.Calendar, error) {
	r.u.mu.Lock()
	staged, ok := r.u.calendars[id]
	r.u.mu.Unlock()
	if ok {
		return cloneCalendar(staged.value), nil
	}
	return r.u.store.calendar(id), nil
}

func (r calendarRepo) Save(_ context.Context, calendar *availability.Calendar) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.calendars[calendar.CarID] = stagedCalendar{origin: calendar, value: cloneCalendar(calendar)}
	return nil
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(_ context.Context, id booking.BookingID) (*booking.Booking, error) {
	r.u.mu.Lock()
	staged, ok := r.u.bookings[id]
	r.u.mu.Unlock()
	if ok {
		return cloneBooking(staged.value), nil
	}
	return r.u.store.booking(id)
}

func (r bookingRepo) Save(_ context.Context, b *booking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.bookings[b.ID] = stagedBooking{origin: b, value: cloneBooking(b)}
	return nil
}

func (r bookingRepo) List(_ context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	return r.u.store.listBookings(filter), nil
}

var (
	_ uow.UoWFactory  = Factory{}
	_ uow.UnitOfWork  = (*Unit)(nil)
	_ uow.Compensator = (*Unit)(nil)
	_ uow.Committer   = (*Unit)(nil)
)
