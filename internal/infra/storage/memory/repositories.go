package memory

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"carshare/internal/domain/availability"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/shared/events"
)

// Store keeps committed aggregates. Callers only ever see clones, so state
// changes reach the store through a Unit commit.
type Store struct {
	mu        sync.RWMutex
	cars      map[cars.CarID]*cars.Car
	carOrder  []cars.CarID
	calendars map[cars.CarID]*availability.Calendar
	bookings  map[booking.BookingID]*booking.Booking
	outbox    *Outbox
}

func NewStore() *Store {
	return &Store{
		cars:      make(map[cars.CarID]*cars.Car),
		calendars: make(map[cars.CarID]*availability.Calendar),
		bookings:  make(map[booking.BookingID]*booking.Booking),
	}
}

// Seed stores cars directly, bypassing version checks. Used for fixtures.
func (s *Store) Seed(items ...*cars.Car) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, car := range items {
		if car == nil {
			continue
		}
		if _, ok := s.cars[car.ID]; !ok {
			s.carOrder = append(s.carOrder, car.ID)
		}
		s.cars[car.ID] = cloneCar(car)
	}
}

func (s *Store) car(id cars.CarID) (*cars.Car, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	car, ok := s.cars[id]
	if !ok {
		return nil, cars.ErrNotFound
	}
	return cloneCar(car), nil
}

// catalog returns clones of all cars in insertion order.
func (s *Store) catalog() []*cars.Car {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*cars.Car, 0, len(s.carOrder))
	for _, id := range s.carOrder {
		out = append(out, cloneCar(s.cars[id]))
	}
	return out
}

func (s *Store) calendar(id cars.CarID) *availability.Calendar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cal, ok := s.calendars[id]; ok {
		return cloneCalendar(cal)
	}
	return availability.NewCalendar(id)
}

func (s *Store) booking(id booking.BookingID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *Store) listBookings(filter booking.Filter) []*booking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*booking.Booking, 0)
	for _, b := range s.bookings {
		if filter.Matches(b) {
			out = append(out, cloneBooking(b))
		}
	}
	slices.SortFunc(out, func(a, b *booking.Booking) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func cloneCar(c *cars.Car) *cars.Car {
	cp := *c
	cp.EventRecorder = events.EventRecorder{}
	cp.Features = slices.Clone(c.Features)
	cp.Photos = slices.Clone(c.Photos)
	if c.Insurance != nil {
		ins := *c.Insurance
		cp.Insurance = &ins
	}
	return &cp
}

func cloneCalendar(c *availability.Calendar) *availability.Calendar {
	cp := *c
	cp.EventRecorder = events.EventRecorder{}
	cp.Blocks = slices.Clone(c.Blocks)
	return &cp
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	cp := *b
	cp.EventRecorder = events.EventRecorder{}
	return &cp
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
