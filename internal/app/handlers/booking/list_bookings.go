package booking

import (
	"context"
	"log/slog"
	"strings"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/app/uow"
	"carshare/internal/domain/booking"
	"carshare/internal/domain/cars"
)

type ListRenterBookingsQuery struct {
	RenterID string
	Status   string
}

func (ListRenterBookingsQuery) Key() string             { return "booking.list.renter" }
func (ListRenterBookingsQuery) RequiredRole() auth.Role { return auth.RoleRenter }

func (q ListRenterBookingsQuery) Validate() error {
	if strings.TrimSpace(q.RenterID) == "" {
		return booking.ErrRenterRequired
	}
	return nil
}

type ListOwnerBookingsQuery struct {
	OwnerID string
	CarID   string
	Status  string
}

func (ListOwnerBookingsQuery) Key() string             { return "booking.list.owner" }
func (ListOwnerBookingsQuery) RequiredRole() auth.Role { return auth.RoleOwner }

func (q ListOwnerBookingsQuery) Validate() error {
	if strings.TrimSpace(q.OwnerID) == "" {
		return auth.ErrUnauthenticated
	}
	return nil
}

type ListAllBookingsQuery struct {
	CarID  string
	Status string
}

func (ListAllBookingsQuery) Key() string             { return "booking.list.all" }
func (ListAllBookingsQuery) RequiredRole() auth.Role { return auth.RoleAdmin }

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListBookingsHandler) Renter(ctx context.Context, q ListRenterBookingsQuery) (dto.BookingCollection, error) {
	states, err := parseStatuses(q.Status)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.list(ctx, booking.Filter{RenterID: q.RenterID, States: states})
}

func (h *ListBookingsHandler) Owner(ctx context.Context, q ListOwnerBookingsQuery) (dto.BookingCollection, error) {
	states, err := parseStatuses(q.Status)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.list(ctx, booking.Filter{OwnerID: cars.OwnerID(q.OwnerID), CarID: cars.CarID(q.CarID), States: states})
}

func (h *ListBookingsHandler) All(ctx context.Context, q ListAllBookingsQuery) (dto.BookingCollection, error) {
	states, err := parseStatuses(q.Status)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.list(ctx, booking.Filter{CarID: cars.CarID(q.CarID), States: states})
}

func (h *ListBookingsHandler) list(ctx context.Context, filter booking.Filter) (dto.BookingCollection, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer release()
	found, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return mapBookings(execCtx, unit.Cars(), found, h.Logger), nil
}
