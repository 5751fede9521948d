package cars

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/dto"
	"carshare/internal/app/queries"
	"carshare/internal/app/uow"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/shared/daterange"
)

var ErrCarIDRequired = errors.New("cars: car id is required")

// SearchCatalogQuery lists published cars. Prices are in minor units.
type SearchCatalogQuery struct {
	Location     string
	MinPrice     int64
	MaxPrice     int64
	Fuel         string
	Transmission string
	MinSeats     int
	Sort         string
	Limit        int
	Offset       int
}

func (SearchCatalogQuery) Key() string { return "cars.catalog.search" }

func (q SearchCatalogQuery) Validate() error {
	if strings.TrimSpace(q.Fuel) != "" {
		if _, err := cars.ParseFuel(q.Fuel); err != nil {
			return err
		}
	}
	if strings.TrimSpace(q.Transmission) != "" {
		if _, err := cars.ParseTransmission(q.Transmission); err != nil {
			return err
		}
	}
	return nil
}

func (q SearchCatalogQuery) params() cars.SearchParams {
	p := cars.SearchParams{
		Location: q.Location,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		MinSeats: q.MinSeats,
		States:   []cars.State{cars.StateActive},
		Sort:     cars.ParseSort(q.Sort),
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if fuel, err := cars.ParseFuel(q.Fuel); err == nil {
		p.Fuel = fuel
	}
	if tr, err := cars.ParseTransmission(q.Transmission); err == nil {
		p.Transmission = tr
	}
	return p.Normalized()
}

type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.CarCatalog, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarCatalog{}, err
	}
	defer release()

	params := q.params()
	result, err := unit.Cars().Search(execCtx, params)
	if err != nil {
		return dto.CarCatalog{}, err
	}
	return dto.MapCatalog(result, params.Limit, params.Offset), nil
}

// GetCarQuery returns a published car. Owners also see their own drafts.
type GetCarQuery struct {
	CarID    string
	ViewerID string
}

func (GetCarQuery) Key() string { return "cars.get" }

func (q GetCarQuery) Validate() error {
	if strings.TrimSpace(q.CarID) == "" {
		return ErrCarIDRequired
	}
	return nil
}

type GetCarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCarHandler) Handle(ctx context.Context, q GetCarQuery) (dto.Car, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.Car{}, err
	}
	defer release()

	car, err := unit.Cars().ByID(execCtx, cars.CarID(strings.TrimSpace(q.CarID)))
	if err != nil {
		return dto.Car{}, err
	}
	if !car.Bookable() && (q.ViewerID == "" || string(car.Owner) != q.ViewerID) {
		return dto.Car{}, cars.ErrNotFound
	}
	return dto.MapCar(car), nil
}

// GetCalendarQuery lists the blocked ranges of a car, optionally within
// [From, To).
type GetCalendarQuery struct {
	CarID string
	From  string
	To    string
}

func (GetCalendarQuery) Key() string { return "cars.calendar.get" }

func (q GetCalendarQuery) Validate() error {
	if strings.TrimSpace(q.CarID) == "" {
		return ErrCarIDRequired
	}
	_, err := q.window()
	return err
}

func (q GetCalendarQuery) window() (daterange.DateRange, error) {
	if strings.TrimSpace(q.From) == "" && strings.TrimSpace(q.To) == "" {
		return daterange.DateRange{}, nil
	}
	from, err := daterange.ParseDate(q.From)
	if err != nil {
		return daterange.DateRange{}, err
	}
	to, err := daterange.ParseDate(q.To)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.New(from, to)
}

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	window, err := q.window()
	if err != nil {
		return dto.Calendar{}, err
	}
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	defer release()

	id := cars.CarID(strings.TrimSpace(q.CarID))
	if _, err := unit.Cars().ByID(execCtx, id); err != nil {
		return dto.Calendar{}, err
	}
	calendar, err := unit.Calendars().Calendar(execCtx, id)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(string(id), calendar.Between(window)), nil
}

var (
	_ queries.Handler[SearchCatalogQuery, dto.CarCatalog] = (*SearchCatalogHandler)(nil)
	_ queries.Handler[GetCarQuery, dto.Car]               = (*GetCarHandler)(nil)
	_ queries.Handler[GetCalendarQuery, dto.Calendar]     = (*GetCalendarHandler)(nil)
)
