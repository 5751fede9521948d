package cars

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/app/outbox"
	"carshare/internal/app/policies"
	"carshare/internal/app/uow"
	"carshare/internal/domain/availability"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/daterange"
	"carshare/internal/domain/shared/money"
)

var (
	ErrNotOwner  = errors.Mark(errors.New("cars: caller does not own this car"), auth.ErrForbidden)
	ErrCarExists = errors.New("cars: car already exists")
)

// CarInput carries owner-editable attributes as received from clients.
// Amounts are decimal strings in Currency.
type CarInput struct {
	Make               string
	Model              string
	Year               int
	Description        string
	Location           dto.Location
	Fuel               string
	Transmission       string
	Seats              int
	PricePerDay        string
	Currency           string
	Insurance          string
	CancellationPolicy string
	Features           []string
}

func (in CarInput) details() (cars.Details, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = pricing.DefaultCurrency
	}
	price, err := money.ParseDecimal(in.PricePerDay, currency)
	if err != nil {
		return cars.Details{}, errors.Mark(err, cars.ErrPriceRequired)
	}
	fuel, err := cars.ParseFuel(in.Fuel)
	if err != nil {
		return cars.Details{}, err
	}
	transmission, err := cars.ParseTransmission(in.Transmission)
	if err != nil {
		return cars.Details{}, err
	}
	d := cars.Details{
		Make:        in.Make,
		Model:       in.Model,
		Year:        in.Year,
		Description: in.Description,
		Location: cars.Location{
			Address: strings.TrimSpace(in.Location.Address),
			City:    strings.TrimSpace(in.Location.City),
			Region:  strings.TrimSpace(in.Location.Region),
			Country: strings.TrimSpace(in.Location.Country),
			Lat:     in.Location.Lat,
			Lon:     in.Location.Lon,
		},
		Fuel:                 fuel,
		Transmission:         transmission,
		Seats:                in.Seats,
		PricePerDay:          price,
		CancellationPolicyID: in.CancellationPolicy,
		Features:             in.Features,
	}
	if strings.TrimSpace(in.Insurance) != "" {
		flat, err := money.ParseDecimal(in.Insurance, currency)
		if err != nil {
			return cars.Details{}, errors.Mark(err, cars.ErrInsuranceNegative)
		}
		d.Insurance = &flat
	}
	return d, nil
}

type CreateCarCommand struct {
	CarID           string
	OwnerID         string
	Input           CarInput
	IdempotencyKeyV string
}

func (CreateCarCommand) Key() string              { return "cars.owner.create" }
func (CreateCarCommand) RequiredRole() auth.Role  { return auth.RoleOwner }
func (c CreateCarCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (CreateCarCommand) ResultPrototype() any     { return &dto.Car{} }

type UpdateCarCommand struct {
	CarID   string
	OwnerID string
	Input   CarInput
}

func (UpdateCarCommand) Key() string             { return "cars.owner.update" }
func (UpdateCarCommand) RequiredRole() auth.Role { return auth.RoleOwner }

type PublishCarCommand struct {
	CarID   string
	OwnerID string
}

func (PublishCarCommand) Key() string             { return "cars.owner.publish" }
func (PublishCarCommand) RequiredRole() auth.Role { return auth.RoleOwner }

type UnpublishCarCommand struct {
	CarID   string
	OwnerID string
}

func (UnpublishCarCommand) Key() string             { return "cars.owner.unpublish" }
func (UnpublishCarCommand) RequiredRole() auth.Role { return auth.RoleOwner }

// BlockCalendarCommand reserves dates for the owner, e.g. for maintenance.
type BlockCalendarCommand struct {
	CarID     string
	OwnerID   string
	StartDate string
	EndDate   string
	Reference string
}

func (BlockCalendarCommand) Key() string             { return "cars.owner.calendar.block" }
func (BlockCalendarCommand) RequiredRole() auth.Role { return auth.RoleOwner }

type UnblockCalendarCommand struct {
	CarID     string
	OwnerID   string
	Reference string
}

func (UnblockCalendarCommand) Key() string             { return "cars.owner.calendar.unblock" }
func (UnblockCalendarCommand) RequiredRole() auth.Role { return auth.RoleOwner }

type ListOwnerCarsQuery struct {
	OwnerID string
	Limit   int
	Offset  int
}

func (ListOwnerCarsQuery) Key() string             { return "cars.owner.list" }
func (ListOwnerCarsQuery) RequiredRole() auth.Role { return auth.RoleOwner }

// OwnerHandler serves the commands an owner runs against their own cars.
type OwnerHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *OwnerHandler) Create(ctx context.Context, cmd CreateCarCommand) (_ *dto.Car, err error) {
	details, err := cmd.Input.details()
	if err != nil {
		return nil, err
	}
	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	id := cars.CarID(strings.TrimSpace(cmd.CarID))
	if id == "" {
		id = cars.CarID(uuid.NewString())
	}
	if _, err := unit.Cars().ByID(ctx, id); err == nil {
		return nil, ErrCarExists
	} else if !errors.Is(err, cars.ErrNotFound) {
		return nil, err
	}
	car, err := cars.NewCar(cars.CreateParams{ID: id, Owner: cars.OwnerID(cmd.OwnerID), Details: details, Now: h.Clock.Now()})
	if err != nil {
		return nil, err
	}
	if err := h.save(ctx, unit, car); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "car created", "car_id", car.ID, "owner_id", car.Owner)
	}
	out := dto.MapCar(car)
	return &out, nil
}

func (h *OwnerHandler) Update(ctx context.Context, cmd UpdateCarCommand) (dto.Car, error) {
	details, err := cmd.Input.details()
	if err != nil {
		return dto.Car{}, err
	}
	return h.mutate(ctx, cmd.CarID, cmd.OwnerID, func(car *cars.Car) error {
		return car.Update(details, h.Clock.Now())
	})
}

func (h *OwnerHandler) Publish(ctx context.Context, cmd PublishCarCommand) (dto.Car, error) {
	return h.mutate(ctx, cmd.CarID, cmd.OwnerID, func(car *cars.Car) error {
		return car.Publish(h.Clock.Now())
	})
}

func (h *OwnerHandler) Unpublish(ctx context.Context, cmd UnpublishCarCommand) (dto.Car, error) {
	return h.mutate(ctx, cmd.CarID, cmd.OwnerID, func(car *cars.Car) error {
		return car.Unpublish(h.Clock.Now())
	})
}

func (h *OwnerHandler) Block(ctx context.Context, cmd BlockCalendarCommand) (_ dto.Calendar, err error) {
	start, err := daterange.ParseDate(cmd.StartDate)
	if err != nil {
		return dto.Calendar{}, err
	}
	end, err := daterange.ParseDate(cmd.EndDate)
	if err != nil {
		return dto.Calendar{}, err
	}
	r, err := daterange.New(start, end)
	if err != nil {
		return dto.Calendar{}, err
	}
	ref := strings.TrimSpace(cmd.Reference)
	if ref == "" {
		ref = "owner-block-" + uuid.NewString()
	}
	return h.mutateCalendar(ctx, cmd.CarID, cmd.OwnerID, func(cal *availability.Calendar) error {
		return cal.Block(r, ref, h.Clock.Now())
	})
}

func (h *OwnerHandler) Unblock(ctx context.Context, cmd UnblockCalendarCommand) (dto.Calendar, error) {
	return h.mutateCalendar(ctx, cmd.CarID, cmd.OwnerID, func(cal *availability.Calendar) error {
		return cal.ReleaseOwnerBlock(cmd.Reference, h.Clock.Now())
	})
}

func (h *OwnerHandler) List(ctx context.Context, q ListOwnerCarsQuery) (dto.CarCatalog, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarCatalog{}, err
	}
	defer release()
	params := cars.SearchParams{Owner: cars.OwnerID(q.OwnerID), Limit: q.Limit, Offset: q.Offset}.Normalized()
	result, err := unit.Cars().Search(execCtx, params)
	if err != nil {
		return dto.CarCatalog{}, err
	}
	return dto.MapCatalog(result, params.Limit, params.Offset), nil
}

func (h *OwnerHandler) mutate(ctx context.Context, carID, ownerID string, fn func(*cars.Car) error) (_ dto.Car, err error) {
	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Car{}, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	car, err := loadOwnedCar(ctx, unit, carID, ownerID)
	if err != nil {
		return dto.Car{}, err
	}
	if err := fn(car); err != nil {
		return dto.Car{}, err
	}
	if err := h.save(ctx, unit, car); err != nil {
		return dto.Car{}, err
	}
	return dto.MapCar(car), nil
}

func (h *OwnerHandler) mutateCalendar(ctx context.Context, carID, ownerID string, fn func(*availability.Calendar) error) (_ dto.Calendar, err error) {
	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Calendar{}, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	car, err := loadOwnedCar(ctx, unit, carID, ownerID)
	if err != nil {
		return dto.Calendar{}, err
	}
	calendar, err := unit.Calendars().Calendar(ctx, car.ID)
	if err != nil {
		return dto.Calendar{}, err
	}
	if err := fn(calendar); err != nil {
		return dto.Calendar{}, err
	}
	if err := unit.Calendars().Save(ctx, calendar); err != nil {
		return dto.Calendar{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, calendar); err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(string(car.ID), calendar.Between(daterange.DateRange{})), nil
}

func (h *OwnerHandler) save(ctx context.Context, unit uow.UnitOfWork, car *cars.Car) error {
	if err := unit.Cars().Save(ctx, car); err != nil {
		return err
	}
	return outbox.Drain(ctx, h.Outbox, h.Encoder, car)
}

func loadOwnedCar(ctx context.Context, unit uow.UnitOfWork, carID, ownerID string) (*cars.Car, error) {
	car, err := unit.Cars().ByID(ctx, cars.CarID(strings.TrimSpace(carID)))
	if err != nil {
		return nil, err
	}
	if ownerID != "" && string(car.Owner) != ownerID {
		return nil, ErrNotOwner
	}
	return car, nil
}
