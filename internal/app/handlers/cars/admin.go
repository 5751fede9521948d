package cars

import (
	"context"
	"log/slog"
	"strings"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/app/outbox"
	"carshare/internal/app/policies"
	"carshare/internal/app/uow"
)

// SuspendCarCommand takes a car off the catalog for policy violations.
// Existing bookings are untouched.
type SuspendCarCommand struct {
	CarID  string
	Reason string
}

func (SuspendCarCommand) Key() string             { return "cars.admin.suspend" }
func (SuspendCarCommand) RequiredRole() auth.Role { return auth.RoleAdmin }

func (c SuspendCarCommand) Validate() error {
	if strings.TrimSpace(c.CarID) == "" {
		return ErrCarIDRequired
	}
	return nil
}

type SuspendCarHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *SuspendCarHandler) Handle(ctx context.Context, cmd SuspendCarCommand) (_ dto.Car, err error) {
	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Car{}, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	car, err := loadOwnedCar(ctx, unit, cmd.CarID, "")
	if err != nil {
		return dto.Car{}, err
	}
	if err := car.Suspend(cmd.Reason, h.Clock.Now()); err != nil {
		return dto.Car{}, err
	}
	if err := unit.Cars().Save(ctx, car); err != nil {
		return dto.Car{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, car); err != nil {
		return dto.Car{}, err
	}
	if h.Logger != nil {
		h.Logger.WarnContext(ctx, "car suspended", "car_id", car.ID, "reason", cmd.Reason)
	}
	return dto.MapCar(car), nil
}
