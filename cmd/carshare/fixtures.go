package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/auth"
	"carshare/internal/app/commands"
	"carshare/internal/app/dto"
	carsapp "carshare/internal/app/handlers/cars"
)

type carFixture struct {
	ID                 string       `json:"id"`
	OwnerID            string       `json:"owner_id"`
	Make               string       `json:"make"`
	Model              string       `json:"model"`
	Year               int          `json:"year"`
	Description        string       `json:"description"`
	Location           dto.Location `json:"location"`
	Fuel               string       `json:"fuel"`
	Transmission       string       `json:"transmission"`
	Seats              int          `json:"seats"`
	PricePerDay        json.Number  `json:"price_per_day"`
	Currency           string       `json:"currency"`
	Insurance          json.Number  `json:"insurance"`
	CancellationPolicy string       `json:"cancellation_policy"`
	Features           []string     `json:"features"`
	Draft              bool         `json:"draft"`
}

// loadFixtures creates and publishes the cars listed in path through the
// command bus, acting as each car's owner. Invalid entries are logged and
// skipped; cars that already exist are left untouched.
func loadFixtures(ctx context.Context, bus commands.Bus, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("car fixtures file not found, skipping", "path", path)
			return nil
		}
		return errors.Wrap(err, "read fixtures")
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		logger.Warn("car fixtures file empty", "path", path)
		return nil
	}
	var fixtures []carFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return errors.Wrap(err, "decode fixtures")
	}

	imported := 0
	for _, fx := range fixtures {
		if strings.TrimSpace(fx.ID) == "" || strings.TrimSpace(fx.OwnerID) == "" {
			logger.Error("fixture invalid", "car_id", fx.ID, "err", "id and owner_id are required")
			continue
		}
		ownerCtx := auth.ContextWithPrincipal(ctx, auth.Principal{UserID: fx.OwnerID, Roles: []auth.Role{auth.RoleOwner}})
		_, err := commands.Dispatch[carsapp.CreateCarCommand, *dto.Car](ownerCtx, bus, carsapp.CreateCarCommand{
			CarID:   fx.ID,
			OwnerID: fx.OwnerID,
			Input:   fx.input(),
		})
		switch {
		case errors.Is(err, carsapp.ErrCarExists):
			logger.Debug("fixture car exists", "car_id", fx.ID)
			continue
		case err != nil:
			logger.Error("fixture invalid", "car_id", fx.ID, "err", err)
			continue
		}
		if !fx.Draft {
			if _, err := commands.Dispatch[carsapp.PublishCarCommand, dto.Car](ownerCtx, bus, carsapp.PublishCarCommand{CarID: fx.ID, OwnerID: fx.OwnerID}); err != nil {
				logger.Error("fixture publish failed", "car_id", fx.ID, "err", err)
				continue
			}
		}
		imported++
	}
	logger.Info("car fixtures imported", "path", path, "count", imported, "total", len(fixtures))
	return nil
}

func (fx carFixture) input() carsapp.CarInput {
	return carsapp.CarInput{
		Make:               fx.Make,
		Model:              fx.Model,
		Year:               fx.Year,
		Description:        fx.Description,
		Location:           fx.Location,
		Fuel:               fx.Fuel,
		Transmission:       fx.Transmission,
		Seats:              fx.Seats,
		PricePerDay:        fx.PricePerDay.String(),
		Currency:           fx.Currency,
		Insurance:          fx.Insurance.String(),
		CancellationPolicy: fx.CancellationPolicy,
		Features:           fx.Features,
	}
}
