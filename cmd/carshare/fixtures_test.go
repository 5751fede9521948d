package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/app/dto"
	carsapp "carshare/internal/app/handlers/cars"
	"carshare/internal/app/queries"
	"carshare/internal/bootstrap"
	"carshare/internal/domain/membership"
	"carshare/internal/domain/pricing"
	"carshare/internal/infra/storage/memory"
)

const fixturesJSON = `[
  {"id":"car-1","owner_id":"owner-1","make":"Toyota","model":"Corolla","year":2021,
   "location":{"city":"Austin","country":"US"},"fuel":"petrol","transmission":"automatic",
   "seats":5,"price_per_day":"45.00","currency":"USD","cancellation_policy":"moderate"},
  {"id":"car-2","owner_id":"owner-2","make":"Tesla","model":"Model 3",
   "location":{"city":"Denver","country":"US"},"fuel":"electric","transmission":"automatic",
   "seats":5,"price_per_day":120,"insurance":15},
  {"id":"car-3","owner_id":"owner-2","make":"Kia","model":"Rio","seats":0,"price_per_day":"30"},
  {"id":"car-4","owner_id":"owner-3","make":"Ford","model":"Focus",
   "location":{"city":"Austin","country":"US"},"fuel":"diesel","transmission":"manual",
   "seats":5,"price_per_day":"35","draft":true}
]`

func TestLoadFixtures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	box := memory.NewOutbox()
	box.Attach(store)
	app, err := bootstrap.Build(bootstrap.Deps{
		UoWFactory:  memory.Factory{Store: store},
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(),
		Favorites:   memory.NewFavorites(),
		Memberships: membership.DefaultTable(pricing.DefaultRates, "USD"),
		Clock:       func() time.Time { return time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC) },
		Logger:      logger,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cars.json")
	require.NoError(t, os.WriteFile(path, []byte(fixturesJSON), 0o600))

	ctx := context.Background()
	require.NoError(t, loadFixtures(ctx, app.Commands, path, logger))
	// A second run finds the cars already present.
	require.NoError(t, loadFixtures(ctx, app.Commands, path, logger))

	catalog, err := queries.Ask[carsapp.SearchCatalogQuery, dto.CarCatalog](ctx, app.Queries, carsapp.SearchCatalogQuery{})
	require.NoError(t, err)
	ids := make([]string, 0, len(catalog.Items))
	for _, item := range catalog.Items {
		ids = append(ids, item.ID)
	}
	assert.ElementsMatch(t, []string{"car-1", "car-2"}, ids, "invalid and draft fixtures are not listed")

	car, err := queries.Ask[carsapp.GetCarQuery, dto.Car](ctx, app.Queries, carsapp.GetCarQuery{CarID: "car-2"})
	require.NoError(t, err)
	assert.Equal(t, dto.Amount(12000), car.PricePerDay)
	require.NotNil(t, car.Insurance)
	assert.Equal(t, dto.Amount(1500), *car.Insurance)
}

func TestLoadFixturesMissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.NoError(t, loadFixtures(context.Background(), nil, filepath.Join(t.TempDir(), "absent.json"), logger))
}
