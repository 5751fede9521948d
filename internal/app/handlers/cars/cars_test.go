package cars

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/app/policies"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/shared/money"
	"carshare/internal/infra/storage/memory"
)

var now = time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

type fakeStorage struct {
	keys []string
	body []byte
}

func (s *fakeStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	s.body = data
	return "https://cdn.example/" + key, nil
}

func seeded() (*memory.Store, *memory.Outbox) {
	store := memory.NewStore()
	loc := cars.Location{City: "Austin", Region: "Texas", Country: "US"}
	store.Seed(
		&cars.Car{ID: "c-1", Owner: "o-1", Make: "Toyota", Model: "Corolla", Seats: 5, Fuel: cars.FuelPetrol, Transmission: cars.TransmissionAutomatic, Location: loc, PricePerDay: money.Must(3000, "USD"), State: cars.StateActive},
		&cars.Car{ID: "c-2", Owner: "o-1", Make: "Tesla", Model: "Model 3", Seats: 5, Fuel: cars.FuelElectric, Transmission: cars.TransmissionAutomatic, Location: loc, PricePerDay: money.Must(9000, "USD"), State: cars.StateActive},
		&cars.Car{ID: "c-3", Owner: "o-2", Make: "Honda", Model: "Civic", Seats: 5, Fuel: cars.FuelPetrol, Transmission: cars.TransmissionManual, Location: loc, PricePerDay: money.Must(6000, "USD"), State: cars.StateActive},
		&cars.Car{ID: "c-draft", Owner: "o-1", Make: "Kia", Model: "Rio", Seats: 5, Location: loc, PricePerDay: money.Must(2000, "USD"), State: cars.StateDraft},
	)
	box := memory.NewOutbox()
	box.Attach(store)
	return store, box
}

func catalogIDs(c dto.CarCatalog) []string {
	out := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		out = append(out, item.ID)
	}
	return out
}

func TestSearchCatalogShowsOnlyPublishedCars(t *testing.T) {
	store, _ := seeded()
	h := &SearchCatalogHandler{UoWFactory: memory.Factory{Store: store}}
	ctx := context.Background()

	got, err := h.Handle(ctx, SearchCatalogQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-2", "c-3"}, catalogIDs(got))
	assert.Equal(t, 24, got.Limit)

	got, err = h.Handle(ctx, SearchCatalogQuery{MinPrice: 4000, MaxPrice: 8000})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-3"}, catalogIDs(got))

	got, err = h.Handle(ctx, SearchCatalogQuery{Sort: "price_desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-2", "c-3", "c-1"}, catalogIDs(got))

	got, err = h.Handle(ctx, SearchCatalogQuery{Location: "austin", Fuel: "gasoline", Transmission: "manual"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-3"}, catalogIDs(got))

	assert.ErrorIs(t, SearchCatalogQuery{Fuel: "steam"}.Validate(), cars.ErrInvalidFuel)
}

func TestGetCarHidesDraftsFromStrangers(t *testing.T) {
	store, _ := seeded()
	h := &GetCarHandler{UoWFactory: memory.Factory{Store: store}}
	ctx := context.Background()

	_, err := h.Handle(ctx, GetCarQuery{CarID: "c-draft"})
	assert.ErrorIs(t, err, cars.ErrNotFound)

	car, err := h.Handle(ctx, GetCarQuery{CarID: "c-draft", ViewerID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", car.State)

	_, err = h.Handle(ctx, GetCarQuery{CarID: "missing"})
	assert.ErrorIs(t, err, cars.ErrNotFound)
}

func TestOwnerLifecycle(t *testing.T) {
	store, box := seeded()
	factory := memory.Factory{Store: store}
	clock := policies.Clock(func() time.Time { return now })
	h := &OwnerHandler{UoWFactory: factory, Outbox: box, Clock: clock}
	ctx := context.Background()

	input := CarInput{
		Make: "Mazda", Model: "3", Year: 2022, Seats: 5, Fuel: "petrol", Transmission: "auto",
		PricePerDay: "45.50", Insurance: "12", CancellationPolicy: "strict",
		Location: dto.Location{City: "Austin", Country: "US"},
	}
	created, err := h.Create(ctx, CreateCarCommand{CarID: "c-new", OwnerID: "o-1", Input: input})
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", created.State)
	assert.Equal(t, dto.Amount(4550), created.PricePerDay)
	require.NotNil(t, created.Insurance)
	assert.Equal(t, dto.Amount(1200), *created.Insurance)

	_, err = h.Create(ctx, CreateCarCommand{CarID: "c-new", OwnerID: "o-1", Input: input})
	assert.ErrorIs(t, err, ErrCarExists)

	_, err = h.Publish(ctx, PublishCarCommand{CarID: "c-new", OwnerID: "o-2"})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	published, err := h.Publish(ctx, PublishCarCommand{CarID: "c-new", OwnerID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", published.State)

	input.PricePerDay = "50"
	updated, err := h.Update(ctx, UpdateCarCommand{CarID: "c-new", OwnerID: "o-1", Input: input})
	require.NoError(t, err)
	assert.Equal(t, dto.Amount(5000), updated.PricePerDay)

	mine, err := h.List(ctx, ListOwnerCarsQuery{OwnerID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-2", "c-draft", "c-new"}, catalogIDs(mine))

	var names []string
	for _, rec := range box.Records() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"car.created", "car.published", "car.updated", "car.price_changed"}, names)
}

func TestOwnerCalendarBlocks(t *testing.T) {
	store, box := seeded()
	h := &OwnerHandler{UoWFactory: memory.Factory{Store: store}, Outbox: box, Clock: func() time.Time { return now }}
	ctx := context.Background()

	cal, err := h.Block(ctx, BlockCalendarCommand{CarID: "c-1", OwnerID: "o-1", StartDate: "2025-11-01", EndDate: "2025-11-03", Reference: "service"})
	require.NoError(t, err)
	require.Len(t, cal.Blocks, 1)
	assert.Equal(t, "OWNER_BLOCK", cal.Blocks[0].Reason)

	view := &GetCalendarHandler{UoWFactory: memory.Factory{Store: store}}
	got, err := view.Handle(ctx, GetCalendarQuery{CarID: "c-1", From: "2025-11-02", To: "2025-11-10"})
	require.NoError(t, err)
	assert.Len(t, got.Blocks, 1)

	cal, err = h.Unblock(ctx, UnblockCalendarCommand{CarID: "c-1", OwnerID: "o-1", Reference: "service"})
	require.NoError(t, err)
	assert.Empty(t, cal.Blocks)
}

func TestUploadPhoto(t *testing.T) {
	store, box := seeded()
	storage := &fakeStorage{}
	h := &UploadCarPhotoHandler{UoWFactory: memory.Factory{Store: store}, Storage: storage, Outbox: box, Clock: func() time.Time { return now }}
	body := []byte("jpeg-bytes")

	cmd := UploadCarPhotoCommand{CarID: "c-1", OwnerID: "o-1", ContentType: "image/jpeg; charset=binary", Size: int64(len(body)), Body: bytes.NewReader(body)}
	require.NoError(t, cmd.Validate())
	car, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	require.Len(t, storage.keys, 1)
	assert.Regexp(t, `^cars/c-1/[0-9a-f-]{36}\.jpg$`, storage.keys[0])
	assert.Equal(t, body, storage.body)
	assert.Equal(t, "https://cdn.example/"+storage.keys[0], car.ThumbnailURL)

	assert.ErrorIs(t, UploadCarPhotoCommand{CarID: "c-1", ContentType: "text/plain", Size: 1, Body: bytes.NewReader(nil)}.Validate(), ErrPhotoType)
	assert.ErrorIs(t, UploadCarPhotoCommand{CarID: "c-1", ContentType: "image/png", Size: MaxPhotoSize + 1, Body: bytes.NewReader(nil)}.Validate(), ErrPhotoTooLarge)
}

func TestSuspendRemovesCarFromCatalog(t *testing.T) {
	store, box := seeded()
	factory := memory.Factory{Store: store}
	h := &SuspendCarHandler{UoWFactory: factory, Outbox: box, Clock: func() time.Time { return now }}
	ctx := context.Background()

	car, err := h.Handle(ctx, SuspendCarCommand{CarID: "c-2", Reason: "fraud report"})
	require.NoError(t, err)
	assert.Equal(t, "SUSPENDED", car.State)

	_, err = h.Handle(ctx, SuspendCarCommand{CarID: "c-2"})
	assert.ErrorIs(t, err, cars.ErrInvalidState)

	catalog, err := (&SearchCatalogHandler{UoWFactory: factory}).Handle(ctx, SearchCatalogQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-3"}, catalogIDs(catalog))
}
