package favorites

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"

	"carshare/internal/app/dto"
	"carshare/internal/app/uow"
	"carshare/internal/domain/cars"
	"carshare/internal/domain/favorites"
)

var ErrCarIDRequired = errors.New("favorites: car id is required")

type AddFavoriteCommand struct {
	UserID string
	CarID  string
}

func (AddFavoriteCommand) Key() string { return "favorites.add" }

func (c AddFavoriteCommand) Validate() error { return validate(c.UserID, c.CarID) }

type RemoveFavoriteCommand struct {
	UserID string
	CarID  string
}

func (RemoveFavoriteCommand) Key() string { return "favorites.remove" }

func (c RemoveFavoriteCommand) Validate() error { return validate(c.UserID, c.CarID) }

type ListFavoritesQuery struct {
	UserID string
}

func (ListFavoritesQuery) Key() string { return "favorites.list" }

func (q ListFavoritesQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return favorites.ErrUserRequired
	}
	return nil
}

func validate(userID, carID string) error {
	if strings.TrimSpace(userID) == "" {
		return favorites.ErrUserRequired
	}
	if strings.TrimSpace(carID) == "" {
		return ErrCarIDRequired
	}
	return nil
}

// Handler serves favorites. Entries outlive the cars they point to; List
// skips cars that are gone or no longer published.
type Handler struct {
	Store      favorites.Store
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *Handler) Add(ctx context.Context, cmd AddFavoriteCommand) (dto.CarSummary, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarSummary{}, err
	}
	defer release()

	car, err := unit.Cars().ByID(execCtx, cars.CarID(strings.TrimSpace(cmd.CarID)))
	if err != nil {
		return dto.CarSummary{}, err
	}
	if !car.Bookable() {
		return dto.CarSummary{}, cars.ErrNotFound
	}
	if err := h.Store.Add(ctx, cmd.UserID, car.ID); err != nil {
		return dto.CarSummary{}, errors.Wrap(err, "add favorite")
	}
	return dto.MapCarSummary(car), nil
}

func (h *Handler) Remove(ctx context.Context, cmd RemoveFavoriteCommand) (struct{}, error) {
	if err := h.Store.Remove(ctx, cmd.UserID, cars.CarID(strings.TrimSpace(cmd.CarID))); err != nil {
		return struct{}{}, errors.Wrap(err, "remove favorite")
	}
	return struct{}{}, nil
}

func (h *Handler) List(ctx context.Context, q ListFavoritesQuery) (dto.CarCatalog, error) {
	ids, err := h.Store.List(ctx, q.UserID)
	if err != nil {
		return dto.CarCatalog{}, errors.Wrap(err, "list favorites")
	}
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarCatalog{}, err
	}
	defer release()

	items := make([]dto.CarSummary, 0, len(ids))
	for _, id := range ids {
		car, err := unit.Cars().ByID(execCtx, id)
		if errors.Is(err, cars.ErrNotFound) {
			continue
		}
		if err != nil {
			return dto.CarCatalog{}, err
		}
		if car.Bookable() {
			items = append(items, dto.MapCarSummary(car))
		}
	}
	return dto.CarCatalog{Items: items, Total: len(items), Limit: len(items)}, nil
}
