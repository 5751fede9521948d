package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"carshare/internal/domain/cars"
	"carshare/internal/domain/favorites"
)

// Favorites is a process-local favorites.Store.
type Favorites struct {
	mu    sync.RWMutex
	items map[string][]cars.CarID
}

func NewFavorites() *Favorites {
	return &Favorites{items: make(map[string][]cars.CarID)}
}

func (f *Favorites) Add(_ context.Context, userID string, carID cars.CarID) error {
	if strings.TrimSpace(userID) == "" {
		return favorites.ErrUserRequired
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list := slices.DeleteFunc(f.items[userID], func(id cars.CarID) bool { return id == carID })
	f.items[userID] = append([]cars.CarID{carID}, list...)
	return nil
}

func (f *Favorites) Remove(_ context.Context, userID string, carID cars.CarID) error {
	if strings.TrimSpace(userID) == "" {
		return favorites.ErrUserRequired
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[userID] = slices.DeleteFunc(f.items[userID], func(id cars.CarID) bool { return id == carID })
	if len(f.items[userID]) == 0 {
		delete(f.items, userID)
	}
	return nil
}

func (f *Favorites) List(_ context.Context, userID string) ([]cars.CarID, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, favorites.ErrUserRequired
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.items[userID]), nil
}

func (f *Favorites) Contains(_ context.Context, userID string, carID cars.CarID) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, favorites.ErrUserRequired
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Contains(f.items[userID], carID), nil
}

var _ favorites.Store = (*Favorites)(nil)
