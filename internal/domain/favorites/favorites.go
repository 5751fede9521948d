package favorites

import (
	"context"

	"github.com/cockroachdb/errors"

	"carshare/internal/domain/cars"
)

var ErrUserRequired = errors.New("favorites: user id required")

// Store keeps the cars a user marked as favorite. Implementations must be
// safe for concurrent use and keep the most recently added car first.
type Store interface {
	Add(ctx context.Context, userID string, carID cars.CarID) error
	Remove(ctx context.Context, userID string, carID cars.CarID) error
	List(ctx context.Context, userID string) ([]cars.CarID, error)
	Contains(ctx context.Context, userID string, carID cars.CarID) (bool, error)
}
