package redisstore

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"carshare/internal/domain/cars"
	"carshare/internal/domain/favorites"
)

const defaultPrefix = "carshare"

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Favorites keeps one sorted set per user scored by the time a car was added,
// so the newest favorite ranks first and re-adding a car moves it up.
type Favorites struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewFavorites(rdb redis.Cmdable, prefix string) *Favorites {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Favorites{rdb: rdb, prefix: prefix, now: time.Now}
}

func (f *Favorites) key(userID string) string {
	return f.prefix + ":favorites:" + userID
}

func (f *Favorites) Add(ctx context.Context, userID string, carID cars.CarID) error {
	if strings.TrimSpace(userID) == "" {
		return favorites.ErrUserRequired
	}
	member := redis.Z{Score: float64(f.now().UnixMicro()), Member: string(carID)}
	if err := f.rdb.ZAdd(ctx, f.key(userID), member).Err(); err != nil {
		return errors.Wrap(err, "redis zadd")
	}
	return nil
}

func (f *Favorites) Remove(ctx context.Context, userID string, carID cars.CarID) error {
	if strings.TrimSpace(userID) == "" {
		return favorites.ErrUserRequired
	}
	if err := f.rdb.ZRem(ctx, f.key(userID), string(carID)).Err(); err != nil {
		return errors.Wrap(err, "redis zrem")
	}
	return nil
}

func (f *Favorites) List(ctx context.Context, userID string) ([]cars.CarID, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, favorites.ErrUserRequired
	}
	members, err := f.rdb.ZRevRange(ctx, f.key(userID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis zrevrange")
	}
	out := make([]cars.CarID, 0, len(members))
	for _, m := range members {
		out = append(out, cars.CarID(m))
	}
	return out, nil
}

func (f *Favorites) Contains(ctx context.Context, userID string, carID cars.CarID) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, favorites.ErrUserRequired
	}
	err := f.rdb.ZScore(ctx, f.key(userID), string(carID)).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, errors.Wrap(err, "redis zscore")
	}
	return true, nil
}

var _ favorites.Store = (*Favorites)(nil)
