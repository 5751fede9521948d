package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/domain/cars"
	"carshare/internal/domain/favorites"
)

func TestKeyUsesPrefix(t *testing.T) {
	assert.Equal(t, "carshare:favorites:u1", NewFavorites(nil, "").key("u1"))
	assert.Equal(t, "test:favorites:u1", NewFavorites(nil, "test:").key("u1"))
}

func TestRejectsBlankUser(t *testing.T) {
	f := NewFavorites(nil, "")
	ctx := context.Background()
	assert.ErrorIs(t, f.Add(ctx, " ", "car-1"), favorites.ErrUserRequired)
	assert.ErrorIs(t, f.Remove(ctx, "", "car-1"), favorites.ErrUserRequired)
	_, err := f.List(ctx, "")
	assert.ErrorIs(t, err, favorites.ErrUserRequired)
}

func TestFavoritesAgainstRedis(t *testing.T) {
	addr := os.Getenv("CARSHARE_REDIS_ADDR")
	if addr == "" {
		t.Skip("CARSHARE_REDIS_ADDR not set; skipping integration test")
	}
	rdb := NewClient(addr, "", 0)
	defer rdb.Close()

	ctx := context.Background()
	f := NewFavorites(rdb, fmt.Sprintf("test-%d", time.Now().UnixNano()))
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.now = func() time.Time { tick = tick.Add(time.Second); return tick }

	require.NoError(t, f.Add(ctx, "u1", "car-1"))
	require.NoError(t, f.Add(ctx, "u1", "car-2"))
	require.NoError(t, f.Add(ctx, "u1", "car-1"))

	list, err := f.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []cars.CarID{"car-1", "car-2"}, list)

	require.NoError(t, f.Remove(ctx, "u1", "car-1"))
	ok, err := f.Contains(ctx, "u1", "car-1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, rdb.Del(ctx, f.key("u1")).Err())
}
