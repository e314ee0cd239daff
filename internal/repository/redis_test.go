package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisCartRepository_LoadCreatesEmptyCart(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisCartRepository(client, logging.NewNopLogger())

	ids, err := repo.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	stored, err := mr.Get("cart:u1")
	require.NoError(t, err)
	assert.Equal(t, "[]", stored)
}

func TestRedisCartRepository_SaveThenLoad(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisCartRepository(client, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", []string{"123", "111", "123"}))

	ids, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"123", "111", "123"}, ids)
	assert.False(t, mr.Exists("cart:u2"))
	assert.Equal(t, time.Duration(0), mr.TTL("cart:u1"), "carts do not expire")
}

func TestRedisCartRepository_ConcurrentFirstLoad(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRedisCartRepository(client, logging.NewNopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := repo.Load(context.Background(), "u1")
			assert.NoError(t, err)
			assert.Empty(t, ids)
		}()
	}
	wg.Wait()
}

func TestRedisCartRepository_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisCartRepository(client, logging.NewNopLogger())
	mr.Close()

	_, err := repo.Load(context.Background(), "u1")
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
	assert.ErrorIs(t, repo.Save(context.Background(), "u1", []string{"1"}), errors.ErrStoreUnavailable)
}

func TestRedisOrderCache(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewRedisOrderCache(client, time.Minute, logging.NewNopLogger())
	ctx := context.Background()

	orders, err := cache.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, orders, "miss")

	want := []*models.Order{{UserID: "u1", TransactionID: "tx-1", TotalCost: 29}}
	require.NoError(t, cache.SetByUserID(ctx, "u1", want))
	assert.Equal(t, time.Minute, mr.TTL("user_orders:u1"))

	got, err := cache.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tx-1", got[0].TransactionID)

	require.NoError(t, cache.InvalidateByUserID(ctx, "u1"))
	got, err = cache.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisOrderCache_DefaultTTL(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewRedisOrderCache(client, 0, logging.NewNopLogger())
	assert.Equal(t, defaultCacheTTL, cache.ttl)
}
