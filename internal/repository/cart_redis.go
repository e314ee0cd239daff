package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

const cartKeyPrefix = "cart:"

var _ CartRepository = (*RedisCartRepository)(nil)

// RedisCartRepository stores each cart as a JSON array under cart:<user>.
// Carts never expire.
type RedisCartRepository struct {
	client *redis.Client
	logger *logging.Logger
}

func NewRedisCartRepository(client *redis.Client, logger *logging.Logger) *RedisCartRepository {
	return &RedisCartRepository{client: client, logger: logger}
}

func cartKey(userID string) string {
	return cartKeyPrefix + userID
}

// Load returns the stored ids. A missing key is initialised with SETNX so two
// concurrent first reads both see the same empty cart.
func (r *RedisCartRepository) Load(ctx context.Context, userID string) ([]string, error) {
	key := cartKey(userID)

	if err := r.client.SetNX(ctx, key, "[]", 0).Err(); err != nil {
		r.logger.Error("Failed to init cart", logging.Fields{"user_id": userID, "error": err.Error()})
		return nil, errors.StoreError("init cart", err)
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		// Deleted between SETNX and GET.
		return make([]string, 0), nil
	}
	if err != nil {
		r.logger.Error("Failed to load cart", logging.Fields{"user_id": userID, "error": err.Error()})
		return nil, errors.StoreError("load cart", err)
	}

	ids, err := decodeIDs(raw)
	if err != nil {
		return nil, errors.StoreError("decode cart", err)
	}
	return ids, nil
}

// Save overwrites the stored ids.
func (r *RedisCartRepository) Save(ctx context.Context, userID string, ids []string) error {
	raw, err := encodeIDs(ids)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, cartKey(userID), raw, 0).Err(); err != nil {
		r.logger.Error("Failed to save cart", logging.Fields{"user_id": userID, "error": err.Error()})
		return errors.StoreError("save cart", err)
	}

	r.logger.Debug("Cart saved", logging.Fields{"user_id": userID, "count": len(ids)})
	return nil
}
