package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const (
	allProductsKey  = "catalog:all"
	defaultCacheTTL = time.Minute
)

var _ Accessor = (*CachedCatalog)(nil)

// CachedCatalog keeps the full product list in Redis for ttl. Any cache
// failure falls through to the backing accessor.
type CachedCatalog struct {
	next   Accessor
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedCatalog(next Accessor, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedCatalog {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &CachedCatalog{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) ListAll(ctx context.Context) ([]*models.Product, error) {
	if products, ok := c.cached(ctx); ok {
		return products, nil
	}

	products, err := c.next.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(products); err == nil {
		if err := c.client.Set(ctx, allProductsKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Catalog cache set failed", logging.Fields{"error": err.Error()})
		}
	}
	return products, nil
}

// Find goes straight to the backing accessor unless the full list is cached.
func (c *CachedCatalog) Find(ctx context.Context, id string) (*models.Product, error) {
	if products, ok := c.cached(ctx); ok {
		if p, found := Index(products)[id]; found {
			return p, nil
		}
	}
	return c.next.Find(ctx, id)
}

func (c *CachedCatalog) FindMany(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	if products, ok := c.cached(ctx); ok {
		all := Index(products)
		found := make(map[string]*models.Product, len(ids))
		complete := true
		for _, id := range ids {
			p, exists := all[id]
			if !exists {
				complete = false
				break
			}
			found[id] = p
		}
		if complete {
			return found, nil
		}
	}
	return c.next.FindMany(ctx, ids)
}

// Live returns the accessor behind a CachedCatalog, or the accessor itself.
func Live(a Accessor) Accessor {
	if c, ok := a.(*CachedCatalog); ok {
		return c.next
	}
	return a
}

// Invalidate drops the cached list.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, allProductsKey).Err()
}

func (c *CachedCatalog) cached(ctx context.Context) ([]*models.Product, bool) {
	data, err := c.client.Get(ctx, allProductsKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Catalog cache get failed", logging.Fields{"error": err.Error()})
		return nil, false
	}

	var products []*models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		c.logger.Warn("Catalog cache entry unreadable", logging.Fields{"error": err.Error()})
		return nil, false
	}
	return products, true
}
