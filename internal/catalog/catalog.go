// Package catalog gives read access to the product catalog. The catalog is
// read-mostly and may change between any two reads.
package catalog

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Accessor reads products from the catalog.
type Accessor interface {
	// ListAll returns every product.
	ListAll(ctx context.Context) ([]*models.Product, error)
	// Find returns one product or errors.ErrNotFound.
	Find(ctx context.Context, id string) (*models.Product, error)
	// FindMany returns the extant subset of ids keyed by id. Unknown ids are
	// simply absent from the map.
	FindMany(ctx context.Context, ids []string) (map[string]*models.Product, error)
}

// Index keys products by id.
func Index(products []*models.Product) map[string]*models.Product {
	byID := make(map[string]*models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID
}
