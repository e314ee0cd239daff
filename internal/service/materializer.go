package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// Materializer resolves cart ids into products. The output always has one
// slot per input id, in the same order; ids that no longer resolve become
// tombstones.
type Materializer struct {
	carts   repository.CartRepository
	catalog catalog.Accessor
}

func NewMaterializer(carts repository.CartRepository, cat catalog.Accessor) *Materializer {
	return &Materializer{carts: carts, catalog: cat}
}

// Live returns a materializer that resolves against the catalog behind any
// cache layer.
func (m *Materializer) Live() *Materializer {
	return &Materializer{carts: m.carts, catalog: catalog.Live(m.catalog)}
}

// Materialize resolves the principal's cart.
func (m *Materializer) Materialize(ctx context.Context, p models.Principal) ([]models.CartSlot, error) {
	ids, err := m.carts.Load(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return m.MaterializeIDs(ctx, ids)
}

// MaterializeIDs resolves an explicit id list against the live catalog.
func (m *Materializer) MaterializeIDs(ctx context.Context, ids []string) ([]models.CartSlot, error) {
	slots := make([]models.CartSlot, 0, len(ids))
	if len(ids) == 0 {
		return slots, nil
	}

	products, err := m.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := catalog.Index(products)

	for _, id := range ids {
		if p, ok := byID[id]; ok {
			slots = append(slots, models.CartSlot{ID: id, Product: p})
		} else {
			slots = append(slots, models.CartSlot{ID: id, Error: models.SlotErrorNotFound})
		}
	}
	return slots, nil
}

// SplitSlots separates resolved products from the ids of tombstones.
func SplitSlots(slots []models.CartSlot) (products []*models.Product, missing []string) {
	products = make([]*models.Product, 0, len(slots))
	missing = make([]string, 0)
	for _, s := range slots {
		if s.Missing() {
			missing = append(missing, s.ID)
		} else {
			products = append(products, s.Product)
		}
	}
	return products, missing
}
