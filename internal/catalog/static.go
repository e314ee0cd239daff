package catalog

import (
	"context"
	"sync"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var _ Accessor = (*Static)(nil)

// Static is an in-memory catalog. It backs local runs without a database and
// lets tests change the catalog between reads.
type Static struct {
	mu       sync.RWMutex
	products []*models.Product
}

func NewStatic(products ...*models.Product) *Static {
	return &Static{products: products}
}

func (s *Static) ListAll(ctx context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *Static) Find(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (s *Static) FindMany(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := Index(s.products)
	found := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := all[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

// Remove deletes a product, leaving any cart references to it dangling.
func (s *Static) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.products[:0]
	for _, p := range s.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.products = kept
}
