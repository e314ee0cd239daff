package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// CartService implements the cart operations on top of a CartRepository.
//
// Every mutation is a Load followed by a Save of the whole id sequence. There
// is no version check between the two, so concurrent mutations of one cart
// are last-write-wins.
type CartService struct {
	repo    repository.CartRepository
	catalog catalog.Accessor
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, cat catalog.Accessor, m *metrics.Metrics, logger *logging.Logger) *CartService {
	return &CartService{
		repo:    repo,
		catalog: cat,
		metrics: m,
		logger:  logger,
	}
}

// Get returns the cart's ids, creating an empty cart on first access.
func (s *CartService) Get(ctx context.Context, p models.Principal) ([]string, error) {
	return s.repo.Load(ctx, p.UserID)
}

// Add appends the catalog-valid subset of ids, keeping request order and
// duplicates. Rejected ids are returned in Invalid.
func (s *CartService) Add(ctx context.Context, p models.Principal, ids []string) (*models.CartUpdateResult, error) {
	if err := ValidateProductIDs(ids); err != nil {
		return nil, err
	}

	valid, invalid, err := s.partition(ctx, ids)
	if err != nil {
		s.metrics.CartOperation("add", "error")
		return nil, err
	}

	current, err := s.repo.Load(ctx, p.UserID)
	if err != nil {
		s.metrics.CartOperation("add", "error")
		return nil, err
	}

	result := &models.CartUpdateResult{Added: valid, Invalid: invalid, Cart: current}
	if len(valid) == 0 {
		s.metrics.CartOperation("add", "noop")
		return result, nil
	}

	updated := make([]string, 0, len(current)+len(valid))
	updated = append(updated, current...)
	updated = append(updated, valid...)

	if err := s.repo.Save(ctx, p.UserID, updated); err != nil {
		s.metrics.CartOperation("add", "error")
		return nil, err
	}
	result.Cart = updated

	s.metrics.CartOperation("add", outcome(result))
	s.logger.Info("Added to cart", logging.Fields{
		"user_id": p.UserID,
		"added":   len(valid),
		"invalid": len(invalid),
	})
	return result, nil
}

// Remove deletes one occurrence per requested id, taking the first match.
// Ids with no remaining occurrence are reported in NotFound.
func (s *CartService) Remove(ctx context.Context, p models.Principal, ids []string) (*models.CartRemoveResult, error) {
	if err := ValidateProductIDs(ids); err != nil {
		return nil, err
	}
	return s.removeIDs(ctx, p, ids)
}

// removeIDs is Remove without the request size limit. Checkout retraction
// goes through here since a cart may hold more ids than one request can.
func (s *CartService) removeIDs(ctx context.Context, p models.Principal, ids []string) (*models.CartRemoveResult, error) {
	current, err := s.repo.Load(ctx, p.UserID)
	if err != nil {
		s.metrics.CartOperation("remove", "error")
		return nil, err
	}

	remaining, removed, notFound := RemoveFirstMatches(current, ids)
	result := &models.CartRemoveResult{Removed: removed, NotFound: notFound, Cart: remaining}

	if len(removed) == 0 {
		result.Cart = current
		s.metrics.CartOperation("remove", "noop")
		return result, nil
	}

	if err := s.repo.Save(ctx, p.UserID, remaining); err != nil {
		s.metrics.CartOperation("remove", "error")
		return nil, err
	}

	s.metrics.CartOperation("remove", "ok")
	s.logger.Info("Removed from cart", logging.Fields{
		"user_id":   p.UserID,
		"removed":   len(removed),
		"not_found": len(notFound),
	})
	return result, nil
}

// Replace overwrites the cart with the catalog-valid subset of ids.
func (s *CartService) Replace(ctx context.Context, p models.Principal, ids []string) (*models.CartUpdateResult, error) {
	if err := ValidateProductIDs(ids); err != nil {
		return nil, err
	}

	valid, invalid, err := s.partition(ctx, ids)
	if err != nil {
		s.metrics.CartOperation("replace", "error")
		return nil, err
	}

	if err := s.repo.Save(ctx, p.UserID, valid); err != nil {
		s.metrics.CartOperation("replace", "error")
		return nil, err
	}

	result := &models.CartUpdateResult{Added: valid, Invalid: invalid, Cart: valid}
	s.metrics.CartOperation("replace", outcome(result))
	s.logger.Info("Cart replaced", logging.Fields{
		"user_id": p.UserID,
		"count":   len(valid),
		"invalid": len(invalid),
	})
	return result, nil
}

// partition splits ids into catalog hits and misses, both in request order.
func (s *CartService) partition(ctx context.Context, ids []string) (valid, invalid []string, err error) {
	found, err := s.catalog.FindMany(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	valid = make([]string, 0, len(ids))
	invalid = make([]string, 0)
	for _, id := range ids {
		if _, ok := found[id]; ok {
			valid = append(valid, id)
		} else {
			invalid = append(invalid, id)
		}
	}
	return valid, invalid, nil
}

// RemoveFirstMatches removes, for each id in ids, the first remaining
// occurrence of that id in cart. cart is not modified.
func RemoveFirstMatches(cart, ids []string) (remaining, removed, notFound []string) {
	taken := make([]bool, len(cart))
	removed = make([]string, 0, len(ids))
	notFound = make([]string, 0)

	for _, id := range ids {
		hit := false
		for i, c := range cart {
			if !taken[i] && c == id {
				taken[i] = true
				hit = true
				break
			}
		}
		if hit {
			removed = append(removed, id)
		} else {
			notFound = append(notFound, id)
		}
	}

	remaining = make([]string, 0, len(cart))
	for i, c := range cart {
		if !taken[i] {
			remaining = append(remaining, c)
		}
	}
	return remaining, removed, notFound
}

func outcome(r *models.CartUpdateResult) string {
	if r.Partial() {
		return "partial"
	}
	return "ok"
}
