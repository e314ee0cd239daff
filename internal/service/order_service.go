package service

import (
	"context"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// OrderService handles order business logic.
type OrderService struct {
	orderRepo  repository.OrderRepository
	orderCache repository.OrderCache
	config     *config.Config
	logger     *logging.Logger
	now        func() time.Time
}

// NewOrderService creates a new order service. orderCache may be nil.
func NewOrderService(
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	cfg *config.Config,
	logger *logging.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		orderCache: orderCache,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Create validates and appends an order for the principal.
func (s *OrderService) Create(ctx context.Context, p models.Principal, order *models.Order) (*models.Order, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	order.UserID = p.UserID
	if order.DateReceived.IsZero() {
		order.DateReceived = s.now().UTC()
	}

	if err := s.Record(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Record appends an already validated order.
func (s *OrderService) Record(ctx context.Context, order *models.Order) error {
	s.logger.Info("Recording order", logging.Fields{
		"user_id":        order.UserID,
		"transaction_id": order.TransactionID,
		"item_count":     order.ItemCount(),
	})

	if err := s.orderRepo.Append(ctx, order); err != nil {
		s.logger.Error("Failed to record order", logging.Fields{
			"user_id":        order.UserID,
			"transaction_id": order.TransactionID,
			"error":          err.Error(),
		})
		return err
	}

	s.invalidate(ctx, order.UserID)
	return nil
}

// Exists reports whether the user already has an order with transactionID.
func (s *OrderService) Exists(ctx context.Context, userID, transactionID string) (bool, error) {
	_, err := s.orderRepo.GetByTransactionID(ctx, userID, transactionID)
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the principal's full history, or the single order with
// transactionID when one is given. A missing order is errors.ErrNotFound.
func (s *OrderService) List(ctx context.Context, p models.Principal, transactionID string) ([]*models.Order, error) {
	if transactionID = strings.TrimSpace(transactionID); transactionID != "" {
		order, err := s.orderRepo.GetByTransactionID(ctx, p.UserID, transactionID)
		if err != nil {
			return nil, err
		}
		return []*models.Order{order}, nil
	}

	if s.cachingEnabled() {
		if orders, err := s.orderCache.GetByUserID(ctx, p.UserID); err == nil && orders != nil {
			s.logger.Debug("Orders found in cache", logging.Fields{"user_id": p.UserID})
			return orders, nil
		}
	}

	orders, err := s.orderRepo.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	if s.cachingEnabled() {
		if err := s.orderCache.SetByUserID(ctx, p.UserID, orders); err != nil {
			s.logger.Warn("Failed to cache orders", logging.Fields{
				"user_id": p.UserID,
				"error":   err.Error(),
			})
		}
	}

	return orders, nil
}

// Delete removes one order of the principal.
func (s *OrderService) Delete(ctx context.Context, p models.Principal, transactionID string) error {
	if strings.TrimSpace(transactionID) == "" {
		return errors.NewValidationError("transactionId", "transaction id is required")
	}

	if err := s.orderRepo.DeleteByTransactionID(ctx, p.UserID, transactionID); err != nil {
		return err
	}

	s.invalidate(ctx, p.UserID)
	s.logger.Info("Order deleted", logging.Fields{
		"user_id":        p.UserID,
		"transaction_id": transactionID,
	})
	return nil
}

func (s *OrderService) cachingEnabled() bool {
	return s.orderCache != nil && s.config.Features.EnableOrderCaching
}

func (s *OrderService) invalidate(ctx context.Context, userID string) {
	if !s.cachingEnabled() {
		return
	}
	if err := s.orderCache.InvalidateByUserID(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate order cache", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
