package repository

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// CartRepository persists one ordered id sequence per user. Load and Save are
// independent calls; nothing here makes a read-modify-write atomic.
type CartRepository interface {
	// Load returns the user's ids, creating an empty cart when none exists.
	Load(ctx context.Context, userID string) ([]string, error)
	// Save overwrites the user's ids.
	Save(ctx context.Context, userID string, ids []string) error
}

// OrderRepository is the append-only per-user order history.
type OrderRepository interface {
	Append(ctx context.Context, order *models.Order) error
	ListByUser(ctx context.Context, userID string) ([]*models.Order, error)
	// GetByTransactionID returns errors.ErrNotFound when no such order exists.
	GetByTransactionID(ctx context.Context, userID, transactionID string) (*models.Order, error)
	DeleteByTransactionID(ctx context.Context, userID, transactionID string) error
}

// OrderCache defines caching operations for per-user order lists.
type OrderCache interface {
	GetByUserID(ctx context.Context, userID string) ([]*models.Order, error)
	SetByUserID(ctx context.Context, userID string, orders []*models.Order) error
	InvalidateByUserID(ctx context.Context, userID string) error
}

// IntentRepository stores checkout intents so unfinished post-payment writes
// can be resumed.
type IntentRepository interface {
	Create(ctx context.Context, intent *models.CheckoutIntent) error
	Get(ctx context.Context, id string) (*models.CheckoutIntent, error)
	UpdatePhase(ctx context.Context, id string, phase models.IntentPhase, lastError string) error
	// ListStale returns pending intents last touched before olderThan.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.CheckoutIntent, error)
}
