package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

var _ CartRepository = (*PostgresCartRepository)(nil)

// PostgresCartRepository keeps each cart as a JSONB array in the carts table.
type PostgresCartRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewPostgresCartRepository(db *sql.DB, logger *logging.Logger) *PostgresCartRepository {
	return &PostgresCartRepository{db: db, logger: logger}
}

// Load returns the stored ids, inserting an empty cart first if needed.
func (r *PostgresCartRepository) Load(ctx context.Context, userID string) ([]string, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (user_id, cart_ids, updated_at) VALUES ($1, '[]', NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		r.logger.Error("Failed to init cart", logging.Fields{"user_id": userID, "error": err.Error()})
		return nil, errors.StoreError("init cart", err)
	}

	var raw []byte
	err = r.db.QueryRowContext(ctx, `SELECT cart_ids FROM carts WHERE user_id = $1`, userID).Scan(&raw)
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
func (r *PostgresCartRepository) Save(ctx context.Context, userID string, ids []string) error {
	raw, err := encodeIDs(ids)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO carts (user_id, cart_ids, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET cart_ids = EXCLUDED.cart_ids, updated_at = EXCLUDED.updated_at`,
		userID, raw,
	)
	if err != nil {
		r.logger.Error("Failed to save cart", logging.Fields{"user_id": userID, "error": err.Error()})
		return errors.StoreError("save cart", err)
	}

	r.logger.Debug("Cart saved", logging.Fields{"user_id": userID, "count": len(ids)})
	return nil
}

func encodeIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func decodeIDs(raw []byte) ([]string, error) {
	ids := make([]string, 0)
	if len(raw) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = make([]string, 0)
	}
	return ids, nil
}
