package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var _ IntentRepository = (*PostgresIntentRepository)(nil)

// PostgresIntentRepository stores checkout intents in checkout_intents.
type PostgresIntentRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewPostgresIntentRepository(db *sql.DB, logger *logging.Logger) *PostgresIntentRepository {
	return &PostgresIntentRepository{db: db, logger: logger}
}

func (r *PostgresIntentRepository) Create(ctx context.Context, intent *models.CheckoutIntent) error {
	itemsJSON, err := encodeIDs(intent.ItemIDs)
	if err != nil {
		return err
	}
	orderJSON, err := json.Marshal(intent.Order)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checkout_intents (
			id, user_id, transaction_id, email, item_ids, order_payload,
			phase, attempts, last_error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		intent.ID,
		intent.UserID,
		intent.TransactionID,
		intent.Email,
		itemsJSON,
		orderJSON,
		string(intent.Phase),
		intent.Attempts,
		intent.LastError,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record checkout intent", logging.Fields{
			"intent_id":      intent.ID,
			"transaction_id": intent.TransactionID,
			"error":          err.Error(),
		})
		return errors.StoreError("create intent", err)
	}
	return nil
}

func (r *PostgresIntentRepository) Get(ctx context.Context, id string) (*models.CheckoutIntent, error) {
	intent, err := scanIntent(r.db.QueryRowContext(ctx, selectIntent+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.StoreError("get intent", err)
	}
	return intent, nil
}

// UpdatePhase moves the intent to phase and bumps its attempt counter.
func (r *PostgresIntentRepository) UpdatePhase(ctx context.Context, id string, phase models.IntentPhase, lastError string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE checkout_intents
		SET phase = $2, last_error = $3, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1`,
		id, string(phase), lastError,
	)
	if err != nil {
		return errors.StoreError("update intent", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return errors.ErrNotFound
	}

	r.logger.Debug("Checkout intent advanced", logging.Fields{
		"intent_id": id,
		"phase":     phase,
	})
	return nil
}

func (r *PostgresIntentRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.CheckoutIntent, error) {
	rows, err := r.db.QueryContext(ctx,
		selectIntent+` WHERE phase <> $1 AND updated_at < $2 ORDER BY updated_at ASC LIMIT $3`,
		string(models.IntentPhaseCompleted), olderThan, limit,
	)
	if err != nil {
		return nil, errors.StoreError("list intents", err)
	}
	defer rows.Close()

	intents := make([]*models.CheckoutIntent, 0)
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError("list intents", err)
	}
	return intents, nil
}

const selectIntent = `
	SELECT id, user_id, transaction_id, email, item_ids, order_payload,
	       phase, attempts, last_error, created_at, updated_at
	FROM checkout_intents`

func scanIntent(row rowScanner) (*models.CheckoutIntent, error) {
	var intent models.CheckoutIntent
	var itemsJSON, orderJSON []byte
	var phase string
	var lastError sql.NullString

	err := row.Scan(
		&intent.ID,
		&intent.UserID,
		&intent.TransactionID,
		&intent.Email,
		&itemsJSON,
		&orderJSON,
		&phase,
		&intent.Attempts,
		&lastError,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if intent.ItemIDs, err = decodeIDs(itemsJSON); err != nil {
		return nil, err
	}
	if len(orderJSON) > 0 {
		if err := json.Unmarshal(orderJSON, &intent.Order); err != nil {
			return nil, err
		}
	}
	intent.Phase = models.IntentPhase(phase)
	if lastError.Valid {
		intent.LastError = lastError.String
	}

	return &intent, nil
}
