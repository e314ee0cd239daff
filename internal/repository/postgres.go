package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Ensure PostgresOrderRepository implements OrderRepository
var _ OrderRepository = (*PostgresOrderRepository)(nil)

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *logging.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
	}
}

// Append adds an order to the user's history. Transaction id uniqueness is
// expected from the payment gateway; the table does not enforce it.
func (r *PostgresOrderRepository) Append(ctx context.Context, order *models.Order) error {
	r.logger.Debug("Appending order", logging.Fields{
		"user_id":        order.UserID,
		"transaction_id": order.TransactionID,
	})

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			user_id, transaction_id, items, total_cost, payment_method, date_received
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.UserID,
		order.TransactionID,
		itemsJSON,
		order.TotalCost,
		string(order.PaymentMethod),
		order.DateReceived,
	)
	if err != nil {
		r.logger.Error("Failed to append order", logging.Fields{
			"user_id":        order.UserID,
			"transaction_id": order.TransactionID,
			"error":          err.Error(),
		})
		return errors.StoreError("append order", err)
	}

	r.logger.Info("Order appended", logging.Fields{
		"user_id":        order.UserID,
		"transaction_id": order.TransactionID,
		"total":          order.TotalCost,
	})

	return nil
}

// ListByUser returns the user's orders, oldest first.
func (r *PostgresOrderRepository) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	query := `
		SELECT user_id, transaction_id, items, total_cost, payment_method, date_received
		FROM orders
		WHERE user_id = $1
		ORDER BY date_received ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.StoreError("list orders", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError("list orders", err)
	}

	r.logger.Debug("Orders listed", logging.Fields{
		"user_id": userID,
		"count":   len(orders),
	})

	return orders, nil
}

// GetByTransactionID retrieves one order of the user.
func (r *PostgresOrderRepository) GetByTransactionID(ctx context.Context, userID, transactionID string) (*models.Order, error) {
	query := `
		SELECT user_id, transaction_id, items, total_cost, payment_method, date_received
		FROM orders
		WHERE user_id = $1 AND transaction_id = $2
		ORDER BY id ASC
		LIMIT 1
	`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, userID, transactionID))
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to fetch order", logging.Fields{
			"user_id":        userID,
			"transaction_id": transactionID,
			"error":          err.Error(),
		})
		return nil, errors.StoreError("get order", err)
	}

	return order, nil
}

// DeleteByTransactionID removes an order from the user's history.
func (r *PostgresOrderRepository) DeleteByTransactionID(ctx context.Context, userID, transactionID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM orders WHERE user_id = $1 AND transaction_id = $2`,
		userID, transactionID,
	)
	if err != nil {
		return errors.StoreError("delete order", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return errors.ErrNotFound
	}

	r.logger.Info("Order deleted", logging.Fields{
		"user_id":        userID,
		"transaction_id": transactionID,
	})
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var itemsJSON []byte
	var method string

	err := row.Scan(
		&order.UserID,
		&order.TransactionID,
		&itemsJSON,
		&order.TotalCost,
		&method,
		&order.DateReceived,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, err
	}
	order.PaymentMethod = models.PaymentMethod(method)

	return &order, nil
}
