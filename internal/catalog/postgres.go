package catalog

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var _ Accessor = (*PostgresCatalog)(nil)

const selectProducts = `
	SELECT id, name, image_url, description, price, supplier, genre,
	       country_of_origin, material, in_stock
	FROM products`

// PostgresCatalog reads the products table.
type PostgresCatalog struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewPostgresCatalog(db *sql.DB, logger *logging.Logger) *PostgresCatalog {
	return &PostgresCatalog{db: db, logger: logger}
}

func (c *PostgresCatalog) ListAll(ctx context.Context) ([]*models.Product, error) {
	return c.query(ctx, selectProducts+` ORDER BY id`)
}

func (c *PostgresCatalog) Find(ctx context.Context, id string) (*models.Product, error) {
	product, err := scanProduct(c.db.QueryRowContext(ctx, selectProducts+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		c.logger.Error("Failed to fetch product", logging.Fields{"product_id": id, "error": err.Error()})
		return nil, errors.StoreError("find product", err)
	}
	return product, nil
}

func (c *PostgresCatalog) FindMany(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	if len(ids) == 0 {
		return map[string]*models.Product{}, nil
	}

	products, err := c.query(ctx, selectProducts+` WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return Index(products), nil
}

func (c *PostgresCatalog) query(ctx context.Context, query string, args ...interface{}) ([]*models.Product, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		c.logger.Error("Failed to query products", logging.Fields{"error": err.Error()})
		return nil, errors.StoreError("query products", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.StoreError("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError("query products", err)
	}
	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var genre pq.StringArray

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.ImageURL,
		&p.Description,
		&p.Price,
		&p.Supplier,
		&genre,
		&p.CountryOfOrigin,
		&p.Material,
		&p.InStock,
	)
	if err != nil {
		return nil, err
	}

	p.Genre = []string(genre)
	if p.Genre == nil {
		p.Genre = []string{}
	}
	return &p, nil
}
