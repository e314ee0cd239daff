package catalog

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var productColumns = []string{
	"id", "name", "image_url", "description", "price", "supplier", "genre",
	"country_of_origin", "material", "in_stock",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func productRow(rows *sqlmock.Rows, id, name string, price float64) *sqlmock.Rows {
	return rows.AddRow(id, name, "/img/"+id+".png", "", price, "Acme", []byte("{casual,summer}"), "PT", "cotton", true)
}

func TestPostgresCatalog_ListAll(t *testing.T) {
	db, mock := newMockDB(t)
	c := NewPostgresCatalog(db, logging.NewNopLogger())

	rows := sqlmock.NewRows(productColumns)
	productRow(rows, "111", "T-Shirt", 25)
	productRow(rows, "123", "Hat", 29)
	mock.ExpectQuery("FROM products").WillReturnRows(rows)

	products, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Hat", products[1].Name)
	assert.Equal(t, 29.0, products[1].Price)
	assert.Equal(t, []string{"casual", "summer"}, products[0].Genre)
	assert.True(t, products[0].InStock)
}

func TestPostgresCatalog_Find(t *testing.T) {
	db, mock := newMockDB(t)
	c := NewPostgresCatalog(db, logging.NewNopLogger())

	mock.ExpectQuery("FROM products").WithArgs("123").
		WillReturnRows(productRow(sqlmock.NewRows(productColumns), "123", "Hat", 29))
	mock.ExpectQuery("FROM products").WithArgs("999").
		WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectQuery("FROM products").WithArgs("boom").
		WillReturnError(stderrors.New("conn refused"))

	p, err := c.Find(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "Hat", p.Name)

	_, err = c.Find(context.Background(), "999")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = c.Find(context.Background(), "boom")
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
}

func TestPostgresCatalog_FindMany(t *testing.T) {
	db, mock := newMockDB(t)
	c := NewPostgresCatalog(db, logging.NewNopLogger())

	mock.ExpectQuery("WHERE id = ANY").WithArgs(sqlmock.AnyArg()).
		WillReturnRows(productRow(sqlmock.NewRows(productColumns), "123", "Hat", 29))

	found, err := c.FindMany(context.Background(), []string{"123", "999"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, "123")
	assert.NotContains(t, found, "999")

	empty, err := c.FindMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type countingAccessor struct {
	*Static
	listCalls int
}

func (c *countingAccessor) ListAll(ctx context.Context) ([]*models.Product, error) {
	c.listCalls++
	return c.Static.ListAll(ctx)
}

func TestCachedCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := &countingAccessor{Static: NewStatic(
		&models.Product{ID: "111", Name: "T-Shirt", Price: 25},
		&models.Product{ID: "123", Name: "Hat", Price: 29},
	)}
	c := NewCachedCatalog(backing, client, 0, logging.NewNopLogger())
	ctx := context.Background()

	first, err := c.ListAll(ctx)
	require.NoError(t, err)
	second, err := c.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.listCalls)
	assert.Len(t, second, len(first))
	assert.True(t, mr.Exists(allProductsKey))

	t.Run("find served from cache", func(t *testing.T) {
		p, err := c.Find(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, "Hat", p.Name)
	})

	t.Run("unknown id falls through", func(t *testing.T) {
		found, err := c.FindMany(ctx, []string{"123", "999"})
		require.NoError(t, err)
		assert.Len(t, found, 1)

		_, err = c.Find(ctx, "999")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("invalidate forces reload", func(t *testing.T) {
		require.NoError(t, c.Invalidate(ctx))
		_, err := c.ListAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, backing.listCalls)
	})

	t.Run("redis down falls through", func(t *testing.T) {
		mr.Close()
		products, err := c.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})
}

func TestStatic_Remove(t *testing.T) {
	s := NewStatic(&models.Product{ID: "111"}, &models.Product{ID: "123"})
	s.Remove("111")

	_, err := s.Find(context.Background(), "111")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	found, err := s.FindMany(context.Background(), []string{"111", "123"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestLive(t *testing.T) {
	backing := NewStatic(&models.Product{ID: "111"})
	cached := NewCachedCatalog(backing, nil, 0, logging.NewNopLogger())

	assert.Same(t, backing, Live(cached))
	assert.Same(t, backing, Live(backing))
}
