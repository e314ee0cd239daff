package repository

import (
	"database/sql"
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded schema migrations to db. An up-to-date schema
// is not an error.
func Migrate(db *sql.DB, logger *logging.Logger) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		logger.Error("Migration failed", logging.Fields{"error": err.Error()})
		return err
	}

	version, dirty, _ := m.Version()
	logger.Info("Schema migrated", logging.Fields{"version": version, "dirty": dirty})
	return nil
}
