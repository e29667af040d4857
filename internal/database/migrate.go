package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MinSchemaVersion is the lowest migration version this build can run
// against. Opening an older store without migrating fails fast instead of
// producing undefined query results.
const MinSchemaVersion = 2

// ErrSchemaTooOld is returned by CheckVersion for stores below MinSchemaVersion.
var ErrSchemaTooOld = errors.New("store schema is older than this build supports")

// Migrate applies all pending up migrations to db.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// CheckVersion verifies the store's schema version is at least
// MinSchemaVersion. Newer versions are tolerated (forward migrations only
// add), older ones are rejected with ErrSchemaTooOld.
func CheckVersion(db *sql.DB) error {
	var version int
	var dirty bool
	err := db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("store schema version %d is dirty; re-run migrations", version)
	}
	if version < MinSchemaVersion {
		return fmt.Errorf("%w: have %d, need at least %d", ErrSchemaTooOld, version, MinSchemaVersion)
	}
	return nil
}
