package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jjudge-oj/accounts/config"
)

//go:embed migrations
var migrationsFS embed.FS

// NewMigrator opens a dedicated connection and returns a migrator bound to the
// embedded migrations for the configured driver. Closing the migrator closes
// the connection.
func NewMigrator(cfg config.DatabaseConfig) (*migrate.Migrate, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	var driver database.Driver
	switch cfg.Driver {
	case config.DriverSQLite:
		driver, err = sqlite3.WithInstance(conn, &sqlite3.Config{})
	case config.DriverPostgres:
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init migration driver failed: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+cfg.Driver)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("load migrations failed: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, cfg.Driver, driver)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}

// Migrate applies all pending up migrations. Running it against an
// up-to-date schema is a no-op.
func Migrate(cfg config.DatabaseConfig) error {
	migrator, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate up failed: %w", err)
	}
	return nil
}
