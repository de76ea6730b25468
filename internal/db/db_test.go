package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jjudge-oj/accounts/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "accounts.db"),
	}
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Host:     "db",
		Port:     5433,
		User:     "acct",
		Password: "p@ss",
		DBName:   "accounts",
		UseSSL:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://acct:p%40ss@db:5433/accounts?sslmode=require", dsn)

	dsn, err = DSN(config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: "/tmp/a.db"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/a.db?"))
	assert.Contains(t, dsn, "_txlock=immediate")

	_, err = DSN(config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	cfg := sqliteConfig(t)

	require.NoError(t, Migrate(cfg))
	require.NoError(t, Migrate(cfg))

	conn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(1) FROM accounts`).Scan(&count))
	assert.Zero(t, count)
}

func TestMigratorDown(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, Migrate(cfg))

	migrator, err := NewMigrator(cfg)
	require.NoError(t, err)
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)

	require.NoError(t, migrator.Down())
	_, _ = migrator.Close()

	conn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(`SELECT 1 FROM accounts`)
	assert.Error(t, err)
}
