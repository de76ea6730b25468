package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jjudge-oj/accounts/config"
	"github.com/jjudge-oj/accounts/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunExportOnFreshDatabase(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "fresh.db"),
		},
		Storage: config.StorageConfig{ExportPrefix: "exports/"},
	}
	mem := storage.NewMemory("exports")

	key, n, err := runExport(context.Background(), cfg, zap.NewNop(), storage.NewStorage(mem))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, strings.HasPrefix(key, "exports/accounts-"), key)
	assert.Equal(t, []string{key}, mem.Keys())
}
