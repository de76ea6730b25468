/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jjudge-oj/accounts/config"
	"github.com/jjudge-oj/accounts/internal/clock"
	"github.com/jjudge-oj/accounts/internal/db"
	"github.com/jjudge-oj/accounts/internal/services"
	"github.com/jjudge-oj/accounts/internal/storage"
	"github.com/jjudge-oj/accounts/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exportCmd writes a snapshot of the public account list to object storage.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a JSON snapshot of all accounts to object storage",
	Long: `Uploads the public account list as JSON to the configured bucket and
reads it back to confirm the stored copy. Pending migrations are applied first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		if objects == nil {
			return errors.New("export requires STORAGE_BACKEND to be minio or gcs")
		}

		key, n, err := runExport(ctx, cfg, logger, objects)
		if err != nil {
			return err
		}
		logger.Info("accounts exported",
			zap.String("bucket", objects.Bucket()),
			zap.String("key", key),
			zap.Int("accounts", n),
		)
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func runExport(ctx context.Context, cfg config.Config, logger *zap.Logger, objects *storage.Storage) (string, int, error) {
	if err := db.Migrate(cfg.Database); err != nil {
		return "", 0, err
	}
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return "", 0, err
	}
	defer conn.Close()

	accounts := services.NewAccountService(
		store.NewAccountRepository(conn, cfg.Database.Driver),
		services.AccountServiceOptions{Logger: logger.Named("accounts")},
	)
	exporter := services.NewExportService(accounts, objects, clock.New(), cfg.Storage.ExportPrefix)
	return exporter.Export(ctx)
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
