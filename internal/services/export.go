package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jjudge-oj/accounts/internal/clock"
	"github.com/jjudge-oj/accounts/internal/storage"
	"github.com/jjudge-oj/accounts/types"
)

// Nanosecond resolution keeps back-to-back exports from sharing a key.
const exportTimeLayout = "20060102T150405.000000000Z"

// AccountLister is the read side ExportService needs.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]types.AccountView, error)
}

// ObjectStore holds exported snapshots.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, info storage.ObjectInfo) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ExportService writes snapshots of the public account list to object storage.
type ExportService struct {
	accounts AccountLister
	objects  ObjectStore
	clock    clock.Clock
	prefix   string
}

func NewExportService(accounts AccountLister, objects ObjectStore, clk clock.Clock, prefix string) *ExportService {
	if clk == nil {
		clk = clock.New()
	}
	return &ExportService{accounts: accounts, objects: objects, clock: clk, prefix: prefix}
}

// Export uploads the current account list as JSON, reads it back to confirm
// the stored copy decodes to the same number of accounts, and returns the
// object key and that count.
func (s *ExportService) Export(ctx context.Context) (string, int, error) {
	views, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return "", 0, err
	}

	data, err := json.Marshal(views)
	if err != nil {
		return "", 0, fmt.Errorf("encode export: %w", err)
	}

	at := s.clock.Now().UTC()
	key := fmt.Sprintf("%saccounts-%s.json", s.prefix, at.Format(exportTimeLayout))
	info := storage.ObjectInfo{
		ContentType: "application/json",
		Metadata: map[string]string{
			"account-count": strconv.Itoa(len(views)),
			"exported-at":   at.Format(time.RFC3339Nano),
		},
	}
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), info); err != nil {
		return "", 0, fmt.Errorf("upload %s: %w", key, err)
	}

	if err := s.verify(ctx, key, len(views)); err != nil {
		return key, 0, err
	}
	return key, len(views), nil
}

func (s *ExportService) verify(ctx context.Context, key string, want int) error {
	rc, err := s.objects.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("verify %s: %w", key, err)
	}
	defer rc.Close()

	var stored []types.AccountView
	if err := json.NewDecoder(rc).Decode(&stored); err != nil {
		return fmt.Errorf("verify %s: decode: %w", key, err)
	}
	if len(stored) != want {
		return fmt.Errorf("verify %s: stored %d accounts, expected %d", key, len(stored), want)
	}
	return nil
}
