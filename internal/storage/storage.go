package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jjudge-oj/accounts/config"
)

const defaultContentType = "application/octet-stream"

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo is stored alongside an object's bytes.
type ObjectInfo struct {
	ContentType string
	Metadata    map[string]string
}

func (i ObjectInfo) contentType() string {
	if i.ContentType == "" {
		return defaultContentType
	}
	return i.ContentType
}

// ObjectStorage is the bucket surface the account exporter writes to and
// verifies against.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, info ObjectInfo) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// Open builds the backend selected by cfg.Backend and makes sure its bucket
// exists. It returns nil, nil when object storage is disabled.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var backend ObjectStorage
	switch cfg.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendMinio:
		b, err := NewMinioBackend(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = b
	case config.BackendGCS:
		b, err := NewGCSBackend(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = b
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object. A non-positive size means the length is unknown.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, info ObjectInfo) error {
	return s.backend.Put(ctx, key, r, size, info)
}

// Get opens an object for reading. Missing keys yield ErrObjectNotFound.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
