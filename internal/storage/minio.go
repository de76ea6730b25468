package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jjudge-oj/accounts/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const exportCacheControl = "no-cache"

// MinioBackend stores account exports in an S3-compatible bucket.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

func NewMinioBackend(cfg config.MinioConfig) (*MinioBackend, error) {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return nil, errors.New("minio endpoint is required")
	case strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "":
		return nil, errors.New("minio access key and secret key are required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioBackend{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket on first use. Losing a creation race to
// another exporter counts as success.
func (m *MinioBackend) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

func (m *MinioBackend) Put(ctx context.Context, key string, r io.Reader, size int64, info ObjectInfo) error {
	if size <= 0 {
		size = -1
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  info.contentType(),
		CacheControl: exportCacheControl,
		UserMetadata: info.Metadata,
	})
	return err
}

// Get stats the object before returning it; GetObject alone defers a
// missing-key error to the first Read.
func (m *MinioBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, err
	}
	return obj, nil
}

func (m *MinioBackend) Bucket() string {
	return m.bucket
}
