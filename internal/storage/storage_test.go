package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/jjudge-oj/accounts/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDisabled(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{Backend: config.BackendNone})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.Error(t, err)
}

func TestOpenMinioValidatesConfig(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: config.BackendMinio})
	assert.ErrorContains(t, err, "minio endpoint is required")

	_, err = Open(context.Background(), config.StorageConfig{
		Backend: config.BackendMinio,
		Minio:   config.MinioConfig{Endpoint: "localhost:9000"},
	})
	assert.ErrorContains(t, err, "access key")

	_, err = Open(context.Background(), config.StorageConfig{
		Backend: config.BackendMinio,
		Minio:   config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"},
	})
	assert.ErrorContains(t, err, "minio bucket is required")
}

func TestOpenGCSValidatesConfig(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: config.BackendGCS})
	assert.ErrorContains(t, err, "gcs bucket is required")
}

func TestStorageOverMemory(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory("exports")
	s := NewStorage(mem)
	require.NoError(t, s.EnsureBucket(ctx))
	assert.Equal(t, "exports", s.Bucket())

	require.NoError(t, s.Put(ctx, "a.json", strings.NewReader(`[]`), 2, ObjectInfo{
		ContentType: "application/json",
		Metadata:    map[string]string{"account-count": "0"},
	}))

	rc, err := s.Get(ctx, "a.json")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "[]", string(data))

	info, ok := mem.Info("a.json")
	require.True(t, ok)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Equal(t, "0", info.Metadata["account-count"])

	_, err = s.Get(ctx, "b.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestPutDefaultsContentType(t *testing.T) {
	mem := NewMemory("exports")
	require.NoError(t, mem.Put(context.Background(), "blob", strings.NewReader("x"), -1, ObjectInfo{}))

	info, ok := mem.Info("blob")
	require.True(t, ok)
	assert.Equal(t, "application/octet-stream", info.ContentType)
	assert.Equal(t, []string{"blob"}, mem.Keys())
}
