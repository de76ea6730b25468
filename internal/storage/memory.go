package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"sort"
	"sync"
)

// Memory is an in-process ObjectStorage.
type Memory struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	info ObjectInfo
}

func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objects: make(map[string]memoryObject)}
}

func (m *Memory) EnsureBucket(context.Context) error {
	return nil
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, _ int64, info ObjectInfo) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	info.ContentType = info.contentType()
	info.Metadata = maps.Clone(info.Metadata)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, info: info}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) Bucket() string {
	return m.bucket
}

// Info reports what an object was stored with.
func (m *Memory) Info(key string) (ObjectInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.info, ok
}

// Keys lists stored object keys in order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
