package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errStaleGeneration = errors.New("cache generation moved")

// ViewCache is a JSON-backed redis cache for read projections of type T.
// Failures are logged and treated as misses.
//
// Each key has a generation counter stored under key+":gen". Invalidate bumps
// the counter, and Store only writes when the counter still holds the value
// the caller read before loading the projection.
type ViewCache[T any] struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache creates a ViewCache backed by client. A ttl of 0 keeps keys
// until they are invalidated.
func NewViewCache[T any](client *redis.Client, ttl time.Duration, logger *zap.Logger) *ViewCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewCache[T]{client: client, ttl: ttl, logger: logger}
}

func generationKey(key string) string {
	return key + ":gen"
}

// Get returns the cached value for key, or false on a miss.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var v T
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, true
}

// Generation returns the current generation of key. It reports false when redis
// cannot be read, in which case the caller should not Store.
func (c *ViewCache[T]) Generation(ctx context.Context, key string) (int64, bool) {
	gen, err := c.client.Get(ctx, generationKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache generation read failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// Store writes value under key if key is still at generation gen.
func (c *ViewCache[T]) Store(ctx context.Context, key string, gen int64, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	genKey := generationKey(key)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("cache store skipped", zap.String("key", key), zap.Int64("generation", gen))
	default:
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops key and advances its generation in one transaction.
func (c *ViewCache[T]) Invalidate(ctx context.Context, key string) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		c.logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}
