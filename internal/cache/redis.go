package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// keyPrefix namespaces every key this service writes into the shared store.
const keyPrefix = "mediagrab:"

// Redis delegates to a shared Redis store. Backend unavailability degrades
// to cache misses and dropped writes rather than failing the request.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis dials the store described by url (redis:// form).
func NewRedis(url string, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts), logger: logger}, nil
}

// Get fetches key, answering absent on any backend error.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Error("redis get failed", zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

// Set stores value under key for ttl; failures are logged and dropped.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		r.logger.Error("redis set failed", zap.Error(err))
	}
}

// Delete removes key; failures are logged and dropped.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		r.logger.Error("redis delete failed", zap.Error(err))
	}
}

// Clear removes every key in this service's namespace.
func (r *Redis) Clear(ctx context.Context) {
	keys, err := r.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		r.logger.Error("redis clear failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Error("redis clear failed", zap.Error(err))
	}
}

// Stats reports namespaced occupancy; Redis handles expiry itself so every
// reported key is valid.
func (r *Redis) Stats(ctx context.Context) Stats {
	st := Stats{Backend: "redis"}
	keys, err := r.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		r.logger.Error("redis stats failed", zap.Error(err))
		return st
	}
	st.TotalKeys = len(keys)
	st.ValidKeys = len(keys)
	return st
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
