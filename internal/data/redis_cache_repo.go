package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-ce-queue/internal/core"
)

var errEmptyKey = errors.New("cache key cannot be empty")

// RedisCacheRepo stores opaque byte values under plain string keys. It backs
// the component catalog cache and the pause flag.
type RedisCacheRepo struct {
	client redis.UniversalClient
}

var _ core.CacheRepository = (*RedisCacheRepo)(nil)

func NewRedisCacheRepo(client redis.UniversalClient) *RedisCacheRepo {
	return &RedisCacheRepo{client: client}
}

func cacheErr(op, key string, err error) error {
	return fmt.Errorf("redis %s %q: %w", op, key, err)
}

// Set writes value under key. ttl 0 means no expiry.
func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return cacheErr("set", key, err)
	}
	return nil
}

// Get returns (nil, nil) for a missing key.
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyKey
	}
	value, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, cacheErr("get", key, err)
	}
	return value, nil
}

// Delete reports whether key was present.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	return r.count(ctx, "del", key, r.client.Del)
}

func (r *RedisCacheRepo) Exists(ctx context.Context, key string) (bool, error) {
	return r.count(ctx, "exists", key, r.client.Exists)
}

// count runs a single-key command answering with a key count.
func (r *RedisCacheRepo) count(
	ctx context.Context,
	op, key string,
	cmd func(context.Context, ...string) *redis.IntCmd,
) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	n, err := cmd(ctx, key).Result()
	if err != nil {
		return false, cacheErr(op, key, err)
	}
	return n > 0, nil
}

// Health pings the server.
func (r *RedisCacheRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
