package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// WorkerRegistryKey is a sorted set of worker ids scored by heartbeat expiry (unix ms).
const WorkerRegistryKey = "ce:workers:live"

// WorkerRegistryRepo tracks live workers in Redis. A worker is live while its
// last heartbeat has not expired.
type WorkerRegistryRepo struct {
	client redis.UniversalClient
	now    func() time.Time
}

// WorkerRegistryOption configures a WorkerRegistryRepo.
type WorkerRegistryOption func(*WorkerRegistryRepo)

// WithRegistryClock overrides the clock used to score heartbeats.
func WithRegistryClock(now func() time.Time) WorkerRegistryOption {
	return func(r *WorkerRegistryRepo) {
		if now != nil {
			r.now = now
		}
	}
}

// NewWorkerRegistryRepo creates a new WorkerRegistryRepo.
func NewWorkerRegistryRepo(client redis.UniversalClient, opts ...WorkerRegistryOption) *WorkerRegistryRepo {
	r := &WorkerRegistryRepo{client: client, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Heartbeat marks workerID live for ttl.
func (r *WorkerRegistryRepo) Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error {
	if workerID == "" {
		return ErrWorkerIDRequired
	}
	if ttl <= 0 {
		return errors.New("heartbeat ttl must be positive")
	}
	expiry := r.now().Add(ttl).UnixMilli()
	if err := r.client.ZAdd(ctx, WorkerRegistryKey, redis.Z{Score: float64(expiry), Member: workerID}).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}
	return nil
}

// Unregister removes workerID immediately.
func (r *WorkerRegistryRepo) Unregister(ctx context.Context, workerID string) error {
	if workerID == "" {
		return ErrWorkerIDRequired
	}
	if err := r.client.ZRem(ctx, WorkerRegistryKey, workerID).Err(); err != nil {
		return fmt.Errorf("redis zrem: %w", err)
	}
	return nil
}

// ListLive prunes expired entries and returns the ids still live.
func (r *WorkerRegistryRepo) ListLive(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(r.now().UnixMilli(), 10)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, WorkerRegistryKey, "-inf", "("+now)
	live := pipe.ZRangeByScore(ctx, WorkerRegistryKey, &redis.ZRangeBy{Min: now, Max: "+inf"})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis list live workers: %w", err)
	}
	return live.Val(), nil
}
