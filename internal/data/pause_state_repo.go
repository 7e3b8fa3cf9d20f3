package data

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PauseStateKey holds the fleet-wide pause flag. Present means paused.
const PauseStateKey = "ce:workers:paused"

// PauseStateRepo persists the worker pause flag in Redis so every node and the
// admin CLI observe the same value.
type PauseStateRepo struct {
	cache *RedisCacheRepo
	now   func() time.Time
}

// NewPauseStateRepo creates a new PauseStateRepo.
func NewPauseStateRepo(client redis.UniversalClient) *PauseStateRepo {
	return &PauseStateRepo{cache: NewRedisCacheRepo(client), now: time.Now}
}

// SetPaused sets or clears the flag. The stored value is the time it was set.
func (r *PauseStateRepo) SetPaused(ctx context.Context, paused bool) error {
	if !paused {
		if _, err := r.cache.Delete(ctx, PauseStateKey); err != nil {
			return fmt.Errorf("clear pause flag: %w", err)
		}
		return nil
	}
	stamp := []byte(r.now().UTC().Format(time.RFC3339))
	if err := r.cache.Set(ctx, PauseStateKey, stamp, 0); err != nil {
		return fmt.Errorf("set pause flag: %w", err)
	}
	return nil
}

// IsPaused reports whether the flag is set.
func (r *PauseStateRepo) IsPaused(ctx context.Context) (bool, error) {
	paused, err := r.cache.Exists(ctx, PauseStateKey)
	if err != nil {
		return false, fmt.Errorf("read pause flag: %w", err)
	}
	return paused, nil
}
