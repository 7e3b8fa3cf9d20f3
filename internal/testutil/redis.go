package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCandidates are tried in order when REDIS_ADDR is unset: the compose
// service name used in CI, a host-network CI redis, then the local test profile.
var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"}

// lockDB holds the per-database reservation keys; it is never flushed.
const lockDB = 0

func requireRedis() bool { return envTrue("TEST_REQUIRE_REDIS", "TEST_REQUIRE_INFRA") }

func pingRedis(addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// findRedis returns the first reachable address.
func findRedis(t TestingTB) (string, error) {
	t.Helper()
	candidates := redisCandidates
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}
	var lastErr error
	for _, addr := range candidates {
		client, err := pingRedis(addr, lockDB)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", addr, err)
			continue
		}
		closeQuietly(t, "redis probe", client)
		return addr, nil
	}
	return "", lastErr
}

// reserveRedisDB claims a logical database in 1..15 for the duration of the
// test so packages running in parallel do not flush each other's keys.
// TEST_REDIS_DB pins the index instead.
func reserveRedisDB(t TestingTB, addr string) int {
	t.Helper()
	if raw := os.Getenv("TEST_REDIS_DB"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", raw)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: lockDB})
	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for n := 1; n <= 15; n++ {
		key := fmt.Sprintf("cequeue:testutil:db_lock:%d", n)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		won, err := meta.SetNX(ctx, key, owner, 30*time.Minute).Result()
		cancel()
		if err != nil || !won {
			continue
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := meta.Del(ctx, key).Err(); err != nil {
				t.Logf("release %s: %v", key, err)
			}
			closeQuietly(t, "redis meta", meta)
		})
		return n
	}

	closeQuietly(t, "redis meta", meta)
	t.Logf("no free redis db, sharing db 1")
	return 1
}

// SetupTestRedis returns a client on an empty, reserved logical database.
// The test is skipped when no redis is reachable.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr, err := findRedis(t)
	if err != nil {
		unavailable(t, requireRedis(), "redis not available: %v", err)
		return nil
	}

	db := reserveRedisDB(t, addr)
	client, err := pingRedis(addr, db)
	if err != nil {
		unavailable(t, requireRedis(), "redis db %d at %s not available: %v", db, addr, err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis db %d: %v", db, err)
	}
	t.Logf("using redis db %d at %s", db, addr)
	t.Cleanup(func() { closeQuietly(t, "redis client", client) })
	return client
}
