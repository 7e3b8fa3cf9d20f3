// Package testutil provides Postgres and Redis harnesses for queue integration tests.
//
// Integration tests skip when the backing service is unreachable. Set
// TEST_REQUIRE_INFRA (or TEST_REQUIRE_DB / TEST_REQUIRE_REDIS) to turn those
// skips into failures in CI.
package testutil

import (
	"os"
	"slices"
	"strings"
	"time"
)

// TestingTB is the subset of testing.TB the harnesses need.
type TestingTB interface {
	Helper()
	Cleanup(func())
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envTrue(keys ...string) bool {
	for _, key := range keys {
		if slices.Contains([]string{"1", "true", "yes", "y"}, strings.ToLower(os.Getenv(key))) {
			return true
		}
	}
	return false
}

// unavailable skips the test, or fails it when the caller demanded the dependency.
func unavailable(t TestingTB, required bool, format string, args ...any) {
	t.Helper()
	if required {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

func closeQuietly(t TestingTB, what string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		t.Logf("close %s: %v", what, err)
	}
}

// TestTime is the reference instant queue tests build their timelines from.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// FixedTimeFunc returns a clock frozen at t.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestTimeProvider is a manually advanced clock. It satisfies the data and
// service TimeProvider interfaces.
type TestTimeProvider struct {
	now time.Time
}

func NewTestTimeProvider(start time.Time) *TestTimeProvider {
	return &TestTimeProvider{now: start}
}

func (p *TestTimeProvider) Now() time.Time { return p.now }

func (p *TestTimeProvider) SetTime(t time.Time) { p.now = t }

// AddTime moves the clock forward by d.
func (p *TestTimeProvider) AddTime(d time.Duration) { p.now = p.now.Add(d) }
