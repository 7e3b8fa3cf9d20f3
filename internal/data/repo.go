package data

import (
	"hash/fnv"
	"log/slog"
	"math"

	"github.com/target/mmk-ce-queue/internal/data/pgxutil"
)

// RepoConfig holds options shared by the Postgres repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

func (c RepoConfig) timeProvider() TimeProvider {
	if c.TimeProvider == nil {
		return SystemClock{}
	}
	return c.TimeProvider
}

func (c RepoConfig) logger(component string) *slog.Logger {
	if c.Logger == nil {
		return slog.Default().With("component", component)
	}
	return c.Logger.With("component", component)
}

// Advisory lock majors reserved for the queue.
const (
	lockMajorQueue           int32 = 2000
	lockMajorActivityLineage int32 = 2001
)

// resetStaleLock serialises ResetStaleInProgress across nodes.
var resetStaleLock = pgxutil.LockKey{Major: lockMajorQueue, Minor: 1}

// lineageLock guards is_last bookkeeping for one (project, target) lineage.
func lineageLock(projectID, targetID *string) pgxutil.LockKey {
	h := fnv.New32a()
	if projectID != nil {
		_, _ = h.Write([]byte(*projectID))
	}
	_, _ = h.Write([]byte{0})
	if targetID != nil {
		_, _ = h.Write([]byte(*targetID))
	}
	return pgxutil.LockKey{Major: lockMajorActivityLineage, Minor: int32(h.Sum32() & math.MaxInt32)}
}
