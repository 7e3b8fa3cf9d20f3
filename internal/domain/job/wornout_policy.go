package job

import (
	"errors"
	"time"
)

// ErrNegativeWornOutAfter indicates the configured threshold is negative.
var ErrNegativeWornOutAfter = errors.New("worn-out threshold must not be negative")

// DefaultWornOutBatchSize bounds how many rows one cleanup pass cancels.
const DefaultWornOutBatchSize = 500

// WornOutPolicy decides which pending jobs are left over from an interrupted
// claim: a PENDING row whose StartedAt is set and at least After old.
type WornOutPolicy struct {
	after     time.Duration
	batchSize int
}

// NewWornOutPolicy constructs a WornOutPolicy. A zero threshold treats every
// previously started pending job as worn out.
func NewWornOutPolicy(after time.Duration, batchSize int) (*WornOutPolicy, error) {
	if after < 0 {
		return nil, ErrNegativeWornOutAfter
	}
	if batchSize <= 0 {
		batchSize = DefaultWornOutBatchSize
	}
	return &WornOutPolicy{after: after, batchSize: batchSize}, nil
}

// After returns the staleness threshold.
func (p *WornOutPolicy) After() time.Duration {
	if p == nil {
		return 0
	}
	return p.after
}

// BatchSize returns the maximum number of rows per pass.
func (p *WornOutPolicy) BatchSize() int {
	if p == nil {
		return DefaultWornOutBatchSize
	}
	return p.batchSize
}

// Cutoff returns the newest StartedAt that still counts as worn out at now.
func (p *WornOutPolicy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.After())
}
