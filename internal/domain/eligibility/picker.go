package eligibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

// DefaultMaxClaimAttempts bounds how many candidates one Pick tries to claim.
const DefaultMaxClaimAttempts = 5

// Store is the slice of the task store the picker needs.
type Store interface {
	ListPendingAndInProgress(ctx context.Context, filter model.ListFilter) ([]*model.QueuedJob, error)
	Claim(ctx context.Context, params model.ClaimParams) (bool, error)
}

// PickerOptions configures a Picker.
type PickerOptions struct {
	Store             Store
	ParallelPREnabled bool
	MaxClaimAttempts  int
	Now               func() time.Time
}

// Picker selects and claims at most one job per call.
type Picker struct {
	store             Store
	parallelPREnabled bool
	maxAttempts       int
	now               func() time.Time
}

// NewPicker constructs a Picker.
func NewPicker(opts PickerOptions) (*Picker, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	attempts := opts.MaxClaimAttempts
	if attempts <= 0 {
		attempts = DefaultMaxClaimAttempts
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Picker{
		store:             opts.Store,
		parallelPREnabled: opts.ParallelPREnabled,
		maxAttempts:       attempts,
		now:               now,
	}, nil
}

// PickRequest describes one claim attempt on behalf of a worker.
type PickRequest struct {
	WorkerID         string
	ExcludeIssueSync bool
}

// PickResult is a successful claim. Job reflects the row after the claim.
type PickResult struct {
	Job                   *model.QueuedJob
	ConcurrentWithProject bool
	Attempts              int
}

// Pick claims the first eligible job. It returns (nil, nil) when nothing is
// eligible or every attempted claim was lost to another worker.
func (p *Picker) Pick(ctx context.Context, req PickRequest) (*PickResult, error) {
	if req.WorkerID == "" {
		return nil, errors.New("worker id is required")
	}

	jobs, err := p.store.ListPendingAndInProgress(ctx, model.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list queue snapshot: %w", err)
	}

	candidates := Candidates(jobs, Rules{
		ParallelPREnabled: p.parallelPREnabled,
		ExcludeIssueSync:  req.ExcludeIssueSync,
	})

	attempts := 0
	for _, c := range candidates {
		if attempts >= p.maxAttempts {
			break
		}
		attempts++

		now := p.now()
		claimed, claimErr := p.store.Claim(ctx, model.ClaimParams{ID: c.Job.ID, WorkerID: req.WorkerID, Now: now})
		if claimErr != nil {
			return nil, fmt.Errorf("claim task %s: %w", c.Job.ID, claimErr)
		}
		if !claimed {
			continue
		}

		job := c.Job.Clone()
		worker := req.WorkerID
		job.Status = model.TaskStatusInProgress
		job.WorkerID = &worker
		job.StartedAt = &now
		job.UpdatedAt = now
		return &PickResult{Job: job, ConcurrentWithProject: c.ConcurrentWithProject, Attempts: attempts}, nil
	}
	return nil, nil
}
