// Package queuetest provides an in-memory queue store for service and worker
// tests that do not need Postgres.
package queuetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

// MemoryQueue implements core.TaskStore, core.TaskArchiver and
// core.ActivityStore over maps guarded by one mutex. Claim and Archive are
// atomic with respect to each other, matching the single-statement and
// single-transaction guarantees of the Postgres repositories.
type MemoryQueue struct {
	mu       sync.Mutex
	jobs     map[string]*model.QueuedJob
	activity []*model.ActivityRecord
	notify   chan struct{}

	// BeforeClaim, when set, runs before each claim outside the lock. Tests
	// use it to simulate another worker winning the race.
	BeforeClaim func(id string)
}

// NewMemoryQueue returns an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs:   make(map[string]*model.QueuedJob),
		notify: make(chan struct{}, 1),
	}
}

// Seed stores jobs as-is, bypassing notifications.
func (m *MemoryQueue) Seed(jobs ...*model.QueuedJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range jobs {
		m.jobs[j.ID] = j.Clone()
	}
}

// Jobs returns a copy of every queued row in queue order.
func (m *MemoryQueue) Jobs() []*model.QueuedJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked(func(*model.QueuedJob) bool { return true })
}

// Job returns a copy of one row, or nil.
func (m *MemoryQueue) Job(id string) *model.QueuedJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Clone()
}

// Activity returns a copy of every history record in insertion order.
func (m *MemoryQueue) Activity() []*model.ActivityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ActivityRecord, 0, len(m.activity))
	for _, r := range m.activity {
		c := *r
		out = append(out, &c)
	}
	return out
}

// Insert implements core.TaskStore.
func (m *MemoryQueue) Insert(_ context.Context, job *model.QueuedJob) error {
	if job == nil || job.ID == "" {
		return apperrors.InvalidArgument("task id is required")
	}
	m.mu.Lock()
	if _, exists := m.jobs[job.ID]; exists {
		m.mu.Unlock()
		return apperrors.DuplicateKey("task " + job.ID + " already exists")
	}
	c := job.Clone()
	if c.Status == "" {
		c.Status = model.TaskStatusPending
	}
	m.jobs[c.ID] = c
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// Claim implements core.TaskStore.
func (m *MemoryQueue) Claim(_ context.Context, params model.ClaimParams) (bool, error) {
	if m.BeforeClaim != nil {
		m.BeforeClaim(params.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[params.ID]
	if !ok || job.Status != model.TaskStatusPending {
		return false, nil
	}
	if job.TargetID != nil {
		for _, other := range m.jobs {
			if other.Status == model.TaskStatusInProgress && other.TargetID != nil && *other.TargetID == *job.TargetID {
				return false, nil
			}
		}
	}
	worker := params.WorkerID
	now := params.Now
	job.Status = model.TaskStatusInProgress
	job.WorkerID = &worker
	job.StartedAt = &now
	job.UpdatedAt = now
	return true, nil
}

// Delete implements core.TaskStore.
func (m *MemoryQueue) Delete(_ context.Context, params model.DeleteParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[params.ID]
	if !ok || (params.IfStatus != nil && job.Status != *params.IfStatus) {
		return apperrors.NotFoundf("task %s not found", params.ID)
	}
	delete(m.jobs, params.ID)
	return nil
}

// ResetStaleInProgress implements core.TaskStore.
func (m *MemoryQueue) ResetStaleInProgress(_ context.Context, knownWorkerIDs []string, now time.Time) (int64, error) {
	known := make(map[string]struct{}, len(knownWorkerIDs))
	for _, id := range knownWorkerIDs {
		known[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, job := range m.jobs {
		if job.Status != model.TaskStatusInProgress {
			continue
		}
		if job.WorkerID != nil {
			if _, ok := known[*job.WorkerID]; ok {
				continue
			}
		}
		resetLocked(job, now)
		n++
	}
	return n, nil
}

// ResetWorkerInProgress implements core.TaskStore.
func (m *MemoryQueue) ResetWorkerInProgress(_ context.Context, workerID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, job := range m.jobs {
		if job.Status == model.TaskStatusInProgress && job.WorkerID != nil && *job.WorkerID == workerID {
			resetLocked(job, now)
			n++
		}
	}
	return n, nil
}

func resetLocked(job *model.QueuedJob, now time.Time) {
	job.Status = model.TaskStatusPending
	job.WorkerID = nil
	job.UpdatedAt = now
}

// ListPendingAndInProgress implements core.TaskStore.
func (m *MemoryQueue) ListPendingAndInProgress(_ context.Context, filter model.ListFilter) ([]*model.QueuedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked(func(j *model.QueuedJob) bool {
		if filter.ProjectID == nil {
			return true
		}
		return j.ProjectID != nil && *j.ProjectID == *filter.ProjectID
	}), nil
}

// GetByID implements core.TaskStore.
func (m *MemoryQueue) GetByID(_ context.Context, id string) (*model.QueuedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("task %s not found", id)
	}
	return job.Clone(), nil
}

// ListByStatus implements core.TaskStore.
func (m *MemoryQueue) ListByStatus(_ context.Context, status model.TaskStatus) ([]*model.QueuedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked(func(j *model.QueuedJob) bool { return j.Status == status }), nil
}

// ListWornOut implements core.TaskStore.
func (m *MemoryQueue) ListWornOut(_ context.Context, cutoff time.Time, limit int) ([]*model.QueuedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sortedLocked(func(j *model.QueuedJob) bool {
		return j.Status == model.TaskStatusPending && j.StartedAt != nil && !j.StartedAt.After(cutoff)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByStatus implements core.TaskStore.
func (m *MemoryQueue) CountByStatus(_ context.Context) (*model.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats model.QueueStats
	for _, job := range m.jobs {
		switch job.Status {
		case model.TaskStatusPending:
			stats.Pending++
		case model.TaskStatusInProgress:
			stats.InProgress++
		}
	}
	return &stats, nil
}

// HasQueued implements core.TaskStore.
func (m *MemoryQueue) HasQueued(_ context.Context, filter core.QueueFilter) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if matches(job, filter) {
			return true, nil
		}
	}
	return false, nil
}

func matches(job *model.QueuedJob, filter core.QueueFilter) bool {
	switch {
	case filter.ProjectID != nil:
		if job.ProjectID == nil || *job.ProjectID != *filter.ProjectID {
			return false
		}
	case filter.MatchNullProject:
		if job.ProjectID != nil {
			return false
		}
	}
	if filter.JobType != nil && job.JobType != *filter.JobType {
		return false
	}
	if filter.Status != nil && job.Status != *filter.Status {
		return false
	}
	return true
}

// HasIssueSyncPendingOrInProgress implements core.TaskStore.
func (m *MemoryQueue) HasIssueSyncPendingOrInProgress(ctx context.Context) (bool, error) {
	jobType := model.JobTypeIssueSync
	return m.HasQueued(ctx, core.QueueFilter{JobType: &jobType})
}

// WaitForNotification blocks until a task is inserted or ctx ends.
func (m *MemoryQueue) WaitForNotification(ctx context.Context) error {
	select {
	case <-m.notify:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Archive implements core.TaskArchiver.
func (m *MemoryQueue) Archive(_ context.Context, params model.ArchiveParams) (*model.ArchiveResult, error) {
	if params.TaskID == "" || params.Record == nil {
		return nil, apperrors.InvalidArgument("task id and record are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed *model.QueuedJob
	if job, ok := m.jobs[params.TaskID]; ok && archivable(job, params) {
		removed = job.Clone()
		delete(m.jobs, params.TaskID)
	}
	switch {
	case removed == nil && params.HeldBy != nil:
		return nil, apperrors.IllegalStatef("task %s is not held by worker %s", params.TaskID, *params.HeldBy)
	case removed == nil && params.RequireRow:
		return nil, apperrors.NotFoundf("task %s not found", params.TaskID)
	}

	params.Record.ApplyExecution(removed)
	m.appendActivityLocked(params.Record)
	return &model.ArchiveResult{Removed: removed, Record: params.Record}, nil
}

func archivable(job *model.QueuedJob, params model.ArchiveParams) bool {
	if params.IfStatus != nil && job.Status != *params.IfStatus {
		return false
	}
	if params.HeldBy != nil {
		return job.Status == model.TaskStatusInProgress && sameString(job.WorkerID, params.HeldBy)
	}
	return true
}

// InsertActivity appends a history record and flips is_last on its lineage.
// Use Activities() where a core.ActivityStore is needed.
func (m *MemoryQueue) InsertActivity(_ context.Context, record *model.ActivityRecord) error {
	if record == nil || record.ID == "" {
		return apperrors.InvalidArgument("activity id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendActivityLocked(record)
	return nil
}

func (m *MemoryQueue) appendActivityLocked(record *model.ActivityRecord) {
	for _, prev := range m.activity {
		if prev.IsLast && sameString(prev.ProjectID, record.ProjectID) && sameString(prev.TargetID, record.TargetID) {
			prev.IsLast = false
		}
	}
	record.IsLast = true
	c := *record
	m.activity = append(m.activity, &c)
}

// Activities adapts the history half of the queue to core.ActivityStore.
func (m *MemoryQueue) Activities() core.ActivityStore {
	return activityStore{m: m}
}

type activityStore struct {
	m *MemoryQueue
}

func (a activityStore) Insert(ctx context.Context, record *model.ActivityRecord) error {
	return a.m.InsertActivity(ctx, record)
}

func (a activityStore) GetByID(_ context.Context, id string) (*model.ActivityRecord, error) {
	for _, r := range a.m.Activity() {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperrors.NotFoundf("activity %s not found", id)
}

func (a activityStore) List(_ context.Context, opts model.ActivityListOptions) ([]*model.ActivityRecord, error) {
	all := a.m.Activity()
	out := make([]*model.ActivityRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		r := all[i]
		switch {
		case opts.ProjectID != nil && !sameString(r.ProjectID, opts.ProjectID):
		case opts.TargetID != nil && !sameString(r.TargetID, opts.TargetID):
		case opts.JobType != nil && r.JobType != *opts.JobType:
		case opts.Outcome != nil && r.Outcome != *opts.Outcome:
		case opts.OnlyLast && !r.IsLast:
		default:
			out = append(out, r)
		}
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryQueue) sortedLocked(keep func(*model.QueuedJob) bool) []*model.QueuedJob {
	out := make([]*model.QueuedJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		if keep(job) {
			out = append(out, job.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var (
	_ core.TaskStore     = (*MemoryQueue)(nil)
	_ core.TaskArchiver  = (*MemoryQueue)(nil)
	_ core.ActivityStore = activityStore{}
)
