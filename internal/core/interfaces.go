// Package core declares the ports between the queue services and the storage,
// cache and runtime collaborators that back them.
package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

// QueueFilter selects queued rows for existence checks. Nil fields match any
// value; ProjectID matches NULL only through MatchNullProject.
type QueueFilter struct {
	ProjectID        *string
	MatchNullProject bool
	JobType          *string
	Status           *model.TaskStatus
}

// TaskStore owns the ce_queue table.
type TaskStore interface {
	// Insert writes a PENDING row with its characteristics and notifies idle
	// workers. It fails with DuplicateKey when the id already exists.
	Insert(ctx context.Context, job *model.QueuedJob) error
	// Claim moves a PENDING row to IN_PROGRESS in one conditional statement.
	// It returns false when the row is gone or was claimed by someone else.
	Claim(ctx context.Context, params model.ClaimParams) (bool, error)
	// Delete removes a row. It fails with NotFound when nothing matched.
	Delete(ctx context.Context, params model.DeleteParams) error
	// ResetStaleInProgress returns IN_PROGRESS rows whose worker is not in
	// knownWorkerIDs to PENDING. An empty set resets every IN_PROGRESS row.
	ResetStaleInProgress(ctx context.Context, knownWorkerIDs []string, now time.Time) (int64, error)
	// ResetWorkerInProgress returns the IN_PROGRESS rows held by workerID to PENDING.
	ResetWorkerInProgress(ctx context.Context, workerID string, now time.Time) (int64, error)
	ListPendingAndInProgress(ctx context.Context, filter model.ListFilter) ([]*model.QueuedJob, error)
	GetByID(ctx context.Context, id string) (*model.QueuedJob, error)
	ListByStatus(ctx context.Context, status model.TaskStatus) ([]*model.QueuedJob, error)
	// ListWornOut returns PENDING rows with started_at at or before cutoff.
	ListWornOut(ctx context.Context, cutoff time.Time, limit int) ([]*model.QueuedJob, error)
	CountByStatus(ctx context.Context) (*model.QueueStats, error)
	HasQueued(ctx context.Context, filter QueueFilter) (bool, error)
	HasIssueSyncPendingOrInProgress(ctx context.Context) (bool, error)
	WaitForNotification(ctx context.Context) error
}

// CharacteristicStore owns the ce_task_characteristics table.
type CharacteristicStore interface {
	InsertTx(ctx context.Context, tx *sql.Tx, jobID string, characteristics map[string]string) error
	ListByJobIDs(ctx context.Context, jobIDs []string) (map[string]map[string]string, error)
}

// ActivityStore owns the ce_activity table.
type ActivityStore interface {
	// Insert flips is_last on the record's lineage and writes the record.
	Insert(ctx context.Context, record *model.ActivityRecord) error
	GetByID(ctx context.Context, id string) (*model.ActivityRecord, error)
	List(ctx context.Context, opts model.ActivityListOptions) ([]*model.ActivityRecord, error)
}

// TaskArchiver moves a queue row into history atomically.
type TaskArchiver interface {
	Archive(ctx context.Context, params model.ArchiveParams) (*model.ArchiveResult, error)
}

// ComponentRepository reads the component catalog.
type ComponentRepository interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Component, error)
}

// ComponentCatalog resolves project and target names for tasks.
type ComponentCatalog interface {
	Resolve(ctx context.Context, ids ...string) (map[string]*model.Component, error)
}

// PauseStateStore persists the fleet-wide pause flag.
type PauseStateStore interface {
	SetPaused(ctx context.Context, paused bool) error
	IsPaused(ctx context.Context) (bool, error)
}

// WorkerRegistry tracks live workers through heartbeats.
type WorkerRegistry interface {
	Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error
	Unregister(ctx context.Context, workerID string) error
	ListLive(ctx context.Context) ([]string, error)
}

// RunStateGate reports whether the process still accepts work.
type RunStateGate interface {
	RunState() model.RunState
}

// NodeInformation identifies the node writing history records.
type NodeInformation interface {
	NodeName() string
}

// QueueMetrics counts finished tasks.
type QueueMetrics interface {
	AddSuccess(executionTime time.Duration)
	AddError(executionTime time.Duration)
}

// TimeProvider abstracts the clock for tests.
type TimeProvider interface {
	Now() time.Time
}

// QueueMaintenance is the part of the queue controller driven by the sweeper.
type QueueMaintenance interface {
	CancelWornOuts(ctx context.Context) (int, error)
	ResetTasksWithUnknownWorkerUUIDs(ctx context.Context, knownWorkerIDs []string) (int64, error)
	Stats(ctx context.Context) (*model.QueueStats, error)
}
