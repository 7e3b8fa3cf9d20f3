// Package model defines the data types shared by the compute engine queue, its
// storage layer and its workers.
package model

import "time"

// TaskStatus is the state of a row in the queue table.
type TaskStatus string

const (
	// TaskStatusPending marks a job waiting to be claimed.
	TaskStatusPending TaskStatus = "PENDING"
	// TaskStatusInProgress marks a job claimed by a worker.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
)

// Valid reports whether s is a known queue status.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// Well-known job types.
const (
	// JobTypeReport is the default analysis report job.
	JobTypeReport = "REPORT"
	// JobTypeIssueSync synchronizes issues and bypasses per-project serialization.
	JobTypeIssueSync = "ISSUE_SYNC"
)

// MaxJobTypeLength bounds the job_type column.
const MaxJobTypeLength = 40

// QueuedJob is one outstanding unit of work. WorkerID is non-nil iff Status is
// IN_PROGRESS. CreatedAt never changes after insert.
type QueuedJob struct {
	ID          string     `json:"id"                     db:"id"`
	JobType     string     `json:"job_type"               db:"job_type"`
	ProjectID   *string    `json:"project_id,omitempty"   db:"entity_id"`
	TargetID    *string    `json:"target_id,omitempty"    db:"component_id"`
	SubmitterID *string    `json:"submitter_id,omitempty" db:"submitter_id"`
	Status      TaskStatus `json:"status"                 db:"status"`
	WorkerID    *string    `json:"worker_id,omitempty"    db:"worker_id"`
	CreatedAt   time.Time  `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"             db:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"   db:"started_at"`

	Characteristics map[string]string `json:"characteristics,omitempty" db:"-"`
}

// Kind classifies the job from its type and characteristics.
func (j *QueuedJob) Kind() JobKind {
	return KindOf(j.JobType, j.Characteristics)
}

// Before reports whether j sorts ahead of other in queue order: oldest
// CreatedAt first, ID as the tie-break.
func (j *QueuedJob) Before(other *QueuedJob) bool {
	if !j.CreatedAt.Equal(other.CreatedAt) {
		return j.CreatedAt.Before(other.CreatedAt)
	}
	return j.ID < other.ID
}

// Clone returns a deep copy of j.
func (j *QueuedJob) Clone() *QueuedJob {
	if j == nil {
		return nil
	}
	c := *j
	c.ProjectID = cloneString(j.ProjectID)
	c.TargetID = cloneString(j.TargetID)
	c.SubmitterID = cloneString(j.SubmitterID)
	c.WorkerID = cloneString(j.WorkerID)
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.Characteristics != nil {
		c.Characteristics = make(map[string]string, len(j.Characteristics))
		for k, v := range j.Characteristics {
			c.Characteristics[k] = v
		}
	}
	return &c
}

// Task is the resolved view of a job handed to submitters and workers.
type Task struct {
	ID              string            `json:"id"`
	JobType         string            `json:"job_type"`
	Kind            JobKind           `json:"kind"`
	ProjectID       *string           `json:"project_id,omitempty"`
	ProjectKey      *string           `json:"project_key,omitempty"`
	ProjectName     *string           `json:"project_name,omitempty"`
	TargetID        *string           `json:"target_id,omitempty"`
	TargetKey       *string           `json:"target_key,omitempty"`
	TargetName      *string           `json:"target_name,omitempty"`
	SubmitterID     *string           `json:"submitter_id,omitempty"`
	WorkerID        *string           `json:"worker_id,omitempty"`
	Characteristics map[string]string `json:"characteristics,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
}

// NewTask builds the unresolved view of job. Names are filled in by the caller
// from the component catalog.
func NewTask(job *QueuedJob) *Task {
	c := job.Clone()
	return &Task{
		ID:              c.ID,
		JobType:         c.JobType,
		Kind:            c.Kind(),
		ProjectID:       c.ProjectID,
		TargetID:        c.TargetID,
		SubmitterID:     c.SubmitterID,
		WorkerID:        c.WorkerID,
		Characteristics: c.Characteristics,
		CreatedAt:       c.CreatedAt,
		StartedAt:       c.StartedAt,
	}
}

// QueueStats counts queue rows per status.
type QueueStats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
}

// WorkersPauseStatus reports the intake state of the worker fleet.
type WorkersPauseStatus string

const (
	// WorkersResumed means workers pick up new tasks.
	WorkersResumed WorkersPauseStatus = "RESUMED"
	// WorkersPausing means intake is paused but claimed tasks are still running.
	WorkersPausing WorkersPauseStatus = "PAUSING"
	// WorkersPaused means intake is paused and nothing is in progress.
	WorkersPaused WorkersPauseStatus = "PAUSED"
)

// RunState is the process-wide lifecycle gate consulted before claiming.
type RunState string

const (
	// RunStateStarted allows peeks.
	RunStateStarted RunState = "STARTED"
	// RunStateStopping makes every peek return nothing.
	RunStateStopping RunState = "STOPPING"
)

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ClaimParams identifies a pending job and the worker claiming it.
type ClaimParams struct {
	ID       string
	WorkerID string
	Now      time.Time
}

// DeleteParams identifies a queue row to delete. IfStatus, when set, restricts
// the delete to rows in that status.
type DeleteParams struct {
	ID       string
	IfStatus *TaskStatus
}

// ListFilter narrows the picker snapshot.
type ListFilter struct {
	ProjectID *string
}

// ArchiveParams moves a queue row into history in one transaction.
type ArchiveParams struct {
	TaskID string
	// IfStatus restricts the queue delete to rows in this status.
	IfStatus *TaskStatus
	// RequireRow rolls the transaction back with NotFound when no row was deleted.
	RequireRow bool
	// HeldBy restricts the delete to an IN_PROGRESS row claimed by this
	// worker. A row held by anyone else rolls back with IllegalState.
	HeldBy *string
	Record *ActivityRecord
}

// ArchiveResult reports what Archive removed from the queue. Removed is nil
// when the queue row was already gone.
type ArchiveResult struct {
	Removed *QueuedJob
	Record  *ActivityRecord
}
