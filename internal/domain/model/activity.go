package model

import (
	"fmt"
	"time"
)

// Outcome is the terminal status written to history.
type Outcome string

const (
	// OutcomeSuccess marks a job that completed normally.
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeFailed marks a job that failed.
	OutcomeFailed Outcome = "FAILED"
	// OutcomeCanceled marks a job removed before or without running.
	OutcomeCanceled Outcome = "CANCELED"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailed || o == OutcomeCanceled
}

// ActivityRecord is the immutable history row written when a job leaves the
// queue. Only IsLast is ever updated afterwards, and only to false when a newer
// record for the same (ProjectID, TargetID) lineage is written.
type ActivityRecord struct {
	ID              string     `json:"id"                         db:"id"`
	TaskID          string     `json:"task_id"                    db:"task_id"`
	JobType         string     `json:"job_type"                   db:"job_type"`
	ProjectID       *string    `json:"project_id,omitempty"       db:"entity_id"`
	TargetID        *string    `json:"target_id,omitempty"        db:"component_id"`
	Outcome         Outcome    `json:"status"                     db:"status"`
	WorkerID        *string    `json:"worker_id,omitempty"        db:"worker_id"`
	NodeName        *string    `json:"node_name,omitempty"        db:"node_name"`
	SubmitterID     *string    `json:"submitter_id,omitempty"     db:"submitter_id"`
	AnalysisID      *string    `json:"analysis_id,omitempty"      db:"analysis_id"`
	ErrorMessage    *string    `json:"error_message,omitempty"    db:"error_message"`
	ErrorStacktrace *string    `json:"error_stacktrace,omitempty" db:"error_stacktrace"`
	ErrorType       *string    `json:"error_type,omitempty"       db:"error_type"`
	IsLast          bool       `json:"is_last"                    db:"is_last"`
	CreatedAt       time.Time  `json:"created_at"                 db:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"       db:"started_at"`
	ExecutedAt      time.Time  `json:"executed_at"                db:"executed_at"`
	ExecutionTimeMs *int64     `json:"execution_time_ms,omitempty" db:"execution_time_ms"`
}

// NewActivityRecord seeds a history record from job. Outcome-specific fields
// are set by the caller.
func NewActivityRecord(id string, job *QueuedJob, outcome Outcome, executedAt time.Time) *ActivityRecord {
	c := job.Clone()
	return &ActivityRecord{
		ID:          id,
		TaskID:      c.ID,
		JobType:     c.JobType,
		ProjectID:   c.ProjectID,
		TargetID:    c.TargetID,
		Outcome:     outcome,
		WorkerID:    c.WorkerID,
		SubmitterID: c.SubmitterID,
		IsLast:      true,
		CreatedAt:   c.CreatedAt,
		StartedAt:   c.StartedAt,
		ExecutedAt:  executedAt,
	}
}

// ApplyExecution copies the claiming worker and start time from removed and
// recomputes the execution time.
func (r *ActivityRecord) ApplyExecution(removed *QueuedJob) {
	if removed == nil {
		r.computeExecutionTime()
		return
	}
	if removed.WorkerID != nil {
		r.WorkerID = cloneString(removed.WorkerID)
	}
	if removed.StartedAt != nil {
		t := *removed.StartedAt
		r.StartedAt = &t
	}
	r.computeExecutionTime()
}

func (r *ActivityRecord) computeExecutionTime() {
	if r.StartedAt == nil {
		r.ExecutionTimeMs = nil
		return
	}
	ms := r.ExecutedAt.Sub(*r.StartedAt).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	r.ExecutionTimeMs = &ms
}

// TaskResult carries what a worker produced for a successful job.
type TaskResult struct {
	AnalysisID *string
}

// TaskError is the failure reported by a worker. It is only accepted together
// with OutcomeFailed.
type TaskError struct {
	Type       string
	Message    string
	Stacktrace string
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ApplyTo records e on r.
func (e *TaskError) ApplyTo(r *ActivityRecord) {
	if e == nil {
		return
	}
	if e.Message != "" {
		r.ErrorMessage = stringPtr(e.Message)
	}
	if e.Stacktrace != "" {
		r.ErrorStacktrace = stringPtr(e.Stacktrace)
	}
	if e.Type != "" {
		r.ErrorType = stringPtr(e.Type)
	}
}

// ActivityListOptions filters history listings.
type ActivityListOptions struct {
	ProjectID *string
	TargetID  *string
	JobType   *string
	Outcome   *Outcome
	OnlyLast  bool
	Limit     int
	Offset    int
}

func stringPtr(s string) *string { return &s }
