package model

import (
	"strings"

	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

// SubmitRequest describes a job to enqueue.
type SubmitRequest struct {
	JobType         string            `json:"job_type"`
	ProjectID       *string           `json:"project_id,omitempty"`
	TargetID        *string           `json:"target_id,omitempty"`
	SubmitterID     *string           `json:"submitter_id,omitempty"`
	Characteristics map[string]string `json:"characteristics,omitempty"`
}

// Validate checks the request shape.
func (r *SubmitRequest) Validate() error {
	jt := strings.TrimSpace(r.JobType)
	if jt == "" {
		return apperrors.InvalidField("job_type", "job type is required")
	}
	if len(jt) > MaxJobTypeLength {
		return apperrors.InvalidField("job_type", "job type must be at most 40 characters")
	}
	if r.TargetID != nil && r.ProjectID == nil {
		return apperrors.InvalidField("project_id", "project id is required when a target is set")
	}
	if r.ProjectID != nil && strings.TrimSpace(*r.ProjectID) == "" {
		return apperrors.InvalidField("project_id", "project id must not be blank")
	}
	if r.TargetID != nil && strings.TrimSpace(*r.TargetID) == "" {
		return apperrors.InvalidField("target_id", "target id must not be blank")
	}
	for k := range r.Characteristics {
		if strings.TrimSpace(k) == "" {
			return apperrors.InvalidField("characteristics", "characteristic key must not be blank")
		}
	}
	return nil
}

// SubmitOption adjusts how Submit treats existing jobs.
type SubmitOption int

const (
	// UniqueQueuePerProject skips the submission when a pending job already exists
	// for the same project. Jobs without a project are always enqueued.
	UniqueQueuePerProject SubmitOption = iota + 1
	// UniqueQueuePerJobType skips the submission when any queued job has the same type.
	UniqueQueuePerJobType
)

// SubmitOptions is the resolved set of submit options.
type SubmitOptions struct {
	UniquePerProject bool
	UniquePerJobType bool
}

// ResolveSubmitOptions folds opts into a SubmitOptions value.
func ResolveSubmitOptions(opts ...SubmitOption) SubmitOptions {
	var out SubmitOptions
	for _, o := range opts {
		switch o {
		case UniqueQueuePerProject:
			out.UniquePerProject = true
		case UniqueQueuePerJobType:
			out.UniquePerJobType = true
		}
	}
	return out
}

// FailRequest carries the error recorded when a task is failed administratively.
type FailRequest struct {
	ErrorType    string
	ErrorMessage string
}

// Component is a catalog entry used to resolve project and target names.
type Component struct {
	ID        string `json:"id"         db:"id"`
	ProjectID string `json:"project_id" db:"entity_id"`
	Key       string `json:"key"        db:"kee"`
	Name      string `json:"name"       db:"name"`
}
