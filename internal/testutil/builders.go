package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/target/mmk-ce-queue/internal/domain/model"
)

// SubmitRequestBuilder provides a fluent interface for building SubmitRequest objects for testing.
type SubmitRequestBuilder struct {
	req *model.SubmitRequest
}

// NewSubmitRequest creates a new SubmitRequestBuilder for a main REPORT job without a project.
func NewSubmitRequest() *SubmitRequestBuilder {
	return &SubmitRequestBuilder{
		req: &model.SubmitRequest{JobType: model.JobTypeReport},
	}
}

// WithJobType sets the job type.
func (b *SubmitRequestBuilder) WithJobType(jobType string) *SubmitRequestBuilder {
	b.req.JobType = jobType
	return b
}

// WithProject sets the project id.
func (b *SubmitRequestBuilder) WithProject(projectID string) *SubmitRequestBuilder {
	b.req.ProjectID = &projectID
	return b
}

// WithTarget sets the target id.
func (b *SubmitRequestBuilder) WithTarget(targetID string) *SubmitRequestBuilder {
	b.req.TargetID = &targetID
	return b
}

// WithSubmitter sets the submitter id.
func (b *SubmitRequestBuilder) WithSubmitter(submitterID string) *SubmitRequestBuilder {
	b.req.SubmitterID = &submitterID
	return b
}

// WithCharacteristic adds a characteristic.
func (b *SubmitRequestBuilder) WithCharacteristic(key, value string) *SubmitRequestBuilder {
	if b.req.Characteristics == nil {
		b.req.Characteristics = make(map[string]string)
	}
	b.req.Characteristics[key] = value
	return b
}

// AsBranch marks the request as a branch analysis.
func (b *SubmitRequestBuilder) AsBranch(name string) *SubmitRequestBuilder {
	return b.WithCharacteristic(model.CharacteristicBranch, name)
}

// AsPullRequest marks the request as a pull-request analysis.
func (b *SubmitRequestBuilder) AsPullRequest(key string) *SubmitRequestBuilder {
	return b.WithCharacteristic(model.CharacteristicPullRequest, key)
}

// Build returns the constructed SubmitRequest.
func (b *SubmitRequestBuilder) Build() *model.SubmitRequest {
	return b.req
}

// QueuedJobBuilder builds queue rows directly, bypassing submit, for store-level tests.
type QueuedJobBuilder struct {
	job *model.QueuedJob
}

// NewQueuedJob creates a PENDING REPORT job created at TestTime.
func NewQueuedJob() *QueuedJobBuilder {
	now := TestTime()
	return &QueuedJobBuilder{
		job: &model.QueuedJob{
			ID:        uuid.NewString(),
			JobType:   model.JobTypeReport,
			Status:    model.TaskStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// WithID sets the job id.
func (b *QueuedJobBuilder) WithID(id string) *QueuedJobBuilder {
	b.job.ID = id
	return b
}

// WithJobType sets the job type.
func (b *QueuedJobBuilder) WithJobType(jobType string) *QueuedJobBuilder {
	b.job.JobType = jobType
	return b
}

// WithProject sets the project id.
func (b *QueuedJobBuilder) WithProject(projectID string) *QueuedJobBuilder {
	b.job.ProjectID = &projectID
	return b
}

// WithTarget sets the target id.
func (b *QueuedJobBuilder) WithTarget(targetID string) *QueuedJobBuilder {
	b.job.TargetID = &targetID
	return b
}

// WithCharacteristic adds a characteristic.
func (b *QueuedJobBuilder) WithCharacteristic(key, value string) *QueuedJobBuilder {
	if b.job.Characteristics == nil {
		b.job.Characteristics = make(map[string]string)
	}
	b.job.Characteristics[key] = value
	return b
}

// CreatedAt sets created_at and updated_at.
func (b *QueuedJobBuilder) CreatedAt(t time.Time) *QueuedJobBuilder {
	b.job.CreatedAt = t
	b.job.UpdatedAt = t
	return b
}

// InProgress marks the job as claimed by workerID at startedAt.
func (b *QueuedJobBuilder) InProgress(workerID string, startedAt time.Time) *QueuedJobBuilder {
	b.job.Status = model.TaskStatusInProgress
	b.job.WorkerID = &workerID
	b.job.StartedAt = &startedAt
	b.job.UpdatedAt = startedAt
	return b
}

// PreviouslyStarted marks a PENDING job as having been started before (a worn-out candidate).
func (b *QueuedJobBuilder) PreviouslyStarted(startedAt time.Time) *QueuedJobBuilder {
	b.job.StartedAt = &startedAt
	return b
}

// Build returns the constructed job.
func (b *QueuedJobBuilder) Build() *model.QueuedJob {
	return b.job
}
