package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

type jobSpec struct {
	id      string
	project string
	target  string
	created int64
	status  model.TaskStatus
	kind    model.JobKind
}

func newJob(s jobSpec) *model.QueuedJob {
	job := &model.QueuedJob{
		ID:        s.id,
		JobType:   model.JobTypeReport,
		Status:    s.status,
		CreatedAt: time.Unix(s.created, 0),
		UpdatedAt: time.Unix(s.created, 0),
	}
	if job.Status == "" {
		job.Status = model.TaskStatusPending
	}
	if s.project != "" {
		p := s.project
		job.ProjectID = &p
	}
	target := s.target
	if target == "" {
		target = "target-" + s.id
	}
	if s.project != "" {
		job.TargetID = &target
	}
	switch s.kind {
	case model.KindBranch:
		job.Characteristics = map[string]string{model.CharacteristicBranch: target}
	case model.KindPullRequest:
		job.Characteristics = map[string]string{model.CharacteristicPullRequest: target}
	case model.KindIssueSync:
		job.JobType = model.JobTypeIssueSync
	case model.KindMain:
	}
	if job.Status == model.TaskStatusInProgress {
		w := "worker-" + s.id
		job.WorkerID = &w
		started := job.CreatedAt
		job.StartedAt = &started
	}
	return job
}

func ids(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Job.ID)
	}
	return out
}

func TestCandidates_HeadOfLinePerProject(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "2", project: "p1", created: 2}),
		newJob(jobSpec{id: "1", project: "p1", created: 1}),
		newJob(jobSpec{id: "3", project: "p2", created: 3}),
	}

	assert.Equal(t, []string{"1", "3"}, ids(Candidates(jobs, Rules{})))
}

func TestCandidates_TieBreakOnID(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "d", project: "p1", created: 1}),
		newJob(jobSpec{id: "c", project: "p1", created: 1}),
	}

	assert.Equal(t, []string{"c"}, ids(Candidates(jobs, Rules{})))
}

func TestCandidates_GlobalOrderAcrossProjects(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "b", project: "p2", created: 5}),
		newJob(jobSpec{id: "a", project: "p1", created: 5}),
		newJob(jobSpec{id: "z", project: "p3", created: 4}),
	}

	assert.Equal(t, []string{"z", "a", "b"}, ids(Candidates(jobs, Rules{})))
}

func TestCandidates_LockedProject(t *testing.T) {
	tests := []struct {
		name   string
		kind   model.JobKind
		rules  Rules
		want   []string
		concur bool
	}{
		{name: "main waits for branch in progress", kind: model.KindMain, rules: Rules{ParallelPREnabled: true}, want: []string{}},
		{name: "branch waits for branch in progress", kind: model.KindBranch, rules: Rules{ParallelPREnabled: true}, want: []string{}},
		{name: "pull request runs concurrently when enabled", kind: model.KindPullRequest, rules: Rules{ParallelPREnabled: true}, want: []string{"2"}, concur: true},
		{name: "pull request waits when disabled", kind: model.KindPullRequest, rules: Rules{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := []*model.QueuedJob{
				newJob(jobSpec{id: "1", project: "p1", created: 1, status: model.TaskStatusInProgress, kind: model.KindBranch}),
				newJob(jobSpec{id: "2", project: "p1", created: 2, kind: tt.kind}),
			}
			got := Candidates(jobs, tt.rules)
			assert.Equal(t, tt.want, ids(got))
			if len(got) == 1 {
				assert.Equal(t, tt.concur, got[0].ConcurrentWithProject)
			}
		})
	}
}

func TestCandidates_PullRequestNeverOvertakesOlderPendingBranch(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "1", project: "p1", created: 1, status: model.TaskStatusInProgress, kind: model.KindBranch}),
		newJob(jobSpec{id: "2", project: "p1", created: 2, kind: model.KindBranch}),
		newJob(jobSpec{id: "3", project: "p1", created: 3, kind: model.KindPullRequest}),
	}

	assert.Empty(t, Candidates(jobs, Rules{ParallelPREnabled: true}))
}

func TestCandidates_SamePullRequestNeverTwice(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "1", project: "p1", target: "pr-7", created: 1, status: model.TaskStatusInProgress, kind: model.KindPullRequest}),
		newJob(jobSpec{id: "2", project: "p1", target: "pr-7", created: 2, kind: model.KindPullRequest}),
	}

	assert.Empty(t, Candidates(jobs, Rules{ParallelPREnabled: true}))
}

func TestCandidates_IndependentPullRequests(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "1", project: "p1", target: "pr-7", created: 1, status: model.TaskStatusInProgress, kind: model.KindPullRequest}),
		newJob(jobSpec{id: "2", project: "p1", target: "pr-8", created: 2, kind: model.KindPullRequest}),
	}

	got := Candidates(jobs, Rules{ParallelPREnabled: true})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].Job.ID)
	assert.False(t, got[0].ConcurrentWithProject)
}

func TestCandidates_InProgressPullRequestDoesNotLockProject(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "1", project: "p1", created: 1, status: model.TaskStatusInProgress, kind: model.KindPullRequest}),
		newJob(jobSpec{id: "2", project: "p1", created: 2, kind: model.KindMain}),
	}

	assert.Equal(t, []string{"2"}, ids(Candidates(jobs, Rules{ParallelPREnabled: true})))
	assert.Empty(t, Candidates(jobs, Rules{}), "without parallel PRs any in-progress job serializes the project")
}

func TestCandidates_IssueSyncBypassesProjectLock(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "1", project: "p1", created: 1, status: model.TaskStatusInProgress, kind: model.KindBranch}),
		newJob(jobSpec{id: "2", project: "p1", created: 2, kind: model.KindBranch}),
		newJob(jobSpec{id: "3", project: "p1", created: 3, kind: model.KindIssueSync}),
	}

	assert.Equal(t, []string{"3"}, ids(Candidates(jobs, Rules{})))
	assert.Empty(t, Candidates(jobs, Rules{ExcludeIssueSync: true}))
}

func TestCandidates_IssueSyncDoesNotBecomeHead(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "1", project: "p1", created: 1, kind: model.KindIssueSync}),
		newJob(jobSpec{id: "2", project: "p1", created: 2, kind: model.KindMain}),
	}

	assert.Equal(t, []string{"1", "2"}, ids(Candidates(jobs, Rules{})))
}

func TestCandidates_JobsWithoutProject(t *testing.T) {
	jobs := []*model.QueuedJob{
		newJob(jobSpec{id: "2", created: 2}),
		newJob(jobSpec{id: "1", created: 1}),
	}

	assert.Equal(t, []string{"1", "2"}, ids(Candidates(jobs, Rules{})))
}

func TestCandidates_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Candidates(nil, Rules{ParallelPREnabled: true}))
}
