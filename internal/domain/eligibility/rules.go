// Package eligibility decides which pending job a worker may claim next and
// claims it through a single compare-and-swap.
package eligibility

import (
	"sort"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

// Rules are the process-wide switches that shape eligibility.
type Rules struct {
	// ParallelPREnabled lets a head-of-line pull request run while a main or
	// branch job of the same project is in progress.
	ParallelPREnabled bool
	// ExcludeIssueSync drops issue-sync jobs from consideration.
	ExcludeIssueSync bool
}

// Candidate is a pending job that may be claimed.
type Candidate struct {
	Job *model.QueuedJob
	// ConcurrentWithProject is set for a pull request that would run next to an
	// in-progress main or branch job of the same project.
	ConcurrentWithProject bool
}

type projectState struct {
	head   *model.QueuedJob
	locked bool
}

type snapshotIndex struct {
	projects       map[string]*projectState
	busyTargets    map[string]struct{}
	issueSyncHeads map[string]*model.QueuedJob
	loose          []*model.QueuedJob
}

// Candidates ranks the eligible jobs in jobs, a snapshot of every PENDING and
// IN_PROGRESS row, in claim order (oldest CreatedAt first, ID as tie-break).
//
// Per project only the oldest pending non-issue-sync job is considered. Main and
// branch jobs wait for the project lock. Pull requests wait only for an
// in-progress job on the same target when parallel execution is enabled.
// Issue-sync jobs and jobs without a project never take part in project
// serialization. No candidate ever targets a component that is in progress.
func Candidates(jobs []*model.QueuedJob, rules Rules) []Candidate {
	idx := index(jobs, rules)
	out := make([]Candidate, 0, len(idx.projects)+len(idx.issueSyncHeads)+len(idx.loose))

	for _, ps := range idx.projects {
		if ps.head == nil {
			continue
		}
		c, ok := evaluateHead(ps, idx, rules)
		if ok {
			out = append(out, c)
		}
	}
	for _, job := range idx.issueSyncHeads {
		if !idx.targetBusy(job) {
			out = append(out, Candidate{Job: job})
		}
	}
	for _, job := range idx.loose {
		if !idx.targetBusy(job) {
			out = append(out, Candidate{Job: job})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Job.Before(out[j].Job) })
	return out
}

func evaluateHead(ps *projectState, idx *snapshotIndex, rules Rules) (Candidate, bool) {
	head := ps.head
	if idx.targetBusy(head) {
		return Candidate{}, false
	}
	switch head.Kind() {
	case model.KindMain, model.KindBranch:
		return Candidate{Job: head}, !ps.locked
	case model.KindPullRequest:
		if !rules.ParallelPREnabled {
			return Candidate{Job: head}, !ps.locked
		}
		return Candidate{Job: head, ConcurrentWithProject: ps.locked}, true
	case model.KindIssueSync:
		// issue-sync jobs never become a project head
		return Candidate{}, false
	default:
		return Candidate{}, false
	}
}

func index(jobs []*model.QueuedJob, rules Rules) *snapshotIndex {
	idx := &snapshotIndex{
		projects:       make(map[string]*projectState),
		busyTargets:    make(map[string]struct{}),
		issueSyncHeads: make(map[string]*model.QueuedJob),
	}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		switch job.Status {
		case model.TaskStatusInProgress:
			idx.addInProgress(job, rules)
		case model.TaskStatusPending:
			idx.addPending(job, rules)
		}
	}
	return idx
}

func (idx *snapshotIndex) project(id string) *projectState {
	ps, ok := idx.projects[id]
	if !ok {
		ps = &projectState{}
		idx.projects[id] = ps
	}
	return ps
}

func (idx *snapshotIndex) addInProgress(job *model.QueuedJob, rules Rules) {
	if job.TargetID != nil {
		idx.busyTargets[*job.TargetID] = struct{}{}
	}
	if job.ProjectID == nil {
		return
	}
	kind := job.Kind()
	if kind.LocksProject() || (kind == model.KindPullRequest && !rules.ParallelPREnabled) {
		idx.project(*job.ProjectID).locked = true
	}
}

func (idx *snapshotIndex) addPending(job *model.QueuedJob, rules Rules) {
	if job.Kind() == model.KindIssueSync {
		if rules.ExcludeIssueSync {
			return
		}
		key := ""
		if job.TargetID != nil {
			key = *job.TargetID
		}
		if key == "" {
			idx.loose = append(idx.loose, job)
			return
		}
		if cur, ok := idx.issueSyncHeads[key]; !ok || job.Before(cur) {
			idx.issueSyncHeads[key] = job
		}
		return
	}
	if job.ProjectID == nil {
		idx.loose = append(idx.loose, job)
		return
	}
	ps := idx.project(*job.ProjectID)
	if ps.head == nil || job.Before(ps.head) {
		ps.head = job
	}
}

func (idx *snapshotIndex) targetBusy(job *model.QueuedJob) bool {
	if job.TargetID == nil {
		return false
	}
	_, busy := idx.busyTargets[*job.TargetID]
	return busy
}
