package model

import "fmt"

// Characteristic keys recognised by the queue.
const (
	CharacteristicBranch      = "branch"
	CharacteristicBranchType  = "branchType"
	CharacteristicPullRequest = "pullRequest"
)

// BranchTypePullRequest is the branchType value that marks a pull request.
const BranchTypePullRequest = "PULL_REQUEST"

// Characteristic is one key/value tag attached to a queued job.
type Characteristic struct {
	ID    string `db:"id"`
	JobID string `db:"task_id"`
	Key   string `db:"kv_key"`
	Value string `db:"kv_value"`
}

// JobKind is the closed set of job classifications the picker knows about.
type JobKind int

const (
	// KindMain is a job on the project's main branch.
	KindMain JobKind = iota
	// KindBranch is a job on a non-main branch.
	KindBranch
	// KindPullRequest is a job on a pull request.
	KindPullRequest
	// KindIssueSync is an issue synchronization job.
	KindIssueSync
)

// String returns the lowercase kind name.
func (k JobKind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindBranch:
		return "branch"
	case KindPullRequest:
		return "pull_request"
	case KindIssueSync:
		return "issue_sync"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k JobKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *JobKind) UnmarshalText(text []byte) error {
	for _, kind := range []JobKind{KindMain, KindBranch, KindPullRequest, KindIssueSync} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown job kind %q", text)
}

// LocksProject reports whether an in-progress job of this kind serializes
// other main/branch jobs of the same project.
func (k JobKind) LocksProject() bool {
	switch k {
	case KindMain, KindBranch:
		return true
	case KindPullRequest, KindIssueSync:
		return false
	default:
		return false
	}
}

// KindOf derives the kind of a job from its type and characteristics.
func KindOf(jobType string, characteristics map[string]string) JobKind {
	if jobType == JobTypeIssueSync {
		return KindIssueSync
	}
	if _, ok := characteristics[CharacteristicPullRequest]; ok {
		return KindPullRequest
	}
	if characteristics[CharacteristicBranchType] == BranchTypePullRequest {
		return KindPullRequest
	}
	if _, ok := characteristics[CharacteristicBranch]; ok {
		return KindBranch
	}
	return KindMain
}
