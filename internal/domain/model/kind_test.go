package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name            string
		jobType         string
		characteristics map[string]string
		want            JobKind
	}{
		{name: "no characteristics is main", jobType: JobTypeReport, want: KindMain},
		{name: "unrelated characteristic is main", jobType: JobTypeReport, characteristics: map[string]string{"foo": "bar"}, want: KindMain},
		{name: "branch", jobType: JobTypeReport, characteristics: map[string]string{CharacteristicBranch: "feature/x"}, want: KindBranch},
		{name: "pull request id", jobType: JobTypeReport, characteristics: map[string]string{CharacteristicPullRequest: "42"}, want: KindPullRequest},
		{
			name:    "branch type pull request",
			jobType: JobTypeReport,
			characteristics: map[string]string{
				CharacteristicBranch:     "42",
				CharacteristicBranchType: BranchTypePullRequest,
			},
			want: KindPullRequest,
		},
		{
			name:            "issue sync wins over characteristics",
			jobType:         JobTypeIssueSync,
			characteristics: map[string]string{CharacteristicPullRequest: "42"},
			want:            KindIssueSync,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.jobType, tt.characteristics))
		})
	}
}

func TestJobKind_LocksProject(t *testing.T) {
	assert.True(t, KindMain.LocksProject())
	assert.True(t, KindBranch.LocksProject())
	assert.False(t, KindPullRequest.LocksProject())
	assert.False(t, KindIssueSync.LocksProject())
}

func TestJobKind_String(t *testing.T) {
	assert.Equal(t, "main", KindMain.String())
	assert.Equal(t, "pull_request", KindPullRequest.String())
	assert.Equal(t, "unknown", JobKind(99).String())
}

func TestJobKind_TextRoundTrip(t *testing.T) {
	raw, err := KindIssueSync.MarshalText()
	assert.NoError(t, err)

	var k JobKind
	assert.NoError(t, k.UnmarshalText(raw))
	assert.Equal(t, KindIssueSync, k)
	assert.Error(t, k.UnmarshalText([]byte("nightly")))
}
