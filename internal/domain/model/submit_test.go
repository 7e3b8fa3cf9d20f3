package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

func TestSubmitRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       SubmitRequest
		wantField string
	}{
		{name: "minimal", req: SubmitRequest{JobType: JobTypeReport}},
		{name: "with project and target", req: SubmitRequest{JobType: JobTypeReport, ProjectID: stringPtr("p"), TargetID: stringPtr("c")}},
		{name: "missing type", req: SubmitRequest{}, wantField: "job_type"},
		{name: "type too long", req: SubmitRequest{JobType: strings.Repeat("x", MaxJobTypeLength+1)}, wantField: "job_type"},
		{name: "target without project", req: SubmitRequest{JobType: JobTypeReport, TargetID: stringPtr("c")}, wantField: "project_id"},
		{name: "blank project", req: SubmitRequest{JobType: JobTypeReport, ProjectID: stringPtr(" ")}, wantField: "project_id"},
		{
			name:      "blank characteristic key",
			req:       SubmitRequest{JobType: JobTypeReport, Characteristics: map[string]string{"": "v"}},
			wantField: "characteristics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsInvalidArgument(err))
			assert.Equal(t, tt.wantField, apperrors.GetField(err))
		})
	}
}

func TestResolveSubmitOptions(t *testing.T) {
	assert.Equal(t, SubmitOptions{}, ResolveSubmitOptions())
	assert.Equal(t, SubmitOptions{UniquePerProject: true}, ResolveSubmitOptions(UniqueQueuePerProject))
	assert.Equal(t,
		SubmitOptions{UniquePerProject: true, UniquePerJobType: true},
		ResolveSubmitOptions(UniqueQueuePerJobType, UniqueQueuePerProject),
	)
}
