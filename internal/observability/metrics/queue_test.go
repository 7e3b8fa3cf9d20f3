package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	apperrors "github.com/target/mmk-ce-queue/internal/errors"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
)

func TestEmitTaskTransition(t *testing.T) {
	var rec statsd.Recorder
	EmitTaskTransition(&rec, TaskMetric{
		JobType:    model.JobTypeReport,
		Kind:       model.KindPullRequest,
		Transition: TransitionCanceled,
		Result:     ResultError,
		Duration:   2 * time.Second,
		Err:        apperrors.IllegalState("in progress"),
	})

	ms := rec.Metrics()
	require.Len(t, ms, 2)
	assert.Equal(t, MetricTaskTransition, ms[0].Name)
	assert.Equal(t, map[string]string{
		"job_type":    "REPORT",
		"kind":        "pull_request",
		"transition":  "canceled",
		"result":      "error",
		"error_class": "illegal_state",
	}, ms[0].Tags)
	assert.Equal(t, MetricTaskDuration, ms[1].Name)
	assert.InDelta(t, 2000.0, ms[1].Value, 0.001)

	EmitTaskTransition(nil, TaskMetric{})
}

func TestEmitSweep(t *testing.T) {
	var rec statsd.Recorder
	EmitSweep(&rec, "reset", 0, nil)
	EmitSweep(&rec, "reset", 3, nil)
	EmitSweep(&rec, "worn_out", 0, errors.New("boom"))

	ms := rec.Metrics()
	require.Len(t, ms, 3)
	assert.Equal(t, "noop", ms[0].Tags["result"])
	assert.Equal(t, "success", ms[1].Tags["result"])
	assert.Equal(t, "error", ms[2].Tags["result"])
	assert.Equal(t, "errors_errorstring", ms[2].Tags["error_class"])
	assert.Equal(t, int64(3), rec.Sum(MetricSweep))
}

func TestEmitQueueDepth(t *testing.T) {
	var rec statsd.Recorder
	EmitQueueDepth(&rec, &model.QueueStats{Pending: 4, InProgress: 1})
	EmitQueueDepth(&rec, nil)

	ms := rec.Metrics()
	require.Len(t, ms, 2)
	assert.Equal(t, "PENDING", ms[0].Tags["status"])
	assert.InDelta(t, 4.0, ms[0].Value, 0)
}

func TestExecutionMetrics(t *testing.T) {
	var rec statsd.Recorder
	m := NewExecutionMetrics(&rec)
	m.AddSuccess(time.Second)
	m.AddSuccess(0)
	m.AddError(500 * time.Millisecond)

	success, errs, total := m.Snapshot()
	assert.Equal(t, int64(2), success)
	assert.Equal(t, int64(1), errs)
	assert.Equal(t, 1500*time.Millisecond, total)
	assert.Equal(t, int64(2), rec.Sum(MetricExecutionSuccess))
	assert.Equal(t, int64(1), rec.Sum(MetricExecutionError))

	NewExecutionMetrics(nil).AddError(time.Second)
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "b"}
	cp := CloneTags(src)
	cp["a"] = "c"
	assert.Equal(t, "b", src["a"])
}
