// Package metrics emits queue lifecycle metrics through a statsd.Sink.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/target/mmk-ce-queue/internal/domain/model"
	obserrors "github.com/target/mmk-ce-queue/internal/observability/errors"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Task transitions.
const (
	TransitionSubmitted = "submitted"
	TransitionClaimed   = "claimed"
	TransitionSucceeded = "succeeded"
	TransitionFailed    = "failed"
	TransitionCanceled  = "canceled"
)

// Metric names.
const (
	MetricTaskTransition        = "ce.task.transition"
	MetricTaskDuration          = "ce.task.duration"
	MetricConcurrentWithProject = "ce.task.concurrent_with_project"
	MetricSweep                 = "ce.sweep.rows"
	MetricQueueDepth            = "ce.queue.depth"
	MetricExecutionSuccess      = "ce.execution.success"
	MetricExecutionError        = "ce.execution.error"
	MetricExecutionTime         = "ce.execution.time"
)

// TaskMetric captures one task lifecycle event.
type TaskMetric struct {
	JobType    string
	Kind       model.JobKind
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitTaskTransition emits a transition counter and, when Duration is set, a timing.
func EmitTaskTransition(sink statsd.Sink, in TaskMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type":   in.JobType,
		"kind":       in.Kind.String(),
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(MetricTaskTransition, 1, tags)
	if in.Duration > 0 {
		sink.Timing(MetricTaskDuration, in.Duration, CloneTags(tags))
	}
}

// EmitConcurrentWithProject counts a pull request claimed while its project
// had another job in progress.
func EmitConcurrentWithProject(sink statsd.Sink, jobType string) {
	if sink == nil {
		return
	}
	sink.Count(MetricConcurrentWithProject, 1, map[string]string{"job_type": jobType})
}

// EmitSweep counts rows touched by a maintenance sweep.
func EmitSweep(sink statsd.Sink, sweep string, rows int64, err error) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	switch {
	case err != nil:
		result = ResultError
	case rows == 0:
		result = ResultNoop
	}
	tags := map[string]string{"sweep": sweep, "result": result}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	sink.Count(MetricSweep, rows, tags)
}

// EmitQueueDepth publishes per-status queue gauges.
func EmitQueueDepth(sink statsd.Sink, stats *model.QueueStats) {
	if sink == nil || stats == nil {
		return
	}
	sink.Gauge(MetricQueueDepth, float64(stats.Pending), map[string]string{"status": string(model.TaskStatusPending)})
	sink.Gauge(MetricQueueDepth, float64(stats.InProgress), map[string]string{"status": string(model.TaskStatusInProgress)})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ExecutionMetrics counts finished tasks in-process and forwards them to a sink.
// It implements core.QueueMetrics.
type ExecutionMetrics struct {
	sink    statsd.Sink
	success atomic.Int64
	errors  atomic.Int64
	totalMs atomic.Int64
}

// NewExecutionMetrics creates ExecutionMetrics. sink may be nil.
func NewExecutionMetrics(sink statsd.Sink) *ExecutionMetrics {
	return &ExecutionMetrics{sink: sink}
}

// AddSuccess records a successful execution.
func (m *ExecutionMetrics) AddSuccess(executionTime time.Duration) {
	m.success.Add(1)
	m.add(MetricExecutionSuccess, ResultSuccess, executionTime)
}

// AddError records a failed or vanished execution.
func (m *ExecutionMetrics) AddError(executionTime time.Duration) {
	m.errors.Add(1)
	m.add(MetricExecutionError, ResultError, executionTime)
}

func (m *ExecutionMetrics) add(name, result string, executionTime time.Duration) {
	if executionTime > 0 {
		m.totalMs.Add(executionTime.Milliseconds())
	}
	if m.sink == nil {
		return
	}
	m.sink.Count(name, 1, nil)
	if executionTime > 0 {
		m.sink.Timing(MetricExecutionTime, executionTime, map[string]string{"result": result})
	}
}

// Snapshot returns the success and error counts and the summed execution time.
func (m *ExecutionMetrics) Snapshot() (success, errs int64, total time.Duration) {
	return m.success.Load(), m.errors.Load(), time.Duration(m.totalMs.Load()) * time.Millisecond
}
