package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	"github.com/target/mmk-ce-queue/internal/mocks"
	"github.com/target/mmk-ce-queue/internal/service"
	"github.com/target/mmk-ce-queue/internal/testutil"
	"github.com/target/mmk-ce-queue/internal/testutil/queuetest"
	"go.uber.org/mock/gomock"
)

type runnerFixture struct {
	store *queuetest.MemoryQueue
	queue *service.QueueService
	state *service.ProcessState
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	store := queuetest.NewMemoryQueue()
	state := service.NewProcessState()
	queue, err := service.NewQueueService(service.QueueServiceOptions{
		Store:    store,
		Archiver: store,
		Activity: store.Activities(),
		RunState: state,
		Node:     service.StaticNode("node-1"),
	})
	require.NoError(t, err)
	t.Cleanup(queue.StopAllListeners)
	return &runnerFixture{store: store, queue: queue, state: state}
}

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Count:             2,
		IDPrefix:          "node-1",
		PollInterval:      100 * time.Millisecond,
		DisabledInterval:  100 * time.Millisecond,
		HeartbeatInterval: time.Second,
		HeartbeatTTL:      2 * time.Second,
		StopTimeout:       2 * time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startRunner runs r in the background and returns a stop func that cancels
// it and returns Run's error.
func startRunner(t *testing.T, r *Runner) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("runner did not stop")
			return nil
		}
	}
}

func outcomes(records []*model.ActivityRecord) map[string]model.Outcome {
	out := make(map[string]model.Outcome, len(records))
	for _, r := range records {
		out[r.TaskID] = r.Outcome
	}
	return out
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)

	f := newRunnerFixture(t)
	_, err = NewRunner(RunnerOptions{Queue: f.queue})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler")

	r, err := NewRunner(RunnerOptions{
		Queue:    f.queue,
		Fallback: func(context.Context, *model.Task) (*model.TaskResult, error) { return nil, nil },
		Config:   config.WorkerConfig{Count: 3, IDPrefix: "node-7"},
	})
	require.NoError(t, err)
	ids := r.WorkerIDs()
	require.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[1])
	for _, id := range ids {
		assert.Contains(t, id, "node-7-")
	}
}

func TestRunner_ProcessesSubmittedTasks(t *testing.T) {
	f := newRunnerFixture(t)
	ctx := context.Background()

	analysis := "analysis-1"
	r, err := NewRunner(RunnerOptions{
		Queue: f.queue,
		Handlers: map[string]HandlerFunc{
			model.JobTypeReport: func(_ context.Context, task *model.Task) (*model.TaskResult, error) {
				if task.ProjectID != nil && *task.ProjectID == "broken" {
					return nil, errors.New("analysis crashed")
				}
				return &model.TaskResult{AnalysisID: &analysis}, nil
			},
		},
		Fallback: func(context.Context, *model.Task) (*model.TaskResult, error) {
			panic("unexpected job type")
		},
		State:  f.state,
		Config: testWorkerConfig(),
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	ok, err := f.queue.Submit(ctx, testutil.NewSubmitRequest().WithProject("p1").Build())
	require.NoError(t, err)
	broken, err := f.queue.Submit(ctx, testutil.NewSubmitRequest().WithProject("broken").Build())
	require.NoError(t, err)
	odd, err := f.queue.Submit(ctx, testutil.NewSubmitRequest().WithJobType("OTHER").WithProject("p3").Build())
	require.NoError(t, err)

	stop := startRunner(t, r)
	require.Eventually(t, func() bool { return len(f.store.Activity()) == 3 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, stop())

	got := outcomes(f.store.Activity())
	assert.Equal(t, model.OutcomeSuccess, got[ok.ID])
	assert.Equal(t, model.OutcomeFailed, got[broken.ID])
	assert.Equal(t, model.OutcomeFailed, got[odd.ID])
	assert.Empty(t, f.store.Jobs())

	for _, rec := range f.store.Activity() {
		switch rec.TaskID {
		case ok.ID:
			require.NotNil(t, rec.AnalysisID)
			assert.Equal(t, analysis, *rec.AnalysisID)
		case broken.ID:
			require.NotNil(t, rec.ErrorMessage)
			assert.Equal(t, "analysis crashed", *rec.ErrorMessage)
		case odd.ID:
			require.NotNil(t, rec.ErrorType)
			assert.Equal(t, "panic", *rec.ErrorType)
			assert.NotNil(t, rec.ErrorStacktrace)
		}
	}
}

func TestRunner_PausedWorkersLeaveTasksQueued(t *testing.T) {
	f := newRunnerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.queue.PauseWorkers(ctx))

	var calls sync.WaitGroup
	calls.Add(1)
	r, err := NewRunner(RunnerOptions{
		Queue: f.queue,
		Handlers: map[string]HandlerFunc{
			model.JobTypeReport: func(context.Context, *model.Task) (*model.TaskResult, error) {
				calls.Done()
				return nil, nil
			},
		},
		State:  f.state,
		Config: testWorkerConfig(),
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	task, err := f.queue.Submit(ctx, testutil.NewSubmitRequest().WithProject("p1").Build())
	require.NoError(t, err)

	stop := startRunner(t, r)
	time.Sleep(300 * time.Millisecond)
	require.NotNil(t, f.store.Job(task.ID))
	assert.Equal(t, model.TaskStatusPending, f.store.Job(task.ID).Status)

	require.NoError(t, f.queue.ResumeWorkers(ctx))
	require.Eventually(t, func() bool { return f.store.Job(task.ID) == nil }, 5*time.Second, 20*time.Millisecond)
	calls.Wait()
	require.NoError(t, stop())
}

func TestRunner_GracefulStopFinishesInFlightTask(t *testing.T) {
	f := newRunnerFixture(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	r, err := NewRunner(RunnerOptions{
		Queue: f.queue,
		Handlers: map[string]HandlerFunc{
			model.JobTypeReport: func(hctx context.Context, _ *model.Task) (*model.TaskResult, error) {
				close(started)
				select {
				case <-release:
					return nil, hctx.Err()
				case <-hctx.Done():
					return nil, hctx.Err()
				}
			},
		},
		State:  f.state,
		Config: testWorkerConfig(),
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	task, err := f.queue.Submit(ctx, testutil.NewSubmitRequest().WithProject("p1").Build())
	require.NoError(t, err)

	stop := startRunner(t, r)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("task was never picked")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- stop() }()

	require.Eventually(t, func() bool { return f.state.RunState() == model.RunStateStopping }, time.Second, 10*time.Millisecond)
	close(release)
	require.NoError(t, <-stopped)

	got := outcomes(f.store.Activity())
	assert.Equal(t, model.OutcomeSuccess, got[task.ID])
}

func TestRunner_HeartbeatsAndUnregisters(t *testing.T) {
	f := newRunnerFixture(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockWorkerRegistry(ctrl)

	cfg := testWorkerConfig()
	r, err := NewRunner(RunnerOptions{
		Queue:    f.queue,
		Fallback: func(context.Context, *model.Task) (*model.TaskResult, error) { return nil, nil },
		Registry: registry,
		State:    f.state,
		Config:   cfg,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	var mu sync.Mutex
	beats := map[string]int{}
	registry.EXPECT().Heartbeat(gomock.Any(), gomock.Any(), cfg.HeartbeatTTL).DoAndReturn(
		func(_ context.Context, id string, _ time.Duration) error {
			mu.Lock()
			beats[id]++
			mu.Unlock()
			return nil
		}).MinTimes(2)
	for _, id := range r.WorkerIDs() {
		registry.EXPECT().Unregister(gomock.Any(), id).Return(nil)
	}

	stop := startRunner(t, r)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(beats) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, stop())
}
