package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/domain/model"
	"github.com/target/mmk-ce-queue/internal/mocks"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
	"go.uber.org/mock/gomock"
)

// fakeMaintenance is a simple QueueMaintenance recording call order.
type fakeMaintenance struct {
	mu    sync.Mutex
	calls []string

	wornOuts    int
	wornOutErr  error
	resetCount  int64
	resetErr    error
	resetKnown  []string
	statsErr    error
	sweepsTaken chan struct{}
}

func (f *fakeMaintenance) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeMaintenance) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeMaintenance) CancelWornOuts(ctx context.Context) (int, error) {
	f.record("cancel_worn_outs")
	return f.wornOuts, f.wornOutErr
}

func (f *fakeMaintenance) ResetTasksWithUnknownWorkerUUIDs(ctx context.Context, known []string) (int64, error) {
	f.record("reset_unknown_workers")
	f.mu.Lock()
	f.resetKnown = append([]string(nil), known...)
	f.mu.Unlock()
	return f.resetCount, f.resetErr
}

func (f *fakeMaintenance) Stats(ctx context.Context) (*model.QueueStats, error) {
	f.record("stats")
	if f.sweepsTaken != nil {
		select {
		case f.sweepsTaken <- struct{}{}:
		default:
		}
	}
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &model.QueueStats{}, nil
}

func sweeperConfig() config.SweeperConfig {
	return config.SweeperConfig{
		Interval:            time.Minute,
		ResetUnknownWorkers: true,
		CancelWornOuts:      true,
	}
}

func TestNewSweeperService(t *testing.T) {
	t.Run("creates service with valid options", func(t *testing.T) {
		svc, err := NewSweeperService(SweeperServiceOptions{
			Queue:  &fakeMaintenance{},
			Config: sweeperConfig(),
			Logger: slog.Default(),
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("returns error when queue is nil", func(t *testing.T) {
		_, err := NewSweeperService(SweeperServiceOptions{Config: sweeperConfig()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "QueueMaintenance is required")
	})

	t.Run("returns error for non-positive interval", func(t *testing.T) {
		_, err := NewSweeperService(SweeperServiceOptions{Queue: &fakeMaintenance{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interval")
	})
}

func TestSweeperService_Sweep(t *testing.T) {
	t.Run("runs steps in order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockWorkerRegistry(ctrl)
		registry.EXPECT().ListLive(gomock.Any()).Return([]string{"w1", "w2"}, nil)

		queue := &fakeMaintenance{wornOuts: 2, resetCount: 3}
		rec := &statsd.Recorder{}
		svc, err := NewSweeperService(SweeperServiceOptions{
			Queue:    queue,
			Registry: registry,
			Config:   sweeperConfig(),
			Metrics:  rec,
		})
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(context.Background()))
		assert.Equal(t, []string{"cancel_worn_outs", "reset_unknown_workers", "stats"}, queue.Calls())
		assert.Equal(t, []string{"w1", "w2"}, queue.resetKnown)
		assert.Equal(t, int64(1), rec.Sum("sweeper.run"))

		var result string
		for _, m := range rec.Metrics() {
			if m.Name == "sweeper.run" {
				result = m.Tags["result"]
			}
		}
		assert.Equal(t, "success", result)
	})

	t.Run("registry failure skips the reset", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockWorkerRegistry(ctrl)
		registry.EXPECT().ListLive(gomock.Any()).Return(nil, errors.New("redis down"))

		queue := &fakeMaintenance{}
		svc, err := NewSweeperService(SweeperServiceOptions{
			Queue:    queue,
			Registry: registry,
			Config:   sweeperConfig(),
		})
		require.NoError(t, err)

		err = svc.Sweep(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list live workers")
		assert.Equal(t, []string{"cancel_worn_outs", "stats"}, queue.Calls())
	})

	t.Run("without registry only worn-outs and depth run", func(t *testing.T) {
		queue := &fakeMaintenance{}
		svc, err := NewSweeperService(SweeperServiceOptions{Queue: queue, Config: sweeperConfig()})
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(context.Background()))
		assert.Equal(t, []string{"cancel_worn_outs", "stats"}, queue.Calls())
	})

	t.Run("disabled steps are skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockWorkerRegistry(ctrl)

		queue := &fakeMaintenance{}
		cfg := sweeperConfig()
		cfg.CancelWornOuts = false
		cfg.ResetUnknownWorkers = false
		svc, err := NewSweeperService(SweeperServiceOptions{Queue: queue, Registry: registry, Config: cfg})
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(context.Background()))
		assert.Equal(t, []string{"stats"}, queue.Calls())
	})

	t.Run("continues on partial errors", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockWorkerRegistry(ctrl)
		registry.EXPECT().ListLive(gomock.Any()).Return([]string{"w1"}, nil)

		queue := &fakeMaintenance{wornOutErr: errors.New("boom")}
		rec := &statsd.Recorder{}
		svc, err := NewSweeperService(SweeperServiceOptions{
			Queue:    queue,
			Registry: registry,
			Config:   sweeperConfig(),
			Metrics:  rec,
		})
		require.NoError(t, err)

		err = svc.Sweep(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cancel worn-out tasks")
		assert.Equal(t, []string{"cancel_worn_outs", "reset_unknown_workers", "stats"}, queue.Calls())

		for _, m := range rec.Metrics() {
			if m.Name == "sweeper.last_success_epoch" {
				t.Fatalf("last success gauge emitted after a failed sweep")
			}
		}
	})

	t.Run("only cancellations collapse to context.Canceled", func(t *testing.T) {
		queue := &fakeMaintenance{
			wornOutErr: context.Canceled,
			statsErr:   context.Canceled,
		}
		svc, err := NewSweeperService(SweeperServiceOptions{Queue: queue, Config: sweeperConfig()})
		require.NoError(t, err)

		err = svc.Sweep(context.Background())
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotContains(t, err.Error(), "sweep failed")
	})
}

func TestSweeperService_Run(t *testing.T) {
	t.Run("returns nil on cancellation", func(t *testing.T) {
		queue := &fakeMaintenance{sweepsTaken: make(chan struct{}, 1)}
		cfg := sweeperConfig()
		cfg.Interval = 50 * time.Millisecond
		svc, err := NewSweeperService(SweeperServiceOptions{Queue: queue, Config: cfg})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx) }()

		select {
		case <-queue.sweepsTaken:
		case <-time.After(2 * time.Second):
			t.Fatal("initial sweep did not run")
		}
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})

	t.Run("returns deadline errors", func(t *testing.T) {
		cfg := sweeperConfig()
		cfg.Interval = time.Hour
		svc, err := NewSweeperService(SweeperServiceOptions{Queue: &fakeMaintenance{}, Config: cfg})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err = svc.Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
