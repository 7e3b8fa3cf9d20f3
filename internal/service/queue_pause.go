package service

import (
	"context"
	"fmt"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

// PauseWorkers stops intake: every peek returns nothing until ResumeWorkers.
// Tasks already claimed keep running.
func (s *QueueService) PauseWorkers(ctx context.Context) error {
	return s.setPaused(ctx, true)
}

// ResumeWorkers restarts intake after PauseWorkers.
func (s *QueueService) ResumeWorkers(ctx context.Context) error {
	return s.setPaused(ctx, false)
}

func (s *QueueService) setPaused(ctx context.Context, paused bool) error {
	if s.pauseStore != nil {
		if err := s.pauseStore.SetPaused(ctx, paused); err != nil {
			return fmt.Errorf("persist pause flag: %w", err)
		}
	}

	s.pauseMu.Lock()
	changed := s.paused != paused
	s.paused = paused
	s.pauseMu.Unlock()

	if changed && s.logger != nil {
		s.logger.InfoContext(ctx, "worker intake changed", "paused", paused)
	}
	return nil
}

// IsPaused reports the intake flag as last set or synced by this process.
func (s *QueueService) IsPaused() bool {
	s.pauseMu.RLock()
	defer s.pauseMu.RUnlock()
	return s.paused
}

// SyncPauseState refreshes the intake flag from the shared pause store so a
// pause issued on another node takes effect here.
func (s *QueueService) SyncPauseState(ctx context.Context) error {
	if s.pauseStore == nil {
		return nil
	}
	paused, err := s.pauseStore.IsPaused(ctx)
	if err != nil {
		return fmt.Errorf("read pause flag: %w", err)
	}

	s.pauseMu.Lock()
	changed := s.paused != paused
	s.paused = paused
	s.pauseMu.Unlock()

	if changed && s.logger != nil {
		s.logger.InfoContext(ctx, "worker intake synced from pause store", "paused", paused)
	}
	return nil
}

// WorkersPauseStatus reports RESUMED, or PAUSING while claimed tasks are
// still running under a pause, or PAUSED once none are.
func (s *QueueService) WorkersPauseStatus(ctx context.Context) (model.WorkersPauseStatus, error) {
	if !s.IsPaused() {
		return model.WorkersResumed, nil
	}
	stats, err := s.store.CountByStatus(ctx)
	if err != nil {
		return "", fmt.Errorf("count in-progress tasks: %w", err)
	}
	if stats.InProgress > 0 {
		return model.WorkersPausing, nil
	}
	return model.WorkersPaused, nil
}
