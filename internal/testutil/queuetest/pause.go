package queuetest

import (
	"context"
	"sync"

	"github.com/target/mmk-ce-queue/internal/core"
)

// PauseFlag is an in-memory core.PauseStateStore. Share one between several
// QueueServices to model nodes reading the same Redis key.
type PauseFlag struct {
	mu     sync.Mutex
	paused bool
	// Err, when set, fails every call.
	Err error
}

func (p *PauseFlag) SetPaused(_ context.Context, paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.paused = paused
	return nil
}

func (p *PauseFlag) IsPaused(_ context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return false, p.Err
	}
	return p.paused, nil
}

var _ core.PauseStateStore = (*PauseFlag)(nil)
