package service

import (
	"sync/atomic"

	"github.com/target/mmk-ce-queue/internal/domain/model"
)

// ProcessState is the run-state gate of one process. It starts in STARTED and
// only ever moves to STOPPING.
type ProcessState struct {
	stopping atomic.Bool
}

// NewProcessState returns a gate in the STARTED state.
func NewProcessState() *ProcessState {
	return &ProcessState{}
}

// RunState implements core.RunStateGate.
func (p *ProcessState) RunState() model.RunState {
	if p.stopping.Load() {
		return model.RunStateStopping
	}
	return model.RunStateStarted
}

// MarkStopping makes every subsequent peek return nothing.
func (p *ProcessState) MarkStopping() {
	p.stopping.Store(true)
}

// StaticNode reports a fixed node name.
type StaticNode string

// NodeName implements core.NodeInformation.
func (n StaticNode) NodeName() string { return string(n) }
