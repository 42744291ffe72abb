package domain

import (
	"context"
)

// RunState is the shared run flag. It starts running and is stopped at most
// once; the first cause passed to Stop is the one retained.
type RunState struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func NewRunState(parent context.Context) *RunState {
	ctx, cancel := context.WithCancelCause(parent)
	return &RunState{ctx: ctx, cancel: cancel}
}

func (s *RunState) Running() bool {
	return s.ctx.Err() == nil
}

// Stop clears the flag. A nil cause means a requested shutdown.
func (s *RunState) Stop(cause error) {
	s.cancel(cause)
}

func (s *RunState) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context is cancelled once the state stops.
func (s *RunState) Context() context.Context {
	return s.ctx
}

// Cause reports why the state stopped: nil while running, context.Canceled
// for a requested shutdown, or the error given to Stop.
func (s *RunState) Cause() error {
	return context.Cause(s.ctx)
}
