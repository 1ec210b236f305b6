// Package runstate holds the process-wide run lock and its cooperative stop token.
//
// At most one bulk run, group load or collection loop holds the State at a time.
// Stop cancels the holder's stop context; holders check it only between items,
// pages or rounds so work already in flight always completes.
package runstate

import (
	"context"
	"sync"

	"github.com/entrhq/chatsweep/pkg/types"
)

// State is the single-run lock.
type State struct {
	mu            sync.Mutex
	running       bool
	owner         string
	stopRequested bool
	cancel        context.CancelFunc
	onChange      func(running bool)
}

// New creates an idle State. onChange, if non-nil, is called after every transition.
func New(onChange func(running bool)) *State {
	return &State{onChange: onChange}
}

// Acquire takes the lock for owner. The returned stop context is a child of ctx
// that Stop also cancels. Callers must pass ctx, not stop, to remote calls.
// release is idempotent and is typically deferred.
func (s *State) Acquire(ctx context.Context, owner string) (stop context.Context, release func(), err error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, nil, types.ErrBusy
	}
	stopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.owner = owner
	s.stopRequested = false
	s.cancel = cancel
	s.mu.Unlock()

	s.notify(true)

	var once sync.Once
	release = func() {
		once.Do(func() {
			s.mu.Lock()
			s.running = false
			s.owner = ""
			s.cancel = nil
			s.mu.Unlock()
			cancel()
			s.notify(false)
		})
	}
	return stopCtx, release, nil
}

// Stop requests cooperative cancellation of the current holder.
// It reports whether a run was active.
func (s *State) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.stopRequested = true
	if s.cancel != nil {
		s.cancel()
	}
	return true
}

// Running reports whether the lock is held.
func (s *State) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Owner returns the name the current holder acquired with.
func (s *State) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// StopRequested reports whether Stop was called during the current run.
func (s *State) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

func (s *State) notify(running bool) {
	if s.onChange != nil {
		s.onChange(running)
	}
}

// Stopped reports whether stop has been cancelled without blocking.
func Stopped(stop context.Context) bool {
	select {
	case <-stop.Done():
		return true
	default:
		return false
	}
}
