// Copyright 2023 The Cockroach Authors
// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package state defines the admission counter and stop flag shared by
// the control loop and its workers.
package state

import (
	"errors"
	"sync"
)

var (
	// ErrBusy is returned by [State.TryAdmit] when every slot is taken.
	ErrBusy = errors.New("all workers busy")
	// ErrStopped is returned by [State.TryAdmit] once the stop flag is
	// set.
	ErrStopped = errors.New("stopped")
)

// A State bounds the number of active workers and carries the
// monotonic stop flag. Both values are guarded by a single mutex, the
// params lock.
type State struct {
	max      int
	stopping chan struct{} // Closed once the stop flag is set.

	mu struct {
		sync.Mutex
		active  int  // Invariant: 0 <= active <= max.
		stopped bool // Never reset once true.
	}
}

// New constructs a State that admits at most max concurrent workers.
// It panics if max is not positive.
func New(max int) *State {
	if max <= 0 {
		panic(errors.New("max must be greater than zero"))
	}
	return &State{
		max:      max,
		stopping: make(chan struct{}),
	}
}

// TryAdmit increments the active count if a slot is available. It
// returns [ErrBusy] if all slots are taken or [ErrStopped] once Stop
// has been called. A rejection has no side effects.
func (s *State) TryAdmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.stopped {
		return ErrStopped
	}
	if s.mu.active >= s.max {
		return ErrBusy
	}
	s.mu.active++
	return nil
}

// Release returns a slot obtained from TryAdmit. It must be called
// exactly once per admitted worker, including workers that failed to
// start.
func (s *State) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mu.active--
	if s.mu.active < 0 {
		// Implementation error, not user problem.
		panic("over-released")
	}
}

// Active returns the number of admitted workers that have not yet been
// released.
func (s *State) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.active
}

// Max returns the configured admission limit.
func (s *State) Max() int { return s.max }

// IsStopping reports whether Stop has been called.
func (s *State) IsStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.stopped
}

// Stop sets the stop flag. It returns true only for the call that
// performed the transition.
func (s *State) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.stopped {
		return false
	}
	s.mu.stopped = true
	close(s.stopping)
	return true
}

// Stopping returns a channel that is closed once Stop has been called.
func (s *State) Stopping() <-chan struct{} { return s.stopping }
