// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package linger contains a utility for reporting on where lingering
// workers were originally spawned.
package linger

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// This value is sensitive to the code structure.
const callersOffset = 2

// NewRecorder constructs a [Recorder] that samples the call stack at the
// requested depth. A depth of 1 will record the function that invoked
// the wrapped spawner.
func NewRecorder(depth int) *Recorder {
	return &Recorder{depth: depth}
}

// A Recorder wraps a spawner function to record the call stack at which
// each task was spawned. It is primarily useful for testing scenarios,
// to ensure that no worker outlives a controller's shutdown.
type Recorder struct {
	counter atomic.Uintptr
	data    sync.Map
	depth   int
}

// Callers returns a snapshot of the caller stacks associated with any
// spawned tasks that are still running.
func (r *Recorder) Callers() [][]uintptr {
	var ret [][]uintptr
	r.data.Range(func(_, value any) bool {
		ret = append(ret, value.([]uintptr))
		return true
	})
	return ret
}

// Wrap returns a spawner that records each task until it returns. The
// function signature matches arrayctl.Spawner.
func (r *Recorder) Wrap(next func(task func()) error) func(task func()) error {
	return func(task func()) error {
		pc := make([]uintptr, r.depth)
		pc = pc[:runtime.Callers(callersOffset, pc)]

		id := r.counter.Add(1)
		r.data.Store(id, pc)

		err := next(func() {
			defer r.data.Delete(id)
			task()
		})
		if err != nil {
			// The task will never run.
			r.data.Delete(id)
		}
		return err
	}
}
