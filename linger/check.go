// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package linger

import (
	"runtime"
	"time"
)

const pollInterval = time.Millisecond

// CheckClean waits up to grace for every worker spawned through the
// Recorder to return. A worker that has been joined may still be
// unwinding its goroutine, so a short grace avoids false reports. Any
// worker still running afterwards is reported as a test error, along
// with the stack that spawned it.
func CheckClean(t TestingT, r *Recorder, grace time.Duration) {
	deadline := time.Now().Add(grace)
	callers := r.Callers()
	for len(callers) > 0 && time.Now().Before(deadline) {
		time.Sleep(pollInterval)
		callers = r.Callers()
	}
	if len(callers) == 0 {
		return
	}

	if x, ok := t.(interface{ Helper() }); ok {
		x.Helper()
	}

	t.Errorf("%d worker(s) still running after %s", len(callers), grace)
	for i, stack := range callers {
		t.Errorf("  worker %d spawned at:", i+1)
		frames := runtime.CallersFrames(stack)
		for {
			frame, more := frames.Next()
			t.Errorf("    %s ( %s:%d )", frame.Function, frame.File, frame.Line)
			if !more {
				break
			}
		}
	}
}

// TestingT is the subset of [testing.TB] needed by [CheckClean].
type TestingT interface {
	Errorf(string, ...any)
}
