// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package arrayctl coordinates a bounded set of workers that mutate a
// shared integer array in response to asynchronous requests.
//
// A [Controller] owns an [array.Array] of n integers, initialized to
// 0..n-1, with one lock per element. External requests are raised on
// the controller's [bridge.Bridge] and consumed by [Controller.Run]:
//
//   - A reverse request spawns a worker that picks a random range and
//     reverses it in place by swapping pairs from both ends towards the
//     middle.
//   - A print request spawns a worker that locks every element and
//     emits a consistent snapshot.
//   - An exit request moves the controller from RUNNING to DRAINING.
//
// # Admission
//
// At most p workers may be active at once. The control loop is the
// only place where admission decisions are made; a request that
// arrives while p workers are active is logged and dropped, never
// queued. An admitted worker that cannot be started gives its slot
// back immediately.
//
// # Lock ordering
//
// Every goroutine that holds more than one element lock acquires them
// in ascending index order. Swaps lock the lower index first and
// snapshots lock the whole array from index 0 upwards. This total
// order is what rules out deadlock between overlapping workers.
//
// # Shutdown
//
// Draining sets the stop flag and then joins every worker that was
// ever spawned, exactly once. Reversal workers check the flag before
// each swap and abandon their range early, leaving the array partially
// reversed but internally consistent. Run does not return until every
// worker has been joined.
//
//	ctl, err := arrayctl.New(arrayctl.WithSize(32), arrayctl.WithMaxWorkers(4))
//	if err != nil {
//	    return err
//	}
//	stop := bridge.Notify(ctx, ctl.Bridge(), bridge.DefaultSignals())
//	defer stop()
//	return ctl.Run(ctx)
//
// # Testing
//
// The linger sub-package records where workers are spawned and
// reports any that are still running when a test ends.
package arrayctl
