// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"errors"
	"time"
)

var errCanceledStopped = errors.Join(context.Canceled, ErrStopped)

// StoppingContext adapts the stop flag into a [context.Context] so that
// blocking waits inside a worker end as soon as Stop is called.
//
// The returned context has the following behaviors:
//   - The [context.Context.Done] method returns [State.Stopping].
//   - The [context.Context.Err] method returns an error that is both
//     [context.Canceled] and [ErrStopped] once stopped. Otherwise, it
//     returns the parent's Err.
//   - Deadline and Value delegate to the parent.
func (s *State) StoppingContext(parent context.Context) context.Context {
	return &stoppingCtx{parent: parent, st: s}
}

type stoppingCtx struct {
	parent context.Context
	st     *State
}

var _ context.Context = (*stoppingCtx)(nil)

func (c *stoppingCtx) Deadline() (deadline time.Time, ok bool) {
	return c.parent.Deadline()
}

func (c *stoppingCtx) Done() <-chan struct{} {
	return c.st.Stopping()
}

func (c *stoppingCtx) Err() error {
	if c.st.IsStopping() {
		return errCanceledStopped
	}
	return c.parent.Err()
}

func (c *stoppingCtx) Value(key any) any {
	return c.parent.Value(key)
}
