// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package limit paces the steps of long-running workers.
package limit

import (
	"context"
	"runtime/trace"
	"time"

	"golang.org/x/time/rate"
)

// A Pacer enforces a minimum delay between successive steps of a single
// worker. It is a thin wrapper around a [rate.Limiter] with a burst of
// one whose initial token has already been spent, so that the first
// call to Wait also pauses. A Pacer is not intended to be shared
// between workers.
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer returns a Pacer that allows one step per interval. A
// non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	lim.Allow()
	return &Pacer{lim: lim}
}

// Wait blocks until the next step may proceed. It returns early with
// an error if the context is done, which callers should treat as a
// request to re-check their stop condition rather than as a failure.
func (p *Pacer) Wait(ctx context.Context) error {
	// Fast-path: pacing disabled or the interval has already elapsed.
	if p.lim.Allow() {
		return nil
	}

	defer trace.StartRegion(ctx, "step pacing wait").End()
	return p.lim.Wait(ctx)
}
