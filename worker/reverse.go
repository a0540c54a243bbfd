// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"runtime/trace"
	"time"

	"go.uber.org/zap"
	"vawter.tech/arrayctl/array"
	"vawter.tech/arrayctl/limit"
	"vawter.tech/arrayctl/metrics"
)

// A Reversal describes the outcome of a single reversal worker.
type Reversal struct {
	Lo, Hi    int  // Normalized range, inclusive.
	Swaps     int  // Swaps performed before exiting.
	Cancelled bool // The stop flag was observed before the walk finished.
}

// A Reverser reverses a randomly chosen sub-range of the array in
// place.
type Reverser struct {
	Array     *array.Array
	Log       *zap.Logger      // Defaults to a no-op logger.
	Metrics   *metrics.Metrics // May be nil.
	Pick      Picker           // Defaults to RandomPicker.
	Stop      StopFlag
	StepDelay time.Duration // Pause between swaps; zero disables pacing.
}

// Run performs one reversal. The range is walked from both ends
// towards the middle. Before each swap the stop flag is checked and,
// if set, Run returns early, leaving the array as it was after the
// last completed swap. The context is only used to interrupt the pause
// between swaps; pass a context that is done when the stop flag is
// set so that cancellation is not delayed by a pending pause.
func (r *Reverser) Run(ctx context.Context) (Reversal, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	pick := r.Pick
	if pick == nil {
		pick = RandomPicker()
	}

	a, b := pick(r.Array.Len())
	lo, hi, err := normalize(a, b, r.Array.Len())
	if err != nil {
		return Reversal{}, err
	}
	ret := Reversal{Lo: lo, Hi: hi}
	if lo == hi {
		log.Debug("no-op range", zap.Int("index", lo))
		return ret, nil
	}

	log.Info("range chosen", zap.Int("lo", lo), zap.Int("hi", hi))
	defer trace.StartRegion(ctx, "reverse range").End()

	pacer := limit.NewPacer(r.StepDelay)
	for left, right := lo, hi; left < right; left, right = left+1, right-1 {
		if r.Stop.IsStopping() {
			ret.Cancelled = true
			break
		}

		r.Array.Swap(left, right)
		ret.Swaps++
		r.Metrics.ObserveSwap()

		// An interrupted pause is not an error; the next iteration
		// re-checks the stop flag.
		_ = pacer.Wait(ctx)
	}

	if ret.Cancelled {
		r.Metrics.ObserveCancelled()
		log.Info("reversal cancelled",
			zap.Int("lo", lo), zap.Int("hi", hi), zap.Int("swaps", ret.Swaps))
	} else {
		log.Info("reversal finished",
			zap.Int("lo", lo), zap.Int("hi", hi), zap.Int("swaps", ret.Swaps))
	}
	return ret, nil
}
