// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"bytes"
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"vawter.tech/arrayctl/array"
	"vawter.tech/arrayctl/internal/state"
	"vawter.tech/arrayctl/metrics"
)

// flag is a StopFlag that trips after a number of checks.
type flag struct {
	checks    atomic.Int32
	tripAfter int32 // Zero means never.
}

func (f *flag) IsStopping() bool {
	n := f.checks.Add(1)
	return f.tripAfter > 0 && n > f.tripAfter
}

func newArray(t *testing.T, n int) *array.Array {
	t.Helper()
	a, err := array.New(n)
	require.NoError(t, err)
	return a
}

func TestReverseRange(t *testing.T) {
	r := require.New(t)

	arr := newArray(t, 8)
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.New(nil)

	// Endpoints are normalized.
	rev := &Reverser{
		Array:   arr,
		Log:     zap.New(core),
		Metrics: m,
		Pick:    FixedPicker(5, 2),
		Stop:    &flag{},
	}
	res, err := rev.Run(t.Context())
	r.NoError(err)
	r.Equal(Reversal{Lo: 2, Hi: 5, Swaps: 2}, res)
	r.Equal([]int{0, 1, 5, 4, 3, 2, 6, 7}, arr.Snapshot())

	r.Equal(1, logs.FilterMessage("range chosen").Len())
	r.Equal(1, logs.FilterMessage("reversal finished").Len())
	r.Equal(2.0, testutil.ToFloat64(m.Swaps))
}

func TestReverseTwiceRestores(t *testing.T) {
	r := require.New(t)

	arr := newArray(t, 32)
	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		a, b := rng.IntN(32), rng.IntN(32)
		before := arr.Snapshot()
		for range 2 {
			_, err := (&Reverser{
				Array: arr,
				Pick:  FixedPicker(a, b),
				Stop:  &flag{},
			}).Run(t.Context())
			r.NoError(err)
		}
		r.Equal(before, arr.Snapshot(), "range [%d, %d]", a, b)
	}
}

func TestReverseNoOpRange(t *testing.T) {
	r := require.New(t)

	arr := newArray(t, 8)
	core, logs := observer.New(zapcore.DebugLevel)
	res, err := (&Reverser{
		Array: arr,
		Log:   zap.New(core),
		Pick:  FixedPicker(3, 3),
		Stop:  &flag{},
	}).Run(t.Context())
	r.NoError(err)
	r.Equal(Reversal{Lo: 3, Hi: 3}, res)
	r.Equal(1, logs.FilterMessage("no-op range").Len())
	r.Zero(logs.FilterMessage("range chosen").Len())
}

func TestReverseInvalidPick(t *testing.T) {
	a := assert.New(t)

	arr := newArray(t, 8)
	for _, p := range [][2]int{{-1, 3}, {0, 8}, {9, 9}} {
		_, err := (&Reverser{
			Array: arr,
			Pick:  FixedPicker(p[0], p[1]),
			Stop:  &flag{},
		}).Run(t.Context())
		a.Error(err)
	}
	a.Equal([]int{0, 1, 2, 3, 4, 5, 6, 7}, arr.Snapshot())
}

// The worker finishes the swap it is on, then observes the flag and
// leaves the array partially reversed.
func TestReverseCancelled(t *testing.T) {
	r := require.New(t)

	arr := newArray(t, 8)
	m := metrics.New(nil)
	core, logs := observer.New(zapcore.InfoLevel)
	res, err := (&Reverser{
		Array:   arr,
		Log:     zap.New(core),
		Metrics: m,
		Pick:    FixedPicker(0, 7),
		Stop:    &flag{tripAfter: 1},
	}).Run(t.Context())
	r.NoError(err)
	r.True(res.Cancelled)
	r.Equal(1, res.Swaps)
	r.Equal([]int{7, 1, 2, 3, 4, 5, 6, 0}, arr.Snapshot())
	r.Equal(1, logs.FilterMessage("reversal cancelled").Len())
	r.Equal(1.0, testutil.ToFloat64(m.Cancelled))
}

// A long pause must not delay cancellation once the stopping context
// is done.
func TestReverseCancelInterruptsPause(t *testing.T) {
	r := require.New(t)

	arr := newArray(t, 64)
	st := state.New(1)
	ctx := st.StoppingContext(t.Context())

	type outcome struct {
		res Reversal
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := (&Reverser{
			Array:     arr,
			Pick:      FixedPicker(0, 63),
			Stop:      st,
			StepDelay: time.Hour,
		}).Run(ctx)
		done <- outcome{res, err}
	}()

	// Give the worker time to perform its first swap and start pausing.
	r.Eventually(func() bool { return arr.Get(0) == 63 },
		5*time.Second, time.Millisecond)
	st.Stop()

	select {
	case out := <-done:
		r.NoError(out.err)
		r.True(out.res.Cancelled)
		r.Equal(1, out.res.Swaps)
	case <-time.After(5 * time.Second):
		r.Fail("worker did not observe the stop flag")
	}
}

func TestSnapshot(t *testing.T) {
	r := require.New(t)

	arr := newArray(t, 8)
	arr.Swap(0, 7)

	var out bytes.Buffer
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.New(nil)
	vals, err := (&Snapshotter{
		Array:   arr,
		Log:     zap.New(core),
		Metrics: m,
		Out:     &out,
	}).Run(context.Background())
	r.NoError(err)
	r.Equal([]int{7, 1, 2, 3, 4, 5, 6, 0}, vals)
	r.Equal("Array: 7 1 2 3 4 5 6 0\n", out.String())
	r.Equal(1, logs.FilterMessage("snapshot").Len())
	r.Equal(1.0, testutil.ToFloat64(m.Snapshots))
}

// Many overlapping reversals and snapshots running together must
// always finish, and every snapshot must be a permutation of 0..n-1.
func TestStressNoDeadlock(t *testing.T) {
	r := require.New(t)

	const n = 16
	arr := newArray(t, n)
	stop := &flag{}

	var wg sync.WaitGroup
	var torn atomic.Bool
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				vals, err := (&Snapshotter{Array: arr}).Run(t.Context())
				if err != nil {
					torn.Store(true)
					return
				}
				slices.Sort(vals)
				for j, v := range vals {
					if j != v {
						torn.Store(true)
					}
				}
				return
			}
			_, _ = (&Reverser{Array: arr, Stop: stop}).Run(t.Context())
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		r.FailNow("workers did not make progress")
	}
	r.False(torn.Load())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Array: 0 1 2", format([]int{0, 1, 2}))
	assert.Equal(t, "Array:", format(nil))
}
