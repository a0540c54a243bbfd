// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a := assert.New(t)

	s := New(3)

	a.NotNil(s)
	a.Equal(3, s.Max())
	a.Zero(s.Active())
	a.False(s.IsStopping())
}

func TestNewRejectsZero(t *testing.T) {
	a := assert.New(t)
	a.Panics(func() { New(0) })
	a.Panics(func() { New(-1) })
}

func TestTryAdmitBasic(t *testing.T) {
	a := assert.New(t)

	s := New(2)

	a.NoError(s.TryAdmit())
	a.Equal(1, s.Active())

	a.NoError(s.TryAdmit())
	a.Equal(2, s.Active())

	s.Release()
	a.Equal(1, s.Active())

	s.Release()
	a.Equal(0, s.Active())
}

func TestTryAdmitRejectsWhenFull(t *testing.T) {
	a := assert.New(t)

	s := New(1)
	a.NoError(s.TryAdmit())

	// A rejection must not change the count.
	a.ErrorIs(s.TryAdmit(), ErrBusy)
	a.Equal(1, s.Active())

	s.Release()
	a.NoError(s.TryAdmit())
}

func TestTryAdmitRejectsWhenStopping(t *testing.T) {
	a := assert.New(t)

	s := New(4)
	a.True(s.Stop())

	a.ErrorIs(s.TryAdmit(), ErrStopped)
	a.Zero(s.Active())
}

func TestReleaseAfterStop(t *testing.T) {
	a := assert.New(t)

	s := New(2)
	a.NoError(s.TryAdmit())
	s.Stop()

	// Workers admitted before the stop still release normally.
	s.Release()
	a.Zero(s.Active())
}

func TestOverReleasePanics(t *testing.T) {
	a := assert.New(t)

	s := New(1)
	a.NoError(s.TryAdmit())
	s.Release()

	a.PanicsWithValue("over-released", func() { s.Release() })
}

func TestStopIdempotent(t *testing.T) {
	a := assert.New(t)

	s := New(1)
	a.True(s.Stop())
	a.False(s.Stop())
	a.True(s.IsStopping())
}

func TestStoppingChannel(t *testing.T) {
	r := require.New(t)

	s := New(1)
	select {
	case <-s.Stopping():
		r.Fail("should not be stopping")
	default:
	}

	s.Stop()

	select {
	case <-s.Stopping():
	case <-time.After(time.Second):
		r.Fail("stopping channel not closed")
	}
}

func TestConcurrentAdmissionBounded(t *testing.T) {
	r := require.New(t)

	const limit = 3
	s := New(limit)

	var wg sync.WaitGroup
	var peakMu sync.Mutex
	peak := 0
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if s.TryAdmit() != nil {
					continue
				}
				active := s.Active()
				peakMu.Lock()
				peak = max(peak, active)
				peakMu.Unlock()
				s.Release()
			}
		}()
	}
	wg.Wait()

	r.Zero(s.Active())
	r.LessOrEqual(peak, limit)
}

func TestStoppingContext(t *testing.T) {
	stdCtx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	t.Cleanup(cancel)

	type k struct{}
	stdCtx = context.WithValue(stdCtx, k{}, "value")

	s := New(1)
	h := s.StoppingContext(stdCtx)

	t.Run("initial_state", func(t *testing.T) {
		r := require.New(t)
		r.Nil(h.Err())
		select {
		case <-h.Done():
			r.Fail("Should not be done")
		default:
		}
	})

	t.Run("deadline", func(t *testing.T) {
		r := require.New(t)
		d1, ok1 := stdCtx.Deadline()
		d2, ok2 := h.Deadline()
		r.Equal(d1, d2)
		r.Equal(ok1, ok2)
	})

	t.Run("done_is", func(t *testing.T) {
		r := require.New(t)
		s.Stop()
		r.ErrorIs(h.Err(), context.Canceled)
		r.ErrorIs(h.Err(), ErrStopped)
		select {
		case <-h.Done():
		case <-time.After(time.Second):
			r.Fail("Stopping channel not closed")
		}
	})

	t.Run("value", func(t *testing.T) {
		r := require.New(t)
		r.Equal("value", h.Value(k{}))
	})
}
