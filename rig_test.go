// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package arrayctl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"vawter.tech/arrayctl/linger"
	"vawter.tech/arrayctl/metrics"
)

// rig bundles a Controller with the observers used by tests.
type rig struct {
	*Controller
	logs    *observer.ObservedLogs
	metrics *metrics.Metrics
	rec     *linger.Recorder
}

// newRigForTest constructs a Controller whose log output and metrics
// can be inspected. A cleanup verifies that no worker outlives the
// test.
func newRigForTest(t *testing.T, opts ...Option) *rig {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.New(nil)

	// Add tracking for where workers are spawned.
	rec := linger.NewRecorder(10 /* depth */)

	base := []Option{
		WithLogger(zap.New(core)),
		WithMetrics(m),
		WithSpawner(rec.Wrap(GoSpawner)),
		WithPollInterval(time.Millisecond),
		WithStepDelay(0),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		// Tests that never ran the loop still need their workers
		// stopped and joined. The drain is unbounded, so a stuck
		// worker here surfaces as a test binary timeout.
		if c.Phase() != PhaseTerminated {
			if err := c.drain(context.Background()); err != nil {
				t.Errorf("worker returned an error: %v", err)
			}
		}
		linger.CheckClean(t, rec, 5*time.Second)
	})

	return &rig{Controller: c, logs: logs, metrics: m, rec: rec}
}

// runAsync executes the control loop and returns a channel that
// receives its result.
func (r *rig) runAsync(ctx context.Context) <-chan error {
	ret := make(chan error, 1)
	go func() { ret <- r.Run(ctx) }()
	return ret
}

// waitFor receives from the channel or fails the test.
func waitFor(t *testing.T, ch <-chan error, timeout time.Duration) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		require.FailNow(t, "timed out")
		return nil
	}
}
