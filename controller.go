// Copyright 2023 The Cockroach Authors
// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package arrayctl

import (
	"context"
	"errors"
	"fmt"
	"runtime/trace"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"vawter.tech/arrayctl/array"
	"vawter.tech/arrayctl/bridge"
	"vawter.tech/arrayctl/internal/safe"
	"vawter.tech/arrayctl/internal/state"
	"vawter.tech/arrayctl/worker"
)

// ErrBusy is returned when a request is dropped because every worker
// slot is in use.
var ErrBusy = state.ErrBusy

// ErrStopped is returned when a request arrives after shutdown began.
var ErrStopped = state.ErrStopped

// ErrInvalidConfig is wrapped by every configuration error returned
// from [New].
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrAlreadyRunning is returned if [Controller.Run] is called twice.
var ErrAlreadyRunning = errors.New("controller already running")

// ErrAlreadyJoined is returned by [Handle.Join] on a second call.
var ErrAlreadyJoined = errors.New("worker already joined")

// A RecoveredError is recorded on a [Handle] whose worker panicked.
type RecoveredError = safe.RecoveredError

// A Phase is a state of the control loop.
type Phase int32

const (
	// PhaseIdle is the state before Run is called.
	PhaseIdle Phase = iota
	// PhaseRunning polls for requests and spawns workers.
	PhaseRunning
	// PhaseDraining has set the stop flag and is joining workers.
	PhaseDraining
	// PhaseTerminated has joined every worker.
	PhaseTerminated
)

// String is for debugging use only.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseRunning:
		return "RUNNING"
	case PhaseDraining:
		return "DRAINING"
	case PhaseTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// A Controller owns the shared array, admits workers in response to
// requests raised on its [bridge.Bridge], and drains them on exit.
//
// Requests are only consumed by the goroutine executing
// [Controller.Run], which is therefore the only place where admission
// decisions are made. All other methods are safe for concurrent use.
type Controller struct {
	array    *array.Array
	bridge   bridge.Bridge
	cfg      *config
	log      *zap.Logger
	phase    atomic.Int32
	registry Registry
	state    *state.State
}

// New validates the options and allocates the array. No state is
// created if the configuration is invalid.
func New(opts ...Option) (*Controller, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	arr, err := array.New(cfg.size)
	if err != nil {
		return nil, err
	}

	return &Controller{
		array: arr,
		cfg:   cfg,
		log:   cfg.log.Named(cfg.name),
		state: state.New(cfg.maxWorkers),
	}, nil
}

// Active returns the number of admitted workers that have not yet
// finished.
func (c *Controller) Active() int { return c.state.Active() }

// Array returns the shared array.
func (c *Controller) Array() *array.Array { return c.array }

// Bridge returns the request flags. Raising a flag is safe from any
// goroutine, including signal forwarders.
func (c *Controller) Bridge() *bridge.Bridge { return &c.bridge }

// IsStopping reports whether the stop flag has been set.
func (c *Controller) IsStopping() bool { return c.state.IsStopping() }

// MaxWorkers returns the admission limit.
func (c *Controller) MaxWorkers() int { return c.state.Max() }

// Phase returns the current state of the control loop.
func (c *Controller) Phase() Phase { return Phase(c.phase.Load()) }

// Registry returns the record of spawned workers.
func (c *Controller) Registry() *Registry { return &c.registry }

// Run executes the control loop until an exit request is observed or
// the context is done. It then sets the stop flag, waits for every
// spawned worker to finish, and returns any errors reported by
// workers. The wait is not bounded by the context, since the process
// must not exit while workers are still touching the array.
func (c *Controller) Run(ctx context.Context) error {
	if !c.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseRunning)) {
		return ErrAlreadyRunning
	}
	c.log.Info("running",
		zap.Int("size", c.array.Len()),
		zap.Int("workers", c.state.Max()),
		zap.Duration("pollInterval", c.cfg.pollInterval))

	ticker := time.NewTicker(c.cfg.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("context done", zap.NamedError("cause", context.Cause(ctx)))
			return c.drain(ctx)
		case <-ticker.C:
		}
		if c.poll(ctx) {
			return c.drain(ctx)
		}
	}
}

// String is for debugging use only.
func (c *Controller) String() string {
	return fmt.Sprintf("%s: %s (%d/%d active) (%d spawned)",
		c.cfg.name, c.Phase(), c.state.Active(), c.state.Max(), c.registry.Len())
}

// poll consumes pending requests. It returns true if an exit was
// requested, in which case any other pending requests are discarded.
func (c *Controller) poll(ctx context.Context) (exit bool) {
	if c.bridge.Take(bridge.Exit) {
		c.log.Info("exit requested")
		return true
	}
	for _, kind := range []bridge.Kind{bridge.Reverse, bridge.Print} {
		if c.bridge.Take(kind) {
			// Failures have already been reported.
			_, _ = c.dispatch(ctx, kind)
		}
	}
	return false
}

// dispatch admits and spawns one worker. A rejected request is
// dropped, not retried.
func (c *Controller) dispatch(ctx context.Context, kind bridge.Kind) (*Handle, error) {
	if err := c.state.TryAdmit(); err != nil {
		if errors.Is(err, ErrBusy) {
			c.cfg.metrics.ObserveRejected(kind.String())
			c.log.Info("busy, request dropped",
				zap.Stringer("kind", kind), zap.Int("active", c.state.Active()))
		}
		return nil, err
	}
	c.cfg.metrics.ObserveAdmitted(kind.String())

	h := c.registry.allocate(kind)
	if err := c.cfg.spawner(c.task(ctx, h)); err != nil {
		// The slot was taken by TryAdmit, but no worker will ever
		// release it.
		c.state.Release()
		c.cfg.metrics.ObserveSpawnFailure()
		c.log.Error("could not start worker",
			zap.Stringer("kind", kind), zap.Uint64("worker", h.ID), zap.Error(err))
		return nil, fmt.Errorf("spawn %s worker: %w", kind, err)
	}
	c.registry.record(h)
	c.log.Debug("worker spawned", zap.Stringer("kind", kind), zap.Uint64("worker", h.ID))
	return h, nil
}

// task returns the body of the worker's goroutine. The admission slot
// is released before the handle's done channel is closed, so that a
// joined worker is never counted as active.
func (c *Controller) task(ctx context.Context, h *Handle) func() {
	// Pauses inside a worker end as soon as the stop flag is set.
	wCtx := c.state.StoppingContext(ctx)
	log := c.log.With(zap.Stringer("kind", h.Kind), zap.Uint64("worker", h.ID))

	return func() {
		traceCtx, traceTask := trace.NewTask(wCtx, h.Kind.String())
		defer traceTask.End()
		defer close(h.done)

		err := safe.Run(func() error { return c.work(traceCtx, h.Kind, log) })
		h.finish(err)
		c.state.Release()
		c.cfg.metrics.ObserveFinished(err)
		if err != nil {
			log.Error("worker failed", zap.Error(err))
		}
	}
}

func (c *Controller) work(ctx context.Context, kind bridge.Kind, log *zap.Logger) error {
	switch kind {
	case bridge.Reverse:
		_, err := (&worker.Reverser{
			Array:     c.array,
			Log:       log,
			Metrics:   c.cfg.metrics,
			Pick:      c.cfg.picker,
			Stop:      c.state,
			StepDelay: c.cfg.stepDelay,
		}).Run(ctx)
		return err
	case bridge.Print:
		_, err := (&worker.Snapshotter{
			Array:   c.array,
			Log:     log,
			Metrics: c.cfg.metrics,
			Out:     c.cfg.out,
		}).Run(ctx)
		return err
	default:
		return fmt.Errorf("no worker for request %s", kind)
	}
}

// drain sets the stop flag and joins every recorded worker.
func (c *Controller) drain(ctx context.Context) error {
	c.phase.Store(int32(PhaseDraining))
	c.state.Stop()
	c.log.Info("draining",
		zap.Int("spawned", c.registry.Len()), zap.Int("active", c.state.Active()))

	err := c.registry.JoinAll(context.WithoutCancel(ctx), func(h *Handle, err error) {
		c.log.Debug("joined worker",
			zap.Stringer("kind", h.Kind), zap.Uint64("worker", h.ID), zap.Error(err))
	})

	c.phase.Store(int32(PhaseTerminated))
	c.log.Info("terminated",
		zap.Int("joined", c.registry.Len()), zap.Int("active", c.state.Active()))
	return err
}
