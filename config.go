// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package arrayctl

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"vawter.tech/arrayctl/metrics"
	"vawter.tech/arrayctl/worker"
)

// Bounds and defaults for a [Controller].
const (
	MinSize    = 8
	MaxSize    = 256
	MinWorkers = 1
	MaxWorkers = 16

	DefaultName         = "arrayctl"
	DefaultSize         = 16
	DefaultWorkers      = 4
	DefaultPollInterval = 100 * time.Millisecond
	DefaultStepDelay    = 5 * time.Millisecond
)

// An Option configures a [Controller].
type Option func(cfg *config)

// A Spawner starts a task on its own goroutine. It must return an error
// only if the task will never run.
type Spawner func(task func()) error

// GoSpawner is the default [Spawner]; it never fails.
func GoSpawner(task func()) error {
	go task()
	return nil
}

type config struct {
	log          *zap.Logger
	maxWorkers   int
	metrics      *metrics.Metrics
	name         string
	out          io.Writer
	picker       worker.Picker
	pollInterval time.Duration
	size         int
	spawner      Spawner
	stepDelay    time.Duration
}

func defaultConfig() *config {
	return &config{
		log:          zap.NewNop(),
		maxWorkers:   DefaultWorkers,
		name:         DefaultName,
		picker:       worker.RandomPicker(),
		pollInterval: DefaultPollInterval,
		size:         DefaultSize,
		spawner:      GoSpawner,
		stepDelay:    DefaultStepDelay,
	}
}

// Validate reports the first out-of-range setting. The returned error
// wraps [ErrInvalidConfig].
func (c *config) Validate() error {
	if c.size < MinSize || c.size > MaxSize {
		return fmt.Errorf("%w: size %d outside [%d, %d]",
			ErrInvalidConfig, c.size, MinSize, MaxSize)
	}
	if c.maxWorkers < MinWorkers || c.maxWorkers > MaxWorkers {
		return fmt.Errorf("%w: workers %d outside [%d, %d]",
			ErrInvalidConfig, c.maxWorkers, MinWorkers, MaxWorkers)
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s",
			ErrInvalidConfig, c.pollInterval)
	}
	if c.stepDelay < 0 {
		return fmt.Errorf("%w: step delay must not be negative, got %s",
			ErrInvalidConfig, c.stepDelay)
	}
	return nil
}

// WithLogger sets the logger used for lifecycle events. A nil logger
// disables logging.
func WithLogger(log *zap.Logger) Option {
	return func(cfg *config) {
		if log == nil {
			log = zap.NewNop()
		}
		cfg.log = log
	}
}

// WithMaxWorkers sets the maximum number of concurrently active
// workers, in [MinWorkers, MaxWorkers].
func WithMaxWorkers(p int) Option {
	return func(cfg *config) { cfg.maxWorkers = p }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) { cfg.metrics = m }
}

// WithName names the controller in its log output.
func WithName(name string) Option {
	return func(cfg *config) { cfg.name = name }
}

// WithOutput sets a plain-text sink that receives one line per
// snapshot, in addition to the log.
func WithOutput(w io.Writer) Option {
	return func(cfg *config) { cfg.out = w }
}

// WithPicker overrides how reversal workers choose their range.
func WithPicker(p worker.Picker) Option {
	return func(cfg *config) {
		if p != nil {
			cfg.picker = p
		}
	}
}

// WithPollInterval sets how often the control loop checks for pending
// requests.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) { cfg.pollInterval = d }
}

// WithSize sets the array length, in [MinSize, MaxSize].
func WithSize(n int) Option {
	return func(cfg *config) { cfg.size = n }
}

// WithSpawner replaces the function used to start worker goroutines.
// This is primarily useful for tests.
func WithSpawner(s Spawner) Option {
	return func(cfg *config) {
		if s != nil {
			cfg.spawner = s
		}
	}
}

// WithStepDelay sets the pause between the swaps of a reversal worker.
func WithStepDelay(d time.Duration) Option {
	return func(cfg *config) { cfg.stepDelay = d }
}
