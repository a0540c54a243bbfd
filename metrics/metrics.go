// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes controller activity as Prometheus
// collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "arrayctl"

// Metrics groups the collectors updated by the controller and its
// workers. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Active         prometheus.Gauge
	Admitted       *prometheus.CounterVec // Labeled by request kind.
	Cancelled      prometheus.Counter
	Rejected       *prometheus.CounterVec // Labeled by request kind.
	Snapshots      prometheus.Counter
	SpawnFailures  prometheus.Counter
	Swaps          prometheus.Counter
	WorkerFailures prometheus.Counter

	collectors []prometheus.Collector
}

// New constructs the collectors and registers them with reg. A nil
// Registerer leaves the collectors unregistered, which is convenient
// in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of admitted workers that have not yet finished.",
		}),
		Admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admitted_total",
			Help:      "Requests that were admitted and spawned a worker.",
		}, []string{"kind"}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reversals_cancelled_total",
			Help:      "Reversal workers that observed the stop flag before finishing.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "Requests dropped because every worker slot was busy.",
		}, []string{"kind"}),
		Snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Consistent snapshots emitted.",
		}),
		SpawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawn_failures_total",
			Help:      "Admitted workers that could not be started.",
		}),
		Swaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_total",
			Help:      "Element swaps performed by reversal workers.",
		}),
		WorkerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Workers that returned an error or panicked.",
		}),
	}
	m.collectors = []prometheus.Collector{
		m.Active, m.Admitted, m.Cancelled, m.Rejected,
		m.Snapshots, m.SpawnFailures, m.Swaps, m.WorkerFailures,
	}
	if reg != nil {
		reg.MustRegister(m.collectors...)
	}
	return m
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return m.collectors
}

// ObserveAdmitted counts an admitted request and one more active
// worker.
func (m *Metrics) ObserveAdmitted(kind string) {
	if m == nil {
		return
	}
	m.Admitted.WithLabelValues(kind).Inc()
	m.Active.Inc()
}

// ObserveRejected counts a request dropped because every slot was
// taken.
func (m *Metrics) ObserveRejected(kind string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(kind).Inc()
}

// ObserveSpawnFailure undoes ObserveAdmitted for a worker that never
// started.
func (m *Metrics) ObserveSpawnFailure() {
	if m == nil {
		return
	}
	m.SpawnFailures.Inc()
	m.Active.Dec()
}

// ObserveFinished is called once per admitted worker after it has
// released its slot.
func (m *Metrics) ObserveFinished(err error) {
	if m == nil {
		return
	}
	m.Active.Dec()
	if err != nil {
		m.WorkerFailures.Inc()
	}
}

// ObserveSwap counts one swap performed by a reversal worker.
func (m *Metrics) ObserveSwap() {
	if m == nil {
		return
	}
	m.Swaps.Inc()
}

// ObserveCancelled counts a reversal that stopped before finishing
// its range.
func (m *Metrics) ObserveCancelled() {
	if m == nil {
		return
	}
	m.Cancelled.Inc()
}

// ObserveSnapshot counts an emitted snapshot.
func (m *Metrics) ObserveSnapshot() {
	if m == nil {
		return
	}
	m.Snapshots.Inc()
}
