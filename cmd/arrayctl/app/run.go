// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"vawter.tech/arrayctl"
	"vawter.tech/arrayctl/bridge"
	"vawter.tech/arrayctl/internal/logging"
	"vawter.tech/arrayctl/metrics"
)

// settings is the resolved configuration of the run command.
type settings struct {
	LogFormat    string
	LogLevel     string
	MetricsAddr  string
	PollInterval time.Duration
	Size         int
	StepDelay    time.Duration
	Workers      int
}

func settingsFrom(v *viper.Viper, args []string) (*settings, error) {
	s := &settings{
		LogFormat:    v.GetString(keyLogFormat),
		LogLevel:     v.GetString(keyLogLevel),
		MetricsAddr:  v.GetString(keyMetricsAddr),
		PollInterval: v.GetDuration(keyPollInterval),
		Size:         v.GetInt(keySize),
		StepDelay:    v.GetDuration(keyStepDelay),
		Workers:      v.GetInt(keyWorkers),
	}
	if len(args) == 2 {
		n, p, err := positional(args)
		if err != nil {
			return nil, err
		}
		s.Size, s.Workers = n, p
	}
	return s, nil
}

// run builds the controller, relays signals onto its bridge, and blocks
// until it terminates. Snapshots are written to out and log output to
// logOut.
func (s *settings) run(ctx context.Context, out, logOut io.Writer) error {
	log, err := logging.New(logOut, s.LogLevel, s.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ctl, err := arrayctl.New(
		arrayctl.WithLogger(log.Logger),
		arrayctl.WithMaxWorkers(s.Workers),
		arrayctl.WithMetrics(m),
		arrayctl.WithOutput(out),
		arrayctl.WithPollInterval(s.PollInterval),
		arrayctl.WithSize(s.Size),
		arrayctl.WithStepDelay(s.StepDelay),
	)
	if err != nil {
		return err
	}

	if s.MetricsAddr != "" {
		stop, _, err := serveMetrics(s.MetricsAddr, reg, log.Logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	signals := bridge.DefaultSignals()
	stopSignals := bridge.Notify(ctx, ctl.Bridge(), signals)
	defer stopSignals()

	log.Info("ready",
		zap.Int("pid", os.Getpid()),
		zap.Int("size", s.Size),
		zap.Int("workers", s.Workers),
		zap.Stringers("reverse", bridge.SignalsFor(signals, bridge.Reverse)),
		zap.Stringers("print", bridge.SignalsFor(signals, bridge.Print)),
		zap.Stringers("exit", bridge.SignalsFor(signals, bridge.Exit)),
	)

	return ctl.Run(ctx)
}

// serveMetrics exposes the registry over HTTP and returns the bound
// address. The returned function shuts the server down.
func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) (stop func(), bound string, _ error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.Stringer("addr", l.Addr()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-served
	}, l.Addr().String(), nil
}
