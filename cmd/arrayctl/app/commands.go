// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package app provides the commands of the arrayctl binary.
package app

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"vawter.tech/arrayctl"
)

// Configuration keys, which are also the flag names.
const (
	keyConfig       = "config"
	keyLogFormat    = "log-format"
	keyLogLevel     = "log-level"
	keyMetricsAddr  = "metrics-addr"
	keyPollInterval = "poll-interval"
	keySize         = "size"
	keyStepDelay    = "step-delay"
	keyWorkers      = "workers"
)

// EnvPrefix is prepended to environment variables that override flags,
// e.g. ARRAYCTL_WORKERS.
const EnvPrefix = "ARRAYCTL"

// version is set at link time.
var version = ""

// NewRootCmd creates the root command. Each call returns an
// independent command tree with its own configuration.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "arrayctl",
		Short: "Mutate a shared array with signal-driven workers",
		Long: `arrayctl holds an array of n integers in memory and spawns bounded
worker goroutines in response to signals:

  SIGUSR1          reverse a random range of the array
  SIGUSR2          print a consistent snapshot of the array
  SIGINT, SIGTERM  stop accepting requests and drain running workers

At most p workers are active at once; requests that arrive while the
limit is reached are dropped.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String(keyConfig, "", "optional configuration file (yaml, toml, or json)")
	root.PersistentFlags().String(keyLogLevel, "info", "minimum log level")
	root.PersistentFlags().String(keyLogFormat, "console", "log output format, console or json")

	root.AddCommand(newRunCmd(v))
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [n p]",
		Short: "Run the controller until an exit signal is received",
		Long: `Run the controller until SIGINT or SIGTERM is received.

The array size n and the worker limit p may be given either as flags or
as positional arguments. Positional arguments take precedence.`,
		Args: cobra.MatchAll(cobra.MaximumNArgs(2), func(_ *cobra.Command, args []string) error {
			if len(args) == 1 {
				return errors.New("both n and p must be given")
			}
			return nil
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settingsFrom(v, args)
			if err != nil {
				return err
			}
			return s.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.IntP(keySize, "n", arrayctl.DefaultSize,
		fmt.Sprintf("array length, in [%d, %d]", arrayctl.MinSize, arrayctl.MaxSize))
	f.IntP(keyWorkers, "p", arrayctl.DefaultWorkers,
		fmt.Sprintf("maximum concurrent workers, in [%d, %d]", arrayctl.MinWorkers, arrayctl.MaxWorkers))
	f.Duration(keyPollInterval, arrayctl.DefaultPollInterval, "how often pending requests are checked")
	f.Duration(keyStepDelay, arrayctl.DefaultStepDelay, "pause between the swaps of a reversal")
	f.String(keyMetricsAddr, "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "arrayctl %s\n", getVersion())
			return err
		},
	}
}

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// loadConfig binds the flags of the command being executed, then
// layers the environment and an optional configuration file beneath
// them.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return nil
}

// positional parses the legacy "n p" arguments.
func positional(args []string) (n, p int, err error) {
	if n, err = strconv.Atoi(args[0]); err != nil {
		return 0, 0, fmt.Errorf("%w: n: %w", arrayctl.ErrInvalidConfig, err)
	}
	if p, err = strconv.Atoi(args[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: p: %w", arrayctl.ErrInvalidConfig, err)
	}
	return n, p, nil
}
