// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package bridge

import (
	"os"
	"syscall"
)

// DefaultSignals returns the conventional mapping: SIGUSR1 requests a
// reversal, SIGUSR2 requests a snapshot, and SIGINT or SIGTERM request
// an exit.
func DefaultSignals() map[os.Signal]Kind {
	return map[os.Signal]Kind{
		syscall.SIGUSR1: Reverse,
		syscall.SIGUSR2: Print,
		os.Interrupt:    Exit,
		syscall.SIGTERM: Exit,
	}
}
