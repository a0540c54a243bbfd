// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package bridge

import "os"

// DefaultSignals only maps an interrupt to an exit request, since the
// user-defined signals are not available on this platform.
func DefaultSignals() map[os.Signal]Kind {
	return map[os.Signal]Kind{
		os.Interrupt: Exit,
	}
}
