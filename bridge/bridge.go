// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package bridge records asynchronous requests for later consumption
// by the control loop.
//
// A [Bridge] is a set of independent flags, one per [Kind]. Raising a
// flag is a single atomic store: it never locks, allocates, or blocks,
// so it is safe to call from any delivery context, including the
// goroutines that forward [os/signal] notifications. The flags are not
// a queue. Raising the same kind several times before the control loop
// polls collapses into a single pending request.
package bridge

import (
	"fmt"
	"sync/atomic"
)

// Kind identifies one of the external request types.
type Kind int

const (
	// Reverse requests a range reversal worker.
	Reverse Kind = iota
	// Print requests a snapshot worker.
	Print
	// Exit requests that the control loop drain and terminate.
	Exit

	numKinds
)

// Kinds lists every request kind in the order the control loop
// inspects them.
var Kinds = [...]Kind{Exit, Reverse, Print}

// String is for debugging use only.
func (k Kind) String() string {
	switch k {
	case Reverse:
		return "reverse"
	case Print:
		return "print"
	case Exit:
		return "exit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// A Bridge holds one pending flag per request kind. The zero value is
// ready to use. A Bridge must not be copied after first use.
type Bridge struct {
	flags [numKinds]atomic.Bool
}

// Raise marks the request kind as pending. Unknown kinds are ignored.
func (b *Bridge) Raise(k Kind) {
	if k < 0 || k >= numKinds {
		return
	}
	b.flags[k].Store(true)
}

// Take clears the flag and reports whether it had been raised. Only the
// control loop should call Take.
func (b *Bridge) Take(k Kind) bool {
	if k < 0 || k >= numKinds {
		return false
	}
	return b.flags[k].Swap(false)
}

// Pending reports whether the kind is raised without consuming it.
func (b *Bridge) Pending(k Kind) bool {
	if k < 0 || k >= numKinds {
		return false
	}
	return b.flags[k].Load()
}
