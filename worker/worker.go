// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package worker contains the bodies of the two worker types that
// operate on the shared array.
//
// Workers do not manage their own admission slot. The controller that
// spawns them releases the slot once Run returns, whether the worker
// completed, was cancelled, or failed.
package worker

import (
	"fmt"
	"math/rand/v2"
)

// A StopFlag reports whether shutdown has been requested. Reversal
// workers consult it between steps.
type StopFlag interface {
	IsStopping() bool
}

// A Picker chooses the two endpoints of a reversal range for an array
// of length n. The endpoints may be returned in either order.
type Picker func(n int) (a, b int)

// RandomPicker chooses both endpoints uniformly at random.
func RandomPicker() Picker {
	return func(n int) (int, int) {
		return rand.IntN(n), rand.IntN(n)
	}
}

// FixedPicker always returns the given endpoints.
func FixedPicker(a, b int) Picker {
	return func(int) (int, int) { return a, b }
}

// normalize orders the endpoints and validates them against n.
func normalize(a, b, n int) (lo, hi int, err error) {
	if a < 0 || a >= n || b < 0 || b >= n {
		return 0, 0, fmt.Errorf("range [%d, %d] outside [0, %d)", a, b, n)
	}
	return min(a, b), max(a, b), nil
}
