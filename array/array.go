// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package array contains the shared integer sequence and its
// per-element locks.
//
// Any code path that needs more than one element lock must acquire
// them in strictly ascending index order. [Array.Swap] and
// [Array.LockAll] both follow that rule, so any number of concurrent
// swappers and snapshot readers can never form a cycle of waiters.
// New operations added to this package must preserve it.
package array

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSize is returned by [New] for a non-positive length.
var ErrSize = errors.New("array size must be greater than zero")

// An Array is a fixed-length sequence of integers with one mutex per
// element. Invariant: vals[i] is only read or written while locks[i]
// is held.
type Array struct {
	locks []sync.Mutex
	vals  []int
}

// New returns an Array of length n, initialized to 0..n-1.
func New(n int) (*Array, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSize, n)
	}
	ret := &Array{
		locks: make([]sync.Mutex, n),
		vals:  make([]int, n),
	}
	for i := range ret.vals {
		ret.vals[i] = i
	}
	return ret, nil
}

// Len returns the number of elements. It does not take any locks since
// the length never changes.
func (a *Array) Len() int { return len(a.vals) }

// Get returns the value at index i.
func (a *Array) Get(i int) int {
	a.locks[i].Lock()
	defer a.locks[i].Unlock()
	return a.vals[i]
}

// Swap exchanges the values at i and j. The lower index is always
// locked first and the higher index is released first.
func (a *Array) Swap(i, j int) {
	if i == j {
		return
	}
	lo, hi := min(i, j), max(i, j)

	a.locks[lo].Lock()
	a.locks[hi].Lock()
	a.vals[lo], a.vals[hi] = a.vals[hi], a.vals[lo]
	a.locks[hi].Unlock()
	a.locks[lo].Unlock()
}

// LockAll acquires every element lock in ascending order. The caller
// must call UnlockAll.
func (a *Array) LockAll() {
	for i := range a.locks {
		a.locks[i].Lock()
	}
}

// UnlockAll releases every element lock in descending order.
func (a *Array) UnlockAll() {
	for i := len(a.locks) - 1; i >= 0; i-- {
		a.locks[i].Unlock()
	}
}

// Snapshot returns a copy of the array taken while every element lock
// is held. The result is a state that existed at a single instant.
func (a *Array) Snapshot() []int {
	a.LockAll()
	defer a.UnlockAll()
	return a.snapshotLocked()
}

// snapshotLocked requires that all locks be held.
func (a *Array) snapshotLocked() []int {
	ret := make([]int, len(a.vals))
	copy(ret, a.vals)
	return ret
}

// With runs fn while all element locks are held, passing a copy of the
// current values. It is intended for observers that must do more than
// copy the values (e.g. format and emit them) within the same critical
// section.
func (a *Array) With(fn func(vals []int)) {
	a.LockAll()
	defer a.UnlockAll()
	fn(a.snapshotLocked())
}
