// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package arrayctl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"vawter.tech/arrayctl/bridge"
)

// A Handle refers to one spawned worker. It is used by the [Registry]
// to join the worker at shutdown and doubles as observability data.
type Handle struct {
	ID      uint64      // Unique within a Controller, starting at 1.
	Kind    bridge.Kind // The request that spawned the worker.
	Started time.Time

	done   chan struct{}
	err    atomic.Pointer[error] // Acts as a tri-state value.
	joined atomic.Bool
}

func newHandle(id uint64, kind bridge.Kind) *Handle {
	return &Handle{
		ID:      id,
		Kind:    kind,
		Started: time.Now(),
		done:    make(chan struct{}),
	}
}

// Done is closed once the worker has returned and released its
// admission slot.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the worker's error once it has finished. It returns nil
// while the worker is running.
func (h *Handle) Err() error {
	if ptr := h.err.Load(); ptr != nil {
		return *ptr
	}
	return nil
}

// Join blocks until the worker has finished and returns its error. A
// handle may be joined only once; later calls return
// [ErrAlreadyJoined]. If the context is done first, the handle is left
// unjoined.
func (h *Handle) Join(ctx context.Context) error {
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if !h.joined.CompareAndSwap(false, true) {
		return ErrAlreadyJoined
	}
	return h.Err()
}

// Joined reports whether Join has succeeded.
func (h *Handle) Joined() bool { return h.joined.Load() }

// finish records the worker's outcome. The done channel is closed by
// the caller.
func (h *Handle) finish(err error) { h.err.Store(&err) }

func (h *Handle) state() string {
	if ptr := h.err.Load(); ptr == nil {
		return "running"
	} else if *ptr == nil {
		return "success"
	}
	return "failed"
}

// MarshalJSON summarizes the Handle.
func (h *Handle) MarshalJSON() ([]byte, error) {
	p := struct {
		Error   string    `json:"error,omitzero"`
		ID      uint64    `json:"id"`
		Joined  bool      `json:"joined,omitzero"`
		Kind    string    `json:"kind"`
		Started time.Time `json:"started,omitzero"`
		State   string    `json:"state"`
	}{
		ID:      h.ID,
		Joined:  h.Joined(),
		Kind:    h.Kind.String(),
		Started: h.Started,
		State:   h.state(),
	}
	if err := h.Err(); err != nil {
		p.Error = err.Error()
	}
	return json.Marshal(p)
}

// String is for debugging use only.
func (h *Handle) String() string {
	state := "(" + h.state() + ")"
	if err := h.Err(); err != nil {
		state = fmt.Sprintf("(failed %v)", err)
	}
	return fmt.Sprintf("%s#%d (started %s) %s",
		h.Kind, h.ID, h.Started.Format(time.RFC3339Nano), state)
}
