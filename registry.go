// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package arrayctl

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"vawter.tech/arrayctl/bridge"
)

// A Registry is the append-only record of every worker that was
// successfully spawned. Only the control loop appends to it; other
// goroutines may inspect it concurrently.
type Registry struct {
	mu struct {
		sync.Mutex
		handles []*Handle
		nextID  uint64
	}
}

// Handles returns a copy of the recorded handles in spawn order.
func (r *Registry) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.mu.handles)
}

// Len returns the number of recorded handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mu.handles)
}

// JoinAll joins every recorded handle, in spawn order. The optional
// callback is invoked after each join. Errors returned by workers are
// combined into the result. A handle that a caller has already joined
// is waited for but skipped, since its outcome was delivered to that
// caller. If the context is done before all handles have been joined,
// the context error is returned along with any worker errors seen so
// far, and the remaining handles stay unjoined.
func (r *Registry) JoinAll(ctx context.Context, onJoin func(*Handle, error)) error {
	var errs []error
	for _, h := range r.Handles() {
		err := h.Join(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return errors.Join(append(errs, ctxErr)...)
		}
		if errors.Is(err, ErrAlreadyJoined) {
			continue
		}
		if onJoin != nil {
			onJoin(h, err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s worker %d: %w", h.Kind, h.ID, err))
		}
	}
	return errors.Join(errs...)
}

// allocate reserves a handle that has not yet been recorded.
func (r *Registry) allocate(kind bridge.Kind) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.nextID++
	return newHandle(r.mu.nextID, kind)
}

// record appends a handle whose worker has been started.
func (r *Registry) record(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.handles = append(r.mu.handles, h)
}
