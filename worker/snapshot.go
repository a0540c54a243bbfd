// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"fmt"
	"io"
	"runtime/trace"
	"strings"

	"go.uber.org/zap"
	"vawter.tech/arrayctl/array"
	"vawter.tech/arrayctl/metrics"
)

// A Snapshotter emits a consistent view of the whole array.
type Snapshotter struct {
	Array   *array.Array
	Log     *zap.Logger      // Defaults to a no-op logger.
	Metrics *metrics.Metrics // May be nil.
	Out     io.Writer        // Optional plain-text sink, one line per snapshot.
}

// Run locks every element in ascending order, emits the values, and
// releases the locks in descending order. The returned values are the
// ones that were emitted.
func (s *Snapshotter) Run(ctx context.Context) (vals []int, err error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	region := trace.StartRegion(ctx, "snapshot all elements")
	s.Array.With(func(locked []int) {
		vals = locked
		log.Info("snapshot", zap.Ints("array", locked))
		if s.Out != nil {
			_, err = fmt.Fprintln(s.Out, format(locked))
		}
	})
	region.End()

	s.Metrics.ObserveSnapshot()
	return vals, err
}

func format(vals []int) string {
	var sb strings.Builder
	sb.WriteString("Array:")
	for _, v := range vals {
		_, _ = fmt.Fprintf(&sb, " %d", v)
	}
	return sb.String()
}
