// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"strings"
)

// RaiseOnReceive raises the request kind each time a value is received
// from the channel. It can be used, for example, with
// [os/signal.Notify]. The forwarding goroutine exits when the context
// is done or the channel is closed; the returned channel is closed once
// it has exited.
func RaiseOnReceive[T any](ctx context.Context, b *Bridge, k Kind, ch <-chan T) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				b.Raise(k)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}

// Notify relays the signals in the mapping to the Bridge. The returned
// function stops signal delivery and waits for the forwarding
// goroutines to exit. It is safe to call more than once.
func Notify(ctx context.Context, b *Bridge, mapping map[os.Signal]Kind) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	bySignal := make(map[Kind][]os.Signal, numKinds)
	for sig, k := range mapping {
		bySignal[k] = append(bySignal[k], sig)
	}

	var chans []chan os.Signal
	var waits []<-chan struct{}
	for _, k := range Kinds {
		sigs := bySignal[k]
		if len(sigs) == 0 {
			continue
		}
		// A single buffered slot suffices since the flag collapses
		// repeated deliveries anyway.
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, sigs...)
		chans = append(chans, ch)
		waits = append(waits, RaiseOnReceive(ctx, b, k, ch))
	}

	return func() {
		for _, ch := range chans {
			signal.Stop(ch)
		}
		cancel()
		for _, w := range waits {
			<-w
		}
	}
}

// SignalsFor returns the signals in the mapping that raise the kind, in
// a stable order.
func SignalsFor(mapping map[os.Signal]Kind, k Kind) []os.Signal {
	var ret []os.Signal
	for sig, found := range mapping {
		if found == k {
			ret = append(ret, sig)
		}
	}
	slices.SortFunc(ret, func(a, b os.Signal) int {
		return strings.Compare(a.String(), b.String())
	})
	return ret
}
