// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for arrayctl.
package main

import (
	"context"
	"fmt"
	"os"

	"vawter.tech/arrayctl/cmd/arrayctl/app"
)

func main() {
	// Signals are not bound to the context here. The run command relays
	// them onto the controller's request bridge so that an interrupt
	// drains workers instead of abandoning them.
	if err := app.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "arrayctl: %v\n", err)
		os.Exit(1)
	}
}
