/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements promptgauge, a tiered evaluation harness
// that scores prompt definitions across multiple LLM providers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/promptgauge/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.New().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
