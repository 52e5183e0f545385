/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"fmt"
	"os"
)

// probeContent is the minimal completion request used by Probe. Adapters
// cap the probe response at a handful of tokens so reachability checks
// do not consume meaningful quota.
const probeContent = "ping"

// probeMaxTokens bounds probe responses.
const probeMaxTokens = 8

// meterName is the unified OpenTelemetry meter for all adapters; the
// provider and model are dimensions on the recorded metrics.
const meterName = "chainguard.ai.promptgauge"

// Interface is the uniform contract every backend variant implements.
// The orchestrator is polymorphic over {Invoke, Probe} and never
// branches on provider identity outside this package.
type Interface interface {
	// Target returns the provider:model pair this adapter is bound to.
	Target() Target

	// Invoke sends content to the model and returns the raw text
	// response. Failures are always *Error.
	Invoke(ctx context.Context, content string) (string, error)

	// Probe issues a minimal low-cost call to establish reachability.
	// A nil return means the target is usable; otherwise the *Error's
	// Class distinguishes transient from permanent unavailability.
	Probe(ctx context.Context) error
}

// New constructs the adapter variant for the target's provider family.
// Credentials are read from each family's well-known environment
// variable; a missing credential produces an adapter whose calls return
// a permanent error rather than failing construction.
func New(ctx context.Context, target Target) (Interface, error) {
	switch target.Provider {
	case FamilyAnthropic:
		return newAnthropic(target), nil
	case FamilyOpenAI:
		return newOpenAI(target), nil
	case FamilyGoogle:
		return newGoogle(ctx, target), nil
	case FamilyOllama:
		return newOllama(target), nil
	default:
		return nil, fmt.Errorf("unknown provider family %q", target.Provider)
	}
}

// envOr reads an environment variable with a fallback default.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
