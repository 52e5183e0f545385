/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package invoke wraps provider adapters with the resilience policy:
// probe pre-checks, error classification, bounded retry with backoff,
// and probe-cache refreshes. Callers always receive a structured
// Outcome; raw provider errors never propagate past this boundary.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/promptgauge/metrics"
	"chainguard.dev/promptgauge/probecache"
	"chainguard.dev/promptgauge/provider"
	"chainguard.dev/promptgauge/retry"
	"github.com/chainguard-dev/clog"
)

// Outcome is the result of one resilient invocation: either raw text
// with latency, or a classified failure with the attempts consumed.
// Outcomes are never silently dropped - every call produces one.
type Outcome struct {
	Target   provider.Target
	Text     string
	Latency  time.Duration
	Attempts int
	// Class is empty on success, else the failure classification.
	Class provider.Class
	Err   error
}

// OK reports whether the invocation produced usable text.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Invoker applies the resilience policy around adapter calls.
type Invoker struct {
	prober  *probecache.Prober
	retry   retry.Config
	timeout time.Duration
}

// Option configures an Invoker.
type Option func(*Invoker) error

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(i *Invoker) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		i.retry = cfg
		return nil
	}
}

// WithTimeout sets the per-call timeout. Exceeding it classifies as a
// transient error and follows the normal retry path.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		i.timeout = d
		return nil
	}
}

// NewInvoker creates an Invoker backed by the given prober.
func NewInvoker(prober *probecache.Prober, opts ...Option) (*Invoker, error) {
	if prober == nil {
		return nil, errors.New("prober cannot be nil")
	}
	inv := &Invoker{
		prober:  prober,
		retry:   retry.DefaultConfig(),
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		if err := opt(inv); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return inv, nil
}

// Do sends content through the adapter under the resilience policy.
// Known-bad targets are skipped without a network call; transient
// failures are retried up to the bound; the probe cache is refreshed
// from the final outcome either way.
func (i *Invoker) Do(ctx context.Context, adapter provider.Interface, content string) Outcome {
	log := clog.FromContext(ctx)
	target := adapter.Target()

	// Pre-check: skip invocation entirely when the target is known-bad.
	status, err := i.prober.Status(ctx, adapter)
	if err != nil {
		log.With("target", target.Key()).
			With("error", err.Error()).
			Warn("Probe lookup failed, attempting invocation anyway")
	} else if status != probecache.StatusOK {
		class := provider.ClassTransient
		if status == probecache.StatusPermanentError {
			class = provider.ClassPermanent
		}
		return Outcome{
			Target: target,
			Class:  class,
			Err:    fmt.Errorf("target %s is cached as %s, skipping invocation", target.Key(), status),
		}
	}

	start := time.Now()
	text, attempts, err := retry.Do(ctx, i.retry, "invoke "+target.Key(),
		func(err error) bool { return provider.ClassOf(err) == provider.ClassTransient },
		func(ctx context.Context) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, i.timeout)
			defer cancel()
			return adapter.Invoke(callCtx, content)
		})
	latency := time.Since(start)

	if err != nil {
		class := provider.ClassOf(err)
		metrics.CountProviderError(target.Provider, string(class))
		i.observe(ctx, target, class)
		log.With("target", target.Key()).
			With("class", class).
			With("attempts", attempts).
			Warn("Invocation failed")
		return Outcome{
			Target:   target,
			Latency:  latency,
			Attempts: attempts,
			Class:    class,
			Err:      err,
		}
	}

	i.prober.Observe(ctx, target, probecache.StatusOK)
	return Outcome{
		Target:   target,
		Text:     text,
		Latency:  latency,
		Attempts: attempts,
	}
}

// observe refreshes the probe cache from a failed invocation so
// subsequent calls to the same target short-circuit.
func (i *Invoker) observe(ctx context.Context, target provider.Target, class provider.Class) {
	status := probecache.StatusTransientError
	if class == provider.ClassPermanent {
		status = probecache.StatusPermanentError
	}
	i.prober.Observe(ctx, target, status)
}
