/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry provides bounded exponential-backoff retry for provider
// calls, retrying only failures classified as transient.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config configures retry behavior around provider invocations.
type Config struct {
	// MaxRetries is the maximum number of retry attempts beyond the
	// first call (default: 2, i.e. 3 total attempts). 0 disables retry.
	MaxRetries int
	// BaseBackoff is the initial backoff duration (default: 500ms).
	BaseBackoff time.Duration
	// MaxBackoff caps the backoff growth (default: 8s).
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to each backoff
	// (default: 250ms) to avoid thundering herds.
	MaxJitter time.Duration
}

// Validate checks that the retry configuration has valid values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// DefaultConfig returns the policy default: two retries with sub-second
// initial backoff. Rate-limited targets get probed again on a cache
// TTL, so there is no value in long in-call retry loops.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  2,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  8 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// Do executes fn with exponential backoff, retrying only errors the
// retryable classifier accepts. It returns the result, the number of
// attempts consumed, and the last error (nil on success). A permanent
// classification or context cancellation stops the loop immediately.
func Do[T any](ctx context.Context, cfg Config, operation string, retryable func(error) bool, fn func(context.Context) (T, error)) (T, int, error) {
	var result T
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn(ctx)
		attempts++
		if lastErr == nil {
			return result, attempts, nil
		}

		if !retryable(lastErr) {
			return result, attempts, lastErr
		}

		if attempt >= cfg.MaxRetries {
			break
		}

		// BaseBackoff * 2^attempt, capped at MaxBackoff, plus jitter.
		backoff := min(cfg.BaseBackoff<<attempt, cfg.MaxBackoff)
		backoff += jitter(cfg.MaxJitter)

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", backoff).
			With("error", lastErr.Error()).
			Warn("Transient provider error, retrying")

		select {
		case <-ctx.Done():
			return result, attempts, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return result, attempts, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}

// jitter returns a uniform random duration in [0, max).
func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
