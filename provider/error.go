/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"errors"
	"fmt"
)

// Class buckets provider failures into the fixed taxonomy the retry and
// probe layers operate on.
type Class string

const (
	// ClassTransient covers timeouts, rate limits, and 5xx responses.
	// Transient failures are retried and cached briefly.
	ClassTransient Class = "transient"
	// ClassPermanent covers auth failures, unknown models, and
	// malformed requests. Permanent failures are not retried and are
	// cached for a long time.
	ClassPermanent Class = "permanent"
)

// Error is the classified failure type every adapter returns. Raw SDK
// errors never escape this package.
type Error struct {
	Target Target
	Class  Class
	// StatusCode is the HTTP status when one was observed, else 0.
	StatusCode int
	Err        error
}

// Error implements error.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s provider error (status %d): %v", e.Target.Key(), e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s provider error: %v", e.Target.Key(), e.Class, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt.
func (e *Error) Retryable() bool {
	return e.Class == ClassTransient
}

// ClassOf extracts the Class from a classified error. Unclassified
// errors (including context deadline) are treated as transient so they
// follow the normal retry path.
func ClassOf(err error) Class {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ClassTransient
}

// errMissingCredential is the cause recorded when a provider family's
// access token environment variable is unset.
var errMissingCredential = errors.New("missing credential")

// missingCredential builds the permanent error for an unconfigured
// provider family. Absence of a credential must classify, not crash.
func missingCredential(target Target, envVar string) *Error {
	return &Error{
		Target: target,
		Class:  ClassPermanent,
		Err:    fmt.Errorf("%w: %s is not set", errMissingCredential, envVar),
	}
}

// classifyStatus maps an HTTP status to a Class using the shared
// taxonomy: 408/429/5xx transient, everything else permanent.
func classifyStatus(status int) Class {
	switch {
	case status == 408, status == 429, status >= 500:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// wrapContextErr converts context cancellation and deadline errors into
// transient classified errors so per-call timeouts follow the retry
// path like any other timeout.
func wrapContextErr(target Target, err error) (*Error, bool) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Target: target, Class: ClassTransient, Err: err}, true
	}
	return nil, false
}
