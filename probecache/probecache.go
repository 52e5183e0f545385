/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package probecache decides whether a provider:model target is
// currently usable without hammering it. Probe results are memoized in
// a persisted store with a TTL per status class: a rate-limited target
// is rechecked soon, a nonexistent model is not rechecked every call.
package probecache

import (
	"context"
	"fmt"
	"time"

	"chainguard.dev/promptgauge/provider"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/singleflight"
)

// Status is the cached availability of a target.
type Status string

const (
	StatusOK             Status = "ok"
	StatusTransientError Status = "transient_error"
	StatusPermanentError Status = "permanent_error"
)

// statusOf maps a probe error to the cached status.
func statusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	if provider.ClassOf(err) == provider.ClassPermanent {
		return StatusPermanentError
	}
	return StatusTransientError
}

// Record is one cached probe result for a target.
type Record struct {
	Target    string    `json:"target"`
	Status    Status    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

// Stale reports whether the record has outlived the TTL for its status
// class and must be re-probed before being trusted.
func (r Record) Stale(policy TTLPolicy, now time.Time) bool {
	return now.Sub(r.CheckedAt) > policy.For(r.Status)
}

// TTLPolicy holds the cache lifetime per status class. Values are a
// policy input, not hard-coded behavior.
type TTLPolicy struct {
	OK        time.Duration `yaml:"ok"`
	Transient time.Duration `yaml:"transient"`
	Permanent time.Duration `yaml:"permanent"`
}

// DefaultTTLPolicy returns the standard magnitudes: reachable targets
// are rechecked hourly, rate-limited ones within minutes, and
// mistyped/nonexistent models only daily.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		OK:        time.Hour,
		Transient: 5 * time.Minute,
		Permanent: 24 * time.Hour,
	}
}

// Validate checks the policy holds positive durations.
func (p TTLPolicy) Validate() error {
	if p.OK <= 0 || p.Transient <= 0 || p.Permanent <= 0 {
		return fmt.Errorf("ttl policy durations must be positive: %+v", p)
	}
	return nil
}

// For returns the TTL for a status class.
func (p TTLPolicy) For(s Status) time.Duration {
	switch s {
	case StatusPermanentError:
		return p.Permanent
	case StatusTransientError:
		return p.Transient
	default:
		return p.OK
	}
}

// Prober memoizes target availability. Concurrent requests for the same
// key are collapsed so a target is never race-probed more than once.
type Prober struct {
	store  *Store
	policy TTLPolicy
	group  singleflight.Group
	now    func() time.Time
}

// NewProber creates a Prober over the given persisted store.
func NewProber(store *Store, policy TTLPolicy) (*Prober, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Prober{
		store:  store,
		policy: policy,
		now:    time.Now,
	}, nil
}

// Status returns the availability of the adapter's target, probing only
// when no fresh record exists. The probe call itself is the adapter's
// minimal reachability check.
func (p *Prober) Status(ctx context.Context, adapter provider.Interface) (Status, error) {
	key := adapter.Target().Key()

	if rec, ok := p.store.Get(key); ok && !rec.Stale(p.policy, p.now()) {
		return rec.Status, nil
	}

	// Exclusive-acquire-or-wait per key: one goroutine probes, the
	// rest share its result.
	v, err, _ := p.group.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent prober may have
		// refreshed the record while we waited.
		if rec, ok := p.store.Get(key); ok && !rec.Stale(p.policy, p.now()) {
			return rec.Status, nil
		}

		probeErr := adapter.Probe(ctx)
		status := statusOf(probeErr)
		clog.FromContext(ctx).With("target", key).
			With("status", status).
			Info("Probed target")

		if err := p.store.Put(Record{Target: key, Status: status, CheckedAt: p.now()}); err != nil {
			return status, fmt.Errorf("recording probe result: %w", err)
		}
		return status, nil
	})
	if err != nil {
		return StatusTransientError, err
	}
	return v.(Status), nil
}

// Observe refreshes the target's record from an invocation outcome, so
// successful and failed calls keep the cache current without probing.
func (p *Prober) Observe(ctx context.Context, target provider.Target, status Status) {
	rec := Record{Target: target.Key(), Status: status, CheckedAt: p.now()}
	if err := p.store.Put(rec); err != nil {
		clog.FromContext(ctx).With("target", target.Key()).
			With("error", err.Error()).
			Warn("Failed to persist probe record")
	}
}
