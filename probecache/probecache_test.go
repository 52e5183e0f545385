/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package probecache_test

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/promptgauge/probecache"
	"chainguard.dev/promptgauge/provider"
)

// fakeAdapter counts probe calls and returns a scripted error.
type fakeAdapter struct {
	target   provider.Target
	probeErr error
	probes   atomic.Int32
}

func (f *fakeAdapter) Target() provider.Target { return f.target }

func (f *fakeAdapter) Invoke(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeAdapter) Probe(context.Context) error {
	f.probes.Add(1)
	return f.probeErr
}

func newTestProber(t *testing.T) (*probecache.Prober, *probecache.Store) {
	t.Helper()
	store, err := probecache.OpenStore(filepath.Join(t.TempDir(), "probes.json"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	prober, err := probecache.NewProber(store, probecache.DefaultTTLPolicy())
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}
	return prober, store
}

func TestStatus_FreshRecordSkipsProbe(t *testing.T) {
	t.Parallel()
	prober, _ := newTestProber(t)
	adapter := &fakeAdapter{target: provider.MustParseTarget("openai:gpt-4o-mini")}

	for range 5 {
		status, err := prober.Status(context.Background(), adapter)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status != probecache.StatusOK {
			t.Fatalf("status = %s, want ok", status)
		}
	}
	// Only the first call may probe; the rest hit the fresh record.
	if got := adapter.probes.Load(); got != 1 {
		t.Fatalf("probe calls = %d, want 1", got)
	}
}

func TestStatus_PermanentErrorCached(t *testing.T) {
	t.Parallel()
	prober, _ := newTestProber(t)
	target := provider.MustParseTarget("anthropic:claude-nonexistent")
	adapter := &fakeAdapter{
		target:   target,
		probeErr: &provider.Error{Target: target, Class: provider.ClassPermanent, StatusCode: 404},
	}

	status, err := prober.Status(context.Background(), adapter)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != probecache.StatusPermanentError {
		t.Fatalf("status = %s, want permanent_error", status)
	}

	// Second lookup trusts the cached permanent record.
	if _, err := prober.Status(context.Background(), adapter); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got := adapter.probes.Load(); got != 1 {
		t.Fatalf("probe calls = %d, want 1", got)
	}
}

func TestStatus_ConcurrentProbersCollapse(t *testing.T) {
	t.Parallel()
	prober, _ := newTestProber(t)
	adapter := &fakeAdapter{target: provider.MustParseTarget("google:gemini-2.5-flash")}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := prober.Status(context.Background(), adapter); err != nil {
				t.Errorf("Status: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := adapter.probes.Load(); got != 1 {
		t.Fatalf("probe calls = %d, want 1 (singleflight)", got)
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "probes.json")

	store, err := probecache.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	rec := probecache.Record{
		Target:    "ollama:llama3.1:8b",
		Status:    probecache.StatusTransientError,
		CheckedAt: time.Now().UTC(),
	}
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened, err := probecache.OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore (reopen): %v", err)
	}
	got, ok := reopened.Get("ollama:llama3.1:8b")
	if !ok {
		t.Fatal("record not found after reopen")
	}
	if got.Status != probecache.StatusTransientError {
		t.Fatalf("status = %s, want transient_error", got.Status)
	}
}

func TestRecordStale(t *testing.T) {
	t.Parallel()
	policy := probecache.DefaultTTLPolicy()
	now := time.Now()

	tests := []struct {
		status probecache.Status
		age    time.Duration
		stale  bool
	}{
		{status: probecache.StatusOK, age: 30 * time.Minute, stale: false},
		{status: probecache.StatusOK, age: 2 * time.Hour, stale: true},
		{status: probecache.StatusTransientError, age: time.Minute, stale: false},
		{status: probecache.StatusTransientError, age: 10 * time.Minute, stale: true},
		{status: probecache.StatusPermanentError, age: 12 * time.Hour, stale: false},
		{status: probecache.StatusPermanentError, age: 25 * time.Hour, stale: true},
	}
	for _, tc := range tests {
		rec := probecache.Record{Status: tc.status, CheckedAt: now.Add(-tc.age)}
		if got := rec.Stale(policy, now); got != tc.stale {
			t.Errorf("Stale(%s, age %s) = %t, want %t", tc.status, tc.age, got, tc.stale)
		}
	}
}
