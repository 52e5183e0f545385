/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"chainguard.dev/promptgauge/aggregate"
	"chainguard.dev/promptgauge/provider"
	"chainguard.dev/promptgauge/scoring"
	"chainguard.dev/promptgauge/unit"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// AdapterFactory resolves a target into a provider adapter. Swappable
// for tests.
type AdapterFactory func(ctx context.Context, target provider.Target) (provider.Interface, error)

// Orchestrator drives a batch: units in parallel up to the limit,
// judge passes per the tier, one checkpoint flush per finished unit.
type Orchestrator struct {
	engine      *scoring.Engine
	store       *CheckpointStore
	adapters    AdapterFactory
	concurrency int
	calibration *aggregate.Calibration
	aggOpts     []aggregate.Option
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithConcurrency bounds how many units are in flight at once.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		o.concurrency = n
		return nil
	}
}

// WithAdapterFactory overrides how targets become adapters.
func WithAdapterFactory(f AdapterFactory) OrchestratorOption {
	return func(o *Orchestrator) error {
		if f == nil {
			return errors.New("adapter factory cannot be nil")
		}
		o.adapters = f
		return nil
	}
}

// WithCalibration applies per-model offsets during aggregation.
func WithCalibration(cal *aggregate.Calibration) OrchestratorOption {
	return func(o *Orchestrator) error {
		o.calibration = cal
		return nil
	}
}

// WithStabilityThreshold overrides the stdev below which a unit's
// scores count as stable.
func WithStabilityThreshold(v float64) OrchestratorOption {
	return func(o *Orchestrator) error {
		if v <= 0 {
			return fmt.Errorf("stability threshold must be positive, got %v", v)
		}
		o.aggOpts = append(o.aggOpts, aggregate.WithStabilityThreshold(v))
		return nil
	}
}

// NewOrchestrator creates an Orchestrator over the given engine and
// checkpoint store.
func NewOrchestrator(engine *scoring.Engine, store *CheckpointStore, opts ...OrchestratorOption) (*Orchestrator, error) {
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if store == nil {
		return nil, errors.New("checkpoint store cannot be nil")
	}
	o := &Orchestrator{
		engine:      engine,
		store:       store,
		adapters:    provider.New,
		concurrency: 4,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return o, nil
}

// Summary is the outcome of one batch run, resumed units included.
type Summary struct {
	Batch   string             `json:"batch"`
	Tier    string             `json:"tier"`
	Results []aggregate.Result `json:"results"`
	// Completed and NoModel count finished units; Resumed counts those
	// already finished in the checkpoint and skipped this run.
	Completed int `json:"completed"`
	NoModel   int `json:"no_model"`
	Resumed   int `json:"resumed"`
}

// Run executes (or resumes) the batch over the given units. An empty
// batch ID gets a generated one. Scoring failures land in the results;
// the returned error is reserved for misuse and for checkpoint I/O,
// which aborts the run rather than risk silently losing paid work.
func (o *Orchestrator) Run(ctx context.Context, batchID string, tier Tier, units []unit.Unit) (*Summary, error) {
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, errors.New("no units to run")
	}
	if batchID == "" {
		batchID = NewBatchID()
	}
	log := clog.FromContext(ctx).With("batch", batchID).With("tier", tier.Name)

	cp, err := o.store.Load(batchID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		cp = &Checkpoint{
			Batch:     batchID,
			Tier:      tier.Name,
			CreatedAt: time.Now().UTC(),
			Units:     make(map[string]UnitState),
		}
	} else if cp.Tier != tier.Name {
		return nil, fmt.Errorf("batch %s was started with tier %s, cannot resume with %s", batchID, cp.Tier, tier.Name)
	}

	adapters, err := o.resolveAdapters(ctx, tier)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Batch: batchID, Tier: tier.Name}
	var mu sync.Mutex

	// Mark the work set before starting so an interrupted run records
	// what it intended to do.
	for _, u := range units {
		if _, ok := cp.Units[u.ID]; !ok {
			cp.Units[u.ID] = UnitState{Status: UnitPending}
		}
	}
	if err := o.store.Save(cp); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, u := range units {
		if state := cp.Units[u.ID]; state.Done() {
			log.With("unit", u.ID).Info("Unit already finished, skipping")
			summary.Resumed++
			continue
		}
		g.Go(func() error {
			records, err := o.scoreUnit(gctx, u, tier, adapters)
			if err != nil {
				return err
			}
			result, err := aggregate.Aggregate(records, o.calibration, o.aggOpts...)
			if err != nil {
				return fmt.Errorf("aggregating unit %s: %w", u.ID, err)
			}

			state := UnitState{Status: UnitCompleted, Records: records, Result: &result}
			if result.NoModelAvailable {
				state.Status = UnitNoModelAvailable
				log.With("unit", u.ID).Warn("No model produced a score")
			}

			mu.Lock()
			defer mu.Unlock()
			cp.Units[u.ID] = state
			return o.store.Save(cp)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, u := range units {
		state := cp.Units[u.ID]
		if state.Result != nil {
			summary.Results = append(summary.Results, *state.Result)
		}
		switch state.Status {
		case UnitCompleted:
			summary.Completed++
		case UnitNoModelAvailable:
			summary.NoModel++
		}
	}
	sort.Slice(summary.Results, func(i, j int) bool { return summary.Results[i].Unit < summary.Results[j].Unit })
	log.With("completed", summary.Completed).
		With("no_model", summary.NoModel).
		With("resumed", summary.Resumed).
		Info("Batch finished")
	return summary, nil
}

// resolveAdapters builds one adapter per tier model up front so a
// malformed target fails the run before any unit is scored.
func (o *Orchestrator) resolveAdapters(ctx context.Context, tier Tier) ([]provider.Interface, error) {
	adapters := make([]provider.Interface, 0, len(tier.Models))
	for _, m := range tier.Models {
		target, err := m.Resolve()
		if err != nil {
			return nil, err
		}
		adapter, err := o.adapters(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("resolving adapter for %s: %w", target.Key(), err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

// scoreUnit runs every pass the tier prescribes for one unit. Every
// (model, run) pair is an independent call, so they all go out in
// parallel; record order stays fixed regardless of completion order.
func (o *Orchestrator) scoreUnit(ctx context.Context, u unit.Unit, tier Tier, adapters []provider.Interface) ([]scoring.Record, error) {
	if tier.Method == scoring.MethodStructural {
		return []scoring.Record{o.engine.Structural(u)}, nil
	}

	slots := make([][]scoring.Record, len(adapters)*tier.Runs)
	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range adapters {
		for run := 0; run < tier.Runs; run++ {
			slot := i*tier.Runs + run
			g.Go(func() error {
				recs, err := o.engine.Score(gctx, u, adapter, tier.Method)
				if err != nil {
					return fmt.Errorf("scoring unit %s: %w", u.ID, err)
				}
				slots[slot] = recs
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []scoring.Record
	for _, recs := range slots {
		records = append(records, recs...)
	}
	return records, nil
}
