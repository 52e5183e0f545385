/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"chainguard.dev/promptgauge/invoke"
	"chainguard.dev/promptgauge/probecache"
	"chainguard.dev/promptgauge/provider"
	"chainguard.dev/promptgauge/scoring"
	"chainguard.dev/promptgauge/unit"
)

// scriptedJudge returns each response in order, cycling on exhaustion.
type scriptedJudge struct {
	target    provider.Target
	responses []string

	mu    sync.Mutex
	calls int
}

func (s *scriptedJudge) Target() provider.Target { return s.target }

func (s *scriptedJudge) Probe(context.Context) error { return nil }

func (s *scriptedJudge) Invoke(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	resp := s.responses[s.calls%len(s.responses)]
	s.calls++
	return resp, nil
}

func newTestEngine(t *testing.T) *scoring.Engine {
	t.Helper()
	store, err := probecache.OpenStore(filepath.Join(t.TempDir(), "probes.json"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	prober, err := probecache.NewProber(store, probecache.DefaultTTLPolicy())
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}
	invoker, err := invoke.NewInvoker(prober)
	if err != nil {
		t.Fatalf("NewInvoker: %v", err)
	}
	engine, err := scoring.NewEngine(scoring.DefaultRubric(), invoker)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func goodUnit() unit.Unit {
	return unit.Unit{
		ID:      "prompts/reviewer",
		Pattern: "persona",
		Content: `# Code Reviewer

## Role

You are a careful code reviewer for Go services.

## Task

Review the diff and flag correctness issues before style issues.
`,
	}
}

const scoredJSON = "```json\n" + `{
  "dimensions": {"clarity": 90, "specificity": 80, "structure": 85, "completeness": 70},
  "overall": 55,
  "reasoning": "Clear role and task, light on output constraints."
}` + "\n```"

func TestStructural_WellFormedUnit(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	rec := engine.Structural(goodUnit())
	if !rec.Valid() {
		t.Fatalf("structural record invalid: %+v", rec)
	}
	if rec.Method != scoring.MethodStructural {
		t.Errorf("Method = %q", rec.Method)
	}
	if rec.Overall != 100 {
		t.Errorf("Overall = %v, want 100 for a well-formed unit (reasoning: %s)", rec.Overall, rec.Reasoning)
	}
	if rec.RubricVersion != scoring.DefaultRubric().Version {
		t.Errorf("RubricVersion = %q", rec.RubricVersion)
	}
}

func TestStructural_DegradedUnit(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)

	rec := engine.Structural(unit.Unit{ID: "bad", Content: "do the thing with {{input}}"})
	if rec.Overall >= 100 {
		t.Fatalf("Overall = %v, want degraded score", rec.Overall)
	}
	for _, want := range []string{"title-heading", "pattern-declared", "no-unresolved-placeholders"} {
		if !strings.Contains(rec.Reasoning, want) {
			t.Errorf("reasoning missing failed check %s: %q", want, rec.Reasoning)
		}
	}
}

func TestDirect_ParsesAndReweights(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	judge := &scriptedJudge{
		target:    provider.MustParseTarget("anthropic:claude-sonnet-4-5"),
		responses: []string{scoredJSON},
	}

	recs, err := engine.Score(context.Background(), goodUnit(), judge, scoring.MethodDirect)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	rec := recs[0]
	if !rec.Valid() {
		t.Fatalf("record invalid: parse=%q provider=%q", rec.ParseFailure, rec.ProviderFailure)
	}
	// Overall comes from rubric weights, not the judge's arithmetic:
	// 0.3*90 + 0.25*80 + 0.25*85 + 0.2*70 = 82.25.
	if rec.Overall != 82.25 {
		t.Errorf("Overall = %v, want 82.25", rec.Overall)
	}
	if rec.Model != "anthropic:claude-sonnet-4-5" {
		t.Errorf("Model = %q", rec.Model)
	}
	if judge.calls != 1 {
		t.Errorf("judge invoked %d times, want 1", judge.calls)
	}
}

func TestDirect_ParseFailureIsRecorded(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	judge := &scriptedJudge{
		target:    provider.MustParseTarget("openai:gpt-4o"),
		responses: []string{"I would rate this prompt quite highly overall!"},
	}

	recs, err := engine.Score(context.Background(), goodUnit(), judge, scoring.MethodDirect)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	rec := recs[0]
	if rec.Valid() {
		t.Fatal("expected parse failure to invalidate record")
	}
	if rec.ParseFailure == "" {
		t.Fatal("ParseFailure not recorded")
	}
	// A parse failure must never be smuggled in as a zero score.
	if rec.Overall != 0 || len(rec.Dimensions) != 0 {
		t.Errorf("parse-failed record carries scores: %+v", rec)
	}
}

func TestReasoning_TwoCalls(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	judge := &scriptedJudge{
		target: provider.MustParseTarget("google:gemini-2.5-pro"),
		responses: []string{
			"The prompt states a clear role and a reviewable task.",
			scoredJSON,
		},
	}

	recs, err := engine.Score(context.Background(), goodUnit(), judge, scoring.MethodReasoning)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	rec := recs[0]
	if !rec.Valid() {
		t.Fatalf("record invalid: parse=%q provider=%q", rec.ParseFailure, rec.ProviderFailure)
	}
	if rec.Method != scoring.MethodReasoning {
		t.Errorf("Method = %q", rec.Method)
	}
	if judge.calls != 2 {
		t.Errorf("judge invoked %d times, want 2 (analysis then score)", judge.calls)
	}
}

func TestDual_TwoIndependentRecords(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	judge := &scriptedJudge{
		target: provider.MustParseTarget("ollama:llama3.3"),
		responses: []string{
			scoredJSON, // direct
			"Step-by-step analysis of the prompt.", // reasoning: analysis
			scoredJSON,                             // reasoning: score
		},
	}

	recs, err := engine.Score(context.Background(), goodUnit(), judge, scoring.MethodDual)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].Method != scoring.MethodDirect || recs[1].Method != scoring.MethodReasoning {
		t.Errorf("methods = %q, %q", recs[0].Method, recs[1].Method)
	}
	for _, rec := range recs {
		if !rec.Valid() {
			t.Errorf("%s record invalid: parse=%q provider=%q", rec.Method, rec.ParseFailure, rec.ProviderFailure)
		}
	}
}

func TestJudge_ScoresClampedToScale(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	judge := &scriptedJudge{
		target: provider.MustParseTarget("anthropic:claude-sonnet-4-5"),
		responses: []string{"```json\n" + `{
  "dimensions": {"clarity": 140, "specificity": -10, "structure": 50, "completeness": 50},
  "overall": 140
}` + "\n```"},
	}

	recs, err := engine.Score(context.Background(), goodUnit(), judge, scoring.MethodDirect)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	rec := recs[0]
	if rec.Dimensions["clarity"] != 100 || rec.Dimensions["specificity"] != 0 {
		t.Errorf("dimensions not clamped: %+v", rec.Dimensions)
	}
	if rec.Overall > 100 {
		t.Errorf("Overall = %v, exceeds scale", rec.Overall)
	}
}

func TestRubricValidation(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name   string
		rubric scoring.Rubric
	}{{
		name:   "no version",
		rubric: scoring.Rubric{Dimensions: []scoring.Dimension{{Name: "a", Weight: 1}}},
	}, {
		name:   "no dimensions",
		rubric: scoring.Rubric{Version: "v1"},
	}, {
		name: "weights off",
		rubric: scoring.Rubric{Version: "v1", Dimensions: []scoring.Dimension{
			{Name: "a", Weight: 0.5}, {Name: "b", Weight: 0.4},
		}},
	}, {
		name: "duplicate names",
		rubric: scoring.Rubric{Version: "v1", Dimensions: []scoring.Dimension{
			{Name: "a", Weight: 0.5}, {Name: "a", Weight: 0.5},
		}},
	}} {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.rubric.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := scoring.DefaultRubric().Validate(); err != nil {
		t.Fatalf("default rubric invalid: %v", err)
	}
}

func TestParseMethod(t *testing.T) {
	t.Parallel()
	for _, good := range []string{"structural", "direct", "reasoning", "dual"} {
		if _, err := scoring.ParseMethod(good); err != nil {
			t.Errorf("ParseMethod(%q): %v", good, err)
		}
	}
	if _, err := scoring.ParseMethod("vibes"); err == nil {
		t.Error("expected error for unknown method")
	}
}
