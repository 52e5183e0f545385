/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package scoring turns raw model output into structured score records.
// Three interchangeable methods are supported: structural (no model
// call), direct rubric judging, and judge-with-reasoning; dual mode
// runs both judge variants and reports both as independent sources.
//
// A judge response that cannot be parsed into the expected structured
// form is recorded as a parse failure, never silently defaulted to a
// zero score.
package scoring

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/promptgauge/invoke"
	"chainguard.dev/promptgauge/metrics"
	"chainguard.dev/promptgauge/provider"
	"chainguard.dev/promptgauge/unit"
)

// Method selects how an evaluation unit is scored.
type Method string

const (
	// MethodStructural inspects the unit's own content against shape
	// checks. Deterministic, zero cost.
	MethodStructural Method = "structural"
	// MethodDirect asks a judge model for a structured rubric score in
	// one call.
	MethodDirect Method = "direct"
	// MethodReasoning has the judge produce step-by-step analysis
	// first, then a structured score. More tokens, more consistency.
	MethodReasoning Method = "reasoning"
	// MethodDual runs both Direct and Reasoning and reports both.
	MethodDual Method = "dual"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodStructural, MethodDirect, MethodReasoning, MethodDual:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown scoring method %q", s)
	}
}

// ScaleMax is the top of the scoring scale.
const ScaleMax = 100.0

// Record is one scoring pass over one invocation outcome. Immutable
// once produced.
type Record struct {
	Unit          string             `json:"unit"`
	Model         string             `json:"model,omitempty"`
	Method        Method             `json:"method"`
	RubricVersion string             `json:"rubric_version"`
	Dimensions    map[string]float64 `json:"dimensions,omitempty"`
	Overall       float64            `json:"overall"`
	Reasoning     string             `json:"reasoning,omitempty"`
	// ParseFailure carries the parse error when the judge responded
	// but the response had no usable structured score.
	ParseFailure string `json:"parse_failure,omitempty"`
	// ProviderFailure and ProviderClass carry the classified failure
	// when no response was obtained at all.
	ProviderFailure string         `json:"provider_failure,omitempty"`
	ProviderClass   provider.Class `json:"provider_class,omitempty"`
}

// Valid reports whether the record carries a usable score.
func (r Record) Valid() bool {
	return r.ParseFailure == "" && r.ProviderFailure == ""
}

// Engine scores evaluation units with a fixed rubric.
type Engine struct {
	rubric  Rubric
	invoker *invoke.Invoker
}

// NewEngine creates an Engine. The invoker may be nil only when every
// scoring request is structural.
func NewEngine(rubric Rubric, invoker *invoke.Invoker) (*Engine, error) {
	if err := rubric.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rubric: %w", err)
	}
	return &Engine{rubric: rubric, invoker: invoker}, nil
}

// Rubric returns the engine's rubric.
func (e *Engine) Rubric() Rubric {
	return e.rubric
}

// Score runs one scoring pass for the unit with the given method. For
// judge methods the adapter supplies the judge model; dual mode yields
// two records, every other method one. Failures come back inside the
// records - Score itself only errors on misuse (e.g. a judge method
// with no invoker).
func (e *Engine) Score(ctx context.Context, u unit.Unit, adapter provider.Interface, method Method) ([]Record, error) {
	switch method {
	case MethodStructural:
		return []Record{e.Structural(u)}, nil
	case MethodDirect:
		return []Record{e.judge(ctx, u, adapter, MethodDirect)}, nil
	case MethodReasoning:
		return []Record{e.judge(ctx, u, adapter, MethodReasoning)}, nil
	case MethodDual:
		// Both variants run and both are reported; the aggregator
		// treats them as independent score sources.
		return []Record{
			e.judge(ctx, u, adapter, MethodDirect),
			e.judge(ctx, u, adapter, MethodReasoning),
		}, nil
	default:
		return nil, fmt.Errorf("unknown scoring method %q", method)
	}
}

// errNoInvoker guards judge methods on a structural-only engine.
var errNoInvoker = errors.New("engine has no invoker configured")

// record builds the base record for a pass, counting it in metrics.
func (e *Engine) record(u unit.Unit, model string, method Method) Record {
	metrics.CountScoring(string(method), model)
	return Record{
		Unit:          u.ID,
		Model:         model,
		Method:        method,
		RubricVersion: e.rubric.Version,
	}
}

// clamp bounds a score to the fixed scale.
func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > ScaleMax:
		return ScaleMax
	default:
		return v
	}
}
