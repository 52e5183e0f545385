/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package aggregate combines score records for one evaluation unit
// into summary statistics: calibrated mean, sample spread, outlier
// flags, and a stability verdict. Failed records are counted, never
// averaged.
package aggregate

import (
	"errors"
	"fmt"
	"math"

	"chainguard.dev/promptgauge/scoring"
)

// ErrRubricMismatch is returned when records scored under different
// rubric versions are aggregated together. Their scales are not
// comparable.
var ErrRubricMismatch = errors.New("records span multiple rubric versions")

const (
	// outlierSigma flags samples further than this many sample standard
	// deviations from the mean.
	outlierSigma = 2.0
	// DefaultStabilityThreshold is the spread below which scores count
	// as stable. A policy default, overridable per aggregation.
	DefaultStabilityThreshold = 10.0
)

type settings struct {
	stabilityThreshold float64
}

// Option configures an aggregation.
type Option func(*settings) error

// WithStabilityThreshold overrides the stdev below which a unit's
// scores count as stable.
func WithStabilityThreshold(v float64) Option {
	return func(s *settings) error {
		if v <= 0 {
			return fmt.Errorf("stability threshold must be positive, got %v", v)
		}
		s.stabilityThreshold = v
		return nil
	}
}

// Sample is one valid score's contribution to an aggregate.
type Sample struct {
	Model    string         `json:"model,omitempty"`
	Method   scoring.Method `json:"method"`
	Score    float64        `json:"score"`
	Adjusted float64        `json:"adjusted"`
	Outlier  bool           `json:"outlier,omitempty"`
}

// Result summarizes all scoring passes for one unit.
type Result struct {
	Unit          string   `json:"unit"`
	RubricVersion string   `json:"rubric_version,omitempty"`
	Samples       []Sample `json:"samples,omitempty"`
	Mean          float64  `json:"mean"`
	Stdev         float64  `json:"stdev"`
	Stable        bool     `json:"stable"`
	// ParseFailures and ProviderFailures count records that produced no
	// usable score; FailureRate is their share of all passes.
	ParseFailures    int     `json:"parse_failures,omitempty"`
	ProviderFailures int     `json:"provider_failures,omitempty"`
	FailureRate      float64 `json:"failure_rate"`
	// NoModelAvailable marks a unit for which every configured target
	// failed at the provider level, so no model could even respond.
	// Parse failures do not count: a response that would not parse
	// still came from a reachable model.
	NoModelAvailable bool `json:"no_model_available,omitempty"`
}

// Aggregate summarizes the records for one unit. A nil calibration
// means no per-model adjustment. All records must share a unit and a
// rubric version.
func Aggregate(records []scoring.Record, cal *Calibration, opts ...Option) (Result, error) {
	if len(records) == 0 {
		return Result{}, errors.New("no records to aggregate")
	}
	s := settings{stabilityThreshold: DefaultStabilityThreshold}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return Result{}, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	res := Result{Unit: records[0].Unit}
	for _, rec := range records {
		if rec.Unit != res.Unit {
			return Result{}, fmt.Errorf("records span multiple units: %q and %q", res.Unit, rec.Unit)
		}
		switch {
		case rec.ParseFailure != "":
			res.ParseFailures++
			continue
		case rec.ProviderFailure != "":
			res.ProviderFailures++
			continue
		}
		if res.RubricVersion == "" {
			res.RubricVersion = rec.RubricVersion
		} else if rec.RubricVersion != res.RubricVersion {
			return Result{}, fmt.Errorf("%w: %q and %q", ErrRubricMismatch, res.RubricVersion, rec.RubricVersion)
		}
		res.Samples = append(res.Samples, Sample{
			Model:    rec.Model,
			Method:   rec.Method,
			Score:    rec.Overall,
			Adjusted: cal.Apply(rec.Model, rec.Overall),
		})
	}

	res.FailureRate = float64(res.ParseFailures+res.ProviderFailures) / float64(len(records))
	if len(res.Samples) == 0 {
		res.NoModelAvailable = res.ProviderFailures == len(records)
		return res, nil
	}

	res.Mean = mean(res.Samples)
	res.Stdev = sampleStdev(res.Samples, res.Mean)
	res.Stable = res.Stdev < s.stabilityThreshold
	for i := range res.Samples {
		res.Samples[i].Outlier = math.Abs(res.Samples[i].Adjusted-res.Mean) > outlierSigma*res.Stdev && res.Stdev > 0
	}
	return res, nil
}

func mean(samples []Sample) float64 {
	var sum float64
	for _, s := range samples {
		sum += s.Adjusted
	}
	return sum / float64(len(samples))
}

// sampleStdev is the n-1 estimator; a single sample has zero spread.
func sampleStdev(samples []Sample, mean float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var ss float64
	for _, s := range samples {
		d := s.Adjusted - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(samples)-1))
}
