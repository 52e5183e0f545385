/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package aggregate_test

import (
	"errors"
	"math"
	"testing"

	"chainguard.dev/promptgauge/aggregate"
	"chainguard.dev/promptgauge/scoring"
)

func rec(unitID, model string, overall float64) scoring.Record {
	return scoring.Record{
		Unit:          unitID,
		Model:         model,
		Method:        scoring.MethodDirect,
		RubricVersion: "prompt-quality/v1",
		Overall:       overall,
	}
}

func TestAggregate_TightScoresAreStable(t *testing.T) {
	t.Parallel()
	res, err := aggregate.Aggregate([]scoring.Record{
		rec("u", "a:m1", 72),
		rec("u", "b:m2", 75),
		rec("u", "c:m3", 78),
	}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Mean != 75 {
		t.Errorf("Mean = %v, want 75", res.Mean)
	}
	if res.Stdev != 3 {
		t.Errorf("Stdev = %v, want 3 (sample estimator)", res.Stdev)
	}
	if !res.Stable {
		t.Error("tight spread should be stable")
	}
	for _, s := range res.Samples {
		if s.Outlier {
			t.Errorf("sample %v flagged as outlier", s)
		}
	}
}

func TestAggregate_WideScoresAreUnstable(t *testing.T) {
	t.Parallel()
	res, err := aggregate.Aggregate([]scoring.Record{
		rec("u", "a:m1", 40),
		rec("u", "b:m2", 82),
		rec("u", "c:m3", 85),
	}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Mean != 69 {
		t.Errorf("Mean = %v, want 69", res.Mean)
	}
	if math.Abs(res.Stdev-25.16) > 0.01 {
		t.Errorf("Stdev = %v, want ~25.16", res.Stdev)
	}
	if res.Stable {
		t.Error("wide spread should not be stable")
	}
}

func TestAggregate_OutlierFlagging(t *testing.T) {
	t.Parallel()
	// Five agreeing scores and one far excursion: the excursion lands
	// beyond two sample standard deviations from the mean.
	res, err := aggregate.Aggregate([]scoring.Record{
		rec("u", "a:m", 80), rec("u", "b:m", 80), rec("u", "c:m", 80),
		rec("u", "d:m", 80), rec("u", "e:m", 80), rec("u", "f:m", 20),
	}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	var outliers []string
	for _, s := range res.Samples {
		if s.Outlier {
			outliers = append(outliers, s.Model)
		}
	}
	if len(outliers) != 1 || outliers[0] != "f:m" {
		t.Errorf("outliers = %v, want [f:m]", outliers)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	t.Parallel()
	records := []scoring.Record{
		rec("u", "a:m1", 40), rec("u", "b:m2", 82), rec("u", "c:m3", 85),
	}
	reversed := []scoring.Record{records[2], records[1], records[0]}

	fwd, err := aggregate.Aggregate(records, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	rev, err := aggregate.Aggregate(reversed, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if fwd.Mean != rev.Mean || fwd.Stdev != rev.Stdev || fwd.Stable != rev.Stable {
		t.Errorf("aggregation is order dependent: %+v vs %+v", fwd, rev)
	}
}

func TestAggregate_FailuresCountedNotAveraged(t *testing.T) {
	t.Parallel()
	parseFailed := rec("u", "b:m2", 0)
	parseFailed.ParseFailure = "no JSON content"
	providerFailed := rec("u", "c:m3", 0)
	providerFailed.ProviderFailure = "missing credential"

	res, err := aggregate.Aggregate([]scoring.Record{
		rec("u", "a:m1", 90), parseFailed, providerFailed,
	}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Mean != 90 {
		t.Errorf("Mean = %v, failures leaked into the average", res.Mean)
	}
	if res.ParseFailures != 1 || res.ProviderFailures != 1 {
		t.Errorf("failure counts = %d/%d, want 1/1", res.ParseFailures, res.ProviderFailures)
	}
	if math.Abs(res.FailureRate-2.0/3.0) > 1e-9 {
		t.Errorf("FailureRate = %v, want 2/3", res.FailureRate)
	}
}

func TestAggregate_NoModelAvailable(t *testing.T) {
	t.Parallel()
	failed := rec("u", "a:m1", 0)
	failed.ProviderFailure = "target cached as permanent_error"

	res, err := aggregate.Aggregate([]scoring.Record{failed}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !res.NoModelAvailable {
		t.Error("expected NoModelAvailable when every pass failed")
	}
	if res.FailureRate != 1 {
		t.Errorf("FailureRate = %v, want 1", res.FailureRate)
	}
}

func TestAggregate_ParseFailuresAloneAreNotNoModel(t *testing.T) {
	t.Parallel()
	// Models responded on every pass; the responses just would not
	// parse. That is a failure rate of 1, not an unavailable model.
	first := rec("u", "a:m1", 0)
	first.ParseFailure = "no JSON content"
	second := rec("u", "b:m2", 0)
	second.ParseFailure = "unmarshaling judge response"

	res, err := aggregate.Aggregate([]scoring.Record{first, second}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.NoModelAvailable {
		t.Error("parse failures alone marked the unit no_model_available")
	}
	if res.ParseFailures != 2 || res.FailureRate != 1 {
		t.Errorf("failures = %d, rate = %v, want 2 and 1", res.ParseFailures, res.FailureRate)
	}
}

func TestAggregate_MixedFailuresAreNotNoModel(t *testing.T) {
	t.Parallel()
	parseFailed := rec("u", "a:m1", 0)
	parseFailed.ParseFailure = "no JSON content"
	providerFailed := rec("u", "b:m2", 0)
	providerFailed.ProviderFailure = "missing credential"

	res, err := aggregate.Aggregate([]scoring.Record{parseFailed, providerFailed}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// One target responded, so not every configured target failed.
	if res.NoModelAvailable {
		t.Error("a reachable model marked the unit no_model_available")
	}
}

func TestAggregate_StabilityThresholdOption(t *testing.T) {
	t.Parallel()
	records := []scoring.Record{
		rec("u", "a:m1", 72), rec("u", "b:m2", 75), rec("u", "c:m3", 78),
	}

	res, err := aggregate.Aggregate(records, nil, aggregate.WithStabilityThreshold(2))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// Stdev 3 exceeds the tightened threshold.
	if res.Stable {
		t.Error("stdev 3 counted stable under threshold 2")
	}

	if _, err := aggregate.Aggregate(records, nil, aggregate.WithStabilityThreshold(0)); err == nil {
		t.Error("expected error for non-positive threshold")
	}
}

func TestAggregate_RubricMismatch(t *testing.T) {
	t.Parallel()
	other := rec("u", "b:m2", 80)
	other.RubricVersion = "prompt-quality/v2"

	_, err := aggregate.Aggregate([]scoring.Record{rec("u", "a:m1", 80), other}, nil)
	if !errors.Is(err, aggregate.ErrRubricMismatch) {
		t.Fatalf("err = %v, want ErrRubricMismatch", err)
	}
}

func TestAggregate_MixedUnitsRejected(t *testing.T) {
	t.Parallel()
	if _, err := aggregate.Aggregate([]scoring.Record{
		rec("u1", "a:m1", 80), rec("u2", "a:m1", 80),
	}, nil); err == nil {
		t.Fatal("expected error for mixed units")
	}
}

func TestCalibrate(t *testing.T) {
	t.Parallel()
	// Model b scores the same units 10 points harsher than anchor a.
	records := []scoring.Record{
		rec("u1", "a:m", 80), rec("u2", "a:m", 60),
		rec("u1", "b:m", 70), rec("u2", "b:m", 50),
	}
	cal, err := aggregate.Calibrate(records, "a:m")
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if cal.Offsets["a:m"] != 0 {
		t.Errorf("anchor offset = %v, want 0", cal.Offsets["a:m"])
	}
	if cal.Offsets["b:m"] != 10 {
		t.Errorf("offset for b:m = %v, want 10", cal.Offsets["b:m"])
	}
	if got := cal.Apply("b:m", 95); got != 100 {
		t.Errorf("Apply clamped = %v, want 100", got)
	}
	if got := cal.Apply("unknown:m", 55); got != 55 {
		t.Errorf("Apply unknown model = %v, want pass-through 55", got)
	}
}

func TestCalibrate_MissingAnchor(t *testing.T) {
	t.Parallel()
	if _, err := aggregate.Calibrate([]scoring.Record{rec("u", "b:m", 70)}, "a:m"); err == nil {
		t.Fatal("expected error for anchor with no records")
	}
}

func TestCalibrationAppliedInAggregate(t *testing.T) {
	t.Parallel()
	cal := &aggregate.Calibration{
		Anchor:  "a:m",
		Offsets: map[string]float64{"a:m": 0, "b:m": 10},
	}
	res, err := aggregate.Aggregate([]scoring.Record{
		rec("u", "a:m", 80), rec("u", "b:m", 70),
	}, cal)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Mean != 80 {
		t.Errorf("Mean = %v, want 80 after calibration", res.Mean)
	}
	if res.Stdev != 0 {
		t.Errorf("Stdev = %v, want 0 after calibration", res.Stdev)
	}
}
