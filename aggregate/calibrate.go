/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package aggregate

import (
	"fmt"

	"chainguard.dev/promptgauge/scoring"
)

// Calibration holds additive per-model score offsets relative to an
// anchor model. The anchor's offset is exactly zero; a model that
// scores systematically harsher than the anchor gets a positive
// offset.
type Calibration struct {
	Anchor  string             `json:"anchor"`
	Offsets map[string]float64 `json:"offsets"`
}

// Apply returns the score adjusted by the model's offset, clamped to
// the scale. A nil calibration or unknown model passes through.
func (c *Calibration) Apply(model string, score float64) float64 {
	if c == nil {
		return score
	}
	adjusted := score + c.Offsets[model]
	switch {
	case adjusted < 0:
		return 0
	case adjusted > scoring.ScaleMax:
		return scoring.ScaleMax
	default:
		return adjusted
	}
}

// Calibrate derives offsets from records scored by several models over
// a shared set of units: each model's offset is the anchor's mean
// minus that model's mean, so adding it aligns the model to the
// anchor. Only valid records participate.
func Calibrate(records []scoring.Record, anchor string) (*Calibration, error) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		if !rec.Valid() || rec.Model == "" {
			continue
		}
		sums[rec.Model] += rec.Overall
		counts[rec.Model]++
	}
	if counts[anchor] == 0 {
		return nil, fmt.Errorf("anchor model %q has no valid records", anchor)
	}

	anchorMean := sums[anchor] / float64(counts[anchor])
	offsets := make(map[string]float64, len(counts))
	for model, n := range counts {
		offsets[model] = anchorMean - sums[model]/float64(n)
	}
	offsets[anchor] = 0
	return &Calibration{Anchor: anchor, Offsets: offsets}, nil
}
