/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"fmt"
	"math"
)

// Dimension is one weighted axis of a rubric.
type Dimension struct {
	Name        string  `yaml:"name" json:"name"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// Rubric defines the dimensions judges score against. Records carry
// the rubric version so scores from different rubrics are never mixed
// during aggregation.
type Rubric struct {
	Version    string      `yaml:"version" json:"version"`
	Dimensions []Dimension `yaml:"dimensions" json:"dimensions"`
}

// DefaultRubric is the built-in prompt-quality rubric.
func DefaultRubric() Rubric {
	return Rubric{
		Version: "prompt-quality/v1",
		Dimensions: []Dimension{{
			Name:        "clarity",
			Weight:      0.3,
			Description: "Instructions are unambiguous and the intent is plain on first read.",
		}, {
			Name:        "specificity",
			Weight:      0.25,
			Description: "Constraints, formats, and expectations are concrete rather than vague.",
		}, {
			Name:        "structure",
			Weight:      0.25,
			Description: "Sections are organized logically with a clear task statement.",
		}, {
			Name:        "completeness",
			Weight:      0.2,
			Description: "Nothing the task depends on is left for the reader to guess.",
		}},
	}
}

// Validate checks the rubric is usable: a version, at least one
// dimension, unique names, and weights that sum to 1.
func (r Rubric) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("rubric has no version")
	}
	if len(r.Dimensions) == 0 {
		return fmt.Errorf("rubric %s has no dimensions", r.Version)
	}
	seen := make(map[string]struct{}, len(r.Dimensions))
	var sum float64
	for _, d := range r.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("rubric %s has an unnamed dimension", r.Version)
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("rubric %s repeats dimension %q", r.Version, d.Name)
		}
		seen[d.Name] = struct{}{}
		if d.Weight <= 0 {
			return fmt.Errorf("dimension %q weight must be positive, got %v", d.Name, d.Weight)
		}
		sum += d.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("rubric %s weights sum to %v, want 1", r.Version, sum)
	}
	return nil
}

// WeightedOverall combines per-dimension scores into the overall score
// using the rubric weights. Dimensions missing from the map count as
// zero.
func (r Rubric) WeightedOverall(dimensions map[string]float64) float64 {
	var total float64
	for _, d := range r.Dimensions {
		total += d.Weight * clamp(dimensions[d.Name])
	}
	return clamp(total)
}
