/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package batch runs scoring passes over sets of evaluation units
// under a named tier, with bounded parallelism and a checkpoint store
// that makes interrupted batches resumable without repeating finished
// work.
package batch

import (
	"fmt"
	"os"
	"sort"
	"time"

	"chainguard.dev/promptgauge/provider"
	"chainguard.dev/promptgauge/scoring"
	"gopkg.in/yaml.v3"
)

// ModelSpec names a judge target and optionally overrides its
// generation parameters. In YAML it is either a bare "provider:model"
// scalar or a mapping with a target and overrides.
type ModelSpec struct {
	Target string `yaml:"target" json:"target"`
	// Temperature and MaxTokens replace the target defaults when set.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   *int64   `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand alongside the mapping
// form.
func (m *ModelSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&m.Target)
	}
	type plain ModelSpec
	return node.Decode((*plain)(m))
}

// Resolve parses the target key and applies any parameter overrides.
func (m ModelSpec) Resolve() (provider.Target, error) {
	target, err := provider.ParseTarget(m.Target)
	if err != nil {
		return provider.Target{}, err
	}
	if m.Temperature != nil {
		target.Params.Temperature = *m.Temperature
	}
	if m.MaxTokens != nil {
		target.Params.MaxTokens = *m.MaxTokens
	}
	return target, nil
}

// ModelSpecs wraps bare target keys, e.g. from a --models flag.
func ModelSpecs(keys []string) []ModelSpec {
	specs := make([]ModelSpec, 0, len(keys))
	for _, k := range keys {
		specs = append(specs, ModelSpec{Target: k})
	}
	return specs
}

// Tier names a cost/rigor point: which judge models run, with which
// scoring method, how many times each.
type Tier struct {
	Name   string         `yaml:"name" json:"name"`
	Method scoring.Method `yaml:"method" json:"method"`
	// Models are the judge targets. Empty for structural.
	Models []ModelSpec `yaml:"models,omitempty" json:"models,omitempty"`
	// Runs is how many times each model scores each unit.
	Runs int `yaml:"runs,omitempty" json:"runs,omitempty"`
	// Timeout overrides the per-call default when positive.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// ModelKeys lists the tier's provider:model keys for display.
func (t Tier) ModelKeys() []string {
	keys := make([]string, 0, len(t.Models))
	for _, m := range t.Models {
		keys = append(keys, m.Target)
	}
	return keys
}

// Validate checks the tier's internal consistency.
func (t Tier) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tier has no name")
	}
	if _, err := scoring.ParseMethod(string(t.Method)); err != nil {
		return fmt.Errorf("tier %s: %w", t.Name, err)
	}
	if t.Method == scoring.MethodStructural {
		if len(t.Models) > 0 {
			return fmt.Errorf("tier %s is structural but names models", t.Name)
		}
		return nil
	}
	if len(t.Models) == 0 {
		return fmt.Errorf("tier %s uses a judge method but names no models", t.Name)
	}
	for _, m := range t.Models {
		if _, err := m.Resolve(); err != nil {
			return fmt.Errorf("tier %s: %w", t.Name, err)
		}
		if m.MaxTokens != nil && *m.MaxTokens < 1 {
			return fmt.Errorf("tier %s: model %s has non-positive max_tokens", t.Name, m.Target)
		}
	}
	if t.Runs < 1 {
		return fmt.Errorf("tier %s needs at least one run, got %d", t.Name, t.Runs)
	}
	return nil
}

// BuiltinTiers returns the standard tiers, cheapest first.
func BuiltinTiers() []Tier {
	return []Tier{{
		Name:   "structural",
		Method: scoring.MethodStructural,
	}, {
		Name:   "quick",
		Method: scoring.MethodDirect,
		Models: ModelSpecs([]string{"anthropic:claude-sonnet-4-5"}),
		Runs:   1,
	}, {
		Name:   "standard",
		Method: scoring.MethodDirect,
		Models: ModelSpecs([]string{"anthropic:claude-sonnet-4-5", "openai:gpt-4o"}),
		Runs:   2,
	}, {
		Name:   "deep",
		Method: scoring.MethodReasoning,
		Models: ModelSpecs([]string{"anthropic:claude-sonnet-4-5", "openai:gpt-4o", "google:gemini-2.5-pro"}),
		Runs:   3,
	}, {
		Name:   "dual",
		Method: scoring.MethodDual,
		Models: ModelSpecs([]string{"anthropic:claude-sonnet-4-5", "openai:gpt-4o"}),
		Runs:   2,
	}}
}

// LoadTiers reads tier definitions from a YAML file and merges them
// over the builtins; a file tier with a builtin's name replaces it.
func LoadTiers(path string) ([]Tier, error) {
	tiers := BuiltinTiers()
	if path == "" {
		return tiers, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tier config %s: %w", path, err)
	}
	var file struct {
		Tiers []Tier `yaml:"tiers"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding tier config %s: %w", path, err)
	}

	byName := make(map[string]int, len(tiers))
	for i, t := range tiers {
		byName[t.Name] = i
	}
	for _, t := range file.Tiers {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("tier config %s: %w", path, err)
		}
		if i, ok := byName[t.Name]; ok {
			tiers[i] = t
		} else {
			tiers = append(tiers, t)
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Name < tiers[j].Name })
	return tiers, nil
}

// LookupTier finds a tier by name.
func LookupTier(tiers []Tier, name string) (Tier, error) {
	for _, t := range tiers {
		if t.Name == name {
			return t, nil
		}
	}
	return Tier{}, fmt.Errorf("unknown tier %q", name)
}
