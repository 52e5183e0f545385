/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"fmt"
	"strings"
)

// Provider family names forming the closed dispatch set.
const (
	FamilyAnthropic = "anthropic"
	FamilyOpenAI    = "openai"
	FamilyGoogle    = "google"
	FamilyOllama    = "ollama"
)

// Families lists every supported provider family.
func Families() []string {
	return []string{FamilyAnthropic, FamilyOpenAI, FamilyGoogle, FamilyOllama}
}

// Params holds per-call generation parameters for a target.
type Params struct {
	// Temperature controls sampling randomness. Judges run low
	// temperatures for consistency.
	Temperature float64 `json:"temperature" yaml:"temperature"`
	// MaxTokens bounds the response size.
	MaxTokens int64 `json:"max_tokens" yaml:"max_tokens"`
}

// DefaultParams returns the generation parameters used when a target
// does not override them.
func DefaultParams() Params {
	return Params{
		Temperature: 0.1,
		MaxTokens:   4096,
	}
}

// Target identifies a provider:model pair plus its call parameters.
// Equality and cache keying go through Key(), which ignores Params.
type Target struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	Params   Params `json:"params" yaml:"params"`
}

// ParseTarget parses a "provider:model" string into a Target with
// default parameters. The model portion may itself contain colons
// (e.g. version suffixes); only the first colon splits.
func ParseTarget(s string) (Target, error) {
	family, model, ok := strings.Cut(s, ":")
	if !ok || family == "" || model == "" {
		return Target{}, fmt.Errorf("invalid target %q: expected provider:model", s)
	}
	switch family {
	case FamilyAnthropic, FamilyOpenAI, FamilyGoogle, FamilyOllama:
	default:
		return Target{}, fmt.Errorf("unknown provider family %q in target %q", family, s)
	}
	return Target{
		Provider: family,
		Model:    model,
		Params:   DefaultParams(),
	}, nil
}

// MustParseTarget is ParseTarget for literal targets in tier tables.
func MustParseTarget(s string) Target {
	t, err := ParseTarget(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Key returns the provider:model identity string used for cache and
// retry keying.
func (t Target) Key() string {
	return t.Provider + ":" + t.Model
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return t.Key()
}
