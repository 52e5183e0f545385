/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder provides templated prompts with explicit,
// build-time-checked placeholder bindings. A Prompt is immutable: each
// Bind returns a new value, and Build fails if any placeholder is left
// unbound, so a half-assembled judge prompt can never reach a model.
package promptbuilder

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"sort"
	"strings"
)

// placeholderRE matches {{name}} placeholders. Names are identifiers:
// a letter followed by letters, digits, or underscores.
var placeholderRE = regexp.MustCompile(`\{\{([A-Za-z][A-Za-z0-9_]*)\}\}`)

// Prompt is a template with named placeholders and their bound values.
type Prompt struct {
	template string
	bound    map[string]string
	names    map[string]struct{}
}

// NewPrompt parses a template and records its placeholders.
func NewPrompt(template string) (*Prompt, error) {
	names := make(map[string]struct{})
	for _, m := range placeholderRE.FindAllStringSubmatch(template, -1) {
		names[m[1]] = struct{}{}
	}
	// Guard against typoed delimiters: an unmatched "{{ident" with no
	// closing braces is almost always a template bug.
	if idx := strings.Index(stripPlaceholders(template), "{{"); idx != -1 {
		rest := stripPlaceholders(template)[idx:]
		if len(rest) > 2 && !strings.Contains(rest, "}}") && isIdentStart(rest[2]) {
			return nil, fmt.Errorf("unclosed placeholder near %q", truncate(rest, 24))
		}
	}
	return &Prompt{
		template: template,
		bound:    make(map[string]string),
		names:    names,
	}, nil
}

// MustNewPrompt is NewPrompt for package-level template literals.
func MustNewPrompt(template string) *Prompt {
	p, err := NewPrompt(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Placeholders returns the sorted placeholder names in the template.
func (p *Prompt) Placeholders() []string {
	out := make([]string, 0, len(p.names))
	for name := range p.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BindString binds a string value to a placeholder, returning a new
// Prompt. Binding an unknown or already-bound name is an error.
func (p *Prompt) BindString(name, value string) (*Prompt, error) {
	return p.bind(name, value)
}

// BindJSON binds structured data to a placeholder by marshaling it as
// indented JSON.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %q binding: %w", name, err)
	}
	return p.bind(name, string(b))
}

func (p *Prompt) bind(name, value string) (*Prompt, error) {
	if _, ok := p.names[name]; !ok {
		return nil, fmt.Errorf("placeholder %q not present in template", name)
	}
	if _, ok := p.bound[name]; ok {
		return nil, fmt.Errorf("placeholder %q already bound", name)
	}
	next := &Prompt{
		template: p.template,
		bound:    maps.Clone(p.bound),
		names:    p.names,
	}
	next.bound[name] = value
	return next, nil
}

// Build renders the prompt, failing if any placeholder is unbound.
func (p *Prompt) Build() (string, error) {
	var unbound []string
	for name := range p.names {
		if _, ok := p.bound[name]; !ok {
			unbound = append(unbound, name)
		}
	}
	if len(unbound) > 0 {
		sort.Strings(unbound)
		return "", fmt.Errorf("unbound placeholders: %s", strings.Join(unbound, ", "))
	}

	return placeholderRE.ReplaceAllStringFunc(p.template, func(m string) string {
		name := m[2 : len(m)-2]
		return p.bound[name]
	}), nil
}

// stripPlaceholders removes well-formed placeholders so delimiter
// validation only sees the leftovers.
func stripPlaceholders(template string) string {
	return placeholderRE.ReplaceAllString(template, "")
}

func isIdentStart(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
