/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package unit loads prompt definitions into the normalized
// EvaluationUnit form the orchestrator consumes: an identity, rendered
// content, optional variable bindings, and an optional declared pattern
// that influences which structural checks apply.
package unit

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chainguard.dev/promptgauge/promptbuilder"
	"gopkg.in/yaml.v3"
)

// Unit is one evaluatable prompt definition. Immutable once loaded.
type Unit struct {
	// ID is the unit's identity: the frontmatter id when declared,
	// else the source path.
	ID string `json:"id"`
	// Path is the source file, empty for synthesized units.
	Path string `json:"path,omitempty"`
	// Content is the rendered body with variables substituted.
	Content string `json:"content"`
	// Pattern optionally declares the prompt's shape.
	Pattern string `json:"pattern,omitempty"`
	// Vars holds the variable bindings the body was rendered with.
	Vars map[string]string `json:"vars,omitempty"`
}

// frontmatter is the YAML header of a prompt definition file.
type frontmatter struct {
	ID      string            `yaml:"id"`
	Pattern string            `yaml:"pattern"`
	Vars    map[string]string `yaml:"vars"`
}

const frontmatterDelimiter = "---"

// Load reads one prompt definition file. The body may reference
// declared variables as {{name}} placeholders; when variables are
// declared, every placeholder must be bound or loading fails.
func Load(path string) (Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Unit{}, fmt.Errorf("reading unit %s: %w", path, err)
	}

	meta, body, err := splitFrontmatter(string(data))
	if err != nil {
		return Unit{}, fmt.Errorf("parsing unit %s: %w", path, err)
	}

	content := strings.TrimSpace(body)
	if len(meta.Vars) > 0 {
		content, err = render(content, meta.Vars)
		if err != nil {
			return Unit{}, fmt.Errorf("rendering unit %s: %w", path, err)
		}
	}
	if content == "" {
		return Unit{}, fmt.Errorf("unit %s has no content", path)
	}

	id := meta.ID
	if id == "" {
		id = path
	}
	return Unit{
		ID:      id,
		Path:    path,
		Content: content,
		Pattern: meta.Pattern,
		Vars:    meta.Vars,
	}, nil
}

// LoadPath loads a single file or every .md file under a directory,
// sorted by path for deterministic batch ordering.
func LoadPath(path string) ([]Unit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		u, err := Load(path)
		if err != nil {
			return nil, err
		}
		return []Unit{u}, nil
	}

	var units []Unit
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		u, err := Load(p)
		if err != nil {
			return err
		}
		units = append(units, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no prompt definitions found under %s", path)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	return units, nil
}

// splitFrontmatter separates the YAML header from the body. Files
// without a leading delimiter are all body.
func splitFrontmatter(raw string) (frontmatter, string, error) {
	var meta frontmatter

	if !strings.HasPrefix(raw, frontmatterDelimiter+"\n") {
		return meta, raw, nil
	}
	rest := raw[len(frontmatterDelimiter)+1:]
	header, body, ok := strings.Cut(rest, "\n"+frontmatterDelimiter+"\n")
	if !ok {
		// Tolerate a closing delimiter at EOF without trailing newline.
		if h, ok2 := strings.CutSuffix(rest, "\n"+frontmatterDelimiter); ok2 {
			header, body = h, ""
		} else {
			return meta, "", fmt.Errorf("unterminated frontmatter")
		}
	}

	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return meta, "", fmt.Errorf("decoding frontmatter: %w", err)
	}
	return meta, body, nil
}

// render substitutes declared variables into the body.
func render(body string, vars map[string]string) (string, error) {
	p, err := promptbuilder.NewPrompt(body)
	if err != nil {
		return "", err
	}
	for name, value := range vars {
		p, err = p.BindString(name, value)
		if err != nil {
			return "", err
		}
	}
	return p.Build()
}
