/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainguard.dev/promptgauge/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with the given args, returning stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := New()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writePrompt(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "alpha.md")
	content := `---
id: prompts/alpha
pattern: persona
---
# Alpha

## Role

You review Go code.

## Task

Flag correctness issues in the diff before anything else.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing prompt: %v", err)
	}
	return path
}

func TestTiersVerb(t *testing.T) {
	out, err := execute(t, "tiers")
	require.NoError(t, err)
	for _, want := range []string{"structural", "quick", "standard", "deep", "dual"} {
		assert.Contains(t, out, want)
	}
}

func TestRun_DryRunPrintsPlan(t *testing.T) {
	t.Setenv("PROMPTGAUGE_CACHE_DIR", t.TempDir())
	path := writePrompt(t, t.TempDir())

	out, err := execute(t, "run", "--tier", "standard", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "tier: standard")
	assert.Contains(t, out, "prompts/alpha")
}

func TestRun_StructuralTier(t *testing.T) {
	t.Setenv("PROMPTGAUGE_CACHE_DIR", t.TempDir())
	path := writePrompt(t, t.TempDir())

	out, err := execute(t, "run", "--tier", "structural", "--batch", "b1", "--format", "json", path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var summary batch.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decoding summary: %v\n%s", err, out)
	}
	if summary.Completed != 1 || len(summary.Results) != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Results[0].Unit != "prompts/alpha" {
		t.Errorf("unit = %q", summary.Results[0].Unit)
	}
}

func TestReportVerb_RerendersCheckpoint(t *testing.T) {
	t.Setenv("PROMPTGAUGE_CACHE_DIR", t.TempDir())
	path := writePrompt(t, t.TempDir())

	if _, err := execute(t, "run", "--tier", "structural", "--batch", "b1", "--format", "json", path); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, err := execute(t, "report", "b1", "--format", "markdown")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "prompts/alpha") {
		t.Errorf("report output:\n%s", out)
	}
}

func TestReportVerb_UnknownBatch(t *testing.T) {
	t.Setenv("PROMPTGAUGE_CACHE_DIR", t.TempDir())
	if _, err := execute(t, "report", "nope"); err == nil {
		t.Fatal("expected error for unknown batch")
	}
}

func TestRun_UnknownTier(t *testing.T) {
	t.Setenv("PROMPTGAUGE_CACHE_DIR", t.TempDir())
	path := writePrompt(t, t.TempDir())
	if _, err := execute(t, "run", "--tier", "nope", path); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}
