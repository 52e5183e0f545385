/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders batch summaries for humans (markdown tables)
// and machines (JSON, CSV).
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"chainguard.dev/promptgauge/batch"
)

// Format selects a report rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMarkdown, FormatJSON, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Write renders the summary in the requested format.
func Write(w io.Writer, format Format, summary *batch.Summary) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatCSV:
		return writeCSV(w, summary)
	case FormatMarkdown:
		return writeMarkdown(w, summary)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func writeJSON(w io.Writer, summary *batch.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

var csvHeader = []string{
	"unit", "mean", "stdev", "stable",
	"samples", "parse_failures", "provider_failures", "failure_rate",
	"no_model_available",
}

func writeCSV(w io.Writer, summary *batch.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, res := range summary.Results {
		row := []string{
			res.Unit,
			formatScore(res.Mean),
			formatScore(res.Stdev),
			strconv.FormatBool(res.Stable),
			strconv.Itoa(len(res.Samples)),
			strconv.Itoa(res.ParseFailures),
			strconv.Itoa(res.ProviderFailures),
			strconv.FormatFloat(res.FailureRate, 'f', 2, 64),
			strconv.FormatBool(res.NoModelAvailable),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", res.Unit, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMarkdown(w io.Writer, summary *batch.Summary) error {
	fmt.Fprintf(w, "## Batch %s (tier %s)\n\n", summary.Batch, summary.Tier)
	fmt.Fprintf(w, "%d completed, %d without any usable model, %d resumed\n\n",
		summary.Completed, summary.NoModel, summary.Resumed)

	table := newMarkdownTable([]string{"Unit", "Mean", "Stdev", "Stable", "Samples", "Failures"}, w)
	for _, res := range summary.Results {
		if res.NoModelAvailable {
			_ = table.Append([]string{res.Unit, "-", "-", "-", "0", "no model available"})
			continue
		}
		failures := strconv.Itoa(res.ParseFailures + res.ProviderFailures)
		_ = table.Append([]string{
			res.Unit,
			formatScore(res.Mean),
			formatScore(res.Stdev),
			strconv.FormatBool(res.Stable),
			strconv.Itoa(len(res.Samples)),
			failures,
		})
	}
	return table.Render()
}

// formatScore prints scores with one decimal, trimming trailing noise
// from float arithmetic.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
