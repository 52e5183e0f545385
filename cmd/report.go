/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"chainguard.dev/promptgauge/aggregate"
	"chainguard.dev/promptgauge/batch"
	"chainguard.dev/promptgauge/report"
	"chainguard.dev/promptgauge/scoring"
	"github.com/spf13/cobra"
)

var (
	reportFormat    string
	calibrateAnchor string
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <batch-id>",
		Short: "Re-render the report for a checkpointed batch",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	cmd.Flags().StringVar(&reportFormat, "format", "markdown", "report format: markdown, json, csv")
	cmd.Flags().StringVar(&calibrateAnchor, "calibrate-anchor", "", "instead of a report, derive per-model offsets from the batch's records, anchored to this model")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	dir, err := cacheDir()
	if err != nil {
		return err
	}
	store, err := batch.NewCheckpointStore(filepath.Join(dir, "checkpoints"))
	if err != nil {
		return err
	}
	cp, err := store.Load(args[0])
	if err != nil {
		return err
	}
	if cp == nil {
		return fmt.Errorf("no checkpoint for batch %q", args[0])
	}

	if calibrateAnchor != "" {
		return writeCalibration(cmd, cp)
	}

	summary := summarize(cp)
	return report.Write(cmd.OutOrStdout(), format, summary)
}

// writeCalibration derives offsets from every record in the checkpoint
// and prints them in the form `run --calibration` consumes.
func writeCalibration(cmd *cobra.Command, cp *batch.Checkpoint) error {
	var records []scoring.Record
	for _, state := range cp.Units {
		records = append(records, state.Records...)
	}
	cal, err := aggregate.Calibrate(records, calibrateAnchor)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(cal)
}

// summarize rebuilds a Summary from checkpoint state.
func summarize(cp *batch.Checkpoint) *batch.Summary {
	summary := &batch.Summary{Batch: cp.Batch, Tier: cp.Tier}
	for _, state := range cp.Units {
		if state.Result != nil {
			summary.Results = append(summary.Results, *state.Result)
		}
		switch state.Status {
		case batch.UnitCompleted:
			summary.Completed++
		case batch.UnitNoModelAvailable:
			summary.NoModel++
		}
	}
	sort.Slice(summary.Results, func(i, j int) bool { return summary.Results[i].Unit < summary.Results[j].Unit })
	return summary
}
