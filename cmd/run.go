/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chainguard.dev/promptgauge/aggregate"
	"chainguard.dev/promptgauge/batch"
	"chainguard.dev/promptgauge/report"
	"chainguard.dev/promptgauge/scoring"
	"chainguard.dev/promptgauge/unit"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

var (
	flagTier        string
	flagBatch       string
	flagModels      []string
	flagMethod      string
	flagRuns        int
	flagFormat      string
	flagOutput      string
	flagConcurrency int
	flagStrict      bool
	flagDryRun      bool
	flagCalibration string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Score prompt definitions under a tier",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBatch,
	}
	cmd.Flags().StringVar(&flagTier, "tier", "quick", "tier to run")
	cmd.Flags().StringVar(&flagBatch, "batch", "", "batch identity for checkpoint/resume; generated when empty")
	cmd.Flags().StringSliceVar(&flagModels, "models", nil, "override the tier's judge models (provider:model)")
	cmd.Flags().StringVar(&flagMethod, "method", "", "override the tier's scoring method")
	cmd.Flags().IntVar(&flagRuns, "runs", 0, "override the tier's runs per model")
	cmd.Flags().StringVar(&flagFormat, "format", "markdown", "report format: markdown, json, csv")
	cmd.Flags().StringVar(&flagOutput, "output", "", "write the report to a file instead of stdout")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "max units in flight; defaults from environment")
	cmd.Flags().BoolVar(&flagStrict, "strict", false, "exit non-zero if any unit has no usable model")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "resolve units and tier, print the plan, invoke nothing")
	cmd.Flags().StringVar(&flagCalibration, "calibration", "", "JSON file with per-model score offsets (anchor plus offsets)")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	format, err := report.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	tier, err := resolveTier()
	if err != nil {
		return err
	}

	var units []unit.Unit
	for _, path := range args {
		loaded, err := unit.LoadPath(path)
		if err != nil {
			return err
		}
		units = append(units, loaded...)
	}

	if flagDryRun {
		return printPlan(cmd, tier, units)
	}

	engine, _, err := newEngine(ctx, tier.Timeout)
	if err != nil {
		return err
	}
	dir, err := cacheDir()
	if err != nil {
		return err
	}
	cstore, err := batch.NewCheckpointStore(filepath.Join(dir, "checkpoints"))
	if err != nil {
		return err
	}

	concurrency := flagConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Concurrency
	}
	opts := []batch.OrchestratorOption{
		batch.WithConcurrency(concurrency),
		batch.WithStabilityThreshold(cfg.StableStdev),
	}
	if flagCalibration != "" {
		cal, err := loadCalibration(flagCalibration)
		if err != nil {
			return err
		}
		opts = append(opts, batch.WithCalibration(cal))
	}
	orch, err := batch.NewOrchestrator(engine, cstore, opts...)
	if err != nil {
		return err
	}

	log.With("tier", tier.Name).With("units", len(units)).Info("Starting batch")
	summary, err := orch.Run(ctx, flagBatch, tier, units)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := report.Write(out, format, summary); err != nil {
		return err
	}

	if flagStrict && summary.NoModel > 0 {
		return fmt.Errorf("%d unit(s) had no usable model", summary.NoModel)
	}
	return nil
}

// loadCalibration reads per-model offsets from a JSON file.
func loadCalibration(path string) (*aggregate.Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}
	var cal aggregate.Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("decoding calibration file: %w", err)
	}
	if cal.Anchor == "" {
		return nil, fmt.Errorf("calibration file %s names no anchor model", path)
	}
	return &cal, nil
}

// resolveTier loads the tier and applies any per-flag overrides.
func resolveTier() (batch.Tier, error) {
	tiers, err := batch.LoadTiers(tiersFile)
	if err != nil {
		return batch.Tier{}, err
	}
	tier, err := batch.LookupTier(tiers, flagTier)
	if err != nil {
		return batch.Tier{}, err
	}

	if len(flagModels) > 0 {
		tier.Models = batch.ModelSpecs(flagModels)
	}
	if flagMethod != "" {
		method, err := scoring.ParseMethod(flagMethod)
		if err != nil {
			return batch.Tier{}, err
		}
		tier.Method = method
	}
	if flagRuns > 0 {
		tier.Runs = flagRuns
	}
	if err := tier.Validate(); err != nil {
		return batch.Tier{}, err
	}
	return tier, nil
}

func printPlan(cmd *cobra.Command, tier batch.Tier, units []unit.Unit) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tier: %s (method %s", tier.Name, tier.Method)
	if len(tier.Models) > 0 {
		fmt.Fprintf(out, ", %d run(s) x %s", tier.Runs, strings.Join(tier.ModelKeys(), ", "))
	}
	fmt.Fprintln(out, ")")
	if tier.Timeout > 0 {
		fmt.Fprintf(out, "timeout: %s\n", tier.Timeout)
	} else {
		fmt.Fprintf(out, "timeout: %s\n", time.Duration(cfg.TimeoutSecs)*time.Second)
	}
	fmt.Fprintf(out, "units (%d):\n", len(units))
	for _, u := range units {
		fmt.Fprintf(out, "  %s\n", u.ID)
	}
	return nil
}
