/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"chainguard.dev/promptgauge/batch"
	"chainguard.dev/promptgauge/probecache"
	"chainguard.dev/promptgauge/provider"
	"chainguard.dev/promptgauge/report"
	"github.com/spf13/cobra"
)

var probeModels []string

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [tier]",
		Short: "Check target availability and print cached statuses",
		Long: `Probes the judge models of a tier (or an explicit --models list),
refreshing the probe cache, and prints the resulting statuses.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProbe,
	}
	cmd.Flags().StringSliceVar(&probeModels, "models", nil, "targets to probe instead of a tier's models")
	return cmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	models := probeModels
	if len(models) == 0 {
		name := "standard"
		if len(args) == 1 {
			name = args[0]
		}
		tiers, err := batch.LoadTiers(tiersFile)
		if err != nil {
			return err
		}
		tier, err := batch.LookupTier(tiers, name)
		if err != nil {
			return err
		}
		models = tier.ModelKeys()
	}
	if len(models) == 0 {
		return fmt.Errorf("nothing to probe: tier has no models and --models is empty")
	}

	dir, err := cacheDir()
	if err != nil {
		return err
	}
	store, err := probecache.OpenStore(filepath.Join(dir, "probes.json"))
	if err != nil {
		return err
	}
	prober, err := probecache.NewProber(store, probecache.DefaultTTLPolicy())
	if err != nil {
		return err
	}
	var records []probecache.Record
	for _, m := range models {
		target, err := provider.ParseTarget(m)
		if err != nil {
			return err
		}
		adapter, err := provider.New(ctx, target)
		if err != nil {
			return err
		}
		status, err := prober.Status(ctx, adapter)
		if err != nil {
			return err
		}
		rec, ok := store.Get(target.Key())
		if !ok {
			rec = probecache.Record{Target: target.Key(), Status: status}
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Target < records[j].Target })
	return report.WriteProbeTable(cmd.OutOrStdout(), records)
}
