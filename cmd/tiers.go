/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"chainguard.dev/promptgauge/batch"
	"chainguard.dev/promptgauge/scoring"
	"github.com/spf13/cobra"
)

func newTiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "List built-in and file-defined tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tiers, err := batch.LoadTiers(tiersFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range tiers {
				if t.Method == scoring.MethodStructural {
					fmt.Fprintf(out, "%s: structural checks only\n", t.Name)
					continue
				}
				runs := strconv.Itoa(t.Runs) + " run"
				if t.Runs != 1 {
					runs += "s"
				}
				fmt.Fprintf(out, "%s: %s, %s each on %s\n",
					t.Name, t.Method, runs, strings.Join(t.ModelKeys(), ", "))
			}
			return nil
		},
	}
}
