/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package cmd wires the promptgauge CLI verbs.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"chainguard.dev/promptgauge/invoke"
	"chainguard.dev/promptgauge/probecache"
	"chainguard.dev/promptgauge/scoring"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

// config is the environment-sourced configuration shared by all verbs.
// Provider credentials (ANTHROPIC_API_KEY, OPENAI_API_KEY,
// GEMINI_API_KEY, OLLAMA_HOST) are read by the adapters themselves.
type config struct {
	CacheDir    string  `env:"PROMPTGAUGE_CACHE_DIR"`
	Concurrency int     `env:"PROMPTGAUGE_CONCURRENCY, default=4"`
	TimeoutSecs int     `env:"PROMPTGAUGE_TIMEOUT_SECS, default=120"`
	ProbeOKTTL  string  `env:"PROMPTGAUGE_PROBE_OK_TTL"`
	StableStdev float64 `env:"PROMPTGAUGE_STABLE_STDEV, default=10"`
}

var (
	cfg       config
	tiersFile string
	verbose   bool
)

// New builds the root command.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:           "promptgauge",
		Short:         "Score prompt definitions across LLM providers in tiered batches",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			if err := envconfig.Process(cmd.Context(), &cfg); err != nil {
				return fmt.Errorf("processing config: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&tiersFile, "tiers-file", "", "YAML file with tier definitions merged over the builtins")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newRunCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newTiersCmd())
	return root
}

// cacheDir resolves where probe and checkpoint state lives.
func cacheDir() (string, error) {
	if cfg.CacheDir != "" {
		return cfg.CacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache directory: %w", err)
	}
	return filepath.Join(base, "promptgauge"), nil
}

// newEngine assembles the probe cache, invoker, and scoring engine.
func newEngine(_ context.Context, timeout time.Duration) (*scoring.Engine, *probecache.Store, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, nil, err
	}
	store, err := probecache.OpenStore(filepath.Join(dir, "probes.json"))
	if err != nil {
		return nil, nil, err
	}

	policy := probecache.DefaultTTLPolicy()
	if cfg.ProbeOKTTL != "" {
		d, err := time.ParseDuration(cfg.ProbeOKTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing PROMPTGAUGE_PROBE_OK_TTL: %w", err)
		}
		policy.OK = d
	}
	prober, err := probecache.NewProber(store, policy)
	if err != nil {
		return nil, nil, err
	}

	if timeout <= 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	invoker, err := invoke.NewInvoker(prober, invoke.WithTimeout(timeout))
	if err != nil {
		return nil, nil, err
	}

	engine, err := scoring.NewEngine(scoring.DefaultRubric(), invoker)
	if err != nil {
		return nil, nil, err
	}
	return engine, store, nil
}
