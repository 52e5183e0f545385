/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Global counters with consistent dimensions
	scoringCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgauge_scorings_total",
			Help: "Total number of scoring passes performed",
		},
		[]string{"method", "model"},
	)

	providerErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgauge_provider_errors_total",
			Help: "Total number of classified provider errors",
		},
		[]string{"provider", "class"},
	)

	parseFailureCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgauge_judge_parse_failures_total",
			Help: "Total number of judge responses that failed structured parsing",
		},
		[]string{"model"},
	)
)

// CountScoring records one scoring pass for the given method and model.
func CountScoring(method, model string) {
	scoringCounter.WithLabelValues(method, model).Inc()
}

// CountProviderError records one classified provider failure.
func CountProviderError(provider, class string) {
	providerErrorCounter.WithLabelValues(provider, class).Inc()
}

// CountParseFailure records one judge parse failure.
func CountParseFailure(model string) {
	parseFailureCounter.WithLabelValues(model).Inc()
}
