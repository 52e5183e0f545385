/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"chainguard.dev/promptgauge/metrics"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ollamaHostEnvVar overrides where the local inference runtime listens.
// The runtime requires no credential.
const ollamaHostEnvVar = "OLLAMA_HOST"

// defaultOllamaBaseURL is the local runtime's OpenAI-compatible endpoint.
const defaultOllamaBaseURL = "http://localhost:11434/v1"

// newOllama builds the local-runtime variant. Ollama exposes an
// OpenAI-compatible API, so the adapter is the OpenAI one pointed at
// the local endpoint with a placeholder key.
func newOllama(target Target) Interface {
	baseURL := envOr(ollamaHostEnvVar, defaultOllamaBaseURL)
	return &openaiAdapter{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey("ollama"), // ignored by the runtime, required by the client
		),
		target: target,
		genai:  metrics.NewGenAI(meterName),
	}
}
