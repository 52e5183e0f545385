/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"errors"
	"os"
	"strings"

	"chainguard.dev/promptgauge/metrics"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicEnvVar is the well-known credential variable for the
// Anthropic API family.
const anthropicEnvVar = "ANTHROPIC_API_KEY"

// anthropicAdapter implements Interface against the Anthropic Messages API.
type anthropicAdapter struct {
	client anthropic.Client
	target Target
	hasKey bool
	genai  *metrics.GenAI
}

func newAnthropic(target Target) Interface {
	key := os.Getenv(anthropicEnvVar)
	return &anthropicAdapter{
		client: anthropic.NewClient(option.WithAPIKey(key)),
		target: target,
		hasKey: key != "",
		genai:  metrics.NewGenAI(meterName),
	}
}

// Target implements Interface.
func (a *anthropicAdapter) Target() Target {
	return a.target
}

// Invoke implements Interface.
func (a *anthropicAdapter) Invoke(ctx context.Context, content string) (string, error) {
	return a.complete(ctx, content, a.target.Params.MaxTokens)
}

// Probe implements Interface.
func (a *anthropicAdapter) Probe(ctx context.Context) error {
	_, err := a.complete(ctx, probeContent, probeMaxTokens)
	return err
}

func (a *anthropicAdapter) complete(ctx context.Context, content string, maxTokens int64) (string, error) {
	if !a.hasKey {
		return "", missingCredential(a.target, anthropicEnvVar)
	}
	a.genai.RecordInvocation(ctx, a.target.Provider, a.target.Model)

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.target.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(a.target.Params.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(content)),
		},
	})
	if err != nil {
		return "", a.classify(err)
	}

	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		a.genai.RecordTokens(ctx, a.target.Provider, a.target.Model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &Error{Target: a.target, Class: ClassTransient, Err: errors.New("empty response")}
	}
	return sb.String(), nil
}

// classify maps Anthropic SDK errors onto the shared taxonomy.
// 429/5xx/529 (overloaded) are transient; auth, unknown-model, and
// malformed-request statuses are permanent.
func (a *anthropicAdapter) classify(err error) *Error {
	if ce, ok := wrapContextErr(a.target, err); ok {
		return ce
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		class := classifyStatus(apiErr.StatusCode)
		if apiErr.StatusCode == 529 { // overloaded
			class = ClassTransient
		}
		return &Error{Target: a.target, Class: class, StatusCode: apiErr.StatusCode, Err: err}
	}
	// Network-level failures arrive unclassified; treat as transient.
	return &Error{Target: a.target, Class: ClassTransient, Err: err}
}
