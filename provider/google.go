/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"chainguard.dev/promptgauge/metrics"
	"google.golang.org/genai"
)

// googleEnvVar is the well-known credential variable for the Gemini
// API family.
const googleEnvVar = "GEMINI_API_KEY"

// googleAdapter implements Interface against the Gemini API.
type googleAdapter struct {
	client  *genai.Client
	target  Target
	credErr *Error
	genai   *metrics.GenAI
}

func newGoogle(ctx context.Context, target Target) Interface {
	a := &googleAdapter{
		target: target,
		genai:  metrics.NewGenAI(meterName),
	}

	key := os.Getenv(googleEnvVar)
	if key == "" {
		a.credErr = missingCredential(target, googleEnvVar)
		return a
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		// Client construction only fails on configuration problems;
		// surface it as a permanent classification on every call.
		a.credErr = &Error{Target: target, Class: ClassPermanent, Err: fmt.Errorf("creating Gemini client: %w", err)}
		return a
	}
	a.client = client
	return a
}

// Target implements Interface.
func (a *googleAdapter) Target() Target {
	return a.target
}

// Invoke implements Interface.
func (a *googleAdapter) Invoke(ctx context.Context, content string) (string, error) {
	return a.generate(ctx, content, int32(a.target.Params.MaxTokens))
}

// Probe implements Interface.
func (a *googleAdapter) Probe(ctx context.Context) error {
	_, err := a.generate(ctx, probeContent, probeMaxTokens)
	return err
}

func (a *googleAdapter) generate(ctx context.Context, content string, maxOutputTokens int32) (string, error) {
	if a.credErr != nil {
		return "", a.credErr
	}
	a.genai.RecordInvocation(ctx, a.target.Provider, a.target.Model)

	temperature := float32(a.target.Params.Temperature)
	resp, err := a.client.Models.GenerateContent(ctx, a.target.Model, genai.Text(content), &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		return "", a.classify(err)
	}

	if resp.UsageMetadata != nil {
		a.genai.RecordTokens(ctx, a.target.Provider, a.target.Model,
			int64(resp.UsageMetadata.PromptTokenCount),
			int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		break
	}
	if sb.Len() == 0 {
		return "", &Error{Target: a.target, Class: ClassTransient, Err: errors.New("empty response")}
	}
	return sb.String(), nil
}

// classify maps Gemini errors onto the shared taxonomy. The Gemini SDK
// surfaces a typed APIError with the HTTP code; anything else is
// matched on message text the way quota errors present themselves.
func (a *googleAdapter) classify(err error) *Error {
	if ce, ok := wrapContextErr(a.target, err); ok {
		return ce
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Target: a.target, Class: classifyStatus(apiErr.Code), StatusCode: apiErr.Code, Err: err}
	}
	if isRetryableGeminiMessage(err.Error()) {
		return &Error{Target: a.target, Class: ClassTransient, Err: err}
	}
	return &Error{Target: a.target, Class: ClassPermanent, Err: err}
}

// isRetryableGeminiMessage checks the message forms quota and transient
// server errors arrive in when no typed error is available.
func isRetryableGeminiMessage(msg string) bool {
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "Resource exhausted") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "Internal error") ||
		strings.Contains(msg, "server error") ||
		strings.Contains(msg, "connection refused")
}
