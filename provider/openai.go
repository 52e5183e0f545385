/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package provider

import (
	"context"
	"errors"
	"os"

	"chainguard.dev/promptgauge/metrics"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiEnvVar is the well-known credential variable for the OpenAI
// API family.
const openaiEnvVar = "OPENAI_API_KEY"

// openaiAdapter implements Interface against the OpenAI Chat
// Completions API. The Ollama variant reuses it with a different base
// URL since the local runtime speaks the same wire protocol.
type openaiAdapter struct {
	client openai.Client
	target Target
	// credErr is non-nil when the family's credential is absent; every
	// call returns it instead of reaching the network.
	credErr *Error
	genai   *metrics.GenAI
}

func newOpenAI(target Target) Interface {
	key := os.Getenv(openaiEnvVar)
	a := &openaiAdapter{
		client: openai.NewClient(option.WithAPIKey(key)),
		target: target,
		genai:  metrics.NewGenAI(meterName),
	}
	if key == "" {
		a.credErr = missingCredential(target, openaiEnvVar)
	}
	return a
}

// Target implements Interface.
func (a *openaiAdapter) Target() Target {
	return a.target
}

// Invoke implements Interface.
func (a *openaiAdapter) Invoke(ctx context.Context, content string) (string, error) {
	return a.complete(ctx, content, a.target.Params.MaxTokens)
}

// Probe implements Interface.
func (a *openaiAdapter) Probe(ctx context.Context) error {
	_, err := a.complete(ctx, probeContent, probeMaxTokens)
	return err
}

func (a *openaiAdapter) complete(ctx context.Context, content string, maxTokens int64) (string, error) {
	if a.credErr != nil {
		return "", a.credErr
	}
	a.genai.RecordInvocation(ctx, a.target.Provider, a.target.Model)

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.target.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(content),
		},
		Temperature:         openai.Float(a.target.Params.Temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", a.classify(err)
	}

	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		a.genai.RecordTokens(ctx, a.target.Provider, a.target.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &Error{Target: a.target, Class: ClassTransient, Err: errors.New("empty response")}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps OpenAI SDK errors onto the shared taxonomy.
func (a *openaiAdapter) classify(err error) *Error {
	if ce, ok := wrapContextErr(a.target, err); ok {
		return ce
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{Target: a.target, Class: classifyStatus(apiErr.StatusCode), StatusCode: apiErr.StatusCode, Err: err}
	}
	// Connection refused and other network failures: transient. For the
	// local runtime this is the usual "not running" signal.
	return &Error{Target: a.target, Class: ClassTransient, Err: err}
}
