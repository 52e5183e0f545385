/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"context"
	"fmt"

	"chainguard.dev/promptgauge/metrics"
	"chainguard.dev/promptgauge/promptbuilder"
	"chainguard.dev/promptgauge/provider"
	"chainguard.dev/promptgauge/unit"
	"github.com/chainguard-dev/clog"
)

// judge runs one judge pass (direct or reasoning) and produces exactly
// one record. Provider failures and parse failures are recorded on the
// result rather than returned.
func (e *Engine) judge(ctx context.Context, u unit.Unit, adapter provider.Interface, method Method) Record {
	model := adapter.Target().Key()
	rec := e.record(u, model, method)
	log := clog.FromContext(ctx).
		With("unit", u.ID).
		With("model", model).
		With("method", method)

	if e.invoker == nil {
		rec.ProviderFailure = errNoInvoker.Error()
		rec.ProviderClass = provider.ClassPermanent
		return rec
	}

	var text string
	var err error
	switch method {
	case MethodDirect:
		text, err = e.judgeDirect(ctx, u, adapter)
	case MethodReasoning:
		text, err = e.judgeReasoning(ctx, u, adapter)
	default:
		rec.ProviderFailure = fmt.Sprintf("method %q is not a judge method", method)
		rec.ProviderClass = provider.ClassPermanent
		return rec
	}
	if err != nil {
		rec.ProviderFailure = err.Error()
		rec.ProviderClass = provider.ClassOf(err)
		return rec
	}

	payload, err := extract[scorePayload](text)
	if err != nil {
		// A malformed judge response is a data point, not a zero score.
		metrics.CountParseFailure(model)
		log.With("error", err.Error()).Warn("Judge response failed to parse")
		rec.ParseFailure = err.Error()
		return rec
	}

	rec.Dimensions = make(map[string]float64, len(payload.Dimensions))
	for name, score := range payload.Dimensions {
		rec.Dimensions[name] = clamp(score)
	}
	// The overall score is recomputed from dimensions; judges are not
	// trusted to do weighted arithmetic.
	rec.Overall = e.rubric.WeightedOverall(rec.Dimensions)
	rec.Reasoning = payload.Reasoning
	return rec
}

// judgeDirect performs the single-call judge method.
func (e *Engine) judgeDirect(ctx context.Context, u unit.Unit, adapter provider.Interface) (string, error) {
	prompt, err := e.bindScorePrompt(directPrompt, u)
	if err != nil {
		return "", err
	}
	return e.send(ctx, adapter, prompt)
}

// judgeReasoning performs the two-step method: a free-form analysis
// call followed by a structured scoring call grounded in it.
func (e *Engine) judgeReasoning(ctx context.Context, u unit.Unit, adapter provider.Interface) (string, error) {
	analysis, err := e.bindContentAndRubric(analysisPrompt, u)
	if err != nil {
		return "", err
	}
	analysisText, err := e.send(ctx, adapter, analysis)
	if err != nil {
		return "", fmt.Errorf("analysis step: %w", err)
	}

	score, err := e.bindScorePrompt(reasonedScorePrompt, u)
	if err != nil {
		return "", err
	}
	score, err = score.BindString("analysis", analysisText)
	if err != nil {
		return "", err
	}
	text, err := e.send(ctx, adapter, score)
	if err != nil {
		return "", fmt.Errorf("scoring step: %w", err)
	}
	return text, nil
}

// bindContentAndRubric binds the unit content and rubric placeholders
// shared by every judge prompt.
func (e *Engine) bindContentAndRubric(p *promptbuilder.Prompt, u unit.Unit) (*promptbuilder.Prompt, error) {
	p, err := p.BindString("content", u.Content)
	if err != nil {
		return nil, err
	}
	return p.BindJSON("rubric", e.rubric)
}

// bindScorePrompt additionally binds the response schema.
func (e *Engine) bindScorePrompt(p *promptbuilder.Prompt, u unit.Unit) (*promptbuilder.Prompt, error) {
	p, err := e.bindContentAndRubric(p, u)
	if err != nil {
		return nil, err
	}
	return p.BindJSON("schema", payloadSchema())
}

// send builds the prompt and runs it through the resilient invoker.
func (e *Engine) send(ctx context.Context, adapter provider.Interface, p *promptbuilder.Prompt) (string, error) {
	content, err := p.Build()
	if err != nil {
		return "", fmt.Errorf("building judge prompt: %w", err)
	}
	outcome := e.invoker.Do(ctx, adapter, content)
	if !outcome.OK() {
		return "", outcome.Err
	}
	return outcome.Text, nil
}
