/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package provider implements a uniform invocation interface over the
// model backends promptgauge can evaluate against.
//
// Each backend family (Anthropic, OpenAI, Google Gemini, and a local
// Ollama runtime) implements the same Interface contract: Invoke sends
// content and returns raw text, Probe issues a minimal low-cost call to
// establish reachability. Callers dispatch through New and never branch
// on provider identity themselves - adding a backend means adding a
// variant here.
//
// All failures surface as *Error carrying a Class (transient or
// permanent) so upper layers can decide whether to retry and how long
// to cache the failure.
package provider
