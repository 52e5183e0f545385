/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls JSON content out of a judge response that may wrap
// it in markdown code fences. It prefers a ```json block on its own
// lines, then falls back to stripping fences around the whole body.
func extractJSON(responseText string) string {
	lines := strings.Split(responseText, "\n")
	var buf bytes.Buffer
	inBlock := false
	found := false

	for _, line := range lines {
		if !inBlock && strings.TrimSpace(line) == "```json" {
			inBlock = true
			found = true
			continue
		}
		if inBlock && strings.TrimSpace(line) == "```" {
			break
		}
		if inBlock {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(line)
		}
	}
	if found {
		return strings.TrimSpace(buf.String())
	}

	// No fenced block: strip any fences wrapping the full response.
	out := strings.TrimSpace(responseText)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// extract unmarshals the JSON content of a judge response into T.
func extract[T any](responseText string) (T, error) {
	var result T
	content := extractJSON(responseText)
	if content == "" {
		return result, fmt.Errorf("response contains no JSON content")
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return result, fmt.Errorf("unmarshaling judge response: %w", err)
	}
	return result, nil
}
