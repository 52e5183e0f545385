/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import (
	"fmt"
	"strings"

	"chainguard.dev/promptgauge/unit"
)

// minContentLength is the shortest body that can plausibly carry a
// complete task statement.
const minContentLength = 80

// structuralCheck is one deterministic shape check. Each check
// contributes to a single rubric dimension.
type structuralCheck struct {
	name      string
	dimension string
	check     func(unit.Unit) (bool, string)
}

// requiredSections maps declared patterns to headings the body must
// contain.
var requiredSections = map[string][]string{
	"persona":  {"role", "task"},
	"workflow": {"task", "steps"},
	"template": {"task", "output"},
}

var structuralChecks = []structuralCheck{{
	name:      "title-heading",
	dimension: "structure",
	check: func(u unit.Unit) (bool, string) {
		for _, line := range strings.Split(u.Content, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "# ") {
				return true, ""
			}
		}
		return false, "no top-level title heading"
	},
}, {
	name:      "section-count",
	dimension: "structure",
	check: func(u unit.Unit) (bool, string) {
		n := 0
		for _, line := range strings.Split(u.Content, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				n++
			}
		}
		if n >= 2 {
			return true, ""
		}
		return false, fmt.Sprintf("%d headings, want at least 2", n)
	},
}, {
	name:      "pattern-declared",
	dimension: "specificity",
	check: func(u unit.Unit) (bool, string) {
		if u.Pattern != "" {
			return true, ""
		}
		return false, "no pattern declared"
	},
}, {
	name:      "pattern-sections",
	dimension: "completeness",
	check: func(u unit.Unit) (bool, string) {
		sections, ok := requiredSections[u.Pattern]
		if !ok {
			return true, ""
		}
		lower := strings.ToLower(u.Content)
		var missing []string
		for _, s := range sections {
			if !strings.Contains(lower, s) {
				missing = append(missing, s)
			}
		}
		if len(missing) > 0 {
			return false, fmt.Sprintf("pattern %s missing sections: %s", u.Pattern, strings.Join(missing, ", "))
		}
		return true, ""
	},
}, {
	name:      "minimum-length",
	dimension: "completeness",
	check: func(u unit.Unit) (bool, string) {
		if len(u.Content) >= minContentLength {
			return true, ""
		}
		return false, fmt.Sprintf("content is %d bytes, want at least %d", len(u.Content), minContentLength)
	},
}, {
	name:      "no-unresolved-placeholders",
	dimension: "clarity",
	check: func(u unit.Unit) (bool, string) {
		if idx := strings.Index(u.Content, "{{"); idx != -1 {
			return false, "content contains unresolved placeholders"
		}
		return true, ""
	},
}}

// Structural scores a unit with deterministic shape checks only. Each
// check passes or fails; a dimension's score is the passing fraction of
// its checks on the 0-100 scale, and the overall score is the usual
// weighted combination. Structural scoring cannot fail.
func (e *Engine) Structural(u unit.Unit) Record {
	rec := e.record(u, "", MethodStructural)

	passed := make(map[string]int)
	total := make(map[string]int)
	var failures []string
	for _, c := range structuralChecks {
		total[c.dimension]++
		if ok, reason := c.check(u); ok {
			passed[c.dimension]++
		} else {
			failures = append(failures, c.name+": "+reason)
		}
	}

	rec.Dimensions = make(map[string]float64, len(e.rubric.Dimensions))
	for _, d := range e.rubric.Dimensions {
		if total[d.Name] == 0 {
			// Dimensions with no structural checks score full marks so
			// they do not drag down a purely structural pass.
			rec.Dimensions[d.Name] = ScaleMax
			continue
		}
		rec.Dimensions[d.Name] = ScaleMax * float64(passed[d.Name]) / float64(total[d.Name])
	}
	rec.Overall = e.rubric.WeightedOverall(rec.Dimensions)
	if len(failures) > 0 {
		rec.Reasoning = "failed checks: " + strings.Join(failures, "; ")
	}
	return rec
}
