/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import "github.com/invopop/jsonschema"

// scorePayload is the structured form judges must respond with.
type scorePayload struct {
	// Dimensions maps rubric dimension names to 0-100 scores.
	Dimensions map[string]float64 `json:"dimensions" jsonschema:"required,description=Per-dimension scores from 0 to 100"`
	Overall    float64            `json:"overall" jsonschema:"required,description=Weighted overall score from 0 to 100"`
	Reasoning  string             `json:"reasoning,omitempty" jsonschema:"description=Short justification for the scores"`
}

// reflector is configured for inline judge-facing schemas.
var reflector = jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	AllowAdditionalProperties:  true,
	DoNotReference:             true,
}

// payloadSchema returns the JSON schema judges are shown for the
// expected response shape.
func payloadSchema() *jsonschema.Schema {
	return reflector.Reflect(&scorePayload{})
}
