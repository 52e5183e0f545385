/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scoring

import "chainguard.dev/promptgauge/promptbuilder"

// directPrompt asks for a structured rubric score in a single call.
var directPrompt = promptbuilder.MustNewPrompt(`<task>
You are evaluating the quality of a prompt. Score it against each
dimension of the rubric below on a 0-100 scale, where 0 is unusable
and 100 is exemplary.
</task>

<prompt_under_evaluation>
{{content}}
</prompt_under_evaluation>

<rubric>
{{rubric}}
</rubric>

<instructions>
1. Score every rubric dimension from 0 to 100
2. Compute the overall score as the weighted combination of dimension scores
3. Keep reasoning to two or three sentences
</instructions>

<output_format>
Return your judgment as a JSON object matching this schema:
{{schema}}
</output_format>

Respond with only the JSON object, no additional text.`)

// analysisPrompt is the first step of the reasoning method: free-form
// analysis before any number is produced.
var analysisPrompt = promptbuilder.MustNewPrompt(`<task>
You are analyzing the quality of a prompt before scoring it. Do not
produce any scores yet.
</task>

<prompt_under_evaluation>
{{content}}
</prompt_under_evaluation>

<rubric>
{{rubric}}
</rubric>

<instructions>
1. For each rubric dimension, describe concretely how the prompt
   succeeds or falls short
2. Quote the specific passages your observations rest on
3. Note anything the prompt leaves ambiguous or unstated
</instructions>

Respond with your analysis as plain prose.`)

// reasonedScorePrompt is the second step: convert the analysis into a
// structured score.
var reasonedScorePrompt = promptbuilder.MustNewPrompt(`<task>
You previously analyzed a prompt against a rubric. Convert that
analysis into scores on a 0-100 scale, where 0 is unusable and 100 is
exemplary.
</task>

<prompt_under_evaluation>
{{content}}
</prompt_under_evaluation>

<rubric>
{{rubric}}
</rubric>

<analysis>
{{analysis}}
</analysis>

<instructions>
1. Score every rubric dimension from 0 to 100, grounded in the analysis
2. Compute the overall score as the weighted combination of dimension scores
3. Summarize the analysis in the reasoning field
</instructions>

<output_format>
Return your judgment as a JSON object matching this schema:
{{schema}}
</output_format>

Respond with only the JSON object, no additional text.`)
