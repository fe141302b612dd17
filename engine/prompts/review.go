package prompts

import (
	"fmt"
	"strings"

	"github.com/playbookforge/playbook-engine/engine/state"
)

// =============================================================================
// QUALITY REVIEW
// =============================================================================

// QualityReview builds the reviewer prompt pair. The reviewer scores ten
// dimensions on a 1-10 scale against a premium bar; 8.0 is "good enough to
// ship", not "average".
func QualityReview(rs *state.RunState) (string, string) {
	system := "You are an exacting marketing quality reviewer. You hold copy to the standard of " +
		"top-tier brand agencies. Score honestly: most first drafts earn 6-7, not 9. " + jsonOnlyInstruction

	var b strings.Builder
	b.WriteString("Review this marketing playbook draft against a premium quality bar.\n\n")
	if rs.Messaging != nil {
		fmt.Fprintf(&b, "Messaging framework:\n%s\n\n", formatJSON(rs.Messaging))
	}
	if rs.Content != nil {
		fmt.Fprintf(&b, "Content assets:\n%s\n\n", formatJSON(rs.Content))
	}
	if rs.Positioning != nil {
		fmt.Fprintf(&b, "Positioning:\n%s\n\n", formatJSON(rs.Positioning))
	}

	fmt.Fprintf(&b, `Score each dimension 1-10:
%s

Return JSON with exactly these fields:
{
  "dimension_scores": {%s},
  "overall_quality_score": 0.0,
  "strengths": ["..."],
  "improvement_areas": ["..."],
  "critical_gaps": ["..."],
  "approval_status": "approved|needs_refinement"
}

overall_quality_score must be the average of the dimension scores.`,
		formatList(state.QualityDimensions), dimensionsPlaceholder())

	return system, b.String()
}

func dimensionsPlaceholder() string {
	parts := make([]string, len(state.QualityDimensions))
	for i, d := range state.QualityDimensions {
		parts[i] = fmt.Sprintf("%q: 0.0", d)
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// CRITIQUE
// =============================================================================

// CritiquePrompt builds the critique agent prompt pair. It runs only when
// the reviewer scored below threshold, so the critique must be concrete
// enough to drive a better regeneration pass.
func CritiquePrompt(rs *state.RunState) (string, string) {
	system := "You are a ruthless creative director doing a teardown of marketing copy that " +
		"failed review. Every criticism must name the exact weak line and say specifically how to " +
		"fix it. Vague advice is useless. " + jsonOnlyInstruction

	var b strings.Builder
	b.WriteString("This playbook scored below the quality bar. Tear it down and produce fix directives.\n\n")

	if rs.QualityReview != nil {
		fmt.Fprintf(&b, "Review (overall %.1f, threshold %.1f):\n%s\n\n",
			rs.QualityReview.OverallScore, rs.QualityThreshold, formatJSON(rs.QualityReview))
	}
	if rs.Messaging != nil {
		fmt.Fprintf(&b, "Messaging framework:\n%s\n\n", formatJSON(rs.Messaging))
	}
	if rs.Content != nil {
		fmt.Fprintf(&b, "Content assets:\n%s\n\n", formatJSON(rs.Content))
	}

	b.WriteString(`Return JSON with exactly these fields:
{
  "messaging_weaknesses": ["..."],
  "content_gaps": ["..."],
  "positioning_issues": ["..."],
  "messaging_refinements": ["..."],
  "content_enhancements": ["..."],
  "positioning_adjustments": ["..."],
  "priority_fixes": ["..."],
  "specific_examples": {"weak line": "stronger rewrite"}
}`)

	return system, b.String()
}

// =============================================================================
// META REVIEW
// =============================================================================

// MetaReviewPrompt builds the meta reviewer prompt pair. The meta reviewer
// judges whether another reflection cycle is likely to help, and may stop
// the loop early by setting continue_reflection false.
func MetaReviewPrompt(rs *state.RunState) (string, string) {
	system := "You are a process reviewer supervising an iterative refinement loop. You judge " +
		"whether the critique is actionable and whether another revision pass is likely to raise " +
		"quality, or whether the loop has hit diminishing returns. " + jsonOnlyInstruction

	var b strings.Builder
	fmt.Fprintf(&b, "Refinement cycle %d of %d just completed.\n\n", rs.ReflectionCycle, rs.MaxReflectionCycles)

	if rs.QualityReview != nil {
		fmt.Fprintf(&b, "Latest quality score: %.1f (threshold %.1f)\n\n", rs.QualityReview.OverallScore, rs.QualityThreshold)
	}
	if rs.LastCritique != nil {
		fmt.Fprintf(&b, "Latest critique:\n%s\n\n", formatJSON(rs.LastCritique))
	}
	if len(rs.ReflectionHistory) > 1 {
		fmt.Fprintf(&b, "Prior cycles: %d. Score trajectory matters: if critiques are repeating the same points, the loop is stuck.\n\n",
			len(rs.ReflectionHistory)-1)
	}

	b.WriteString(`Return JSON with exactly these fields:
{
  "critique_quality": "...",
  "progress_evaluation": "...",
  "continue_reflection": true,
  "focus_areas": ["..."],
  "quality_prediction": "...",
  "remaining_gaps": ["..."]
}`)

	return system, b.String()
}
