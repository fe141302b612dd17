package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/playbookforge/playbook-engine/engine/state"
)

func sampleState() *state.RunState {
	rs := state.NewRunState("r", "AI payroll for startups", nil, 8.0, 2)
	rs.BusinessProfile = &state.BusinessProfile{
		CompanyName:    "PayFlow",
		Industry:       "fintech",
		TargetAudience: "startup founders",
		PainPoints:     []string{"manual payroll errors"},
		Competitors:    []string{"Gusto", "Rippling"},
	}
	return rs
}

// ============================================================================
// Stage prompt content
// ============================================================================

func TestBusinessDiscovery_IncludesQuestionnaire(t *testing.T) {
	_, user := BusinessDiscovery("we build payroll software", map[string]any{"budget": "10k"})
	assert.Contains(t, user, "we build payroll software")
	assert.Contains(t, user, "questionnaire")
	assert.Contains(t, user, "budget")
	assert.Contains(t, user, `"company_name"`)
}

func TestBusinessDiscovery_NoQuestionnaire(t *testing.T) {
	_, user := BusinessDiscovery("desc", nil)
	assert.NotContains(t, user, "questionnaire")
}

func TestCompetitorResearch_ListsCompetitors(t *testing.T) {
	rs := sampleState()
	_, user := CompetitorResearch(rs.BusinessProfile)
	assert.Contains(t, user, "Gusto")
	assert.Contains(t, user, "Rippling")
	assert.Contains(t, user, `"competitor_analysis"`)
	assert.Contains(t, user, `"market_gaps"`)
}

func TestQualityReview_NamesAllDimensions(t *testing.T) {
	rs := sampleState()
	_, user := QualityReview(rs)
	for _, dim := range state.QualityDimensions {
		assert.Contains(t, user, dim)
	}
	assert.Contains(t, user, `"overall_quality_score"`)
}

// ============================================================================
// Revision context
// ============================================================================

func TestRevisionContext_EmptyOnFirstPass(t *testing.T) {
	rs := sampleState()
	assert.Empty(t, RevisionContext(rs))
}

func TestRevisionContext_IncludesCritiquePoints(t *testing.T) {
	rs := sampleState()
	rs.ApplyRefinement(&state.Critique{
		PriorityFixes:        []string{"quantify the value proposition"},
		MessagingRefinements: []string{"drop the jargon"},
	})

	ctx := RevisionContext(rs)
	assert.Contains(t, ctx, "revision pass 1")
	assert.Contains(t, ctx, "quantify the value proposition")
	assert.Contains(t, ctx, "drop the jargon")
}

func TestRevisionContext_FlowsIntoGenerationPrompts(t *testing.T) {
	rs := sampleState()
	rs.ApplyRefinement(&state.Critique{PriorityFixes: []string{"fix the headline"}})

	_, vp := ValueProposition(rs)
	assert.Contains(t, vp, "fix the headline")

	_, headlines := WebsiteHeadlines(rs)
	assert.Contains(t, headlines, "fix the headline")
}

func TestRevisionContext_IncludesMetaReviewFocus(t *testing.T) {
	rs := sampleState()
	rs.ApplyRefinement(&state.Critique{PriorityFixes: []string{"fix A"}})
	rs.MetaReview = &state.MetaReview{FocusAreas: []string{"emotional appeal"}}

	ctx := RevisionContext(rs)
	assert.Contains(t, ctx, "emotional appeal")
}

// ============================================================================
// Step prompts
// ============================================================================

func TestMessagingSteps_ChainValueProposition(t *testing.T) {
	rs := sampleState()
	_, pitch := ElevatorPitch(rs, "the only payroll that runs itself")
	assert.Contains(t, pitch, "the only payroll that runs itself")

	_, taglines := Taglines(rs, "vp text")
	assert.Contains(t, taglines, "5 tagline")
}

func TestContentSteps_PinWireFormats(t *testing.T) {
	rs := sampleState()

	_, posts := LinkedInPosts(rs)
	assert.Contains(t, posts, `"---"`)

	_, emails := EmailTemplates(rs)
	assert.Contains(t, emails, "Subject:")
	assert.Contains(t, emails, "Body:")
}

// ============================================================================
// Helpers
// ============================================================================

func TestFormatList(t *testing.T) {
	assert.Equal(t, "(none provided)", formatList(nil))
	out := formatList([]string{"a", "b"})
	assert.True(t, strings.HasPrefix(out, "- a"))
	assert.Contains(t, out, "- b")
}
