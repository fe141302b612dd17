package agents

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbookforge/playbook-engine/engine/config"
	"github.com/playbookforge/playbook-engine/engine/llm"
	"github.com/playbookforge/playbook-engine/engine/logging"
	"github.com/playbookforge/playbook-engine/engine/state"
)

func scriptedCaller(responses ...llm.ScriptedResponse) *llm.Caller {
	return llm.NewCaller(llm.NewScriptedProvider(responses...), 0, logging.NewNop())
}

func discoveredState() *state.RunState {
	rs := state.NewRunState("run-1", "AI payroll for startups", nil, 8.0, 2)
	rs.BusinessProfile = &state.BusinessProfile{
		CompanyName:    "PayFlow",
		Industry:       "fintech",
		TargetAudience: "startup founders",
		PainPoints:     []string{"manual payroll errors"},
		UniqueFeatures: []string{"automated filings"},
		Competitors:    []string{"Gusto"},
	}
	return rs
}

func buildAgent(t *testing.T, stage string, caller *llm.Caller) *Agent {
	t.Helper()
	cfg := config.DefaultPipeline().GetStage(stage)
	require.NotNil(t, cfg)
	handler, err := HandlerFor(stage)
	require.NoError(t, err)
	agent, err := NewAgent(cfg, logging.NewNop(), caller, handler)
	require.NoError(t, err)
	return agent
}

// ============================================================================
// Industry lookup
// ============================================================================

func TestLookupIndustry(t *testing.T) {
	assert.Equal(t, industryProfiles["fintech"], LookupIndustry("fintech"))
	assert.Equal(t, industryProfiles["fintech"], LookupIndustry("Financial Services"))
	assert.Equal(t, industryProfiles["healthcare"], LookupIndustry("telehealth platform"))
	assert.Equal(t, industryProfiles["hr_tech"], LookupIndustry("Human Resources"))
	assert.Equal(t, industryProfiles["general"], LookupIndustry("logistics"))
	assert.Equal(t, industryProfiles["general"], LookupIndustry(""))
}

// ============================================================================
// Fallback completeness
// ============================================================================

func TestFallbacks_AreStructurallyComplete(t *testing.T) {
	profile := discoveredState().BusinessProfile

	analysis := fallbackCompetitorAnalysis(profile)
	assert.NotEmpty(t, analysis.Competitors)
	assert.True(t, analysis.FallbackUsed)

	trust := fallbackTrustElements(profile)
	assert.NotEmpty(t, trust.TrustRequirements)
	assert.NotEmpty(t, trust.ComplianceFactors)

	emotional := fallbackEmotionalMap(profile)
	assert.NotEmpty(t, emotional.PainEmotions)
	assert.NotEmpty(t, emotional.AspirationEmotions)
	assert.NotEmpty(t, emotional.TransformationNarrative)

	proof := fallbackSocialProof(profile)
	assert.NotEmpty(t, proof.CustomerMetrics)
	assert.NotEmpty(t, proof.OutcomeTestimonials)

	review := fallbackQualityReview()
	assert.Equal(t, "needs_refinement", review.ApprovalStatus)
	assert.Less(t, review.OverallScore, state.MinQualityThreshold)
	assert.Len(t, review.DimensionScores, len(state.QualityDimensions))
}

func TestFallbackCompetitors_NoKnownCompetitors(t *testing.T) {
	profile := &state.BusinessProfile{Industry: "general", TargetAudience: "teams"}
	analysis := fallbackCompetitorAnalysis(profile)
	require.NotEmpty(t, analysis.Competitors)
	assert.NotEmpty(t, analysis.Competitors[0].Name)
}

// ============================================================================
// Discovery
// ============================================================================

func TestBusinessDiscovery_ParsesProfile(t *testing.T) {
	caller := scriptedCaller(llm.ScriptedResponse{Text: `{
		"company_name": "PayFlow",
		"industry": "fintech",
		"target_audience": "startup founders",
		"pain_points": ["manual payroll"],
		"unique_features": ["auto filings"],
		"competitors": ["Gusto"],
		"tone_preference": "confident",
		"goals": ["grow"]
	}`})
	agent := buildAgent(t, config.StageBusinessDiscovery, caller)
	rs := state.NewRunState("r", "we do payroll", nil, 8.0, 2)

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageCompetitorResearch, next)
	require.NotNil(t, rs.BusinessProfile)
	assert.Equal(t, "PayFlow", rs.BusinessProfile.CompanyName)
	assert.Equal(t, state.StageStatusCompleted, rs.StageStatuses[config.StageBusinessDiscovery])
}

func TestBusinessDiscovery_GarbageResponseFallsBack(t *testing.T) {
	caller := scriptedCaller(llm.ScriptedResponse{Text: "I cannot answer that"})
	agent := buildAgent(t, config.StageBusinessDiscovery, caller)
	rs := state.NewRunState("r", "we do payroll", nil, 8.0, 2)

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageCompetitorResearch, next)
	require.NotNil(t, rs.BusinessProfile)
	assert.NotEmpty(t, rs.BusinessProfile.CompanyName)
	assert.NotEmpty(t, rs.BusinessProfile.Industry)
}

func TestBusinessDiscovery_FatalOnCancelledContext(t *testing.T) {
	caller := scriptedCaller(llm.ScriptedResponse{Text: "unused"})
	agent := buildAgent(t, config.StageBusinessDiscovery, caller)
	rs := state.NewRunState("r", "input", nil, 8.0, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agent.Process(ctx, rs)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, state.StageStatusFailed, rs.StageStatuses[config.StageBusinessDiscovery])
}

// ============================================================================
// Quality reviewer routing
// ============================================================================

func reviewResponse(score float64) llm.ScriptedResponse {
	lit := fmt.Sprintf("%.1f", score)
	return llm.ScriptedResponse{Text: `{
		"dimension_scores": {"clarity": ` + lit + `, "persuasiveness": ` + lit + `},
		"overall_quality_score": "` + lit + `",
		"strengths": ["clear"],
		"improvement_areas": [],
		"critical_gaps": [],
		"approval_status": ""
	}`}
}

func TestQualityReviewer_HighScoreRoutesToAssembly(t *testing.T) {
	caller := scriptedCaller(reviewResponse(9.2))
	agent := buildAgent(t, config.StageQualityReviewer, caller)
	rs := discoveredState()

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageFinalAssembly, next)
	assert.False(t, rs.NeedsRefinement)
	assert.InDelta(t, 9.2, rs.QualityReview.OverallScore, 0.001)
	assert.Equal(t, "approved", rs.QualityReview.ApprovalStatus)
}

func TestQualityReviewer_LowScoreRoutesToCritique(t *testing.T) {
	caller := scriptedCaller(reviewResponse(6.5))
	agent := buildAgent(t, config.StageQualityReviewer, caller)
	rs := discoveredState()

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageCritiqueAgent, next)
	assert.True(t, rs.NeedsRefinement)
	assert.Equal(t, "needs_refinement", rs.QualityReview.ApprovalStatus)
}

func TestQualityReviewer_CyclesExhaustedRoutesToAssembly(t *testing.T) {
	caller := scriptedCaller(reviewResponse(6.0))
	agent := buildAgent(t, config.StageQualityReviewer, caller)
	rs := discoveredState()
	rs.ReflectionCycle = 2

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageFinalAssembly, next)
}

func TestQualityReviewer_MetaStopOverridesLowScore(t *testing.T) {
	caller := scriptedCaller(reviewResponse(6.0))
	agent := buildAgent(t, config.StageQualityReviewer, caller)
	rs := discoveredState()
	rs.ReflectionCycle = 1
	rs.MetaReview = &state.MetaReview{ContinueReflection: false}

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageFinalAssembly, next)
	assert.False(t, rs.NeedsRefinement)
}

func TestQualityReviewer_DegradedFallsBackBelowThreshold(t *testing.T) {
	// Two failures: initial call plus the stage-level retry.
	caller := scriptedCaller(
		llm.ScriptedResponse{Err: assert.AnError},
		llm.ScriptedResponse{Err: assert.AnError},
	)
	agent := buildAgent(t, config.StageQualityReviewer, caller)
	rs := discoveredState()

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	// Fallback review scores 6.0, below threshold, so reflection starts.
	assert.Equal(t, config.StageCritiqueAgent, next)
	assert.True(t, rs.NeedsRefinement)
}

// ============================================================================
// Messaging generator
// ============================================================================

func TestMessagingGenerator_PerStepFallback(t *testing.T) {
	caller := scriptedCaller(
		llm.ScriptedResponse{Text: `{"value_proposition": "PayFlow runs payroll itself."}`},
		llm.ScriptedResponse{Text: "not json at all"},
		llm.ScriptedResponse{Text: `{"tagline_options": ["Payroll, solved", "Zero errors", "Founders first", "Set and forget", "Money moves right"]}`},
		llm.ScriptedResponse{Text: `{"differentiators": ["only fintech-native payroll", "setup in hours", "audit-proof filings"]}`},
	)
	agent := buildAgent(t, config.StageMessagingGenerator, caller)
	rs := discoveredState()

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageContentCreator, next)

	m := rs.Messaging
	require.NotNil(t, m)
	assert.Equal(t, "PayFlow runs payroll itself.", m.ValueProposition)
	// Step 2 failed to parse, so the pitch comes from the fallback.
	assert.Contains(t, m.ElevatorPitch, "PayFlow")
	assert.Len(t, m.TaglineOptions, 5)
	assert.Len(t, m.Differentiators, 3)
	assert.NotEmpty(t, m.ToneGuidelines.Style)
	assert.NotEmpty(t, m.KeyMessages)
	assert.Equal(t, 1, rs.GeneratorPasses)
}

// ============================================================================
// Content creator
// ============================================================================

func TestContentCreator_ParsesAllFormats(t *testing.T) {
	caller := scriptedCaller(
		llm.ScriptedResponse{Text: `{"website_headlines": ["H1 | S1", "H2 | S2", "H3 | S3"]}`},
		llm.ScriptedResponse{Text: `{"linkedin_posts": "first post body\n---\nsecond post body"}`},
		llm.ScriptedResponse{Text: `{"email_templates": ["Subject: Faster payroll\nBody: Hi there, quick thought.", "Subject: One question\nBody: Saw your team is growing."]}`},
		llm.ScriptedResponse{Text: `{"sales_one_liners": ["a", "b", "c", "d", "e"]}`},
	)
	agent := buildAgent(t, config.StageContentCreator, caller)
	rs := discoveredState()
	rs.Messaging = &state.MessagingFramework{ValueProposition: "vp"}

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageQualityReviewer, next)

	c := rs.Content
	require.NotNil(t, c)
	assert.Len(t, c.WebsiteHeadlines, 3)
	assert.Equal(t, []string{"first post body", "second post body"}, c.LinkedInPosts)
	require.Len(t, c.EmailTemplates, 2)
	assert.Equal(t, "Faster payroll", c.EmailTemplates[0].Subject)
	assert.Equal(t, "Hi there, quick thought.", c.EmailTemplates[0].Opening)
	assert.Len(t, c.SalesOneLiners, 5)
}

func TestParseEmailTemplate_UnstructuredBlob(t *testing.T) {
	tmpl := parseEmailTemplate("just some text without markers")
	assert.Empty(t, tmpl.Subject)
	assert.Equal(t, "just some text without markers", tmpl.Opening)
}

// ============================================================================
// Reflection stages
// ============================================================================

func TestCritique_StoresDirectives(t *testing.T) {
	caller := scriptedCaller(llm.ScriptedResponse{Text: `{
		"messaging_weaknesses": ["generic"],
		"content_gaps": [],
		"positioning_issues": [],
		"messaging_refinements": ["quantify outcomes"],
		"content_enhancements": ["stronger headlines"],
		"positioning_adjustments": [],
		"priority_fixes": ["rewrite value prop"],
		"specific_examples": {"weak": "strong"}
	}`})
	agent := buildAgent(t, config.StageCritiqueAgent, caller)
	rs := discoveredState()

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageRefinementAgent, next)
	require.NotNil(t, rs.LastCritique)
	assert.Equal(t, []string{"rewrite value prop", "quantify outcomes", "stronger headlines"}, rs.LastCritique.Directives())
}

func TestRefinement_AdvancesCycleWithoutLLM(t *testing.T) {
	agent := buildAgent(t, config.StageRefinementAgent, scriptedCaller())
	rs := discoveredState()
	rs.LastCritique = &state.Critique{PriorityFixes: []string{"fix it"}}

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageMetaReviewer, next)
	assert.Equal(t, 1, rs.ReflectionCycle)
	require.Len(t, rs.ReflectionHistory, 1)
	assert.Equal(t, 0, rs.LLMCalls)
}

func TestMetaReviewer_StopClearsRefinement(t *testing.T) {
	caller := scriptedCaller(llm.ScriptedResponse{Text: `{
		"critique_quality": "repetitive",
		"progress_evaluation": "stalled",
		"continue_reflection": false,
		"focus_areas": [],
		"quality_prediction": "no further gain",
		"remaining_gaps": []
	}`})
	agent := buildAgent(t, config.StageMetaReviewer, caller)
	rs := discoveredState()
	rs.NeedsRefinement = true

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageMessagingGenerator, next)
	assert.False(t, rs.NeedsRefinement)
	require.NotNil(t, rs.MetaReview)
	assert.False(t, rs.MetaReview.ContinueReflection)
}

// ============================================================================
// Final assembly
// ============================================================================

func TestFinalAssembly_FillsMissingSections(t *testing.T) {
	agent := buildAgent(t, config.StageFinalAssembly, scriptedCaller())
	rs := discoveredState()
	// Only the profile exists; everything else must be filled.

	next, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, config.StageEnd, next)

	pb := rs.Final
	require.NotNil(t, pb)
	assert.NotNil(t, pb.CompetitorAnalysis)
	assert.NotNil(t, pb.Positioning)
	assert.NotNil(t, pb.TrustElements)
	assert.NotNil(t, pb.EmotionalMap)
	assert.NotNil(t, pb.SocialProof)
	assert.NotNil(t, pb.Messaging)
	assert.NotNil(t, pb.Content)
	assert.NotNil(t, pb.QualityReview)
	assert.Equal(t, "completed", pb.Status)
	assert.Equal(t, 8.0, pb.Reflection.QualityThreshold)
}

func TestFinalAssembly_ReflectionMetadata(t *testing.T) {
	agent := buildAgent(t, config.StageFinalAssembly, scriptedCaller())
	rs := discoveredState()
	rs.FirstPassScore = 6.5
	rs.ApplyRefinement(&state.Critique{PriorityFixes: []string{"fix"}})
	rs.QualityReview = &state.QualityReview{OverallScore: 8.4}

	_, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)

	meta := rs.Final.Reflection
	assert.Equal(t, 1, meta.TotalReflectionCycles)
	assert.InDelta(t, 8.4, meta.FinalQualityScore, 0.001)
	assert.InDelta(t, 6.5, meta.FirstPassScore, 0.001)
	assert.True(t, meta.ImprovementAchieved)
	assert.Equal(t, []string{"fix"}, meta.RefinementAreasAddressed)
	require.Len(t, meta.ReflectionHistory, 1)
}

func TestFinalAssembly_NoImprovementWithoutReflection(t *testing.T) {
	agent := buildAgent(t, config.StageFinalAssembly, scriptedCaller())
	rs := discoveredState()
	rs.FirstPassScore = 9.2
	rs.QualityReview = &state.QualityReview{OverallScore: 9.2}

	_, err := agent.Process(context.Background(), rs)
	require.NoError(t, err)

	// A run that passed its first review never improved on anything.
	assert.False(t, rs.Final.Reflection.ImprovementAchieved)
	assert.Empty(t, rs.Final.Reflection.RefinementAreasAddressed)
}

// ============================================================================
// Output validation
// ============================================================================

func TestValidateOutput_MissingRequiredField(t *testing.T) {
	cfg := &config.StageConfig{
		Name:                 "x",
		RequiredOutputFields: []string{"needed"},
		DefaultNext:          "end",
	}
	agent, err := NewAgent(cfg, logging.NewNop(), nil, func(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
		return map[string]any{"other": 1}, nil
	})
	require.NoError(t, err)

	rs := state.NewRunState("r", "input", nil, 8.0, 2)
	_, err = agent.Process(context.Background(), rs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field")
}
