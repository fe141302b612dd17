package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/playbookforge/playbook-engine/engine/prompts"
	"github.com/playbookforge/playbook-engine/engine/state"
	"github.com/playbookforge/playbook-engine/engine/textparse"
	"github.com/playbookforge/playbook-engine/engine/typeutil"
)

// =============================================================================
// QUALITY REVIEWER
// =============================================================================

// handleQualityReviewer scores the draft and owns the reflection decision.
// Its summary carries continue_reflection, the only routing condition in
// the pipeline.
func handleQualityReviewer(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	system, user := prompts.QualityReview(rs)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	var review *state.QualityReview
	fallbackUsed := false
	if ok {
		review = decodeQualityReview(ex, text)
	}
	if review == nil {
		review = fallbackQualityReview()
		fallbackUsed = true
	}

	if rs.QualityReview == nil {
		rs.FirstPassScore = review.OverallScore
	}
	rs.QualityReview = review
	rs.NeedsRefinement = review.OverallScore < rs.QualityThreshold
	if review.ApprovalStatus == "" {
		if rs.NeedsRefinement {
			review.ApprovalStatus = "needs_refinement"
		} else {
			review.ApprovalStatus = "approved"
		}
	}

	// An earlier meta review may have called the loop stuck; honor that
	// over the raw score.
	if rs.MetaReview != nil && !rs.MetaReview.ContinueReflection {
		rs.NeedsRefinement = false
	}

	continueReflection := rs.ShouldContinueReflection()
	ex.Log().Info("quality_review_scored",
		"overall_score", review.OverallScore,
		"threshold", rs.QualityThreshold,
		"continue_reflection", continueReflection,
	)

	return map[string]any{
		"overall_quality_score": review.OverallScore,
		"approval_status":       review.ApprovalStatus,
		"continue_reflection":   continueReflection,
		"fallback_used":         fallbackUsed,
	}, nil
}

// decodeQualityReview parses the reviewer response. Models frequently quote
// scores as strings ("8.5") or fractions ("8.5/10"); Score handles both.
func decodeQualityReview(ex *Exec, text string) *state.QualityReview {
	payload, err := textparse.ParseStructuredResponse(text)
	if err != nil {
		ex.Log().Warn("review parse failed, using fallback", "error", err)
		return nil
	}

	scores := make(map[string]float64, len(state.QualityDimensions))
	rawScores, _ := typeutil.SafeMapStringAny(payload["dimension_scores"])
	for _, dim := range state.QualityDimensions {
		if value, ok := typeutil.Score(rawScores[dim]); ok {
			scores[dim] = value
		}
	}
	if len(scores) == 0 {
		ex.Log().Warn("review contained no usable dimension scores, using fallback")
		return nil
	}

	review := &state.QualityReview{
		DimensionScores:  scores,
		Strengths:        typeutil.SafeStringSliceDefault(payload["strengths"], nil),
		ImprovementAreas: typeutil.SafeStringSliceDefault(payload["improvement_areas"], nil),
		CriticalGaps:     typeutil.SafeStringSliceDefault(payload["critical_gaps"], nil),
		ApprovalStatus:   typeutil.SafeStringDefault(payload["approval_status"], ""),
	}

	if overall, ok := typeutil.Score(payload["overall_quality_score"]); ok && overall > 0 {
		review.OverallScore = overall
	} else {
		review.OverallScore = review.AverageScore()
	}
	return review
}

// =============================================================================
// CRITIQUE
// =============================================================================

func handleCritique(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	system, user := prompts.CritiquePrompt(rs)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	critique := &state.Critique{}
	fallbackUsed := false
	if !ok || !decodeInto(ex, text, critique) || len(critique.Directives()) == 0 {
		critique = fallbackCritique()
		fallbackUsed = true
	}

	rs.LastCritique = critique
	return map[string]any{
		"priority_fix_count": len(critique.PriorityFixes),
		"directive_count":    len(critique.Directives()),
		"fallback_used":      fallbackUsed,
	}, nil
}

// =============================================================================
// REFINEMENT
// =============================================================================

// handleRefinement is a pure state transform: it folds the latest critique
// into the run state and advances the reflection cycle. No model call.
func handleRefinement(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	critique := rs.LastCritique
	if critique == nil {
		critique = fallbackCritique()
	}

	rs.ApplyRefinement(critique)
	ex.Log().Info("refinement_applied",
		"reflection_cycle", rs.ReflectionCycle,
		"directive_count", len(rs.CritiquePoints),
	)

	return map[string]any{
		"reflection_cycle": rs.ReflectionCycle,
		"directive_count":  len(rs.CritiquePoints),
	}, nil
}

// =============================================================================
// META REVIEWER
// =============================================================================

func handleMetaReviewer(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	system, user := prompts.MetaReviewPrompt(rs)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	meta := &state.MetaReview{ContinueReflection: true}
	fallbackUsed := false
	if !ok || !decodeInto(ex, text, meta) {
		// Without a meta verdict the loop keeps its normal bounds.
		meta = &state.MetaReview{
			ContinueReflection: true,
			ProgressEvaluation: "meta review unavailable, loop bounded by cycle limit",
		}
		fallbackUsed = true
	}

	rs.MetaReview = meta
	if !meta.ContinueReflection {
		rs.NeedsRefinement = false
		ex.Log().Info("meta_review_stopped_reflection", "cycle", rs.ReflectionCycle)
	}

	return map[string]any{
		"continue_reflection": meta.ContinueReflection,
		"focus_area_count":    len(meta.FocusAreas),
		"fallback_used":       fallbackUsed,
	}, nil
}

// =============================================================================
// FINAL ASSEMBLY
// =============================================================================

// handleFinalAssembly composes the playbook from every section. Sections a
// degraded or budget-cut run never produced are filled from fallbacks so
// the output is always structurally complete.
func handleFinalAssembly(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	profile := rs.BusinessProfile
	if profile == nil {
		profile = fallbackBusinessProfile(rs.BusinessInput)
		rs.BusinessProfile = profile
	}
	if rs.CompetitorAnalysis == nil {
		rs.CompetitorAnalysis = fallbackCompetitorAnalysis(profile)
	}
	if rs.Positioning == nil {
		rs.Positioning = fallbackPositioning(profile)
	}
	if rs.TrustElements == nil {
		rs.TrustElements = fallbackTrustElements(profile)
	}
	if rs.EmotionalMap == nil {
		rs.EmotionalMap = fallbackEmotionalMap(profile)
	}
	if rs.SocialProof == nil {
		rs.SocialProof = fallbackSocialProof(profile)
	}
	if rs.Messaging == nil {
		rs.Messaging = &state.MessagingFramework{
			ValueProposition: fallbackValueProposition(profile),
			ElevatorPitch:    fallbackElevatorPitch(profile),
			TaglineOptions:   fallbackTaglines(profile),
			Differentiators:  fallbackDifferentiators(profile),
			ToneGuidelines:   defaultToneGuidelines(),
			KeyMessages:      defaultKeyMessages(profile),
		}
	}
	if rs.Content == nil {
		rs.Content = fallbackContentAssets(profile, rs.Messaging)
	}
	if rs.QualityReview == nil {
		rs.QualityReview = fallbackQualityReview()
	}

	finalScore := rs.OverallScore()
	playbook := &state.Playbook{
		RunID:              rs.RunID,
		GeneratedAt:        time.Now().UTC(),
		BusinessInput:      rs.BusinessInput,
		BusinessProfile:    rs.BusinessProfile,
		CompetitorAnalysis: rs.CompetitorAnalysis,
		Positioning:        rs.Positioning,
		TrustElements:      rs.TrustElements,
		EmotionalMap:       rs.EmotionalMap,
		SocialProof:        rs.SocialProof,
		Messaging:          rs.Messaging,
		Content:            rs.Content,
		QualityReview:      rs.QualityReview,
		Reflection: state.ReflectionMetadata{
			TotalReflectionCycles:    rs.ReflectionCycle,
			FinalQualityScore:        finalScore,
			FirstPassScore:           rs.FirstPassScore,
			QualityThreshold:         rs.QualityThreshold,
			ReflectionHistory:        rs.ReflectionHistory,
			ImprovementAchieved:      finalScore > rs.FirstPassScore,
			RefinementAreasAddressed: rs.RefinementAreasAddressed(),
			MetaReview:               rs.MetaReview,
			CritiquePoints:           rs.CritiquePoints,
		},
		Status: "completed",
	}

	rs.Final = playbook
	return map[string]any{
		"status":            "assembled",
		"final_score":       finalScore,
		"reflection_cycles": rs.ReflectionCycle,
	}, nil
}

// =============================================================================
// REGISTRY
// =============================================================================

var stageHandlers = map[string]Handler{
	"business_discovery":     handleBusinessDiscovery,
	"competitor_research":    handleCompetitorResearch,
	"positioning_analysis":   handlePositioningAnalysis,
	"trust_building":         handleTrustBuilding,
	"emotional_intelligence": handleEmotionalIntelligence,
	"social_proof_generator": handleSocialProof,
	"messaging_generator":    handleMessagingGenerator,
	"content_creator":        handleContentCreator,
	"quality_reviewer":       handleQualityReviewer,
	"critique_agent":         handleCritique,
	"refinement_agent":       handleRefinement,
	"meta_reviewer":          handleMetaReviewer,
	"final_assembly":         handleFinalAssembly,
}

// HandlerFor returns the built-in handler for a stage name.
func HandlerFor(stage string) (Handler, error) {
	h, ok := stageHandlers[stage]
	if !ok {
		return nil, fmt.Errorf("no handler registered for stage '%s'", stage)
	}
	return h, nil
}
