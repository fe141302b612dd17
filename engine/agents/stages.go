package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/playbookforge/playbook-engine/engine/llm"
	"github.com/playbookforge/playbook-engine/engine/prompts"
	"github.com/playbookforge/playbook-engine/engine/state"
	"github.com/playbookforge/playbook-engine/engine/textparse"
)

// stageText runs one completion and reports whether usable text came back.
// Degraded calls report ok=false so the handler falls back; fatal calls
// surface a FatalError that stops the run.
func stageText(ctx context.Context, ex *Exec, systemPrompt, userPrompt string) (string, bool, error) {
	res := ex.Complete(ctx, systemPrompt, userPrompt)
	switch res.Outcome {
	case llm.OutcomeFatal:
		return "", false, &FatalError{Err: res.Err}
	case llm.OutcomeDegraded:
		return "", false, nil
	}
	return res.Text, true, nil
}

// decodeInto parses a model response into a typed section. Parse failures
// are logged, never fatal.
func decodeInto(ex *Exec, text string, v any) bool {
	if err := textparse.ParseInto(text, v); err != nil {
		ex.Log().Warn("response parse failed, using fallback", "error", err)
		return false
	}
	return true
}

// =============================================================================
// BUSINESS DISCOVERY
// =============================================================================

func handleBusinessDiscovery(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	system, user := prompts.BusinessDiscovery(rs.BusinessInput, rs.QuestionnaireData)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	profile := &state.BusinessProfile{}
	fallbackUsed := false
	if !ok || !decodeInto(ex, text, profile) || profile.CompanyName == "" {
		profile = fallbackBusinessProfile(rs.BusinessInput)
		fallbackUsed = true
	}

	// Downstream stages key off these three fields; blanks would poison
	// every later prompt.
	if profile.Industry == "" {
		profile.Industry = "general"
	}
	if profile.TargetAudience == "" {
		profile.TargetAudience = "business decision makers"
	}
	if profile.TonePreference == "" {
		profile.TonePreference = "professional"
	}

	rs.BusinessProfile = profile
	return map[string]any{
		"company_name":    profile.CompanyName,
		"industry":        profile.Industry,
		"target_audience": profile.TargetAudience,
		"fallback_used":   fallbackUsed,
	}, nil
}

// =============================================================================
// COMPETITOR RESEARCH
// =============================================================================

func handleCompetitorResearch(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	profile := rs.BusinessProfile
	if profile == nil {
		return nil, fmt.Errorf("competitor research requires a business profile")
	}

	system, user := prompts.CompetitorResearch(profile)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	analysis := &state.CompetitorAnalysis{}
	if !ok || !decodeInto(ex, text, analysis) || len(analysis.Competitors) == 0 {
		analysis = fallbackCompetitorAnalysis(profile)
	}

	rs.CompetitorAnalysis = analysis
	return map[string]any{
		"competitor_count": len(analysis.Competitors),
		"market_gaps":      len(analysis.MarketGaps),
		"fallback_used":    analysis.FallbackUsed,
	}, nil
}

// =============================================================================
// POSITIONING ANALYSIS
// =============================================================================

func handlePositioningAnalysis(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	profile := rs.BusinessProfile
	if profile == nil {
		return nil, fmt.Errorf("positioning analysis requires a business profile")
	}

	system, user := prompts.Positioning(profile, rs.CompetitorAnalysis)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	positioning := &state.Positioning{}
	fallbackUsed := false
	if !ok || !decodeInto(ex, text, positioning) || positioning.PositioningStatement == "" {
		positioning = fallbackPositioning(profile)
		fallbackUsed = true
	}

	rs.Positioning = positioning
	return map[string]any{
		"positioning_statement": positioning.PositioningStatement,
		"segment_count":         len(positioning.TargetSegments),
		"fallback_used":         fallbackUsed,
	}, nil
}

// =============================================================================
// TRUST BUILDING
// =============================================================================

func handleTrustBuilding(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	profile := rs.BusinessProfile
	if profile == nil {
		return nil, fmt.Errorf("trust building requires a business profile")
	}

	ind := LookupIndustry(profile.Industry)
	system, user := prompts.TrustBuilding(profile, ind.TrustFactors)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	trust := &state.TrustElements{}
	fallbackUsed := false
	if !ok || !decodeInto(ex, text, trust) || len(trust.TrustRequirements) == 0 {
		trust = fallbackTrustElements(profile)
		fallbackUsed = true
	}

	rs.TrustElements = trust
	return map[string]any{
		"trust_requirement_count": len(trust.TrustRequirements),
		"fallback_used":           fallbackUsed,
	}, nil
}

// =============================================================================
// EMOTIONAL INTELLIGENCE
// =============================================================================

func handleEmotionalIntelligence(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	profile := rs.BusinessProfile
	if profile == nil {
		return nil, fmt.Errorf("emotional intelligence requires a business profile")
	}

	ind := LookupIndustry(profile.Industry)
	hints := append(append([]string{}, ind.EmotionalTriggers...), profile.CustomerEmotions...)
	system, user := prompts.EmotionalIntelligence(profile, hints)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	emotional := &state.EmotionalMap{}
	fallbackUsed := false
	if !ok || !decodeInto(ex, text, emotional) || len(emotional.PainEmotions) == 0 {
		emotional = fallbackEmotionalMap(profile)
		fallbackUsed = true
	}
	if emotional.TransformationNarrative == "" {
		emotional.TransformationNarrative = profileTransformation(profile)
	}

	rs.EmotionalMap = emotional
	return map[string]any{
		"pain_emotion_count": len(emotional.PainEmotions),
		"fallback_used":      fallbackUsed,
	}, nil
}

// =============================================================================
// SOCIAL PROOF
// =============================================================================

func handleSocialProof(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error) {
	profile := rs.BusinessProfile
	if profile == nil {
		return nil, fmt.Errorf("social proof generation requires a business profile")
	}

	system, user := prompts.SocialProof(profile, rs.Positioning)
	text, ok, err := stageText(ctx, ex, system, user)
	if err != nil {
		return nil, err
	}

	proof := &state.SocialProof{}
	fallbackUsed := false
	if !ok || !decodeInto(ex, text, proof) || len(proof.CustomerMetrics) == 0 {
		proof = fallbackSocialProof(profile)
		fallbackUsed = true
	}

	rs.SocialProof = proof
	return map[string]any{
		"metric_count":  len(proof.CustomerMetrics),
		"fallback_used": fallbackUsed,
	}, nil
}

// splitPosts splits a "---" separated post blob into individual posts.
func splitPosts(blob string) []string {
	parts := strings.Split(blob, "---")
	posts := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			posts = append(posts, trimmed)
		}
	}
	return posts
}

// parseEmailTemplate parses a "Subject: ...\nBody: ..." blob.
func parseEmailTemplate(raw string) state.EmailTemplate {
	var tmpl state.EmailTemplate
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Subject:"):
			tmpl.Subject = strings.TrimSpace(strings.TrimPrefix(trimmed, "Subject:"))
		case strings.HasPrefix(trimmed, "Body:"):
			tmpl.Opening = strings.TrimSpace(strings.TrimPrefix(trimmed, "Body:"))
		case tmpl.Opening != "" && trimmed != "":
			tmpl.Opening += " " + trimmed
		}
	}
	if tmpl.Subject == "" && tmpl.Opening == "" {
		tmpl.Opening = strings.TrimSpace(raw)
	}
	return tmpl
}
