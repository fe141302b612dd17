// Package prompts builds the system and user prompts for every pipeline
// stage. Each builder returns a prompt pair; the user prompt always pins the
// exact JSON shape the stage decoder expects.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/playbookforge/playbook-engine/engine/state"
)

const jsonOnlyInstruction = "Respond with valid JSON only. No prose before or after the JSON object."

func formatList(items []string) string {
	if len(items) == 0 {
		return "(none provided)"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// =============================================================================
// DISCOVERY
// =============================================================================

// BusinessDiscovery builds the discovery prompt pair. Questionnaire answers,
// when present, are appended so the model grounds the profile in what the
// customer actually said instead of inferring everything from the free-text
// description.
func BusinessDiscovery(businessInput string, questionnaire map[string]any) (string, string) {
	system := "You are a business discovery analyst. You extract structured business profiles " +
		"from unstructured founder descriptions. Be specific and concrete; never invent facts " +
		"that contradict the input. " + jsonOnlyInstruction

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this business description and extract a structured profile:\n\n%s\n", businessInput)

	if len(questionnaire) > 0 {
		b.WriteString("\nThe customer also answered an intake questionnaire. Treat these answers as authoritative:\n")
		b.WriteString(formatJSON(questionnaire))
		b.WriteString("\n")
	}

	b.WriteString(`
Return JSON with exactly these fields:
{
  "company_name": "...",
  "industry": "...",
  "target_audience": "...",
  "pain_points": ["..."],
  "unique_features": ["..."],
  "competitors": ["..."],
  "tone_preference": "...",
  "goals": ["..."],
  "customer_emotions": ["..."],
  "transformation": "...",
  "current_messaging_issues": "...",
  "communication_platforms": ["..."]
}`)

	return system, b.String()
}

// =============================================================================
// COMPETITOR RESEARCH
// =============================================================================

// CompetitorResearch builds the competitor analysis prompt pair.
func CompetitorResearch(profile *state.BusinessProfile) (string, string) {
	system := "You are a competitive intelligence researcher specializing in marketing and " +
		"positioning analysis. You analyze how competitors message themselves and where the " +
		"gaps are. " + jsonOnlyInstruction

	user := fmt.Sprintf(`Analyze the competitive messaging landscape for %s, a %s company targeting %s.

Known competitors:
%s

For each competitor, analyze their likely messaging posture. Then identify market gaps and opportunities.

Return JSON with exactly these fields:
{
  "competitor_analysis": [
    {
      "name": "...",
      "tagline": "...",
      "value_proposition": "...",
      "key_messages": ["..."],
      "positioning": "...",
      "strengths": ["..."],
      "weaknesses": ["..."]
    }
  ],
  "market_gaps": ["..."],
  "opportunities": ["..."]
}`,
		profile.CompanyName, profile.Industry, profile.TargetAudience,
		formatList(profile.Competitors))

	return system, user
}

// =============================================================================
// POSITIONING
// =============================================================================

// Positioning builds the positioning analysis prompt pair.
func Positioning(profile *state.BusinessProfile, analysis *state.CompetitorAnalysis) (string, string) {
	system := "You are a positioning strategist. Given a business profile and a competitive " +
		"landscape, you define where this company can credibly win. " + jsonOnlyInstruction

	var gaps, opportunities []string
	if analysis != nil {
		gaps = analysis.MarketGaps
		opportunities = analysis.Opportunities
	}

	user := fmt.Sprintf(`Define the positioning strategy for %s.

Business profile:
%s

Market gaps identified:
%s

Opportunities identified:
%s

Return JSON with exactly these fields:
{
  "unique_positioning": "...",
  "target_segments": ["..."],
  "differentiation_strategy": ["..."],
  "messaging_angles": ["..."],
  "positioning_statement": "...",
  "strategic_recommendations": ["..."]
}`,
		profile.CompanyName, formatJSON(profile), formatList(gaps), formatList(opportunities))

	return system, user
}

// =============================================================================
// TRUST BUILDING
// =============================================================================

// TrustBuilding builds the trust analysis prompt pair, enriched with
// industry-specific trust factors.
func TrustBuilding(profile *state.BusinessProfile, industryTrustFactors []string) (string, string) {
	system := "You are a trust and credibility strategist. You identify what makes buyers in a " +
		"specific industry feel safe choosing a vendor, and where trust gaps exist. " + jsonOnlyInstruction

	user := fmt.Sprintf(`Analyze trust requirements for %s selling to %s in the %s industry.

Industry trust factors that typically matter here:
%s

Pain points the audience carries:
%s

Return JSON with exactly these fields:
{
  "trust_requirements": ["..."],
  "credibility_signals": ["..."],
  "compliance_factors": ["..."],
  "risk_concerns": ["..."],
  "confidence_messages": ["..."],
  "competitive_trust_gaps": ["..."]
}`,
		profile.CompanyName, profile.TargetAudience, profile.Industry,
		formatList(industryTrustFactors), formatList(profile.PainPoints))

	return system, user
}

// =============================================================================
// EMOTIONAL INTELLIGENCE
// =============================================================================

// EmotionalIntelligence builds the emotional mapping prompt pair.
func EmotionalIntelligence(profile *state.BusinessProfile, emotionHints []string) (string, string) {
	system := "You are an emotional intelligence analyst for B2B and B2C marketing. You map the " +
		"emotional journey from pain to aspiration and identify what actually triggers action. " +
		jsonOnlyInstruction

	user := fmt.Sprintf(`Map the emotional landscape of %s customers for %s.

Pain points:
%s

Stated transformation: %s

Emotions commonly in play for this audience:
%s

Return JSON with exactly these fields:
{
  "pain_emotions": [{"emotion": "...", "trigger": "...", "intensity": "high|medium|low"}],
  "aspiration_emotions": [{"emotion": "...", "trigger": "...", "intensity": "high|medium|low"}],
  "action_triggers": ["..."],
  "adoption_barriers": ["..."],
  "transformation_narrative": "..."
}`,
		profile.TargetAudience, profile.CompanyName,
		formatList(profile.PainPoints), profile.Transformation, formatList(emotionHints))

	return system, user
}

// =============================================================================
// SOCIAL PROOF
// =============================================================================

// SocialProof builds the social proof generation prompt pair.
func SocialProof(profile *state.BusinessProfile, positioning *state.Positioning) (string, string) {
	system := "You are a social proof strategist. You design the credibility evidence a company " +
		"should collect and showcase. Proposed metrics and testimonials must be plausible templates " +
		"the company fills with real data, never fabricated claims presented as fact. " + jsonOnlyInstruction

	positioningStatement := ""
	if positioning != nil {
		positioningStatement = positioning.PositioningStatement
	}

	user := fmt.Sprintf(`Design the social proof strategy for %s (%s industry, selling to %s).

Positioning statement: %s

Unique features:
%s

Return JSON with exactly these fields:
{
  "industry_credentials": ["..."],
  "expert_endorsements": ["..."],
  "partnership_signals": ["..."],
  "customer_metrics": [{"metric": "...", "context": "...", "credibility": "..."}],
  "outcome_testimonials": [{"customer_type": "...", "before_situation": "...", "after_outcome": "...", "quote": "..."}],
  "competitive_proof": ["..."]
}`,
		profile.CompanyName, profile.Industry, profile.TargetAudience,
		positioningStatement, formatList(profile.UniqueFeatures))

	return system, user
}
