package agents

import (
	"fmt"

	"github.com/playbookforge/playbook-engine/engine/state"
)

// Fallback builders produce structurally complete stage sections when a
// model call degrades or its response cannot be parsed. Content is derived
// from the business profile and the industry tables, so even a degraded run
// ships a usable playbook instead of empty sections.

func fallbackBusinessProfile(businessInput string) *state.BusinessProfile {
	return &state.BusinessProfile{
		CompanyName:    "Your Company",
		Industry:       "general",
		TargetAudience: "business decision makers",
		PainPoints:     []string{"manual processes", "wasted time", "unclear results"},
		UniqueFeatures: []string{"innovative solutions"},
		TonePreference: "professional",
		Goals:          []string{"grow revenue", "improve efficiency"},
		Transformation: "from manual overhead to streamlined operations",
		CurrentMessagingIssues: fmt.Sprintf(
			"profile could not be extracted automatically; review the original description: %.200s", businessInput),
	}
}

func fallbackCompetitorAnalysis(profile *state.BusinessProfile) *state.CompetitorAnalysis {
	ind := LookupIndustry(profile.Industry)

	competitors := make([]state.CompetitorProfile, 0, len(profile.Competitors))
	for _, name := range profile.Competitors {
		competitors = append(competitors, state.CompetitorProfile{
			Name:             name,
			Tagline:          fmt.Sprintf("Established %s provider", profile.Industry),
			ValueProposition: fmt.Sprintf("%s serves %s with a conventional offering", name, profile.TargetAudience),
			KeyMessages:      []string{"established player", "broad feature set"},
			Positioning:      "incumbent",
			Strengths:        []string{"brand recognition", "existing customer base"},
			Weaknesses:       []string{"slower innovation", "generic messaging"},
		})
	}
	if len(competitors) == 0 {
		competitors = append(competitors, state.CompetitorProfile{
			Name:             "Incumbent providers",
			Tagline:          fmt.Sprintf("Traditional %s solutions", profile.Industry),
			ValueProposition: "conventional tooling with broad but shallow coverage",
			KeyMessages:      []string{"feature breadth", "enterprise presence"},
			Positioning:      "legacy incumbent",
			Strengths:        []string{"market presence"},
			Weaknesses:       []string{"slow setup", "outdated experience"},
		})
	}

	return &state.CompetitorAnalysis{
		Competitors:    competitors,
		MarketGaps:     []string{"clear differentiated messaging", "modern buyer experience"},
		Opportunities:  append([]string{}, ind.SuccessMetrics...),
		FallbackUsed:   true,
		FallbackReason: "competitor research unavailable, derived from profile",
	}
}

func fallbackPositioning(profile *state.BusinessProfile) *state.Positioning {
	return &state.Positioning{
		UniquePositioning: fmt.Sprintf("The %s solution built specifically for %s", profile.Industry, profile.TargetAudience),
		TargetSegments:    []string{profile.TargetAudience},
		DifferentiationStrategy: []string{
			"lead with industry-specific expertise",
			"emphasize speed to value over feature breadth",
		},
		MessagingAngles: []string{"outcome focus", "time savings", "credible expertise"},
		PositioningStatement: fmt.Sprintf("%s gives %s a faster, simpler way to succeed in %s.",
			profile.CompanyName, profile.TargetAudience, profile.Industry),
		StrategicRecommendations: []string{"validate positioning with customer interviews"},
	}
}

func fallbackTrustElements(profile *state.BusinessProfile) *state.TrustElements {
	ind := LookupIndustry(profile.Industry)
	return &state.TrustElements{
		TrustRequirements:  append([]string{}, ind.TrustFactors...),
		CredibilitySignals: []string{"customer testimonials", "transparent pricing", "responsive support"},
		ComplianceFactors:  append([]string{}, ind.ComplianceRequirements...),
		RiskConcerns:       append([]string{}, ind.BuyerPsychology...),
		ConfidenceMessages: []string{
			fmt.Sprintf("%s is built for the realities of %s", profile.CompanyName, profile.Industry),
			"your data stays protected and auditable",
		},
		TrustGaps: []string{"incumbents rely on brand alone rather than demonstrated outcomes"},
	}
}

func fallbackEmotionalMap(profile *state.BusinessProfile) *state.EmotionalMap {
	ind := LookupIndustry(profile.Industry)

	pain := []state.EmotionalDriver{
		{Emotion: "frustration", Trigger: "manual processes and slow systems", Intensity: "high"},
		{Emotion: "anxiety", Trigger: "compliance issues and financial risk", Intensity: "medium"},
	}
	for _, p := range profile.PainPoints {
		pain = append(pain, state.EmotionalDriver{Emotion: "overwhelm", Trigger: p, Intensity: "medium"})
	}

	return &state.EmotionalMap{
		PainEmotions: pain,
		AspirationEmotions: []state.EmotionalDriver{
			{Emotion: "confidence", Trigger: "better control and clear insights", Intensity: "high"},
			{Emotion: "relief", Trigger: "automated processes and reduced workload", Intensity: "high"},
			{Emotion: "pride", Trigger: "industry leadership and competitive advantage", Intensity: "medium"},
		},
		ActionTriggers:          append([]string{}, ind.EmotionalTriggers...),
		AdoptionBarriers:        []string{"switching cost concerns", "status quo inertia"},
		TransformationNarrative: profileTransformation(profile),
	}
}

func profileTransformation(profile *state.BusinessProfile) string {
	if profile.Transformation != "" {
		return profile.Transformation
	}
	return fmt.Sprintf("from struggling with %s to operating with confidence and measurable results",
		firstOr(profile.PainPoints, "manual overhead"))
}

func fallbackSocialProof(profile *state.BusinessProfile) *state.SocialProof {
	ind := LookupIndustry(profile.Industry)
	return &state.SocialProof{
		IndustryCredentials: append([]string{}, ind.ComplianceRequirements...),
		ExpertEndorsements:  []string{"industry expert approved", "analyst recognized"},
		PartnershipSignals:  []string{"technology partner", "official integration"},
		CustomerMetrics: []state.ProofMetric{
			{Metric: "hours saved weekly", Context: "per customer after onboarding", Credibility: "collect from pilot customers"},
			{Metric: "customer satisfaction score", Context: "quarterly survey", Credibility: "publish methodology"},
		},
		OutcomeTestimonials: []state.Testimonial{
			{
				CustomerType:    profile.TargetAudience,
				BeforeSituation: firstOr(profile.PainPoints, "slow, manual workflows"),
				AfterOutcome:    "streamlined operations with measurable gains",
			},
		},
		CompetitiveProof: []string{fmt.Sprintf("businesses switching from incumbent %s tools", profile.Industry)},
	}
}

// defaultToneGuidelines is the static voice baseline applied when the
// generator cannot produce one.
func defaultToneGuidelines() state.ToneGuidelines {
	return state.ToneGuidelines{
		Style:        "Professional yet approachable",
		Personality:  "Confident, expert, results-focused",
		WordsToUse:   []string{"proven", "innovative", "transform", "results", "expert"},
		WordsToAvoid: []string{"complicated", "expensive", "risky", "uncertain"},
	}
}

func defaultKeyMessages(profile *state.BusinessProfile) []string {
	return []string{
		fmt.Sprintf("Trusted %s expertise", profile.Industry),
		fmt.Sprintf("Proven results for %s", profile.TargetAudience),
		"Comprehensive solution",
		"Fast implementation",
		"Measurable ROI",
	}
}

func fallbackValueProposition(profile *state.BusinessProfile) string {
	return fmt.Sprintf("%s helps %s achieve better results in %s through innovative solutions.",
		profile.CompanyName, profile.TargetAudience, profile.Industry)
}

func fallbackElevatorPitch(profile *state.BusinessProfile) string {
	return fmt.Sprintf("At %s, we understand the challenges facing %s in %s. "+
		"Our solution addresses these challenges while delivering measurable results that help your business grow.",
		profile.CompanyName, profile.TargetAudience, profile.Industry)
}

func fallbackTaglines(profile *state.BusinessProfile) []string {
	return []string{
		fmt.Sprintf("Transform Your %s", profile.Industry),
		fmt.Sprintf("Excellence in %s", profile.Industry),
		"Innovation Delivered",
		"Results That Matter",
		"Your Success Partner",
	}
}

func fallbackDifferentiators(profile *state.BusinessProfile) []string {
	return []string{
		fmt.Sprintf("Industry-specific %s expertise", profile.Industry),
		fmt.Sprintf("Proven results for %s", profile.TargetAudience),
		"Comprehensive solution approach",
	}
}

func fallbackContentAssets(profile *state.BusinessProfile, messaging *state.MessagingFramework) *state.ContentAssets {
	vp := fallbackValueProposition(profile)
	if messaging != nil && messaging.ValueProposition != "" {
		vp = messaging.ValueProposition
	}
	return &state.ContentAssets{
		WebsiteHeadlines: []string{
			fmt.Sprintf("%s | Built for %s", profile.CompanyName, profile.TargetAudience),
			fmt.Sprintf("Stop losing time to %s", firstOr(profile.PainPoints, "manual work")),
			"See results in your first month",
		},
		LinkedInPosts: []string{
			fmt.Sprintf("Most %s still struggle with %s. %s", profile.TargetAudience,
				firstOr(profile.PainPoints, "manual workflows"), vp),
			fmt.Sprintf("What we learned building for %s: the tooling is rarely the bottleneck, the workflow is.",
				profile.TargetAudience),
		},
		EmailTemplates: []state.EmailTemplate{
			{Subject: fmt.Sprintf("A faster way to handle %s", firstOr(profile.PainPoints, "your workflow")),
				Opening: fmt.Sprintf("Hi, I noticed teams like yours often wrestle with %s.", firstOr(profile.PainPoints, "manual processes"))},
			{Subject: fmt.Sprintf("Quick question about %s at your company", profile.Industry),
				Opening: vp},
		},
		SalesOneLiners: []string{
			vp,
			fmt.Sprintf("We built this specifically for %s, not as an afterthought.", profile.TargetAudience),
			"Most customers see value in the first week, not the first quarter.",
			"Unlike the incumbents, setup takes hours, not weeks.",
			"Happy to show you exactly how it works on your own data.",
		},
	}
}

// fallbackQualityReview scores a degraded review pass below threshold on
// every dimension. A failed reviewer must never fabricate a passing score.
func fallbackQualityReview() *state.QualityReview {
	scores := make(map[string]float64, len(state.QualityDimensions))
	for _, d := range state.QualityDimensions {
		scores[d] = 6.0
	}
	return &state.QualityReview{
		DimensionScores:  scores,
		OverallScore:     6.0,
		Strengths:        []string{"structurally complete playbook"},
		ImprovementAreas: []string{"automated review unavailable, manual review recommended"},
		CriticalGaps:     []string{"quality review could not be completed"},
		ApprovalStatus:   "needs_refinement",
	}
}

func fallbackCritique() *state.Critique {
	return &state.Critique{
		MessagingWeaknesses:  []string{"messaging may be generic, critique unavailable"},
		ContentGaps:          []string{"content specificity not verified"},
		PositioningIssues:    []string{"positioning sharpness not verified"},
		MessagingRefinements: []string{"make the value proposition more specific and quantified"},
		ContentEnhancements:  []string{"add concrete outcomes to headlines and posts"},
		PriorityFixes:        []string{"replace generic claims with specific, credible statements"},
		SpecificExamples:     map[string]string{},
	}
}

func firstOr(items []string, fallback string) string {
	if len(items) > 0 {
		return items[0]
	}
	return fallback
}
