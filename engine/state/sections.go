package state

import "time"

// BusinessProfile is the discovery stage output: who the business is and
// who it sells to. Field names match the wire shape the discovery prompt
// requests, so model output decodes directly into it.
type BusinessProfile struct {
	CompanyName            string   `json:"company_name"`
	Industry               string   `json:"industry"`
	TargetAudience         string   `json:"target_audience"`
	PainPoints             []string `json:"pain_points"`
	UniqueFeatures         []string `json:"unique_features"`
	Competitors            []string `json:"competitors"`
	TonePreference         string   `json:"tone_preference"`
	Goals                  []string `json:"goals"`
	CustomerEmotions       []string `json:"customer_emotions,omitempty"`
	Transformation         string   `json:"transformation,omitempty"`
	CurrentMessagingIssues string   `json:"current_messaging_issues,omitempty"`
	CommunicationPlatforms []string `json:"communication_platforms,omitempty"`
}

// CompetitorProfile describes one competitor's messaging posture.
type CompetitorProfile struct {
	Name             string   `json:"name"`
	Tagline          string   `json:"tagline"`
	ValueProposition string   `json:"value_proposition"`
	KeyMessages      []string `json:"key_messages"`
	Positioning      string   `json:"positioning"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
}

// CompetitorAnalysis is the competitor research stage output.
type CompetitorAnalysis struct {
	Competitors    []CompetitorProfile `json:"competitor_analysis"`
	MarketGaps     []string            `json:"market_gaps"`
	Opportunities  []string            `json:"opportunities"`
	FallbackUsed   bool                `json:"fallback_used,omitempty"`
	FallbackReason string              `json:"fallback_reason,omitempty"`
}

// Positioning is the positioning analysis stage output.
type Positioning struct {
	UniquePositioning        string   `json:"unique_positioning"`
	TargetSegments           []string `json:"target_segments"`
	DifferentiationStrategy  []string `json:"differentiation_strategy"`
	MessagingAngles          []string `json:"messaging_angles"`
	PositioningStatement     string   `json:"positioning_statement"`
	StrategicRecommendations []string `json:"strategic_recommendations"`
}

// TrustElements is the trust building stage output: what makes this
// audience in this industry feel safe choosing the product.
type TrustElements struct {
	TrustRequirements  []string `json:"trust_requirements"`
	CredibilitySignals []string `json:"credibility_signals"`
	ComplianceFactors  []string `json:"compliance_factors"`
	RiskConcerns       []string `json:"risk_concerns"`
	ConfidenceMessages []string `json:"confidence_messages"`
	TrustGaps          []string `json:"competitive_trust_gaps"`
}

// EmotionalDriver is one mapped emotion with its trigger and weight.
type EmotionalDriver struct {
	Emotion   string `json:"emotion"`
	Trigger   string `json:"trigger"`
	Intensity string `json:"intensity,omitempty"`
}

// EmotionalMap is the emotional intelligence stage output.
type EmotionalMap struct {
	PainEmotions            []EmotionalDriver `json:"pain_emotions"`
	AspirationEmotions      []EmotionalDriver `json:"aspiration_emotions"`
	ActionTriggers          []string          `json:"action_triggers"`
	AdoptionBarriers        []string          `json:"adoption_barriers"`
	TransformationNarrative string            `json:"transformation_narrative"`
}

// ProofMetric is one quantified social proof claim.
type ProofMetric struct {
	Metric      string `json:"metric"`
	Context     string `json:"context"`
	Credibility string `json:"credibility,omitempty"`
}

// Testimonial is a contextual customer story.
type Testimonial struct {
	CustomerType    string `json:"customer_type"`
	BeforeSituation string `json:"before_situation"`
	AfterOutcome    string `json:"after_outcome"`
	Quote           string `json:"quote,omitempty"`
}

// SocialProof is the social proof generator stage output.
type SocialProof struct {
	IndustryCredentials []string      `json:"industry_credentials"`
	ExpertEndorsements  []string      `json:"expert_endorsements"`
	PartnershipSignals  []string      `json:"partnership_signals"`
	CustomerMetrics     []ProofMetric `json:"customer_metrics"`
	OutcomeTestimonials []Testimonial `json:"outcome_testimonials"`
	CompetitiveProof    []string      `json:"competitive_proof"`
}

// ToneGuidelines constrains voice across all generated copy.
type ToneGuidelines struct {
	Style        string   `json:"style"`
	Personality  string   `json:"personality"`
	WordsToUse   []string `json:"words_to_use"`
	WordsToAvoid []string `json:"words_to_avoid"`
}

// MessagingFramework is the messaging generator stage output.
type MessagingFramework struct {
	ValueProposition string         `json:"value_proposition"`
	ElevatorPitch    string         `json:"elevator_pitch"`
	TaglineOptions   []string       `json:"tagline_options"`
	Differentiators  []string       `json:"differentiators"`
	ToneGuidelines   ToneGuidelines `json:"tone_guidelines"`
	KeyMessages      []string       `json:"key_messages"`
}

// EmailTemplate is one outbound email skeleton.
type EmailTemplate struct {
	Subject string `json:"subject"`
	Opening string `json:"opening"`
}

// ContentAssets is the content creator stage output.
type ContentAssets struct {
	WebsiteHeadlines []string        `json:"website_headlines"`
	LinkedInPosts    []string        `json:"linkedin_posts"`
	EmailTemplates   []EmailTemplate `json:"email_templates"`
	SalesOneLiners   []string        `json:"sales_one_liners"`
}

// QualityDimensions names the ten scored review dimensions, in report order.
var QualityDimensions = []string{
	"clarity",
	"persuasiveness",
	"uniqueness",
	"emotional_appeal",
	"credibility",
	"actionability",
	"consistency",
	"completeness",
	"audience_fit",
	"conversion_focus",
}

// QualityReview is the quality reviewer stage output.
type QualityReview struct {
	DimensionScores  map[string]float64 `json:"dimension_scores"`
	OverallScore     float64            `json:"overall_quality_score"`
	Strengths        []string           `json:"strengths"`
	ImprovementAreas []string           `json:"improvement_areas"`
	CriticalGaps     []string           `json:"critical_gaps"`
	ApprovalStatus   string             `json:"approval_status"`
}

// AverageScore averages the populated dimension scores. Returns 0 when no
// dimensions are scored.
func (q *QualityReview) AverageScore() float64 {
	if len(q.DimensionScores) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, s := range q.DimensionScores {
		if s > 0 {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Critique is the critique agent output: what is wrong and how to fix it.
type Critique struct {
	MessagingWeaknesses   []string          `json:"messaging_weaknesses"`
	ContentGaps           []string          `json:"content_gaps"`
	PositioningIssues     []string          `json:"positioning_issues"`
	MessagingRefinements  []string          `json:"messaging_refinements"`
	ContentEnhancements   []string          `json:"content_enhancements"`
	PositioningAdjustment []string          `json:"positioning_adjustments"`
	PriorityFixes         []string          `json:"priority_fixes"`
	SpecificExamples      map[string]string `json:"specific_examples"`
}

// Directives flattens the critique into the ordered instruction list handed
// to the next generation pass. Priority fixes lead.
func (c *Critique) Directives() []string {
	out := make([]string, 0, len(c.PriorityFixes)+len(c.MessagingRefinements)+len(c.ContentEnhancements))
	out = append(out, c.PriorityFixes...)
	out = append(out, c.MessagingRefinements...)
	out = append(out, c.ContentEnhancements...)
	return out
}

// MetaReview is the meta reviewer output on the reflection trajectory.
type MetaReview struct {
	CritiqueQuality    string   `json:"critique_quality"`
	ProgressEvaluation string   `json:"progress_evaluation"`
	ContinueReflection bool     `json:"continue_reflection"`
	FocusAreas         []string `json:"focus_areas"`
	QualityPrediction  string   `json:"quality_prediction"`
	RemainingGaps      []string `json:"remaining_gaps"`
}

// ReflectionSnapshot captures one completed reflection cycle: the score
// going into the cycle and the areas the critique targeted.
type ReflectionSnapshot struct {
	Cycle           int       `json:"cycle"`
	ScoreBefore     float64   `json:"score_before"`
	Critique        *Critique `json:"critique"`
	Refinements     []string  `json:"refinements"`
	RefinementAreas []string  `json:"refinement_areas"`
	Timestamp       time.Time `json:"timestamp"`
}

// ReflectionMetadata summarizes the reflection process for the final
// playbook. ImprovementAchieved compares the final score against the first
// review pass, so a run that passed immediately reports false.
type ReflectionMetadata struct {
	TotalReflectionCycles    int                  `json:"total_reflection_cycles"`
	FinalQualityScore        float64              `json:"final_quality_score"`
	FirstPassScore           float64              `json:"first_pass_score"`
	QualityThreshold         float64              `json:"quality_threshold"`
	ReflectionHistory        []ReflectionSnapshot `json:"reflection_history"`
	ImprovementAchieved      bool                 `json:"improvement_achieved"`
	RefinementAreasAddressed []string             `json:"refinement_areas_addressed"`
	MetaReview               *MetaReview          `json:"meta_review,omitempty"`
	CritiquePoints           []string             `json:"critique_points"`
}

// Playbook is the assembled final output of a run.
type Playbook struct {
	RunID              string              `json:"run_id"`
	GeneratedAt        time.Time           `json:"generated_at"`
	BusinessInput      string              `json:"business_input"`
	BusinessProfile    *BusinessProfile    `json:"business_profile"`
	CompetitorAnalysis *CompetitorAnalysis `json:"competitor_analysis"`
	Positioning        *Positioning        `json:"positioning_strategy"`
	TrustElements      *TrustElements      `json:"trust_elements"`
	EmotionalMap       *EmotionalMap       `json:"emotional_map"`
	SocialProof        *SocialProof        `json:"social_proof"`
	Messaging          *MessagingFramework `json:"messaging_framework"`
	Content            *ContentAssets      `json:"content_assets"`
	QualityReview      *QualityReview      `json:"quality_review"`
	Reflection         ReflectionMetadata  `json:"reflection_metadata"`
	Status             string              `json:"status"`
}
