package state

import (
	"maps"
	"slices"
	"time"
)

// Quality threshold bounds. Callers may request any threshold; the run
// clamps it into this band so the reflection loop always has a reachable
// target.
const (
	MinQualityThreshold     = 8.0
	MaxQualityThreshold     = 9.5
	DefaultQualityThreshold = 8.0

	// DefaultMaxReflectionCycles bounds the reflection loop when the caller
	// does not specify one.
	DefaultMaxReflectionCycles = 2
)

// StageRecord is one entry in the run's processing history.
type StageRecord struct {
	Stage       string      `json:"stage"`
	Cycle       int         `json:"cycle"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	DurationMS  int         `json:"duration_ms"`
	Status      StageStatus `json:"status"`
	Error       *string     `json:"error,omitempty"`
	LLMCalls    int         `json:"llm_calls"`
}

// RunState is the single-writer state threaded through one generation run.
// The pipeline runner owns it for the duration of the run; concurrent
// readers must work from Clone snapshots.
type RunState struct {
	RunID             string         `json:"run_id"`
	BusinessInput     string         `json:"business_input"`
	QuestionnaireData map[string]any `json:"questionnaire_data,omitempty"`

	// Accumulated section outputs, nil until their stage completes.
	BusinessProfile    *BusinessProfile    `json:"business_profile,omitempty"`
	CompetitorAnalysis *CompetitorAnalysis `json:"competitor_analysis,omitempty"`
	Positioning        *Positioning        `json:"positioning_strategy,omitempty"`
	TrustElements      *TrustElements      `json:"trust_elements,omitempty"`
	EmotionalMap       *EmotionalMap       `json:"emotional_map,omitempty"`
	SocialProof        *SocialProof        `json:"social_proof,omitempty"`
	Messaging          *MessagingFramework `json:"messaging_framework,omitempty"`
	Content            *ContentAssets      `json:"content_assets,omitempty"`
	QualityReview      *QualityReview      `json:"quality_review,omitempty"`

	// Reflection loop state. FirstPassScore is the overall score of the
	// very first quality review; improvement is measured against it.
	FirstPassScore      float64              `json:"first_pass_score,omitempty"`
	ReflectionCycle     int                  `json:"reflection_cycle"`
	MaxReflectionCycles int                  `json:"max_reflection_cycles"`
	QualityThreshold    float64              `json:"quality_threshold"`
	NeedsRefinement     bool                 `json:"needs_refinement"`
	CritiquePoints      []string             `json:"critique_points"`
	LastCritique        *Critique            `json:"last_critique,omitempty"`
	RefinementFocus     []string             `json:"refinement_focus,omitempty"`
	ReflectionHistory   []ReflectionSnapshot `json:"reflection_history"`
	MetaReview          *MetaReview          `json:"meta_review,omitempty"`

	// Final assembled output, set by the terminal stage.
	Final *Playbook `json:"final_output,omitempty"`

	// Pipeline position and audit trail.
	CurrentStage  string                 `json:"current_stage"`
	StageStatuses map[string]StageStatus `json:"stage_statuses"`
	History       []StageRecord          `json:"history"`

	// Termination.
	Terminated        bool           `json:"terminated"`
	TerminalReason    TerminalReason `json:"terminal_reason,omitempty"`
	TerminationDetail string         `json:"termination_detail,omitempty"`

	// Bound counters.
	LLMCalls        int `json:"llm_calls"`
	Hops            int `json:"hops"`
	GeneratorPasses int `json:"generator_passes"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRunState creates a run state with a clamped threshold and defaulted
// reflection bound.
func NewRunState(runID, businessInput string, questionnaire map[string]any, qualityThreshold float64, maxReflectionCycles int) *RunState {
	now := time.Now().UTC()
	if qualityThreshold == 0 {
		qualityThreshold = DefaultQualityThreshold
	}
	if maxReflectionCycles <= 0 {
		maxReflectionCycles = DefaultMaxReflectionCycles
	}
	return &RunState{
		RunID:               runID,
		BusinessInput:       businessInput,
		QuestionnaireData:   questionnaire,
		MaxReflectionCycles: maxReflectionCycles,
		QualityThreshold:    ClampThreshold(qualityThreshold),
		CritiquePoints:      []string{},
		ReflectionHistory:   []ReflectionSnapshot{},
		StageStatuses:       make(map[string]StageStatus),
		History:             []StageRecord{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// ClampThreshold bounds a quality threshold into the supported band.
func ClampThreshold(t float64) float64 {
	if t < MinQualityThreshold {
		return MinQualityThreshold
	}
	if t > MaxQualityThreshold {
		return MaxQualityThreshold
	}
	return t
}

// OverallScore returns the latest review score, or 0 before any review.
func (r *RunState) OverallScore() float64 {
	if r.QualityReview == nil {
		return 0
	}
	return r.QualityReview.OverallScore
}

// ShouldContinueReflection is the reflection loop predicate. All three
// conditions must hold: the score is below threshold, the cycle budget is
// not exhausted, and refinement is still flagged as worthwhile.
func (r *RunState) ShouldContinueReflection() bool {
	return r.OverallScore() < r.QualityThreshold &&
		r.ReflectionCycle < r.MaxReflectionCycles &&
		r.NeedsRefinement
}

// ApplyRefinement is the refinement stage transform: it advances the cycle
// counter, snapshots the critique into history, and primes the next
// generation pass with the critique directives. No model call is involved.
func (r *RunState) ApplyRefinement(critique *Critique) {
	r.ReflectionCycle++
	directives := critique.Directives()
	r.CritiquePoints = append(r.CritiquePoints, directives...)
	r.LastCritique = critique
	r.RefinementFocus = slices.Clone(critique.PriorityFixes)
	r.ReflectionHistory = append(r.ReflectionHistory, ReflectionSnapshot{
		Cycle:           r.ReflectionCycle,
		ScoreBefore:     r.OverallScore(),
		Critique:        critique,
		Refinements:     directives,
		RefinementAreas: slices.Clone(critique.PriorityFixes),
		Timestamp:       time.Now().UTC(),
	})
	r.Touch()
}

// RefinementAreasAddressed is the ordered union of every cycle's targeted
// areas, duplicates dropped.
func (r *RunState) RefinementAreasAddressed() []string {
	seen := make(map[string]bool)
	var areas []string
	for _, snap := range r.ReflectionHistory {
		for _, area := range snap.RefinementAreas {
			if !seen[area] {
				seen[area] = true
				areas = append(areas, area)
			}
		}
	}
	return areas
}

// RecordStageStart marks a stage in progress and counts the hop.
func (r *RunState) RecordStageStart(stage string) {
	r.StageStatuses[stage] = StageStatusInProgress
	r.History = append(r.History, StageRecord{
		Stage:     stage,
		Cycle:     r.ReflectionCycle,
		StartedAt: time.Now().UTC(),
		Status:    StageStatusInProgress,
	})
	r.Hops++
	r.Touch()
}

// RecordStageComplete closes the open history record for a stage.
func (r *RunState) RecordStageComplete(stage string, status StageStatus, errMsg *string, llmCalls int) {
	r.StageStatuses[stage] = status
	for i := len(r.History) - 1; i >= 0; i-- {
		rec := &r.History[i]
		if rec.Stage == stage && rec.Status == StageStatusInProgress {
			now := time.Now().UTC()
			rec.CompletedAt = &now
			rec.DurationMS = int(now.Sub(rec.StartedAt).Milliseconds())
			rec.Status = status
			rec.Error = errMsg
			rec.LLMCalls = llmCalls
			break
		}
	}
	r.LLMCalls += llmCalls
	r.Touch()
}

// Terminate marks the run finished with a reason.
func (r *RunState) Terminate(reason TerminalReason, detail string) {
	r.Terminated = true
	r.TerminalReason = reason
	r.TerminationDetail = detail
	now := time.Now().UTC()
	r.CompletedAt = &now
	r.Touch()
}

// Touch bumps the update timestamp.
func (r *RunState) Touch() {
	r.UpdatedAt = time.Now().UTC()
}

// Phase projects the run's coarse lifecycle.
func (r *RunState) Phase() RunPhase {
	switch {
	case r.Terminated && r.TerminalReason == TerminalReasonCompleted:
		return RunPhaseCompleted
	case r.Terminated:
		return RunPhaseFailed
	case r.CurrentStage == "":
		return RunPhasePending
	default:
		return RunPhaseInProgress
	}
}

// Clone deep-copies the run state for safe snapshot reads.
func (r *RunState) Clone() *RunState {
	clone := *r

	clone.QuestionnaireData = deepCopyAnyMap(r.QuestionnaireData)
	clone.CritiquePoints = slices.Clone(r.CritiquePoints)
	clone.RefinementFocus = slices.Clone(r.RefinementFocus)
	clone.StageStatuses = maps.Clone(r.StageStatuses)

	clone.History = slices.Clone(r.History)
	for i := range clone.History {
		if r.History[i].CompletedAt != nil {
			t := *r.History[i].CompletedAt
			clone.History[i].CompletedAt = &t
		}
		if r.History[i].Error != nil {
			e := *r.History[i].Error
			clone.History[i].Error = &e
		}
	}

	clone.ReflectionHistory = slices.Clone(r.ReflectionHistory)
	for i := range clone.ReflectionHistory {
		clone.ReflectionHistory[i].Refinements = slices.Clone(r.ReflectionHistory[i].Refinements)
		clone.ReflectionHistory[i].RefinementAreas = slices.Clone(r.ReflectionHistory[i].RefinementAreas)
		clone.ReflectionHistory[i].Critique = cloneCritique(r.ReflectionHistory[i].Critique)
	}

	clone.BusinessProfile = cloneBusinessProfile(r.BusinessProfile)
	clone.CompetitorAnalysis = cloneCompetitorAnalysis(r.CompetitorAnalysis)
	clone.Positioning = clonePositioning(r.Positioning)
	clone.TrustElements = cloneTrustElements(r.TrustElements)
	clone.EmotionalMap = cloneEmotionalMap(r.EmotionalMap)
	clone.SocialProof = cloneSocialProof(r.SocialProof)
	clone.Messaging = cloneMessaging(r.Messaging)
	clone.Content = cloneContent(r.Content)
	clone.QualityReview = cloneQualityReview(r.QualityReview)
	clone.LastCritique = cloneCritique(r.LastCritique)
	clone.MetaReview = cloneMetaReview(r.MetaReview)
	clone.Final = clonePlaybook(r.Final)

	if r.CompletedAt != nil {
		t := *r.CompletedAt
		clone.CompletedAt = &t
	}

	return &clone
}

func cloneBusinessProfile(p *BusinessProfile) *BusinessProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.PainPoints = slices.Clone(p.PainPoints)
	c.UniqueFeatures = slices.Clone(p.UniqueFeatures)
	c.Competitors = slices.Clone(p.Competitors)
	c.Goals = slices.Clone(p.Goals)
	c.CustomerEmotions = slices.Clone(p.CustomerEmotions)
	c.CommunicationPlatforms = slices.Clone(p.CommunicationPlatforms)
	return &c
}

func cloneCompetitorAnalysis(a *CompetitorAnalysis) *CompetitorAnalysis {
	if a == nil {
		return nil
	}
	c := *a
	c.Competitors = slices.Clone(a.Competitors)
	for i := range c.Competitors {
		c.Competitors[i].KeyMessages = slices.Clone(a.Competitors[i].KeyMessages)
		c.Competitors[i].Strengths = slices.Clone(a.Competitors[i].Strengths)
		c.Competitors[i].Weaknesses = slices.Clone(a.Competitors[i].Weaknesses)
	}
	c.MarketGaps = slices.Clone(a.MarketGaps)
	c.Opportunities = slices.Clone(a.Opportunities)
	return &c
}

func clonePositioning(p *Positioning) *Positioning {
	if p == nil {
		return nil
	}
	c := *p
	c.TargetSegments = slices.Clone(p.TargetSegments)
	c.DifferentiationStrategy = slices.Clone(p.DifferentiationStrategy)
	c.MessagingAngles = slices.Clone(p.MessagingAngles)
	c.StrategicRecommendations = slices.Clone(p.StrategicRecommendations)
	return &c
}

func cloneTrustElements(t *TrustElements) *TrustElements {
	if t == nil {
		return nil
	}
	c := *t
	c.TrustRequirements = slices.Clone(t.TrustRequirements)
	c.CredibilitySignals = slices.Clone(t.CredibilitySignals)
	c.ComplianceFactors = slices.Clone(t.ComplianceFactors)
	c.RiskConcerns = slices.Clone(t.RiskConcerns)
	c.ConfidenceMessages = slices.Clone(t.ConfidenceMessages)
	c.TrustGaps = slices.Clone(t.TrustGaps)
	return &c
}

func cloneEmotionalMap(e *EmotionalMap) *EmotionalMap {
	if e == nil {
		return nil
	}
	c := *e
	c.PainEmotions = slices.Clone(e.PainEmotions)
	c.AspirationEmotions = slices.Clone(e.AspirationEmotions)
	c.ActionTriggers = slices.Clone(e.ActionTriggers)
	c.AdoptionBarriers = slices.Clone(e.AdoptionBarriers)
	return &c
}

func cloneSocialProof(s *SocialProof) *SocialProof {
	if s == nil {
		return nil
	}
	c := *s
	c.IndustryCredentials = slices.Clone(s.IndustryCredentials)
	c.ExpertEndorsements = slices.Clone(s.ExpertEndorsements)
	c.PartnershipSignals = slices.Clone(s.PartnershipSignals)
	c.CustomerMetrics = slices.Clone(s.CustomerMetrics)
	c.OutcomeTestimonials = slices.Clone(s.OutcomeTestimonials)
	c.CompetitiveProof = slices.Clone(s.CompetitiveProof)
	return &c
}

func cloneMessaging(m *MessagingFramework) *MessagingFramework {
	if m == nil {
		return nil
	}
	c := *m
	c.TaglineOptions = slices.Clone(m.TaglineOptions)
	c.Differentiators = slices.Clone(m.Differentiators)
	c.KeyMessages = slices.Clone(m.KeyMessages)
	c.ToneGuidelines.WordsToUse = slices.Clone(m.ToneGuidelines.WordsToUse)
	c.ToneGuidelines.WordsToAvoid = slices.Clone(m.ToneGuidelines.WordsToAvoid)
	return &c
}

func cloneContent(a *ContentAssets) *ContentAssets {
	if a == nil {
		return nil
	}
	c := *a
	c.WebsiteHeadlines = slices.Clone(a.WebsiteHeadlines)
	c.LinkedInPosts = slices.Clone(a.LinkedInPosts)
	c.EmailTemplates = slices.Clone(a.EmailTemplates)
	c.SalesOneLiners = slices.Clone(a.SalesOneLiners)
	return &c
}

func cloneQualityReview(q *QualityReview) *QualityReview {
	if q == nil {
		return nil
	}
	c := *q
	c.DimensionScores = maps.Clone(q.DimensionScores)
	c.Strengths = slices.Clone(q.Strengths)
	c.ImprovementAreas = slices.Clone(q.ImprovementAreas)
	c.CriticalGaps = slices.Clone(q.CriticalGaps)
	return &c
}

func cloneCritique(cr *Critique) *Critique {
	if cr == nil {
		return nil
	}
	c := *cr
	c.MessagingWeaknesses = slices.Clone(cr.MessagingWeaknesses)
	c.ContentGaps = slices.Clone(cr.ContentGaps)
	c.PositioningIssues = slices.Clone(cr.PositioningIssues)
	c.MessagingRefinements = slices.Clone(cr.MessagingRefinements)
	c.ContentEnhancements = slices.Clone(cr.ContentEnhancements)
	c.PositioningAdjustment = slices.Clone(cr.PositioningAdjustment)
	c.PriorityFixes = slices.Clone(cr.PriorityFixes)
	c.SpecificExamples = maps.Clone(cr.SpecificExamples)
	return &c
}

func cloneMetaReview(m *MetaReview) *MetaReview {
	if m == nil {
		return nil
	}
	c := *m
	c.FocusAreas = slices.Clone(m.FocusAreas)
	c.RemainingGaps = slices.Clone(m.RemainingGaps)
	return &c
}

func clonePlaybook(p *Playbook) *Playbook {
	if p == nil {
		return nil
	}
	c := *p
	c.BusinessProfile = cloneBusinessProfile(p.BusinessProfile)
	c.CompetitorAnalysis = cloneCompetitorAnalysis(p.CompetitorAnalysis)
	c.Positioning = clonePositioning(p.Positioning)
	c.TrustElements = cloneTrustElements(p.TrustElements)
	c.EmotionalMap = cloneEmotionalMap(p.EmotionalMap)
	c.SocialProof = cloneSocialProof(p.SocialProof)
	c.Messaging = cloneMessaging(p.Messaging)
	c.Content = cloneContent(p.Content)
	c.QualityReview = cloneQualityReview(p.QualityReview)
	c.Reflection.ReflectionHistory = slices.Clone(p.Reflection.ReflectionHistory)
	c.Reflection.CritiquePoints = slices.Clone(p.Reflection.CritiquePoints)
	c.Reflection.RefinementAreasAddressed = slices.Clone(p.Reflection.RefinementAreasAddressed)
	c.Reflection.MetaReview = cloneMetaReview(p.Reflection.MetaReview)
	return &c
}

func deepCopyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyAnyMap(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = deepCopyValue(item)
		}
		return result
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}
