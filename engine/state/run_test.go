package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Construction and threshold clamping
// ============================================================================

func TestNewRunState_Defaults(t *testing.T) {
	rs := NewRunState("run-1", "a fintech startup", nil, 0, 0)

	assert.Equal(t, "run-1", rs.RunID)
	assert.Equal(t, DefaultQualityThreshold, rs.QualityThreshold)
	assert.Equal(t, DefaultMaxReflectionCycles, rs.MaxReflectionCycles)
	assert.Equal(t, 0, rs.ReflectionCycle)
	assert.Empty(t, rs.ReflectionHistory)
	assert.False(t, rs.Terminated)
}

func TestClampThreshold(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"below band", 5.0, 8.0},
		{"lower edge", 8.0, 8.0},
		{"inside band", 9.0, 9.0},
		{"upper edge", 9.5, 9.5},
		{"above band", 11.0, 9.5},
		{"negative", -1, 8.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampThreshold(tt.in))
		})
	}
}

// ============================================================================
// Reflection predicate
// ============================================================================

func TestShouldContinueReflection(t *testing.T) {
	tests := []struct {
		name            string
		score           float64
		threshold       float64
		cycle           int
		maxCycles       int
		needsRefinement bool
		want            bool
	}{
		{"all conditions met", 6.5, 8.0, 0, 2, true, true},
		{"score at threshold", 8.0, 8.0, 0, 2, true, false},
		{"score above threshold", 9.2, 8.0, 0, 2, true, false},
		{"cycles exhausted", 6.5, 8.0, 2, 2, true, false},
		{"refinement cleared", 6.5, 8.0, 0, 2, false, false},
		{"last allowed cycle", 6.5, 8.0, 1, 2, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := NewRunState("r", "input", nil, tt.threshold, tt.maxCycles)
			rs.QualityReview = &QualityReview{OverallScore: tt.score}
			rs.ReflectionCycle = tt.cycle
			rs.NeedsRefinement = tt.needsRefinement
			assert.Equal(t, tt.want, rs.ShouldContinueReflection())
		})
	}
}

func TestShouldContinueReflection_NoReviewYet(t *testing.T) {
	// Before any review the score is 0, but refinement has not been flagged.
	rs := NewRunState("r", "input", nil, 8.0, 2)
	assert.False(t, rs.ShouldContinueReflection())
}

// ============================================================================
// Refinement transform
// ============================================================================

func TestApplyRefinement_HistoryTracksCycle(t *testing.T) {
	rs := NewRunState("r", "input", nil, 8.0, 3)

	for i := 1; i <= 3; i++ {
		rs.ApplyRefinement(&Critique{
			PriorityFixes:        []string{"sharpen value prop"},
			MessagingRefinements: []string{"quantify benefits"},
		})
		assert.Equal(t, i, rs.ReflectionCycle)
		require.Len(t, rs.ReflectionHistory, i)
		assert.Equal(t, i, rs.ReflectionHistory[i-1].Cycle)
	}
}

func TestApplyRefinement_DirectivesAccumulate(t *testing.T) {
	rs := NewRunState("r", "input", nil, 8.0, 2)
	rs.ApplyRefinement(&Critique{
		PriorityFixes:        []string{"fix A"},
		MessagingRefinements: []string{"refine B"},
		ContentEnhancements:  []string{"enhance C"},
	})

	assert.Equal(t, []string{"fix A", "refine B", "enhance C"}, rs.CritiquePoints)
	assert.Equal(t, []string{"fix A"}, rs.RefinementFocus)
	require.Len(t, rs.ReflectionHistory, 1)
	assert.Equal(t, []string{"fix A", "refine B", "enhance C"}, rs.ReflectionHistory[0].Refinements)
	assert.Equal(t, []string{"fix A"}, rs.ReflectionHistory[0].RefinementAreas)
}

func TestApplyRefinement_SnapshotCarriesScoreBefore(t *testing.T) {
	rs := NewRunState("r", "input", nil, 8.0, 2)
	rs.QualityReview = &QualityReview{OverallScore: 6.5}

	rs.ApplyRefinement(&Critique{PriorityFixes: []string{"fix A"}})

	require.Len(t, rs.ReflectionHistory, 1)
	assert.InDelta(t, 6.5, rs.ReflectionHistory[0].ScoreBefore, 0.001)
}

func TestRefinementAreasAddressed_UnionDropsDuplicates(t *testing.T) {
	rs := NewRunState("r", "input", nil, 8.0, 3)
	rs.ApplyRefinement(&Critique{PriorityFixes: []string{"fix A", "fix B"}})
	rs.ApplyRefinement(&Critique{PriorityFixes: []string{"fix B", "fix C"}})

	assert.Equal(t, []string{"fix A", "fix B", "fix C"}, rs.RefinementAreasAddressed())
}

// ============================================================================
// Stage records
// ============================================================================

func TestStageRecords_StartAndComplete(t *testing.T) {
	rs := NewRunState("r", "input", nil, 8.0, 2)

	rs.RecordStageStart("business_discovery")
	assert.Equal(t, StageStatusInProgress, rs.StageStatuses["business_discovery"])
	assert.Equal(t, 1, rs.Hops)

	rs.RecordStageComplete("business_discovery", StageStatusCompleted, nil, 1)
	assert.Equal(t, StageStatusCompleted, rs.StageStatuses["business_discovery"])
	assert.Equal(t, 1, rs.LLMCalls)

	require.Len(t, rs.History, 1)
	rec := rs.History[0]
	assert.Equal(t, StageStatusCompleted, rec.Status)
	assert.NotNil(t, rec.CompletedAt)
	assert.Equal(t, 1, rec.LLMCalls)
}

func TestStageRecords_FailureKeepsError(t *testing.T) {
	rs := NewRunState("r", "input", nil, 8.0, 2)
	rs.RecordStageStart("competitor_research")
	errMsg := "provider unavailable"
	rs.RecordStageComplete("competitor_research", StageStatusFailed, &errMsg, 2)

	require.Len(t, rs.History, 1)
	require.NotNil(t, rs.History[0].Error)
	assert.Equal(t, "provider unavailable", *rs.History[0].Error)
	assert.Equal(t, StageStatusFailed, rs.StageStatuses["competitor_research"])
}

// ============================================================================
// Phase projection and termination
// ============================================================================

func TestPhase(t *testing.T) {
	rs := NewRunState("r", "input", nil, 8.0, 2)
	assert.Equal(t, RunPhasePending, rs.Phase())

	rs.CurrentStage = "business_discovery"
	assert.Equal(t, RunPhaseInProgress, rs.Phase())

	rs.Terminate(TerminalReasonCompleted, "")
	assert.Equal(t, RunPhaseCompleted, rs.Phase())
	assert.NotNil(t, rs.CompletedAt)

	rs2 := NewRunState("r2", "input", nil, 8.0, 2)
	rs2.CurrentStage = "messaging_generator"
	rs2.Terminate(TerminalReasonFatalError, "boom")
	assert.Equal(t, RunPhaseFailed, rs2.Phase())
}

// ============================================================================
// Clone isolation
// ============================================================================

func TestClone_IsolatesMutations(t *testing.T) {
	rs := NewRunState("r", "input", map[string]any{"budget": "low"}, 8.0, 2)
	rs.BusinessProfile = &BusinessProfile{
		CompanyName: "Acme",
		PainPoints:  []string{"slow onboarding"},
	}
	rs.QualityReview = &QualityReview{
		DimensionScores: map[string]float64{"clarity": 9.0},
		OverallScore:    9.0,
	}
	rs.RecordStageStart("business_discovery")

	clone := rs.Clone()

	rs.BusinessProfile.PainPoints[0] = "mutated"
	rs.BusinessProfile.CompanyName = "Changed"
	rs.QualityReview.DimensionScores["clarity"] = 1.0
	rs.StageStatuses["business_discovery"] = StageStatusFailed
	rs.CritiquePoints = append(rs.CritiquePoints, "new point")
	rs.QuestionnaireData["budget"] = "high"

	assert.Equal(t, "Acme", clone.BusinessProfile.CompanyName)
	assert.Equal(t, []string{"slow onboarding"}, clone.BusinessProfile.PainPoints)
	assert.Equal(t, 9.0, clone.QualityReview.DimensionScores["clarity"])
	assert.Equal(t, StageStatusInProgress, clone.StageStatuses["business_discovery"])
	assert.Empty(t, clone.CritiquePoints)
	assert.Equal(t, "low", clone.QuestionnaireData["budget"])
}

// ============================================================================
// Quality review helpers
// ============================================================================

func TestQualityReview_AverageScore(t *testing.T) {
	q := &QualityReview{DimensionScores: map[string]float64{
		"clarity":        9.0,
		"persuasiveness": 8.0,
		"uniqueness":     7.0,
	}}
	assert.InDelta(t, 8.0, q.AverageScore(), 0.001)

	empty := &QualityReview{}
	assert.Equal(t, 0.0, empty.AverageScore())
}
