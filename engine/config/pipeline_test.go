package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Default pipeline topology
// ============================================================================

func TestDefaultPipeline_Valid(t *testing.T) {
	p := DefaultPipeline()
	require.NoError(t, p.Validate())
	assert.Len(t, p.Stages, 13)
	assert.Equal(t, StageBusinessDiscovery, p.FirstStage())
}

func TestDefaultPipeline_ReflectionRouting(t *testing.T) {
	p := DefaultPipeline()

	reviewer := p.GetStage(StageQualityReviewer)
	require.NotNil(t, reviewer)
	require.Len(t, reviewer.RoutingRules, 1)
	assert.Equal(t, "continue_reflection", reviewer.RoutingRules[0].Condition)
	assert.Equal(t, true, reviewer.RoutingRules[0].Value)
	assert.Equal(t, StageCritiqueAgent, reviewer.RoutingRules[0].Target)
	assert.Equal(t, StageFinalAssembly, reviewer.DefaultNext)

	// The critique loop rejoins at the messaging generator.
	assert.Equal(t, StageRefinementAgent, p.GetStage(StageCritiqueAgent).DefaultNext)
	assert.Equal(t, StageMetaReviewer, p.GetStage(StageRefinementAgent).DefaultNext)
	assert.Equal(t, StageMessagingGenerator, p.GetStage(StageMetaReviewer).DefaultNext)

	assert.Equal(t, StageEnd, p.GetStage(StageFinalAssembly).DefaultNext)
}

func TestDefaultPipeline_LLMStages(t *testing.T) {
	p := DefaultPipeline()

	// Refinement is a pure state transform; assembly composes sections.
	assert.False(t, p.GetStage(StageRefinementAgent).HasLLM)
	assert.False(t, p.GetStage(StageFinalAssembly).HasLLM)

	llmStages := 0
	for _, s := range p.Stages {
		if s.HasLLM {
			llmStages++
		}
	}
	assert.Equal(t, 11, llmStages)
}

// ============================================================================
// Validation
// ============================================================================

func TestPipelineValidate_DuplicateStage(t *testing.T) {
	p := DefaultPipeline()
	p.Stages = append(p.Stages, &StageConfig{Name: StageBusinessDiscovery, DefaultNext: StageEnd})
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate stage name")
}

func TestPipelineValidate_UnknownRoutingTarget(t *testing.T) {
	p := DefaultPipeline()
	p.GetStage(StageQualityReviewer).RoutingRules[0].Target = "nonexistent"
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
}

func TestPipelineValidate_UnknownDefaultNext(t *testing.T) {
	p := DefaultPipeline()
	p.GetStage(StageTrustBuilding).DefaultNext = "nonexistent"
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPipelineValidate_NoTerminalStage(t *testing.T) {
	p := DefaultPipeline()
	p.GetStage(StageFinalAssembly).DefaultNext = StageBusinessDiscovery
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stage routing to 'end'")
}

func TestPipelineValidate_MissingDefaultNext(t *testing.T) {
	s := &StageConfig{Name: "x"}
	require.Error(t, s.Validate())
}
