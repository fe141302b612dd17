// Package config provides the declarative pipeline topology and the
// runtime configuration surface for the playbook engine.
package config

import (
	"fmt"
	"time"
)

// Stage names. The pipeline runner resolves agents by these names; routing
// targets reference them.
const (
	StageBusinessDiscovery     = "business_discovery"
	StageCompetitorResearch    = "competitor_research"
	StagePositioningAnalysis   = "positioning_analysis"
	StageTrustBuilding         = "trust_building"
	StageEmotionalIntelligence = "emotional_intelligence"
	StageSocialProofGenerator  = "social_proof_generator"
	StageMessagingGenerator    = "messaging_generator"
	StageContentCreator        = "content_creator"
	StageQualityReviewer       = "quality_reviewer"
	StageCritiqueAgent         = "critique_agent"
	StageRefinementAgent       = "refinement_agent"
	StageMetaReviewer          = "meta_reviewer"
	StageFinalAssembly         = "final_assembly"

	// StageEnd is the terminal routing target, not a real stage.
	StageEnd = "end"
)

// RoutingRule defines a conditional transition out of a stage. The
// condition key is looked up in the stage's summary output; on a match the
// pipeline routes to Target instead of DefaultNext.
type RoutingRule struct {
	Condition string `json:"condition"`
	Value     any    `json:"value"`
	Target    string `json:"target"`
}

// StageConfig is the declarative configuration for one pipeline stage.
type StageConfig struct {
	Name       string `json:"name"`
	StageOrder int    `json:"stage_order"`

	// HasLLM marks stages that call the model. Pure state transforms
	// (refinement) and assembly leave it false.
	HasLLM bool `json:"has_llm"`

	// LLM tuning overrides for this stage.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`

	// RequiredOutputFields must be present in the stage summary after a
	// successful pass; missing fields trigger fallback merging.
	RequiredOutputFields []string `json:"required_output_fields,omitempty"`

	// Routing.
	RoutingRules []RoutingRule `json:"routing_rules,omitempty"`
	DefaultNext  string        `json:"default_next"`
}

// Validate checks a single stage config.
func (c *StageConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("StageConfig.Name is required")
	}
	if c.DefaultNext == "" {
		return fmt.Errorf("stage '%s' has no default_next", c.Name)
	}
	return nil
}

// PipelineConfig defines the ordered stage sequence and run bounds.
type PipelineConfig struct {
	Name   string         `json:"name"`
	Stages []*StageConfig `json:"stages"`

	// Bounds. MaxAgentHops is the structural backstop behind the
	// reflection predicate: even a buggy routing decision cannot loop
	// forever.
	MaxAgentHops int `json:"max_agent_hops"`
	MaxLLMCalls  int `json:"max_llm_calls"`

	// RunBudget is the wall-clock budget for a whole run.
	RunBudget time.Duration `json:"run_budget"`
}

// DefaultPipeline builds the thirteen-stage playbook pipeline.
//
// Linear edges run discovery through quality review. The quality reviewer
// owns the only conditional edge: when its summary reports
// continue_reflection=true the pipeline enters the critique loop, which
// rejoins at the messaging generator. Final assembly is terminal.
func DefaultPipeline() *PipelineConfig {
	stages := []*StageConfig{
		{Name: StageBusinessDiscovery, StageOrder: 1, HasLLM: true,
			RequiredOutputFields: []string{"company_name", "industry", "target_audience"},
			DefaultNext:          StageCompetitorResearch},
		{Name: StageCompetitorResearch, StageOrder: 2, HasLLM: true,
			RequiredOutputFields: []string{"competitor_count"},
			DefaultNext:          StagePositioningAnalysis},
		{Name: StagePositioningAnalysis, StageOrder: 3, HasLLM: true,
			RequiredOutputFields: []string{"positioning_statement"},
			DefaultNext:          StageTrustBuilding},
		{Name: StageTrustBuilding, StageOrder: 4, HasLLM: true,
			DefaultNext: StageEmotionalIntelligence},
		{Name: StageEmotionalIntelligence, StageOrder: 5, HasLLM: true,
			DefaultNext: StageSocialProofGenerator},
		{Name: StageSocialProofGenerator, StageOrder: 6, HasLLM: true,
			DefaultNext: StageMessagingGenerator},
		{Name: StageMessagingGenerator, StageOrder: 7, HasLLM: true,
			RequiredOutputFields: []string{"value_proposition"},
			DefaultNext:          StageContentCreator},
		{Name: StageContentCreator, StageOrder: 8, HasLLM: true,
			DefaultNext: StageQualityReviewer},
		{Name: StageQualityReviewer, StageOrder: 9, HasLLM: true,
			RequiredOutputFields: []string{"overall_quality_score"},
			RoutingRules: []RoutingRule{
				{Condition: "continue_reflection", Value: true, Target: StageCritiqueAgent},
			},
			DefaultNext: StageFinalAssembly},
		{Name: StageCritiqueAgent, StageOrder: 10, HasLLM: true,
			DefaultNext: StageRefinementAgent},
		{Name: StageRefinementAgent, StageOrder: 11, HasLLM: false,
			DefaultNext: StageMetaReviewer},
		{Name: StageMetaReviewer, StageOrder: 12, HasLLM: true,
			DefaultNext: StageMessagingGenerator},
		{Name: StageFinalAssembly, StageOrder: 13, HasLLM: false,
			DefaultNext: StageEnd},
	}

	return &PipelineConfig{
		Name:         "playbook_generation",
		Stages:       stages,
		MaxAgentHops: 48,
		MaxLLMCalls:  120,
		RunBudget:    10 * time.Minute,
	}
}

// Validate checks stage uniqueness and that every routing target exists.
func (p *PipelineConfig) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("PipelineConfig.Name is required")
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("pipeline '%s' has no stages", p.Name)
	}

	names := make(map[string]bool, len(p.Stages))
	for _, stage := range p.Stages {
		if err := stage.Validate(); err != nil {
			return err
		}
		if names[stage.Name] {
			return fmt.Errorf("duplicate stage name: %s", stage.Name)
		}
		names[stage.Name] = true
	}

	validTargets := make(map[string]bool, len(names)+1)
	for name := range names {
		validTargets[name] = true
	}
	validTargets[StageEnd] = true

	terminalReachable := false
	for _, stage := range p.Stages {
		for _, rule := range stage.RoutingRules {
			if !validTargets[rule.Target] {
				return fmt.Errorf("stage '%s' routes to unknown target '%s'", stage.Name, rule.Target)
			}
		}
		if !validTargets[stage.DefaultNext] {
			return fmt.Errorf("stage '%s' default_next '%s' not found", stage.Name, stage.DefaultNext)
		}
		if stage.DefaultNext == StageEnd {
			terminalReachable = true
		}
	}
	if !terminalReachable {
		return fmt.Errorf("pipeline '%s' has no stage routing to '%s'", p.Name, StageEnd)
	}

	if p.MaxAgentHops <= 0 {
		return fmt.Errorf("pipeline '%s' max_agent_hops must be positive", p.Name)
	}

	return nil
}

// GetStage gets a stage config by name.
func (p *PipelineConfig) GetStage(name string) *StageConfig {
	for _, stage := range p.Stages {
		if stage.Name == name {
			return stage
		}
	}
	return nil
}

// FirstStage returns the entry stage name.
func (p *PipelineConfig) FirstStage() string {
	if len(p.Stages) == 0 {
		return StageEnd
	}
	return p.Stages[0].Name
}

// StageOrder returns the declared stage names in order.
func (p *PipelineConfig) StageOrder() []string {
	order := make([]string, len(p.Stages))
	for i, stage := range p.Stages {
		order[i] = stage.Name
	}
	return order
}
