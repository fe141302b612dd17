package agents

import (
	"fmt"

	"github.com/playbookforge/playbook-engine/engine/config"
	"github.com/playbookforge/playbook-engine/engine/llm"
	"github.com/playbookforge/playbook-engine/engine/logging"
)

// BuildAgents constructs an Agent for every stage in the pipeline config,
// wired to the built-in handlers.
func BuildAgents(pipeline *config.PipelineConfig, log logging.Logger, caller *llm.Caller) (map[string]*Agent, error) {
	if err := pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	built := make(map[string]*Agent, len(pipeline.Stages))
	for _, stage := range pipeline.Stages {
		handler, err := HandlerFor(stage.Name)
		if err != nil {
			return nil, err
		}
		agent, err := NewAgent(stage, log, caller, handler)
		if err != nil {
			return nil, err
		}
		built[stage.Name] = agent
	}
	return built, nil
}
