// Package agents provides the Agent - a single stage class driven by
// configuration, plus the handler constructors for every pipeline stage.
package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/playbookforge/playbook-engine/engine/config"
	"github.com/playbookforge/playbook-engine/engine/llm"
	"github.com/playbookforge/playbook-engine/engine/logging"
	"github.com/playbookforge/playbook-engine/engine/observability"
	"github.com/playbookforge/playbook-engine/engine/state"
)

var tracer = otel.Tracer("playbook-engine/agents")

// FatalError marks a stage failure the run cannot recover from, typically
// because the run context was cancelled or its budget expired. The runner
// terminates the run instead of routing onward.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal stage error: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Handler implements one stage's semantics. It mutates the run state with
// the stage's typed section and returns a summary map used for required
// field validation and routing decisions.
type Handler func(ctx context.Context, ex *Exec, rs *state.RunState) (map[string]any, error)

// Exec is the per-invocation execution context handed to handlers. It wraps
// the LLM caller and counts calls for the stage record.
type Exec struct {
	agent *Agent
	calls int
}

// Complete performs one LLM call attributed to this stage.
func (e *Exec) Complete(ctx context.Context, systemPrompt, userPrompt string) llm.CallResult {
	e.calls++
	return e.agent.caller.Call(ctx, e.agent.Name(), systemPrompt, userPrompt)
}

// Log exposes the stage-bound logger.
func (e *Exec) Log() logging.Logger { return e.agent.log }

// Agent executes one configured pipeline stage.
type Agent struct {
	cfg     *config.StageConfig
	log     logging.Logger
	caller  *llm.Caller
	handler Handler
}

// NewAgent creates an Agent from its stage config and handler.
func NewAgent(cfg *config.StageConfig, log logging.Logger, caller *llm.Caller, handler Handler) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("agent '%s' has no handler", cfg.Name)
	}
	if cfg.HasLLM && caller == nil {
		return nil, fmt.Errorf("agent '%s' has_llm=true but no caller", cfg.Name)
	}
	return &Agent{
		cfg:     cfg,
		log:     log.Bind("stage", cfg.Name),
		caller:  caller,
		handler: handler,
	}, nil
}

// Name returns the stage name.
func (a *Agent) Name() string { return a.cfg.Name }

// Config returns the stage configuration.
func (a *Agent) Config() *config.StageConfig { return a.cfg }

// Process runs the stage against the run state and returns the next stage
// name. The state is mutated in place; the returned summary drives routing.
func (a *Agent) Process(ctx context.Context, rs *state.RunState) (string, error) {
	ctx, span := tracer.Start(ctx, "stage.process", trace.WithAttributes(
		attribute.String("playbook.stage", a.cfg.Name),
		attribute.String("playbook.run_id", rs.RunID),
		attribute.Int("playbook.reflection_cycle", rs.ReflectionCycle),
	))
	defer span.End()

	start := time.Now()
	rs.RecordStageStart(a.cfg.Name)
	a.log.Info("stage_started", "cycle", rs.ReflectionCycle)

	ex := &Exec{agent: a}
	output, err := a.handler(ctx, ex, rs)
	if err == nil {
		err = a.validateOutput(output)
	}

	duration := time.Since(start)
	span.SetAttributes(
		attribute.Int("playbook.llm.calls", ex.calls),
		attribute.Int("duration_ms", int(duration.Milliseconds())),
	)

	if err != nil {
		observability.RecordStageExecution(a.cfg.Name, "failed", duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.log.Error("stage_failed", "error", err, "duration_ms", duration.Milliseconds())
		errStr := err.Error()
		rs.RecordStageComplete(a.cfg.Name, state.StageStatusFailed, &errStr, ex.calls)
		return "", err
	}

	observability.RecordStageExecution(a.cfg.Name, "completed", duration)
	span.SetStatus(codes.Ok, "completed")
	rs.RecordStageComplete(a.cfg.Name, state.StageStatusCompleted, nil, ex.calls)

	next := a.evaluateRouting(output)
	a.log.Info("stage_completed", "duration_ms", duration.Milliseconds(), "next_stage", next)
	return next, nil
}

func (a *Agent) validateOutput(output map[string]any) error {
	for _, field := range a.cfg.RequiredOutputFields {
		if _, exists := output[field]; !exists {
			return fmt.Errorf("stage '%s' output missing required field: %s", a.cfg.Name, field)
		}
	}
	return nil
}

func (a *Agent) evaluateRouting(output map[string]any) string {
	for _, rule := range a.cfg.RoutingRules {
		value, exists := output[rule.Condition]
		if exists && value == rule.Value {
			a.log.Debug("routing_rule_matched",
				"condition", rule.Condition,
				"value", value,
				"target", rule.Target,
			)
			return rule.Target
		}
	}

	if a.cfg.DefaultNext != "" {
		return a.cfg.DefaultNext
	}
	return config.StageEnd
}
