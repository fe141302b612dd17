// Package pipeline drives a generation run through the configured stage
// graph: it resolves the next agent from routing decisions, enforces the
// run bounds, publishes progress events, and persists the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playbookforge/playbook-engine/engine/agents"
	"github.com/playbookforge/playbook-engine/engine/config"
	"github.com/playbookforge/playbook-engine/engine/logging"
	"github.com/playbookforge/playbook-engine/engine/observability"
	"github.com/playbookforge/playbook-engine/engine/state"
	"github.com/playbookforge/playbook-engine/engine/store"
	"github.com/playbookforge/playbook-engine/events"
)

// assemblyGrace bounds the partial-assembly pass after the run budget
// expires. Assembly makes no model calls, so a short window suffices.
const assemblyGrace = 10 * time.Second

// Runner executes playbook generation runs against a fixed pipeline.
type Runner struct {
	pipeline *config.PipelineConfig
	agents   map[string]*agents.Agent
	log      logging.Logger
	bus      events.Bus
	store    store.Store
}

// NewRunner wires a Runner. Bus and store may be nil; progress events and
// persistence are then skipped.
func NewRunner(pipeline *config.PipelineConfig, agentSet map[string]*agents.Agent, log logging.Logger, bus events.Bus, st store.Store) (*Runner, error) {
	if err := pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	for _, stage := range pipeline.Stages {
		if agentSet[stage.Name] == nil {
			return nil, fmt.Errorf("no agent for stage '%s'", stage.Name)
		}
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Runner{
		pipeline: pipeline,
		agents:   agentSet,
		log:      log,
		bus:      bus,
		store:    st,
	}, nil
}

// StageCount reports how many stages the pipeline defines.
func (r *Runner) StageCount() int {
	return len(r.pipeline.Stages)
}

// GenerateRequest describes one playbook generation run.
type GenerateRequest struct {
	BusinessInput       string
	Questionnaire       map[string]any
	QualityThreshold    float64
	MaxReflectionCycles int
}

// Generate creates a fresh run state for the request and executes it. The
// returned run state carries the full audit trail either way.
func (r *Runner) Generate(ctx context.Context, req GenerateRequest) (*state.Playbook, *state.RunState, error) {
	if strings.TrimSpace(req.BusinessInput) == "" {
		return nil, nil, errors.New("business input is required")
	}
	rs := state.NewRunState(uuid.NewString(), req.BusinessInput, req.Questionnaire,
		req.QualityThreshold, req.MaxReflectionCycles)
	playbook, err := r.Run(ctx, rs)
	return playbook, rs, err
}

// Run executes a prepared run state to a terminal outcome.
//
// The whole run operates under the pipeline's wall-clock budget. When the
// budget expires mid-run the partial state is still assembled into a
// playbook under a short grace window; only cancellation and fatal stage
// errors end a run without output.
func (r *Runner) Run(ctx context.Context, rs *state.RunState) (*state.Playbook, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, r.pipeline.RunBudget)
	defer cancel()

	log := r.log.Bind("run_id", rs.RunID)
	log.Info("run_started",
		"quality_threshold", rs.QualityThreshold,
		"max_reflection_cycles", rs.MaxReflectionCycles,
	)
	r.publish(ctx, &events.RunStarted{
		RunID:            rs.RunID,
		BusinessInput:    rs.BusinessInput,
		QualityThreshold: rs.QualityThreshold,
		MaxCycles:        rs.MaxReflectionCycles,
	})

	// Stage history rows must survive cancellation so failed stages are
	// still on record.
	persistCtx := context.WithoutCancel(ctx)

	current := r.pipeline.FirstStage()
	for current != config.StageEnd {
		if rs.Hops >= r.pipeline.MaxAgentHops {
			return r.finishPartial(ctx, rs, start, state.TerminalReasonMaxHopsExceeded,
				fmt.Sprintf("hop bound %d reached before stage '%s'", r.pipeline.MaxAgentHops, current))
		}
		if r.pipeline.MaxLLMCalls > 0 && rs.LLMCalls >= r.pipeline.MaxLLMCalls {
			return r.finishPartial(ctx, rs, start, state.TerminalReasonBudgetExhausted,
				fmt.Sprintf("llm call bound %d reached before stage '%s'", r.pipeline.MaxLLMCalls, current))
		}

		agent := r.agents[current]

		if current == config.StageCritiqueAgent {
			r.publish(ctx, &events.ReflectionCycleStarted{
				RunID:        rs.RunID,
				Cycle:        rs.ReflectionCycle + 1,
				CurrentScore: rs.OverallScore(),
				Threshold:    rs.QualityThreshold,
			})
		}

		rs.CurrentStage = current
		r.publish(ctx, &events.StageStarted{RunID: rs.RunID, Stage: current, Cycle: rs.ReflectionCycle})
		r.recordTransition(persistCtx, rs.RunID, state.StageRecord{
			Stage:     current,
			Cycle:     rs.ReflectionCycle,
			StartedAt: time.Now().UTC(),
			Status:    state.StageStatusInProgress,
		})

		next, err := agent.Process(runCtx, rs)
		r.publishStageCompleted(ctx, rs, current)
		if rec, ok := lastStageRecord(rs, current); ok {
			r.recordTransition(persistCtx, rs.RunID, rec)
		}

		if err != nil {
			switch {
			case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
				return r.finishPartial(ctx, rs, start, state.TerminalReasonBudgetExhausted,
					fmt.Sprintf("run budget expired during stage '%s'", current))
			case ctx.Err() != nil:
				return r.finishAborted(ctx, rs, start, state.TerminalReasonCancelled, err)
			default:
				return r.finishAborted(ctx, rs, start, state.TerminalReasonFatalError, err)
			}
		}

		current = next
	}

	if rs.Final == nil {
		return r.finishAborted(ctx, rs, start, state.TerminalReasonFatalError,
			errors.New("pipeline reached terminal state without assembled output"))
	}

	rs.Terminate(state.TerminalReasonCompleted, "")
	r.saveResult(ctx, rs.Final)
	r.complete(ctx, rs, start, nil)
	log.Info("run_completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"reflection_cycles", rs.ReflectionCycle,
		"final_score", rs.OverallScore(),
	)
	return rs.Final, nil
}

// finishPartial assembles whatever sections exist into a partial playbook.
// Fallback content fills the gaps, so the output stays structurally
// complete even when the run was cut short.
func (r *Runner) finishPartial(ctx context.Context, rs *state.RunState, start time.Time, reason state.TerminalReason, detail string) (*state.Playbook, error) {
	r.log.Warn("run_cut_short", "run_id", rs.RunID, "reason", reason, "detail", detail)

	graceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), assemblyGrace)
	defer cancel()

	if rs.Final == nil {
		r.recordTransition(graceCtx, rs.RunID, state.StageRecord{
			Stage:     config.StageFinalAssembly,
			Cycle:     rs.ReflectionCycle,
			StartedAt: time.Now().UTC(),
			Status:    state.StageStatusInProgress,
		})
		if _, err := r.agents[config.StageFinalAssembly].Process(graceCtx, rs); err != nil {
			r.log.Error("partial assembly failed", "run_id", rs.RunID, "error", err)
		}
		if rec, ok := lastStageRecord(rs, config.StageFinalAssembly); ok {
			r.recordTransition(graceCtx, rs.RunID, rec)
		}
	}

	rs.Terminate(reason, detail)
	r.complete(graceCtx, rs, start, nil)

	if rs.Final == nil {
		return nil, fmt.Errorf("run ended (%s): %s", reason, detail)
	}
	rs.Final.Status = "partial"
	r.saveResult(graceCtx, rs.Final)
	return rs.Final, nil
}

// finishAborted ends a run with no output.
func (r *Runner) finishAborted(ctx context.Context, rs *state.RunState, start time.Time, reason state.TerminalReason, cause error) (*state.Playbook, error) {
	r.log.Error("run_aborted", "run_id", rs.RunID, "reason", reason, "error", cause)

	graceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), assemblyGrace)
	defer cancel()

	rs.Terminate(reason, cause.Error())
	r.complete(graceCtx, rs, start, cause)
	return nil, fmt.Errorf("run ended (%s): %w", reason, cause)
}

// complete records terminal metrics and publishes RunCompleted.
func (r *Runner) complete(ctx context.Context, rs *state.RunState, start time.Time, cause error) {
	duration := time.Since(start)
	observability.RecordRun(string(rs.TerminalReason), duration)
	observability.RecordReflectionCycles(rs.ReflectionCycle)

	var errStr *string
	if cause != nil {
		s := cause.Error()
		errStr = &s
	}
	r.publish(ctx, &events.RunCompleted{
		RunID:            rs.RunID,
		Status:           string(rs.TerminalReason),
		DurationMS:       int(duration.Milliseconds()),
		ReflectionCycles: rs.ReflectionCycle,
		FinalScore:       rs.OverallScore(),
		Error:            errStr,
	})
}

func (r *Runner) publishStageCompleted(ctx context.Context, rs *state.RunState, stage string) {
	evt := &events.StageCompleted{RunID: rs.RunID, Stage: stage, Cycle: rs.ReflectionCycle}
	if rec, ok := lastStageRecord(rs, stage); ok {
		evt.Status = string(rec.Status)
		evt.DurationMS = rec.DurationMS
		evt.Error = rec.Error
	}
	r.publish(ctx, evt)
}

// lastStageRecord returns the most recent history record for a stage.
func lastStageRecord(rs *state.RunState, stage string) (state.StageRecord, bool) {
	for i := len(rs.History) - 1; i >= 0; i-- {
		if rs.History[i].Stage == stage {
			return rs.History[i], true
		}
	}
	return state.StageRecord{}, false
}

func (r *Runner) publish(ctx context.Context, msg events.Message) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, msg); err != nil {
		r.log.Warn("event publish failed", "event", events.GetMessageType(msg), "error", err)
	}
}

// recordTransition is best effort; a broken store never fails a run.
func (r *Runner) recordTransition(ctx context.Context, runID string, rec state.StageRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.RecordStageTransition(ctx, runID, rec); err != nil {
		r.log.Warn("transition record failed", "run_id", runID, "stage", rec.Stage, "status", rec.Status, "error", err)
	}
}

func (r *Runner) saveResult(ctx context.Context, playbook *state.Playbook) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveResult(ctx, playbook); err != nil {
		r.log.Error("playbook save failed", "run_id", playbook.RunID, "error", err)
	}
}
