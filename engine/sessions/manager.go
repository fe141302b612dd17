// Package sessions tracks playbook generation runs across their lifecycle:
// starting them in the background, answering status queries, and handing
// out results once a run finishes.
package sessions

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playbookforge/playbook-engine/engine/logging"
	"github.com/playbookforge/playbook-engine/engine/pipeline"
	"github.com/playbookforge/playbook-engine/engine/state"
	"github.com/playbookforge/playbook-engine/events"
)

var (
	// ErrRunNotFound is returned for unknown run IDs.
	ErrRunNotFound = errors.New("run not found")
	// ErrStillRunning is returned when a result is requested before the
	// run reaches a terminal state.
	ErrStillRunning = errors.New("run still in progress")
)

// RunStatus is a point-in-time view of one run. Stage counts cover distinct
// stages, so a stage regenerated during reflection counts once.
type RunStatus struct {
	RunID               string                       `json:"run_id"`
	Phase               state.RunPhase               `json:"phase"`
	CurrentStage        string                       `json:"current_stage,omitempty"`
	ReflectionCycle     int                          `json:"reflection_cycle"`
	StageStatuses       map[string]state.StageStatus `json:"stage_statuses,omitempty"`
	CompletedStageCount int                          `json:"completed_stage_count"`
	TotalStageCount     int                          `json:"total_stage_count"`
	FinalScore          float64                      `json:"final_score,omitempty"`
	StartedAt           time.Time                    `json:"started_at"`
	CompletedAt         *time.Time                   `json:"completed_at,omitempty"`
	Error               string                       `json:"error,omitempty"`
}

type entry struct {
	runID     string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	// Guarded by Manager.mu.
	phase         state.RunPhase
	currentStage  string
	cycle         int
	stageStatuses map[string]state.StageStatus
	finalScore    float64
	playbook      *state.Playbook
	err           error
	completedAt   *time.Time
}

// Manager starts runs in the background and tracks their progress through
// bus events. The run state itself stays private to the runner goroutine;
// status queries never touch it.
type Manager struct {
	runner *pipeline.Runner
	log    logging.Logger

	mu    sync.RWMutex
	runs  map[string]*entry
	unsub []func()
}

// NewManager wires a Manager to the runner and subscribes it to run
// progress events on the bus.
func NewManager(runner *pipeline.Runner, bus events.Bus, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNop()
	}
	m := &Manager{
		runner: runner,
		log:    log,
		runs:   make(map[string]*entry),
	}
	if bus != nil {
		m.unsub = append(m.unsub,
			bus.Subscribe("StageStarted", m.onStageStarted),
			bus.Subscribe("StageCompleted", m.onStageCompleted),
			bus.Subscribe("ReflectionCycleStarted", m.onReflectionCycle),
		)
	}
	return m
}

// Close unsubscribes the manager from the bus. Running generations keep
// going; only progress tracking stops.
func (m *Manager) Close() {
	for _, u := range m.unsub {
		u()
	}
}

// StartGeneration launches a generation run in the background and returns
// its run ID immediately. The run outlives the caller's context; use
// Cancel to stop it.
func (m *Manager) StartGeneration(req pipeline.GenerateRequest) (string, error) {
	if strings.TrimSpace(req.BusinessInput) == "" {
		return "", errors.New("business input is required")
	}

	rs := state.NewRunState(uuid.NewString(), req.BusinessInput, req.Questionnaire,
		req.QualityThreshold, req.MaxReflectionCycles)

	runCtx, cancel := context.WithCancel(context.Background())
	e := &entry{
		runID:         rs.RunID,
		startedAt:     time.Now().UTC(),
		cancel:        cancel,
		done:          make(chan struct{}),
		phase:         state.RunPhasePending,
		stageStatuses: make(map[string]state.StageStatus),
	}

	m.mu.Lock()
	m.runs[rs.RunID] = e
	m.mu.Unlock()

	go func() {
		defer close(e.done)
		defer cancel()

		playbook, err := m.runner.Run(runCtx, rs)

		now := time.Now().UTC()
		m.mu.Lock()
		e.playbook = playbook
		e.err = err
		e.phase = rs.Phase()
		e.finalScore = rs.OverallScore()
		e.completedAt = &now
		m.mu.Unlock()

		if err != nil {
			m.log.Warn("run finished with error", "run_id", rs.RunID, "error", err)
		}
	}()

	return rs.RunID, nil
}

// Status reports the current state of a run.
func (m *Manager) Status(runID string) (RunStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.runs[runID]
	if !ok {
		return RunStatus{}, ErrRunNotFound
	}

	completed := 0
	for _, st := range e.stageStatuses {
		if st == state.StageStatusCompleted {
			completed++
		}
	}
	status := RunStatus{
		RunID:               e.runID,
		Phase:               e.phase,
		CurrentStage:        e.currentStage,
		ReflectionCycle:     e.cycle,
		StageStatuses:       maps.Clone(e.stageStatuses),
		CompletedStageCount: completed,
		TotalStageCount:     m.runner.StageCount(),
		FinalScore:          e.finalScore,
		StartedAt:           e.startedAt,
		CompletedAt:         e.completedAt,
	}
	if e.err != nil {
		status.Error = e.err.Error()
	}
	return status, nil
}

// Result returns the finished playbook for a run. A run that ended without
// output surfaces its terminal error instead.
func (m *Manager) Result(runID string) (*state.Playbook, error) {
	m.mu.RLock()
	e, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrRunNotFound
	}

	select {
	case <-e.done:
	default:
		return nil, ErrStillRunning
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if e.playbook == nil {
		if e.err != nil {
			return nil, e.err
		}
		return nil, ErrRunNotFound
	}
	return e.playbook, nil
}

// Wait blocks until a run finishes or the context ends, then returns its
// result.
func (m *Manager) Wait(ctx context.Context, runID string) (*state.Playbook, error) {
	m.mu.RLock()
	e, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrRunNotFound
	}

	select {
	case <-e.done:
		return m.Result(runID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops an in-flight run. Finished runs are left untouched.
func (m *Manager) Cancel(runID string) error {
	m.mu.RLock()
	e, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return ErrRunNotFound
	}
	e.cancel()
	return nil
}

// CleanupStaleRuns drops finished runs older than maxAge and reports how
// many were removed.
func (m *Manager) CleanupStaleRuns(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.runs {
		if e.completedAt != nil && e.completedAt.Before(cutoff) {
			delete(m.runs, id)
			removed++
		}
	}
	return removed
}

// RunCount reports how many runs the manager is tracking.
func (m *Manager) RunCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

func (m *Manager) onStageStarted(ctx context.Context, msg events.Message) (any, error) {
	evt, ok := msg.(*events.StageStarted)
	if !ok {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, tracked := m.runs[evt.RunID]; tracked {
		e.phase = state.RunPhaseInProgress
		e.currentStage = evt.Stage
		e.cycle = evt.Cycle
		e.stageStatuses[evt.Stage] = state.StageStatusInProgress
	}
	return nil, nil
}

func (m *Manager) onStageCompleted(ctx context.Context, msg events.Message) (any, error) {
	evt, ok := msg.(*events.StageCompleted)
	if !ok {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, tracked := m.runs[evt.RunID]; tracked && evt.Status != "" {
		e.stageStatuses[evt.Stage] = state.StageStatus(evt.Status)
	}
	return nil, nil
}

func (m *Manager) onReflectionCycle(ctx context.Context, msg events.Message) (any, error) {
	evt, ok := msg.(*events.ReflectionCycleStarted)
	if !ok {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, tracked := m.runs[evt.RunID]; tracked {
		e.cycle = evt.Cycle
	}
	return nil, nil
}
