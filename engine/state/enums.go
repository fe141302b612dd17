// Package state holds the typed run state threaded through the generation
// pipeline, the per-section payload types, and the assembled playbook.
package state

// StageStatus tracks the lifecycle of a single stage within a run.
type StageStatus string

const (
	// StageStatusPending indicates the stage has not started.
	StageStatusPending StageStatus = "pending"
	// StageStatusInProgress indicates the stage is currently executing.
	StageStatusInProgress StageStatus = "in_progress"
	// StageStatusCompleted indicates the stage finished successfully.
	StageStatusCompleted StageStatus = "completed"
	// StageStatusFailed indicates the stage failed.
	StageStatusFailed StageStatus = "failed"
)

// TerminalReason records why a run stopped - exactly one per run.
type TerminalReason string

const (
	// TerminalReasonCompleted indicates normal completion through final assembly.
	TerminalReasonCompleted TerminalReason = "completed_successfully"
	// TerminalReasonBudgetExhausted indicates the run wall-clock budget expired.
	TerminalReasonBudgetExhausted TerminalReason = "budget_exhausted"
	// TerminalReasonCancelled indicates the caller cancelled the run context.
	TerminalReasonCancelled TerminalReason = "context_cancelled"
	// TerminalReasonFatalError indicates an unrecoverable failure.
	TerminalReasonFatalError TerminalReason = "fatal_error"
	// TerminalReasonMaxHopsExceeded indicates the stage transition bound tripped.
	TerminalReasonMaxHopsExceeded TerminalReason = "max_agent_hops_exceeded"
)

// RunPhase is the coarse lifecycle of a whole run, as reported by Status.
type RunPhase string

const (
	RunPhasePending    RunPhase = "pending"
	RunPhaseInProgress RunPhase = "in_progress"
	RunPhaseCompleted  RunPhase = "completed"
	RunPhaseFailed     RunPhase = "failed"
)
