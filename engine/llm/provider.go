// Package llm provides the model provider abstraction used by the pipeline
// stages, an Anthropic-backed implementation, and the call wrapper that
// classifies failures so stages can fall back instead of aborting a run.
package llm

import "context"

// Provider generates a completion for a system/user prompt pair.
// Implementations must honor context cancellation and deadlines.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
	Model() string
}

// Outcome classifies how a stage call ended.
type Outcome string

const (
	// OutcomeSuccess means the provider returned usable text.
	OutcomeSuccess Outcome = "success"
	// OutcomeDegraded means the call failed in a way the stage can absorb
	// with fallback content.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFatal means the run itself cannot continue, typically because
	// the run context was cancelled or its budget expired.
	OutcomeFatal Outcome = "fatal"
)

// CallResult is the outcome of one stage-level completion call.
type CallResult struct {
	Text    string
	Outcome Outcome
	Err     error
}

// OK reports whether the call produced usable text.
func (r CallResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}
