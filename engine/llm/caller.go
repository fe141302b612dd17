package llm

import (
	"context"
	"errors"
	"time"

	"github.com/playbookforge/playbook-engine/engine/logging"
	"github.com/playbookforge/playbook-engine/engine/observability"
)

// Caller wraps a Provider with per-call deadlines, a single stage-level
// retry, and outcome classification. Stages consume CallResults and decide
// between parsed output and fallback content; only fatal outcomes stop a run.
type Caller struct {
	provider Provider
	timeout  time.Duration
	log      logging.Logger
}

// NewCaller builds a Caller. A zero timeout disables the per-call deadline
// and leaves only the run budget in force.
func NewCaller(provider Provider, timeout time.Duration, log logging.Logger) *Caller {
	if log == nil {
		log = logging.NewNop()
	}
	return &Caller{provider: provider, timeout: timeout, log: log}
}

// Provider exposes the wrapped provider.
func (c *Caller) Provider() Provider { return c.provider }

// Call performs one completion for the named stage.
//
// A failure whose cause is the run context (cancellation, budget expiry) is
// fatal. Any other failure gets exactly one more attempt; if that also
// fails the result is degraded and the stage is expected to fall back.
func (c *Caller) Call(ctx context.Context, stage, systemPrompt, userPrompt string) CallResult {
	start := time.Now()
	result := c.call(ctx, systemPrompt, userPrompt)
	observability.RecordLLMCall(c.provider.Name(), c.provider.Model(), string(result.Outcome), time.Since(start))

	switch result.Outcome {
	case OutcomeSuccess:
		c.log.Debug("llm call completed", "stage", stage, "duration", time.Since(start))
	case OutcomeDegraded:
		c.log.Warn("llm call degraded, stage will fall back", "stage", stage, "error", result.Err)
	case OutcomeFatal:
		c.log.Error("llm call fatal", "stage", stage, "error", result.Err)
	}
	return result
}

func (c *Caller) call(ctx context.Context, systemPrompt, userPrompt string) CallResult {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, err := c.attempt(ctx, systemPrompt, userPrompt)
		if err == nil {
			return CallResult{Text: text, Outcome: OutcomeSuccess}
		}
		if ctx.Err() != nil {
			return CallResult{Outcome: OutcomeFatal, Err: ctx.Err()}
		}
		lastErr = err
	}
	return CallResult{Outcome: OutcomeDegraded, Err: lastErr}
}

func (c *Caller) attempt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.provider.Complete(callCtx, systemPrompt, userPrompt)
	if err != nil {
		// A deadline on the call context alone is not fatal to the run.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", errors.New("call timed out")
		}
		return "", err
	}
	return text, nil
}
