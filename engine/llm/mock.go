package llm

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedProvider replays canned responses in order. It backs tests and
// offline dry runs where no real provider is available.
type ScriptedProvider struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	next      int

	// Calls records every prompt pair, in order.
	Calls []ScriptedCall
}

// ScriptedResponse is one canned completion or error.
type ScriptedResponse struct {
	Text string
	Err  error
}

// ScriptedCall is one recorded prompt pair.
type ScriptedCall struct {
	SystemPrompt string
	UserPrompt   string
}

// NewScriptedProvider builds a provider that returns the given responses in
// sequence. Once exhausted it fails every call.
func NewScriptedProvider(responses ...ScriptedResponse) *ScriptedProvider {
	return &ScriptedProvider{responses: responses}
}

// Name identifies the provider in metrics and logs.
func (s *ScriptedProvider) Name() string { return "scripted" }

// Model reports a placeholder model identifier.
func (s *ScriptedProvider) Model() string { return "scripted-v1" }

// Complete returns the next scripted response.
func (s *ScriptedProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, ScriptedCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})

	if s.next >= len(s.responses) {
		return "", fmt.Errorf("scripted provider exhausted after %d responses", len(s.responses))
	}
	resp := s.responses[s.next]
	s.next++
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// CallCount reports how many completions were requested.
func (s *ScriptedProvider) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

var _ Provider = (*ScriptedProvider)(nil)
