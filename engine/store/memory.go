package store

import (
	"context"
	"sync"

	"github.com/playbookforge/playbook-engine/engine/state"
)

// Transition is one recorded stage status record.
type Transition struct {
	RunID  string
	Record state.StageRecord
}

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu          sync.RWMutex
	playbooks   map[string]*state.Playbook
	transitions []Transition
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{playbooks: make(map[string]*state.Playbook)}
}

// RecordStageTransition appends one stage status record.
func (m *MemoryStore) RecordStageTransition(ctx context.Context, runID string, rec state.StageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, Transition{RunID: runID, Record: rec})
	return nil
}

// SaveResult stores a finished playbook.
func (m *MemoryStore) SaveResult(ctx context.Context, playbook *state.Playbook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playbooks[playbook.RunID] = playbook
	return nil
}

// LoadResult returns the stored playbook for a run.
func (m *MemoryStore) LoadResult(ctx context.Context, runID string) (*state.Playbook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pb, ok := m.playbooks[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return pb, nil
}

// Transitions returns a copy of the recorded transitions for a run.
func (m *MemoryStore) Transitions(runID string) []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transition, 0)
	for _, t := range m.transitions {
		if t.RunID == runID {
			out = append(out, t)
		}
	}
	return out
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
