// Package store persists run transitions and finished playbooks.
package store

import (
	"context"
	"errors"

	"github.com/playbookforge/playbook-engine/engine/state"
)

// ErrNotFound is returned when no playbook exists for a run ID.
var ErrNotFound = errors.New("playbook not found")

// Store is the persistence surface the pipeline writes to. Transition
// recording is best effort; a broken store never fails a run.
type Store interface {
	// RecordStageTransition appends one stage status record to the run
	// history. Stages are recorded twice, once when they enter in_progress
	// and once with their terminal completed or failed record.
	RecordStageTransition(ctx context.Context, runID string, rec state.StageRecord) error

	// SaveResult persists a finished playbook, overwriting any earlier
	// result for the same run.
	SaveResult(ctx context.Context, playbook *state.Playbook) error

	// LoadResult returns the stored playbook for a run, or ErrNotFound.
	LoadResult(ctx context.Context, runID string) (*state.Playbook, error)

	Close() error
}
