package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/playbookforge/playbook-engine/engine/state"
)

// SQLiteStore persists runs in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates or opens the playbook database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Stage status history, one row per recorded status change
	CREATE TABLE IF NOT EXISTS stage_transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		status TEXT NOT NULL,
		reflection_cycle INTEGER NOT NULL,
		error_message TEXT,
		record_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_run ON stage_transitions(run_id);

	-- Finished playbooks, one row per run
	CREATE TABLE IF NOT EXISTS playbooks (
		run_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		final_score REAL NOT NULL,
		reflection_cycles INTEGER NOT NULL,
		payload_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordStageTransition appends one stage status record to the run history.
func (s *SQLiteStore) RecordStageTransition(ctx context.Context, runID string, rec state.StageRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal stage record: %w", err)
	}

	var errMsg sql.NullString
	if rec.Error != nil {
		errMsg = sql.NullString{String: *rec.Error, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stage_transitions (run_id, stage, status, reflection_cycle, error_message, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Stage, string(rec.Status), rec.Cycle, errMsg, string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// SaveResult persists a finished playbook.
func (s *SQLiteStore) SaveResult(ctx context.Context, playbook *state.Playbook) error {
	payload, err := json.Marshal(playbook)
	if err != nil {
		return fmt.Errorf("failed to marshal playbook: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO playbooks (run_id, status, final_score, reflection_cycles, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			final_score = excluded.final_score,
			reflection_cycles = excluded.reflection_cycles,
			payload_json = excluded.payload_json`,
		playbook.RunID, playbook.Status, playbook.Reflection.FinalQualityScore,
		playbook.Reflection.TotalReflectionCycles, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save playbook: %w", err)
	}
	return nil
}

// LoadResult returns the stored playbook for a run.
func (s *SQLiteStore) LoadResult(ctx context.Context, runID string) (*state.Playbook, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM playbooks WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load playbook: %w", err)
	}

	var playbook state.Playbook
	if err := json.Unmarshal([]byte(payload), &playbook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playbook: %w", err)
	}
	return &playbook, nil
}

// StageHistory returns the recorded stage records for a run in insertion
// order.
func (s *SQLiteStore) StageHistory(ctx context.Context, runID string) ([]state.StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM stage_transitions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage history: %w", err)
	}
	defer rows.Close()

	var history []state.StageRecord
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan stage record: %w", err)
		}
		var rec state.StageRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stage record: %w", err)
		}
		history = append(history, rec)
	}
	return history, rows.Err()
}

// TransitionCount reports how many transitions are recorded for a run.
func (s *SQLiteStore) TransitionCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stage_transitions WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

var _ Store = (*SQLiteStore)(nil)
