package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run outcomes.
const (
	OutcomeRunning   = "running"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Run is one row of the run log.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Stage         string
	Outcome       string
	Error         string
	EngineVersion string
}

// BeginRun records the start of a pipeline run.
func (s *Store) BeginRun(ctx context.Context, id string, startedAt time.Time, engineVersion string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, outcome, engine_version)
		VALUES (?, ?, ?, ?)
	`, id, startedAt.UTC().Format(time.RFC3339Nano), OutcomeRunning, engineVersion)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", id, err)
	}
	return nil
}

// UpdateRunStage records the last stage a run reached.
func (s *Store) UpdateRunStage(ctx context.Context, id, stage string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET stage = ? WHERE id = ?`, stage, id)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// FinishRun records the outcome of a run. runErr may be nil.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, runErr error) error {
	outcome, msg := OutcomeSucceeded, ""
	if runErr != nil {
		outcome, msg = OutcomeFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, outcome = ?, error = ? WHERE id = ?
	`, finishedAt.UTC().Format(time.RFC3339Nano), outcome, msg, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, finished_at, stage, outcome, error, engine_version
		FROM runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &started, &finished, &r.Stage, &r.Outcome, &r.Error, &r.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at of %s: %w", r.ID, err)
		}
		if finished.Valid {
			t, err := time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, fmt.Errorf("parse finished_at of %s: %w", r.ID, err)
			}
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}
