package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StartRun records the beginning of a pipeline run.
func (s *Store) StartRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_runs (run_id, status, started_at) VALUES (?, ?, ?)`,
		runID, RunStatusRunning, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	return nil
}

// FinishRun closes a pipeline run with its final status and report.
func (s *Store) FinishRun(ctx context.Context, runID, status, report string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE batch_runs SET status = ?, finished_at = ?, report = ? WHERE run_id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), report, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// ListRuns returns the most recent pipeline runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*BatchRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, status, started_at, finished_at, report FROM batch_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*BatchRun
	for rows.Next() {
		var r BatchRun
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Status, &startedAt, &finishedAt, &r.Report); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if finishedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
				r.FinishedAt = &t
			}
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
