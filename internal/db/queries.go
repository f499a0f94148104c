package db

import (
	"fmt"
	"time"

	"github.com/lucasnoah/preflight/internal/engine"
)

// RunRow summarises one recorded pipeline run.
type RunRow struct {
	ID         int64
	Repo       string
	Status     string
	FailedStep string
	DryRun     bool
	StartedAt  string
	FinishedAt string
	Steps      int
}

// RecordRun stores a finished run and its step results in one transaction.
func (d *DB) RecordRun(repo string, o *engine.Outcome, dryRun bool, started, finished time.Time) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (repo, status, failed_step, dry_run, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		repo, string(o.Status), string(o.FailedStep), dryRun,
		started.UTC().Format(time.RFC3339), finished.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, s := range o.Steps {
		if _, err := tx.Exec(
			`INSERT INTO step_results (run_id, step, attempt, success, stderr)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, string(s.Step), s.Attempt, s.Success, s.Stderr,
		); err != nil {
			return 0, fmt.Errorf("insert step result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// RecentRuns returns the most recent runs, newest first.
func (d *DB) RecentRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(
		`SELECT r.id, r.repo, r.status, COALESCE(r.failed_step, ''), r.dry_run,
		        r.started_at, r.finished_at,
		        (SELECT COUNT(*) FROM step_results s WHERE s.run_id = r.id)
		   FROM runs r
		  ORDER BY r.started_at DESC, r.id DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.Repo, &r.Status, &r.FailedStep, &r.DryRun,
			&r.StartedAt, &r.FinishedAt, &r.Steps); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
