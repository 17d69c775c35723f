package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const runColumns = `id, subject, summary, nfa_type, need_bullets, mode, status, approval_status,
	file_name, file_path, preview_text, error_kind, error_message, created_at, completed_at`

// CreateRun records the start of a build and returns its ID
func (db *DB) CreateRun(ctx context.Context, input RunInput) (uuid.UUID, error) {
	mode := input.Mode
	if mode == "" {
		mode = ModeGenerate
	}

	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO nfa_runs (subject, summary, nfa_type, need_bullets, mode, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		input.Subject, input.Summary, input.DocumentType, input.WantBullets, mode, RunStatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a run as completed with its output
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, outcome RunOutcome) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE nfa_runs
		 SET status = $1, file_name = $2, file_path = $3, preview_text = $4, completed_at = NOW()
		 WHERE id = $5`,
		RunStatusCompleted, outcome.FileName, outcome.FilePath, outcome.PreviewText, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// FailRun marks a run as failed with the error kind and message
func (db *DB) FailRun(ctx context.Context, runID uuid.UUID, kind, message string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE nfa_runs
		 SET status = $1, error_kind = $2, error_message = $3, completed_at = NOW()
		 WHERE id = $4`,
		RunStatusFailed, kind, message, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

// UpdateApprovalStatus records the approval decision for a memo
func (db *DB) UpdateApprovalStatus(ctx context.Context, runID uuid.UUID, status string) error {
	if !IsValidApprovalStatus(status) {
		return fmt.Errorf("invalid approval status %q", status)
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE nfa_runs SET approval_status = $1 WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil, nil when no run matches.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM nfa_runs WHERE id = $1`, runID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent runs with optional filters
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM nfa_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.ApprovalStatus != "" {
		query += fmt.Sprintf(" AND approval_status = $%d", argNum)
		args = append(args, filters.ApprovalStatus)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Subject, &run.Summary, &run.DocumentType, &run.WantBullets,
		&run.Mode, &run.Status, &run.ApprovalStatus, &run.FileName, &run.FilePath,
		&run.PreviewText, &run.ErrorKind, &run.ErrorMessage, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
