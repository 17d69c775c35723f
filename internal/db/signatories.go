package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ListSignatories returns every signatory ordered by role and sort order
func (db *DB) ListSignatories(ctx context.Context) ([]Signatory, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, role, name, designation, sort_order
		 FROM signatories ORDER BY role, sort_order, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatories: %w", err)
	}
	defer rows.Close()

	signatories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Signatory, error) {
		var s Signatory
		err := row.Scan(&s.ID, &s.Role, &s.Name, &s.Designation, &s.SortOrder)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan signatories: %w", err)
	}
	return signatories, nil
}

// ReplaceSignatories swaps the whole signatory set in one transaction
func (db *DB) ReplaceSignatories(ctx context.Context, signatories []Signatory) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM signatories`); err != nil {
		return fmt.Errorf("failed to clear signatories: %w", err)
	}

	if len(signatories) > 0 {
		batch := &pgx.Batch{}
		for _, s := range signatories {
			batch.Queue(
				`INSERT INTO signatories (role, name, designation, sort_order) VALUES ($1, $2, $3, $4)`,
				s.Role, s.Name, s.Designation, s.SortOrder,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert signatories: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit signatories: %w", err)
	}
	return nil
}
