package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/doxetl/internal/definitions"
)

// SeedDefinitions upserts every phase and step of reg into etl_phase and
// etl_step, keyed by definition id. sort_order and step_order are the
// declaration positions (1-based). created_at is kept on update.
//
// Idempotent. Runs in a single transaction.
func (s *Store) SeedDefinitions(ctx context.Context, reg *definitions.Registry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed definitions: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := time.Now().UTC()

	for i, p := range reg.Phases() {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO etl_phase
			(id, phase_key, display_name, description, sort_order, created_at, last_updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				phase_key = excluded.phase_key,
				display_name = excluded.display_name,
				description = excluded.description,
				sort_order = excluded.sort_order,
				last_updated_at = excluded.last_updated_at
		`), p.ID, p.Key, p.Name, nullIfEmpty(p.Description), i+1, now, now)
		if err != nil {
			return fmt.Errorf("seed phase %q: %w", p.Key, err)
		}
	}

	for i, st := range reg.Steps() {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO etl_step
			(id, etl_phase_id, step_key, step_code, display_name, step_order, is_active, description,
			 created_at, last_updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				etl_phase_id = excluded.etl_phase_id,
				step_key = excluded.step_key,
				step_code = excluded.step_code,
				display_name = excluded.display_name,
				step_order = excluded.step_order,
				is_active = excluded.is_active,
				description = excluded.description,
				last_updated_at = excluded.last_updated_at
		`), st.ID, st.PhaseID, st.Key, st.Code, st.Name, i+1, !st.Inactive, nullIfEmpty(st.Description), now, now)
		if err != nil {
			return fmt.Errorf("seed step %q: %w", st.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed definitions: commit: %w", err)
	}
	return nil
}

// SeededStep is a row of etl_step.
type SeededStep struct {
	ID        int
	PhaseID   int
	Key       string
	Code      string
	StepOrder int
	Active    bool
}

// SeededSteps returns the etl_step rows ordered by step_order.
func (s *Store) SeededSteps(ctx context.Context) ([]SeededStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, etl_phase_id, step_key, step_code, step_order, is_active
		FROM etl_step
		ORDER BY step_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query seeded steps: %w", err)
	}
	defer rows.Close()

	steps := []SeededStep{}
	for rows.Next() {
		var st SeededStep
		if err := rows.Scan(&st.ID, &st.PhaseID, &st.Key, &st.Code, &st.StepOrder, &st.Active); err != nil {
			return nil, fmt.Errorf("scan seeded step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seeded steps: %w", err)
	}
	return steps, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
