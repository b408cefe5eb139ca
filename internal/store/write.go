package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/doxetl/internal/audit"
)

// CreateRun inserts run as a new row and assigns run.ID.
// The etl_run_guid UNIQUE constraint rejects a reused guid.
func (s *Store) CreateRun(ctx context.Context, run *audit.RunAudit) error {
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO etl_run_audit
		(etl_run_guid, job_name, environment, trigger_type, trigger_user, start_time_utc, status_code)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		run.GUID,
		run.JobName,
		string(run.Environment),
		string(run.TriggerType),
		nullable(run.TriggeredBy),
		run.StartTime.UTC(),
		string(run.Status),
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun writes the terminal state of run. Only a row still STARTED is
// updated; any other state is an error.
func (s *Store) FinishRun(ctx context.Context, run audit.RunAudit) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE etl_run_audit
		SET end_time_utc = ?, status_code = ?, total_rows_read = ?, total_rows_written = ?,
		    error_count = ?, comments = ?
		WHERE id = ? AND status_code = ?
	`),
		nullable(utcPtr(run.EndTime)),
		string(run.Status),
		nullable(run.TotalRowsRead),
		nullable(run.TotalRowsWritten),
		nullable(run.ErrorCount),
		nullable(run.Comments),
		run.ID,
		string(audit.StatusStarted),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n != 1 {
		return s.staleFinish(ctx, "etl_run_audit", "run", run.ID, run.Status)
	}
	return nil
}

// CreateStep inserts step as a new row and assigns step.ID.
//
// Note: the run, phase and step referenced must exist (foreign key constraints),
// so definitions have to be seeded first.
func (s *Store) CreateStep(ctx context.Context, step *audit.StepAudit) error {
	extra, err := marshalExtra(step.ExtraContext)
	if err != nil {
		return fmt.Errorf("create step: %w", err)
	}

	err = s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO etl_step_audit
		(etl_run_id, etl_phase_id, step_id, source_system, source_object, target_system, target_object,
		 start_time_utc, status_code, extra_context_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		step.RunID,
		step.PhaseID,
		step.StepID,
		nullable(step.SourceSystem),
		nullable(step.SourceObject),
		nullable(step.TargetSystem),
		nullable(step.TargetObject),
		step.StartTime.UTC(),
		string(step.Status),
		nullable(extra),
	).Scan(&step.ID)
	if err != nil {
		return fmt.Errorf("create step: %w", err)
	}
	return nil
}

// FinishStep writes the terminal state of step. Only a row still STARTED is
// updated.
func (s *Store) FinishStep(ctx context.Context, step audit.StepAudit) error {
	extra, err := marshalExtra(step.ExtraContext)
	if err != nil {
		return fmt.Errorf("finish step: %w", err)
	}

	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE etl_step_audit
		SET end_time_utc = ?, status_code = ?, rows_read = ?, rows_written = ?,
		    error_message = ?, extra_context_json = ?
		WHERE id = ? AND status_code = ?
	`),
		nullable(utcPtr(step.EndTime)),
		string(step.Status),
		nullable(step.RowsRead),
		nullable(step.RowsWritten),
		nullable(step.ErrorMessage),
		nullable(extra),
		step.ID,
		string(audit.StatusStarted),
	)
	if err != nil {
		return fmt.Errorf("finish step: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish step: rows affected: %w", err)
	}
	if n != 1 {
		return s.staleFinish(ctx, "etl_step_audit", "step", step.ID, step.Status)
	}
	return nil
}

// staleFinish explains a guarded finish that matched no row. A row that is
// already terminal yields an InvalidStateTransitionError.
func (s *Store) staleFinish(ctx context.Context, table, record string, id int64, to audit.Status) error {
	var current string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT status_code FROM `+table+` WHERE id = ?`), id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("finish %s: %s %d not found: %w", record, record, id, err)
	}
	if err != nil {
		return fmt.Errorf("finish %s: read status: %w", record, err)
	}
	return fmt.Errorf("finish %s: %w", record, &audit.InvalidStateTransitionError{
		Record: record,
		ID:     id,
		From:   audit.Status(current),
		To:     to,
	})
}
