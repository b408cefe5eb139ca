package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/doxetl/internal/audit"
)

const runColumns = `
	id, etl_run_guid, job_name, environment, trigger_type, trigger_user, start_time_utc, end_time_utc,
	status_code, total_rows_read, total_rows_written, error_count, comments
`

const stepColumns = `
	id, etl_run_id, etl_phase_id, step_id, source_system, source_object, target_system, target_object,
	rows_read, rows_written, start_time_utc, end_time_utc, status_code, error_message, extra_context_json
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) Runs(ctx context.Context, limit int) ([]audit.RunAudit, error) {
	query := `SELECT ` + runColumns + ` FROM etl_run_audit ORDER BY start_time_utc DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryRuns(ctx, query, args...)
}

// StartedRuns returns runs still in STARTED, oldest first. Outside an active
// process these are runs that were interrupted and need reconciliation.
func (s *Store) StartedRuns(ctx context.Context) ([]audit.RunAudit, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM etl_run_audit
		WHERE status_code = ?
		ORDER BY start_time_utc ASC, id ASC
	`, string(audit.StatusStarted))
}

// RunByGUID retrieves a single run by its guid.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) RunByGUID(ctx context.Context, guid string) (audit.RunAudit, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+runColumns+` FROM etl_run_audit WHERE etl_run_guid = ?`), guid)
	run, err := scanRun(row)
	if err != nil {
		return audit.RunAudit{}, fmt.Errorf("read run %s: %w", guid, err)
	}
	return run, nil
}

// StepAudits returns the step audits of a run in insertion order.
//
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) StepAudits(ctx context.Context, runID int64) ([]audit.StepAudit, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+stepColumns+` FROM etl_step_audit
		WHERE etl_run_id = ?
		ORDER BY id ASC
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("query step audits: %w", err)
	}
	defer rows.Close()

	steps := []audit.StepAudit{}
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step audits: %w", err)
	}
	return steps, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]audit.RunAudit, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []audit.RunAudit{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row rowScanner) (audit.RunAudit, error) {
	var (
		run                           audit.RunAudit
		env, trigger, status          string
		triggeredBy, comments         sql.NullString
		endTime                       sql.NullTime
		totalRead, totalWritten, errs sql.NullInt64
	)
	err := row.Scan(
		&run.ID, &run.GUID, &run.JobName, &env, &trigger, &triggeredBy, &run.StartTime, &endTime,
		&status, &totalRead, &totalWritten, &errs, &comments,
	)
	if err != nil {
		return audit.RunAudit{}, err
	}
	run.Environment = audit.Environment(env)
	run.TriggerType = audit.TriggerType(trigger)
	run.Status = audit.Status(status)
	run.TriggeredBy = stringPtr(triggeredBy)
	run.StartTime = run.StartTime.UTC()
	run.EndTime = timePtr(endTime)
	run.TotalRowsRead = int64Ptr(totalRead)
	run.TotalRowsWritten = int64Ptr(totalWritten)
	run.ErrorCount = int64Ptr(errs)
	run.Comments = stringPtr(comments)
	return run, nil
}

func scanStep(row rowScanner) (audit.StepAudit, error) {
	var (
		st                                  audit.StepAudit
		status                              string
		srcSys, srcObj, tgtSys, tgtObj, msg sql.NullString
		extra                               sql.NullString
		rowsRead, rowsWritten               sql.NullInt64
		endTime                             sql.NullTime
	)
	err := row.Scan(
		&st.ID, &st.RunID, &st.PhaseID, &st.StepID, &srcSys, &srcObj, &tgtSys, &tgtObj,
		&rowsRead, &rowsWritten, &st.StartTime, &endTime, &status, &msg, &extra,
	)
	if err != nil {
		return audit.StepAudit{}, fmt.Errorf("scan step audit: %w", err)
	}
	st.Status = audit.Status(status)
	st.SourceSystem = stringPtr(srcSys)
	st.SourceObject = stringPtr(srcObj)
	st.TargetSystem = stringPtr(tgtSys)
	st.TargetObject = stringPtr(tgtObj)
	st.RowsRead = int64Ptr(rowsRead)
	st.RowsWritten = int64Ptr(rowsWritten)
	st.StartTime = st.StartTime.UTC()
	st.EndTime = timePtr(endTime)
	st.ErrorMessage = stringPtr(msg)
	if st.ExtraContext, err = unmarshalExtra(extra); err != nil {
		return audit.StepAudit{}, err
	}
	return st, nil
}
