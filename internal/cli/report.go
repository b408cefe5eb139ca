package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/doxetl/internal/audit"
	"github.com/roach88/doxetl/internal/definitions"
)

// RunReport is a run audit with its step audits.
type RunReport struct {
	GUID        string       `json:"run_guid"`
	JobName     string       `json:"job_name"`
	Environment string       `json:"environment"`
	Trigger     string       `json:"trigger_type"`
	TriggeredBy string       `json:"triggered_by,omitempty"`
	Status      string       `json:"status"`
	StartTime   time.Time    `json:"start_time_utc"`
	EndTime     *time.Time   `json:"end_time_utc,omitempty"`
	RowsRead    *int64       `json:"total_rows_read,omitempty"`
	RowsWritten *int64       `json:"total_rows_written,omitempty"`
	ErrorCount  *int64       `json:"error_count,omitempty"`
	Comments    string       `json:"comments,omitempty"`
	Steps       []StepReport `json:"steps,omitempty"`
}

// StepReport is one step audit, named from the definition registry.
type StepReport struct {
	StepID       int            `json:"step_id"`
	Code         string         `json:"step_code"`
	Status       string         `json:"status"`
	RowsRead     *int64         `json:"rows_read,omitempty"`
	RowsWritten  *int64         `json:"rows_written,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Extra        map[string]any `json:"extra_context,omitempty"`
}

func newRunReport(run audit.RunAudit, steps []audit.StepAudit, defs *definitions.Registry) RunReport {
	r := RunReport{
		GUID:        run.GUID,
		JobName:     run.JobName,
		Environment: string(run.Environment),
		Trigger:     string(run.TriggerType),
		TriggeredBy: deref(run.TriggeredBy),
		Status:      string(run.Status),
		StartTime:   run.StartTime,
		EndTime:     run.EndTime,
		RowsRead:    run.TotalRowsRead,
		RowsWritten: run.TotalRowsWritten,
		ErrorCount:  run.ErrorCount,
		Comments:    deref(run.Comments),
	}
	for _, s := range steps {
		code := fmt.Sprintf("step#%d", s.StepID)
		if def, ok := defs.StepByID(s.StepID); ok {
			code = def.Code
		}
		r.Steps = append(r.Steps, StepReport{
			StepID:       s.StepID,
			Code:         code,
			Status:       string(s.Status),
			RowsRead:     s.RowsRead,
			RowsWritten:  s.RowsWritten,
			ErrorMessage: deref(s.ErrorMessage),
			Extra:        s.ExtraContext,
		})
	}
	return r
}

func (r RunReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s [%s]\n", r.GUID, r.Status)
	fmt.Fprintf(&b, "  job: %s (%s, %s)\n", r.JobName, r.Environment, r.Trigger)
	if r.TriggeredBy != "" {
		fmt.Fprintf(&b, "  triggered by: %s\n", r.TriggeredBy)
	}
	fmt.Fprintf(&b, "  started: %s\n", r.StartTime.Format(time.RFC3339))
	if r.EndTime != nil {
		fmt.Fprintf(&b, "  ended: %s (%s)\n", r.EndTime.Format(time.RFC3339), r.EndTime.Sub(r.StartTime))
	}
	if r.RowsRead != nil {
		fmt.Fprintf(&b, "  rows read: %d, rows written: %d, errors: %d\n",
			*r.RowsRead, derefInt(r.RowsWritten), derefInt(r.ErrorCount))
	}
	if r.Comments != "" {
		fmt.Fprintf(&b, "  comments: %s\n", r.Comments)
	}
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  %-8s %s", s.Status, s.Code)
		if s.RowsRead != nil {
			fmt.Fprintf(&b, " rows_read=%d", *s.RowsRead)
		}
		if s.ErrorMessage != "" {
			fmt.Fprintf(&b, " error=%q", s.ErrorMessage)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
