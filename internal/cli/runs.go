package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// RunListing is a page of recent runs, newest first.
type RunListing struct {
	Runs []RunRow `json:"runs"`
}

type RunRow struct {
	GUID      string    `json:"run_guid"`
	JobName   string    `json:"job_name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time_utc"`
	RowsRead  *int64    `json:"total_rows_read,omitempty"`
}

func (l RunListing) String() string {
	if len(l.Runs) == 0 {
		return "No runs recorded"
	}
	var b strings.Builder
	for _, r := range l.Runs {
		fmt.Fprintf(&b, "%s  %-8s %s  %s", r.GUID, r.Status, r.StartTime.Format(time.RFC3339), r.JobName)
		if r.RowsRead != nil {
			fmt.Fprintf(&b, "  rows_read=%d", *r.RowsRead)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:           "runs",
		Short:         "List recent runs from the audit database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			app, err := buildApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer app.Close()

			st, err := app.OpenStore(cmd.Context())
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to open audit store", err)
			}
			defer closeStore(app.Logger, st)

			runs, err := st.Runs(cmd.Context(), limit)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
			}
			listing := RunListing{Runs: []RunRow{}}
			for _, r := range runs {
				listing.Runs = append(listing.Runs, RunRow{
					GUID:      r.GUID,
					JobName:   r.JobName,
					Status:    string(r.Status),
					StartTime: r.StartTime,
					RowsRead:  r.TotalRowsRead,
				})
			}
			return f.Success(listing)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 for all)")
	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <run-guid>",
		Short:         "Show a run and its step audits",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			app, err := buildApp(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer app.Close()

			st, err := app.OpenStore(cmd.Context())
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to open audit store", err)
			}
			defer closeStore(app.Logger, st)

			run, err := st.RunByGUID(cmd.Context(), args[0])
			if errors.Is(err, sql.ErrNoRows) {
				return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("run %s not found", args[0]), nil)
			}
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
			}
			steps, err := st.StepAudits(cmd.Context(), run.ID)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to read step audits", err)
			}
			return f.RunResult(run.GUID, newRunReport(run, steps, app.Defs))
		},
	}
}
