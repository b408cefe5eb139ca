package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/doxetl/internal/audit"
	"github.com/roach88/doxetl/internal/definitions"
	"github.com/roach88/doxetl/internal/pipeline"
	"github.com/roach88/doxetl/internal/queries"
	"github.com/roach88/doxetl/internal/source"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Source      string
	Job         string
	Trigger     string
	TriggeredBy string
	Phases      []string

	// GUIDGenerator allows overriding the run guid generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	GUIDGenerator audit.GUIDGenerator
	// Clock allows overriding the audit clock (for testing).
	Clock audit.Clock
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	return newRunCommand(opts)
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ETL pipeline against a source database",
		Long: `Seed the definitions, open the source database and run every phase in
order, recording the run and each step in the audit database.

Steps bound to a query pipeline (step_queries in the config) stream each
query against the source. Other steps are recorded as SKIPPED.

Example:
  doxetl run --source warehouse
  doxetl run --source warehouse --phase extract --trigger MANUAL --triggered-by alice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "source database name (required when more than one is configured)")
	cmd.Flags().StringVar(&opts.Job, "job", "", "job name recorded on the run (default: job_name from the config)")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", string(audit.TriggerScheduled), "trigger type (SCHEDULED|MANUAL|API)")
	cmd.Flags().StringVar(&opts.TriggeredBy, "triggered-by", "", "user or system that started the run")
	cmd.Flags().StringSliceVar(&opts.Phases, "phase", nil, "run only these phases (repeatable)")

	return cmd
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	trigger, err := audit.ParseTriggerType(opts.Trigger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid --trigger", err)
	}

	app, err := buildApp(opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer app.Close()
	log := app.Logger

	for _, key := range opts.Phases {
		if _, ok := app.Defs.PhaseByKey(key); !ok {
			return f.Fail(ExitCommandError, ErrCodeDefinitions, "invalid --phase", &definitions.UnknownPhaseError{Key: key})
		}
	}

	srcName, err := pickSource(opts.Source, app)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid --source", err)
	}
	desc, err := app.Config.SourceDB(srcName)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid --source", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := app.OpenStore(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open audit store", err)
	}
	defer closeStore(log, st)

	if err := st.SeedDefinitions(ctx, app.Defs); err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to seed definitions", err)
	}

	log.Info("opening source database", "source_db", desc.Name, "type", desc.Type)
	db, err := source.Open(ctx, desc, app.Resolver)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDialect, fmt.Sprintf("failed to open source %q", desc.Name), err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing source database", "source_db", desc.Name, "error", err)
		}
	}()

	handlers := make(map[string]pipeline.StepFunc, len(app.Config.StepQueries))
	for stepKey, name := range app.Config.StepQueries {
		handlers[stepKey] = pipeline.QueryStep(app.Queries[name], db, app.Config.StreamChunkSize, chunkLogger(f))
	}

	trackerOpts := []audit.Option{}
	if opts.GUIDGenerator != nil {
		trackerOpts = append(trackerOpts, audit.WithGUIDGenerator(opts.GUIDGenerator))
	}
	runnerOpts := []pipeline.Option{}
	if opts.Clock != nil {
		trackerOpts = append(trackerOpts, audit.WithClock(opts.Clock))
		runnerOpts = append(runnerOpts, pipeline.WithClock(opts.Clock))
	}
	tracker := audit.NewTracker(st, trackerOpts...)
	runner := pipeline.NewRunner(app.Defs, tracker, log, handlers, runnerOpts...)

	job := opts.Job
	if job == "" {
		job = app.Config.JobName
	}
	run, runErr := runner.Run(ctx, pipeline.Request{
		RunRequest: audit.RunRequest{
			JobName:     job,
			Environment: app.Config.Environment,
			TriggerType: trigger,
			TriggeredBy: opts.TriggeredBy,
		},
		SourceDB: desc.Name,
		Phases:   opts.Phases,
	})
	if run == nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to start run", runErr)
	}

	// The run is recorded; report it even if reading the steps back fails.
	steps, err := st.StepAudits(context.WithoutCancel(ctx), run.ID)
	if err != nil {
		log.Error("failed to read step audits", "run_guid", run.GUID, "error", err)
	}
	report := newRunReport(*run, steps, app.Defs)

	if runErr != nil {
		if f.Format != "json" {
			fmt.Fprintln(f.Writer, report)
		}
		code := ErrCodeRunFailed
		if !pipeline.IsStepError(runErr) && !errors.Is(runErr, context.Canceled) {
			code = ErrCodeStore
		}
		return f.Fail(ExitFailure, code, fmt.Sprintf("run %s failed", run.GUID), runErr)
	}
	return f.RunResult(run.GUID, report)
}

// pickSource returns the named source, or the only configured one.
func pickSource(name string, app *App) (string, error) {
	if name != "" {
		return name, nil
	}
	switch len(app.Config.SourceDBs) {
	case 0:
		return "", errors.New("no source databases configured")
	case 1:
		return app.Config.SourceDBs[0].Name, nil
	}
	return "", fmt.Errorf("%d source databases configured; choose one with --source", len(app.Config.SourceDBs))
}

// chunkLogger reports chunk sizes in verbose mode.
func chunkLogger(f *OutputFormatter) pipeline.ChunkSink {
	if !f.Verbose {
		return nil
	}
	return func(_ context.Context, q queries.QueryDefinition, c source.Chunk) error {
		f.VerboseLog("  %s: %d rows", q.Name, len(c.Rows))
		return nil
	}
}
