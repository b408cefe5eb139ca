package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/doxetl/internal/audit"
	"github.com/roach88/doxetl/internal/definitions"
	"github.com/roach88/doxetl/internal/logctx"
)

// StepContext is what a handler gets to work with.
type StepContext struct {
	Run      *audit.RunAudit
	Phase    definitions.PhaseDefinition
	Step     definitions.StepDefinition
	SourceDB string
	// Logger carries the run's cursor fields.
	Logger *slog.Logger
}

// StepResult is what a handler reports. A zero Status means SUCCESS.
type StepResult struct {
	Status      audit.Status
	RowsRead    *int64
	RowsWritten *int64
	// Extra is merged into the step audit's extra context.
	Extra map[string]any
}

// StepFunc does the work of one step.
type StepFunc func(ctx context.Context, sc StepContext) (StepResult, error)

// Request describes one pipeline run.
type Request struct {
	audit.RunRequest
	// SourceDB is the configured name of the source database.
	SourceDB string
	// Phases restricts the run to these phase keys. Empty runs every phase.
	// Phases still run in declaration order.
	Phases []string
}

// Runner executes pipeline runs.
type Runner struct {
	defs     *definitions.Registry
	tracker  *audit.Tracker
	logger   *slog.Logger
	handlers map[string]StepFunc
	targets  map[string]audit.StepTarget
	clock    audit.Clock
}

// Option configures a Runner.
type Option func(*Runner)

// WithTargets sets the source/target objects recorded for steps, by step key.
func WithTargets(targets map[string]audit.StepTarget) Option {
	return func(r *Runner) { r.targets = maps.Clone(targets) }
}

// WithClock sets the clock used to time steps.
func WithClock(c audit.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// NewRunner returns a Runner. handlers are keyed by step key; a step with no
// handler is recorded as SKIPPED.
func NewRunner(defs *definitions.Registry, tracker *audit.Tracker, logger *slog.Logger, handlers map[string]StepFunc, opts ...Option) *Runner {
	r := &Runner{
		defs:     defs,
		tracker:  tracker,
		logger:   logger,
		handlers: maps.Clone(handlers),
		clock:    audit.SystemClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes req and returns the completed run. On a step failure the run
// is returned completed FAILED together with a *StepError.
func (r *Runner) Run(ctx context.Context, req Request) (*audit.RunAudit, error) {
	phases, err := r.selectPhases(req.Phases)
	if err != nil {
		return nil, err
	}

	run, err := r.tracker.BeginRun(ctx, req.RunRequest)
	if err != nil {
		return nil, err
	}

	cursor := logctx.New(r.defs)
	cursor.UpdateRun(run.GUID)
	cursor.UpdateSource(req.SourceDB)
	log := cursor.Logger(r.logger)

	log.Info("starting ETL run",
		"job", run.JobName,
		"environment", run.Environment,
		"trigger", run.TriggerType,
	)

	var statuses []audit.Status
	for _, phase := range phases {
		steps, err := r.defs.StepsInPhase(phase.Key)
		if err != nil {
			return run, r.abort(ctx, run, log, err)
		}
		for _, step := range steps {
			status, err := r.runStep(ctx, req, run, phase, step, cursor, log)
			if err != nil {
				return run, r.abort(ctx, run, log, err)
			}
			statuses = append(statuses, status)
		}
	}
	cursor.ClearStep()

	final := FinalStatus(statuses)
	if err := r.tracker.CompleteRun(ctx, run, final, ""); err != nil {
		return run, err
	}
	log.Info("completed ETL run",
		"status", run.Status,
		"steps", len(statuses),
		"rows_read", *run.TotalRowsRead,
		"rows_written", *run.TotalRowsWritten,
	)
	return run, nil
}

// FinalStatus folds step statuses into the run status: PARTIAL if any step
// was partial, SKIPPED if every step was skipped (or there were none),
// SUCCESS otherwise. FAILED never reaches here.
func FinalStatus(statuses []audit.Status) audit.Status {
	skipped := 0
	for _, s := range statuses {
		switch s {
		case audit.StatusPartial:
			return audit.StatusPartial
		case audit.StatusSkipped:
			skipped++
		}
	}
	if skipped == len(statuses) {
		return audit.StatusSkipped
	}
	return audit.StatusSuccess
}

func (r *Runner) selectPhases(keys []string) ([]definitions.PhaseDefinition, error) {
	all := r.defs.Phases()
	if len(keys) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := r.defs.PhaseByKey(k); !ok {
			return nil, &definitions.UnknownPhaseError{Key: k}
		}
		want[k] = true
	}
	var out []definitions.PhaseDefinition
	for _, p := range all {
		if want[p.Key] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Runner) runStep(
	ctx context.Context,
	req Request,
	run *audit.RunAudit,
	phase definitions.PhaseDefinition,
	step definitions.StepDefinition,
	cursor *logctx.Cursor,
	log *slog.Logger,
) (audit.Status, error) {
	if err := cursor.UpdateStep(step); err != nil {
		return "", err
	}

	target := r.targets[step.Key]
	if target.SourceSystem == "" {
		target.SourceSystem = req.SourceDB
	}
	sa, err := r.tracker.BeginStep(ctx, run, phase, step, target)
	if err != nil {
		return "", err
	}

	handler, ok := r.handlers[step.Key]
	if step.Inactive || !ok {
		reason := "inactive"
		if !step.Inactive {
			reason = "no handler"
		}
		log.Info("skipping ETL step", "reason", reason)
		err := r.tracker.CompleteStep(ctx, sa, audit.StepOutcome{
			Status:       audit.StatusSkipped,
			ExtraContext: map[string]any{"skip_reason": reason},
		})
		return audit.StatusSkipped, err
	}

	log.Info("starting ETL step", "name", step.Name)
	start := r.clock.Now()
	res, herr := handler(ctx, StepContext{
		Run:      run,
		Phase:    phase,
		Step:     step,
		SourceDB: req.SourceDB,
		Logger:   log,
	})
	duration := r.clock.Now().Sub(start)

	status := res.Status
	if status == "" {
		status = audit.StatusSuccess
	}
	if herr == nil && status == audit.StatusFailed {
		herr = errReportedFailed
	}
	if herr == nil && !status.Terminal() {
		herr = fmt.Errorf("handler returned non-terminal status %q", status)
	}

	extra := maps.Clone(res.Extra)
	if extra == nil {
		extra = make(map[string]any, 1)
	}
	extra["duration_ms"] = duration.Milliseconds()

	if herr != nil {
		log.Error("ETL step failed", "duration", duration, "error", herr)
		err := r.tracker.CompleteStep(ctx, sa, audit.StepOutcome{
			Status:       audit.StatusFailed,
			RowsRead:     res.RowsRead,
			RowsWritten:  res.RowsWritten,
			ErrorMessage: herr.Error(),
			ExtraContext: extra,
		})
		if err != nil {
			log.Error("failed to record step failure", "error", err)
		}
		return audit.StatusFailed, &StepError{Phase: phase.Key, Step: step.Code, Err: herr}
	}

	if err := r.tracker.CompleteStep(ctx, sa, audit.StepOutcome{
		Status:       status,
		RowsRead:     res.RowsRead,
		RowsWritten:  res.RowsWritten,
		ExtraContext: extra,
	}); err != nil {
		return "", err
	}
	log.Info("completed ETL step", "duration", duration, "status", status, "rows_read", derefOr(res.RowsRead, 0))
	return status, nil
}

// abort completes run as FAILED with cause as its comment and returns cause.
func (r *Runner) abort(ctx context.Context, run *audit.RunAudit, log *slog.Logger, cause error) error {
	if err := r.tracker.CompleteRun(ctx, run, audit.StatusFailed, cause.Error()); err != nil {
		log.Error("failed to complete run", "error", err)
		return fmt.Errorf("%w (completing run: %v)", cause, err)
	}
	log.Error("ETL run failed", "error", cause, "error_count", *run.ErrorCount)
	return cause
}

func derefOr(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}
