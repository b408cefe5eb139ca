package audit

import (
	"context"
	"fmt"
	"maps"

	"github.com/roach88/doxetl/internal/definitions"
)

// Store persists audit records. Implementations must make CreateRun and
// CreateStep durable before returning and assign the record's ID.
// Writers only ever touch their own run's rows.
type Store interface {
	CreateRun(ctx context.Context, run *RunAudit) error
	FinishRun(ctx context.Context, run RunAudit) error
	CreateStep(ctx context.Context, step *StepAudit) error
	FinishStep(ctx context.Context, step StepAudit) error
	StepAudits(ctx context.Context, runID int64) ([]StepAudit, error)
}

// Tracker drives the run/step state machine and persists every transition.
// It holds no per-run state and may be shared by concurrent runs.
type Tracker struct {
	store Store
	clock Clock
	guids GUIDGenerator
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithClock(c Clock) Option { return func(t *Tracker) { t.clock = c } }

func WithGUIDGenerator(g GUIDGenerator) Option { return func(t *Tracker) { t.guids = g } }

// NewTracker returns a Tracker writing to store. It uses the system clock and
// UUIDv7 guids unless overridden.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{store: store, clock: SystemClock{}, guids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RunRequest describes the run being started.
type RunRequest struct {
	JobName     string
	Environment Environment
	TriggerType TriggerType
	TriggeredBy string
}

// StepTarget names what a step reads from and writes to. All fields are optional.
type StepTarget struct {
	SourceSystem string
	SourceObject string
	TargetSystem string
	TargetObject string
}

// StepOutcome is the terminal result of a step.
type StepOutcome struct {
	Status       Status
	RowsRead     *int64
	RowsWritten  *int64
	ErrorMessage string
	// ExtraContext is merged into the step's existing extra context.
	ExtraContext map[string]any
}

// BeginRun creates and persists a STARTED run with a fresh guid.
func (t *Tracker) BeginRun(ctx context.Context, req RunRequest) (*RunAudit, error) {
	if req.JobName == "" {
		return nil, fmt.Errorf("begin run: job name is required")
	}
	env, err := ParseEnvironment(string(req.Environment))
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	if req.TriggerType == "" {
		req.TriggerType = TriggerScheduled
	}
	trigger, err := ParseTriggerType(string(req.TriggerType))
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	run := &RunAudit{
		GUID:        t.guids.Generate(),
		JobName:     req.JobName,
		Environment: env,
		TriggerType: trigger,
		TriggeredBy: optional(req.TriggeredBy),
		StartTime:   t.clock.Now(),
		Status:      StatusStarted,
	}
	if err := t.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// BeginStep creates and persists a STARTED step audit under run.
func (t *Tracker) BeginStep(ctx context.Context, run *RunAudit, phase definitions.PhaseDefinition, step definitions.StepDefinition, target StepTarget) (*StepAudit, error) {
	if run.Status.Terminal() {
		return nil, &InvalidStateTransitionError{Record: "run", ID: run.ID, From: run.Status, To: StatusStarted}
	}
	if step.PhaseID != phase.ID {
		return nil, fmt.Errorf("begin step %q: step belongs to phase %d, not %q (%d)", step.Key, step.PhaseID, phase.Key, phase.ID)
	}

	sa := &StepAudit{
		RunID:        run.ID,
		PhaseID:      phase.ID,
		StepID:       step.ID,
		SourceSystem: optional(target.SourceSystem),
		SourceObject: optional(target.SourceObject),
		TargetSystem: optional(target.TargetSystem),
		TargetObject: optional(target.TargetObject),
		StartTime:    t.clock.Now(),
		Status:       StatusStarted,
	}
	if err := t.store.CreateStep(ctx, sa); err != nil {
		return nil, fmt.Errorf("begin step %q: %w", step.Key, err)
	}
	return sa, nil
}

// CompleteStep moves sa to its terminal status and persists it. sa is only
// updated in memory once the store accepts the write.
func (t *Tracker) CompleteStep(ctx context.Context, sa *StepAudit, out StepOutcome) error {
	if sa.Status.Terminal() || !out.Status.Terminal() {
		return &InvalidStateTransitionError{Record: "step", ID: sa.ID, From: sa.Status, To: out.Status}
	}

	next := *sa
	end := t.clock.Now()
	next.EndTime = &end
	next.Status = out.Status
	next.RowsRead = out.RowsRead
	next.RowsWritten = out.RowsWritten
	next.ErrorMessage = optional(out.ErrorMessage)
	if len(out.ExtraContext) > 0 {
		merged := maps.Clone(sa.ExtraContext)
		if merged == nil {
			merged = make(map[string]any, len(out.ExtraContext))
		}
		maps.Copy(merged, out.ExtraContext)
		next.ExtraContext = merged
	}

	if err := t.store.FinishStep(ctx, next); err != nil {
		return fmt.Errorf("complete step %d: %w", sa.ID, err)
	}
	*sa = next
	return nil
}

// CompleteRun moves run to its terminal status, computing the run totals from
// the step audits already in the store.
func (t *Tracker) CompleteRun(ctx context.Context, run *RunAudit, status Status, comments string) error {
	if run.Status.Terminal() || !status.Terminal() {
		return &InvalidStateTransitionError{Record: "run", ID: run.ID, From: run.Status, To: status}
	}

	steps, err := t.store.StepAudits(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", run.GUID, err)
	}
	read, written, failed := Totals(steps)

	next := *run
	end := t.clock.Now()
	next.EndTime = &end
	next.Status = status
	next.TotalRowsRead = &read
	next.TotalRowsWritten = &written
	next.ErrorCount = &failed
	next.Comments = optional(comments)

	if err := t.store.FinishRun(ctx, next); err != nil {
		return fmt.Errorf("complete run %s: %w", run.GUID, err)
	}
	*run = next
	return nil
}

// Totals sums rows read and written across steps and counts FAILED steps.
func Totals(steps []StepAudit) (rowsRead, rowsWritten, errorCount int64) {
	for _, s := range steps {
		if s.RowsRead != nil {
			rowsRead += *s.RowsRead
		}
		if s.RowsWritten != nil {
			rowsWritten += *s.RowsWritten
		}
		if s.Status == StatusFailed {
			errorCount++
		}
	}
	return rowsRead, rowsWritten, errorCount
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
