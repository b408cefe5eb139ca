package logctx

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/doxetl/internal/definitions"
)

// Placeholder is the value of every field that has not been set.
const Placeholder = "-"

// Bound field names.
const (
	KeySourceDB = "source_db_name"
	KeyRunGUID  = "run_guid"
	KeyPhase    = "phase"
	KeyStep     = "step"
)

// LoggingContext is a snapshot of a Cursor.
type LoggingContext struct {
	SourceDBName string
	RunGUID      string
	Phase        string
	Step         string
}

// UnknownStepError reports a cursor update with a step the registry does not hold.
type UnknownStepError struct {
	StepID int
	Key    string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q (id=%d)", e.Key, e.StepID)
}

// Cursor is the mutable logging context of one pipeline run. Updates of phase
// and step happen together under one lock, so a reader never observes a step
// paired with the wrong phase.
type Cursor struct {
	defs *definitions.Registry

	mu  sync.RWMutex
	ctx LoggingContext
}

// New returns a cursor with every field at Placeholder.
func New(defs *definitions.Registry) *Cursor {
	return &Cursor{
		defs: defs,
		ctx: LoggingContext{
			SourceDBName: Placeholder,
			RunGUID:      Placeholder,
			Phase:        Placeholder,
			Step:         Placeholder,
		},
	}
}

// Context returns the current values.
func (c *Cursor) Context() LoggingContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

// UpdateStep moves the cursor to step. The phase is taken from the registry,
// never from the caller. The step must be registered.
func (c *Cursor) UpdateStep(step definitions.StepDefinition) error {
	registered, ok := c.defs.StepByID(step.ID)
	if !ok || registered.Key != step.Key {
		return &UnknownStepError{StepID: step.ID, Key: step.Key}
	}
	phase, err := c.defs.PhaseOf(registered)
	if err != nil {
		return fmt.Errorf("update step %q: %w", step.Key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.Phase = phase.Key
	c.ctx.Step = registered.Code
	return nil
}

// ClearStep resets phase and step to Placeholder.
func (c *Cursor) ClearStep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.Phase = Placeholder
	c.ctx.Step = Placeholder
}

// UpdateSource sets the source database name. Empty resets it.
func (c *Cursor) UpdateSource(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.SourceDBName = orPlaceholder(name)
}

// UpdateRun sets the run guid. Empty resets it.
func (c *Cursor) UpdateRun(guid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.RunGUID = orPlaceholder(guid)
}

// BindFields projects the context for a structured log sink. All four keys
// are always present.
func (c *Cursor) BindFields() map[string]string {
	lc := c.Context()
	return map[string]string{
		KeySourceDB: lc.SourceDBName,
		KeyRunGUID:  lc.RunGUID,
		KeyPhase:    lc.Phase,
		KeyStep:     lc.Step,
	}
}

// Attrs returns the context as slog attributes in a fixed order.
func (c *Cursor) Attrs() []slog.Attr {
	lc := c.Context()
	return []slog.Attr{
		slog.String(KeySourceDB, lc.SourceDBName),
		slog.String(KeyRunGUID, lc.RunGUID),
		slog.String(KeyPhase, lc.Phase),
		slog.String(KeyStep, lc.Step),
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
