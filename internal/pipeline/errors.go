package pipeline

import (
	"errors"
	"fmt"
)

// StepError wraps a step failure with the phase and step it happened in.
type StepError struct {
	Phase string
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s/%s failed: %v", e.Phase, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// IsStepError reports whether err is (or wraps) a StepError.
func IsStepError(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}

// errReportedFailed is used when a handler returns FAILED without an error.
var errReportedFailed = errors.New("handler reported FAILED")
