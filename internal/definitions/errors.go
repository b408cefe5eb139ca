package definitions

import (
	"errors"
	"fmt"
)

// DuplicateKeyError reports two phases or two steps sharing an id or key.
type DuplicateKeyError struct {
	Kind  string // "phase" or "step"
	Field string // "id" or "key"
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s %s %q", e.Kind, e.Field, e.Value)
}

// DanglingReferenceError reports a step whose phase_id names no phase.
type DanglingReferenceError struct {
	StepKey string
	PhaseID int
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("step %q references unknown phase id %d", e.StepKey, e.PhaseID)
}

// UnknownPhaseError reports a lookup by a phase key that was never declared.
type UnknownPhaseError struct {
	Key string
}

func (e *UnknownPhaseError) Error() string {
	return fmt.Sprintf("unknown phase %q", e.Key)
}

// IsDuplicateKey reports whether err is (or wraps) a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var de *DuplicateKeyError
	return errors.As(err, &de)
}

// IsDanglingReference reports whether err is (or wraps) a DanglingReferenceError.
func IsDanglingReference(err error) bool {
	var de *DanglingReferenceError
	return errors.As(err, &de)
}
