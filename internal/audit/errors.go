package audit

import (
	"errors"
	"fmt"
)

// InvalidStateTransitionError reports an attempt to move a run or step out of
// a terminal state, or into a state that is not terminal.
type InvalidStateTransitionError struct {
	Record string // "run" or "step"
	ID     int64
	From   Status
	To     Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s (id=%d)", e.Record, e.From, e.To, e.ID)
}

// IsInvalidTransition reports whether err is (or wraps) an InvalidStateTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidStateTransitionError
	return errors.As(err, &te)
}
