// Package audit records what a pipeline run did.
//
// A RunAudit is created when a run begins and a StepAudit when each step
// begins. Both are persisted immediately with status STARTED, so a process
// that dies mid-run leaves a discoverable STARTED row behind. Each record is
// completed exactly once:
//
//	STARTED -> SUCCESS | FAILED | PARTIAL | SKIPPED
//
// Completing an already-terminal record is an InvalidStateTransitionError.
//
// Run totals (rows read, rows written, error count) are computed when the run
// completes by summing the run's step audits from the store. They are never
// accumulated incrementally.
//
// Persistence goes through the Store interface; internal/store provides the
// SQL implementation.
package audit
