// Package pipeline executes the phases and steps of the definition registry
// for one source database, recording every step in the audit store.
//
// A Runner walks phases in declaration order and each phase's steps in
// declaration order. For every step it:
//   - moves the logging cursor (phase and step together)
//   - persists a STARTED step audit
//   - invokes the handler registered under the step key
//   - persists the terminal status with rows, timing and error
//
// A handler error is recorded as FAILED, logged, and returned as a *StepError
// after the run itself is completed FAILED. Nothing is retried.
//
// One Run call owns one cursor, so a Runner may serve concurrent runs.
package pipeline
