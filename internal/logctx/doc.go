// Package logctx tracks the (source, run, phase, step) position of a pipeline
// run and stamps it onto every structured log record.
//
// A Cursor belongs to one run. Fields that are not known yet read as
// Placeholder, never as missing keys.
package logctx
