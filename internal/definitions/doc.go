// Package definitions holds the static definition graph of the ETL pipeline:
// the phases it is made of and the steps inside each phase.
//
// A Registry is built once at process start with Load (or LoadFile) and is
// read-only afterwards. Construction validates the whole graph up front:
//   - phase ids and keys are unique
//   - step ids and keys are unique
//   - every step's phase_id names a declared phase
//
// Step order within a phase is declaration order. There is no separate sort
// key; the order of the steps list in the source document is authoritative.
//
// Definition documents may be CUE, YAML or JSON. All three are compiled to a
// CUE value and unified with the embedded schema before decoding, so field
// typos and wrong types are rejected the same way regardless of format.
package definitions
