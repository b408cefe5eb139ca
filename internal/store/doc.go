// Package store persists ETL audit records in SQLite or PostgreSQL.
//
// The schema has four tables:
//   - etl_phase, etl_step: seeded copies of the definition registry, so audit
//     rows can reference phases and steps by foreign key
//   - etl_run_audit: one row per pipeline run, unique on etl_run_guid
//   - etl_step_audit: one row per executed step instance
//
// Run and step rows are append-only: each is inserted once as STARTED and
// updated once to its terminal status. Updates are guarded on the row still
// being STARTED, so concurrent runs never touch each other's rows.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// SQL is written once with '?' markers and rebound to the backend's dialect.
package store
