// Package dialect turns abstract database descriptors into connection strings
// and resolves each database type to the SQL dialect used to read and write
// queries against it.
//
// Connection strings are a pure function of the descriptor. Dialects are
// resolved once, when a Resolver is built: every configured type is run
// through an ordered rule table and must land on a known dialect, or the
// build fails. A Resolver never discovers a missing dialect at query time.
package dialect
