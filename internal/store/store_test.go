package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doxetl/internal/dialect"
)

func TestOpenSQLite_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
	assert.Equal(t, "sqlite", s.Dialect().Key)
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		require.NoError(t, err, "iteration %d", i)
		s.Close()
	}

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM etl_run_audit").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestOpenSQLite_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpenSQLite_CreatesTables(t *testing.T) {
	s := createTestStore(t)

	for _, table := range []string{"etl_phase", "etl_step", "etl_run_audit", "etl_step_audit"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestOpen_RejectsDialectWithoutSchema(t *testing.T) {
	_, err := Open(context.Background(), dialect.Descriptor{
		Type:     dialect.TypeMySQL,
		Host:     "localhost",
		Database: "audit",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot back the audit store")
}

func TestOpen_UnregisteredType(t *testing.T) {
	_, err := Open(context.Background(), dialect.Descriptor{Type: "oracle"}, nil)
	require.Error(t, err)
}

func TestOpen_Postgres(t *testing.T) {
	host := os.Getenv("DOXETL_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("DOXETL_TEST_POSTGRES_HOST not set")
	}
	port := 5432
	s, err := Open(context.Background(), dialect.Descriptor{
		Type:        dialect.TypePostgres,
		Host:        host,
		Port:        &port,
		Database:    os.Getenv("DOXETL_TEST_POSTGRES_DB"),
		Credentials: dialect.Credentials{User: os.Getenv("DOXETL_TEST_POSTGRES_USER"), Password: os.Getenv("DOXETL_TEST_POSTGRES_PASSWORD")},
	}, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "postgres", s.Dialect().Key)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (x INT);\n\n-- trailing comment\nCREATE INDEX i ON a(x);\n-- end\n")
	assert.Equal(t, []string{
		"CREATE TABLE a (x INT)",
		"CREATE INDEX i ON a(x)",
	}, stmts)
}

func TestSplitStatements_SemicolonInComment(t *testing.T) {
	stmts := splitStatements("-- UTC; always\nCREATE TABLE a (x INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)"}, stmts)
}

func TestSchemaFilesSplitCleanly(t *testing.T) {
	for name, schema := range map[string]string{"sqlite": sqliteSchema, "postgres": postgresSchema} {
		stmts := splitStatements(schema)
		assert.Len(t, stmts, 9, name)
		for _, stmt := range stmts {
			assert.True(t, strings.HasPrefix(stmt, "CREATE "), "%s: statement starts with %q", name, firstLine(stmt))
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
