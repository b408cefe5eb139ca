package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/doxetl/internal/audit"
	"github.com/roach88/doxetl/internal/dialect"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Schema version tracking (SQLite user_version):
// 1 - Initial audit schema
const currentSchemaVersion = 1

var _ audit.Store = (*Store)(nil)

// Store provides durable storage for run and step audits.
type Store struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// OpenSQLite creates or opens a SQLite audit database at path.
// Applies required pragmas and the schema automatically.
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*Store, error) {
	return Open(context.Background(), dialect.Descriptor{Type: dialect.TypeSQLite, Database: path}, nil)
}

// Open connects to the audit database described by desc. res resolves the
// descriptor's dialect; nil uses the default resolver.
//
// Only dialects with a linked database/sql driver and a bundled schema
// (sqlite, postgres) can back the audit store.
func Open(ctx context.Context, desc dialect.Descriptor, res *dialect.Resolver) (*Store, error) {
	if res == nil {
		var err error
		if res, err = dialect.NewDefaultResolver(); err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
	}

	d, err := res.Get(desc.Type)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	schema, ok := schemaFor(d)
	if !ok || d.Driver == "" {
		return nil, fmt.Errorf("open audit store: dialect %q cannot back the audit store", d.Key)
	}

	dsn, err := res.ConnectionString(desc)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}

	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.Key == "sqlite" {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := applySchema(ctx, db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if d.Key == "sqlite" {
		if err := setSchemaVersion(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db, dialect: d}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect is the SQL dialect of the backing database.
func (s *Store) Dialect() dialect.Dialect {
	return s.dialect
}

// q rebinds a '?' query to the store's dialect.
func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

func schemaFor(d dialect.Dialect) (string, bool) {
	switch d.Key {
	case "sqlite":
		return sqliteSchema, true
	case "postgres":
		return postgresSchema, true
	}
	return "", false
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist, one statement at a time.
// This function is idempotent.
func applySchema(ctx context.Context, db *sql.DB, schema string) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return nil
}

func setSchemaVersion(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("audit schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// splitStatements drops "--" comment lines and splits what remains on ';'.
// The schema files never contain ';' in literals.
func splitStatements(schema string) []string {
	var sqlLines []string
	for _, line := range strings.Split(schema, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			sqlLines = append(sqlLines, line)
		}
	}

	var out []string
	for _, part := range strings.Split(strings.Join(sqlLines, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
