// Package source opens configured source databases and streams query
// results out of them in chunks.
package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/doxetl/internal/dialect"
	"github.com/roach88/doxetl/internal/queries"
)

// DefaultChunkSize is the number of rows delivered per chunk.
const DefaultChunkSize = 5000

// NoDriverError reports a source whose dialect has no database/sql driver
// linked into this binary.
type NoDriverError struct {
	Name    string
	Dialect string
}

func (e *NoDriverError) Error() string {
	return fmt.Sprintf("source %q: no driver linked for dialect %q", e.Name, e.Dialect)
}

// Chunk is a batch of rows from one query.
type Chunk struct {
	Columns []string
	Rows    [][]any
}

// Database is an open source database.
type Database struct {
	name    string
	desc    dialect.Descriptor
	dialect dialect.Dialect
	db      *sql.DB
}

// Open connects to the database described by desc.
func Open(ctx context.Context, desc dialect.Descriptor, res *dialect.Resolver) (*Database, error) {
	d, err := res.Get(desc.Type)
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", desc.Name, err)
	}
	if d.Driver == "" {
		return nil, &NoDriverError{Name: desc.Name, Dialect: d.Key}
	}
	dsn, err := driverDSN(res, desc)
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", desc.Name, err)
	}

	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", desc.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect source %q: %w", desc.Name, err)
	}
	return &Database{name: desc.Name, desc: desc, dialect: d, db: db}, nil
}

// Name is the configured name of the database.
func (d *Database) Name() string { return d.name }

// Dialect is the SQL dialect of the database.
func (d *Database) Dialect() dialect.Dialect { return d.dialect }

// DB returns the underlying sql.DB.
func (d *Database) DB() *sql.DB { return d.db }

// Close closes the connection pool.
func (d *Database) Close() error { return d.db.Close() }

// StreamQuery runs q, reading its SQL text from disk now, and calls fn with
// successive chunks of at most chunkSize rows. chunkSize <= 0 uses
// DefaultChunkSize. It returns the number of rows delivered. An error from
// fn stops the stream and is returned as is.
func (d *Database) StreamQuery(ctx context.Context, q queries.QueryDefinition, chunkSize int, fn func(Chunk) error, args ...any) (int64, error) {
	text, err := q.SQLText()
	if err != nil {
		return 0, err
	}
	return d.Stream(ctx, text, chunkSize, fn, args...)
}

// Stream is StreamQuery over literal SQL text.
func (d *Database) Stream(ctx context.Context, query string, chunkSize int, fn func(Chunk) error, args ...any) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", d.name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("columns %s: %w", d.name, err)
	}

	var total int64
	batch := make([][]any, 0, min(chunkSize, 1024))
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(Chunk{Columns: cols, Rows: batch}); err != nil {
			return err
		}
		batch = make([][]any, 0, cap(batch))
		return nil
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return total, fmt.Errorf("scan %s: %w", d.name, err)
		}
		batch = append(batch, vals)
		total++
		if len(batch) == chunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return total, fmt.Errorf("iterate %s: %w", d.name, err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
