package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doxetl/internal/audit"
)

const testDefinitions = `phases: [
	{id: 1, key: "extract", name: "Extract"},
	{id: 2, key: "load", name: "Load"},
]

steps: [
	{id: 10, phase_id: 1, key: "extract_tables", name: "Extract tables", code: "extract.sqlite.tables"},
	{id: 11, phase_id: 1, key: "extract_views", name: "Extract views", code: "extract.sqlite.views", inactive: true},
	{id: 20, phase_id: 2, key: "load_docs", name: "Load documentation", code: "load.docs.objects"},
]
`

const testQueries = `catalog:
  tables:
    path: tables.sql
    description: user tables
    order: 10
  indexes:
    path: indexes.sql
    description: explicit indexes
    order: 20
broken:
  missing:
    path: missing_table.sql
    order: 1
`

// project is a doxetl project in a temp dir with a populated SQLite source.
type project struct {
	dir    string
	config string
}

// newProject writes a config binding extract_tables to the catalog pipeline.
// extraStepQueries are appended to the step_queries block.
func newProject(t *testing.T, extraStepQueries ...string) *project {
	t.Helper()
	dir := t.TempDir()

	cfg := `app_name: doxetl-test
job_name: docs-nightly
environment: test
definitions_file: definitions.cue
queries_file: queries.yaml
queries_root: sql
audit_db:
  name: audit
  type: sqlite
  database: audit.db
source_dbs:
  - name: docs
    type: sqlite
    database: source.db
step_queries:
  extract_tables: catalog
`
	for _, line := range extraStepQueries {
		cfg += "  " + line + "\n"
	}
	cfg += `log:
  level: error
`

	writeFile(t, filepath.Join(dir, "doxetl.yaml"), cfg)
	writeFile(t, filepath.Join(dir, "definitions.cue"), testDefinitions)
	writeFile(t, filepath.Join(dir, "queries.yaml"), testQueries)
	writeFile(t, filepath.Join(dir, "sql", "tables.sql"), "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name\n")
	writeFile(t, filepath.Join(dir, "sql", "indexes.sql"), "SELECT name FROM sqlite_master WHERE type = 'index' ORDER BY name\n")
	writeFile(t, filepath.Join(dir, "sql", "missing_table.sql"), "SELECT * FROM no_such_table\n")

	db, err := sql.Open("sqlite3", filepath.Join(dir, "source.db"))
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		"CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE gadgets (id INTEGER PRIMARY KEY)",
		"CREATE INDEX idx_widgets_name ON widgets(name)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	return &project{dir: dir, config: filepath.Join(dir, "doxetl.yaml")}
}

// addSource appends a source database entry to the project config.
func (p *project) addSource(t *testing.T, name, typ string) {
	t.Helper()
	data, err := os.ReadFile(p.config)
	require.NoError(t, err)
	entry := "source_dbs:\n  - name: " + name + "\n    type: " + typ + "\n    host: db01\n    database: dox\n"
	cfg := strings.Replace(string(data), "source_dbs:\n", entry, 1)
	require.NoError(t, os.WriteFile(p.config, []byte(cfg), 0o644))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (p *project) opts(format string) *RootOptions {
	return &RootOptions{Format: format, Config: p.config}
}

// runOpts returns run options with deterministic guids and clock.
func (p *project) runOpts(format string, guids ...string) *RunOptions {
	return &RunOptions{
		RootOptions:   p.opts(format),
		Trigger:       string(audit.TriggerScheduled),
		GUIDGenerator: audit.NewFixedGenerator(guids...),
		Clock:         &audit.StepClock{Start: time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC), Step: time.Second},
	}
}

// execute runs cmd with args, returning stdout and the command error.
func execute(cmd *cobra.Command, args ...string) (*bytes.Buffer, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

func decodeResponse(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "output: %s", buf.String())
	return resp
}

// dataMap re-decodes the response payload as a generic map.
func dataMap(t *testing.T, resp CLIResponse) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}
