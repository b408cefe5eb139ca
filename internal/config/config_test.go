package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doxetl/internal/audit"
	"github.com/roach88/doxetl/internal/definitions"
	"github.com/roach88/doxetl/internal/dialect"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{EnvEnvironment, EnvLogLevel, EnvLogFormat, EnvLogFile, EnvAuditDB, EnvStreamChunkSize} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doxetl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimal = `
definitions_file: defs.cue
queries_file: queries.yaml
queries_root: sql
`

func TestLoad_Full(t *testing.T) {
	clearEnv(t)
	path, err := filepath.Abs("testdata/doxetl.yaml")
	require.NoError(t, err)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "doxetl-test", cfg.AppName)
	assert.Equal(t, DefaultJobName, cfg.JobName)
	assert.Equal(t, audit.EnvProd, cfg.Environment)
	assert.Equal(t, filepath.Join(dir, "definitions.cue"), cfg.DefinitionsFile)
	assert.Equal(t, filepath.Join(dir, "queries.yaml"), cfg.QueriesFile)
	assert.Equal(t, filepath.Join(dir, "sql"), cfg.QueriesRoot)
	assert.Equal(t, filepath.Join(dir, "audit.db"), cfg.AuditDB.Database)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, 250, cfg.StreamChunkSize)
	assert.Equal(t, map[string]string{"extract_sys_tables": "docdb"}, cfg.StepQueries)

	require.Len(t, cfg.SourceDBs, 3)
	assert.Equal(t, "crm", cfg.SourceDBs[0].Name)
	assert.Equal(t, dialect.TypeSQLServer, cfg.SourceDBs[0].Type)
	assert.Equal(t, "etl", cfg.SourceDBs[0].Credentials.User)
	assert.Equal(t, "warehouse", cfg.SourceDBs[1].Name)
	require.NotNil(t, cfg.SourceDBs[1].Port)
	assert.Equal(t, 5432, *cfg.SourceDBs[1].Port)
	assert.Equal(t, filepath.Join(dir, "local.db"), cfg.SourceDBs[2].Database)

	assert.Len(t, cfg.Descriptors(), 4)
	assert.Equal(t, dir, cfg.Dir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, minimal)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultAppName, cfg.AppName)
	assert.Equal(t, audit.EnvDev, cfg.Environment)
	assert.Equal(t, dialect.TypeSQLite, cfg.AuditDB.Type)
	assert.Equal(t, filepath.Join(filepath.Dir(path), DefaultAuditDB), cfg.AuditDB.Database)
	assert.Equal(t, DefaultStreamChunkSize, cfg.StreamChunkSize)
	assert.Empty(t, cfg.SourceDBs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvEnvironment, "QA")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFormat, "text")
	t.Setenv(EnvLogFile, "/var/log/doxetl.log")
	t.Setenv(EnvAuditDB, "/data/audit.db")
	t.Setenv(EnvStreamChunkSize, "10")

	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, audit.EnvQA, cfg.Environment)
	assert.Equal(t, LogConfig{Level: "warn", Format: "text", File: "/var/log/doxetl.log"}, cfg.Log)
	assert.Equal(t, "/data/audit.db", cfg.AuditDB.Database)
	assert.Equal(t, 10, cfg.StreamChunkSize)
}

func TestLoad_BadChunkSizeEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStreamChunkSize, "lots")

	_, err := Load(writeConfig(t, minimal))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvStreamChunkSize)
}

func TestLoad_UnknownField(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, minimal+"retries: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries")
}

func TestLoad_Empty(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, `
environment: staging
stream_chunk_size: -1
source_dbs:
  - name: a
    type: sqlite
    database: a.db
  - name: a
    type: sqlite
    database: b.db
  - type: memory
`))
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	msg := err.Error()
	for _, want := range []string{
		"definitions_file is required",
		"queries_file is required",
		"queries_root is required",
		`unknown environment "staging"`,
		"stream_chunk_size must be positive",
		`duplicate name "a"`,
		"source_dbs[2]: name is required",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateStepQueries(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(minimal + `
step_queries:
  extract_sys_tables: docdb
  ghost_step: docdb
  extract_sys_columns: nowhere
`))
	require.NoError(t, err)

	defs, err := definitions.Load(
		[]definitions.PhaseDefinition{{ID: 1, Key: "extract", Name: "Extract"}},
		[]definitions.StepDefinition{
			{ID: 1, PhaseID: 1, Key: "extract_sys_tables", Name: "Tables", Code: "extract.sys.tables"},
			{ID: 2, PhaseID: 1, Key: "extract_sys_columns", Name: "Columns", Code: "extract.sys.columns"},
		},
	)
	require.NoError(t, err)

	err = cfg.ValidateStepQueries(defs, []string{"docdb"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown step "ghost_step"`)
	assert.Contains(t, err.Error(), `unknown query pipeline "nowhere"`)
	assert.NotContains(t, err.Error(), "extract_sys_tables")

	delete(cfg.StepQueries, "ghost_step")
	delete(cfg.StepQueries, "extract_sys_columns")
	assert.NoError(t, cfg.ValidateStepQueries(defs, []string{"docdb"}))
}

func TestSourceDB(t *testing.T) {
	cfg := &Config{SourceDBs: []dialect.Descriptor{{Name: "crm", Type: dialect.TypeSQLServer}}}

	d, err := cfg.SourceDB("crm")
	require.NoError(t, err)
	assert.Equal(t, dialect.TypeSQLServer, d.Type)

	_, err = cfg.SourceDB("hr")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOXETL_ENVIRONMENT=TEST\n"), 0o644))
	t.Setenv(EnvEnvironment, "DEV")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "TEST", os.Getenv(EnvEnvironment))

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
