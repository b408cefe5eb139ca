package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/doxetl/internal/audit"
	"github.com/roach88/doxetl/internal/definitions"
)

// createTestStore creates a new SQLite store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createSeededStore creates a store with testRegistry already seeded.
func createSeededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	require.NoError(t, s.SeedDefinitions(context.Background(), testRegistry(t)))
	return s
}

func testRegistry(t *testing.T) *definitions.Registry {
	t.Helper()
	reg, err := definitions.Load(
		[]definitions.PhaseDefinition{
			{ID: 1, Key: "extract", Name: "Extract"},
			{ID: 2, Key: "load", Name: "Load", Description: "write targets"},
		},
		[]definitions.StepDefinition{
			{ID: 10, PhaseID: 1, Key: "extract_sys_tables", Name: "Tables", Code: "extract.sys.tables"},
			{ID: 11, PhaseID: 1, Key: "extract_sys_columns", Name: "Columns", Code: "extract.sys.columns", Inactive: true},
			{ID: 20, PhaseID: 2, Key: "load_dim_table", Name: "Dim table", Code: "load.dim.table"},
		},
	)
	require.NoError(t, err)
	return reg
}

var testStart = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// createTestRun creates a STARTED run with minimal required fields.
func createTestRun(t *testing.T, s *Store, guid string, start time.Time) *audit.RunAudit {
	t.Helper()
	run := &audit.RunAudit{
		GUID:        guid,
		JobName:     "dox-etl",
		Environment: audit.EnvProd,
		TriggerType: audit.TriggerScheduled,
		StartTime:   start,
		Status:      audit.StatusStarted,
	}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}

// createTestStep creates a STARTED step audit under run.
func createTestStep(t *testing.T, s *Store, run *audit.RunAudit, phaseID, stepID int) *audit.StepAudit {
	t.Helper()
	step := &audit.StepAudit{
		RunID:     run.ID,
		PhaseID:   phaseID,
		StepID:    stepID,
		StartTime: run.StartTime.Add(time.Second),
		Status:    audit.StatusStarted,
	}
	require.NoError(t, s.CreateStep(context.Background(), step))
	return step
}

func ptr[T any](v T) *T { return &v }
