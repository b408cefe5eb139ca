package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doxetl/internal/audit"
)

func TestCreateRun_AssignsID(t *testing.T) {
	s := createTestStore(t)

	a := createTestRun(t, s, "guid-a", testStart)
	b := createTestRun(t, s, "guid-b", testStart)

	assert.NotZero(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateRun_DuplicateGUID(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "guid-a", testStart)

	err := s.CreateRun(context.Background(), &audit.RunAudit{
		GUID:        "guid-a",
		JobName:     "dox-etl",
		Environment: audit.EnvDev,
		TriggerType: audit.TriggerManual,
		StartTime:   testStart,
		Status:      audit.StatusStarted,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE")
}

func TestFinishRun_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run := createTestRun(t, s, "guid-a", testStart)

	end := testStart.Add(time.Minute)
	done := *run
	done.EndTime = &end
	done.Status = audit.StatusSuccess
	done.TotalRowsRead = ptr(int64(120))
	done.TotalRowsWritten = ptr(int64(0))
	done.ErrorCount = ptr(int64(0))

	require.NoError(t, s.FinishRun(ctx, done))

	again := done
	again.Status = audit.StatusFailed
	err := s.FinishRun(ctx, again)
	var te *audit.InvalidStateTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "run", te.Record)
	assert.Equal(t, audit.StatusSuccess, te.From)
	assert.Equal(t, audit.StatusFailed, te.To)

	got, err := s.RunByGUID(ctx, "guid-a")
	require.NoError(t, err)
	assert.Equal(t, audit.StatusSuccess, got.Status)
}

func TestFinishRun_Missing(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), audit.RunAudit{ID: 42, Status: audit.StatusSuccess})
	assert.Error(t, err)
}

func TestCreateStep_RequiresSeededDefinitions(t *testing.T) {
	s := createTestStore(t)
	run := createTestRun(t, s, "guid-a", testStart)

	err := s.CreateStep(context.Background(), &audit.StepAudit{
		RunID:     run.ID,
		PhaseID:   1,
		StepID:    10,
		StartTime: testStart,
		Status:    audit.StatusStarted,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOREIGN KEY")
}

func TestFinishStep_PersistsOutcome(t *testing.T) {
	ctx := context.Background()
	s := createSeededStore(t)
	run := createTestRun(t, s, "guid-a", testStart)
	step := createTestStep(t, s, run, 1, 10)

	end := step.StartTime.Add(2 * time.Second)
	done := *step
	done.EndTime = &end
	done.Status = audit.StatusFailed
	done.RowsRead = ptr(int64(7))
	done.ErrorMessage = ptr("connection reset")
	done.ExtraContext = map[string]any{"duration_ms": 2000}

	require.NoError(t, s.FinishStep(ctx, done))
	err := s.FinishStep(ctx, done)
	assert.True(t, audit.IsInvalidTransition(err), "second finish: %v", err)

	steps, err := s.StepAudits(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	got := steps[0]
	assert.Equal(t, audit.StatusFailed, got.Status)
	require.NotNil(t, got.EndTime)
	assert.True(t, end.Equal(*got.EndTime))
	assert.Equal(t, int64(7), *got.RowsRead)
	assert.Nil(t, got.RowsWritten)
	assert.Equal(t, "connection reset", *got.ErrorMessage)
	assert.Equal(t, map[string]any{"duration_ms": float64(2000)}, got.ExtraContext)
}

func TestFinishRun_MissingRow(t *testing.T) {
	s := createTestStore(t)
	end := testStart.Add(time.Minute)

	err := s.FinishRun(context.Background(), audit.RunAudit{ID: 999, EndTime: &end, Status: audit.StatusSuccess})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.False(t, audit.IsInvalidTransition(err))
}
