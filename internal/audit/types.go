package audit

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a run or step.
type Status string

const (
	StatusStarted Status = "STARTED"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusPartial Status = "PARTIAL"
	StatusSkipped Status = "SKIPPED"
)

// Terminal reports whether s is one of the final states.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusPartial, StatusSkipped:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	return s == StatusStarted || s.Terminal()
}

// Environment is where a run executes.
type Environment string

const (
	EnvDev  Environment = "DEV"
	EnvTest Environment = "TEST"
	EnvQA   Environment = "QA"
	EnvProd Environment = "PROD"
)

// ParseEnvironment accepts the canonical names and a few long forms.
func ParseEnvironment(s string) (Environment, error) {
	switch s {
	case "DEV", "dev", "development":
		return EnvDev, nil
	case "TEST", "test", "testing":
		return EnvTest, nil
	case "QA", "qa":
		return EnvQA, nil
	case "PROD", "prod", "production":
		return EnvProd, nil
	}
	return "", fmt.Errorf("unknown environment %q", s)
}

// TriggerType is what started a run.
type TriggerType string

const (
	TriggerScheduled TriggerType = "SCHEDULED"
	TriggerManual    TriggerType = "MANUAL"
	TriggerAPI       TriggerType = "API"
)

func ParseTriggerType(s string) (TriggerType, error) {
	switch TriggerType(s) {
	case TriggerScheduled, TriggerManual, TriggerAPI:
		return TriggerType(s), nil
	}
	return "", fmt.Errorf("unknown trigger type %q", s)
}

// RunAudit is the record of one pipeline invocation.
type RunAudit struct {
	ID               int64
	GUID             string
	JobName          string
	Environment      Environment
	TriggerType      TriggerType
	TriggeredBy      *string
	StartTime        time.Time
	EndTime          *time.Time
	Status           Status
	TotalRowsRead    *int64
	TotalRowsWritten *int64
	ErrorCount       *int64
	Comments         *string
}

// StepAudit is the record of one executed step instance within a run.
type StepAudit struct {
	ID           int64
	RunID        int64
	PhaseID      int
	StepID       int
	SourceSystem *string
	SourceObject *string
	TargetSystem *string
	TargetObject *string
	RowsRead     *int64
	RowsWritten  *int64
	StartTime    time.Time
	EndTime      *time.Time
	Status       Status
	ErrorMessage *string
	ExtraContext map[string]any
}
