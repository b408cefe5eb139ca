package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// marshalExtra converts a step's extra context to JSON TEXT for storage.
// An empty context is stored as NULL.
func marshalExtra(extra map[string]any) (*string, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("marshal extra context: %w", err)
	}
	s := string(data)
	return &s, nil
}

// unmarshalExtra parses stored extra context. Numbers come back as float64.
func unmarshalExtra(data sql.NullString) (map[string]any, error) {
	if !data.Valid || data.String == "" {
		return nil, nil
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(data.String), &extra); err != nil {
		return nil, fmt.Errorf("unmarshal extra context: %w", err)
	}
	return extra, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	return &ni.Int64
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// nullable passes nil pointers to the driver as SQL NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
