package queries

import (
	"errors"
	"fmt"
)

// MissingQueryFileError reports a query whose file is absent or not a regular
// readable file when the registry is loaded.
type MissingQueryFileError struct {
	Name     string
	FullPath string
	Err      error
}

func (e *MissingQueryFileError) Error() string {
	return fmt.Sprintf("query %q: file %s not readable: %v", e.Name, e.FullPath, e.Err)
}

func (e *MissingQueryFileError) Unwrap() error { return e.Err }

// InvalidQueryError reports a malformed leaf or group in the registry document.
type InvalidQueryError struct {
	Name   string
	Line   int
	Reason string
}

func (e *InvalidQueryError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("query %q (line %d): %s", e.Name, e.Line, e.Reason)
	}
	return fmt.Sprintf("query %q: %s", e.Name, e.Reason)
}

// UnknownPipelineError reports a requested pipeline the document does not define.
type UnknownPipelineError struct {
	Pipeline string
}

func (e *UnknownPipelineError) Error() string {
	return fmt.Sprintf("unknown query pipeline %q", e.Pipeline)
}

// ReadError is returned by QueryDefinition.SQLText when the file cannot be
// read at access time. It fails only that read, never the registry.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read query %q: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IsMissingQueryFile reports whether err is (or wraps) a MissingQueryFileError.
func IsMissingQueryFile(err error) bool {
	var me *MissingQueryFileError
	return errors.As(err, &me)
}
