package queries

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// QueryDefinition is one named SQL file in a pipeline.
type QueryDefinition struct {
	Name        string
	Path        string
	Description string
	Order       int

	fullPath string
}

// NewQueryDefinition resolves path against root and checks that the file can
// be opened. A missing or unreadable file fails with MissingQueryFileError.
func NewQueryDefinition(root, name, path, description string, order int) (QueryDefinition, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, path)
	}

	info, err := os.Stat(full)
	if err != nil {
		return QueryDefinition{}, &MissingQueryFileError{Name: name, FullPath: full, Err: err}
	}
	if !info.Mode().IsRegular() {
		return QueryDefinition{}, &MissingQueryFileError{Name: name, FullPath: full, Err: fmt.Errorf("not a regular file")}
	}
	f, err := os.Open(full)
	if err != nil {
		return QueryDefinition{}, &MissingQueryFileError{Name: name, FullPath: full, Err: err}
	}
	f.Close()

	return QueryDefinition{
		Name:        name,
		Path:        path,
		Description: description,
		Order:       order,
		fullPath:    full,
	}, nil
}

// FullPath is the query file's location with the queries root applied.
func (q QueryDefinition) FullPath() string {
	return q.fullPath
}

// SQLText reads the query file. It is not cached.
func (q QueryDefinition) SQLText() (string, error) {
	data, err := os.ReadFile(q.fullPath)
	if err != nil {
		return "", &ReadError{Name: q.Name, Err: err}
	}
	return string(data), nil
}

var orderPrefix = regexp.MustCompile(`^[0-9]{2}_`)

// DisplayName is a human label derived from the query file name:
// "01_user_tables.sql" becomes "User Tables".
func (q QueryDefinition) DisplayName() string {
	base := filepath.Base(q.Path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = orderPrefix.ReplaceAllString(base, "")
	return cases.Title(language.English).String(strings.ReplaceAll(base, "_", " "))
}
