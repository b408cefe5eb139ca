package queries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLText_ReadsFreshEachTime(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o644))

	q, err := NewQueryDefinition(root, "q", "q.sql", "", 1)
	require.NoError(t, err)

	text, err := q.SQLText()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)

	require.NoError(t, os.WriteFile(path, []byte("SELECT 2"), 0o644))
	text, err = q.SQLText()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", text)
}

func TestSQLText_FileRemovedAfterLoad(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o644))

	q, err := NewQueryDefinition(root, "q", "q.sql", "", 1)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = q.SQLText()
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "q", re.Name)
	assert.False(t, IsMissingQueryFile(err))
}

func TestNewQueryDefinition_AbsolutePathIgnoresRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abs.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0o644))

	q, err := NewQueryDefinition("/does/not/matter", "abs", path, "", 0)
	require.NoError(t, err)
	assert.Equal(t, path, q.FullPath())
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"sqlserver/02_user_tables.sql", "User Tables"},
		{"columns.sql", "Columns"},
		{"3_odd_prefix.sql", "3 Odd Prefix"},
		{"nested/dir/10_foreign_keys.sql", "Foreign Keys"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			q := QueryDefinition{Path: tt.path}
			assert.Equal(t, tt.want, q.DisplayName())
		})
	}
}
