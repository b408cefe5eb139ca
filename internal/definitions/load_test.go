package definitions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_CUE(t *testing.T) {
	reg, err := LoadFile(filepath.Join("testdata", "definitions.cue"))
	require.NoError(t, err)

	assert.Len(t, reg.Phases(), 4)
	assert.Len(t, reg.Steps(), 7)

	load, ok := reg.PhaseByKey("load")
	require.True(t, ok)
	assert.Equal(t, "Load into the documentation database", load.Description)

	parse, ok := reg.StepByKey("parse_view_definitions")
	require.True(t, ok)
	assert.True(t, parse.Inactive)

	steps, err := reg.StepsInPhase("extract")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, "extract.sys.schemas", steps[0].Code)
	assert.Equal(t, "extract.sys.columns", steps[2].Code)
}

func TestLoadFile_YAML(t *testing.T) {
	reg, err := LoadFile(filepath.Join("testdata", "definitions.yaml"))
	require.NoError(t, err)

	step, ok := reg.StepByKey("transform_dim_objects")
	require.True(t, ok)
	phase, err := reg.PhaseOf(step)
	require.NoError(t, err)
	assert.Equal(t, "transform", phase.Key)
}

func TestLoadFile_JSON(t *testing.T) {
	reg, err := LoadFile(filepath.Join("testdata", "definitions.json"))
	require.NoError(t, err)

	phase, ok := reg.PhaseByID(1)
	require.True(t, ok)
	assert.Equal(t, "Source metadata extraction", phase.Description)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read definitions")
}

func TestDecode_RejectsUnknownField(t *testing.T) {
	src := []byte(`
phases: [{id: 1, key: "extract", name: "Extract", colour: "red"}]
steps: []
`)
	_, err := Decode("bad.cue", src)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad.cue", se.Path)
}

func TestDecode_RejectsWrongType(t *testing.T) {
	src := []byte(`{"phases": [{"id": "one", "key": "extract", "name": "Extract"}], "steps": []}`)
	_, err := Decode("bad.json", src)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
}

func TestDecode_RejectsMissingRequiredField(t *testing.T) {
	src := []byte(`
phases:
  - id: 1
    key: extract
    name: Extract
steps:
  - id: 11
    phase_id: 1
    key: extract_sys_tables
    name: Extract tables
`)
	_, err := Decode("bad.yaml", src)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
}

func TestDecode_UnsupportedExtension(t *testing.T) {
	_, err := Decode("defs.toml", []byte(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestLoadFile_DanglingReferenceFromDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.yaml")
	src := `
phases:
  - {id: 1, key: extract, name: Extract}
steps:
  - {id: 11, phase_id: 2, key: orphan, name: Orphan, code: orphan}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	_, err := LoadFile(path)
	assert.True(t, IsDanglingReference(err))
}
