package definitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPhases() []PhaseDefinition {
	return []PhaseDefinition{
		{ID: 1, Key: "extract", Name: "Extract"},
		{ID: 2, Key: "parse", Name: "Parse"},
		{ID: 3, Key: "transform", Name: "Transform"},
	}
}

func testSteps() []StepDefinition {
	return []StepDefinition{
		{ID: 12, PhaseID: 1, Key: "extract_sys_columns", Name: "Columns", Code: "extract.sys.columns"},
		{ID: 30, PhaseID: 3, Key: "transform_dim_objects", Name: "Objects", Code: "transform.dim_objects"},
		{ID: 11, PhaseID: 1, Key: "extract_sys_tables", Name: "Tables", Code: "extract.sys.tables"},
		{ID: 10, PhaseID: 1, Key: "extract_sys_schemas", Name: "Schemas", Code: "extract.sys.schemas"},
	}
}

func TestLoad_BuildsLookups(t *testing.T) {
	reg, err := Load(testPhases(), testSteps())
	require.NoError(t, err)

	p, ok := reg.PhaseByKey("transform")
	require.True(t, ok)
	assert.Equal(t, 3, p.ID)

	p, ok = reg.PhaseByID(2)
	require.True(t, ok)
	assert.Equal(t, "parse", p.Key)

	s, ok := reg.StepByKey("extract_sys_tables")
	require.True(t, ok)
	assert.Equal(t, 11, s.ID)

	s, ok = reg.StepByID(30)
	require.True(t, ok)
	assert.Equal(t, "transform.dim_objects", s.Code)

	_, ok = reg.StepByKey("missing")
	assert.False(t, ok)
}

func TestLoad_DuplicatePhaseKey(t *testing.T) {
	phases := append(testPhases(), PhaseDefinition{ID: 9, Key: "extract", Name: "Again"})

	_, err := Load(phases, nil)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	var de *DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "phase", de.Kind)
	assert.Equal(t, "key", de.Field)
	assert.Equal(t, "extract", de.Value)
}

func TestLoad_DuplicatePhaseID(t *testing.T) {
	phases := append(testPhases(), PhaseDefinition{ID: 1, Key: "load", Name: "Load"})

	_, err := Load(phases, nil)
	var de *DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "id", de.Field)
	assert.Equal(t, "1", de.Value)
}

func TestLoad_DuplicateStepKeyAndID(t *testing.T) {
	steps := append(testSteps(), StepDefinition{ID: 99, PhaseID: 1, Key: "extract_sys_tables", Name: "x", Code: "x"})
	_, err := Load(testPhases(), steps)
	var de *DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "step", de.Kind)
	assert.Equal(t, "key", de.Field)

	steps = append(testSteps(), StepDefinition{ID: 11, PhaseID: 1, Key: "other", Name: "x", Code: "x"})
	_, err = Load(testPhases(), steps)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "id", de.Field)
}

func TestLoad_DanglingPhaseReference(t *testing.T) {
	steps := append(testSteps(), StepDefinition{ID: 50, PhaseID: 7, Key: "orphan", Name: "Orphan", Code: "orphan"})

	_, err := Load(testPhases(), steps)
	require.Error(t, err)
	assert.True(t, IsDanglingReference(err))

	var de *DanglingReferenceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "orphan", de.StepKey)
	assert.Equal(t, 7, de.PhaseID)
}

func TestStepsInPhase_DeclarationOrder(t *testing.T) {
	reg, err := Load(testPhases(), testSteps())
	require.NoError(t, err)

	steps, err := reg.StepsInPhase("extract")
	require.NoError(t, err)

	var keys []string
	for _, s := range steps {
		assert.Equal(t, 1, s.PhaseID)
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"extract_sys_columns", "extract_sys_tables", "extract_sys_schemas"}, keys)
}

func TestStepsInPhase_EmptyAndUnknown(t *testing.T) {
	reg, err := Load(testPhases(), testSteps())
	require.NoError(t, err)

	steps, err := reg.StepsInPhase("parse")
	require.NoError(t, err)
	assert.Empty(t, steps)

	_, err = reg.StepsInPhase("publish")
	var ue *UnknownPhaseError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "publish", ue.Key)
}

func TestPhaseOf(t *testing.T) {
	reg, err := Load(testPhases(), testSteps())
	require.NoError(t, err)

	step, _ := reg.StepByKey("transform_dim_objects")
	phase, err := reg.PhaseOf(step)
	require.NoError(t, err)
	assert.Equal(t, "transform", phase.Key)

	_, err = reg.PhaseOf(StepDefinition{Key: "stray", PhaseID: 42})
	assert.True(t, IsDanglingReference(err))
}

func TestRegistry_IsolatedFromInput(t *testing.T) {
	phases := testPhases()
	steps := testSteps()
	reg, err := Load(phases, steps)
	require.NoError(t, err)

	phases[0].Key = "mutated"
	steps[0].Code = "mutated"

	assert.Equal(t, "extract", reg.Phases()[0].Key)
	assert.Equal(t, "extract.sys.columns", reg.Steps()[0].Code)

	out := reg.Phases()
	out[0].Name = "changed"
	assert.Equal(t, "Extract", reg.Phases()[0].Name)
}
