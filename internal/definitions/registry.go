package definitions

import "strconv"

// Registry is the immutable definition graph. The zero value is empty and
// usable; build populated registries with Load.
type Registry struct {
	phases []PhaseDefinition
	steps  []StepDefinition

	phaseByID  map[int]PhaseDefinition
	phaseByKey map[string]PhaseDefinition
	stepByID   map[int]StepDefinition
	stepByKey  map[string]StepDefinition
}

// Load validates phases and steps and builds a Registry from them.
// The input slices are copied; later changes to them do not affect the registry.
func Load(phases []PhaseDefinition, steps []StepDefinition) (*Registry, error) {
	phaseByID := make(map[int]PhaseDefinition, len(phases))
	phaseByKey := make(map[string]PhaseDefinition, len(phases))
	for _, p := range phases {
		if _, ok := phaseByID[p.ID]; ok {
			return nil, &DuplicateKeyError{Kind: "phase", Field: "id", Value: strconv.Itoa(p.ID)}
		}
		if _, ok := phaseByKey[p.Key]; ok {
			return nil, &DuplicateKeyError{Kind: "phase", Field: "key", Value: p.Key}
		}
		phaseByID[p.ID] = p
		phaseByKey[p.Key] = p
	}

	stepByID := make(map[int]StepDefinition, len(steps))
	stepByKey := make(map[string]StepDefinition, len(steps))
	for _, s := range steps {
		if _, ok := stepByID[s.ID]; ok {
			return nil, &DuplicateKeyError{Kind: "step", Field: "id", Value: strconv.Itoa(s.ID)}
		}
		if _, ok := stepByKey[s.Key]; ok {
			return nil, &DuplicateKeyError{Kind: "step", Field: "key", Value: s.Key}
		}
		if _, ok := phaseByID[s.PhaseID]; !ok {
			return nil, &DanglingReferenceError{StepKey: s.Key, PhaseID: s.PhaseID}
		}
		stepByID[s.ID] = s
		stepByKey[s.Key] = s
	}

	return &Registry{
		phases:     append([]PhaseDefinition(nil), phases...),
		steps:      append([]StepDefinition(nil), steps...),
		phaseByID:  phaseByID,
		phaseByKey: phaseByKey,
		stepByID:   stepByID,
		stepByKey:  stepByKey,
	}, nil
}

// Phases returns all phases in declaration order.
func (r *Registry) Phases() []PhaseDefinition {
	return append([]PhaseDefinition(nil), r.phases...)
}

// Steps returns all steps in declaration order.
func (r *Registry) Steps() []StepDefinition {
	return append([]StepDefinition(nil), r.steps...)
}

func (r *Registry) PhaseByID(id int) (PhaseDefinition, bool) {
	p, ok := r.phaseByID[id]
	return p, ok
}

func (r *Registry) PhaseByKey(key string) (PhaseDefinition, bool) {
	p, ok := r.phaseByKey[key]
	return p, ok
}

func (r *Registry) StepByID(id int) (StepDefinition, bool) {
	s, ok := r.stepByID[id]
	return s, ok
}

func (r *Registry) StepByKey(key string) (StepDefinition, bool) {
	s, ok := r.stepByKey[key]
	return s, ok
}

// StepsInPhase returns the steps of the phase with the given key, in the order
// they were declared. Returns UnknownPhaseError for an undeclared key.
func (r *Registry) StepsInPhase(phaseKey string) ([]StepDefinition, error) {
	phase, ok := r.phaseByKey[phaseKey]
	if !ok {
		return nil, &UnknownPhaseError{Key: phaseKey}
	}
	var out []StepDefinition
	for _, s := range r.steps {
		if s.PhaseID == phase.ID {
			out = append(out, s)
		}
	}
	return out, nil
}

// PhaseOf returns the phase that owns step.
// Load already rejects dangling phase ids, so an error here means step did
// not come from this registry.
func (r *Registry) PhaseOf(step StepDefinition) (PhaseDefinition, error) {
	p, ok := r.phaseByID[step.PhaseID]
	if !ok {
		return PhaseDefinition{}, &DanglingReferenceError{StepKey: step.Key, PhaseID: step.PhaseID}
	}
	return p, nil
}
