package definitions

// PhaseDefinition is a top-level grouping of pipeline work (extract, load, ...).
type PhaseDefinition struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// StepDefinition is a single addressable unit of work within a phase.
//
// Code is the dotted identifier stamped on log lines (e.g. "extract.sys.tables").
// Inactive steps stay in the graph but are recorded as skipped by the runner.
type StepDefinition struct {
	ID          int    `json:"id"`
	PhaseID     int    `json:"phase_id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Inactive    bool   `json:"inactive,omitempty"`
}

// Document is the decoded shape of a definition source.
type Document struct {
	Phases []PhaseDefinition `json:"phases"`
	Steps  []StepDefinition  `json:"steps"`
}
