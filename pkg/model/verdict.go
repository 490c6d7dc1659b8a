package model

// Verdict is the structured judgement returned by the remote idea validator
type Verdict struct {
	Valid            bool     `json:"valid" jsonschema:"true if the text describes a concrete business idea"`
	Reason           string   `json:"reason" jsonschema:"short reason for the judgement"`
	ImprovementHints []string `json:"improvementHints" jsonschema:"questions that would make the idea more concrete"`
}

// ValidationSource records which path produced a ValidationResult
type ValidationSource string

const (
	SourceExisting          ValidationSource = "existing"
	SourceCombined          ValidationSource = "combined"
	SourceHeuristicFallback ValidationSource = "heuristic_fallback"
)

// ValidationResult is the outcome of one validation attempt. Preview is set on
// acceptance, GateMessage on rejection.
type ValidationResult struct {
	Valid       bool             `json:"valid"`
	Preview     string           `json:"preview,omitempty"`
	GateMessage string           `json:"gateMessage,omitempty"`
	Glitch      bool             `json:"glitch,omitempty"`
	Hints       []string         `json:"hints,omitempty"`
	Source      ValidationSource `json:"source"`
}
