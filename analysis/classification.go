package analysis

// ClassificationMethod records how a classification was produced.
type ClassificationMethod string

// Classification methods. Heuristic results come from deterministic
// signal voting; ai-assisted results come from an LLM collaborator and
// only replace heuristic results that fell below the confidence threshold.
const (
	MethodHeuristic  ClassificationMethod = "heuristic"
	MethodAIAssisted ClassificationMethod = "ai-assisted"
)

// Classification is the inferred architectural position of one element.
// An element has at most one active classification; a newer one replaces
// the old.
type Classification struct {
	ElementID  string               `json:"element_id"`
	Layer      Layer                `json:"layer"`
	Role       string               `json:"role,omitempty"`
	Pattern    string               `json:"pattern,omitempty"`
	Confidence float64              `json:"confidence"`
	Method     ClassificationMethod `json:"method"`
}
