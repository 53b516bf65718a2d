package analysis

// ViolationType categorizes a drift violation.
type ViolationType string

// Violation types emitted by the drift detector.
const (
	ViolationLayer      ViolationType = "layer-violation"
	ViolationDependency ViolationType = "dependency-violation"
	ViolationPattern    ViolationType = "pattern-mismatch"
	ViolationConstraint ViolationType = "constraint-violation"
)

// Severity ranks how serious a violation is.
type Severity string

// Violation severities, lowest first.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// SeverityAtLeast reports whether s is at or above min in the severity
// ordering. Unknown severities rank below low.
func SeverityAtLeast(s, min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// SeverityForDistance maps a layer distance to a violation severity:
// adjacent layers are medium, a core to infrastructure jump is critical.
// Unknown distances (-1) rate low because the evidence is weak.
func SeverityForDistance(distance int) Severity {
	switch {
	case distance < 0:
		return SeverityLow
	case distance <= 1:
		return SeverityMedium
	default:
		return SeverityCritical
	}
}

// Violation is one detected divergence between declared intent and
// observed structure.
type Violation struct {
	ElementID string        `json:"element_id"`
	Type      ViolationType `json:"type"`
	Severity  Severity      `json:"severity"`
	Detail    string        `json:"detail"`

	// Related identifies the element on the other end of the violating
	// relationship, when one exists.
	Related string `json:"related,omitempty"`
	Line    int    `json:"line,omitempty"`
}
