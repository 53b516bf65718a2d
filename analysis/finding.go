package analysis

// RiskLevel buckets a hallucination finding's combined confidence.
type RiskLevel string

// Risk levels, lowest first.
const (
	RiskMinimal  RiskLevel = "minimal"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskMinimal:  0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// RiskAtLeast reports whether r is at or above min in the risk ordering.
func RiskAtLeast(r, min RiskLevel) bool {
	return riskRank[r] >= riskRank[min]
}

// RiskForConfidence maps a combined suspicion confidence in [0,1] to a
// risk level. The thresholds are fixed so risk is monotonic in
// confidence.
func RiskForConfidence(confidence float64) RiskLevel {
	switch {
	case confidence < 0.2:
		return RiskMinimal
	case confidence < 0.4:
		return RiskLow
	case confidence < 0.6:
		return RiskMedium
	case confidence < 0.8:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// LayerResult is one detection layer's verdict on an element.
type LayerResult struct {
	LayerName      string   `json:"layer_name"`
	SuspicionScore float64  `json:"suspicion_score"`
	Weight         float64  `json:"weight"`
	Evidence       []string `json:"evidence,omitempty"`
}

// HallucinationFinding is the combined verdict of all detection layers
// that ran for one element.
type HallucinationFinding struct {
	ElementID          string        `json:"element_id"`
	LayerResults       []LayerResult `json:"layer_results"`
	CombinedConfidence float64       `json:"combined_confidence"`
	RiskLevel          RiskLevel     `json:"risk_level"`
}

// CombineLayers computes the weighted average suspicion over the layers
// that ran. Layers that did not run are simply absent and do not dilute
// the average. Zero layers yields zero confidence.
func CombineLayers(results []LayerResult) float64 {
	var sum, weight float64
	for _, r := range results {
		sum += r.SuspicionScore * r.Weight
		weight += r.Weight
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

// NewFinding assembles a finding from layer results, deriving the
// combined confidence and risk level.
func NewFinding(elementID string, results []LayerResult) HallucinationFinding {
	confidence := CombineLayers(results)
	return HallucinationFinding{
		ElementID:          elementID,
		LayerResults:       results,
		CombinedConfidence: confidence,
		RiskLevel:          RiskForConfidence(confidence),
	}
}
