package analysis

import "testing"

func TestRiskForConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       RiskLevel
	}{
		{0.0, RiskMinimal},
		{0.19, RiskMinimal},
		{0.2, RiskLow},
		{0.39, RiskLow},
		{0.4, RiskMedium},
		{0.59, RiskMedium},
		{0.6, RiskHigh},
		{0.79, RiskHigh},
		{0.8, RiskCritical},
		{1.0, RiskCritical},
	}
	for _, tt := range tests {
		if got := RiskForConfidence(tt.confidence); got != tt.want {
			t.Errorf("RiskForConfidence(%v) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestRiskMonotonic(t *testing.T) {
	prev := RiskMinimal
	for c := 0.0; c <= 1.0; c += 0.01 {
		r := RiskForConfidence(c)
		if !RiskAtLeast(r, prev) {
			t.Fatalf("risk decreased at confidence %v: %s after %s", c, r, prev)
		}
		prev = r
	}
}

func TestCombineLayers(t *testing.T) {
	results := []LayerResult{
		{LayerName: "syntax", SuspicionScore: 0.0, Weight: 1.0},
		{LayerName: "pattern", SuspicionScore: 0.8, Weight: 1.0},
		{LayerName: "graph", SuspicionScore: 0.5, Weight: 2.0},
	}
	got := CombineLayers(results)
	want := (0.0*1.0 + 0.8*1.0 + 0.5*2.0) / 4.0
	if got != want {
		t.Errorf("CombineLayers = %v, want %v", got, want)
	}
}

func TestCombineLayersSkippedLayerDoesNotDilute(t *testing.T) {
	all := []LayerResult{
		{LayerName: "pattern", SuspicionScore: 0.9, Weight: 1.0},
	}
	got := CombineLayers(all)
	if got != 0.9 {
		t.Errorf("single layer average = %v, want 0.9", got)
	}
}

func TestCombineLayersEmpty(t *testing.T) {
	if got := CombineLayers(nil); got != 0 {
		t.Errorf("empty layers = %v, want 0", got)
	}
}

func TestSeverityForDistance(t *testing.T) {
	if got := SeverityForDistance(LayerDistance(LayerCore, LayerInfrastructure)); got != SeverityCritical {
		t.Errorf("core<->infrastructure = %s, want critical", got)
	}
	if got := SeverityForDistance(LayerDistance(LayerCore, LayerApplication)); got != SeverityMedium {
		t.Errorf("core<->application = %s, want medium", got)
	}
	if got := SeverityForDistance(LayerDistance(LayerCore, LayerUnknown)); got != SeverityLow {
		t.Errorf("unknown distance = %s, want low", got)
	}
}
