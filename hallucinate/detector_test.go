package hallucinate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archdrift/analysis"
)

func cleanTarget() Target {
	el := analysis.NewElement(analysis.KindFunction, "compute_total",
		"orders.compute_total", "orders.py", 10, 30)
	return Target{
		Element: el,
		ParseOK: true,
		Snippet: "Computes the order total from line items.",
	}
}

func suspiciousTarget() Target {
	el := analysis.NewElement(analysis.KindFunction, "quantum_optimize_orders",
		"orders.quantum_optimize_orders", "orders.py", 40, 60)
	ext := analysis.NewExternalElement(analysis.KindModule, "quantum_optimizer")
	extCall := analysis.NewExternalElement(analysis.KindFunction, "quantum_optimizer.solve")
	return Target{
		Element: el,
		ParseOK: true,
		Snippet: "TODO: wire up the optimizer. raises NotImplementedError",
		Outgoing: []analysis.Relationship{
			{Kind: analysis.RelImports, SourceID: el.ID, TargetID: ext.ID, Line: 1},
			{Kind: analysis.RelCalls, SourceID: el.ID, TargetID: extCall.ID, Line: 45},
		},
		TargetName: map[string]string{
			ext.ID:     "quantum_optimizer",
			extCall.ID: "quantum_optimizer.solve",
		},
	}
}

func TestCleanElementMinimalRisk(t *testing.T) {
	d := New()
	finding := d.Detect(context.Background(), cleanTarget())
	assert.Equal(t, analysis.RiskMinimal, finding.RiskLevel)
	assert.Less(t, finding.CombinedConfidence, 0.2)
}

func stubTarget() Target {
	el := analysis.NewElement(analysis.KindMethod, "auto_optimize_query",
		"services.query.QueryService.auto_optimize_query", "services/query.py", 10, 20)
	return Target{
		Element: el,
		ParseOK: true,
		Stub:    true,
		Snippet: "def auto_optimize_query(self, plan):\nTODO: implement",
	}
}

func TestSuspiciousElementHighRisk(t *testing.T) {
	d := New()
	finding := d.Detect(context.Background(), suspiciousTarget())
	assert.True(t, analysis.RiskAtLeast(finding.RiskLevel, analysis.RiskHigh),
		"got %s at %.2f", finding.RiskLevel, finding.CombinedConfidence)

	var layers []string
	for _, r := range finding.LayerResults {
		layers = append(layers, r.LayerName)
	}
	assert.Contains(t, layers, "pattern")
	assert.Contains(t, layers, "graph")
}

// A speculative name on a body that does nothing must land at least
// high risk even though there are no references to check.
func TestStubMethodHighRisk(t *testing.T) {
	d := New()
	finding := d.Detect(context.Background(), stubTarget())
	assert.True(t, analysis.RiskAtLeast(finding.RiskLevel, analysis.RiskHigh),
		"got %s at %.2f", finding.RiskLevel, finding.CombinedConfidence)

	evidence := map[string][]string{}
	for _, r := range finding.LayerResults {
		evidence[r.LayerName] = r.Evidence
	}
	assert.NotEmpty(t, evidence["pattern"], "speculative prefix and TODO marker")
	assert.NotEmpty(t, evidence["graph"], "nothing behind the definition")
}

func TestPatternLayerSpeculativeName(t *testing.T) {
	layer := &patternLayer{rules: DefaultRules()}
	require.NoError(t, compileRules(layer.rules))

	result, ran, err := layer.Evaluate(context.Background(), suspiciousTarget())
	require.NoError(t, err)
	require.True(t, ran)
	assert.GreaterOrEqual(t, result.SuspicionScore, 0.7)
	assert.NotEmpty(t, result.Evidence)
}

func TestPatternLayerCleanName(t *testing.T) {
	layer := &patternLayer{rules: DefaultRules()}
	require.NoError(t, compileRules(layer.rules))

	result, ran, err := layer.Evaluate(context.Background(), cleanTarget())
	require.NoError(t, err)
	require.True(t, ran)
	assert.Zero(t, result.SuspicionScore)
}

func TestGraphLayerUnknownImportSuspicious(t *testing.T) {
	layer := &graphLayer{}
	result, ran, err := layer.Evaluate(context.Background(), suspiciousTarget())
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, 1.0, result.SuspicionScore, "both references are fabricated")
	assert.Len(t, result.Evidence, 2)
}

func TestGraphLayerKnownImportNotSuspicious(t *testing.T) {
	el := analysis.NewElement(analysis.KindModule, "api", "api", "api.py", 1, 50)
	ext := analysis.NewExternalElement(analysis.KindModule, "requests")
	target := Target{
		Element: el,
		ParseOK: true,
		Outgoing: []analysis.Relationship{
			{Kind: analysis.RelImports, SourceID: el.ID, TargetID: ext.ID, Line: 1},
		},
		TargetName: map[string]string{ext.ID: "requests"},
	}

	layer := &graphLayer{}
	result, ran, err := layer.Evaluate(context.Background(), target)
	require.NoError(t, err)
	require.True(t, ran)
	assert.Zero(t, result.SuspicionScore)
}

func TestGraphLayerSkipsWithoutReferences(t *testing.T) {
	layer := &graphLayer{}
	_, ran, err := layer.Evaluate(context.Background(), cleanTarget())
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestGraphLayerFlagsStub(t *testing.T) {
	target := cleanTarget()
	target.Stub = true

	layer := &graphLayer{}
	result, ran, err := layer.Evaluate(context.Background(), target)
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, stubSuspicion, result.SuspicionScore)
	assert.NotEmpty(t, result.Evidence)
}

func TestGraphLayerIgnoresBuiltins(t *testing.T) {
	el := analysis.NewElement(analysis.KindFunction, "size", "util.size", "util.py", 1, 3)
	builtin := analysis.NewExternalElement(analysis.KindFunction, "builtin:len")
	target := Target{
		Element: el,
		ParseOK: true,
		Outgoing: []analysis.Relationship{
			{Kind: analysis.RelCalls, SourceID: el.ID, TargetID: builtin.ID, Line: 2},
		},
		TargetName: map[string]string{builtin.ID: "builtin:len"},
	}

	layer := &graphLayer{}
	_, ran, err := layer.Evaluate(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, ran, "builtin-only references leave nothing to judge")
}

func TestSyntaxLayerParseFailure(t *testing.T) {
	target := cleanTarget()
	target.ParseOK = false

	layer := &syntaxLayer{}
	result, ran, err := layer.Evaluate(context.Background(), target)
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, 0.95, result.SuspicionScore)
}

func TestSyntaxLayerSkipsCleanParse(t *testing.T) {
	layer := &syntaxLayer{}
	_, ran, err := layer.Evaluate(context.Background(), cleanTarget())
	require.NoError(t, err)
	assert.False(t, ran, "a clean parse is not evidence either way")
}

type fixedScorer struct {
	similarity float64
	err        error
}

func (f fixedScorer) Score(context.Context, Target) (float64, error) {
	return f.similarity, f.err
}

func TestSimilarityLayerInverts(t *testing.T) {
	layer := &similarityLayer{scorer: fixedScorer{similarity: 0.2}}
	result, ran, err := layer.Evaluate(context.Background(), cleanTarget())
	require.NoError(t, err)
	require.True(t, ran)
	assert.InDelta(t, 0.8, result.SuspicionScore, 1e-9)
}

func TestScorerFailureSkipsLayerNotFinding(t *testing.T) {
	d := New(WithSimilarity(fixedScorer{err: errors.New("collaborator down")}))
	finding := d.Detect(context.Background(), suspiciousTarget())

	for _, r := range finding.LayerResults {
		assert.NotEqual(t, "similarity", r.LayerName)
	}
	assert.True(t, analysis.RiskAtLeast(finding.RiskLevel, analysis.RiskMedium),
		"remaining layers still combine into a finding")
}

func TestWithRulesReplacesTable(t *testing.T) {
	rules := []Rule{{Name: "custom", Match: "^legacy_", Target: TargetName, Score: 0.9}}
	require.NoError(t, compileRules(rules))
	d := New(WithRules(rules))

	el := analysis.NewElement(analysis.KindFunction, "legacy_sync", "m.legacy_sync", "m.py", 1, 2)
	finding := d.Detect(context.Background(), Target{Element: el, ParseOK: true, Snippet: "x"})

	var patternScore float64
	for _, r := range finding.LayerResults {
		if r.LayerName == "pattern" {
			patternScore = r.SuspicionScore
		}
	}
	assert.InDelta(t, 0.9, patternScore, 1e-9)
}
