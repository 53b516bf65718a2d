package drift

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archdrift/analysis"
)

type staticResolver map[string]analysis.Layer

func (r staticResolver) LayerOf(_ context.Context, id string) analysis.Layer {
	if l, ok := r[id]; ok {
		return l
	}
	return analysis.LayerUnknown
}

func coreElement() *analysis.CodeElement {
	return analysis.NewElement(analysis.KindClass, "Order", "core.orders.Order", "core/orders.py", 5, 60)
}

func declaredTag(el *analysis.CodeElement, layer analysis.Layer) *analysis.IntentTag {
	return &analysis.IntentTag{
		ElementID:  el.ID,
		Layer:      layer,
		Role:       "entity",
		Source:     analysis.TagDeclared,
		Confidence: 1.0,
	}
}

func TestNoTagNoViolations(t *testing.T) {
	d := New(staticResolver{}, nil)
	el := coreElement()

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerInfrastructure, Confidence: 0.9},
	})
	assert.Empty(t, got, "untagged elements are never checked")
}

func TestInferredTagNoViolations(t *testing.T) {
	d := New(staticResolver{}, nil)
	el := coreElement()
	tag := declaredTag(el, analysis.LayerCore)
	tag.Source = analysis.TagInferred

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            tag,
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerInfrastructure, Confidence: 0.9},
	})
	assert.Empty(t, got)
}

func TestLayerViolationSeverityScalesWithDistance(t *testing.T) {
	d := New(staticResolver{}, nil)
	el := coreElement()

	critical := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            declaredTag(el, analysis.LayerCore),
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerInfrastructure, Confidence: 0.8},
	})
	require.Len(t, critical, 1)
	assert.Equal(t, analysis.ViolationLayer, critical[0].Type)
	assert.Equal(t, analysis.SeverityCritical, critical[0].Severity)

	medium := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            declaredTag(el, analysis.LayerCore),
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerApplication, Confidence: 0.8},
	})
	require.Len(t, medium, 1)
	assert.Equal(t, analysis.SeverityMedium, medium[0].Severity)
}

func TestDependencyViolationCoreToInfrastructure(t *testing.T) {
	el := coreElement()
	d := New(staticResolver{"target1": analysis.LayerInfrastructure}, nil)

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            declaredTag(el, analysis.LayerCore),
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerCore, Confidence: 0.9},
		Outgoing: []analysis.Relationship{
			{Kind: analysis.RelImports, SourceID: el.ID, TargetID: "target1", Line: 3},
		},
	})
	require.Len(t, got, 1)
	assert.Equal(t, analysis.ViolationDependency, got[0].Type)
	assert.Equal(t, analysis.SeverityCritical, got[0].Severity)
	assert.Equal(t, "target1", got[0].Related)
}

func TestDeclaredDependencyAllowed(t *testing.T) {
	el := coreElement()
	d := New(staticResolver{"target1": analysis.LayerApplication}, nil)
	tag := declaredTag(el, analysis.LayerCore)
	tag.DeclaredDependencies = []string{"application"}

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            tag,
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerCore, Confidence: 0.9},
		Outgoing: []analysis.Relationship{
			{Kind: analysis.RelCalls, SourceID: el.ID, TargetID: "target1", Line: 12},
		},
	})
	assert.Empty(t, got)
}

func TestUnknownTargetSkipped(t *testing.T) {
	el := coreElement()
	d := New(staticResolver{}, nil)

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            declaredTag(el, analysis.LayerCore),
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerCore, Confidence: 0.9},
		Outgoing: []analysis.Relationship{
			{Kind: analysis.RelCalls, SourceID: el.ID, TargetID: "mystery", Line: 12},
		},
	})
	assert.Empty(t, got, "unclassifiable targets must not produce violations")
}

func TestDependencyViolationDedupedPerTarget(t *testing.T) {
	el := coreElement()
	d := New(staticResolver{"target1": analysis.LayerInfrastructure}, nil)

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            declaredTag(el, analysis.LayerCore),
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerCore, Confidence: 0.9},
		Outgoing: []analysis.Relationship{
			{Kind: analysis.RelCalls, SourceID: el.ID, TargetID: "target1", Line: 12},
			{Kind: analysis.RelCalls, SourceID: el.ID, TargetID: "target1", Line: 30},
		},
	})
	assert.Len(t, got, 1)
}

func TestPatternMismatch(t *testing.T) {
	el := coreElement()
	d := New(staticResolver{}, nil)
	tag := declaredTag(el, analysis.LayerCore)
	tag.Pattern = "singleton"

	got := d.Detect(context.Background(), Input{
		Element: el,
		Tag:     tag,
		Classification: analysis.Classification{
			ElementID: el.ID, Layer: analysis.LayerCore, Pattern: "factory", Confidence: 0.9,
		},
	})
	require.Len(t, got, 1)
	assert.Equal(t, analysis.ViolationPattern, got[0].Type)
}

func TestImmutableConstraintViolation(t *testing.T) {
	el := coreElement()
	d := New(staticResolver{}, nil)
	tag := declaredTag(el, analysis.LayerCore)
	tag.Constraints = []string{analysis.ConstraintImmutable}

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            tag,
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerCore, Confidence: 0.9},
		Mutations: []analysis.Mutation{
			{Target: "self.total", Line: 42},
			{Target: "self.id", Line: 12, InInit: true},
		},
	})
	require.Len(t, got, 1, "constructor assignments are allowed")
	assert.Equal(t, analysis.ViolationConstraint, got[0].Type)
	assert.Equal(t, analysis.SeverityMedium, got[0].Severity)
	assert.Equal(t, 42, got[0].Line)
}

func TestStatelessConstraintViolation(t *testing.T) {
	el := coreElement()
	d := New(staticResolver{}, nil)
	tag := declaredTag(el, analysis.LayerCore)
	tag.Constraints = []string{analysis.ConstraintStateless}

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            tag,
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerCore, Confidence: 0.9},
		Mutations:      []analysis.Mutation{{Target: "self.cache", Line: 8, InInit: true}},
	})
	require.Len(t, got, 1, "stateless forbids instance state even in the constructor")
}

func TestRulesAccumulate(t *testing.T) {
	el := coreElement()
	d := New(staticResolver{"target1": analysis.LayerInfrastructure}, nil)
	tag := declaredTag(el, analysis.LayerCore)
	tag.Constraints = []string{analysis.ConstraintImmutable}

	got := d.Detect(context.Background(), Input{
		Element:        el,
		Tag:            tag,
		Classification: analysis.Classification{ElementID: el.ID, Layer: analysis.LayerInfrastructure, Confidence: 0.9},
		Outgoing: []analysis.Relationship{
			{Kind: analysis.RelImports, SourceID: el.ID, TargetID: "target1", Line: 1},
		},
		Mutations: []analysis.Mutation{{Target: "self.x", Line: 9}},
	})
	types := make(map[analysis.ViolationType]bool)
	for _, v := range got {
		types[v.Type] = true
	}
	assert.True(t, types[analysis.ViolationLayer])
	assert.True(t, types[analysis.ViolationDependency])
	assert.True(t, types[analysis.ViolationConstraint])
}
