package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archdrift/analysis"
)

func orderFixture() (string, []*analysis.CodeElement, []analysis.Relationship) {
	file := "orders/order.py"
	mod := analysis.NewElement(analysis.KindModule, "order", "orders.order", file, 1, 40)
	cls := analysis.NewElement(analysis.KindClass, "Order", "orders.order.Order", file, 5, 40)
	meth := analysis.NewElement(analysis.KindMethod, "total", "orders.order.Order.total", file, 20, 25)
	ext := analysis.NewExternalElement(analysis.KindModule, "decimal")
	rels := []analysis.Relationship{
		{Kind: analysis.RelContains, SourceID: mod.ID, TargetID: cls.ID, Line: 5},
		{Kind: analysis.RelContains, SourceID: cls.ID, TargetID: meth.ID, Line: 20},
		{Kind: analysis.RelImports, SourceID: mod.ID, TargetID: ext.ID, Line: 1},
	}
	return file, []*analysis.CodeElement{mod, cls, meth, ext}, rels
}

func TestUpsertFileIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()

	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))
	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Elements, 4)
	assert.Len(t, snap.Relationships, 3)
}

func TestUpsertFileReplacesRemovedElements(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()
	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))

	meth := elements[2]
	require.NoError(t, s.SetClassification(ctx, analysis.Classification{
		ElementID: meth.ID, Layer: analysis.LayerCore, Confidence: 0.9, Method: analysis.MethodHeuristic,
	}))

	// Re-analysis without the method: element, its edges, and its
	// derived facts must disappear.
	require.NoError(t, s.UpsertFile(ctx, file, elements[:2], rels[:1]))

	_, err := s.Element(ctx, meth.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Classification(ctx, meth.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	rels2, err := s.Relationships(ctx, elements[1].ID, "", DirBoth)
	require.NoError(t, err)
	assert.Len(t, rels2, 1, "only the CONTAINS edge from the module remains")
}

func TestUpsertFileRetargetsCrossFileEdges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	helperFile := "orders/helpers.py"
	helperMod := analysis.NewElement(analysis.KindModule, "helpers", "orders.helpers", helperFile, 1, 10)
	helper := analysis.NewElement(analysis.KindFunction, "helper", "orders.helpers.helper", helperFile, 3, 8)
	require.NoError(t, s.UpsertFile(ctx, helperFile,
		[]*analysis.CodeElement{helperMod, helper},
		[]analysis.Relationship{
			{Kind: analysis.RelContains, SourceID: helperMod.ID, TargetID: helper.ID, Line: 3},
		}))

	callerFile := "orders/caller.py"
	callerMod := analysis.NewElement(analysis.KindModule, "caller", "orders.caller", callerFile, 1, 10)
	caller := analysis.NewElement(analysis.KindFunction, "run", "orders.caller.run", callerFile, 2, 6)
	require.NoError(t, s.UpsertFile(ctx, callerFile,
		[]*analysis.CodeElement{callerMod, caller},
		[]analysis.Relationship{
			{Kind: analysis.RelContains, SourceID: callerMod.ID, TargetID: caller.ID, Line: 2},
			{Kind: analysis.RelCalls, SourceID: caller.ID, TargetID: helper.ID, Line: 4},
		}))

	// Re-analyze the helper file with the function removed. The
	// caller's CALLS edge must not be left pointing at a missing ID.
	require.NoError(t, s.UpsertFile(ctx, helperFile, []*analysis.CodeElement{helperMod}, nil))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	ids := make(map[string]bool, len(snap.Elements))
	for _, el := range snap.Elements {
		ids[el.ID] = true
	}
	for _, rel := range snap.Relationships {
		assert.True(t, ids[rel.SourceID], "edge source %s exists", rel.SourceID)
		assert.True(t, ids[rel.TargetID], "edge target %s exists", rel.TargetID)
	}

	calls, err := s.Relationships(ctx, caller.ID, analysis.RelCalls, DirOutgoing)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.NotEqual(t, helper.ID, calls[0].TargetID)
	target, err := s.Element(ctx, calls[0].TargetID)
	require.NoError(t, err)
	assert.True(t, target.External, "removed target replaced by a placeholder")
	assert.Equal(t, "orders.helpers.helper", target.QualifiedName)

	// Re-adding the real definition takes the qualified name back.
	require.NoError(t, s.UpsertFile(ctx, helperFile,
		[]*analysis.CodeElement{helperMod, helper},
		[]analysis.Relationship{
			{Kind: analysis.RelContains, SourceID: helperMod.ID, TargetID: helper.ID, Line: 3},
		}))
	id, ok := s.ResolveQualifiedName("orders.helpers.helper")
	require.True(t, ok)
	assert.Equal(t, helper.ID, id)
}

func TestUpsertFileRejectsDanglingEdges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()
	rels = append(rels, analysis.Relationship{
		Kind: analysis.RelCalls, SourceID: elements[2].ID, TargetID: "feedfacedeadbeef", Line: 22,
	})

	err := s.UpsertFile(ctx, file, elements, rels)
	require.Error(t, err)
	assert.True(t, IsIntegrity(err))
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Missing, "feedfacedeadbeef")

	// Rejected batch leaves the graph unchanged.
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Elements)
}

func TestRelationshipsDirectionAndKindFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()
	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))

	mod, cls := elements[0], elements[1]

	out, err := s.Relationships(ctx, mod.ID, analysis.RelContains, DirOutgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, cls.ID, out[0].TargetID)

	in, err := s.Relationships(ctx, cls.ID, "", DirIncoming)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, mod.ID, in[0].SourceID)

	both, err := s.Relationships(ctx, cls.ID, "", DirBoth)
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func TestDuplicateEdgesRetainDistinctLines(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()
	mod, cls := elements[0], elements[1]
	rels = append(rels,
		analysis.Relationship{Kind: analysis.RelCalls, SourceID: mod.ID, TargetID: cls.ID, Line: 30},
		analysis.Relationship{Kind: analysis.RelCalls, SourceID: mod.ID, TargetID: cls.ID, Line: 35},
	)
	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))

	calls, err := s.Relationships(ctx, mod.ID, analysis.RelCalls, DirOutgoing)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, 30, calls[0].Line)
	assert.Equal(t, 35, calls[1].Line)
}

func TestQueryByLayerAndDependency(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()
	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))

	mod, cls := elements[0], elements[1]
	require.NoError(t, s.SetClassification(ctx, analysis.Classification{
		ElementID: cls.ID, Layer: analysis.LayerCore, Confidence: 0.9, Method: analysis.MethodHeuristic,
	}))

	core, err := s.Query(ctx, Query{Layer: analysis.LayerCore})
	require.NoError(t, err)
	require.Len(t, core, 1)
	assert.Equal(t, cls.ID, core[0].ID)

	// The module imports an external placeholder, which counts as
	// infrastructure.
	dependents, err := s.Query(ctx, Query{DependsOnLayer: analysis.LayerInfrastructure})
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, mod.ID, dependents[0].ID)
}

func TestViolationsMinSeverity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()
	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))

	cls := elements[1]
	require.NoError(t, s.RecordViolations(ctx, cls.ID, []analysis.Violation{
		{ElementID: cls.ID, Type: analysis.ViolationLayer, Severity: analysis.SeverityMedium, Detail: "a"},
		{ElementID: cls.ID, Type: analysis.ViolationDependency, Severity: analysis.SeverityCritical, Detail: "b"},
	}))

	all, err := s.Violations(ctx, analysis.SeverityLow)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	critical, err := s.Violations(ctx, analysis.SeverityCritical)
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, analysis.ViolationDependency, critical[0].Type)

	// Re-running with no violations clears the element.
	require.NoError(t, s.RecordViolations(ctx, cls.ID, nil))
	all, err = s.Violations(ctx, analysis.SeverityLow)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFindingsMinRisk(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()
	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))

	require.NoError(t, s.RecordFinding(ctx, analysis.NewFinding(elements[1].ID, []analysis.LayerResult{
		{LayerName: "pattern", SuspicionScore: 0.9, Weight: 1},
	})))
	require.NoError(t, s.RecordFinding(ctx, analysis.NewFinding(elements[2].ID, []analysis.LayerResult{
		{LayerName: "pattern", SuspicionScore: 0.1, Weight: 1},
	})))

	high, err := s.Findings(ctx, analysis.RiskHigh)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, elements[1].ID, high[0].ElementID)

	all, err := s.Findings(ctx, analysis.RiskMinimal)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestResolveQualifiedName(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	file, elements, rels := orderFixture()
	require.NoError(t, s.UpsertFile(ctx, file, elements, rels))

	id, ok := s.ResolveQualifiedName("orders.order.Order")
	require.True(t, ok)
	assert.Equal(t, elements[1].ID, id)

	_, ok = s.ResolveQualifiedName("orders.order.Missing")
	assert.False(t, ok)
}
