package classify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archdrift/analysis"
)

type fakeCollaborator struct {
	result *CollaboratorResult
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeCollaborator) Classify(ctx context.Context, _ Subject) (*CollaboratorResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func repoSubject() Subject {
	el := analysis.NewElement(analysis.KindClass, "OrderRepository",
		"infra.db.orders.OrderRepository", "infra/db/orders.py", 10, 80)
	return Subject{Element: el, Imports: []string{"sqlalchemy", "typing"}}
}

func ambiguousSubject() Subject {
	el := analysis.NewElement(analysis.KindFunction, "process",
		"stuff.process", "stuff.py", 1, 10)
	return Subject{Element: el}
}

func TestHeuristicAgreementConfidence(t *testing.T) {
	c, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	// Path (db), imports (sqlalchemy), and naming (Repository) all
	// agree on infrastructure.
	got := c.Classify(context.Background(), repoSubject())
	assert.Equal(t, analysis.LayerInfrastructure, got.Layer)
	assert.Equal(t, "repository", got.Role)
	assert.Equal(t, analysis.MethodHeuristic, got.Method)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
}

func TestHeuristicDisagreementLowersConfidence(t *testing.T) {
	c, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	// Path says core, naming says infrastructure.
	el := analysis.NewElement(analysis.KindClass, "OrderRepository",
		"core.orders.OrderRepository", "core/orders.py", 1, 40)
	got := c.Classify(context.Background(), Subject{Element: el})
	assert.Less(t, got.Confidence, 1.0)
	assert.Equal(t, analysis.MethodHeuristic, got.Method)
}

func TestNoSignalsYieldsUnknown(t *testing.T) {
	c, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)

	got := c.Classify(context.Background(), ambiguousSubject())
	assert.Equal(t, analysis.LayerUnknown, got.Layer)
	assert.Zero(t, got.Confidence)
}

func TestCollaboratorRefinesLowConfidence(t *testing.T) {
	collab := &fakeCollaborator{result: &CollaboratorResult{
		Layer: analysis.LayerApplication, Role: "service", Confidence: 0.85,
	}}
	c, err := New(DefaultConfig(), collab, nil)
	require.NoError(t, err)

	got := c.Classify(context.Background(), ambiguousSubject())
	assert.Equal(t, analysis.LayerApplication, got.Layer)
	assert.Equal(t, analysis.MethodAIAssisted, got.Method)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.Equal(t, int32(1), collab.calls.Load())
}

func TestCollaboratorSkippedAboveThreshold(t *testing.T) {
	collab := &fakeCollaborator{result: &CollaboratorResult{
		Layer: analysis.LayerCore, Confidence: 0.99,
	}}
	c, err := New(DefaultConfig(), collab, nil)
	require.NoError(t, err)

	got := c.Classify(context.Background(), repoSubject())
	assert.Equal(t, analysis.MethodHeuristic, got.Method)
	assert.Zero(t, collab.calls.Load())
}

func TestCollaboratorTimeoutFallsBack(t *testing.T) {
	collab := &fakeCollaborator{
		result: &CollaboratorResult{Layer: analysis.LayerCore, Confidence: 0.9},
		delay:  200 * time.Millisecond,
	}
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Millisecond
	c, err := New(cfg, collab, nil)
	require.NoError(t, err)

	got := c.Classify(context.Background(), ambiguousSubject())
	assert.Equal(t, analysis.MethodHeuristic, got.Method)
	assert.Equal(t, analysis.LayerUnknown, got.Layer)
}

func TestCollaboratorErrorFallsBack(t *testing.T) {
	collab := &fakeCollaborator{err: errors.New("boom")}
	c, err := New(DefaultConfig(), collab, nil)
	require.NoError(t, err)

	got := c.Classify(context.Background(), ambiguousSubject())
	assert.Equal(t, analysis.MethodHeuristic, got.Method)
}

func TestCacheSkipsReclassification(t *testing.T) {
	collab := &fakeCollaborator{result: &CollaboratorResult{
		Layer: analysis.LayerApplication, Confidence: 0.8,
	}}
	c, err := New(DefaultConfig(), collab, nil)
	require.NoError(t, err)

	subject := ambiguousSubject()
	first := c.Classify(context.Background(), subject)
	second := c.Classify(context.Background(), subject)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), collab.calls.Load(), "second call must hit the cache")

	// A content change invalidates the cache entry.
	changed := ambiguousSubject()
	changed.Element.Docstring = "now different"
	c.Classify(context.Background(), changed)
	assert.Equal(t, int32(2), collab.calls.Load())
}
