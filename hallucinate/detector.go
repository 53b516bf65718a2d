// Package hallucinate scores code elements for signs of fabrication:
// speculative naming, placeholder bodies, references to things that do
// not exist, and semantic mismatch with surrounding code. Each
// detection layer is independent and weighted; the combined confidence
// is the weighted average over the layers that ran.
package hallucinate

import (
	"context"
	"log/slog"

	"github.com/c360studio/archdrift/analysis"
)

// Layer weights. Fixed so the same inputs always produce the same
// combined confidence.
const (
	weightSyntax     = 1.0
	weightPattern    = 1.0
	weightGraph      = 1.25
	weightSimilarity = 0.75
)

// Target is one element plus the graph context the layers inspect.
type Target struct {
	Element *analysis.CodeElement

	// Outgoing holds the element's outgoing edges.
	Outgoing []analysis.Relationship

	// TargetName maps edge target IDs to qualified names for edges
	// whose target is an external placeholder.
	TargetName map[string]string

	// ParseOK is the parser's verdict on the element's file.
	ParseOK bool

	// Stub marks a function or method whose body produced no graph
	// activity: no calls, no imports, no mutations, no nested
	// definitions.
	Stub bool

	// Snippet is the element's docstring, decorators, and signature.
	Snippet string
}

// Layer is one detection strategy. ran=false means the layer chose not
// to judge this target and must be excluded from the weighted average.
type Layer interface {
	Name() string
	Evaluate(ctx context.Context, t Target) (result analysis.LayerResult, ran bool, err error)
}

// Detector runs the configured layers and combines their verdicts.
type Detector struct {
	layers []Layer
	logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithRules replaces the default pattern table.
func WithRules(rules []Rule) Option {
	return func(d *Detector) {
		for i, l := range d.layers {
			if _, ok := l.(*patternLayer); ok {
				d.layers[i] = &patternLayer{rules: rules}
			}
		}
	}
}

// WithSimilarity adds the optional semantic similarity layer.
func WithSimilarity(scorer Scorer) Option {
	return func(d *Detector) {
		d.layers = append(d.layers, &similarityLayer{scorer: scorer})
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// New creates a detector with the syntax, pattern, and graph layers.
// The similarity layer joins only when a scorer is configured.
func New(opts ...Option) *Detector {
	rules := DefaultRules()
	// Built-in rules always compile.
	_ = compileRules(rules)

	d := &Detector{
		layers: []Layer{
			&syntaxLayer{},
			&patternLayer{rules: rules},
			&graphLayer{},
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect evaluates all layers for one element. A failing layer is
// skipped, not counted: collaborator outages lower coverage, never
// fabricate suspicion.
func (d *Detector) Detect(ctx context.Context, t Target) analysis.HallucinationFinding {
	var results []analysis.LayerResult
	for _, layer := range d.layers {
		result, ran, err := layer.Evaluate(ctx, t)
		if err != nil {
			d.logger.Debug("detection layer failed, skipping",
				"layer", layer.Name(),
				"element_id", t.Element.ID,
				"error", err)
			continue
		}
		if !ran {
			continue
		}
		results = append(results, result)
	}
	return analysis.NewFinding(t.Element.ID, results)
}
