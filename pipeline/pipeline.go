// Package pipeline orchestrates the analysis passes: extraction, intent
// tag processing, classification, drift detection, and hallucination
// detection, all committed to the knowledge graph store. Files are
// independent units of work; one file's failure never aborts the run.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/classify"
	"github.com/c360studio/archdrift/drift"
	"github.com/c360studio/archdrift/extract"
	"github.com/c360studio/archdrift/graph"
	"github.com/c360studio/archdrift/hallucinate"
	"github.com/c360studio/archdrift/intent"
)

// Config controls pipeline concurrency.
type Config struct {
	// Workers is the number of concurrent analysis workers.
	Workers int

	// QueueSize bounds the submission queue. A full queue blocks the
	// driver, applying backpressure instead of growing memory.
	QueueSize int
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{Workers: 4, QueueSize: 64}
}

// Pipeline runs the analysis passes against one store.
type Pipeline struct {
	cfg          Config
	store        graph.Store
	extractor    *extract.Extractor
	intents      *intent.Processor
	classifier   *classify.Classifier
	drift        *drift.Detector
	hallucinator *hallucinate.Detector
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClassifier replaces the default heuristic-only classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithHallucinationDetector replaces the default detector.
func WithHallucinationDetector(d *hallucinate.Detector) Option {
	return func(p *Pipeline) { p.hallucinator = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a pipeline over the given store.
func New(cfg Config, store graph.Store, opts ...Option) (*Pipeline, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}

	p := &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.classifier == nil {
		c, err := classify.New(classify.DefaultConfig(), nil, p.logger)
		if err != nil {
			return nil, err
		}
		p.classifier = c
	}
	if p.hallucinator == nil {
		p.hallucinator = hallucinate.New(hallucinate.WithLogger(p.logger))
	}

	var lookup extract.Lookup
	if l, ok := store.(extract.Lookup); ok {
		lookup = l
	}
	p.extractor = extract.New(lookup, p.logger)
	p.intents = intent.NewProcessor(p.logger)
	p.drift = drift.New(&storeResolver{store: store}, p.logger)
	return p, nil
}

// storeResolver derives a relationship target's effective layer from
// the graph: classified elements use their classification, external
// placeholders count as infrastructure, and builtins stay unknown so
// they are never flagged.
type storeResolver struct {
	store graph.Store
}

func (r *storeResolver) LayerOf(ctx context.Context, elementID string) analysis.Layer {
	if c, err := r.store.Classification(ctx, elementID); err == nil {
		return c.Layer
	}
	el, err := r.store.Element(ctx, elementID)
	if err != nil || !el.External {
		return analysis.LayerUnknown
	}
	if strings.HasPrefix(el.QualifiedName, "builtin:") {
		return analysis.LayerUnknown
	}
	return analysis.LayerInfrastructure
}

// Remove deletes a file's elements, edges, and derived facts from the
// graph, used when a watched file disappears.
func (p *Pipeline) Remove(ctx context.Context, filePath string) error {
	return p.store.UpsertFile(ctx, filePath, nil, nil)
}

// Violations returns recorded violations at or above the severity.
func (p *Pipeline) Violations(ctx context.Context, min analysis.Severity) ([]analysis.Violation, error) {
	return p.store.Violations(ctx, min)
}

// Findings returns recorded findings at or above the risk level.
func (p *Pipeline) Findings(ctx context.Context, min analysis.RiskLevel) ([]analysis.HallucinationFinding, error) {
	return p.store.Findings(ctx, min)
}

// ExportGraph exports the full graph snapshot.
func (p *Pipeline) ExportGraph(ctx context.Context) (*graph.Snapshot, error) {
	return p.store.Snapshot(ctx)
}
