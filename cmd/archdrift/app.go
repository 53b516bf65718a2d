package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/classify"
	"github.com/c360studio/archdrift/config"
	"github.com/c360studio/archdrift/export"
	"github.com/c360studio/archdrift/graph"
	"github.com/c360studio/archdrift/hallucinate"
	"github.com/c360studio/archdrift/llm"
	"github.com/c360studio/archdrift/parser"
	"github.com/c360studio/archdrift/pipeline"
)

// App wires the configuration into a store, pipeline, and watcher.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	natsConn *nats.Conn
	store    graph.Store
	pipeline *pipeline.Pipeline
	watcher  *parser.Watcher
}

// NewApp creates an application instance. With nats.url configured the
// graph persists to JetStream KV; otherwise it lives in memory for the
// duration of the run.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}

	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}
		store, err := graph.NewKVStore(ctx, js, logger)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("open graph store: %w", err)
		}
		app.natsConn = conn
		app.store = store
		logger.Info("graph persistence enabled", "url", cfg.NATS.URL)
	} else {
		app.store = graph.NewMemoryStore()
	}

	var completer llm.Completer
	if cfg.Classify.AIEnabled || cfg.Detect.SimilarityEnabled {
		client, err := llm.NewClient(llm.Endpoint{
			Provider: cfg.Model.Provider,
			URL:      cfg.Model.Endpoint,
			Model:    cfg.Model.Model,
		}, llm.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		completer = client
	}

	var collaborator classify.Collaborator
	if cfg.Classify.AIEnabled {
		collaborator = classify.NewLLMCollaborator(completer)
	}
	classifier, err := classify.New(classify.Config{
		Threshold: cfg.Classify.Threshold,
		Timeout:   cfg.Classify.Timeout,
		CacheSize: cfg.Classify.CacheSize,
	}, collaborator, logger)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	detectorOpts := []hallucinate.Option{hallucinate.WithLogger(logger)}
	if cfg.Detect.RulesFile != "" {
		rules, err := hallucinate.LoadRules(cfg.Detect.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load pattern rules: %w", err)
		}
		detectorOpts = append(detectorOpts, hallucinate.WithRules(rules))
	}
	if cfg.Detect.SimilarityEnabled {
		detectorOpts = append(detectorOpts, hallucinate.WithSimilarity(hallucinate.NewLLMScorer(completer)))
	}

	p, err := pipeline.New(pipeline.Config{
		Workers:   cfg.Pipeline.Workers,
		QueueSize: cfg.Pipeline.QueueSize,
	}, app.store,
		pipeline.WithClassifier(classifier),
		pipeline.WithHallucinationDetector(hallucinate.New(detectorOpts...)),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	app.pipeline = p

	watcher, err := parser.NewWatcher(parser.WatcherConfig{
		RepoRoot: cfg.Repo.Path,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	app.watcher = watcher

	return app, nil
}

// Close releases the store and NATS connection.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing store", "error", err)
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
}

// Run parses the repository and analyzes every recognized file.
func (a *App) Run(ctx context.Context) error {
	modules, err := a.watcher.IndexDirectory(ctx)
	if err != nil {
		return fmt.Errorf("index %s: %w", a.cfg.Repo.Path, err)
	}
	if len(modules) == 0 {
		return fmt.Errorf("no recognized source files under %s", a.cfg.Repo.Path)
	}

	report := a.pipeline.AnalyzeAll(ctx, modules)
	fmt.Printf("Analyzed %d files (%d failed) in %s: %d elements, %d violations, %d findings\n",
		report.FilesAnalyzed, report.FilesFailed, report.Duration.Round(time.Millisecond),
		report.Elements, report.Violations, report.Findings)
	for _, fe := range report.Errors {
		fmt.Printf("  failed: %s: %v\n", fe.FilePath, fe.Err)
	}
	return nil
}

// Analyze runs a full analysis and prints the medium-and-up results.
func (a *App) Analyze(ctx context.Context) error {
	if err := a.Run(ctx); err != nil {
		return err
	}
	if err := a.PrintViolations(ctx, analysis.SeverityMedium); err != nil {
		return err
	}
	return a.PrintFindings(ctx, analysis.RiskMedium)
}

// Watch runs a full analysis, then reanalyzes files as they change
// until the context is canceled.
func (a *App) Watch(ctx context.Context) error {
	if err := a.Run(ctx); err != nil {
		return err
	}
	if err := a.watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", a.cfg.Repo.Path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-a.watcher.Events():
			if !ok {
				return nil
			}
			a.handleEvent(ctx, event)
		}
	}
}

func (a *App) handleEvent(ctx context.Context, event parser.WatchEvent) {
	if event.Error != nil {
		a.logger.Warn("watch event error", "path", event.Path, "error", event.Error)
		return
	}

	switch event.Operation {
	case parser.OpCreate, parser.OpModify:
		if event.Module == nil {
			return
		}
		delta, err := a.pipeline.Analyze(ctx, event.Module)
		if err != nil {
			a.logger.Warn("reanalysis failed", "path", event.Path, "error", err)
			return
		}
		fmt.Printf("%s: %d elements, %d violations\n",
			event.Path, len(delta.Batch.Elements), len(delta.Violations))
		for _, v := range delta.Violations {
			fmt.Printf("  [%s] %s: %s\n", v.Severity, v.Type, v.Detail)
		}
		for _, f := range delta.Findings {
			if analysis.RiskAtLeast(f.RiskLevel, analysis.RiskMedium) {
				fmt.Printf("  [%s risk] confidence %.2f\n", f.RiskLevel, f.CombinedConfidence)
			}
		}
	case parser.OpDelete:
		if err := a.pipeline.Remove(ctx, event.Path); err != nil {
			a.logger.Warn("failed to remove deleted file", "path", event.Path, "error", err)
			return
		}
		fmt.Printf("%s: removed from graph\n", event.Path)
	}
}

// PrintViolations lists recorded violations at or above the severity.
func (a *App) PrintViolations(ctx context.Context, min analysis.Severity) error {
	violations, err := a.pipeline.Violations(ctx, min)
	if err != nil {
		return fmt.Errorf("list violations: %w", err)
	}
	if len(violations) == 0 {
		fmt.Printf("No violations at severity %s or above\n", min)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tTYPE\tELEMENT\tDETAIL")
	for _, v := range violations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Severity, v.Type, a.elementName(ctx, v.ElementID), v.Detail)
	}
	return w.Flush()
}

// PrintFindings lists recorded findings at or above the risk level.
func (a *App) PrintFindings(ctx context.Context, min analysis.RiskLevel) error {
	findings, err := a.pipeline.Findings(ctx, min)
	if err != nil {
		return fmt.Errorf("list findings: %w", err)
	}
	if len(findings) == 0 {
		fmt.Printf("No findings at risk %s or above\n", min)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RISK\tCONFIDENCE\tELEMENT\tEVIDENCE")
	for _, f := range findings {
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n",
			f.RiskLevel, f.CombinedConfidence, a.elementName(ctx, f.ElementID), firstEvidence(f))
	}
	return w.Flush()
}

// Export writes the full graph snapshot in the requested format.
func (a *App) Export(ctx context.Context, output string, format export.Format) error {
	snapshot, err := a.pipeline.ExportGraph(ctx)
	if err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	data, err := export.Snapshot(snapshot, format)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	if output == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Printf("Graph exported to %s (%d elements)\n", output, len(snapshot.Elements))
	return nil
}

// elementName resolves an element ID to its qualified name for display.
func (a *App) elementName(ctx context.Context, elementID string) string {
	el, err := a.store.Element(ctx, elementID)
	if err != nil {
		return elementID
	}
	return el.QualifiedName
}

func firstEvidence(f analysis.HallucinationFinding) string {
	for _, lr := range f.LayerResults {
		if len(lr.Evidence) > 0 {
			return lr.Evidence[0]
		}
	}
	return ""
}
