// Package graphanalyzer provides a processor component that analyzes
// codebases and publishes the resulting structure, classification,
// drift, and hallucination facts to the graph ingestion pipeline.
package graphanalyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/graph"
	"github.com/c360studio/archdrift/parser"
	// Import language packages to trigger init() registration of parsers
	_ "github.com/c360studio/archdrift/parser/python"
	"github.com/c360studio/archdrift/pipeline"
)

// graphIngestSubject is where entity updates are published.
const graphIngestSubject = "graph.ingest.entity"

// graphAnalyzerSchema defines the configuration schema
var graphAnalyzerSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// pathWatcher pairs one resolved analysis root with its file watcher.
type pathWatcher struct {
	root    string
	watcher *parser.Watcher
}

// Component implements the graph-analyzer processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger
	platform   component.PlatformMeta

	store    graph.Store
	pipeline *pipeline.Pipeline
	watchers []*pathWatcher

	// Lifecycle management
	running   bool
	startTime time.Time
	mu        sync.RWMutex

	// Metrics - aggregated across all roots
	elementsPublished atomic.Int64
	analysisFailures  atomic.Int64
	errors            atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time

	cancelFuncs []context.CancelFunc
}

// NewComponent creates a new graph-analyzer processor component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Use default config if ports not set
	if config.Ports == nil {
		config = DefaultConfig()
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Component{
		name:       "graph-analyzer",
		config:     config,
		natsClient: deps.NATSClient,
		logger:     deps.GetLogger(),
		platform:   deps.Platform,
	}

	c.store = graph.NewMemoryStore()
	p, err := pipeline.New(pipeline.Config{Workers: config.Workers}, c.store,
		pipeline.WithLogger(c.logger))
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	c.pipeline = p

	if err := c.initializeWatchers(); err != nil {
		return nil, fmt.Errorf("initialize watchers: %w", err)
	}

	return c, nil
}

// initializeWatchers resolves the configured paths and creates one file
// watcher per analysis root.
func (c *Component) initializeWatchers() error {
	roots, err := ResolvePaths(c.config.Paths)
	if err != nil {
		return err
	}

	for _, root := range roots {
		w, err := parser.NewWatcher(parser.WatcherConfig{
			RepoRoot: root,
			Logger:   c.logger,
		})
		if err != nil {
			return fmt.Errorf("create watcher for %s: %w", root, err)
		}
		c.watchers = append(c.watchers, &pathWatcher{root: root, watcher: w})
	}

	if len(c.watchers) == 0 {
		return fmt.Errorf("no valid analysis paths configured")
	}
	return nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start performs the initial analysis and begins watching for changes.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}
	c.mu.Unlock()

	c.logger.Info("Starting initial codebase analysis",
		"paths", len(c.watchers),
		"org", c.config.Org,
		"project", c.config.Project)

	totalFiles := 0
	for _, pw := range c.watchers {
		n, err := c.analyzeRoot(ctx, pw)
		if err != nil {
			return fmt.Errorf("initial analysis failed for %s: %w", pw.root, err)
		}
		totalFiles += n
	}

	c.logger.Info("Initial analysis complete",
		"paths", len(c.watchers),
		"files", totalFiles,
		"elements", c.elementsPublished.Load(),
		"failures", c.analysisFailures.Load())

	if c.config.WatchEnabled {
		for _, pw := range c.watchers {
			if err := c.startWatcher(ctx, pw); err != nil {
				c.logger.Warn("Failed to start file watcher",
					"path", pw.root,
					"error", err)
			}
		}
	}

	if c.config.IndexInterval != "" {
		c.startPeriodicAnalysis(ctx)
	}

	c.mu.Lock()
	c.running = true
	c.startTime = time.Now()
	c.mu.Unlock()

	return nil
}

// analyzeRoot parses every recognized file under the root, analyzes it,
// and publishes the results. Returns the number of files parsed.
func (c *Component) analyzeRoot(ctx context.Context, pw *pathWatcher) (int, error) {
	modules, err := pw.watcher.IndexDirectory(ctx)
	if err != nil {
		return 0, err
	}
	for _, pm := range modules {
		if err := c.analyzeAndPublish(ctx, pm); err != nil {
			c.logger.Warn("Failed to analyze file",
				"path", pm.FilePath,
				"error", err)
			c.analysisFailures.Add(1)
		}
	}
	return len(modules), nil
}

// startWatcher starts the file system watcher for one root and consumes
// its events in the background.
func (c *Component) startWatcher(ctx context.Context, pw *pathWatcher) error {
	if err := pw.watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	c.cancelFuncs = append(c.cancelFuncs, cancel)

	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-pw.watcher.Events():
				if !ok {
					return
				}
				c.handleWatchEvent(watchCtx, event)
			}
		}
	}()

	c.logger.Info("File watcher started", "path", pw.root)
	return nil
}

// handleWatchEvent processes one debounced file change.
func (c *Component) handleWatchEvent(ctx context.Context, event parser.WatchEvent) {
	c.updateLastActivity()

	if event.Error != nil {
		c.logger.Warn("Watch event error",
			"path", event.Path,
			"error", event.Error)
		c.incrementErrors()
		return
	}

	switch event.Operation {
	case parser.OpCreate, parser.OpModify:
		if event.Module == nil {
			return
		}
		if err := c.analyzeAndPublish(ctx, event.Module); err != nil {
			c.logger.Warn("Failed to analyze changed file",
				"path", event.Path,
				"error", err)
			c.incrementErrors()
		}
	case parser.OpDelete:
		if err := c.pipeline.Remove(ctx, event.Path); err != nil {
			c.logger.Warn("Failed to remove deleted file from graph",
				"path", event.Path,
				"error", err)
			c.incrementErrors()
			return
		}
		c.logger.Debug("File removed from graph", "path", event.Path)
	}
}

// startPeriodicAnalysis starts periodic full reanalysis.
func (c *Component) startPeriodicAnalysis(ctx context.Context) {
	interval, err := time.ParseDuration(c.config.IndexInterval)
	if err != nil {
		c.logger.Warn("Invalid index interval, skipping periodic analysis", "error", err)
		return
	}

	analysisCtx, cancel := context.WithCancel(ctx)
	c.cancelFuncs = append(c.cancelFuncs, cancel)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-analysisCtx.Done():
				return
			case <-ticker.C:
				c.performFullAnalysis(analysisCtx)
			}
		}
	}()

	c.logger.Info("Periodic analysis started", "interval", interval)
}

// performFullAnalysis reanalyzes all configured roots.
func (c *Component) performFullAnalysis(ctx context.Context) {
	c.logger.Debug("Starting periodic reanalysis")

	totalFiles := 0
	for _, pw := range c.watchers {
		n, err := c.analyzeRoot(ctx, pw)
		if err != nil {
			c.logger.Error("Periodic reanalysis failed",
				"path", pw.root,
				"error", err)
			c.incrementErrors()
			continue
		}
		totalFiles += n
	}

	c.logger.Debug("Periodic reanalysis complete", "files", totalFiles)
}

// analyzeAndPublish runs the full analysis pass for one parsed file and
// publishes the results as entity updates.
func (c *Component) analyzeAndPublish(ctx context.Context, pm *analysis.ParsedModule) error {
	delta, err := c.pipeline.Analyze(ctx, pm)
	if err != nil {
		return err
	}

	for _, payload := range deltaPayloads(c.config.Org, c.config.Project, delta) {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal entity payload: %w", err)
		}
		if err := c.natsClient.PublishToStream(ctx, graphIngestSubject, data); err != nil {
			return fmt.Errorf("publish entity: %w", err)
		}
		c.elementsPublished.Add(1)
		c.updateLastActivity()
	}
	return nil
}

// updateLastActivity safely updates the last activity timestamp.
func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

// getLastActivity safely retrieves the last activity timestamp.
func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}

// incrementErrors safely increments the error counter.
func (c *Component) incrementErrors() {
	c.errors.Add(1)
}

// Stop gracefully stops the component within the given timeout.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	for _, cancel := range c.cancelFuncs {
		cancel()
	}
	c.cancelFuncs = nil

	if c.config.WatchEnabled {
		for _, pw := range c.watchers {
			if err := pw.watcher.Stop(); err != nil {
				c.logger.Warn("Error stopping watcher",
					"path", pw.root,
					"error", err)
			}
		}
	}

	c.running = false
	c.logger.Info("Graph analyzer stopped",
		"paths", len(c.watchers),
		"elements_published", c.elementsPublished.Load(),
		"analysis_failures", c.analysisFailures.Load(),
		"errors", c.errors.Load())

	return nil
}

// Discoverable interface implementation

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "graph-analyzer",
		Type:        "processor",
		Description: "Codebase analyzer publishing structure, drift, and hallucination facts to the graph",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	// The analyzer has no input ports - it generates data from the file system
	return []component.Port{}
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = buildPort(portDef, component.DirectionOutput)
	}
	return ports
}

// buildPort creates a component.Port from a PortDefinition, using
// JetStreamPort for jetstream-type ports and NATSPort for core NATS ports.
func buildPort(portDef component.PortDefinition, direction component.Direction) component.Port {
	port := component.Port{
		Name:        portDef.Name,
		Direction:   direction,
		Required:    portDef.Required,
		Description: portDef.Description,
	}
	if portDef.Type == "jetstream" {
		port.Config = component.JetStreamPort{
			StreamName: portDef.StreamName,
			Subjects:   []string{portDef.Subject},
		}
	} else {
		port.Config = component.NATSPort{
			Subject: portDef.Subject,
		}
	}
	return port
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return graphAnalyzerSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.errors.Load()),
		Uptime:     time.Since(startTime),
		Status:     c.getStatusString(running),
	}
}

func (c *Component) getStatusString(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         0,
		LastActivity:      c.getLastActivity(),
	}
}
