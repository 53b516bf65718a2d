package parser

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/archdrift/analysis"
)

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// RepoRoot is the root directory to watch.
	RepoRoot string

	// Registry selects parsers by extension. Nil uses DefaultRegistry.
	Registry *Registry

	// DebounceDelay is how long to wait for more changes before
	// processing.
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// WatchOperation indicates the type of file operation.
type WatchOperation string

const (
	OpCreate WatchOperation = "create"
	OpModify WatchOperation = "modify"
	OpDelete WatchOperation = "delete"
)

// WatchEvent is one debounced file change. Module is nil for deletes
// and parse failures.
type WatchEvent struct {
	// Path is the file path relative to the repo root.
	Path string

	Operation WatchOperation
	Module    *analysis.ParsedModule
	Error     error
}

// Watcher watches a repository for source changes and emits parsed
// modules. Changes are debounced and deduplicated by content hash, so
// editor save storms produce one event.
type Watcher struct {
	config   WatcherConfig
	registry *Registry
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	parsersMu sync.Mutex
	parsers   map[string]FileParser // language name -> parser

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.RWMutex
	hashes map[string]string // rel path -> content hash

	events chan WatchEvent
}

// NewWatcher creates a file watcher.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if config.Registry == nil {
		config.Registry = DefaultRegistry
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 100 * time.Millisecond
	}

	return &Watcher{
		config:   config,
		registry: config.Registry,
		watcher:  fsw,
		logger:   config.Logger,
		parsers:  make(map[string]FileParser),
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan WatchEvent, 100),
	}, nil
}

// Events returns the channel of watch events.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start begins watching the repository. It returns after the watches
// are installed; events flow until the context is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.config.RepoRoot); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("file watcher started",
		"root", w.config.RepoRoot,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.events)
	return w.watcher.Close()
}

// SetHash records a file's hash, used to seed change detection during
// initial indexing.
func (w *Watcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) getHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// parserFor returns a cached parser for the extension, or nil when no
// language handles it.
func (w *Watcher) parserFor(ext string) FileParser {
	name, ok := w.registry.ParserName(ext)
	if !ok {
		return nil
	}
	w.parsersMu.Lock()
	defer w.parsersMu.Unlock()
	if p, ok := w.parsers[name]; ok {
		return p
	}
	p, err := w.registry.Create(name, w.config.RepoRoot)
	if err != nil {
		return nil
	}
	w.parsers[name] = p
	return p
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if rel != "." && SkipPath(rel) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if _, ok := w.registry.ParserName(filepath.Ext(path)); !ok {
		// New directories need watches of their own.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	relPath, _ := filepath.Rel(w.config.RepoRoot, path)
	if SkipPath(relPath) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("file change detected", "path", relPath, "op", event.Op.String())
}

func (w *Watcher) handleNewDirectory(path string) {
	rel, _ := filepath.Rel(w.config.RepoRoot, path)
	if SkipPath(rel) {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", err)
	}
}

// flushPending processes accumulated changes.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		relPath, _ := filepath.Rel(w.config.RepoRoot, path)
		event := WatchEvent{Path: relPath}

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			event.Operation = OpDelete
			w.hashMu.Lock()
			delete(w.hashes, relPath)
			w.hashMu.Unlock()
			w.sendEvent(event)
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			event.Operation = OpDelete
			w.sendEvent(event)
			continue
		}

		p := w.parserFor(filepath.Ext(path))
		if p == nil {
			continue
		}
		module, err := p.ParseFile(ctx, path)
		if err != nil {
			event.Error = err
			w.sendEvent(event)
			continue
		}

		oldHash, hadHash := w.getHash(relPath)
		if hadHash && oldHash == module.Hash {
			continue
		}
		w.SetHash(relPath, module.Hash)

		if op.Has(fsnotify.Create) || !hadHash {
			event.Operation = OpCreate
		} else {
			event.Operation = OpModify
		}
		event.Module = module
		w.sendEvent(event)
	}
}

func (w *Watcher) sendEvent(event WatchEvent) {
	select {
	case w.events <- event:
	default:
		w.logger.Warn("event channel full, dropping event", "path", event.Path)
	}
}

// IndexDirectory parses every recognized file under the repo root,
// seeding the hash cache so subsequent events only fire on real change.
func (w *Watcher) IndexDirectory(ctx context.Context) ([]*analysis.ParsedModule, error) {
	var all []*analysis.ParsedModule
	for _, name := range w.registry.Languages() {
		p, err := w.registry.Create(name, w.config.RepoRoot)
		if err != nil {
			continue
		}
		modules, err := p.ParseDirectory(ctx, w.config.RepoRoot)
		if err != nil {
			return nil, err
		}
		for _, m := range modules {
			w.SetHash(m.FilePath, m.Hash)
		}
		all = append(all, modules...)
	}
	return all, nil
}
