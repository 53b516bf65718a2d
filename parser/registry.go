package parser

import (
	"fmt"
	"sync"
)

// Registry maps languages to parser factories and file extensions to
// languages. Thread-safe for concurrent access.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Factory // language name -> factory
	extMap  map[string]string  // extension -> language name
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]Factory),
		extMap:  make(map[string]string),
	}
}

// Register adds a parser factory for the given extensions. Extensions
// include the leading dot (".py"). The first registration wins on an
// extension conflict.
func (r *Registry) Register(name string, extensions []string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers[name] = factory
	for _, ext := range extensions {
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = name
		}
	}
}

// ParserName returns the language registered for a file extension.
func (r *Registry) ParserName(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.extMap[ext]
	return name, ok
}

// Create instantiates a parser by language name.
func (r *Registry) Create(name, repoRoot string) (FileParser, error) {
	r.mu.RLock()
	factory, ok := r.parsers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("parser not registered: %s", name)
	}
	return factory(repoRoot), nil
}

// CreateForExtension instantiates a parser for a file extension.
func (r *Registry) CreateForExtension(ext, repoRoot string) (FileParser, error) {
	name, ok := r.ParserName(ext)
	if !ok {
		return nil, fmt.Errorf("no parser registered for extension: %s", ext)
	}
	return r.Create(name, repoRoot)
}

// Languages returns all registered language names.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	return names
}

// Extensions returns all registered file extensions.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extMap))
	for ext := range r.extMap {
		exts = append(exts, ext)
	}
	return exts
}

// DefaultRegistry is the global parser registry. Language packages
// register themselves via init().
var DefaultRegistry = NewRegistry()
