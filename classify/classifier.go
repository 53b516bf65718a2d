// Package classify infers the architectural layer, role, and pattern of
// code elements. Deterministic heuristic signals run first; an optional
// AI collaborator refines low-confidence results and falls back to the
// heuristic answer on timeout or error.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/c360studio/archdrift/analysis"
)

// Config controls classification behavior.
type Config struct {
	// Threshold is the heuristic confidence below which the AI
	// collaborator is consulted.
	Threshold float64

	// Timeout bounds one collaborator call.
	Timeout time.Duration

	// CacheSize is the number of element classifications kept in the
	// LRU cache.
	CacheSize int
}

// DefaultConfig returns the standard classifier settings.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.7,
		Timeout:   10 * time.Second,
		CacheSize: 4096,
	}
}

// Subject is one element plus the context the signals need.
type Subject struct {
	Element *analysis.CodeElement

	// Imports are the module names imported by the element's file.
	Imports []string
}

// CollaboratorResult is an AI collaborator's answer.
type CollaboratorResult struct {
	Layer      analysis.Layer
	Role       string
	Pattern    string
	Confidence float64
}

// Collaborator is the optional AI classification backend.
type Collaborator interface {
	Classify(ctx context.Context, subject Subject) (*CollaboratorResult, error)
}

// Classifier assigns layers to elements. It is safe for concurrent use.
type Classifier struct {
	cfg          Config
	collaborator Collaborator
	cache        *lru.Cache[string, analysis.Classification]
	logger       *slog.Logger
}

// New creates a classifier. collaborator may be nil for heuristic-only
// operation.
func New(cfg Config, collaborator Collaborator, logger *slog.Logger) (*Classifier, error) {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache, err := lru.New[string, analysis.Classification](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		cfg:          cfg,
		collaborator: collaborator,
		cache:        cache,
		logger:       logger,
	}, nil
}

// Classify returns the element's classification. Unchanged elements hit
// the cache; low-confidence heuristic results consult the collaborator
// when one is configured.
func (c *Classifier) Classify(ctx context.Context, subject Subject) analysis.Classification {
	el := subject.Element
	key := el.ID + ":" + el.ContentHash()
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	result := c.heuristic(subject)

	if result.Confidence < c.cfg.Threshold && c.collaborator != nil {
		if refined, err := c.consult(ctx, subject); err == nil {
			result = *refined
		} else {
			c.logger.Debug("collaborator unavailable, keeping heuristic result",
				"element_id", el.ID,
				"error", err)
		}
	}

	c.cache.Add(key, result)
	return result
}

// consult runs the collaborator under the configured timeout.
func (c *Classifier) consult(ctx context.Context, subject Subject) (*analysis.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	res, err := c.collaborator.Classify(ctx, subject)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &analysis.CollaboratorTimeoutError{Collaborator: "classifier", Err: err}
		}
		return nil, err
	}
	if res.Layer == analysis.LayerUnknown || res.Confidence <= 0 {
		return nil, errors.New("collaborator returned no usable classification")
	}
	confidence := res.Confidence
	if confidence > 1 {
		confidence = 1
	}
	return &analysis.Classification{
		ElementID:  subject.Element.ID,
		Layer:      res.Layer,
		Role:       res.Role,
		Pattern:    res.Pattern,
		Confidence: confidence,
		Method:     analysis.MethodAIAssisted,
	}, nil
}
