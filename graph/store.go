// Package graph defines the knowledge graph store contract and its
// in-memory reference implementation. All pipeline state lives behind
// the Store interface so persistence backends are interchangeable.
package graph

import (
	"context"
	"time"

	"github.com/c360studio/archdrift/analysis"
)

// Direction selects which edges Relationships returns relative to the
// element.
type Direction int

// Edge directions.
const (
	DirOutgoing Direction = iota
	DirIncoming
	DirBoth
)

// Query describes a structural pattern over the graph. Zero-value
// fields are wildcards.
type Query struct {
	// Kind restricts results to one element kind.
	Kind analysis.ElementKind

	// Layer restricts results to elements classified in this layer.
	Layer analysis.Layer

	// NameContains restricts results to elements whose qualified name
	// contains the substring.
	NameContains string

	// DependsOnLayer restricts results to elements with an outgoing
	// IMPORTS, CALLS, or DEPENDS_ON edge whose target is classified in
	// this layer.
	DependsOnLayer analysis.Layer
}

// Snapshot is a full export of the graph at one point in time, ordered
// deterministically for stable diffs.
type Snapshot struct {
	TakenAt         time.Time                       `json:"taken_at"`
	Elements        []*analysis.CodeElement         `json:"elements"`
	Relationships   []analysis.Relationship         `json:"relationships"`
	Classifications []analysis.Classification       `json:"classifications,omitempty"`
	IntentTags      []analysis.IntentTag            `json:"intent_tags,omitempty"`
	Violations      []analysis.Violation            `json:"violations,omitempty"`
	Findings        []analysis.HallucinationFinding `json:"findings,omitempty"`
}

// Store is the knowledge graph contract. Implementations must be safe
// for concurrent use; UpsertFile must be atomic per file.
type Store interface {
	// UpsertFile atomically replaces all elements and relationships
	// previously recorded for filePath. Batches containing an edge to
	// a target that is neither in the batch, nor already in the graph,
	// nor an external placeholder are rejected with an IntegrityError
	// and leave the graph unchanged.
	UpsertFile(ctx context.Context, filePath string, elements []*analysis.CodeElement, rels []analysis.Relationship) error

	// Element returns the element with the given ID or ErrNotFound.
	Element(ctx context.Context, id string) (*analysis.CodeElement, error)

	// Relationships returns edges touching the element, filtered by
	// kind (empty = all kinds) and direction.
	Relationships(ctx context.Context, elementID string, kind analysis.RelationKind, dir Direction) ([]analysis.Relationship, error)

	// SetClassification records the element's classification, replacing
	// any previous one.
	SetClassification(ctx context.Context, c analysis.Classification) error

	// Classification returns the element's active classification or
	// ErrNotFound.
	Classification(ctx context.Context, elementID string) (*analysis.Classification, error)

	// SetIntentTag records the element's declared intent, replacing any
	// previous tag.
	SetIntentTag(ctx context.Context, tag analysis.IntentTag) error

	// IntentTag returns the element's intent tag or ErrNotFound.
	IntentTag(ctx context.Context, elementID string) (*analysis.IntentTag, error)

	// RecordViolations replaces the element's drift violations with the
	// given set. Derived facts are regenerated on every run, so an
	// empty set clears the element.
	RecordViolations(ctx context.Context, elementID string, violations []analysis.Violation) error

	// RecordFinding replaces the element's hallucination finding.
	RecordFinding(ctx context.Context, f analysis.HallucinationFinding) error

	// Query returns elements matching the pattern, ordered by
	// qualified name.
	Query(ctx context.Context, q Query) ([]*analysis.CodeElement, error)

	// Violations returns all recorded violations at or above the
	// minimum severity.
	Violations(ctx context.Context, min analysis.Severity) ([]analysis.Violation, error)

	// Findings returns all recorded findings at or above the minimum
	// risk level.
	Findings(ctx context.Context, min analysis.RiskLevel) ([]analysis.HallucinationFinding, error)

	// Snapshot exports the full graph.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Close releases backend resources.
	Close() error
}
