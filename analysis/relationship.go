package analysis

// RelationKind categorizes an edge between two code elements.
type RelationKind string

// Relationship kinds produced by the extractor. DEPENDS_ON is a derived
// module-level edge summarizing imports and calls between modules.
const (
	RelContains     RelationKind = "CONTAINS"
	RelImports      RelationKind = "IMPORTS"
	RelCalls        RelationKind = "CALLS"
	RelInheritsFrom RelationKind = "INHERITS_FROM"
	RelUses         RelationKind = "USES"
	RelDependsOn    RelationKind = "DEPENDS_ON"
)

// Metadata keys set by the extractor.
const (
	// MetaResolution records how a reference was resolved. The value
	// "heuristic" means the target was picked by name matching rather
	// than scope analysis and may be wrong.
	MetaResolution = "resolution"

	// ResolutionHeuristic is the MetaResolution value for best-effort
	// name-based resolution.
	ResolutionHeuristic = "heuristic"
)

// Relationship is a directed edge in the knowledge graph. Edges are not
// deduplicated: two calls from the same source to the same target on
// different lines are two relationships.
type Relationship struct {
	Kind     RelationKind      `json:"kind"`
	SourceID string            `json:"source_id"`
	TargetID string            `json:"target_id"`
	Line     int               `json:"line,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Heuristic reports whether the edge target was resolved by name matching.
func (r Relationship) Heuristic() bool {
	return r.Metadata[MetaResolution] == ResolutionHeuristic
}
