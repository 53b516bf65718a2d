// Package audit defines the vocabulary predicates for publishing
// codebase analysis results to the knowledge graph.
package audit

import (
	"strings"

	"github.com/c360studio/semstreams/vocabulary"

	"github.com/c360studio/archdrift/analysis"
)

// Namespace for audit predicates.
const Namespace = "https://archdrift.dev/vocabulary/audit#"

// Element structure predicates.
const (
	// PredicateKind is the element kind (module, class, method, ...).
	PredicateKind = "archdrift.element.kind"

	// PredicateName is the element's short name.
	PredicateName = "archdrift.element.name"

	// PredicateQualifiedName is the dotted path from the package root.
	PredicateQualifiedName = "archdrift.element.qualified_name"

	// PredicateFilePath is the repo-relative source file.
	PredicateFilePath = "archdrift.element.file_path"

	// PredicateStartLine is the first source line of the element.
	PredicateStartLine = "archdrift.element.start_line"

	// PredicateEndLine is the last source line of the element.
	PredicateEndLine = "archdrift.element.end_line"

	// PredicateExternal marks placeholder elements for unresolved
	// references.
	PredicateExternal = "archdrift.element.external"
)

// Relationship predicates, one per edge kind.
const (
	PredicateContains     = "archdrift.element.contains"
	PredicateImports      = "archdrift.element.imports"
	PredicateCalls        = "archdrift.element.calls"
	PredicateInheritsFrom = "archdrift.element.inherits_from"
	PredicateUses         = "archdrift.element.uses"
	PredicateDependsOn    = "archdrift.element.depends_on"
)

// Classification predicates.
const (
	// PredicateLayer is the detected architectural layer.
	PredicateLayer = "archdrift.classification.layer"

	// PredicateRole is the detected role (entity, repository, ...).
	PredicateRole = "archdrift.classification.role"

	// PredicatePattern is the detected design pattern.
	PredicatePattern = "archdrift.classification.pattern"

	// PredicateConfidence is the classification confidence in [0,1].
	PredicateConfidence = "archdrift.classification.confidence"

	// PredicateMethod records how the classification was produced.
	PredicateMethod = "archdrift.classification.method"
)

// Declared intent predicates.
const (
	// PredicateIntentLayer is the developer-declared layer.
	PredicateIntentLayer = "archdrift.intent.layer"

	// PredicateIntentRole is the developer-declared role.
	PredicateIntentRole = "archdrift.intent.role"

	// PredicateIntentSource is "declared" or "inferred".
	PredicateIntentSource = "archdrift.intent.source"
)

// Analysis result predicates.
const (
	// PredicateViolation is one drift violation, rendered as
	// "severity type: detail".
	PredicateViolation = "archdrift.element.violation"

	// PredicateRiskLevel is the hallucination risk level.
	PredicateRiskLevel = "archdrift.finding.risk_level"

	// PredicateSuspicion is the combined hallucination confidence.
	PredicateSuspicion = "archdrift.finding.confidence"
)

var predicateIRIs = map[string]string{
	PredicateKind:          Namespace + "kind",
	PredicateName:          Namespace + "name",
	PredicateQualifiedName: Namespace + "qualifiedName",
	PredicateFilePath:      Namespace + "filePath",
	PredicateStartLine:     Namespace + "startLine",
	PredicateEndLine:       Namespace + "endLine",
	PredicateExternal:      Namespace + "external",
	PredicateContains:      Namespace + "contains",
	PredicateImports:       Namespace + "imports",
	PredicateCalls:         Namespace + "calls",
	PredicateInheritsFrom:  Namespace + "inheritsFrom",
	PredicateUses:          Namespace + "uses",
	PredicateDependsOn:     Namespace + "dependsOn",
	PredicateLayer:         Namespace + "layer",
	PredicateRole:          Namespace + "role",
	PredicatePattern:       Namespace + "pattern",
	PredicateConfidence:    Namespace + "confidence",
	PredicateMethod:        Namespace + "method",
	PredicateIntentLayer:   Namespace + "intentLayer",
	PredicateIntentRole:    Namespace + "intentRole",
	PredicateIntentSource:  Namespace + "intentSource",
	PredicateViolation:     Namespace + "violation",
	PredicateRiskLevel:     Namespace + "riskLevel",
	PredicateSuspicion:     Namespace + "suspicion",
}

// PredicateIRI returns the full IRI for an audit predicate. Unknown
// predicates fall back to the namespace plus the last dotted segment.
func PredicateIRI(predicate string) string {
	if iri, ok := predicateIRIs[predicate]; ok {
		return iri
	}
	if i := strings.LastIndex(predicate, "."); i >= 0 {
		return Namespace + predicate[i+1:]
	}
	return Namespace + predicate
}

var relationPredicates = map[analysis.RelationKind]string{
	analysis.RelContains:     PredicateContains,
	analysis.RelImports:      PredicateImports,
	analysis.RelCalls:        PredicateCalls,
	analysis.RelInheritsFrom: PredicateInheritsFrom,
	analysis.RelUses:         PredicateUses,
	analysis.RelDependsOn:    PredicateDependsOn,
}

// RelationPredicate maps a relationship kind to its audit predicate.
func RelationPredicate(kind analysis.RelationKind) (string, bool) {
	p, ok := relationPredicates[kind]
	return p, ok
}

func init() {
	vocabulary.Register(PredicateKind,
		vocabulary.WithDescription("Element kind"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"kind"))

	vocabulary.Register(PredicateName,
		vocabulary.WithDescription("Element short name"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"name"))

	vocabulary.Register(PredicateQualifiedName,
		vocabulary.WithDescription("Dotted path from the package root"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"qualifiedName"))

	vocabulary.Register(PredicateFilePath,
		vocabulary.WithDescription("Repo-relative source file"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"filePath"))

	vocabulary.Register(PredicateStartLine,
		vocabulary.WithDescription("First source line"),
		vocabulary.WithDataType("int"))

	vocabulary.Register(PredicateEndLine,
		vocabulary.WithDescription("Last source line"),
		vocabulary.WithDataType("int"))

	vocabulary.Register(PredicateExternal,
		vocabulary.WithDescription("Placeholder for an unresolved reference"),
		vocabulary.WithDataType("bool"))

	vocabulary.Register(PredicateContains,
		vocabulary.WithDescription("Lexical containment edge"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"contains"))

	vocabulary.Register(PredicateImports,
		vocabulary.WithDescription("Module import edge"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"imports"))

	vocabulary.Register(PredicateCalls,
		vocabulary.WithDescription("Call edge"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"calls"))

	vocabulary.Register(PredicateInheritsFrom,
		vocabulary.WithDescription("Inheritance edge"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"inheritsFrom"))

	vocabulary.Register(PredicateUses,
		vocabulary.WithDescription("Attribute use edge"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"uses"))

	vocabulary.Register(PredicateDependsOn,
		vocabulary.WithDescription("Derived module dependency edge"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Namespace+"dependsOn"))

	vocabulary.Register(PredicateLayer,
		vocabulary.WithDescription("Detected architectural layer"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"layer"))

	vocabulary.Register(PredicateRole,
		vocabulary.WithDescription("Detected architectural role"),
		vocabulary.WithDataType("string"))

	vocabulary.Register(PredicatePattern,
		vocabulary.WithDescription("Detected design pattern"),
		vocabulary.WithDataType("string"))

	vocabulary.Register(PredicateConfidence,
		vocabulary.WithDescription("Classification confidence"),
		vocabulary.WithDataType("float"))

	vocabulary.Register(PredicateMethod,
		vocabulary.WithDescription("Classification method (heuristic, ai-assisted)"),
		vocabulary.WithDataType("string"))

	vocabulary.Register(PredicateIntentLayer,
		vocabulary.WithDescription("Declared architectural layer"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"intentLayer"))

	vocabulary.Register(PredicateIntentRole,
		vocabulary.WithDescription("Declared architectural role"),
		vocabulary.WithDataType("string"))

	vocabulary.Register(PredicateIntentSource,
		vocabulary.WithDescription("Tag source (declared, inferred)"),
		vocabulary.WithDataType("string"))

	vocabulary.Register(PredicateViolation,
		vocabulary.WithDescription("Architectural drift violation"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"violation"))

	vocabulary.Register(PredicateRiskLevel,
		vocabulary.WithDescription("Hallucination risk level"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"riskLevel"))

	vocabulary.Register(PredicateSuspicion,
		vocabulary.WithDescription("Combined hallucination confidence"),
		vocabulary.WithDataType("float"))
}
