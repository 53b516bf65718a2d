// Package export serializes knowledge graph snapshots for downstream
// tooling, as plain JSON or as RDF aligned with the audit vocabulary.
package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/graph"
	"github.com/c360studio/archdrift/vocabulary/audit"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatJSON produces the raw snapshot as indented JSON.
	FormatJSON Format = "json"

	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"
)

// EntityNamespace is the IRI prefix for exported code elements.
const EntityNamespace = "https://archdrift.dev/entity/"

// TypeElement is the RDF type asserted for every exported element.
const TypeElement = audit.Namespace + "Element"

// Triple is one predicate-object pair on an exported entity. Ref marks
// the object as a reference to another element rather than a literal.
type Triple struct {
	Predicate string
	Object    any
	Ref       bool
}

// Entity is one code element with its exported triples.
type Entity struct {
	ID      string
	Triples []Triple
}

// Snapshot serializes a graph snapshot in the requested format.
func Snapshot(s *graph.Snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatTurtle:
		return []byte(toTurtle(FromSnapshot(s))), nil
	case FormatNTriples:
		return []byte(toNTriples(FromSnapshot(s))), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// FromSnapshot flattens a snapshot into per-element entities. External
// placeholders keep only their identity triples so relationship objects
// still resolve.
func FromSnapshot(s *graph.Snapshot) []Entity {
	outgoing := make(map[string][]analysis.Relationship)
	for _, rel := range s.Relationships {
		outgoing[rel.SourceID] = append(outgoing[rel.SourceID], rel)
	}
	classifications := make(map[string]*analysis.Classification, len(s.Classifications))
	for i := range s.Classifications {
		classifications[s.Classifications[i].ElementID] = &s.Classifications[i]
	}
	tags := make(map[string]*analysis.IntentTag, len(s.IntentTags))
	for i := range s.IntentTags {
		tags[s.IntentTags[i].ElementID] = &s.IntentTags[i]
	}
	violations := make(map[string][]analysis.Violation)
	for _, v := range s.Violations {
		violations[v.ElementID] = append(violations[v.ElementID], v)
	}
	findings := make(map[string]*analysis.HallucinationFinding, len(s.Findings))
	for i := range s.Findings {
		findings[s.Findings[i].ElementID] = &s.Findings[i]
	}

	entities := make([]Entity, 0, len(s.Elements))
	for _, el := range s.Elements {
		triples := []Triple{
			{Predicate: audit.PredicateKind, Object: string(el.Kind)},
			{Predicate: audit.PredicateName, Object: el.Name},
			{Predicate: audit.PredicateQualifiedName, Object: el.QualifiedName},
		}
		if el.External {
			triples = append(triples,
				Triple{Predicate: audit.PredicateExternal, Object: true})
			entities = append(entities, Entity{ID: el.ID, Triples: triples})
			continue
		}
		triples = append(triples,
			Triple{Predicate: audit.PredicateFilePath, Object: el.FilePath},
			Triple{Predicate: audit.PredicateStartLine, Object: el.StartLine},
			Triple{Predicate: audit.PredicateEndLine, Object: el.EndLine},
		)

		for _, rel := range outgoing[el.ID] {
			pred, ok := audit.RelationPredicate(rel.Kind)
			if !ok {
				continue
			}
			triples = append(triples, Triple{Predicate: pred, Object: rel.TargetID, Ref: true})
		}

		if tag := tags[el.ID]; tag != nil {
			triples = append(triples,
				Triple{Predicate: audit.PredicateIntentLayer, Object: string(tag.Layer)},
				Triple{Predicate: audit.PredicateIntentSource, Object: string(tag.Source)})
			if tag.Role != "" {
				triples = append(triples,
					Triple{Predicate: audit.PredicateIntentRole, Object: tag.Role})
			}
		}

		if cls := classifications[el.ID]; cls != nil {
			triples = append(triples,
				Triple{Predicate: audit.PredicateLayer, Object: string(cls.Layer)},
				Triple{Predicate: audit.PredicateConfidence, Object: cls.Confidence},
				Triple{Predicate: audit.PredicateMethod, Object: string(cls.Method)})
			if cls.Role != "" {
				triples = append(triples, Triple{Predicate: audit.PredicateRole, Object: cls.Role})
			}
			if cls.Pattern != "" {
				triples = append(triples, Triple{Predicate: audit.PredicatePattern, Object: cls.Pattern})
			}
		}

		for _, v := range violations[el.ID] {
			triples = append(triples, Triple{
				Predicate: audit.PredicateViolation,
				Object:    fmt.Sprintf("%s %s: %s", v.Severity, v.Type, v.Detail),
			})
		}

		if f := findings[el.ID]; f != nil {
			triples = append(triples,
				Triple{Predicate: audit.PredicateRiskLevel, Object: string(f.RiskLevel)},
				Triple{Predicate: audit.PredicateSuspicion, Object: f.CombinedConfidence})
		}

		entities = append(entities, Entity{ID: el.ID, Triples: triples})
	}
	return entities
}

// defaultPrefixes returns the namespace prefixes for RDF export.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"xsd":    "http://www.w3.org/2001/XMLSchema#",
		"audit":  audit.Namespace,
		"entity": EntityNamespace,
	}
}

// elementIRI converts an element ID to its entity IRI.
func elementIRI(elementID string) string {
	return EntityNamespace + "element/" + elementID
}

// toTurtle serializes entities to Turtle.
func toTurtle(entities []Entity) string {
	w := NewTurtleWriter()
	w.WritePrefixes()

	for _, entity := range entities {
		w.WriteSubject(elementIRI(entity.ID))
		w.WriteType(TypeElement, len(entity.Triples) == 0)
		for i, triple := range entity.Triples {
			w.WritePredicate(audit.PredicateIRI(triple.Predicate),
				resolveObject(triple), i == len(entity.Triples)-1)
		}
		w.WriteBlank()
	}

	return w.String()
}

// toNTriples serializes entities to N-Triples.
func toNTriples(entities []Entity) string {
	w := NewNTriplesWriter()

	for _, entity := range entities {
		iri := elementIRI(entity.ID)
		w.WriteTypeTriple(iri, TypeElement)
		for _, triple := range entity.Triples {
			w.WriteTriple(iri, audit.PredicateIRI(triple.Predicate), resolveObject(triple))
		}
	}

	return w.String()
}

// iriObject wraps an object value that must serialize as an IRI.
type iriObject string

// resolveObject converts element references into IRIs and passes
// literals through.
func resolveObject(t Triple) any {
	if t.Ref {
		if s, ok := t.Object.(string); ok {
			return iriObject(elementIRI(s))
		}
	}
	return t.Object
}

// formatObject formats an object value for Turtle output.
func formatObject(obj any) string {
	switch v := obj.(type) {
	case iriObject:
		return fmt.Sprintf("<%s>", string(v))
	case string:
		return fmt.Sprintf("\"%s\"", escapeString(v))
	case int, int32, int64:
		return fmt.Sprintf("\"%d\"^^xsd:integer", v)
	case float32, float64:
		return fmt.Sprintf("\"%v\"^^xsd:decimal", v)
	case bool:
		return fmt.Sprintf("\"%t\"^^xsd:boolean", v)
	default:
		return fmt.Sprintf("\"%v\"", v)
	}
}

// formatObjectNTriples formats an object value for N-Triples output.
func formatObjectNTriples(obj any) string {
	switch v := obj.(type) {
	case iriObject:
		return fmt.Sprintf("<%s>", string(v))
	case string:
		return fmt.Sprintf("\"%s\"", escapeString(v))
	case int, int32, int64:
		return fmt.Sprintf("\"%d\"^^<http://www.w3.org/2001/XMLSchema#integer>", v)
	case float32, float64:
		return fmt.Sprintf("\"%v\"^^<http://www.w3.org/2001/XMLSchema#decimal>", v)
	case bool:
		return fmt.Sprintf("\"%t\"^^<http://www.w3.org/2001/XMLSchema#boolean>", v)
	default:
		return fmt.Sprintf("\"%v\"", v)
	}
}

// escapeString escapes special characters for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

// sortedPrefixKeys returns prefix names in stable order.
func sortedPrefixKeys(prefixes map[string]string) []string {
	keys := make([]string, 0, len(prefixes))
	for k := range prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
