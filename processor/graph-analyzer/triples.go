package graphanalyzer

import (
	"fmt"
	"time"

	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/pipeline"
	"github.com/c360studio/archdrift/vocabulary/audit"
)

// tripleSource identifies this component as the origin of published facts.
const tripleSource = "archdrift.analyzer"

// elementEntityID generates a consistent entity ID for a code element.
// Format: <org>.<project>.audit.element.<element-id>
func elementEntityID(org, project, elementID string) string {
	return fmt.Sprintf("%s.%s.audit.element.%s", org, project, elementID)
}

// deltaPayloads converts one file's analysis results into entity
// payloads, one per element defined in the file. External placeholders
// are published only as objects of relationship triples, never as
// entities of their own.
func deltaPayloads(org, project string, delta *pipeline.AnalysisDelta) []*ElementPayload {
	now := time.Now()

	tags := make(map[string]*analysis.IntentTag, len(delta.IntentTags))
	for i := range delta.IntentTags {
		tags[delta.IntentTags[i].ElementID] = &delta.IntentTags[i]
	}
	classifications := make(map[string]*analysis.Classification, len(delta.Classifications))
	for i := range delta.Classifications {
		classifications[delta.Classifications[i].ElementID] = &delta.Classifications[i]
	}
	violations := make(map[string][]analysis.Violation)
	for _, v := range delta.Violations {
		violations[v.ElementID] = append(violations[v.ElementID], v)
	}
	findings := make(map[string]*analysis.HallucinationFinding, len(delta.Findings))
	for i := range delta.Findings {
		findings[delta.Findings[i].ElementID] = &delta.Findings[i]
	}

	var payloads []*ElementPayload
	for _, el := range delta.Batch.Elements {
		if el.External {
			continue
		}
		subject := elementEntityID(org, project, el.ID)

		triples := []message.Triple{
			triple(subject, audit.PredicateKind, string(el.Kind), now),
			triple(subject, audit.PredicateName, el.Name, now),
			triple(subject, audit.PredicateQualifiedName, el.QualifiedName, now),
			triple(subject, audit.PredicateFilePath, el.FilePath, now),
			triple(subject, audit.PredicateStartLine, el.StartLine, now),
			triple(subject, audit.PredicateEndLine, el.EndLine, now),
		}

		for _, rel := range delta.Batch.Relationships {
			if rel.SourceID != el.ID {
				continue
			}
			pred, ok := audit.RelationPredicate(rel.Kind)
			if !ok {
				continue
			}
			triples = append(triples,
				triple(subject, pred, elementEntityID(org, project, rel.TargetID), now))
		}

		if tag := tags[el.ID]; tag != nil {
			triples = append(triples,
				triple(subject, audit.PredicateIntentLayer, string(tag.Layer), now),
				triple(subject, audit.PredicateIntentSource, string(tag.Source), now))
			if tag.Role != "" {
				triples = append(triples,
					triple(subject, audit.PredicateIntentRole, tag.Role, now))
			}
		}

		if cls := classifications[el.ID]; cls != nil {
			layerTriple := triple(subject, audit.PredicateLayer, string(cls.Layer), now)
			layerTriple.Confidence = cls.Confidence
			triples = append(triples,
				layerTriple,
				triple(subject, audit.PredicateConfidence, cls.Confidence, now),
				triple(subject, audit.PredicateMethod, string(cls.Method), now))
			if cls.Role != "" {
				triples = append(triples, triple(subject, audit.PredicateRole, cls.Role, now))
			}
			if cls.Pattern != "" {
				triples = append(triples, triple(subject, audit.PredicatePattern, cls.Pattern, now))
			}
		}

		for _, v := range violations[el.ID] {
			triples = append(triples, triple(subject, audit.PredicateViolation,
				fmt.Sprintf("%s %s: %s", v.Severity, v.Type, v.Detail), now))
		}

		if f := findings[el.ID]; f != nil && analysis.RiskAtLeast(f.RiskLevel, analysis.RiskLow) {
			triples = append(triples,
				triple(subject, audit.PredicateRiskLevel, string(f.RiskLevel), now),
				triple(subject, audit.PredicateSuspicion, f.CombinedConfidence, now))
		}

		payloads = append(payloads, &ElementPayload{
			EntityID_:  subject,
			TripleData: triples,
			UpdatedAt:  now,
		})
	}
	return payloads
}

func triple(subject, predicate string, object any, ts time.Time) message.Triple {
	return message.Triple{
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Source:     tripleSource,
		Timestamp:  ts,
		Confidence: 1.0,
	}
}
