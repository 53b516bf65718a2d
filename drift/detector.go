// Package drift compares declared architectural intent against observed
// structure and emits violations. Elements without a declared intent tag
// are never checked: tags enhance the analysis, their absence is not a
// defect.
package drift

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/archdrift/analysis"
)

// LayerResolver reports the effective layer of a relationship target.
// Implementations return LayerUnknown when no judgment is possible;
// unknown targets are skipped rather than flagged.
type LayerResolver interface {
	LayerOf(ctx context.Context, elementID string) analysis.Layer
}

// Input is everything the detector needs for one element.
type Input struct {
	Element        *analysis.CodeElement
	Tag            *analysis.IntentTag
	Classification analysis.Classification

	// Outgoing holds the element's outgoing edges, including edges of
	// its contained children for module and class scoped checks.
	Outgoing []analysis.Relationship

	// Mutations are attribute assignments observed inside the element.
	Mutations []analysis.Mutation
}

// Detector checks declared intent against the graph.
type Detector struct {
	resolver LayerResolver
	logger   *slog.Logger
}

// New creates a drift detector.
func New(resolver LayerResolver, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{resolver: resolver, logger: logger}
}

// Detect runs all drift rules for one element. The rules are
// independent: one element can accumulate several violations. A nil or
// inferred tag yields no violations.
func (d *Detector) Detect(ctx context.Context, in Input) []analysis.Violation {
	if in.Tag == nil || in.Tag.Source != analysis.TagDeclared {
		return nil
	}

	var out []analysis.Violation
	out = append(out, d.checkLayer(in)...)
	out = append(out, d.checkDependencies(ctx, in)...)
	out = append(out, d.checkPattern(in)...)
	out = append(out, d.checkConstraints(in)...)

	if len(out) > 0 {
		d.logger.Debug("drift detected",
			"element_id", in.Element.ID,
			"violations", len(out))
	}
	return out
}

// checkLayer flags a declared layer that disagrees with the classified
// layer. Severity scales with the distance between the two layers.
func (d *Detector) checkLayer(in Input) []analysis.Violation {
	declared, actual := in.Tag.Layer, in.Classification.Layer
	if declared == analysis.LayerUnknown || actual == analysis.LayerUnknown || declared == actual {
		return nil
	}
	return []analysis.Violation{{
		ElementID: in.Element.ID,
		Type:      analysis.ViolationLayer,
		Severity:  analysis.SeverityForDistance(analysis.LayerDistance(declared, actual)),
		Detail: fmt.Sprintf("declared layer %s but classified as %s (confidence %.2f)",
			declared, actual, in.Classification.Confidence),
	}}
}

// checkDependencies flags outgoing IMPORTS, CALLS, and DEPENDS_ON edges
// to layers the tag does not declare. Same-layer edges are always
// allowed. One violation per distinct target.
func (d *Detector) checkDependencies(ctx context.Context, in Input) []analysis.Violation {
	if in.Tag.Layer == analysis.LayerUnknown {
		return nil
	}

	var out []analysis.Violation
	seen := make(map[string]bool)
	for _, rel := range in.Outgoing {
		switch rel.Kind {
		case analysis.RelImports, analysis.RelCalls, analysis.RelDependsOn:
		default:
			continue
		}
		if seen[rel.TargetID] {
			continue
		}
		targetLayer := d.resolver.LayerOf(ctx, rel.TargetID)
		if targetLayer == analysis.LayerUnknown || targetLayer == in.Tag.Layer {
			continue
		}
		if in.Tag.AllowsDependencyOn(targetLayer) {
			continue
		}
		seen[rel.TargetID] = true

		severity := analysis.SeverityMedium
		switch {
		case in.Tag.Layer == analysis.LayerCore && targetLayer == analysis.LayerInfrastructure:
			severity = analysis.SeverityCritical
		case in.Tag.Layer == analysis.LayerCore:
			severity = analysis.SeverityHigh
		}

		out = append(out, analysis.Violation{
			ElementID: in.Element.ID,
			Type:      analysis.ViolationDependency,
			Severity:  severity,
			Related:   rel.TargetID,
			Line:      rel.Line,
			Detail: fmt.Sprintf("%s element depends on %s layer via %s, not in declared dependencies",
				in.Tag.Layer, targetLayer, rel.Kind),
		})
	}
	return out
}

// checkPattern flags a declared pattern that disagrees with the
// detected one. Absence of a detected pattern is not a mismatch.
func (d *Detector) checkPattern(in Input) []analysis.Violation {
	if in.Tag.Pattern == "" || in.Classification.Pattern == "" {
		return nil
	}
	if strings.EqualFold(in.Tag.Pattern, in.Classification.Pattern) {
		return nil
	}
	return []analysis.Violation{{
		ElementID: in.Element.ID,
		Type:      analysis.ViolationPattern,
		Severity:  analysis.SeverityMedium,
		Detail: fmt.Sprintf("declared pattern %s but structure suggests %s",
			in.Tag.Pattern, in.Classification.Pattern),
	}}
}

// checkConstraints flags observed mutations that contradict declared
// constraints.
func (d *Detector) checkConstraints(in Input) []analysis.Violation {
	var out []analysis.Violation
	for _, mut := range in.Mutations {
		if !strings.HasPrefix(mut.Target, "self.") {
			continue
		}
		if in.Tag.HasConstraint(analysis.ConstraintImmutable) && !mut.InInit {
			out = append(out, analysis.Violation{
				ElementID: in.Element.ID,
				Type:      analysis.ViolationConstraint,
				Severity:  analysis.SeverityMedium,
				Line:      mut.Line,
				Detail:    fmt.Sprintf("declared immutable but %s is assigned outside the constructor", mut.Target),
			})
		}
		if in.Tag.HasConstraint(analysis.ConstraintStateless) {
			out = append(out, analysis.Violation{
				ElementID: in.Element.ID,
				Type:      analysis.ViolationConstraint,
				Severity:  analysis.SeverityHigh,
				Line:      mut.Line,
				Detail:    fmt.Sprintf("declared stateless but %s holds instance state", mut.Target),
			})
		}
		if in.Tag.HasConstraint(analysis.ConstraintThreadSafe) && !mut.InInit {
			out = append(out, analysis.Violation{
				ElementID: in.Element.ID,
				Type:      analysis.ViolationConstraint,
				Severity:  analysis.SeverityMedium,
				Line:      mut.Line,
				Detail:    fmt.Sprintf("declared thread-safe but %s is mutated after construction", mut.Target),
			})
		}
	}
	return out
}
