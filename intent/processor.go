// Package intent parses structured architectural tags out of docstrings
// and decorator text. Tags are declarations of intent; they enhance the
// analysis but never gate it, so malformed tags degrade to warnings.
package intent

import (
	"log/slog"
	"strings"

	"github.com/c360studio/archdrift/analysis"
)

// Tag keys recognized by the processor. Any other "@key: value" line is
// preserved verbatim in IntentTag.Other.
const (
	keyIntent       = "intent"
	keyDependsOn    = "depends-on"
	keyBusinessRule = "business-rule"
	keyConstraint   = "constraint"
)

// declaredConfidence is the confidence assigned to developer-written
// tags. Declared intent is taken at face value.
const declaredConfidence = 1.0

// Processor extracts intent tags from element comment text.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a tag processor. A nil logger disables logging.
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{logger: logger}
}

// Parse scans text line by line for tags and assembles an IntentTag for
// the element. It returns nil when no tag lines are present. Malformed
// tags produce warnings, never errors; a malformed @intent still yields
// a tag with Layer=unknown so the declaration is not silently dropped.
func (p *Processor) Parse(elementID, text string) (*analysis.IntentTag, []analysis.TagParseWarning) {
	var (
		tag      *analysis.IntentTag
		warnings []analysis.TagParseWarning
	)

	ensure := func() *analysis.IntentTag {
		if tag == nil {
			tag = &analysis.IntentTag{
				ElementID:  elementID,
				Layer:      analysis.LayerUnknown,
				Source:     analysis.TagDeclared,
				Confidence: declaredConfidence,
			}
		}
		return tag
	}

	for _, raw := range strings.Split(text, "\n") {
		key, value, ok := splitTagLine(raw)
		if !ok {
			continue
		}
		switch key {
		case keyIntent:
			if w := p.parseIntentValue(ensure(), value); w != nil {
				w.ElementID = elementID
				w.Line = strings.TrimSpace(raw)
				warnings = append(warnings, *w)
			}
		case keyDependsOn:
			t := ensure()
			t.DeclaredDependencies = append(t.DeclaredDependencies, splitList(value)...)
		case keyBusinessRule:
			t := ensure()
			t.BusinessRules = append(t.BusinessRules, value)
		case keyConstraint:
			t := ensure()
			t.Constraints = append(t.Constraints, splitList(value)...)
		default:
			t := ensure()
			if t.Other == nil {
				t.Other = make(map[string]string)
			}
			t.Other[key] = value
		}
	}

	if tag != nil && len(warnings) > 0 {
		p.logger.Debug("intent tag warnings",
			"element_id", elementID,
			"count", len(warnings))
	}
	return tag, warnings
}

// parseIntentValue fills layer/role/pattern/constraints from an @intent
// value of the form "layer:role[:pattern[:c1,c2]]". It returns a warning
// for a wrong field count or an unknown layer, leaving Layer=unknown.
func (p *Processor) parseIntentValue(tag *analysis.IntentTag, value string) *analysis.TagParseWarning {
	parts := strings.Split(value, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) < 2 || len(parts) > 4 || parts[0] == "" || parts[1] == "" {
		return &analysis.TagParseWarning{
			Reason: "expected layer:role[:pattern[:constraints]]",
		}
	}

	layer := analysis.ParseLayer(parts[0])
	tag.Layer = layer
	tag.Role = parts[1]
	if len(parts) == 3 && isConstraintList(parts[2]) {
		// Shorthand form layer:role:constraints, e.g. core:entity:immutable.
		tag.Constraints = append(tag.Constraints, splitList(parts[2])...)
	} else if len(parts) > 2 {
		tag.Pattern = parts[2]
	}
	if len(parts) > 3 {
		tag.Constraints = append(tag.Constraints, splitList(parts[3])...)
	}

	if layer == analysis.LayerUnknown && parts[0] != string(analysis.LayerUnknown) {
		return &analysis.TagParseWarning{
			Reason: "unknown layer " + parts[0],
		}
	}
	return nil
}

// splitTagLine recognizes "@key: value" after stripping comment leaders.
func splitTagLine(line string) (key, value string, ok bool) {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "#/* \t")
	if !strings.HasPrefix(s, "@") {
		return "", "", false
	}
	rest := s[1:]
	idx := strings.Index(rest, ":")
	if idx <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(rest[:idx])
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, strings.TrimSpace(rest[idx+1:]), true
}

// isConstraintList reports whether every comma-separated entry names a
// constraint the drift detector understands.
func isConstraintList(value string) bool {
	entries := splitList(value)
	if len(entries) == 0 {
		return false
	}
	for _, e := range entries {
		switch e {
		case analysis.ConstraintImmutable, analysis.ConstraintStateless,
			analysis.ConstraintThreadSafe, analysis.ConstraintNoIO:
		default:
			return false
		}
	}
	return true
}

// splitList splits a comma-separated value, dropping empties.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
