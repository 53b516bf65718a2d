package hallucinate

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/archdrift/analysis"
)

// syntaxLayer wraps the parser's verdict. A file that failed to parse
// cleanly is already strong evidence of fabricated code. A clean parse
// is not evidence either way, so the layer only runs on failures.
type syntaxLayer struct{}

func (s *syntaxLayer) Name() string { return "syntax" }

func (s *syntaxLayer) Evaluate(_ context.Context, t Target) (analysis.LayerResult, bool, error) {
	result := analysis.LayerResult{LayerName: s.Name(), Weight: weightSyntax}
	if t.ParseOK {
		return result, false, nil
	}
	result.SuspicionScore = 0.95
	result.Evidence = []string{"file did not parse cleanly"}
	return result, true, nil
}

// patternLayer matches the configured suspicious-construct table
// against element names and attached text.
type patternLayer struct {
	rules []Rule
}

func (p *patternLayer) Name() string { return "pattern" }

func (p *patternLayer) Evaluate(_ context.Context, t Target) (analysis.LayerResult, bool, error) {
	result := analysis.LayerResult{LayerName: p.Name(), Weight: weightPattern}

	var score float64
	matches := 0
	for _, rule := range p.rules {
		if rule.re == nil {
			continue
		}
		subject := t.Snippet
		if rule.Target == TargetName {
			subject = t.Element.Name
		}
		if subject == "" || !rule.re.MatchString(subject) {
			continue
		}
		matches++
		if rule.Score > score {
			score = rule.Score
		}
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("matched %s rule on %s", rule.Name, rule.Target))
	}
	// Multiple independent matches compound the strongest one.
	if matches > 1 {
		score += 0.1 * float64(matches-1)
	}
	if score > 1 {
		score = 1
	}
	result.SuspicionScore = score
	return result, true, nil
}

// graphLayer checks whether the element's references exist. Calls to
// unresolved targets and imports of unknown modules raise suspicion;
// builtins and known packages never do. A callable that references
// nothing at all is judged as a stub: it claims an implementation the
// graph cannot corroborate.
type graphLayer struct{}

// stubSuspicion is the score for a function or method whose body
// produced no graph activity. An empty body is not proof of
// fabrication on its own, so it stays below a resolved-reference miss.
const stubSuspicion = 0.8

func (g *graphLayer) Name() string { return "graph" }

func (g *graphLayer) Evaluate(_ context.Context, t Target) (analysis.LayerResult, bool, error) {
	result := analysis.LayerResult{LayerName: g.Name(), Weight: weightGraph}

	total := 0
	suspicious := 0
	for _, rel := range t.Outgoing {
		switch rel.Kind {
		case analysis.RelCalls, analysis.RelImports, analysis.RelInheritsFrom:
		default:
			continue
		}
		name, external := t.TargetName[rel.TargetID]
		if external && strings.HasPrefix(name, "builtin:") {
			continue
		}
		total++
		if !external {
			continue
		}
		if rel.Kind == analysis.RelImports && isKnownModule(name) {
			continue
		}
		if rel.Kind != analysis.RelImports && !rel.Heuristic() && isKnownModule(name) {
			continue
		}
		suspicious++
		result.Evidence = append(result.Evidence,
			fmt.Sprintf("%s target %s does not exist in the graph (line %d)", rel.Kind, name, rel.Line))
	}

	if total == 0 {
		if t.Stub {
			result.SuspicionScore = stubSuspicion
			result.Evidence = []string{"definition has no real implementation: empty body with no references"}
			return result, true, nil
		}
		// Nothing referenced, nothing to judge.
		return result, false, nil
	}
	result.SuspicionScore = float64(suspicious) / float64(total)
	return result, true, nil
}
