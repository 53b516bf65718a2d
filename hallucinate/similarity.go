package hallucinate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/llm"
)

// Scorer judges how semantically plausible an element is in its
// context, returning a similarity in [0,1] where 1 means entirely
// plausible.
type Scorer interface {
	Score(ctx context.Context, t Target) (float64, error)
}

// similarityLayer inverts a Scorer's plausibility into suspicion. It is
// only installed when a scorer is configured; scorer failures skip the
// layer.
type similarityLayer struct {
	scorer Scorer
}

func (s *similarityLayer) Name() string { return "similarity" }

func (s *similarityLayer) Evaluate(ctx context.Context, t Target) (analysis.LayerResult, bool, error) {
	if t.Snippet == "" {
		return analysis.LayerResult{}, false, nil
	}
	similarity, err := s.scorer.Score(ctx, t)
	if err != nil {
		return analysis.LayerResult{}, false, err
	}
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	result := analysis.LayerResult{
		LayerName:      s.Name(),
		Weight:         weightSimilarity,
		SuspicionScore: 1 - similarity,
	}
	if result.SuspicionScore > 0.5 {
		result.Evidence = []string{
			fmt.Sprintf("semantic plausibility %.2f", similarity),
		}
	}
	return result, true, nil
}

const similaritySystemPrompt = `You judge whether a code element's description matches
real, plausible functionality in its codebase. Respond with a single JSON object:
{"similarity": 0.0}
where similarity is 1.0 for entirely plausible code and 0.0 for code that appears
invented or impossible.`

// similarityTemperature keeps scorer answers deterministic.
var similarityTemperature = 0.0

// LLMScorer implements Scorer on top of an LLM completer.
type LLMScorer struct {
	client llm.Completer
}

// NewLLMScorer wraps an LLM client as a similarity scorer.
func NewLLMScorer(client llm.Completer) *LLMScorer {
	return &LLMScorer{client: client}
}

// Score implements Scorer.
func (l *LLMScorer) Score(ctx context.Context, t Target) (float64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Element %s (%s) in %s:\n%s\n",
		t.Element.QualifiedName, t.Element.Kind, t.Element.FilePath, t.Snippet)

	resp, err := l.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: similaritySystemPrompt},
			{Role: "user", Content: b.String()},
		},
		Temperature: &similarityTemperature,
	})
	if err != nil {
		return 0, fmt.Errorf("similarity request: %w", err)
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return 0, fmt.Errorf("no JSON in similarity response")
	}
	var parsed struct {
		Similarity float64 `json:"similarity"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return 0, fmt.Errorf("parse similarity response: %w", err)
	}
	return parsed.Similarity, nil
}
