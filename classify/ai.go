package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/llm"
)

const classifySystemPrompt = `You are an architecture analyst. Given a code element,
assign it an architectural layer (core, application, or infrastructure), a role
(entity, service, repository, controller, ...), and optionally a design pattern.
Respond with a single JSON object:
{"layer": "...", "role": "...", "pattern": "...", "confidence": 0.0}
confidence is your certainty between 0 and 1.`

// classifyTemperature keeps collaborator answers deterministic.
var classifyTemperature = 0.0

// LLMCollaborator implements Collaborator on top of an LLM completer.
type LLMCollaborator struct {
	client llm.Completer
}

// NewLLMCollaborator wraps an LLM client as a classification collaborator.
func NewLLMCollaborator(client llm.Completer) *LLMCollaborator {
	return &LLMCollaborator{client: client}
}

// Classify implements Collaborator.
func (l *LLMCollaborator) Classify(ctx context.Context, subject Subject) (*CollaboratorResult, error) {
	resp, err := l.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: classifySystemPrompt},
			{Role: "user", Content: describeSubject(subject)},
		},
		Temperature: &classifyTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("classification request: %w", err)
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON in classification response")
	}

	var parsed struct {
		Layer      string  `json:"layer"`
		Role       string  `json:"role"`
		Pattern    string  `json:"pattern"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}

	return &CollaboratorResult{
		Layer:      analysis.ParseLayer(strings.ToLower(strings.TrimSpace(parsed.Layer))),
		Role:       strings.ToLower(strings.TrimSpace(parsed.Role)),
		Pattern:    strings.ToLower(strings.TrimSpace(parsed.Pattern)),
		Confidence: parsed.Confidence,
	}, nil
}

// describeSubject renders the element context for the prompt.
func describeSubject(subject Subject) string {
	el := subject.Element
	var b strings.Builder
	fmt.Fprintf(&b, "Kind: %s\nName: %s\nQualified name: %s\nFile: %s\n",
		el.Kind, el.Name, el.QualifiedName, el.FilePath)
	if el.RawSignature != "" {
		fmt.Fprintf(&b, "Signature: %s\n", el.RawSignature)
	}
	if el.Docstring != "" {
		fmt.Fprintf(&b, "Docstring: %s\n", el.Docstring)
	}
	if len(subject.Imports) > 0 {
		fmt.Fprintf(&b, "Module imports: %s\n", strings.Join(subject.Imports, ", "))
	}
	return b.String()
}
