package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archdrift/analysis"
	"github.com/c360studio/archdrift/llm"
	"github.com/c360studio/archdrift/llm/testutil"
)

func TestLLMCollaboratorParsesResponse(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{
			Content: "```json\n{\"layer\": \"Application\", \"role\": \"Service\", \"confidence\": 0.82}\n```",
			Model:   "test-model",
		}},
	}
	collab := NewLLMCollaborator(mock)

	res, err := collab.Classify(context.Background(), ambiguousSubject())
	require.NoError(t, err)
	assert.Equal(t, analysis.LayerApplication, res.Layer)
	assert.Equal(t, "service", res.Role)
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
	assert.Equal(t, 1, mock.GetCallCount())
}

func TestLLMCollaboratorRejectsNonJSON(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: "I think it is core.", Model: "test-model"}},
	}
	collab := NewLLMCollaborator(mock)

	_, err := collab.Classify(context.Background(), ambiguousSubject())
	assert.Error(t, err)
}

func TestLLMCollaboratorUnknownLayerMapped(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{
			Content: `{"layer": "presentation", "role": "view", "confidence": 0.9}`,
			Model:   "test-model",
		}},
	}
	collab := NewLLMCollaborator(mock)

	res, err := collab.Classify(context.Background(), ambiguousSubject())
	require.NoError(t, err)
	assert.Equal(t, analysis.LayerUnknown, res.Layer)
}
