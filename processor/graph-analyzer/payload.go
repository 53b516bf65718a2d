package graphanalyzer

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "audit",
		Category:    "element",
		Version:     "v1",
		Description: "Code element analysis payload with triples for graph ingestion",
		Factory:     func() any { return &ElementPayload{} },
	})
	if err != nil {
		panic("failed to register ElementPayload: " + err.Error())
	}
}

// ElementType is the message type for analysis entity payloads.
var ElementType = message.Type{Domain: "audit", Category: "element", Version: "v1"}

// ElementPayload implements message.Payload for one analyzed code
// element. The wire shape matches the graph ingestion format: entity ID,
// triples, and update timestamp.
type ElementPayload struct {
	EntityID_  string           `json:"id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (e *ElementPayload) EntityID() string          { return e.EntityID_ }
func (e *ElementPayload) Triples() []message.Triple { return e.TripleData }
func (e *ElementPayload) Schema() message.Type      { return ElementType }

func (e *ElementPayload) Validate() error {
	if e.EntityID_ == "" {
		return errors.New("entity ID is required")
	}
	if len(e.TripleData) == 0 {
		return errors.New("at least one triple is required")
	}
	return nil
}

func (e *ElementPayload) MarshalJSON() ([]byte, error) {
	type Alias ElementPayload
	return json.Marshal((*Alias)(e))
}

func (e *ElementPayload) UnmarshalJSON(data []byte) error {
	type Alias ElementPayload
	return json.Unmarshal(data, (*Alias)(e))
}
