package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/c360studio/archdrift/analysis"
)

func TestFileKeyStable(t *testing.T) {
	a := fileKey("domain/order.py")
	b := fileKey("domain/order.py")
	if a != b {
		t.Errorf("fileKey not deterministic: %s vs %s", a, b)
	}
	if a == fileKey("domain/other.py") {
		t.Error("distinct paths produced the same key")
	}
	if len(a) != 16 {
		t.Errorf("key length = %d, want 16", len(a))
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(errors.New("nats: key not found")) {
		t.Error("expected key-not-found to match")
	}
	if isNotFound(errors.New("nats: timeout")) {
		t.Error("timeout is not a missing key")
	}
	if isNotFound(nil) {
		t.Error("nil error is not a missing key")
	}
}

func TestFileRecordRoundTrip(t *testing.T) {
	el := analysis.NewElement(analysis.KindModule, "order", "domain.order", "domain/order.py", 1, 40)
	rec := fileRecord{
		FilePath: "domain/order.py",
		Elements: []*analysis.CodeElement{el},
		Relationships: []analysis.Relationship{
			{Kind: analysis.RelContains, SourceID: el.ID, TargetID: "child", Line: 3},
		},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got fileRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.FilePath != rec.FilePath || len(got.Elements) != 1 || len(got.Relationships) != 1 {
		t.Errorf("round trip lost data: %+v", got)
	}
	if got.Elements[0].ID != el.ID {
		t.Errorf("element ID = %s, want %s", got.Elements[0].ID, el.ID)
	}
}
