package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "mock-classifier.json", `{"layer": "core", "confidence": 0.9}`)
	writeFixture(t, dir, "mock-similarity.json", `{"score": 0.2}`)
	writeFixture(t, dir, "notes.txt", "ignored")

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures() error = %v", err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(fixtures))
	}
	if _, ok := fixtures["mock-classifier"]; !ok {
		t.Error("missing mock-classifier fixture")
	}
}

func TestLoadFixturesRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "broken.json", "{not json")

	if _, err := loadFixtures(dir); err == nil {
		t.Error("expected error for invalid JSON fixture")
	}
}

func TestLoadFixturesEmptyDir(t *testing.T) {
	if _, err := loadFixtures(t.TempDir()); err == nil {
		t.Error("expected error for empty fixture directory")
	}
}

func postCompletion(t *testing.T, s *server, model string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: "classify this"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleChatCompletions(rec, req)
	return rec
}

func TestChatCompletions(t *testing.T) {
	s := newServer(map[string]string{
		"classifier": `{"layer": "core", "role": "entity", "confidence": 0.9}`,
	})

	rec := postCompletion(t, s, "classifier")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(resp.Choices))
	}
	if resp.Choices[0].Message.Role != "assistant" {
		t.Errorf("role = %q, want assistant", resp.Choices[0].Message.Role)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %q, want stop", resp.Choices[0].FinishReason)
	}
	if !json.Valid([]byte(resp.Choices[0].Message.Content)) {
		t.Error("fixture content should round-trip as JSON")
	}
}

func TestChatCompletionsStripsMockPrefix(t *testing.T) {
	s := newServer(map[string]string{"classifier": `{"layer": "core"}`})

	rec := postCompletion(t, s, "mock-classifier")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestChatCompletionsUnknownModel(t *testing.T) {
	s := newServer(map[string]string{"classifier": `{}`})

	rec := postCompletion(t, s, "nonexistent")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChatCompletionsRejectsGet(t *testing.T) {
	s := newServer(map[string]string{"classifier": `{}`})

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
	rec := httptest.NewRecorder()
	s.handleChatCompletions(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestStats(t *testing.T) {
	s := newServer(map[string]string{"classifier": `{}`})
	postCompletion(t, s, "classifier")
	postCompletion(t, s, "classifier")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.handleStats(rec, req)

	var stats struct {
		TotalCalls   int64            `json:"total_calls"`
		CallsByModel map[string]int64 `json:"calls_by_model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid stats JSON: %v", err)
	}
	if stats.TotalCalls != 2 {
		t.Errorf("total_calls = %d, want 2", stats.TotalCalls)
	}
	if stats.CallsByModel["classifier"] != 2 {
		t.Errorf("calls_by_model[classifier] = %d, want 2", stats.CallsByModel["classifier"])
	}
}

func TestModelsEndpoint(t *testing.T) {
	s := newServer(map[string]string{"classifier": `{}`, "similarity": `{}`})

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	s.handleModels(rec, req)

	var resp struct {
		Object string `json:"object"`
		Data   []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid models JSON: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("expected 2 models, got %d", len(resp.Data))
	}
}
