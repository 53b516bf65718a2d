// Package main implements a mock model server for offline testing of
// the AI classification collaborator and the semantic similarity
// scorer. It serves OpenAI-compatible /v1/chat/completions responses
// from JSON fixture files, routing by the "model" field in the request.
//
// Usage:
//
//	mock-llm -fixtures /path/to/fixtures -port 11434
//
// Fixture files are JSON named by model (e.g., "mock-classifier.json"
// maps to model "mock-classifier"). The file content is returned as the
// assistant message. Point archdrift at it with:
//
//	ARCHDRIFT_MODEL_ENDPOINT=http://localhost:11434/v1 ARCHDRIFT_MODEL=mock-classifier
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type server struct {
	fixtures map[string]string // model name → response content
	calls    atomic.Int64

	modelCalls   map[string]int64
	modelCallsMu sync.Mutex
}

func newServer(fixtures map[string]string) *server {
	return &server{
		fixtures:   fixtures,
		modelCalls: make(map[string]int64),
	}
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "/fixtures"
	}

	fixtures, err := loadFixtures(*fixtureDir)
	if err != nil {
		log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
	}
	log.Printf("Loaded %d model(s) from %s", len(fixtures), *fixtureDir)
	for model := range fixtures {
		log.Printf("  model: %s", model)
	}

	s := newServer(fixtures)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/stats", s.handleStats)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock LLM server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	callNum := s.calls.Add(1)
	log.Printf("[call %d] model=%s messages=%d", callNum, req.Model, len(req.Messages))

	// Try the exact model name, then with a stripped "mock-" prefix.
	content, ok := s.fixtures[req.Model]
	if !ok {
		content, ok = s.fixtures[strings.TrimPrefix(req.Model, "mock-")]
	}
	if !ok {
		log.Printf("[call %d] WARNING: no fixture for model=%q", callNum, req.Model)
		http.Error(w, fmt.Sprintf("no fixture for model %q", req.Model), http.StatusNotFound)
		return
	}

	s.modelCallsMu.Lock()
	s.modelCalls[req.Model]++
	s.modelCallsMu.Unlock()

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(content) / 4, // rough estimate
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 2,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleModels returns the list of available mock models.
func (s *server) handleModels(w http.ResponseWriter, _ *http.Request) {
	type modelEntry struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	var models []modelEntry
	for name := range s.fixtures {
		models = append(models, modelEntry{
			ID:      name,
			Object:  "model",
			OwnedBy: "mock-llm",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   models,
	})
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.modelCallsMu.Lock()
	callsByModel := make(map[string]int64, len(s.modelCalls))
	for model, count := range s.modelCalls {
		callsByModel[model] = count
	}
	s.modelCallsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":    s.calls.Load(),
		"calls_by_model": callsByModel,
	})
}

// loadFixtures reads JSON files from dir and returns a map of
// model name to response content.
func loadFixtures(dir string) (map[string]string, error) {
	fixtures := make(map[string]string)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}

		model := strings.TrimSuffix(info.Name(), ".json")
		fixtures[model] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}

	return fixtures, nil
}
