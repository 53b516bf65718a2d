// Package config provides configuration loading and management for Archdrift.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Archdrift configuration
type Config struct {
	Repo     RepoConfig     `yaml:"repo"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Classify ClassifyConfig `yaml:"classify"`
	Detect   DetectConfig   `yaml:"detect"`
	Model    ModelConfig    `yaml:"model"`
	NATS     NATSConfig     `yaml:"nats"`
}

// RepoConfig configures the repository settings
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty)
	Path string `yaml:"path"`
}

// PipelineConfig configures analysis concurrency
type PipelineConfig struct {
	// Workers is the number of concurrent analysis workers
	Workers int `yaml:"workers"`
	// QueueSize bounds the submission queue
	QueueSize int `yaml:"queue_size"`
}

// ClassifyConfig configures the architectural classifier
type ClassifyConfig struct {
	// Threshold is the heuristic confidence below which the AI
	// collaborator is consulted
	Threshold float64 `yaml:"threshold"`
	// CacheSize is the classification LRU cache capacity
	CacheSize int `yaml:"cache_size"`
	// Timeout bounds one collaborator call
	Timeout time.Duration `yaml:"timeout"`
	// AIEnabled turns on the AI classification collaborator
	AIEnabled bool `yaml:"ai_enabled"`
}

// DetectConfig configures hallucination detection
type DetectConfig struct {
	// RulesFile is an optional YAML file of extra suspicious-pattern
	// rules, merged with the built-in set
	RulesFile string `yaml:"rules_file"`
	// SimilarityEnabled turns on the semantic similarity layer
	SimilarityEnabled bool `yaml:"similarity_enabled"`
}

// ModelConfig configures the LLM collaborator settings
type ModelConfig struct {
	// Provider names a registered LLM provider (ollama, openai, anthropic)
	Provider string `yaml:"provider"`
	// Model is the model identifier (e.g., "qwen2.5-coder:32b")
	Model string `yaml:"model"`
	// Endpoint is the provider base URL (empty = provider default)
	Endpoint string `yaml:"endpoint"`
	// Temperature controls randomness (0.0-1.0, default: 0.2)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig configures graph persistence
type NATSConfig struct {
	// URL is the NATS server URL (empty = in-memory graph only)
	URL string `yaml:"url"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		Pipeline: PipelineConfig{
			Workers:   4,
			QueueSize: 64,
		},
		Classify: ClassifyConfig{
			Threshold: 0.7,
			CacheSize: 4096,
			Timeout:   10 * time.Second,
			AIEnabled: false,
		},
		Model: ModelConfig{
			Provider:    "ollama",
			Model:       "qwen2.5-coder:32b",
			Endpoint:    "http://localhost:11434/v1",
			Temperature: 0.2,
			Timeout:     5 * time.Minute,
		},
		NATS: NATSConfig{
			URL: "",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative")
	}
	if c.Pipeline.QueueSize < 0 {
		return fmt.Errorf("pipeline.queue_size must not be negative")
	}
	if c.Classify.Threshold < 0 || c.Classify.Threshold > 1 {
		return fmt.Errorf("classify.threshold must be between 0 and 1")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Classify.AIEnabled || c.Detect.SimilarityEnabled {
		if c.Model.Provider == "" {
			return fmt.Errorf("model.provider is required when an AI collaborator is enabled")
		}
		if c.Model.Model == "" {
			return fmt.Errorf("model.model is required when an AI collaborator is enabled")
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Repo
	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}

	// Pipeline
	if other.Pipeline.Workers != 0 {
		c.Pipeline.Workers = other.Pipeline.Workers
	}
	if other.Pipeline.QueueSize != 0 {
		c.Pipeline.QueueSize = other.Pipeline.QueueSize
	}

	// Classify
	if other.Classify.Threshold != 0 {
		c.Classify.Threshold = other.Classify.Threshold
	}
	if other.Classify.CacheSize != 0 {
		c.Classify.CacheSize = other.Classify.CacheSize
	}
	if other.Classify.Timeout != 0 {
		c.Classify.Timeout = other.Classify.Timeout
	}
	if other.Classify.AIEnabled {
		c.Classify.AIEnabled = true
	}

	// Detect
	if other.Detect.RulesFile != "" {
		c.Detect.RulesFile = other.Detect.RulesFile
	}
	if other.Detect.SimilarityEnabled {
		c.Detect.SimilarityEnabled = true
	}

	// Model
	if other.Model.Provider != "" {
		c.Model.Provider = other.Model.Provider
	}
	if other.Model.Model != "" {
		c.Model.Model = other.Model.Model
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
}
